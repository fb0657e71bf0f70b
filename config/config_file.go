// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/mitchellh/go-homedir"
)

const (
	CHERIBOOT_CONFIG_DIR = "CHERIBOOT_CONFIG_DIR"
	XDG_CONFIG_HOME      = "XDG_CONFIG_HOME"
	XDG_DATA_HOME        = "XDG_DATA_HOME"
	APP_DATA             = "AppData"
)

// ConfigDir returns the directory holding the tool configuration file.
//
// Precedence:
// 1. CHERIBOOT_CONFIG_DIR
// 2. XDG_CONFIG_HOME
// 3. AppData (windows only)
// 4. HOME
func ConfigDir() string {
	if a := os.Getenv(CHERIBOOT_CONFIG_DIR); a != "" {
		return a
	} else if b := os.Getenv(XDG_CONFIG_HOME); b != "" {
		return filepath.Join(b, "cheriboot")
	} else if c := os.Getenv(APP_DATA); runtime.GOOS == "windows" && c != "" {
		return filepath.Join(c, "Cheriboot")
	}

	d, _ := homedir.Dir()
	return filepath.Join(d, ".config", "cheriboot")
}

// DataDir returns the directory for shared, non-configuration state such as
// unpacked toolchains and download caches.
func DataDir() string {
	if a := os.Getenv(XDG_DATA_HOME); a != "" {
		return filepath.Join(a, "cheriboot")
	}

	d, _ := homedir.Dir()
	return filepath.Join(d, ".local", "share", "cheriboot")
}

// ToolchainsDir is the default unpack location for downloaded cross
// toolchains.
func ToolchainsDir() string {
	return filepath.Join(DataDir(), "toolchains")
}

// CacheDir is where downloaded archives are kept before extraction.
func CacheDir() string {
	return filepath.Join(DataDir(), "cache")
}

// DefaultConfigFile is the location of the tool configuration YAML.
func DefaultConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
