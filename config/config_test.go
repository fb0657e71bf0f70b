// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"cheriboot.sh/config"
)

func TestDefaultConfig(t *testing.T) {
	c, err := config.NewDefaultConfig()
	if err != nil {
		t.Fatal("NewDefaultConfig:", err)
	}

	if c.Workdir != "." {
		t.Errorf("default workdir: expected %q, got %q", ".", c.Workdir)
	}
	if c.Catalog != "cheriboot.yaml" {
		t.Errorf("default catalog: expected %q, got %q", "cheriboot.yaml", c.Catalog)
	}
	if c.Jobs != config.DefaultJobs {
		t.Errorf("default jobs: expected %d, got %d", config.DefaultJobs, c.Jobs)
	}
	if c.Log.Level != "info" {
		t.Errorf("default log level: expected %q, got %q", "info", c.Log.Level)
	}
	if c.Toolchain.ArchiveURL != config.DefaultToolchainArchiveURL {
		t.Errorf("default toolchain archive URL: got %q", c.Toolchain.ArchiveURL)
	}
	if c.Toolchain.InstallDir == "" {
		t.Error("default toolchain install dir is empty")
	}
}

func TestEnvFeederOverridesDefaults(t *testing.T) {
	t.Setenv("CHERIBOOT_WORKDIR", "/srv/cheri")
	t.Setenv("CHERIBOOT_JOBS", "2")
	t.Setenv("CHERIBOOT_LOG_LEVEL", "debug")

	cm, err := config.NewConfigManager()
	if err != nil {
		t.Fatal("NewConfigManager:", err)
	}

	if cm.Config.Workdir != "/srv/cheri" {
		t.Errorf("workdir: expected %q, got %q", "/srv/cheri", cm.Config.Workdir)
	}
	if cm.Config.Jobs != 2 {
		t.Errorf("jobs: expected 2, got %d", cm.Config.Jobs)
	}
	if cm.Config.Log.Level != "debug" {
		t.Errorf("log level: expected %q, got %q", "debug", cm.Config.Log.Level)
	}
}

func TestYamlFileRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")

	seed, err := config.NewDefaultConfig()
	if err != nil {
		t.Fatal(err)
	}

	seed.Workdir = "/data/cheri"
	seed.Jobs = 12

	if err := (config.YamlFeeder{File: file}).Write(seed); err != nil {
		t.Fatal("Write:", err)
	}

	cm, err := config.NewConfigManager(config.WithFile(file, false))
	if err != nil {
		t.Fatal("NewConfigManager:", err)
	}

	if cm.Config.Workdir != "/data/cheri" {
		t.Errorf("workdir: expected %q, got %q", "/data/cheri", cm.Config.Workdir)
	}
	if cm.Config.Jobs != 12 {
		t.Errorf("jobs: expected 12, got %d", cm.Config.Jobs)
	}
}

// Environment variables are fed last, so they win over file contents.
func TestEnvWinsOverFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")

	seed, err := config.NewDefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	seed.Jobs = 12

	if err := (config.YamlFeeder{File: file}).Write(seed); err != nil {
		t.Fatal("Write:", err)
	}

	t.Setenv("CHERIBOOT_JOBS", "3")

	cm, err := config.NewConfigManager(config.WithFile(file, false))
	if err != nil {
		t.Fatal("NewConfigManager:", err)
	}

	if cm.Config.Jobs != 3 {
		t.Errorf("jobs: expected env override 3, got %d", cm.Config.Jobs)
	}
}

func TestWithFileCreatesWhenForced(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if _, err := config.NewConfigManager(config.WithFile(file, true)); err != nil {
		t.Fatal("NewConfigManager:", err)
	}

	if _, err := os.Stat(file); err != nil {
		t.Errorf("config file was not created: %v", err)
	}
}
