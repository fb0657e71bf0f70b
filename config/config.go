// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

// Config holds the tool-level configuration for cheriboot.  Declarative build
// catalogs (targets, boards, repositories) are loaded separately by the stack
// package; everything here is about how the tool itself behaves.
type Config struct {
	// Workdir is the directory below which source checkouts (external/) and
	// produced artifacts (output/) live.
	Workdir string `yaml:"workdir" env:"CHERIBOOT_WORKDIR" long:"workdir" usage:"Working directory containing checkouts and build output" default:"."`

	// Catalog is the path to the declarative YAML catalog of software targets,
	// boards and repositories.
	Catalog string `yaml:"catalog" env:"CHERIBOOT_CATALOG" long:"catalog" usage:"Path to the target/board/repository catalog" default:"cheriboot.yaml"`

	// Jobs is the default -j value handed to external build systems.
	Jobs int `yaml:"jobs" env:"CHERIBOOT_JOBS" long:"jobs" usage:"Default number of parallel jobs for external builds" default:"8"`

	Log struct {
		Level      string `yaml:"level" env:"CHERIBOOT_LOG_LEVEL" long:"log-level" usage:"Log level verbosity" default:"info"`
		Timestamps bool   `yaml:"timestamps" env:"CHERIBOOT_LOG_TIMESTAMPS" long:"log-timestamps" usage:"Enable log timestamps"`
		Type       string `yaml:"type" env:"CHERIBOOT_LOG_TYPE" long:"log-type" usage:"Log type" default:"fancy"`
	} `yaml:"log"`

	Toolchain struct {
		// InstallDir is where downloaded cross toolchains are unpacked.
		InstallDir string `yaml:"install_dir,omitempty" env:"CHERIBOOT_TOOLCHAIN_DIR" usage:"Directory for locally installed cross toolchains"`

		// ArchiveURL is the versioned toolchain tarball fetched when no local
		// toolchain can be found.
		ArchiveURL string `yaml:"archive_url,omitempty" env:"CHERIBOOT_TOOLCHAIN_URL" usage:"URL of the cross toolchain archive"`
	} `yaml:"toolchain,omitempty"`

	SDK struct {
		// Root overrides the location of the pre-built CHERI SDK bundle.
		Root string `yaml:"root,omitempty" env:"CHERIBUILD_SDK" usage:"Root of the pre-built CHERI SDK"`
	} `yaml:"sdk,omitempty"`
}
