// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package toolchain

import (
	"cheriboot.sh/config"
)

// DefaultStrategies builds the standard resolution chain: the $RISCV
// environment override, then the local install directory, then a download of
// the configured archive.
func DefaultStrategies(cfg *config.Config) []Strategy {
	return []Strategy{
		FromEnv{},
		FromInstallDir{Dir: cfg.Toolchain.InstallDir},
		FromArchive{
			URL:        cfg.Toolchain.ArchiveURL,
			InstallDir: cfg.Toolchain.InstallDir,
			CacheDir:   config.CacheDir(),
		},
	}
}
