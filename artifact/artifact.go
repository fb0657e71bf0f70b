// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package artifact tracks the files a build step produces, verifies they
// actually exist, and relocates them into the canonical per-target output
// directory.  Build steps compose through the relocated paths, never through
// the build trees of the underlying build systems.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cheriboot.sh/log"
)

// Role is the logical function of a produced file within a boot chain.  A
// later stage consumes an earlier stage's artifact by role, which is the
// payload-chaining relation.
type Role string

const (
	ELF         Role = "elf"
	Bin         Role = "bin"
	FirmwareBin Role = "fw_bin"
	FirmwareELF Role = "fw_elf"
	UBootBin    Role = "uboot_bin"
	UBootELF    Role = "uboot_elf"
	KernelELF   Role = "kernel_elf"
	KernelBin   Role = "kernel_bin"
	UImage      Role = "uimage"
)

// Set maps roles to file paths.  Steps return Sets whose paths point into the
// output directory.
type Set map[Role]string

// ErrMissing indicates an external build tool exited successfully but the
// expected output file is absent.  A zero exit code never guarantees artifact
// presence: build systems can "succeed" without producing the configured file
// name, so presence is always re-verified.
var ErrMissing = errors.New("expected build artifact not found")

// Resolve returns the first of primary and fallbacks that exists on disk.  It
// is called immediately after each external build invocation returns zero.
func Resolve(primary string, fallbacks ...string) (string, error) {
	searched := append([]string{primary}, fallbacks...)

	for _, path := range searched {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: searched %s", ErrMissing, strings.Join(searched, ", "))
}

// ResolveOptional behaves like Resolve but degrades absence to a logged
// warning; the artifact is simply omitted from the step's result set.
func ResolveOptional(ctx context.Context, primary string, fallbacks ...string) (string, bool) {
	path, err := Resolve(primary, fallbacks...)
	if err != nil {
		log.G(ctx).WithField("path", primary).Warn("optional artifact not produced")
		return "", false
	}

	return path, true
}
