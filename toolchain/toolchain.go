// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package toolchain locates or provisions a RISC-V cross-compilation
// toolchain root.  Resolution walks an ordered list of strategies and takes
// the first hit; only when every strategy comes up empty does resolution fail.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cheriboot.sh/log"
)

// EnvVar is the conventional environment override for the toolchain root,
// shared with the CVA6 and CORE-V build systems.
const EnvVar = "RISCV"

// compilerNames are the cross-gcc binaries whose presence under bin/ marks a
// directory as a usable toolchain root.
var compilerNames = []string{
	"riscv64-corev-elf-gcc",
	"riscv32-corev-elf-gcc",
	"riscv64-unknown-elf-gcc",
	"riscv32-unknown-elf-gcc",
}

// ErrUnavailable indicates every resolution strategy was tried without
// producing a valid toolchain root.
var ErrUnavailable = errors.New("no RISC-V toolchain available")

// Valid reports whether root looks like a toolchain installation, meaning at
// least one known cross compiler exists under its bin/ directory.
func Valid(root string) bool {
	bin := filepath.Join(root, "bin")
	if fi, err := os.Stat(bin); err != nil || !fi.IsDir() {
		return false
	}

	for _, name := range compilerNames {
		if _, err := os.Stat(filepath.Join(bin, name)); err == nil {
			return true
		}
	}

	return false
}

// Strategy is one source a toolchain root may come from.  Resolve returns the
// root and true on a hit, or false when this source has nothing, letting the
// chain continue.  An error aborts the chain immediately since strategies
// that fail mid-provisioning (a broken download, say) leave nothing for the
// remaining sources to improve on.
type Strategy interface {
	fmt.Stringer

	Resolve(ctx context.Context) (string, bool, error)
}

// Resolve walks the strategies in order and returns the first root produced.
func Resolve(ctx context.Context, strategies ...Strategy) (string, error) {
	tried := make([]string, 0, len(strategies))

	for _, strategy := range strategies {
		root, ok, err := strategy.Resolve(ctx)
		if err != nil {
			return "", fmt.Errorf("toolchain source %s: %w", strategy, err)
		} else if ok {
			log.G(ctx).
				WithField("source", strategy.String()).
				WithField("root", root).
				Debug("resolved toolchain")
			return root, nil
		}

		tried = append(tried, strategy.String())
	}

	return "", fmt.Errorf("%w: tried %s", ErrUnavailable, strings.Join(tried, ", "))
}

// FromEnv resolves the toolchain root from an environment variable.  A set
// but invalid override is a soft miss: it logs a warning and lets the chain
// continue rather than masking the local install or download fallbacks.
type FromEnv struct {
	// Key is the variable consulted, EnvVar when empty.
	Key string
}

func (s FromEnv) String() string {
	return "$" + s.key()
}

func (s FromEnv) key() string {
	if s.Key == "" {
		return EnvVar
	}

	return s.Key
}

func (s FromEnv) Resolve(ctx context.Context) (string, bool, error) {
	root := os.Getenv(s.key())
	if root == "" {
		return "", false, nil
	}

	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	if !Valid(root) {
		log.G(ctx).
			WithField("root", root).
			Warnf("%s is set but does not contain a cross compiler, ignoring", s.key())
		return "", false, nil
	}

	return root, true, nil
}

// FromInstallDir scans the immediate subdirectories of a local install
// directory for a valid toolchain root.
type FromInstallDir struct {
	Dir string
}

func (s FromInstallDir) String() string {
	return s.Dir
}

func (s FromInstallDir) Resolve(_ context.Context) (string, bool, error) {
	root, ok := scan(s.Dir)
	return root, ok, nil
}

// scan checks dir itself and then its immediate subdirectories for a valid
// toolchain root.
func scan(dir string) (string, bool) {
	if Valid(dir) {
		return dir, true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if sub := filepath.Join(dir, entry.Name()); Valid(sub) {
			return sub, true
		}
	}

	return "", false
}
