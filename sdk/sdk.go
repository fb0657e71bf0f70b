// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package sdk locates the root of a pre-built CHERI SDK bundle produced by
// cheribuild.  Unlike the toolchain resolver it never provisions anything: an
// SDK build takes hours and is an explicit operator action, so exhaustion of
// the sources reports the remedial command instead of downloading.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"cheriboot.sh/log"
)

// EnvVar overrides the SDK root, matching the variable cheribuild's own
// helper scripts honor.
const EnvVar = "CHERIBUILD_SDK"

// DefaultSysroot is the sysroot subdirectory whose presence marks a usable
// purecap SDK root.
const DefaultSysroot = "sysroot-riscv64-purecap"

// ErrNotFound indicates no SDK root was found at any configured location.
var ErrNotFound = errors.New("no CHERI SDK found")

// Valid reports whether root contains the named sysroot subdirectory.
func Valid(root, sysroot string) bool {
	if sysroot == "" {
		sysroot = DefaultSysroot
	}

	fi, err := os.Stat(filepath.Join(root, sysroot))
	return err == nil && fi.IsDir()
}

// Strategy is one source an SDK root may come from, following the same
// first-hit-wins contract as the toolchain resolver.
type Strategy interface {
	fmt.Stringer

	Resolve(ctx context.Context) (string, bool, error)
}

// Resolve walks the strategies in order and returns the first valid root.
func Resolve(ctx context.Context, strategies ...Strategy) (string, error) {
	tried := make([]string, 0, len(strategies))

	for _, strategy := range strategies {
		root, ok, err := strategy.Resolve(ctx)
		if err != nil {
			return "", err
		} else if ok {
			log.G(ctx).
				WithField("source", strategy.String()).
				WithField("root", root).
				Debug("resolved CHERI SDK")
			return root, nil
		}

		tried = append(tried, strategy.String())
	}

	return "", fmt.Errorf(
		"%w: tried %s (run 'cheriboot sdk' to build one)",
		ErrNotFound, strings.Join(tried, ", "),
	)
}

// FromEnv resolves the SDK root from an environment variable.
type FromEnv struct {
	// Key is the variable consulted, EnvVar when empty.
	Key string

	// Sysroot overrides the validity subdirectory.
	Sysroot string
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

	if !Valid(root, s.Sysroot) {
		log.G(ctx).
			WithField("root", root).
			Warnf("%s is set but does not contain a sysroot, ignoring", s.key())
		return "", false, nil
	}

	return root, true, nil
}

// FromPath resolves a statically configured SDK root, typically the
// per-target override from the catalog.
type FromPath struct {
	Path    string
	Sysroot string
}

func (s FromPath) String() string {
	if s.Path == "" {
		return "(unconfigured)"
	}

	return s.Path
}

func (s FromPath) Resolve(_ context.Context) (string, bool, error) {
	if s.Path == "" || !Valid(s.Path, s.Sysroot) {
		return "", false, nil
	}

	return s.Path, true, nil
}

// FromHome resolves cheribuild's default output location,
// $HOME/cheri/output/sdk.
type FromHome struct {
	Sysroot string
}

func (s FromHome) String() string {
	return "~/cheri/output/sdk"
}

func (s FromHome) Resolve(_ context.Context) (string, bool, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", false, nil
	}

	root := filepath.Join(home, "cheri", "output", "sdk")
	if !Valid(root, s.Sysroot) {
		return "", false, nil
	}

	return root, true, nil
}

// DefaultStrategies builds the standard chain: environment override, then the
// configured roots in order (per-target first, then the tool-level config),
// then cheribuild's default location.
func DefaultStrategies(sysroot string, roots ...string) []Strategy {
	strategies := []Strategy{FromEnv{Sysroot: sysroot}}

	for _, root := range roots {
		strategies = append(strategies, FromPath{Path: root, Sysroot: sysroot})
	}

	return append(strategies, FromHome{Sysroot: sysroot})
}

// OutputDir returns cheribuild's output directory for a resolved SDK root,
// the parent directory holding kernels and rootfs images.
func OutputDir(root string) string {
	return filepath.Dir(root)
}
