// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package sdk_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cheriboot.sh/sdk"
)

func newSDKRoot(t *testing.T) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "sdk")
	if err := os.MkdirAll(filepath.Join(root, sdk.DefaultSysroot), 0o755); err != nil {
		t.Fatal(err)
	}

	return root
}

func TestResolveEnvWinsOverConfigured(t *testing.T) {
	envRoot := newSDKRoot(t)
	cfgRoot := newSDKRoot(t)

	t.Setenv("CHERIBUILD_SDK", envRoot)

	got, err := sdk.Resolve(context.Background(),
		sdk.FromEnv{},
		sdk.FromPath{Path: cfgRoot},
	)
	if err != nil {
		t.Fatal("Resolve:", err)
	}
	if got != envRoot {
		t.Errorf("expected env root %q, got %q", envRoot, got)
	}
}

func TestResolveConfiguredPath(t *testing.T) {
	t.Setenv("CHERIBUILD_SDK", "")

	cfgRoot := newSDKRoot(t)

	got, err := sdk.Resolve(context.Background(),
		sdk.FromEnv{},
		sdk.FromPath{Path: cfgRoot},
	)
	if err != nil {
		t.Fatal("Resolve:", err)
	}
	if got != cfgRoot {
		t.Errorf("expected configured root %q, got %q", cfgRoot, got)
	}
}

func TestResolveInvalidEnvFallsThrough(t *testing.T) {
	// Set but lacking a sysroot: ignored with a warning.
	t.Setenv("CHERIBUILD_SDK", t.TempDir())

	cfgRoot := newSDKRoot(t)

	got, err := sdk.Resolve(context.Background(),
		sdk.FromEnv{},
		sdk.FromPath{Path: cfgRoot},
	)
	if err != nil {
		t.Fatal("Resolve:", err)
	}
	if got != cfgRoot {
		t.Errorf("expected configured root %q, got %q", cfgRoot, got)
	}
}

// The default chain tries every configured root in order, so a tool-level
// configured root still resolves when the per-target one is empty.
func TestDefaultStrategiesTryAllConfiguredRoots(t *testing.T) {
	t.Setenv("CHERIBUILD_SDK", "")

	cfgRoot := newSDKRoot(t)

	got, err := sdk.Resolve(context.Background(),
		sdk.DefaultStrategies("", "", cfgRoot)...,
	)
	if err != nil {
		t.Fatal("Resolve:", err)
	}
	if got != cfgRoot {
		t.Errorf("expected configured root %q, got %q", cfgRoot, got)
	}
}

func TestResolveExhaustionNamesRemedy(t *testing.T) {
	t.Setenv("CHERIBUILD_SDK", "")

	_, err := sdk.Resolve(context.Background(),
		sdk.FromEnv{},
		sdk.FromPath{Path: ""},
	)
	if !errors.Is(err, sdk.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "cheriboot sdk") {
		t.Errorf("error does not name the remedial command: %v", err)
	}
}

func TestOutputDir(t *testing.T) {
	if got := sdk.OutputDir("/home/user/cheri/output/sdk"); got != "/home/user/cheri/output" {
		t.Errorf("unexpected output dir %q", got)
	}
}
