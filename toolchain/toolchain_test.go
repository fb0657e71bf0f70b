// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package toolchain_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cheriboot.sh/toolchain"
)

// newRoot fabricates a toolchain installation containing one cross compiler.
func newRoot(t *testing.T, parent, name, compiler string) string {
	t.Helper()

	root := filepath.Join(parent, name)
	if err := os.MkdirAll(filepath.Join(root, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "bin", compiler), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	return root
}

func TestValid(t *testing.T) {
	dir := t.TempDir()

	if toolchain.Valid(dir) {
		t.Error("empty directory must not validate")
	}

	root := newRoot(t, dir, "corev", "riscv64-corev-elf-gcc")
	if !toolchain.Valid(root) {
		t.Error("root with a cross gcc must validate")
	}

	unrelated := filepath.Join(dir, "other")
	if err := os.MkdirAll(filepath.Join(unrelated, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if toolchain.Valid(unrelated) {
		t.Error("bin without a known compiler must not validate")
	}
}

func TestResolveEnvOverride(t *testing.T) {
	root := newRoot(t, t.TempDir(), "corev", "riscv32-corev-elf-gcc")
	t.Setenv("RISCV", root)

	got, err := toolchain.Resolve(context.Background(), toolchain.FromEnv{})
	if err != nil {
		t.Fatal("Resolve:", err)
	}
	if got != root {
		t.Errorf("expected %q, got %q", root, got)
	}
}

func TestResolveInvalidEnvFallsThrough(t *testing.T) {
	// A set but invalid override must not shadow the install dir scan.
	t.Setenv("RISCV", t.TempDir())

	installDir := t.TempDir()
	root := newRoot(t, installDir, "corev-gcc-ubuntu2204", "riscv64-unknown-elf-gcc")

	got, err := toolchain.Resolve(context.Background(),
		toolchain.FromEnv{},
		toolchain.FromInstallDir{Dir: installDir},
	)
	if err != nil {
		t.Fatal("Resolve:", err)
	}
	if got != root {
		t.Errorf("expected install dir root %q, got %q", root, got)
	}
}

func TestResolveExhaustionListsSources(t *testing.T) {
	t.Setenv("RISCV", "")

	installDir := t.TempDir()

	_, err := toolchain.Resolve(context.Background(),
		toolchain.FromEnv{},
		toolchain.FromInstallDir{Dir: installDir},
	)
	if !errors.Is(err, toolchain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "$RISCV") || !strings.Contains(err.Error(), installDir) {
		t.Errorf("error does not list tried sources: %v", err)
	}
}
