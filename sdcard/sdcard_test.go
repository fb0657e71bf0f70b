// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package sdcard_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cheriboot.sh/config"
	"cheriboot.sh/sdcard"
	"cheriboot.sh/stack"
)

func newSDKRoot(t *testing.T) string {
	t.Helper()

	sdkRoot := filepath.Join(t.TempDir(), "sdk")
	if err := os.MkdirAll(filepath.Join(sdkRoot, "sysroot-riscv64-purecap"), 0o755); err != nil {
		t.Fatal(err)
	}

	return sdkRoot
}

func TestWriteRejectsNonCheriBSDTargets(t *testing.T) {
	targets := []*stack.Target{
		{Name: "hello", Kind: stack.KindBaremetal, Baremetal: &stack.BaremetalSpec{}},
		{Name: "bao-demo", Kind: stack.KindBaoBundle, Bao: &stack.BaoBundleSpec{}},
	}

	for _, target := range targets {
		t.Run(string(target.Kind), func(t *testing.T) {
			err := sdcard.Write(context.Background(), &config.Config{}, target, "/dev/null")
			if !errors.Is(err, sdcard.ErrWrongKind) {
				t.Fatalf("expected ErrWrongKind, got %v", err)
			}
			if !strings.Contains(err.Error(), target.Name) {
				t.Errorf("error does not name the target: %v", err)
			}
		})
	}
}

func TestWriteMissingRootfsNamesRemedy(t *testing.T) {
	t.Setenv("CHERIBUILD_SDK", "")

	target := &stack.Target{
		Name: "cheribsd-purecap",
		Kind: stack.KindCheriBSD,
		CheriBSD: &stack.CheriBSDSpec{
			SDKRoot:     newSDKRoot(t),
			RootfsImage: stack.DefaultRootfsImage,
		},
	}

	err := sdcard.Write(context.Background(), &config.Config{}, target, "/dev/null")
	if !errors.Is(err, sdcard.ErrNoRootfs) {
		t.Fatalf("expected ErrNoRootfs, got %v", err)
	}
	if !strings.Contains(err.Error(), "cheriboot build") {
		t.Errorf("error does not name the remedial command: %v", err)
	}
}

// A tool-level sdk.root config entry serves as the SDK root when the target
// carries no per-target override.
func TestWriteUsesConfiguredSDKRoot(t *testing.T) {
	t.Setenv("CHERIBUILD_SDK", "")

	cfg := &config.Config{}
	cfg.SDK.Root = newSDKRoot(t)

	target := &stack.Target{
		Name: "cheribsd-purecap",
		Kind: stack.KindCheriBSD,
		CheriBSD: &stack.CheriBSDSpec{
			RootfsImage: stack.DefaultRootfsImage,
		},
	}

	// The configured root resolves, so the failure is the missing rootfs
	// image inside it, not SDK exhaustion.
	err := sdcard.Write(context.Background(), cfg, target, "/dev/null")
	if !errors.Is(err, sdcard.ErrNoRootfs) {
		t.Fatalf("expected ErrNoRootfs, got %v", err)
	}
}
