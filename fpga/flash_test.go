// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package fpga

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cheriboot.sh/config"
)

func TestEnsureHWServerAlreadyRunning(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal("listen:", err)
	}
	defer ln.Close()

	// With an empty PATH any attempt to spawn a server would fail, so a nil
	// return proves the running listener was enough.
	t.Setenv("PATH", "")

	b := NewBuilder(&config.Config{Workdir: t.TempDir(), Jobs: 1}, 1,
		WithHWServerAddr(ln.Addr().String()),
	)

	if err := b.ensureHWServer(context.Background()); err != nil {
		t.Fatalf("expected reachable server to satisfy the check, got %v", err)
	}
}

func TestEnsureHWServerTimeout(t *testing.T) {
	// A server binary that exits without ever listening.
	bindir := t.TempDir()
	script := filepath.Join(bindir, "hw_server")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bindir)

	// Grab a port that is free and closed.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal("listen:", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	workdir := t.TempDir()
	b := NewBuilder(&config.Config{Workdir: workdir, Jobs: 1}, 1,
		WithHWServerAddr(addr),
		WithHWServerTimeout(300*time.Millisecond, 50*time.Millisecond),
	)

	err = b.ensureHWServer(context.Background())
	if err == nil {
		t.Fatal("expected a readiness timeout")
	}
	if !strings.Contains(err.Error(), "did not become ready") {
		t.Errorf("unexpected error: %v", err)
	}

	// The spawned server's output lands under the workdir.
	if _, err := os.Stat(filepath.Join(workdir, "external", "logs", "hw_server.log")); err != nil {
		t.Errorf("expected a hw_server log file: %v", err)
	}
}

func TestEnsureHWServerMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	// A closed port forces the spawn path, which cannot find a binary.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal("listen:", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	b := NewBuilder(&config.Config{Workdir: t.TempDir(), Jobs: 1}, 1,
		WithHWServerAddr(addr),
	)

	err = b.ensureHWServer(context.Background())
	if err == nil || !strings.Contains(err.Error(), "settings64.sh") {
		t.Fatalf("expected the error to name the Vivado environment script, got %v", err)
	}
}
