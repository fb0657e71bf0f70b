// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package fpga

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cli/safeexec"

	"cheriboot.sh/exec"
	"cheriboot.sh/log"
)

const (
	// HWServerAddr is where Vivado's hardware server listens by default.
	HWServerAddr = "localhost:3121"

	// hwServerTimeout bounds the wait for a freshly spawned hw_server to
	// accept connections.
	hwServerTimeout = 30 * time.Second

	hwServerPollInterval = 500 * time.Millisecond
)

// Flash programs the board by running the hardware repository's Vivado TCL
// script in batch mode.  A hw_server is started first when none is reachable.
func (b *Builder) Flash(ctx context.Context, script string) error {
	dir, err := b.checkout()
	if err != nil {
		return err
	}

	scriptPath := filepath.Join(dir, script)
	if _, err := os.Stat(scriptPath); err != nil {
		return fmt.Errorf("flash script not found: %s (check the board's flash_script in the catalog)", scriptPath)
	}

	if err := b.ensureHWServer(ctx); err != nil {
		return err
	}

	env := map[string]string{}
	if os.Getenv("HW_SERVER_URL") == "" {
		env["HW_SERVER_URL"] = b.hwAddr
	}

	log.G(ctx).WithField("script", scriptPath).Info("flashing FPGA via Vivado")

	vivado, err := safeexec.LookPath("vivado")
	if err != nil {
		return fmt.Errorf("vivado not found in PATH, source Vivado's settings64.sh first: %w", err)
	}

	proc, err := exec.NewProcess(vivado,
		[]string{"-mode", "batch", "-source", scriptPath},
		exec.WithWorkingDir(filepath.Dir(scriptPath)),
		exec.WithEnv(env),
		exec.WithStdout(os.Stdout),
		exec.WithStderr(os.Stderr),
	)
	if err != nil {
		return err
	}

	return proc.StartAndWait(ctx)
}

// ensureHWServer makes sure a hardware server is accepting connections,
// spawning a detached one when the port is closed.  Readiness is an actual
// TCP accept, polled with a capped deadline.
func (b *Builder) ensureHWServer(ctx context.Context) error {
	if reachable(b.hwAddr) {
		log.G(ctx).Debug("hw_server already running")
		return nil
	}

	bin, err := safeexec.LookPath("hw_server")
	if err != nil {
		return fmt.Errorf("hw_server not found in PATH, source Vivado's settings64.sh first: %w", err)
	}

	logDir := filepath.Join(b.cfg.Workdir, "external", "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}

	logFile, err := os.Create(filepath.Join(logDir, "hw_server.log"))
	if err != nil {
		return err
	}

	defer logFile.Close()

	log.G(ctx).WithField("log", logFile.Name()).Info("starting hw_server")

	_, port, err := net.SplitHostPort(b.hwAddr)
	if err != nil {
		return fmt.Errorf("invalid hw_server address %q: %w", b.hwAddr, err)
	}

	proc, err := exec.NewProcess(bin,
		[]string{"-s", "tcp::" + port},
		exec.WithDetach(true),
		exec.WithStdout(logFile),
		exec.WithStderr(logFile),
	)
	if err != nil {
		return err
	}

	if err := proc.Start(ctx); err != nil {
		return err
	}

	if err := proc.Release(); err != nil {
		return err
	}

	deadline := time.Now().Add(b.hwWait)
	for time.Now().Before(deadline) {
		if reachable(b.hwAddr) {
			log.G(ctx).Debug("hw_server ready")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.hwPoll):
		}
	}

	return fmt.Errorf("hw_server did not become ready on %s within %s", b.hwAddr, b.hwWait)
}

func reachable(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return false
	}

	conn.Close()
	return true
}
