// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package fpga builds and flashes CVA6-CHERI bitstreams for the supported
// boards.  Building drives the hardware repository's makefile with a resolved
// RISC-V toolchain; flashing hands a Vivado TCL script to a running
// hw_server.
package fpga

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cheriboot.sh/artifact"
	"cheriboot.sh/config"
	"cheriboot.sh/exec"
	"cheriboot.sh/log"
	"cheriboot.sh/make"
	"cheriboot.sh/repo"
	"cheriboot.sh/stack"
	"cheriboot.sh/toolchain"
)

// RepoCVA6 is the checkout name of the CVA6-CHERI hardware design.
const RepoCVA6 = "cheri-cva6"

// CrossCompilePrefix is the CROSSCOMPILE= prefix the hardware makefile
// expects, matching the CORE-V toolchain's binary names.
const CrossCompilePrefix = "riscv32-corev-elf-"

// ErrMissingCheckout indicates the hardware repository has not been cloned.
var ErrMissingCheckout = errors.New("hardware checkout not found")

// Builder runs bitstream builds for one board configuration.
type Builder struct {
	cfg    *config.Config
	jobs   int
	hwAddr string
	hwWait time.Duration
	hwPoll time.Duration
}

// BuilderOption adjusts how the builder reaches the hardware server.
type BuilderOption func(*Builder)

// WithHWServerAddr overrides the address the hardware server is expected to
// listen on.
func WithHWServerAddr(addr string) BuilderOption {
	return func(b *Builder) {
		if addr != "" {
			b.hwAddr = addr
		}
	}
}

// WithHWServerTimeout bounds the wait for a freshly spawned hw_server to
// accept connections.
func WithHWServerTimeout(wait, poll time.Duration) BuilderOption {
	return func(b *Builder) {
		if wait > 0 {
			b.hwWait = wait
		}
		if poll > 0 {
			b.hwPoll = poll
		}
	}
}

// NewBuilder configures a bitstream builder; jobs falls back to the
// configured default when zero.
func NewBuilder(cfg *config.Config, jobs int, bopts ...BuilderOption) *Builder {
	if jobs <= 0 {
		jobs = cfg.Jobs
	}

	b := &Builder{
		cfg:    cfg,
		jobs:   jobs,
		hwAddr: HWServerAddr,
		hwWait: hwServerTimeout,
		hwPoll: hwServerPollInterval,
	}

	for _, opt := range bopts {
		opt(b)
	}

	return b
}

func (b *Builder) checkout() (string, error) {
	dir := repo.Path(b.cfg.Workdir, RepoCVA6)
	if !repo.Exists(b.cfg.Workdir, RepoCVA6) {
		return "", fmt.Errorf("%w: %s (run 'cheriboot clone' first)", ErrMissingCheckout, dir)
	}

	return dir, nil
}

// Build produces the bitstream for a board.  The toolchain root is resolved
// first, downloading one if necessary, and handed to the hardware makefile
// through an environment overlay visible only to the child process.
func (b *Builder) Build(ctx context.Context, board *stack.Board) (string, error) {
	dir, err := b.checkout()
	if err != nil {
		return "", err
	}

	riscv, err := toolchain.Resolve(ctx, toolchain.DefaultStrategies(b.cfg)...)
	if err != nil {
		return "", err
	}

	log.G(ctx).
		WithField("board", board.BoardName).
		WithField("core", board.CoreTarget).
		WithField("toolchain", riscv).
		Info("building FPGA bitstream")

	env := map[string]string{
		toolchain.EnvVar: riscv,
		"CROSSCOMPILE":   CrossCompilePrefix,
	}

	m, err := make.New(
		make.WithDirectory(dir),
		make.WithVar("BOARD", board.BoardName),
		make.WithVar("target", board.CoreTarget),
		make.WithTarget(board.MakeTarget),
		make.WithJobs(b.jobs),
		make.WithExecOptions(
			exec.WithEnv(env),
			exec.WithStdout(os.Stdout),
			exec.WithStderr(os.Stderr),
		),
	)
	if err != nil {
		return "", err
	}

	if err := m.Execute(ctx); err != nil {
		return "", err
	}

	bitfile, err := artifact.Resolve(filepath.Join(dir, board.Bitfile))
	if err != nil {
		return "", err
	}

	log.G(ctx).WithField("bitfile", bitfile).Info("bitstream built")

	return bitfile, nil
}
