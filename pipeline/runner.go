// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package pipeline

import (
	"context"
	"os"

	"cheriboot.sh/exec"
	"cheriboot.sh/make"
)

// Runner abstracts the two ways a build step invokes an external tool.  Steps
// never inspect tool output, only the returned error and the filesystem, so
// the whole pipeline can be exercised against a fake runner that fabricates
// artifacts.
type Runner interface {
	// Make runs a GNU make invocation against the build tree at dir.
	Make(ctx context.Context, dir string, env map[string]string, mopts ...make.MakeOption) error

	// Command runs an arbitrary tool in dir with an environment overlay
	// passed only to the child process.
	Command(ctx context.Context, dir string, env map[string]string, bin string, args ...string) error
}

// toolRunner is the production Runner, streaming tool output to the console.
type toolRunner struct{}

// NewRunner returns the default Runner backed by real process execution.
func NewRunner() Runner {
	return &toolRunner{}
}

func (r *toolRunner) Make(ctx context.Context, dir string, env map[string]string, mopts ...make.MakeOption) error {
	mopts = append(mopts,
		make.WithDirectory(dir),
		make.WithExecOptions(
			exec.WithEnv(env),
			exec.WithStdout(os.Stdout),
			exec.WithStderr(os.Stderr),
		),
	)

	m, err := make.New(mopts...)
	if err != nil {
		return err
	}

	return m.Execute(ctx)
}

func (r *toolRunner) Command(ctx context.Context, dir string, env map[string]string, bin string, args ...string) error {
	proc, err := exec.NewProcess(bin, args,
		exec.WithWorkingDir(dir),
		exec.WithEnv(env),
		exec.WithStdout(os.Stdout),
		exec.WithStderr(os.Stderr),
	)
	if err != nil {
		return err
	}

	return proc.StartAndWait(ctx)
}
