// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package exec

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

type ExecOptions struct {
	stderr    io.Writer
	stdout    io.Writer
	stdin     io.Reader
	env       []string
	dir       string
	callbacks []func(int)
	log       *logrus.Logger
	detach    bool
}

type ExecOption func(eo *ExecOptions) error

// NewExecOptions accepts a series of options and returns a rendered
// *ExecOptions structure
func NewExecOptions(eopts ...ExecOption) (*ExecOptions, error) {
	eo := &ExecOptions{}

	for _, o := range eopts {
		if err := o(eo); err != nil {
			return nil, fmt.Errorf("could not apply option: %v", err)
		}
	}

	return eo, nil
}

// WithEnvKey adds an additional environment by its key and value.  The
// variable is only visible to the spawned child, the parent process
// environment is never mutated.
func WithEnvKey(key, val string) ExecOption {
	return func(eo *ExecOptions) error {
		if eo.env == nil {
			eo.env = make([]string, 0)
		}

		eo.env = append(eo.env, fmt.Sprintf("%s=%s", key, val))

		return nil
	}
}

// WithEnv adds a whole overlay map of environment variables for the child
// process.
func WithEnv(env map[string]string) ExecOption {
	return func(eo *ExecOptions) error {
		for key, val := range env {
			eo.env = append(eo.env, fmt.Sprintf("%s=%s", key, val))
		}

		return nil
	}
}

// WithWorkingDir sets the working directory of the child process.
func WithWorkingDir(dir string) ExecOption {
	return func(eo *ExecOptions) error {
		eo.dir = dir
		return nil
	}
}

// WithOnExitCallback sets callback method where its only parameter is the exit
// code returned by the process.  This method can be called multiple times.
func WithOnExitCallback(callback func(int)) ExecOption {
	return func(eo *ExecOptions) error {
		if eo.callbacks == nil {
			eo.callbacks = make([]func(int), 0)
		}

		eo.callbacks = append(eo.callbacks, callback)

		return nil
	}
}

// WithStdout sets the primary stdout for the process
func WithStdout(stdout io.Writer) ExecOption {
	return func(eo *ExecOptions) error {
		eo.stdout = stdout
		return nil
	}
}

// WithStderr sets the primary stderr for the process
func WithStderr(stderr io.Writer) ExecOption {
	return func(eo *ExecOptions) error {
		eo.stderr = stderr
		return nil
	}
}

// WithStdin sets the primary stdin for the process
func WithStdin(stdin io.Reader) ExecOption {
	return func(eo *ExecOptions) error {
		eo.stdin = stdin
		return nil
	}
}

// WithLogger provides access to a logger to be used within the package
func WithLogger(l *logrus.Logger) ExecOption {
	return func(eo *ExecOptions) error {
		eo.log = l
		return nil
	}
}

// WithDetach runs the process in a new session so that it outlives the parent.
func WithDetach(detach bool) ExecOption {
	return func(eo *ExecOptions) error {
		eo.detach = detach
		return nil
	}
}
