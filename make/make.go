// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package make

import (
	"context"

	"cheriboot.sh/exec"
)

const DefaultBinaryName = "make"

type Make struct {
	opts *MakeOptions
	proc *exec.Process
}

// New prepares a GNU Make invocation from the provided options.  Variables
// registered with WithVar are serialized as VAR=value arguments, followed by
// the requested targets.
func New(mopts ...MakeOption) (*Make, error) {
	var err error
	make := &Make{}

	make.opts, err = NewMakeOptions(mopts...)
	if err != nil {
		return nil, err
	}

	if len(make.opts.bin) == 0 {
		make.opts.bin = DefaultBinaryName
	}

	mainExec, err := exec.NewExecutable(make.opts.bin, *make.opts, make.opts.Vars()...)
	if err != nil {
		return nil, err
	}

	proc, err := exec.NewProcessFromExecutable(mainExec, make.opts.eopts...)
	if err != nil {
		return nil, err
	}

	make.proc = proc

	return make, nil
}

// Cmdline returns the full command line of the prepared invocation.
func (m *Make) Cmdline() string {
	return m.proc.Cmdline()
}

// Execute starts and waits on the prepared make invocation
func (m *Make) Execute(ctx context.Context) error {
	return m.proc.StartAndWait(ctx)
}
