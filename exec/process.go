// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package exec

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

type Process struct {
	executable *Executable
	opts       *ExecOptions
	cmd        *exec.Cmd
}

// NewProcess prepares a process to be executed from a given binary name and
// optional execution options
func NewProcess(bin string, args []string, eopts ...ExecOption) (*Process, error) {
	executable, err := NewExecutable(bin, nil)
	if err != nil {
		return nil, err
	}

	executable.args = append(executable.args, args...)

	return NewProcessFromExecutable(executable, eopts...)
}

// NewProcessFromExecutable prepares a process to be executed from a given
// *Executable object and optional execution options
func NewProcessFromExecutable(executable *Executable, eopts ...ExecOption) (*Process, error) {
	if executable == nil {
		return nil, fmt.Errorf("cannot prepare process without executable")
	}

	opts, err := NewExecOptions(eopts...)
	if err != nil {
		return nil, err
	}

	e := &Process{
		executable: executable,
		opts:       opts,
	}

	return e, nil
}

// Cmdline returns the full command line to be executed
func (e *Process) Cmdline() string {
	return strings.Join(
		append(
			[]string{e.executable.bin},
			e.executable.Args()...,
		),
		" ",
	)
}

// Start the process
func (e *Process) Start(ctx context.Context) error {
	if e.opts.detach {
		// A detached process must not die with the parent's context.
		e.cmd = exec.Command(e.executable.bin, e.executable.Args()...)
		e.cmd.SysProcAttr = detachSysProcAttr()
	} else {
		e.cmd = exec.CommandContext(ctx, e.executable.bin, e.executable.Args()...)
	}

	if e.opts.stdout != nil {
		e.cmd.Stdout = e.opts.stdout
	}

	if e.opts.stderr != nil {
		e.cmd.Stderr = e.opts.stderr
	} else if e.opts.stdout != nil {
		e.cmd.Stderr = e.opts.stdout
	}

	if e.opts.stdin != nil {
		e.cmd.Stdin = e.opts.stdin
	}

	if len(e.opts.dir) > 0 {
		e.cmd.Dir = e.opts.dir
	}

	// Add any set environmental variables including the host's
	e.cmd.Env = append(os.Environ(), e.opts.env...)

	if e.opts.log != nil {
		e.opts.log.Debug(e.Cmdline())
	}

	return e.cmd.Start()
}

// Wait for the process to complete
func (e *Process) Wait() error {
	if e.cmd == nil {
		return fmt.Errorf("process has not yet started cannot wait")
	}

	err := e.cmd.Wait()
	if len(e.opts.callbacks) > 0 {
		for _, cb := range e.opts.callbacks {
			cb(e.cmd.ProcessState.ExitCode())
		}
	}

	return err
}

// StartAndWait starts the process and waits for it to exit
func (e *Process) StartAndWait(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}

	return e.Wait()
}

// Release detaches the started process from the parent so that it keeps
// running after the parent exits.
func (e *Process) Release() error {
	if e.cmd == nil || e.cmd.Process == nil {
		return fmt.Errorf("process has not yet started cannot release")
	}

	return e.cmd.Process.Release()
}

// Pid returns the process ID of the started process.
func (e *Process) Pid() (int, error) {
	if e.cmd == nil || e.cmd.Process == nil {
		return -1, fmt.Errorf("process has not yet started")
	}

	return e.cmd.Process.Pid, nil
}

// ExitCode returns the exit code of the exited process.
func (e *Process) ExitCode() int {
	if e.cmd == nil || e.cmd.ProcessState == nil {
		return -1
	}

	return e.cmd.ProcessState.ExitCode()
}

// Signal sends a signal to the running process.  If this fails, for example if
// the process is not running, this will return an error.
func (e *Process) Signal(signal syscall.Signal) error {
	return e.cmd.Process.Signal(signal)
}

// Kill sends a SIGKILL to the running process.  If this fails, for example if
// the process is not running, this will return an error.
func (e *Process) Kill() error {
	return e.Signal(syscall.SIGKILL)
}
