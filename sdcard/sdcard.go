// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package sdcard writes CheriBSD rootfs images to removable block devices.
// Only cheribsd targets carry a rootfs; every other kind boots its whole
// stack from the firmware image and has nothing to write here.
package sdcard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cli/safeexec"

	"cheriboot.sh/config"
	"cheriboot.sh/exec"
	"cheriboot.sh/log"
	"cheriboot.sh/sdk"
	"cheriboot.sh/stack"
)

// ErrWrongKind indicates the selected target does not boot from an SD card.
var ErrWrongKind = errors.New("target does not use an SD card")

// ErrNoRootfs indicates the rootfs image has not been built yet.
var ErrNoRootfs = errors.New("rootfs image not found")

// Write copies the target's rootfs image onto the device with dd.  The
// device is erased without further confirmation; callers gate this behind
// their own prompt or flag.
func Write(ctx context.Context, cfg *config.Config, target *stack.Target, device string) error {
	if target.Kind != stack.KindCheriBSD {
		return fmt.Errorf(
			"%w: %s is of kind %s, only cheribsd targets write a rootfs to SD",
			ErrWrongKind, target.Name, target.Kind,
		)
	}

	spec := target.CheriBSD

	sdkRoot, err := sdk.Resolve(ctx, sdk.DefaultStrategies("", spec.SDKRoot, cfg.SDK.Root)...)
	if err != nil {
		return err
	}

	rootfs := filepath.Join(sdk.OutputDir(sdkRoot), spec.RootfsImage)
	if _, err := os.Stat(rootfs); err != nil {
		return fmt.Errorf(
			"%w: %s (run 'cheriboot build --target %s' first)",
			ErrNoRootfs, rootfs, target.Name,
		)
	}

	dd, err := safeexec.LookPath("dd")
	if err != nil {
		return err
	}

	log.G(ctx).
		WithField("image", rootfs).
		WithField("device", device).
		Warn("writing rootfs image, the device will be erased")

	proc, err := exec.NewProcess(dd,
		[]string{
			"if=" + rootfs,
			"of=" + device,
			"bs=4M",
			"status=progress",
			"conv=fsync",
		},
		exec.WithStdout(os.Stdout),
		exec.WithStderr(os.Stderr),
	)
	if err != nil {
		return err
	}

	if err := proc.StartAndWait(ctx); err != nil {
		return err
	}

	log.G(ctx).Info("SD card prepared")

	return nil
}
