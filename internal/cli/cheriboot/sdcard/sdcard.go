// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package sdcard

import (
	"context"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"cheriboot.sh/cmdfactory"
	"cheriboot.sh/config"
	"cheriboot.sh/internal/cli"
	"cheriboot.sh/sdcard"
)

type SdcardOptions struct {
	TargetName string `long:"target" short:"t" usage:"Name of the software target whose rootfs to write"`
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&SdcardOptions{}, cobra.Command{
		Short:   "Write a CheriBSD rootfs image to an SD card",
		Use:     "sdcard [FLAGS] DEVICE",
		Args:    cmdfactory.ExactArgs(1, "expected a block device argument"),
		GroupID: "hw",
		Long: heredoc.Doc(`
			Write a CheriBSD rootfs image to an SD card.

			Only cheribsd targets boot from SD; the device is erased without
			further confirmation.
		`),
		Example: heredoc.Doc(`
			# Write the default target's rootfs to /dev/sdb
			$ cheriboot sdcard /dev/sdb
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *SdcardOptions) Run(ctx context.Context, args []string) error {
	catalog, err := cli.Catalog(ctx)
	if err != nil {
		return err
	}

	target, err := catalog.Target(opts.TargetName)
	if err != nil {
		return err
	}

	return sdcard.Write(ctx, config.G(ctx), target, args[0])
}
