// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package flash

import (
	"context"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"cheriboot.sh/cmdfactory"
	"cheriboot.sh/config"
	"cheriboot.sh/fpga"
	"cheriboot.sh/internal/cli"
)

type FlashOptions struct {
	BoardName string `long:"board" short:"b" usage:"Name of the board configuration to flash"`
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&FlashOptions{}, cobra.Command{
		Short: "Flash the board with its built bitstream",
		Use:   "flash [FLAGS]",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`
			Flash the board with its built bitstream.

			The board's Vivado TCL script is run in batch mode against a
			hw_server; one is started in the background when none is
			listening.
		`),
		Example: heredoc.Doc(`
			# Flash the catalog's default board
			$ cheriboot fpga flash
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *FlashOptions) Run(ctx context.Context, _ []string) error {
	catalog, err := cli.Catalog(ctx)
	if err != nil {
		return err
	}

	board, err := catalog.Board(opts.BoardName)
	if err != nil {
		return err
	}

	return fpga.NewBuilder(config.G(ctx), 0).Flash(ctx, board.FlashScript)
}
