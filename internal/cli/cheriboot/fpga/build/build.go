// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package build

import (
	"context"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"cheriboot.sh/cmdfactory"
	"cheriboot.sh/config"
	"cheriboot.sh/fpga"
	"cheriboot.sh/internal/cli"
)

type BuildOptions struct {
	BoardName string `long:"board" short:"b" usage:"Name of the board configuration to build"`
	Jobs      int    `long:"jobs" short:"j" usage:"Allow N jobs at once"`
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&BuildOptions{}, cobra.Command{
		Short: "Build the CVA6-CHERI bitstream for a board",
		Use:   "build [FLAGS]",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`
			Build the CVA6-CHERI bitstream for a board.

			A RISC-V toolchain is resolved first: $RISCV when valid, then the
			local install directory, then a download of the CORE-V GCC release.
		`),
		Example: heredoc.Doc(`
			# Build the bitstream for the catalog's default board
			$ cheriboot fpga build

			# Build for a specific board configuration
			$ cheriboot fpga build --board genesys2-purecap
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *BuildOptions) Run(ctx context.Context, _ []string) error {
	catalog, err := cli.Catalog(ctx)
	if err != nil {
		return err
	}

	board, err := catalog.Board(opts.BoardName)
	if err != nil {
		return err
	}

	_, err = fpga.NewBuilder(config.G(ctx), opts.Jobs).Build(ctx, board)
	return err
}
