// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package fpga

import (
	"context"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"cheriboot.sh/cmdfactory"

	"cheriboot.sh/internal/cli/cheriboot/fpga/build"
	"cheriboot.sh/internal/cli/cheriboot/fpga/flash"
)

type FpgaOptions struct{}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&FpgaOptions{}, cobra.Command{
		Short:   "Build and flash CVA6-CHERI FPGA bitstreams",
		Use:     "fpga SUBCOMMAND",
		GroupID: "hw",
		Long: heredoc.Doc(`
			Build and flash CVA6-CHERI FPGA bitstreams.
		`),
	})
	if err != nil {
		panic(err)
	}

	cmd.AddCommand(build.NewCmd())
	cmd.AddCommand(flash.NewCmd())

	return cmd
}

func (opts *FpgaOptions) Run(_ context.Context, _ []string) error {
	return pflag.ErrHelp
}
