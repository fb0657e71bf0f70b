// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package cheriboot

import (
	"context"
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/rancher/wrangler/pkg/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"cheriboot.sh/cmdfactory"
	"cheriboot.sh/config"
	"cheriboot.sh/internal/cli"
	"cheriboot.sh/log"

	"cheriboot.sh/internal/cli/cheriboot/boards"
	"cheriboot.sh/internal/cli/cheriboot/build"
	"cheriboot.sh/internal/cli/cheriboot/clone"
	"cheriboot.sh/internal/cli/cheriboot/fpga"
	"cheriboot.sh/internal/cli/cheriboot/sdcard"
	"cheriboot.sh/internal/cli/cheriboot/sdk"
	"cheriboot.sh/internal/cli/cheriboot/targets"
	"cheriboot.sh/internal/cli/cheriboot/version"

	bootversion "cheriboot.sh/internal/version"
)

type CheribootOptions struct{}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&CheribootOptions{}, cobra.Command{
		Short: "Build and boot CHERI RISC-V firmware and OS stacks on CVA6 FPGAs",
		Use:   "cheriboot [FLAGS] SUBCOMMAND",
		Long: heredoc.Docf(`
			Build and boot CHERI RISC-V firmware and OS stacks on CVA6 FPGAs.

			Version: %s`, bootversion.Version()),
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	})
	if err != nil {
		panic(err)
	}

	cmd.AddGroup(&cobra.Group{ID: "sw", Title: "SOFTWARE COMMANDS"})
	cmd.AddCommand(build.NewCmd())
	cmd.AddCommand(clone.NewCmd())
	cmd.AddCommand(sdk.NewCmd())

	cmd.AddGroup(&cobra.Group{ID: "hw", Title: "HARDWARE COMMANDS"})
	cmd.AddCommand(fpga.NewCmd())
	cmd.AddCommand(sdcard.NewCmd())

	cmd.AddGroup(&cobra.Group{ID: "misc", Title: "MISCELLANEOUS COMMANDS"})
	cmd.AddCommand(targets.NewCmd())
	cmd.AddCommand(boards.NewCmd())
	cmd.AddCommand(version.NewCmd())

	return cmd
}

func (k *CheribootOptions) Run(_ context.Context, args []string) error {
	return pflag.ErrHelp
}

func Main(args []string) int {
	cmd := NewCmd()
	cmd.SetArgs(args)

	ctx := signals.SetupSignalContext()
	copts := &cli.CliOptions{}

	for _, o := range []cli.CliOption{
		cli.WithDefaultConfigManager(),
		cli.WithDefaultLogger(),
	} {
		if err := o(copts); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}

	if copts.ConfigManager != nil {
		ctx = config.WithConfigManager(ctx, copts.ConfigManager)

		// Tool-level settings double as global flags.
		if err := cmdfactory.AttributeFlags(cmd, copts.ConfigManager.Config); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}

	if copts.Logger != nil {
		ctx = log.WithLogger(ctx, copts.Logger)
	}

	log.G(ctx).Debugf("cheriboot %s", bootversion.Version())

	return cmdfactory.Main(ctx, cmd)
}
