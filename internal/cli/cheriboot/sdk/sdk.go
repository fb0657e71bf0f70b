// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package sdk

import (
	"context"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"cheriboot.sh/cmdfactory"
	"cheriboot.sh/config"
	"cheriboot.sh/pipeline"
)

type SdkOptions struct {
	Jobs   int    `long:"jobs" short:"j" usage:"Allow N jobs at once"`
	Target string `long:"target" short:"t" usage:"cheribuild SDK target to build"`
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&SdkOptions{}, cobra.Command{
		Short:   "Build the CHERI SDK with cheribuild",
		Use:     "sdk [FLAGS]",
		Args:    cobra.NoArgs,
		GroupID: "sw",
		Long: heredoc.Doc(`
			Build the CHERI SDK with cheribuild.

			The SDK (cross compiler plus purecap sysroot) is the long-running
			prerequisite of every cheribsd target.  cheribuild places it under
			~/cheri/output/sdk by default.
		`),
		Example: heredoc.Doc(`
			# Build the default riscv64-purecap SDK
			$ cheriboot sdk

			# Build with 32 jobs
			$ cheriboot sdk -j 32
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *SdkOptions) Run(ctx context.Context, _ []string) error {
	p, err := pipeline.NewPipeline(config.G(ctx), pipeline.WithJobs(opts.Jobs))
	if err != nil {
		return err
	}

	return p.BuildSDK(ctx, opts.Target)
}
