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
	"cheriboot.sh/internal/cli"
	"cheriboot.sh/log"
	"cheriboot.sh/pipeline"
)

type BuildOptions struct {
	EntryAddr  string `long:"entry-addr" usage:"Override the uImage entry address"`
	Gzip       bool   `long:"gzip" usage:"Compress the kernel before wrapping it into a uImage"`
	Jobs       int    `long:"jobs" short:"j" usage:"Allow N jobs at once"`
	LoadAddr   string `long:"load-addr" usage:"Override the uImage load address"`
	TargetName string `long:"target" short:"t" usage:"Name of the software target to build"`
	UseBin     bool   `long:"use-bin" usage:"Wrap the raw kernel binary instead of the ELF"`
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&BuildOptions{}, cobra.Command{
		Short:   "Build a software target and collect its boot artifacts",
		Use:     "build [FLAGS]",
		Args:    cobra.NoArgs,
		GroupID: "sw",
		Long: heredoc.Doc(`
			Build a software target and collect its boot artifacts.

			The target's kind decides the step sequence: a baremetal target
			chains the application into an OpenSBI firmware image, a bao_bundle
			target inserts the Bao hypervisor in between, and a cheribsd target
			builds the full U-Boot + OpenSBI + CheriBSD boot chain.  All
			artifacts end up under output/<target>/ in the working directory.
		`),
		Example: heredoc.Doc(`
			# Build the catalog's default target
			$ cheriboot build

			# Build a CheriBSD stack with 16 jobs and a gzipped kernel uImage
			$ cheriboot build --target cheribsd-purecap -j 16 --gzip
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

	target, err := catalog.Target(opts.TargetName)
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(config.G(ctx),
		pipeline.WithJobs(opts.Jobs),
		pipeline.WithLoadAddr(opts.LoadAddr),
		pipeline.WithEntryAddr(opts.EntryAddr),
		pipeline.WithGzip(opts.Gzip),
		pipeline.WithUseBin(opts.UseBin),
	)
	if err != nil {
		return err
	}

	result, err := p.Build(ctx, target)
	if err != nil {
		return err
	}

	for _, placed := range result.Placed {
		log.G(ctx).WithField("path", placed).Info("artifact")
	}

	return nil
}
