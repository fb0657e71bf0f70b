// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package clone

import (
	"context"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"cheriboot.sh/cmdfactory"
	"cheriboot.sh/config"
	"cheriboot.sh/internal/cli"
	"cheriboot.sh/repo"
)

type CloneOptions struct{}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&CloneOptions{}, cobra.Command{
		Short:   "Clone or update all catalog repositories",
		Use:     "clone",
		Args:    cobra.NoArgs,
		GroupID: "sw",
		Long: heredoc.Doc(`
			Clone or update all catalog repositories.

			Checkouts land under external/ in the working directory.  Existing
			checkouts are fetched and re-pinned to their configured branch or
			commit; the command is safe to re-run at any time.
		`),
		Example: heredoc.Doc(`
			# Fetch all source repositories
			$ cheriboot clone
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *CloneOptions) Run(ctx context.Context, _ []string) error {
	catalog, err := cli.Catalog(ctx)
	if err != nil {
		return err
	}

	return repo.CloneOrUpdateAll(ctx, config.G(ctx).Workdir, catalog)
}
