// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package boards

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"cheriboot.sh/cmdfactory"
	"cheriboot.sh/internal/cli"
)

type BoardsOptions struct{}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&BoardsOptions{}, cobra.Command{
		Short:   "List the board configurations of the catalog",
		Use:     "boards",
		Args:    cobra.NoArgs,
		GroupID: "misc",
		Example: heredoc.Doc(`
			# List all known board configurations
			$ cheriboot boards
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *BoardsOptions) Run(ctx context.Context, _ []string) error {
	catalog, err := cli.Catalog(ctx)
	if err != nil {
		return err
	}

	for _, board := range catalog.Boards() {
		marker := " "
		if board.Name == catalog.DefaultBoardName() {
			marker = "*"
		}

		fmt.Printf("%s %-24s %-32s %s\n", marker, board.Name, board.CoreTarget, board.Description)
	}

	return nil
}
