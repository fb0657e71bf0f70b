// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package targets

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"cheriboot.sh/cmdfactory"
	"cheriboot.sh/internal/cli"
)

type TargetsOptions struct{}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&TargetsOptions{}, cobra.Command{
		Short:   "List the software targets of the catalog",
		Use:     "targets",
		Args:    cobra.NoArgs,
		GroupID: "misc",
		Example: heredoc.Doc(`
			# List all buildable software targets
			$ cheriboot targets
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *TargetsOptions) Run(ctx context.Context, _ []string) error {
	catalog, err := cli.Catalog(ctx)
	if err != nil {
		return err
	}

	for _, target := range catalog.Targets() {
		marker := " "
		if target.Name == catalog.DefaultTargetName() {
			marker = "*"
		}

		fmt.Printf("%s %-24s %s\n", marker, target.Name, target.Kind)
	}

	return nil
}
