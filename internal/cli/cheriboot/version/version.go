// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package version

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"cheriboot.sh/cmdfactory"
	"cheriboot.sh/internal/version"
)

type VersionOptions struct{}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&VersionOptions{}, cobra.Command{
		Short:   "Show cheriboot version information",
		Use:     "version",
		Aliases: []string{"v"},
		Args:    cobra.NoArgs,
		GroupID: "misc",
		Example: heredoc.Doc(`
			# Show cheriboot version information
			$ cheriboot version
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *VersionOptions) Run(_ context.Context, _ []string) error {
	fmt.Printf("cheriboot %s", version.String())
	return nil
}
