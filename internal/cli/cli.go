// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package cli holds the pieces shared by every cheriboot subcommand.
package cli

import (
	"context"

	"cheriboot.sh/config"
	"cheriboot.sh/stack"
)

// Catalog loads the target/board/repository catalog configured in the
// context's config.
func Catalog(ctx context.Context) (*stack.Catalog, error) {
	return stack.NewCatalogFromFile(config.G(ctx).Catalog)
}
