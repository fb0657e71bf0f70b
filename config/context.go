// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"context"
)

// G is an alias for FromContext.
var G = FromContext

// contextKey is used to retrieve the config manager from the context.
type contextKey struct{}

// WithConfigManager returns a new context with the provided config manager.
func WithConfigManager(ctx context.Context, cfgm *ConfigManager) context.Context {
	return context.WithValue(ctx, contextKey{}, cfgm)
}

// FromContext returns the config in the context, or a default-valued config
// when none has been set.
func FromContext(ctx context.Context) *Config {
	cfgm, ok := ctx.Value(contextKey{}).(*ConfigManager)
	if !ok || cfgm == nil {
		c, _ := NewDefaultConfig()
		return c
	}

	return cfgm.Config
}
