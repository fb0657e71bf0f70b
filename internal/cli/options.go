// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package cli

import (
	"os"

	"github.com/sirupsen/logrus"

	"cheriboot.sh/config"
	"cheriboot.sh/log"
)

// CliOptions carries the ambient state every command needs: the fed
// configuration and a logger built from it.  Both are placed into the command
// context at startup, never into globals.
type CliOptions struct {
	ConfigManager *config.ConfigManager
	Logger        *logrus.Logger
}

type CliOption func(*CliOptions) error

// WithDefaultConfigManager instantiates a configuration manager from the
// default config file location, creating the file on first run.
func WithDefaultConfigManager() CliOption {
	return func(copts *CliOptions) error {
		if copts.ConfigManager != nil {
			return nil
		}

		cfgm, err := config.NewConfigManager(
			config.WithDefaultConfigFile(),
		)
		if err != nil {
			return err
		}

		copts.ConfigManager = cfgm

		return nil
	}
}

// WithDefaultLogger sets up the built in logger based on the fed
// configuration.
func WithDefaultLogger() CliOption {
	return func(copts *CliOptions) error {
		if copts.Logger != nil {
			return nil
		}

		if copts.ConfigManager == nil {
			copts.Logger = log.L
			return nil
		}

		logger := logrus.New()
		cfg := copts.ConfigManager.Config

		switch log.LoggerTypeFromString(cfg.Log.Type) {
		case log.QUIET:
			formatter := new(logrus.TextFormatter)
			logger.Formatter = formatter

		case log.JSON:
			formatter := new(logrus.JSONFormatter)
			formatter.DisableTimestamp = true

			if cfg.Log.Timestamps {
				formatter.DisableTimestamp = false
			}

			logger.Formatter = formatter

		default:
			formatter := new(log.TextFormatter)
			formatter.FullTimestamp = true
			formatter.DisableTimestamp = true

			if cfg.Log.Timestamps {
				formatter.DisableTimestamp = false
			} else {
				formatter.TimestampFormat = ">"
			}

			logger.Formatter = formatter
		}

		level, ok := log.Levels()[cfg.Log.Level]
		if !ok {
			logger.Level = logrus.InfoLevel
		} else {
			logger.Level = level
		}

		logger.SetOutput(os.Stderr)

		copts.Logger = logger

		return nil
	}
}
