// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
)

// EnvFeeder feeds using environment variables named by each attribute's `env`
// tag.
type EnvFeeder struct{}

func (f EnvFeeder) Feed(structure interface{}) error {
	v := reflect.ValueOf(structure)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("cannot feed environment into non-pointer structure")
	}

	return feedEnvValue(v.Elem())
}

func feedEnvValue(v reflect.Value) error {
	if v.Kind() != reflect.Struct {
		return nil
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := v.Type().Field(i).Tag.Get("env")

		if field.Kind() == reflect.Struct {
			if err := feedEnvValue(field); err != nil {
				return err
			}
			continue
		}

		if len(tag) == 0 {
			continue
		}

		val, ok := os.LookupEnv(tag)
		if !ok || len(val) == 0 {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(val)

		case reflect.Int:
			i, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fmt.Errorf("could not parse %s: %v", tag, err)
			}
			field.SetInt(i)

		case reflect.Bool:
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("could not parse %s: %v", tag, err)
			}
			field.SetBool(b)
		}
	}

	return nil
}
