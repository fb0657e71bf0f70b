// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package stack models the declarative build catalog: named software targets,
// FPGA boards and upstream source repositories.  A target's kind determines
// which boot chain the pipeline package assembles for it.
package stack

import (
	"errors"
	"fmt"
)

// Kind enumerates the categories of software stack a target can represent.
type Kind string

const (
	// KindBaremetal is an OpenSBI firmware image carrying a baremetal
	// application as its payload.
	KindBaremetal Kind = "baremetal"

	// KindBaoBundle is an OpenSBI firmware image carrying the Bao hypervisor,
	// which in turn embeds a guest application.
	KindBaoBundle Kind = "bao_bundle"

	// KindCheriBSD is a full OS stack: U-Boot wrapped into OpenSBI plus a
	// CheriBSD kernel boot image.
	KindCheriBSD Kind = "cheribsd"
)

var ErrUnknownKind = errors.New("unknown software kind")

// Kinds returns all recognized target kinds.
func Kinds() []Kind {
	return []Kind{KindBaremetal, KindBaoBundle, KindCheriBSD}
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind validates a kind string from the catalog.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
