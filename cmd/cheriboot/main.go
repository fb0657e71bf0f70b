// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package main

import (
	"os"

	"cheriboot.sh/internal/cli/cheriboot"
)

func main() {
	os.Exit(cheriboot.Main(os.Args[1:]))
}
