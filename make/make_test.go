// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package make_test

import (
	"strings"
	"testing"

	"cheriboot.sh/make"
)

func TestCmdlineSerialization(t *testing.T) {
	tests := []struct {
		name  string
		mopts []make.MakeOption
		want  []string
	}{
		{
			name: "directory and jobs",
			mopts: []make.MakeOption{
				make.WithDirectory("/src/opensbi"),
				make.WithJobs(8),
			},
			want: []string{"-C /src/opensbi", "-j 8"},
		},
		{
			name: "variable and target",
			mopts: []make.MakeOption{
				make.WithVar("PLATFORM", "fpga/cva6"),
				make.WithTarget("distclean"),
			},
			want: []string{"PLATFORM=fpga/cva6", "distclean"},
		},
		{
			name: "makefile flag",
			mopts: []make.MakeOption{
				make.WithFile("build.mk"),
			},
			want: []string{"-f build.mk"},
		},
		{
			name: "boolean flags",
			mopts: []make.MakeOption{
				make.WithAlwaysMake(true),
				make.WithKeepGoing(true),
			},
			want: []string{"-B", "-k"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, err := make.New(test.mopts...)
			if err != nil {
				t.Fatal("New:", err)
			}

			cmdline := m.Cmdline()
			if !strings.HasPrefix(cmdline, make.DefaultBinaryName) {
				t.Errorf("cmdline does not start with %q: %q", make.DefaultBinaryName, cmdline)
			}

			for _, want := range test.want {
				if !strings.Contains(cmdline, want) {
					t.Errorf("cmdline %q is missing %q", cmdline, want)
				}
			}
		})
	}
}

func TestTargetsFollowVariables(t *testing.T) {
	m, err := make.New(
		make.WithVar("FW_PAYLOAD_PATH", "/out/hello.elf"),
		make.WithTarget("all"),
		make.WithJobs(4),
	)
	if err != nil {
		t.Fatal("New:", err)
	}

	cmdline := m.Cmdline()

	// Targets always follow variable assignments.
	varIdx := strings.Index(cmdline, "FW_PAYLOAD_PATH=/out/hello.elf")
	targetIdx := strings.Index(cmdline, "all")

	if varIdx < 0 || targetIdx < 0 {
		t.Fatalf("cmdline %q is missing the variable or target", cmdline)
	}
	if targetIdx < varIdx {
		t.Errorf("target precedes variable assignment: %q", cmdline)
	}
}
