// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package repo_test

import (
	"os"
	"path/filepath"
	"testing"

	"cheriboot.sh/repo"
)

func TestPathLayout(t *testing.T) {
	if got := repo.ExternalDir("/work"); got != filepath.Join("/work", "external") {
		t.Errorf("unexpected external dir %q", got)
	}
	if got := repo.Path("/work", "opensbi"); got != filepath.Join("/work", "external", "opensbi") {
		t.Errorf("unexpected checkout path %q", got)
	}
}

func TestExists(t *testing.T) {
	workdir := t.TempDir()

	if repo.Exists(workdir, "opensbi") {
		t.Error("checkout reported before it exists")
	}

	if err := os.MkdirAll(repo.Path(workdir, "opensbi"), 0o755); err != nil {
		t.Fatal(err)
	}

	if !repo.Exists(workdir, "opensbi") {
		t.Error("checkout not reported after creation")
	}

	// A plain file at the checkout path does not count.
	if err := os.WriteFile(repo.Path(workdir, "uboot"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if repo.Exists(workdir, "uboot") {
		t.Error("plain file reported as checkout")
	}
}
