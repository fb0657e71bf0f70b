// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cheriboot.sh/log"
)

// Canonical output filenames.  Downstream consumers (flash scripts, boot
// documentation, later pipeline stages) address artifacts by these names, so
// they are fixed per role rather than inherited from the build tree, except
// where the build-tree basename is itself the contract (guest binaries and
// the CheriBSD kernel keep their names).
const (
	FirmwareBinName = "opensbi-fw.bin"
	FirmwareELFName = "opensbi-fw.elf"
	UBootBinName    = "u-boot.bin"
	UBootELFName    = "u-boot.elf"
	UImageName      = "CheriBSD"
)

// Materializer copies resolved artifacts into a target's output directory.
type Materializer struct {
	// OutDir is the destination directory.  It is created lazily on the
	// first placement, not at construction.
	OutDir string
}

func NewMaterializer(outDir string) *Materializer {
	return &Materializer{OutDir: outDir}
}

// Filename returns the destination basename for a role, given the source
// path the artifact was resolved at.
func (m *Materializer) Filename(role Role, src string) string {
	switch role {
	case FirmwareBin:
		return FirmwareBinName
	case FirmwareELF:
		return FirmwareELFName
	case UBootBin:
		return UBootBinName
	case UBootELF:
		return UBootELFName
	case UImage:
		return UImageName
	default:
		// elf, bin, kernel_elf, kernel_bin: the source basename is the
		// contract.
		return filepath.Base(src)
	}
}

// Place copies every artifact in set into the output directory and returns a
// new set whose paths point at the placed copies.  Existing destination files
// are overwritten unconditionally, including read-only leftovers from earlier
// runs which are made writable first.
func (m *Materializer) Place(ctx context.Context, set Set) (Set, error) {
	if len(set) == 0 {
		return Set{}, nil
	}

	if err := os.MkdirAll(m.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}

	placed := make(Set, len(set))

	for role, src := range set {
		dst := filepath.Join(m.OutDir, m.Filename(role, src))

		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("could not place %s artifact: %w", role, err)
		}

		log.G(ctx).
			WithField("role", string(role)).
			WithField("path", dst).
			Debug("placed artifact")

		placed[role] = dst
	}

	return placed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}

	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}

	// A read-only destination from a previous run would make the truncating
	// open fail, so restore write permission first.
	if dfi, err := os.Stat(dst); err == nil && dfi.Mode().Perm()&0o200 == 0 {
		if err := os.Chmod(dst, dfi.Mode().Perm()|0o200); err != nil {
			return err
		}
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm()|0o200)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
