// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package toolchain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"cheriboot.sh/archive"
	"cheriboot.sh/log"
)

// FromArchive downloads a versioned toolchain tarball, extracts it under the
// install directory and re-scans for a valid root.  It is the terminal
// strategy of the default chain: there is no fallback behind it, so a fetch
// or extraction failure propagates as a hard error instead of a soft miss.
type FromArchive struct {
	// URL of the .tar.gz toolchain archive.
	URL string

	// InstallDir is where the archive is unpacked.
	InstallDir string

	// CacheDir holds the downloaded tarball.  A previously cached tarball is
	// reused without refetching.
	CacheDir string
}

func (s FromArchive) String() string {
	return s.URL
}

func (s FromArchive) Resolve(ctx context.Context) (string, bool, error) {
	tarball := filepath.Join(s.CacheDir, path.Base(s.URL))

	if _, err := os.Stat(tarball); err != nil {
		if err := s.fetch(ctx, tarball); err != nil {
			return "", false, err
		}
	} else {
		log.G(ctx).WithField("file", tarball).Debug("reusing cached toolchain archive")
	}

	if err := os.MkdirAll(s.InstallDir, 0o755); err != nil {
		return "", false, err
	}

	log.G(ctx).WithField("dir", s.InstallDir).Info("extracting toolchain archive")

	if err := archive.UntarGz(tarball, s.InstallDir); err != nil {
		return "", false, fmt.Errorf("could not extract %s: %w", tarball, err)
	}

	root, ok := scan(s.InstallDir)
	if !ok {
		return "", false, fmt.Errorf("archive %s did not contain a usable toolchain", s.URL)
	}

	return root, true, nil
}

func (s FromArchive) fetch(ctx context.Context, tarball string) error {
	log.G(ctx).WithField("url", s.URL).Info("downloading toolchain archive")

	if err := os.MkdirAll(s.CacheDir, 0o755); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not download toolchain: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("could not download toolchain: server returned %s", resp.Status)
	}

	// Download to a temporary name so an interrupted fetch is never mistaken
	// for a complete cached archive.
	tmp, err := os.CreateTemp(s.CacheDir, path.Base(s.URL)+".*")
	if err != nil {
		return err
	}

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("could not download toolchain: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), tarball); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	log.G(ctx).
		WithField("size", humanize.Bytes(uint64(written))).
		WithField("file", tarball).
		Info("downloaded toolchain archive")

	return nil
}
