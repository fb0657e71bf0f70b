// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// UntarGz unarchives a tarball which has been gzip compressed
func UntarGz(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("could not open file: %v", err)
	}

	defer f.Close()

	gzipReader, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("could not open gzip reader: %v", err)
	}

	return Untar(gzipReader, dst)
}

// Untar unarchives a tarball read from src into the directory dst
func Untar(src io.Reader, dst string) error {
	tr := tar.NewReader(src)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		path := filepath.Join(dst, header.Name)
		info := header.FileInfo()

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, info.Mode()); err != nil {
				return fmt.Errorf("could not create directory: %v", err)
			}

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("could not create directory: %v", err)
			}

			if err := os.Symlink(header.Linkname, path); err != nil && !os.IsExist(err) {
				return fmt.Errorf("could not create symlink: %v", err)
			}

		case tar.TypeReg:
			// Create parent path if it does not exist
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("could not create directory: %v", err)
			}

			newFile, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode())
			if err != nil {
				return fmt.Errorf("could not create file: %v", err)
			}

			if _, err := io.Copy(newFile, tr); err != nil {
				newFile.Close()
				return fmt.Errorf("could not copy file: %v", err)
			}

			newFile.Close()
		}

		// Change access time and modification time if possible (error ignored)
		_ = os.Chtimes(path, header.AccessTime, header.ModTime)
	}

	return nil
}
