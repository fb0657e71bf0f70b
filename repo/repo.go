// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package repo manages the source checkouts the build pipelines consume.
// Checkouts live under <workdir>/external/<name> and cloning is idempotent:
// an existing checkout is fetched and re-pinned, never re-cloned.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"cheriboot.sh/log"
	"cheriboot.sh/stack"
)

// ExternalDirName is the directory below the workdir holding all checkouts.
const ExternalDirName = "external"

// ExternalDir returns the checkout parent directory for a workdir.
func ExternalDir(workdir string) string {
	return filepath.Join(workdir, ExternalDirName)
}

// Path returns the checkout location of a named repository.
func Path(workdir, name string) string {
	return filepath.Join(ExternalDir(workdir), name)
}

// Exists reports whether a named repository has been checked out.
func Exists(workdir, name string) bool {
	fi, err := os.Stat(Path(workdir, name))
	return err == nil && fi.IsDir()
}

// CloneOrUpdate ensures the named repository exists at its pinned revision.
// A fresh clone recurses into submodules; an existing checkout is fetched
// first so branch and commit pins resolve against the remote's current state.
func CloneOrUpdate(ctx context.Context, workdir, name string, rep stack.Repository) error {
	dest := Path(workdir, name)

	gitRepo, err := git.PlainOpen(dest)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		log.G(ctx).
			WithField("url", rep.URL).
			WithField("dest", dest).
			Info("cloning repository")

		gitRepo, err = git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
			URL:               rep.URL,
			RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
		})
		if err != nil {
			return fmt.Errorf("could not clone %s: %w", rep.URL, err)
		}
	} else if err != nil {
		return fmt.Errorf("could not open %s: %w", dest, err)
	} else {
		log.G(ctx).WithField("dest", dest).Info("updating repository")

		if err := fetch(ctx, gitRepo); err != nil {
			return err
		}
	}

	if err := checkout(gitRepo, rep); err != nil {
		return fmt.Errorf("could not pin %s: %w", name, err)
	}

	return updateSubmodules(gitRepo)
}

// CloneOrUpdateAll materializes every repository in the catalog in name
// order, failing on the first error.
func CloneOrUpdateAll(ctx context.Context, workdir string, catalog *stack.Catalog) error {
	repos := catalog.Repositories()

	names := make([]string, 0, len(repos))
	for name := range repos {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if err := CloneOrUpdate(ctx, workdir, name, repos[name]); err != nil {
			return err
		}
	}

	return nil
}

func fetch(ctx context.Context, gitRepo *git.Repository) error {
	err := gitRepo.FetchContext(ctx, &git.FetchOptions{Tags: git.AllTags})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("could not fetch: %w", err)
	}

	return nil
}

// checkout pins the worktree.  A commit pin wins over a branch pin since it
// is the stricter of the two.
func checkout(gitRepo *git.Repository, rep stack.Repository) error {
	if rep.Commit == "" && rep.Branch == "" {
		return nil
	}

	wt, err := gitRepo.Worktree()
	if err != nil {
		return err
	}

	copts := &git.CheckoutOptions{Force: true}

	if rep.Commit != "" {
		copts.Hash = plumbing.NewHash(rep.Commit)
	} else {
		copts.Branch = plumbing.NewBranchReferenceName(rep.Branch)

		if err := wt.Checkout(copts); err != nil {
			// The branch may only exist on the remote after a fresh fetch.
			copts.Branch = plumbing.NewRemoteReferenceName("origin", rep.Branch)
			return wt.Checkout(copts)
		}

		return nil
	}

	return wt.Checkout(copts)
}

func updateSubmodules(gitRepo *git.Repository) error {
	wt, err := gitRepo.Worktree()
	if err != nil {
		return err
	}

	subs, err := wt.Submodules()
	if err != nil {
		return err
	}

	if len(subs) == 0 {
		return nil
	}

	return subs.Update(&git.SubmoduleUpdateOptions{
		Init:              true,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
}
