// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The cheriboot authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package stack

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownTarget = errors.New("unknown software target")
	ErrUnknownBoard  = errors.New("unknown board configuration")
	ErrUnknownRepo   = errors.New("unknown repository")
)

// Repository is one upstream source checkout referenced by targets and
// boards.
type Repository struct {
	URL    string `yaml:"url"`
	Branch string `yaml:"branch,omitempty"`
	Commit string `yaml:"commit,omitempty"`
}

// Catalog is the immutable set of targets, boards and repositories loaded
// from one declarative YAML file.  It is constructed once at startup and
// passed into components; nothing mutates it afterwards.
type Catalog struct {
	repos         map[string]Repository
	targets       map[string]*Target
	boards        map[string]*Board
	defaultTarget string
	defaultBoard  string
}

type catalogFile struct {
	Repositories  map[string]Repository `yaml:"repositories"`
	DefaultTarget string                `yaml:"default_target"`
	Targets       map[string]struct {
		Kind   string                 `yaml:"kind"`
		Params map[string]interface{} `yaml:",inline"`
	} `yaml:"targets"`
	DefaultBoard string            `yaml:"default_board"`
	Boards       map[string]*Board `yaml:"boards"`
}

// NewCatalogFromFile loads and validates the catalog.  Every target's
// parameter map is decoded into its kind's typed spec here, so configuration
// mistakes surface at startup rather than inside a build step.
func NewCatalogFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read catalog: %w", err)
	}

	return NewCatalogFromBytes(data)
}

// NewCatalogFromBytes parses a catalog from raw YAML.
func NewCatalogFromBytes(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("could not parse catalog: %w", err)
	}

	c := &Catalog{
		repos:         file.Repositories,
		targets:       make(map[string]*Target, len(file.Targets)),
		boards:        make(map[string]*Board, len(file.Boards)),
		defaultTarget: file.DefaultTarget,
		defaultBoard:  file.DefaultBoard,
	}

	if c.repos == nil {
		c.repos = map[string]Repository{}
	}

	for name, entry := range file.Targets {
		kind, err := ParseKind(entry.Kind)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", name, err)
		}

		target, err := newTarget(name, kind, entry.Params)
		if err != nil {
			return nil, err
		}

		c.targets[name] = target
	}

	for name, board := range file.Boards {
		board.Name = name
		board.applyDefaults()
		c.boards[name] = board
	}

	if len(c.defaultTarget) > 0 {
		if _, ok := c.targets[c.defaultTarget]; !ok {
			return nil, fmt.Errorf("default target: %w: %q", ErrUnknownTarget, c.defaultTarget)
		}
	}

	if len(c.defaultBoard) > 0 {
		if _, ok := c.boards[c.defaultBoard]; !ok {
			return nil, fmt.Errorf("default board: %w: %q", ErrUnknownBoard, c.defaultBoard)
		}
	}

	return c, nil
}

// Target looks up a target by name, falling back to the configured default
// when name is empty.
func (c *Catalog) Target(name string) (*Target, error) {
	if len(name) == 0 {
		name = c.defaultTarget
	}

	if len(name) == 0 {
		return nil, fmt.Errorf("%w: no target given and no default configured", ErrUnknownTarget)
	}

	target, ok := c.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}

	return target, nil
}

// Board looks up a board by name, falling back to the configured default when
// name is empty.
func (c *Catalog) Board(name string) (*Board, error) {
	if len(name) == 0 {
		name = c.defaultBoard
	}

	if len(name) == 0 {
		return nil, fmt.Errorf("%w: no board given and no default configured", ErrUnknownBoard)
	}

	board, ok := c.boards[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, name)
	}

	return board, nil
}

// Repository looks up one upstream repository by its catalog name.
func (c *Catalog) Repository(name string) (Repository, error) {
	repo, ok := c.repos[name]
	if !ok {
		return Repository{}, fmt.Errorf("%w: %q", ErrUnknownRepo, name)
	}

	return repo, nil
}

// Repositories returns all catalog repositories keyed by name.
func (c *Catalog) Repositories() map[string]Repository {
	return c.repos
}

// Targets returns all targets sorted by name.
func (c *Catalog) Targets() []*Target {
	targets := make([]*Target, 0, len(c.targets))
	for _, t := range c.targets {
		targets = append(targets, t)
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Name < targets[j].Name
	})

	return targets
}

// Boards returns all boards sorted by name.
func (c *Catalog) Boards() []*Board {
	boards := make([]*Board, 0, len(c.boards))
	for _, b := range c.boards {
		boards = append(boards, b)
	}

	sort.Slice(boards, func(i, j int) bool {
		return boards[i].Name < boards[j].Name
	})

	return boards
}

// DefaultTargetName returns the configured default target name, if any.
func (c *Catalog) DefaultTargetName() string {
	return c.defaultTarget
}

// DefaultBoardName returns the configured default board name, if any.
func (c *Catalog) DefaultBoardName() string {
	return c.defaultBoard
}
