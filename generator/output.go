// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package generator

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// MarkerFile is written by Commit into every output directory and lists
// the generated files, one per line.
const MarkerFile = ".cabind"

// ErrForeignFiles is returned by Commit when the output directory holds
// files that cabind did not generate.
var ErrForeignFiles = errors.New("output directory holds files not generated by cabind")

// Output contains generated files.
type Output struct {
	// Files maps a slash-separated relative path to content.
	Files map[string][]byte
}

// NewOutput creates a new Output.
func NewOutput() *Output {
	return &Output{Files: make(map[string][]byte)}
}

// Add adds a file to the output.
func (o *Output) Add(name string, content []byte) {
	o.Files[name] = content
}

// Single returns an Output with a single file.
func Single(name string, content []byte) *Output {
	return &Output{Files: map[string][]byte{name: content}}
}

// Names returns the file names, sorted.
func (o *Output) Names() []string {
	return slices.Sorted(maps.Keys(o.Files))
}

// Commit writes every file under dir. Files are first written to a staging
// directory next to dir, which then replaces dir. An existing dir is only
// replaced when it is empty or every file in it is listed in its
// MarkerFile. On error dir is left as it was.
func (o *Output) Commit(dir string) (err error) {
	dir = filepath.Clean(dir)
	if err := checkReplaceable(dir); err != nil {
		return err
	}
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating output parent: %w", err)
	}

	stage, err := os.MkdirTemp(parent, ".cabind-stage-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(stage)
		}
	}()
	if err := os.Chmod(stage, 0o755); err != nil {
		return fmt.Errorf("staging directory: %w", err)
	}

	for _, name := range o.Names() {
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return fmt.Errorf("output file %q escapes the output directory", name)
		}
		if name == MarkerFile {
			return fmt.Errorf("output file %q is reserved", name)
		}
		path := filepath.Join(stage, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", name, err)
		}
		if err := os.WriteFile(path, o.Files[name], 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	marker := strings.Join(o.Names(), "\n") + "\n"
	if err := os.WriteFile(filepath.Join(stage, MarkerFile), []byte(marker), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", MarkerFile, err)
	}

	var backup string
	if _, statErr := os.Stat(dir); statErr == nil {
		backup = stage + ".old"
		if err := os.Rename(dir, backup); err != nil {
			return fmt.Errorf("moving previous output aside: %w", err)
		}
	}
	if err := os.Rename(stage, dir); err != nil {
		if backup != "" {
			_ = os.Rename(backup, dir)
		}
		return fmt.Errorf("committing output: %w", err)
	}
	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			return fmt.Errorf("removing previous output: %w", err)
		}
	}
	return nil
}

// checkReplaceable fails when dir holds a file not listed in its marker.
// A missing or empty dir is always replaceable.
func checkReplaceable(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", dir)
	}

	owned := map[string]bool{MarkerFile: true}
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	switch {
	case err == nil:
		for _, name := range strings.Split(string(data), "\n") {
			if name != "" {
				owned[name] = true
			}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("reading %s: %w", MarkerFile, err)
	}

	var foreign []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel = filepath.ToSlash(rel); !owned[rel] {
			foreign = append(foreign, rel)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("checking output directory: %w", err)
	}
	if len(foreign) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrForeignFiles, dir, strings.Join(foreign, ", "))
	}
	return nil
}
