// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package generator defines the interface for binding backends and the
// plumbing they share: run configuration, output staging and the backend
// registry.
package generator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/albertocavalcante/cabind/internal/registry"
)

// Generator is implemented by every backend.
type Generator interface {
	// Metadata returns information about this generator.
	Metadata() Metadata

	// Generate produces output files from a frozen registry.
	Generate(ctx context.Context, reg *registry.Registry, cfg Config) (*Output, error)
}

// Metadata describes a generator.
type Metadata struct {
	// Name is the identifier passed to --generator.
	Name string

	Version     string
	Description string

	// FileExtensions lists the extensions of the files it writes.
	FileExtensions []string

	// Options lists the keys accepted through --option.
	Options []OptionInfo
}

// OptionInfo documents one backend option.
type OptionInfo struct {
	Key     string
	Default string
	Usage   string
}

// CheckOptions rejects keys the backend does not declare.
func (m Metadata) CheckOptions(opts map[string]string) error {
	var unknown []string
	for k := range opts {
		if !slices.ContainsFunc(m.Options, func(o OptionInfo) bool { return o.Key == k }) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)

	known := make([]string, len(m.Options))
	for i, o := range m.Options {
		known[i] = o.Key
	}
	if len(known) == 0 {
		return fmt.Errorf("generator %s takes no options, got %s", m.Name, strings.Join(unknown, ", "))
	}
	return fmt.Errorf("generator %s: unknown option %s (known: %s)", m.Name, strings.Join(unknown, ", "), strings.Join(known, ", "))
}
