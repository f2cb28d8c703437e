// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package generator

import (
	"fmt"
	"maps"
	"slices"

	"github.com/mitchellh/mapstructure"

	"github.com/albertocavalcante/cabind/internal/codegen"
	"github.com/albertocavalcante/cabind/internal/registry"
)

// Config contains generator configuration.
type Config struct {
	// OutputDir is the output directory.
	OutputDir string

	// Types filters to specific entity names (empty = all).
	Types []string

	// ResolveDeps includes transitive dependencies when filtering.
	ResolveDeps bool

	// Synthesis carries the engine settings (namespace, library name,
	// result type and so on). The zero value means codegen.DefaultConfig.
	Synthesis *codegen.Config

	// Source is the registry source (for headers).
	Source string

	// Ref is the git ref used.
	Ref string

	// CommitHash is the git commit.
	CommitHash string

	// Version is the API version of the registry.
	Version string

	// Options contains target-specific options.
	Options map[string]string
}

// DecodeOptions decodes the target options into the struct pointed to by
// out, matching keys against `option` field tags. String values are
// converted to the field types, so "inline=true" fills a bool. Fields with
// no matching option keep their value.
func (c Config) DecodeOptions(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "option",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(c.Options); err != nil {
		return fmt.Errorf("decoding options: %w", err)
	}
	return nil
}

// Engine returns the synthesis settings with the run metadata and the
// type filter filled in. With ResolveDeps the filter is widened to
// everything the listed entities refer to in reg.
func (c Config) Engine(reg *registry.Registry) codegen.Config {
	cfg := codegen.DefaultConfig()
	if c.Synthesis != nil {
		cfg = *c.Synthesis
	}
	cfg.Types = c.Types
	if c.ResolveDeps && len(c.Types) > 0 {
		filter := make(map[string]bool, len(c.Types))
		for _, t := range c.Types {
			filter[t] = true
		}
		cfg.Types = slices.Sorted(maps.Keys(ResolveDeps(reg, filter)))
	}
	cfg.Source = c.Source
	cfg.Ref = c.Ref
	cfg.CommitHash = c.CommitHash
	cfg.Version = c.Version
	return cfg
}
