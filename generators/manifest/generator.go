// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package manifest reports, as YAML, what the synthesis engine decided for
// each entity: its output unit, whether it needs unsafe code and, for
// commands, the proxy plan.
package manifest

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/albertocavalcante/cabind/generator"
	"github.com/albertocavalcante/cabind/internal/codegen"
	"github.com/albertocavalcante/cabind/internal/registry"
)

// Manifest is the document written to manifest.yaml.
type Manifest struct {
	Namespace string `yaml:"namespace"`
	Library   string `yaml:"library"`
	Source    string `yaml:"source,omitempty"`
	Version   string `yaml:"version,omitempty"`

	// Units lists every file the C# backend would write.
	Units []string `yaml:"units"`

	Entities []Entry `yaml:"entities"`
}

// Entry describes one registry entity.
type Entry struct {
	Name      string `yaml:"name"`
	Category  string `yaml:"category"`
	Unit      string `yaml:"unit,omitempty"`
	Unsafe    bool   `yaml:"unsafe,omitempty"`
	Extension string `yaml:"extension,omitempty"`

	// Throws lists the exception classes a command's proxy documents.
	Throws []string `yaml:"throws,omitempty"`

	Proxy *codegen.CommandPlan `yaml:"proxy,omitempty"`
}

// Generator implements [generator.Generator] for the manifest.
type Generator struct{}

// NewGenerator creates a new manifest generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Metadata returns information about this generator.
func (g *Generator) Metadata() generator.Metadata {
	return generator.Metadata{
		Name:           "manifest",
		Version:        "1.0.0",
		Description:    "Describe the generated bindings as YAML",
		FileExtensions: []string{".yaml"},
		Options: []generator.OptionInfo{
			{Key: "file", Default: "manifest.yaml", Usage: "name of the manifest file"},
		},
	}
}

// Generate runs the engine and writes manifest.yaml (or the "file"
// option).
func (g *Generator) Generate(ctx context.Context, reg *registry.Registry, cfg generator.Config) (*generator.Output, error) {
	opts := struct {
		File string `option:"file"`
	}{File: "manifest.yaml"}
	if err := cfg.DecodeOptions(&opts); err != nil {
		return nil, err
	}

	m, err := Build(ctx, reg, cfg.Engine(reg))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}

	return generator.Single(opts.File, buf.Bytes()), nil
}

// Build synthesizes the bindings for reg and records the decisions taken.
// Primitives and aliases have no unit of their own and are left out.
func Build(ctx context.Context, reg *registry.Registry, cfg codegen.Config) (*Manifest, error) {
	s := codegen.New(reg, cfg)
	files, err := s.Generate(ctx)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Namespace: cfg.Namespace,
		Library:   cfg.Library,
		Source:    cfg.Source,
		Version:   cfg.Version,
	}
	for name := range files {
		m.Units = append(m.Units, name)
	}
	slices.Sort(m.Units)

	for _, e := range reg.Entities() {
		d := e.Info()
		if len(cfg.Types) > 0 && !slices.Contains(cfg.Types, d.Name) {
			continue
		}
		unit := s.UnitFor(e)
		if unit == "" {
			continue
		}

		entry := Entry{
			Name:      d.Name,
			Category:  e.Kind().String(),
			Unit:      unit,
			Unsafe:    s.IsUnsafe(d.Name),
			Extension: d.Extension,
		}
		if cmd, ok := e.(*registry.Command); ok {
			plan, err := s.Plan(cmd)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", cmd.Name, err)
			}
			entry.Proxy = plan
			entry.Throws = s.Exceptions(cmd)
		}
		m.Entities = append(m.Entities, entry)
	}
	return m, nil
}
