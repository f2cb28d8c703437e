// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package csharp is the default backend: it emits the C# binding surface
// through the synthesis engine.
package csharp

import (
	"context"

	"github.com/albertocavalcante/cabind/generator"
	"github.com/albertocavalcante/cabind/internal/codegen"
	"github.com/albertocavalcante/cabind/internal/registry"
)

// Generator implements [generator.Generator] for C# bindings.
type Generator struct{}

// NewGenerator creates a new C# generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Metadata returns information about this generator.
func (g *Generator) Metadata() generator.Metadata {
	return generator.Metadata{
		Name:           "csharp",
		Version:        "1.0.0",
		Description:    "Generate C# interop bindings from a C API registry",
		FileExtensions: []string{".cs"},
		Options: []generator.OptionInfo{
			{Key: "namespace", Default: "Vulkan", Usage: "C# namespace of the generated code"},
			{Key: "library", Default: "vulkan-1", Usage: "native library named in DllImport"},
			{Key: "inline", Default: "false", Usage: "use fixed buffers for scalar arrays"},
		},
	}
}

// options are the settings a run may override from the command line.
type options struct {
	Namespace string `option:"namespace"`
	Library   string `option:"library"`
	Inline    bool   `option:"inline"`
}

// Generate produces one C# file per output unit. Options override the
// engine settings.
func (g *Generator) Generate(ctx context.Context, reg *registry.Registry, cfg generator.Config) (*generator.Output, error) {
	engine := cfg.Engine(reg)
	opts := options{
		Namespace: engine.Namespace,
		Library:   engine.Library,
		Inline:    engine.InlineFixedBuffers,
	}
	if err := cfg.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	engine.Namespace = opts.Namespace
	engine.Library = opts.Library
	engine.InlineFixedBuffers = opts.Inline

	files, err := codegen.New(reg, engine).Generate(ctx)
	if err != nil {
		return nil, err
	}

	result := generator.NewOutput()
	for name, content := range files {
		result.Add(name, content)
	}
	return result, nil
}
