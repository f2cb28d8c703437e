// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package patch applies hand-curated corrections to a registry before
// synthesis and freezes it afterwards.
//
// Corrections come from two places: rules that hold for every registry
// (bitmask aliases are re-pointed at their flag-bit enums) and a YAML
// overrides file:
//
//	parents:
//	  VkSwapchainKHR: [VkDevice, VkSurfaceKHR]
//	nullable:
//	  - VkAllocationCallbacks
//	comments:
//	  VkInstance: Opaque handle to an instance object.
package patch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/albertocavalcante/cabind/internal/registry"
)

// Overrides is the content of an overrides file.
type Overrides struct {
	// Parents replaces the parent list of the named handles.
	Parents map[string][]string `yaml:"parents"`

	// Nullable lists structs that can be represented by an all-zero value.
	Nullable []string `yaml:"nullable"`

	// Comments fills in descriptions for declarations that have none.
	Comments map[string]string `yaml:"comments"`
}

// Report summarises what Apply changed.
type Report struct {
	// Bitmasks lists the aliases re-pointed at their flag-bit enum.
	Bitmasks []string

	Parents  int
	Nullable int
	Comments int

	// Unknown lists comment targets that name nothing in the registry.
	Unknown []string
}

// Load reads an overrides file.
func Load(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading overrides: %w", err)
	}
	ov, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ov, nil
}

// Parse decodes an overrides document. Unknown keys are rejected.
func Parse(data []byte) (*Overrides, error) {
	var ov Overrides
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ov); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing overrides: %w", err)
	}
	return &ov, nil
}

// validate checks that every override names an entity of the right kind.
func validate(reg *registry.Registry, ov *Overrides) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(ov.Parents)) {
		if _, ok := reg.Lookup(name).(*registry.Handle); !ok {
			errs = append(errs, fmt.Errorf("parents: %s is not a handle", name))
			continue
		}
		for _, p := range ov.Parents[name] {
			if _, ok := reg.Lookup(p).(*registry.Handle); !ok {
				errs = append(errs, fmt.Errorf("parents: %s: parent %s is not a handle", name, p))
			}
		}
	}
	for _, name := range ov.Nullable {
		if _, ok := reg.Lookup(name).(*registry.Struct); !ok {
			errs = append(errs, fmt.Errorf("nullable: %s is not a struct or union", name))
		}
	}
	return errors.Join(errs...)
}

// Apply corrects reg in place and freezes it. A nil ov applies only the
// built-in rules. Apply fails on a registry that is already frozen and on
// overrides that name entities of the wrong kind; either way reg is left
// untouched.
func Apply(reg *registry.Registry, ov *Overrides) (Report, error) {
	var rep Report
	if reg.Frozen() {
		return rep, registry.ErrFrozen
	}
	if ov == nil {
		ov = &Overrides{}
	}

	if err := validate(reg, ov); err != nil {
		return rep, err
	}

	rep.Bitmasks = rewriteBitmasks(reg)

	for _, name := range slices.Sorted(maps.Keys(ov.Parents)) {
		h := reg.Lookup(name).(*registry.Handle)
		h.Parents = slices.Clone(ov.Parents[name])
		rep.Parents++
	}

	for _, name := range ov.Nullable {
		reg.Lookup(name).(*registry.Struct).Nullable = true
		rep.Nullable++
	}

	for _, name := range slices.Sorted(maps.Keys(ov.Comments)) {
		text := strings.TrimSpace(ov.Comments[name])
		switch {
		case reg.Lookup(name) != nil:
			if d := reg.Lookup(name).Info(); d.Comment == "" {
				d.Comment = text
				rep.Comments++
			}
		case reg.Constant(name) != nil:
			if c := reg.Constant(name); c.Comment == "" {
				c.Comment = text
				rep.Comments++
			}
		default:
			rep.Unknown = append(rep.Unknown, name)
		}
	}

	reg.Freeze()
	return rep, nil
}

// rewriteBitmasks points every XFlags alias at its XFlagBits (or XBits)
// enum. The enum takes over the alias's original integer type as its
// backing type.
func rewriteBitmasks(reg *registry.Registry) []string {
	var rewritten []string
	for _, a := range registry.All[*registry.Alias](reg) {
		en := flagBits(reg, a.Name)
		if en == nil || a.Target == en.Name {
			continue
		}
		if en.Backing == "" {
			en.Backing = a.Target
			if prim, err := reg.ResolveAlias(a.Target); err == nil {
				en.Backing = prim.Info().Name
			}
		}
		en.Bitmask = true
		a.Target = en.Name
		rewritten = append(rewritten, a.Name)
	}
	return rewritten
}

// flagBits returns the enum holding the bits of the bitmask alias name.
// VkCullModeFlags maps to VkCullModeFlagBits, VkAccessFlags2 to
// VkAccessFlagBits2 and VkDebugReportFlagsEXT to VkDebugReportFlagBitsEXT.
func flagBits(reg *registry.Registry, name string) *registry.Enum {
	i := strings.LastIndex(name, "Flags")
	if i < 0 {
		return nil
	}
	head, tail := name[:i], name[i+len("Flags"):]
	for _, bits := range []string{"FlagBits", "Bits"} {
		if en, ok := reg.Lookup(head + bits + tail).(*registry.Enum); ok {
			return en
		}
	}
	return nil
}
