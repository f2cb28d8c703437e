// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package codegen

import (
	"strings"

	"github.com/albertocavalcante/cabind/internal/registry"
)

// opaque is the rendering of foreign types and function pointers.
const opaque = "IntPtr"

var defaultPrimitives = map[string]string{
	"void":     "void",
	"char":     "byte",
	"float":    "float",
	"double":   "double",
	"int":      "int",
	"int8_t":   "sbyte",
	"uint8_t":  "byte",
	"int16_t":  "short",
	"uint16_t": "ushort",
	"int32_t":  "int",
	"uint32_t": "uint",
	"int64_t":  "long",
	"uint64_t": "ulong",
	"size_t":   "nuint",
}

// fixedElements are the element types C# accepts in a fixed size buffer.
var fixedElements = map[string]bool{
	"bool": true, "byte": true, "short": true, "int": true, "long": true, "char": true,
	"sbyte": true, "ushort": true, "uint": true, "ulong": true, "float": true, "double": true,
}

func stars(n int) string {
	return strings.Repeat("*", max(n, 0))
}

// RenderType returns the C# type of m with reduce pointer levels removed.
// Aliases are followed; unknown names and platform scalars render as
// IntPtr, which stands in for one level of indirection. Function pointer
// typedefs render as IntPtr plus the member's own levels.
func (s *Session) RenderType(m *registry.Member, reduce int) string {
	levels := max(m.Pointers-reduce, 0)
	e, err := s.reg.ResolveAlias(m.Type)
	if err != nil {
		return opaque + stars(levels-1)
	}
	switch e := e.(type) {
	case *registry.FuncPointer:
		return opaque + stars(levels)
	case *registry.Primitive:
		cs, ok := s.prims[e.Name]
		if !ok {
			return opaque + stars(levels-1)
		}
		return cs + stars(levels)
	default:
		return e.Info().Name + stars(levels)
	}
}

// resolve follows aliases and returns nil for foreign types.
func (s *Session) resolve(name string) registry.Entity {
	e, err := s.reg.ResolveAlias(name)
	if err != nil {
		return nil
	}
	return e
}

// IsUnsafe reports whether the entity called name needs a pointer-aware
// context: a struct with a fixed buffer, a pointer member or a member of an
// unsafe type; a function pointer or command under the same rule for its
// return value and arguments. Pointer members end the recursion, so self
// referential structs terminate.
func (s *Session) IsUnsafe(name string) bool {
	return s.isUnsafe(name, map[string]bool{})
}

func (s *Session) isUnsafe(name string, visiting map[string]bool) bool {
	e := s.resolve(name)
	if e == nil {
		return false
	}
	name = e.Info().Name

	s.unsafeMu.Lock()
	v, ok := s.unsafe[name]
	s.unsafeMu.Unlock()
	if ok {
		return v
	}
	if visiting[name] {
		return false
	}
	visiting[name] = true
	defer delete(visiting, name)

	var result bool
	switch e := e.(type) {
	case *registry.Struct:
		result = s.anyUnsafe(e.Members, visiting)
	case *registry.FuncPointer:
		result = s.signatureUnsafe(&e.Signature, visiting)
	case *registry.Command:
		result = s.signatureUnsafe(&e.Signature, visiting)
	default:
		// Primitives, enums and handles are plain values.
		return false
	}

	s.unsafeMu.Lock()
	s.unsafe[name] = result
	s.unsafeMu.Unlock()
	return result
}

func (s *Session) signatureUnsafe(sig *registry.Signature, visiting map[string]bool) bool {
	if sig.Return != nil && s.memberUnsafe(sig.Return, visiting) {
		return true
	}
	return s.anyUnsafe(sig.Args, visiting)
}

func (s *Session) anyUnsafe(members []*registry.Member, visiting map[string]bool) bool {
	for _, m := range members {
		if s.memberUnsafe(m, visiting) {
			return true
		}
	}
	return false
}

func (s *Session) memberUnsafe(m *registry.Member, visiting map[string]bool) bool {
	if m.FixedSize != "" || m.Pointers > 0 {
		return true
	}
	return s.isUnsafe(m.Type, visiting)
}
