// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package registry holds the parsed declarations of a foreign C ABI:
// types, commands, constants and extensions, keyed by name.
//
// Entities are created while reading the registry document, may be
// corrected once by the override step, and are read-only afterwards.
package registry

import (
	"fmt"
	"slices"
)

// Kind identifies the variant of an [Entity].
type Kind int

const (
	KindPrimitive Kind = iota
	KindAlias
	KindEnum
	KindStruct
	KindHandle
	KindFuncPointer
	KindCommand
)

var kindNames = [...]string{
	KindPrimitive:   "primitive",
	KindAlias:       "alias",
	KindEnum:        "enum",
	KindStruct:      "struct",
	KindHandle:      "handle",
	KindFuncPointer: "funcpointer",
	KindCommand:     "command",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Entity is one named declaration. The set of implementations is closed;
// use [Visit] to dispatch over it.
type Entity interface {
	// Kind reports the variant.
	Kind() Kind

	// Info returns the fields shared by every variant.
	Info() *Decl

	sealed()
}

// Decl is the record embedded in every entity variant.
type Decl struct {
	// Name is unique across types and constants of a registry.
	Name string

	// Comment is a human-readable description (optional).
	Comment string

	// Extension names the owning extension, empty for core declarations.
	Extension string

	// Line is the source line in the registry document (for debugging).
	Line int
}

// Info returns d itself.
func (d *Decl) Info() *Decl { return d }

func (d *Decl) sealed() {}

// Primitive is a scalar provided by the C language or a platform header.
type Primitive struct {
	Decl
}

func (*Primitive) Kind() Kind { return KindPrimitive }

// Alias names another type.
type Alias struct {
	Decl

	// Target is the aliased type name.
	Target string
}

func (*Alias) Kind() Kind { return KindAlias }

// Enum is an enumeration or, when Bitmask is set, a set of flag bits.
type Enum struct {
	Decl

	Bitmask bool

	// Backing is the integer type name the enum is stored as (optional).
	Backing string

	// Values are the enumerants in declaration order.
	Values []*Constant
}

func (*Enum) Kind() Kind { return KindEnum }

// Struct is a C struct or, when Union is set, a union.
type Struct struct {
	Decl

	Union bool

	// Members in declaration order.
	Members []*Member

	// Nullable marks the struct as representable by an all-zero value.
	// The claim is verified during synthesis.
	Nullable bool
}

func (*Struct) Kind() Kind { return KindStruct }

// Handle is an opaque object reference.
type Handle struct {
	Decl

	// Dispatchable handles are pointer sized; the others are 64-bit integers.
	Dispatchable bool

	// Parents names the handles this one is created from.
	Parents []string
}

func (*Handle) Kind() Kind { return KindHandle }

// Signature is the record shared by commands and function pointer typedefs.
type Signature struct {
	// Return describes the return value. Its Name is empty.
	Return *Member

	// Args are the parameters in declaration order.
	Args []*Member
}

// Arg returns the parameter called name, or nil.
func (s *Signature) Arg(name string) *Member {
	for _, a := range s.Args {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// FuncPointer is a function pointer typedef.
type FuncPointer struct {
	Decl
	Signature
}

func (*FuncPointer) Kind() Kind { return KindFuncPointer }

// Command is a callable entry point of the native library.
type Command struct {
	Decl
	Signature

	// ErrorCodes and SuccessCodes name result constants the command may return.
	ErrorCodes   []string
	SuccessCodes []string
}

func (*Command) Kind() Kind { return KindCommand }

// NullTerminated is the length annotation of a C string.
const NullTerminated = "null-terminated"

// Member is a struct field or a function parameter.
type Member struct {
	Name string

	// Type is an entity name, resolved at synthesis time.
	Type string

	// Pointers is the number of indirections.
	Pointers int

	// FixedSize is the element count of an inline array, as a constant
	// expression. Empty when the member is not an array.
	FixedSize string

	// Lengths describes, per pointer level, which sibling supplies the
	// element count, or NullTerminated.
	Lengths []string

	Const    bool
	Optional bool

	// Values lists the legal values as constant names (optional).
	Values []string
}

// IsString reports whether m is a single NUL-terminated C string.
func (m *Member) IsString() bool {
	return m.Pointers == 1 && len(m.Lengths) == 1 && m.Lengths[0] == NullTerminated
}

// IsStringArray reports whether m is a counted array of C strings.
func (m *Member) IsStringArray() bool {
	return m.Pointers == 2 && len(m.Lengths) == 2 && m.Lengths[0] != NullTerminated && m.Lengths[1] == NullTerminated
}

// LengthSupplier returns the sibling named by the first length annotation,
// or "" when the first dimension is not counted by a sibling.
func (m *Member) LengthSupplier() string {
	if len(m.Lengths) == 0 || m.Lengths[0] == NullTerminated {
		return ""
	}
	return m.Lengths[0]
}

// Names reports whether any length annotation of m is name.
func (m *Member) Names(name string) bool {
	return slices.Contains(m.Lengths, name)
}

// Constant is a named constant expression. Expressions may refer to other
// constants with the {NAME} marker.
type Constant struct {
	Name      string
	Expr      string
	Comment   string
	Extension string
	Line      int
}

// NewValue returns a constant holding a literal or arithmetic expression.
func NewValue(name, expr string) *Constant {
	return &Constant{Name: name, Expr: expr}
}

// NewBitpos returns a flag constant with only bit pos set.
func NewBitpos(name string, pos int) *Constant {
	return &Constant{Name: name, Expr: fmt.Sprintf("1 << %d", pos)}
}

// Extension groups declarations that belong to an optional capability.
type Extension struct {
	Name     string
	Number   int
	Requires []string
	Comment  string

	// Types, Commands and Constants list the names the extension provides.
	Types     []string
	Commands  []string
	Constants []string
}
