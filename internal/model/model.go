// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package model defines the JSON registry document that describes a C ABI.
//
// The document is the output of the structural reader: a flat list of type
// declarations, commands, free-standing constants and extensions. This
// package maps it onto Go types and builds a [registry.Registry] from it.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is a parsed registry document.
type Document struct {
	// Version is the API version the document describes (e.g., "1.3.280").
	Version string `json:"version"`

	// Types lists every type declaration in document order.
	Types []*TypeDecl `json:"types"`

	// Commands lists every entry point in document order.
	Commands []*CommandDecl `json:"commands"`

	// Constants lists the constants that do not belong to an enum.
	Constants []*ConstantDecl `json:"constants"`

	// Extensions lists the optional capabilities and what they provide.
	Extensions []*ExtensionDecl `json:"extensions"`

	// Line is the source line number (for debugging).
	Line int `json:"line,omitempty"`
}

// TypeDecl is one entry of Document.Types.
//
// The Kind field determines which other fields are relevant:
//   - "primitive": no extra fields
//   - "alias": Target
//   - "enum": Bitmask, Backing, Values
//   - "struct", "union": Members, Nullable
//   - "handle": Dispatchable, Parents
//   - "funcpointer": Return and Args, or Prototype
type TypeDecl struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Comment   string `json:"comment,omitempty"`
	Extension string `json:"extension,omitempty"`

	Target string `json:"target,omitempty"`

	Bitmask bool         `json:"bitmask,omitempty"`
	Backing string       `json:"backing,omitempty"`
	Values  []*ValueDecl `json:"values,omitempty"`

	Members  []*MemberDecl `json:"members,omitempty"`
	Nullable bool          `json:"nullable,omitempty"`

	Dispatchable bool     `json:"dispatchable,omitempty"`
	Parents      []string `json:"parents,omitempty"`

	Return    *MemberDecl   `json:"return,omitempty"`
	Args      []*MemberDecl `json:"args,omitempty"`
	Prototype string        `json:"prototype,omitempty"`

	Line int `json:"line,omitempty"`
}

// Known type kinds.
const (
	KindPrimitive   = "primitive"
	KindAlias       = "alias"
	KindEnum        = "enum"
	KindStruct      = "struct"
	KindUnion       = "union"
	KindHandle      = "handle"
	KindFuncPointer = "funcpointer"
)

// UnmarshalJSON implements custom unmarshaling for TypeDecl.
// It rejects unknown kinds and kind-specific fields that are missing.
func (t *TypeDecl) UnmarshalJSON(data []byte) error {
	type plain TypeDecl
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = TypeDecl(raw)

	if t.Name == "" {
		return fmt.Errorf("type declaration without name (line %d)", t.Line)
	}

	switch t.Kind {
	case KindPrimitive, KindStruct, KindUnion, KindHandle:
		// No required fields beyond the name.

	case KindAlias:
		if t.Target == "" {
			return fmt.Errorf("alias %s: missing target", t.Name)
		}

	case KindEnum:
		for _, v := range t.Values {
			if err := v.check(); err != nil {
				return fmt.Errorf("enum %s: %w", t.Name, err)
			}
		}

	case KindFuncPointer:
		if t.Prototype == "" && t.Return == nil {
			return fmt.Errorf("funcpointer %s: needs return/args or prototype", t.Name)
		}

	default:
		return fmt.Errorf("type %s: unknown kind %q", t.Name, t.Kind)
	}
	return nil
}

// ValueDecl is an enumerant.
type ValueDecl struct {
	Name      string `json:"name"`
	Value     Expr   `json:"value,omitempty"`
	Bitpos    *int   `json:"bitpos,omitempty"`
	Comment   string `json:"comment,omitempty"`
	Extension string `json:"extension,omitempty"`
	Line      int    `json:"line,omitempty"`
}

func (v *ValueDecl) check() error {
	switch {
	case v.Name == "":
		return fmt.Errorf("value without name")
	case v.Value == "" && v.Bitpos == nil:
		return fmt.Errorf("value %s: needs value or bitpos", v.Name)
	case v.Value != "" && v.Bitpos != nil:
		return fmt.Errorf("value %s: has both value and bitpos", v.Name)
	}
	return nil
}

// MemberDecl describes a struct member, a parameter or a return value.
type MemberDecl struct {
	Name      string   `json:"name,omitempty"`
	Type      string   `json:"type"`
	Pointers  int      `json:"pointers,omitempty"`
	FixedSize Expr     `json:"fixedSize,omitempty"`
	Len       []string `json:"len,omitempty"`
	Const     bool     `json:"const,omitempty"`
	Optional  bool     `json:"optional,omitempty"`
	Values    []string `json:"values,omitempty"`
	Line      int      `json:"line,omitempty"`
}

// CommandDecl is an entry point.
type CommandDecl struct {
	Name         string        `json:"name"`
	Comment      string        `json:"comment,omitempty"`
	Extension    string        `json:"extension,omitempty"`
	Return       *MemberDecl   `json:"return,omitempty"`
	Args         []*MemberDecl `json:"args"`
	ErrorCodes   []string      `json:"errorCodes,omitempty"`
	SuccessCodes []string      `json:"successCodes,omitempty"`
	Line         int           `json:"line,omitempty"`
}

// ConstantDecl is a free-standing constant.
type ConstantDecl struct {
	Name      string `json:"name"`
	Value     Expr   `json:"value,omitempty"`
	Bitpos    *int   `json:"bitpos,omitempty"`
	Comment   string `json:"comment,omitempty"`
	Extension string `json:"extension,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// ExtensionDecl is an optional capability.
type ExtensionDecl struct {
	Name      string   `json:"name"`
	Number    int      `json:"number,omitempty"`
	Requires  []string `json:"requires,omitempty"`
	Comment   string   `json:"comment,omitempty"`
	Types     []string `json:"types,omitempty"`
	Commands  []string `json:"commands,omitempty"`
	Constants []string `json:"constants,omitempty"`
	Line      int      `json:"line,omitempty"`
}

// Expr is a constant expression. In JSON it may be written as a string
// ("1 << 3", "(~0U)") or as a plain number.
type Expr string

// UnmarshalJSON accepts both strings and numbers.
func (e *Expr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Expr(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expression must be a string or a number, got %s", data)
	}
	if i, err := n.Int64(); err == nil {
		*e = Expr(strconv.FormatInt(i, 10))
		return nil
	}
	*e = Expr(n.String())
	return nil
}

// Parse decodes a registry document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
