// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package model

import (
	"fmt"

	"github.com/albertocavalcante/cabind/internal/registry"
)

// Build converts the document into a registry. The registry is returned
// unfrozen so the override step can still correct it.
func (d *Document) Build() (*registry.Registry, error) {
	reg := registry.New()

	for _, t := range d.Types {
		e, err := t.entity()
		if err != nil {
			return nil, err
		}
		if err := reg.Insert(e); err != nil {
			return nil, fmt.Errorf("line %d: %w", t.Line, err)
		}
	}

	for _, c := range d.Commands {
		cmd, err := c.entity()
		if err != nil {
			return nil, err
		}
		if err := reg.Insert(cmd); err != nil {
			return nil, fmt.Errorf("line %d: %w", c.Line, err)
		}
	}

	for _, c := range d.Constants {
		k := constant(c.Name, c.Value, c.Bitpos)
		k.Comment = c.Comment
		k.Extension = c.Extension
		k.Line = c.Line
		if err := reg.InsertConstant(k); err != nil {
			return nil, fmt.Errorf("line %d: %w", c.Line, err)
		}
	}

	for _, x := range d.Extensions {
		ext := &registry.Extension{
			Name:      x.Name,
			Number:    x.Number,
			Requires:  x.Requires,
			Comment:   x.Comment,
			Types:     x.Types,
			Commands:  x.Commands,
			Constants: x.Constants,
		}
		if err := reg.InsertExtension(ext); err != nil {
			return nil, fmt.Errorf("line %d: %w", x.Line, err)
		}
		attribute(reg, ext)
	}

	return reg, nil
}

// attribute records ext as the owner of the declarations it lists, unless
// the declaration already names an owner.
func attribute(reg *registry.Registry, ext *registry.Extension) {
	for _, names := range [][]string{ext.Types, ext.Commands} {
		for _, name := range names {
			if e := reg.Lookup(name); e != nil && e.Info().Extension == "" {
				e.Info().Extension = ext.Name
			}
		}
	}
	for _, name := range ext.Constants {
		if c := reg.Constant(name); c != nil && c.Extension == "" {
			c.Extension = ext.Name
		}
	}
}

func constant(name string, value Expr, bitpos *int) *registry.Constant {
	if bitpos != nil {
		return registry.NewBitpos(name, *bitpos)
	}
	return registry.NewValue(name, string(value))
}

func (t *TypeDecl) decl() registry.Decl {
	return registry.Decl{
		Name:      t.Name,
		Comment:   t.Comment,
		Extension: t.Extension,
		Line:      t.Line,
	}
}

func (t *TypeDecl) entity() (registry.Entity, error) {
	switch t.Kind {
	case KindPrimitive:
		return &registry.Primitive{Decl: t.decl()}, nil

	case KindAlias:
		return &registry.Alias{Decl: t.decl(), Target: t.Target}, nil

	case KindEnum:
		e := &registry.Enum{Decl: t.decl(), Bitmask: t.Bitmask, Backing: t.Backing}
		for _, v := range t.Values {
			c := constant(v.Name, v.Value, v.Bitpos)
			c.Comment = v.Comment
			c.Extension = v.Extension
			c.Line = v.Line
			e.Values = append(e.Values, c)
		}
		return e, nil

	case KindStruct, KindUnion:
		s := &registry.Struct{Decl: t.decl(), Union: t.Kind == KindUnion, Nullable: t.Nullable}
		for _, m := range t.Members {
			mm, err := m.member(t.Name)
			if err != nil {
				return nil, err
			}
			s.Members = append(s.Members, mm)
		}
		return s, nil

	case KindHandle:
		return &registry.Handle{Decl: t.decl(), Dispatchable: t.Dispatchable, Parents: t.Parents}, nil

	case KindFuncPointer:
		fp := &registry.FuncPointer{Decl: t.decl()}
		if t.Prototype != "" {
			name, sig, err := ParsePrototype(t.Prototype)
			if err != nil {
				return nil, err
			}
			if name != t.Name {
				return nil, &MalformedInputError{Name: t.Name, Text: t.Prototype, Reason: fmt.Sprintf("prototype declares %q", name)}
			}
			fp.Signature = *sig
			return fp, nil
		}
		sig, err := signature(t.Name, t.Return, t.Args)
		if err != nil {
			return nil, err
		}
		fp.Signature = *sig
		return fp, nil
	}
	return nil, fmt.Errorf("type %s: unknown kind %q", t.Name, t.Kind)
}

func (c *CommandDecl) entity() (*registry.Command, error) {
	sig, err := signature(c.Name, c.Return, c.Args)
	if err != nil {
		return nil, err
	}
	return &registry.Command{
		Decl: registry.Decl{
			Name:      c.Name,
			Comment:   c.Comment,
			Extension: c.Extension,
			Line:      c.Line,
		},
		Signature:    *sig,
		ErrorCodes:   c.ErrorCodes,
		SuccessCodes: c.SuccessCodes,
	}, nil
}

func signature(owner string, ret *MemberDecl, args []*MemberDecl) (*registry.Signature, error) {
	sig := &registry.Signature{Return: &registry.Member{Type: "void"}}
	if ret != nil {
		m, err := ret.member(owner)
		if err != nil {
			return nil, err
		}
		sig.Return = m
	}
	for _, a := range args {
		m, err := a.member(owner)
		if err != nil {
			return nil, err
		}
		sig.Args = append(sig.Args, m)
	}
	return sig, nil
}

// member converts and validates a member declaration.
func (m *MemberDecl) member(owner string) (*registry.Member, error) {
	if m.Type == "" {
		return nil, &MalformedInputError{Name: owner, Text: m.Name, Reason: "member without type"}
	}
	if m.Pointers < 0 {
		return nil, &MalformedInputError{Name: owner, Text: m.Name, Reason: "negative pointer count"}
	}
	if len(m.Len) > m.Pointers {
		return nil, &MalformedInputError{
			Name:   owner,
			Text:   m.Name,
			Reason: fmt.Sprintf("%d length annotations for %d pointer levels", len(m.Len), m.Pointers),
		}
	}
	return &registry.Member{
		Name:      m.Name,
		Type:      m.Type,
		Pointers:  m.Pointers,
		FixedSize: string(m.FixedSize),
		Lengths:   m.Len,
		Const:     m.Const,
		Optional:  m.Optional,
		Values:    m.Values,
	}, nil
}
