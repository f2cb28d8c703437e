// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package codegen

import (
	"fmt"
	"strings"

	"github.com/albertocavalcante/cabind/internal/cexpr"
	"github.com/albertocavalcante/cabind/internal/logutil"
	"github.com/albertocavalcante/cabind/internal/naming"
	"github.com/albertocavalcante/cabind/internal/registry"
)

// emitStruct writes a struct or union with its optional Null value and
// New factory.
func (s *Session) emitStruct(st *registry.Struct) error {
	if st.Nullable {
		if err := s.checkNullable(st, st, map[string]bool{}); err != nil {
			return err
		}
	}

	var w writer
	w.doc(st.Comment)
	w.provided(st.Extension)
	if st.Union {
		w.line("[StructLayout(LayoutKind.Explicit)]")
	} else {
		w.line("[StructLayout(LayoutKind.Sequential)]")
	}
	modifiers := "public"
	if s.IsUnsafe(st.Name) {
		modifiers += " unsafe"
	}
	w.open("%s partial struct %s", modifiers, st.Name)
	for _, m := range st.Members {
		decl, err := s.fieldDecl(m)
		if err != nil {
			return fmt.Errorf("member %s: %w", m.Name, err)
		}
		if st.Union {
			w.line("[FieldOffset(0)]")
		}
		w.line("%s", decl)
	}
	if st.Nullable {
		w.line("")
		w.line("public static %s Null => default;", st.Name)
	}
	s.writeFactory(&w, st)
	w.close()

	return s.namespaceUnit(s.UnitFor(st)).add(st.Name, w.String())
}

// fieldDecl renders one struct member.
func (s *Session) fieldDecl(m *registry.Member) (string, error) {
	name := naming.EscapeKeyword(m.Name)
	elem := s.RenderType(m, 0)
	if m.FixedSize == "" {
		return fmt.Sprintf("public %s %s;", elem, name), nil
	}

	count, n, err := s.fixedCount(m)
	if err != nil {
		return "", err
	}
	if s.cfg.InlineFixedBuffers && fixedElements[elem] {
		return fmt.Sprintf("public fixed %s %s[%s];", elem, name, count), nil
	}
	dummy, err := s.dummy(n, elem)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("public %s %s;", dummy, name), nil
}

// fixedCount evaluates the element count of a fixed-size member. The
// returned expression names the constant when the size is a single
// reference to one, and is a decimal literal otherwise.
func (s *Session) fixedCount(m *registry.Member) (string, int, error) {
	v, err := cexpr.Evaluate(m.FixedSize, s.rawExpr)
	if err != nil {
		return "", 0, err
	}
	n, ok := v.Int64()
	if !ok || n <= 0 {
		return "", 0, fmt.Errorf("fixed size %q is not a positive integer", m.FixedSize)
	}
	if ref, ok := cexpr.SoleReference(m.FixedSize); ok {
		if name, ok := s.ConstantName(ref); ok {
			return "(int)" + name, int(n), nil
		}
	}
	return fmt.Sprint(n), int(n), nil
}

// dummyKey identifies a helper type standing in for a fixed array.
type dummyKey struct {
	count int
	elem  string
}

// dummy returns the helper type for count elements of elem, emitting it
// into the catch-all unit on first use.
func (s *Session) dummy(count int, elem string) (string, error) {
	key := dummyKey{count: count, elem: elem}

	s.dummyMu.Lock()
	name, seen := s.dummies[key]
	if !seen {
		name = fmt.Sprintf("FixedArray%d%s", count, naming.TypeSegment(elem))
		s.dummies[key] = name
	}
	s.dummyMu.Unlock()
	if seen {
		return name, nil
	}

	var w writer
	w.line("[StructLayout(LayoutKind.Sequential)]")
	modifiers := "public"
	if strings.Contains(elem, "*") {
		modifiers += " unsafe"
	}
	w.open("%s struct %s", modifiers, name)
	for i := range count {
		w.line("public %s e%d;", elem, i)
	}
	w.line("")
	w.line("public const int Length = %d;", count)
	w.line("")
	w.open("public %s this[int index]", elem)
	w.open("get")
	w.open("switch (index)")
	for i := range count {
		w.line("case %d: return e%d;", i, i)
	}
	w.line("default: throw new IndexOutOfRangeException();")
	w.close()
	w.close()
	w.open("set")
	w.open("switch (index)")
	for i := range count {
		w.line("case %d: e%d = value; break;", i, i)
	}
	w.line("default: throw new IndexOutOfRangeException();")
	w.close()
	w.close()
	w.close()
	w.close()

	if err := s.namespaceUnit("Constants.cs").add("1-"+name, w.String()); err != nil {
		return "", err
	}
	logutil.Trace("dummy array", "name", name)
	return name, nil
}

// checkNullable verifies that every member of st has a null value: a
// pointer, a function pointer, a handle, or a struct whose own members
// qualify. Violations are reported against root.
func (s *Session) checkNullable(root, st *registry.Struct, visiting map[string]bool) error {
	visiting[st.Name] = true
	for _, m := range st.Members {
		if m.Pointers > 0 {
			continue
		}
		switch e := s.resolve(m.Type).(type) {
		case *registry.FuncPointer, *registry.Handle:
			continue
		case *registry.Struct:
			if visiting[e.Name] {
				continue
			}
			if err := s.checkNullable(root, e, visiting); err != nil {
				return err
			}
			continue
		}
		member := m.Name
		if st != root {
			member = st.Name + "." + m.Name
		}
		return &InvariantViolationError{
			Entity: root.Name,
			Member: member,
			Reason: fmt.Sprintf("type %s has no null value", m.Type),
		}
	}
	return nil
}

// writeFactory adds a New method when some members have exactly one legal
// value. Values that are not in the constant table are skipped.
func (s *Session) writeFactory(w *writer, st *registry.Struct) {
	var assigns []string
	for _, m := range st.Members {
		if len(m.Values) != 1 || m.Pointers > 0 || m.FixedSize != "" {
			continue
		}
		value, ok := s.ConstantName(m.Values[0])
		if !ok {
			continue
		}
		assigns = append(assigns, fmt.Sprintf("result.%s = %s;", naming.EscapeKeyword(m.Name), value))
	}
	if len(assigns) == 0 {
		return
	}

	w.line("")
	w.open("public static %s New()", st.Name)
	w.line("%s result = default;", st.Name)
	for _, a := range assigns {
		w.line("%s", a)
	}
	w.line("return result;")
	w.close()
}
