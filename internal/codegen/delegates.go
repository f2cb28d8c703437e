// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package codegen

import (
	"fmt"
	"strings"

	"github.com/albertocavalcante/cabind/internal/naming"
	"github.com/albertocavalcante/cabind/internal/registry"
)

// emitDelegate writes a function pointer typedef as an unmanaged delegate.
// Use sites still render the typedef as IntPtr.
func (s *Session) emitDelegate(fp *registry.FuncPointer) error {
	modifiers := "public"
	if s.IsUnsafe(fp.Name) {
		modifiers += " unsafe"
	}

	params, err := s.rawParams(fp.Args)
	if err != nil {
		return err
	}

	var w writer
	w.doc(fp.Comment)
	w.provided(fp.Extension)
	w.line("[UnmanagedFunctionPointer(CallingConvention.Winapi)]")
	w.line("%s delegate %s %s(%s);", modifiers, s.returnType(&fp.Signature), fp.Name, params)

	return s.namespaceUnit(s.UnitFor(fp)).add(fp.Name, w.String())
}

// returnType renders the return value of sig; a missing one is void.
func (s *Session) returnType(sig *registry.Signature) string {
	if sig.Return == nil {
		return "void"
	}
	return s.RenderType(sig.Return, 0)
}

// rawParams renders an argument list one to one. A fixed-size argument
// decays to a pointer, here to its helper array type.
func (s *Session) rawParams(args []*registry.Member) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		t, err := s.rawParamType(a)
		if err != nil {
			return "", fmt.Errorf("argument %s: %w", a.Name, err)
		}
		parts[i] = t + " " + naming.EscapeKeyword(a.Name)
	}
	return strings.Join(parts, ", "), nil
}

func (s *Session) rawParamType(a *registry.Member) (string, error) {
	if a.FixedSize == "" {
		return s.RenderType(a, 0), nil
	}
	dummy, err := s.fixedArrayType(a)
	if err != nil {
		return "", err
	}
	return dummy + "*", nil
}

// fixedArrayType returns the helper type holding a fixed-size argument.
func (s *Session) fixedArrayType(a *registry.Member) (string, error) {
	_, n, err := s.fixedCount(a)
	if err != nil {
		return "", err
	}
	return s.dummy(n, s.RenderType(a, 0))
}
