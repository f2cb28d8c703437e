// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package generator

import "github.com/albertocavalcante/cabind/internal/registry"

// ResolveDeps expands a type filter to include all transitively
// referenced entities of the registry. Returns nil if filter is nil
// (meaning "generate all types").
//
// Names that the registry does not know are kept as given so the caller
// can still report them.
func ResolveDeps(reg *registry.Registry, filter map[string]bool) map[string]bool {
	if filter == nil {
		return nil
	}

	w := &depWalker{reg: reg, visited: make(map[string]bool)}
	for name := range filter {
		w.collect(name)
	}
	return w.visited
}

// depWalker collects the names an entity refers to. Each Visit method
// walks one variant; collect guards against cycles.
type depWalker struct {
	reg     *registry.Registry
	visited map[string]bool
}

func (w *depWalker) collect(name string) {
	if name == "" || w.visited[name] {
		return // Already processed or cycle
	}
	w.visited[name] = true

	e := w.reg.Lookup(name)
	if e == nil {
		return
	}
	// The walker never fails.
	_ = registry.Visit(e, w)
}

func (w *depWalker) members(ms ...*registry.Member) {
	for _, m := range ms {
		if m != nil {
			w.collect(m.Type)
		}
	}
}

func (w *depWalker) VisitPrimitive(*registry.Primitive) error { return nil }

func (w *depWalker) VisitAlias(a *registry.Alias) error {
	w.collect(a.Target)
	return nil
}

func (w *depWalker) VisitEnum(en *registry.Enum) error {
	w.collect(en.Backing)
	return nil
}

func (w *depWalker) VisitStruct(st *registry.Struct) error {
	w.members(st.Members...)
	return nil
}

func (w *depWalker) VisitHandle(h *registry.Handle) error {
	for _, p := range h.Parents {
		w.collect(p)
	}
	return nil
}

func (w *depWalker) VisitFuncPointer(fp *registry.FuncPointer) error {
	w.members(fp.Return)
	w.members(fp.Args...)
	return nil
}

func (w *depWalker) VisitCommand(cmd *registry.Command) error {
	w.members(cmd.Return)
	w.members(cmd.Args...)
	return nil
}
