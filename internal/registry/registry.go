// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package registry

import (
	"sync"
)

// Registry is the name table for one generator run. It is safe for
// concurrent use; lookups may run while the reader is still inserting.
type Registry struct {
	mu sync.RWMutex

	entities map[string]Entity
	order    []Entity

	constants  map[string]*Constant
	constOrder []*Constant
	free       []*Constant

	extensions map[string]*Extension
	extOrder   []*Extension

	frozen bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		entities:   make(map[string]Entity),
		constants:  make(map[string]*Constant),
		extensions: make(map[string]*Extension),
	}
}

// Insert adds e. Enumerants of an *Enum are added to the constant table in
// the same step. Inserting a name that is already taken by a type or a
// constant fails with *DuplicateNameError and leaves r unchanged.
func (r *Registry) Insert(e Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}

	name := e.Info().Name
	if r.taken(name) {
		return &DuplicateNameError{Name: name, Kind: e.Kind().String()}
	}
	var values []*Constant
	if en, ok := e.(*Enum); ok {
		values = en.Values
		seen := make(map[string]bool, len(values))
		for _, c := range values {
			if r.taken(c.Name) || seen[c.Name] || c.Name == name {
				return &DuplicateNameError{Name: c.Name, Kind: "constant"}
			}
			seen[c.Name] = true
		}
	}

	r.entities[name] = e
	r.order = append(r.order, e)
	for _, c := range values {
		r.constants[c.Name] = c
		r.constOrder = append(r.constOrder, c)
	}
	return nil
}

// InsertConstant adds a constant that is not owned by an enum.
func (r *Registry) InsertConstant(c *Constant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	if r.taken(c.Name) {
		return &DuplicateNameError{Name: c.Name, Kind: "constant"}
	}
	r.constants[c.Name] = c
	r.constOrder = append(r.constOrder, c)
	r.free = append(r.free, c)
	return nil
}

// InsertExtension adds an extension. Extensions have their own namespace.
func (r *Registry) InsertExtension(x *Extension) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	if _, ok := r.extensions[x.Name]; ok {
		return &DuplicateNameError{Name: x.Name, Kind: "extension"}
	}
	r.extensions[x.Name] = x
	r.extOrder = append(r.extOrder, x)
	return nil
}

func (r *Registry) taken(name string) bool {
	if _, ok := r.entities[name]; ok {
		return true
	}
	_, ok := r.constants[name]
	return ok
}

// Lookup returns the entity called name, or nil when there is none.
// Callers treat a nil result as a foreign, opaque type.
func (r *Registry) Lookup(name string) Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entities[name]
}

// Constant returns the constant called name, or nil.
func (r *Registry) Constant(name string) *Constant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.constants[name]
}

// Extension returns the extension called name, or nil.
func (r *Registry) Extension(name string) *Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.extensions[name]
}

// ResolveAlias follows alias targets starting at name until it reaches an
// entity that is not an *Alias. It fails with *UnresolvedTypeError when a
// name on the chain is unknown and with *AliasCycleError when the chain
// loops. The walk takes at most Len()+1 steps.
func (r *Registry) ResolveAlias(name string) (Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []string
	seen := make(map[string]bool)
	for hops := 0; hops <= len(r.entities); hops++ {
		e, ok := r.entities[name]
		if !ok {
			return nil, &UnresolvedTypeError{Name: name, Chain: chain}
		}
		a, isAlias := e.(*Alias)
		if !isAlias {
			return e, nil
		}
		chain = append(chain, name)
		seen[name] = true
		if seen[a.Target] {
			return nil, &AliasCycleError{Chain: append(chain, a.Target)}
		}
		name = a.Target
	}
	return nil, &AliasCycleError{Chain: chain}
}

// Freeze marks the end of the reading and patching phases.
// Every later insert fails with ErrFrozen.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Len returns the number of entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Entities returns every entity in insertion order.
func (r *Registry) Entities() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entity, len(r.order))
	copy(out, r.order)
	return out
}

// Constants returns every constant, enumerants included, in insertion order.
func (r *Registry) Constants() []*Constant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Constant, len(r.constOrder))
	copy(out, r.constOrder)
	return out
}

// FreeConstants returns the constants not owned by an enum.
func (r *Registry) FreeConstants() []*Constant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Constant, len(r.free))
	copy(out, r.free)
	return out
}

// Extensions returns every extension in insertion order.
func (r *Registry) Extensions() []*Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Extension, len(r.extOrder))
	copy(out, r.extOrder)
	return out
}

// Commands returns every command in insertion order.
func (r *Registry) Commands() []*Command {
	return All[*Command](r)
}

// Enums returns every enum in insertion order.
func (r *Registry) Enums() []*Enum {
	return All[*Enum](r)
}

// All returns the entities of variant T in insertion order.
func All[T Entity](r *Registry) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []T
	for _, e := range r.order {
		if t, ok := e.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
