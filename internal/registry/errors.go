// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFrozen is returned when inserting into a frozen registry.
var ErrFrozen = errors.New("registry is frozen")

// DuplicateNameError reports an insert of a name that already exists.
// It is fatal for the run.
type DuplicateNameError struct {
	Name string
	Kind string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s name %q", e.Kind, e.Name)
}

// UnresolvedTypeError reports a type name with no declaration.
// Callers recover from it by treating the type as opaque.
type UnresolvedTypeError struct {
	Name string

	// Chain lists the aliases followed before the miss.
	Chain []string
}

func (e *UnresolvedTypeError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("unresolved type %q", e.Name)
	}
	return fmt.Sprintf("unresolved type %q (via %s)", e.Name, strings.Join(e.Chain, " -> "))
}

// AliasCycleError reports an alias chain that never reaches a concrete type.
type AliasCycleError struct {
	Chain []string
}

func (e *AliasCycleError) Error() string {
	return "alias cycle: " + strings.Join(e.Chain, " -> ")
}

// IsUnresolved reports whether err is, or wraps, an *UnresolvedTypeError.
func IsUnresolved(err error) bool {
	var u *UnresolvedTypeError
	return errors.As(err, &u)
}
