// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package registry

import "fmt"

// Visitor handles every entity variant. Adding a variant adds a method
// here, so every implementation fails to compile until it handles it.
type Visitor interface {
	VisitPrimitive(*Primitive) error
	VisitAlias(*Alias) error
	VisitEnum(*Enum) error
	VisitStruct(*Struct) error
	VisitHandle(*Handle) error
	VisitFuncPointer(*FuncPointer) error
	VisitCommand(*Command) error
}

// Visit calls the method of v matching the variant of e.
func Visit(e Entity, v Visitor) error {
	switch e := e.(type) {
	case *Primitive:
		return v.VisitPrimitive(e)
	case *Alias:
		return v.VisitAlias(e)
	case *Enum:
		return v.VisitEnum(e)
	case *Struct:
		return v.VisitStruct(e)
	case *Handle:
		return v.VisitHandle(e)
	case *FuncPointer:
		return v.VisitFuncPointer(e)
	case *Command:
		return v.VisitCommand(e)
	default:
		panic(fmt.Sprintf("registry: unhandled entity %T", e))
	}
}
