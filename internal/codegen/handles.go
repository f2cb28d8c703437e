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

// emitHandle writes a handle as a one-field value type with a null value
// and equality. Dispatchable handles hold a pointer, the others a 64-bit
// integer.
func (s *Session) emitHandle(h *registry.Handle) error {
	field, zero := "ulong", "0"
	if h.Dispatchable {
		field, zero = "IntPtr", "IntPtr.Zero"
	}

	var w writer
	w.doc(h.Comment)
	w.provided(h.Extension)
	if len(h.Parents) > 0 {
		w.line("// Parents: %s", strings.Join(h.Parents, ", "))
	}
	w.line("[StructLayout(LayoutKind.Sequential)]")
	w.open("public readonly partial struct %s : IEquatable<%s>", h.Name, h.Name)
	w.line("public readonly %s Handle;", field)
	w.line("")
	w.line("public %s(%s handle) => Handle = handle;", h.Name, field)
	w.line("")
	w.line("public static %s Null => default;", h.Name)
	w.line("")
	w.line("public bool IsNull => Handle == %s;", zero)
	w.line("")
	w.line("public bool Equals(%s other) => Handle == other.Handle;", h.Name)
	w.line("")
	w.line("public override bool Equals(object obj) => obj is %s other && Equals(other);", h.Name)
	w.line("")
	w.line("public override int GetHashCode() => Handle.GetHashCode();")
	w.line("")
	w.line("public static bool operator ==(%s left, %s right) => left.Equals(right);", h.Name, h.Name)
	w.line("")
	w.line("public static bool operator !=(%s left, %s right) => !left.Equals(right);", h.Name, h.Name)
	w.close()

	return s.namespaceUnit(s.UnitFor(h)).add(h.Name, w.String())
}
