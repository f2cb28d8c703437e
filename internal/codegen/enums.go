// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/albertocavalcante/cabind/internal/cexpr"
	"github.com/albertocavalcante/cabind/internal/naming"
	"github.com/albertocavalcante/cabind/internal/registry"
)

// backingBits lists the C# integral types an enum may be based on.
var backingBits = map[string]uint{
	"byte": 8, "sbyte": 8, "short": 16, "ushort": 16,
	"int": 32, "uint": 32, "long": 64, "ulong": 64,
}

func unsignedType(t string) bool {
	return t == "byte" || strings.HasPrefix(t, "u")
}

// enumBacking returns the C# base type of en.
func (s *Session) enumBacking(en *registry.Enum) string {
	if en.Backing != "" {
		t := s.RenderType(&registry.Member{Type: en.Backing}, 0)
		if _, ok := backingBits[t]; ok {
			return t
		}
	}
	if en.Bitmask {
		return "uint"
	}
	return "int"
}

// memberNames derives a collision-free member name for each enumerant.
// A stripped name that is already taken falls back to the full camel-cased
// name, then to a numeric suffix.
func (s *Session) memberNames(en *registry.Enum) []string {
	used := make(map[string]bool, len(en.Values))
	names := make([]string, len(en.Values))
	for i, c := range en.Values {
		name := naming.EnumMember(c.Name, en.Name, s.cfg.DigitMarker)
		if used[name] {
			name = naming.EscapeDigit(naming.CamelCase(c.Name), s.cfg.DigitMarker)
		}
		base := name
		for n := 2; used[name]; n++ {
			name = base + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// emitEnum records the rendered name of every enumerant and emits the enum
// when it passes the filter. The result enum also fills the exception table.
func (s *Session) emitEnum(en *registry.Enum) error {
	names := s.memberNames(en)
	local := make(map[string]string, len(names))
	for i, c := range en.Values {
		local[c.Name] = names[i]
		s.setConstant(c.Name, en.Name+"."+names[i])
	}

	backing := s.enumBacking(en)
	values := make([]string, len(en.Values))
	evaluated := make([]cexpr.Value, len(en.Values))
	for i, c := range en.Values {
		if ref, ok := cexpr.SoleReference(c.Expr); ok {
			if sibling, ok := local[ref]; ok {
				values[i] = sibling
			}
		}
		v, err := cexpr.Evaluate(c.Expr, s.rawExpr)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
		evaluated[i] = v
		if values[i] == "" {
			lit, err := enumLiteral(v, backing, en.Bitmask)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			values[i] = lit
		}
	}

	if en.Name == s.cfg.ResultType {
		s.buildExceptions(en, names, evaluated)
	}

	if !s.include(en.Name) {
		return nil
	}

	var w writer
	w.doc(en.Comment)
	w.provided(en.Extension)
	if en.Bitmask {
		w.line("[Flags]")
	}
	w.open("public enum %s : %s", en.Name, backing)
	for i, c := range en.Values {
		w.doc(c.Comment)
		if c.Extension != "" && c.Extension != en.Extension {
			w.provided(c.Extension)
		}
		w.line("%s = %s,", names[i], values[i])
	}
	w.close()

	return s.namespaceUnit(s.UnitFor(en)).add(en.Name, w.String())
}

// enumLiteral formats v for an enum based on backing. Unsigned bitmasks are
// written in hex; values are truncated to the backing width as C does.
func enumLiteral(v cexpr.Value, backing string, hex bool) (string, error) {
	var u uint64
	if n, ok := v.Int64(); ok {
		u = uint64(n)
	} else if n, ok := v.Uint64(); ok {
		u = n
	} else {
		return "", fmt.Errorf("enum value %s is not an integer", v)
	}

	bits := backingBits[backing]
	if bits < 64 {
		u &= 1<<bits - 1
	}
	if unsignedType(backing) {
		if hex {
			return fmt.Sprintf("0x%0*X", bits/4, u), nil
		}
		return strconv.FormatUint(u, 10), nil
	}
	n := int64(u<<(64-bits)) >> (64 - bits)
	return strconv.FormatInt(n, 10), nil
}

// exceptionKind is one exception class derived from a negative result.
type exceptionKind struct {
	Constant string
	Member   string
	Class    string
	Value    int64
}

type exceptionTable struct {
	kinds   []exceptionKind
	byValue map[int64]string
	byConst map[string]string
}

// buildExceptions derives one exception kind per distinct negative value of
// the result enum. Aliases sharing a value map to the first kind.
func (s *Session) buildExceptions(en *registry.Enum, names []string, values []cexpr.Value) {
	t := &exceptionTable{byValue: map[int64]string{}, byConst: map[string]string{}}
	for i, c := range en.Values {
		n, ok := values[i].Int64()
		if !ok || n >= 0 {
			continue
		}
		if class, dup := t.byValue[n]; dup {
			t.byConst[c.Name] = class
			continue
		}
		class := names[i] + "Exception"
		t.kinds = append(t.kinds, exceptionKind{Constant: c.Name, Member: names[i], Class: class, Value: n})
		t.byValue[n] = class
		t.byConst[c.Name] = class
	}

	s.constMu.Lock()
	s.exceptions = t
	s.constMu.Unlock()
}

// ExceptionFor returns the exception class raised for status: the derived
// kind when one exists, the generic base for other negative values, and ""
// for success values.
func (s *Session) ExceptionFor(status int64) string {
	if status >= 0 {
		return ""
	}
	s.constMu.RLock()
	defer s.constMu.RUnlock()
	if s.exceptions != nil {
		if class, ok := s.exceptions.byValue[status]; ok {
			return class
		}
	}
	return s.cfg.ExceptionBase
}

// exceptionForConstant returns the class raised for the result constant
// called name, or "".
func (s *Session) exceptionForConstant(name string) string {
	s.constMu.RLock()
	defer s.constMu.RUnlock()
	if s.exceptions == nil {
		return ""
	}
	return s.exceptions.byConst[name]
}

// emitExceptions writes the base exception with its status switch and one
// sealed subclass per kind.
func (s *Session) emitExceptions() error {
	s.constMu.RLock()
	t := s.exceptions
	s.constMu.RUnlock()
	if t == nil || !s.include(s.cfg.ResultType) {
		return nil
	}

	base, result := s.cfg.ExceptionBase, s.cfg.ResultType
	u := s.namespaceUnit("Exceptions.cs")

	var w writer
	w.line("/// <summary>")
	w.line("/// Raised when a native call returns a negative %s.", result)
	w.line("/// </summary>")
	w.open("public class %s : Exception", base)
	w.line("public %s Result { get; }", result)
	w.line("")
	w.line("public %s(%s result)", base, result)
	w.line("    : base($\"native call failed with {result}\")")
	w.open("")
	w.line("Result = result;")
	w.close()
	w.line("")
	w.open("public static %s FromResult(%s result)", base, result)
	w.open("switch (result)")
	for _, k := range t.kinds {
		w.line("case %s.%s:", result, k.Member)
		w.line("    return new %s();", k.Class)
	}
	w.line("default:")
	w.line("    return new %s(result);", base)
	w.close()
	w.close()
	w.close()
	if err := u.add("0", w.String()); err != nil {
		return err
	}

	for i, k := range t.kinds {
		var w writer
		w.open("public sealed class %s : %s", k.Class, base)
		w.line("public %s()", k.Class)
		w.line("    : base(%s.%s)", result, k.Member)
		w.open("")
		w.close()
		w.close()
		if err := u.add(fmt.Sprintf("1-%04d", i), w.String()); err != nil {
			return err
		}
	}
	return nil
}

// constantTypes maps evaluated widths to C# types.
var constantTypes = map[cexpr.Width]string{
	cexpr.Int32:   "int",
	cexpr.Uint32:  "uint",
	cexpr.Int64:   "long",
	cexpr.Uint64:  "ulong",
	cexpr.Float32: "float",
	cexpr.Float64: "double",
}

// emitConstants records and emits the free-standing constants.
func (s *Session) emitConstants() error {
	free := s.reg.FreeConstants()
	if len(free) == 0 {
		return nil
	}

	used := make(map[string]bool, len(free))
	names := make([]string, len(free))
	for i, c := range free {
		name := naming.ConstantName(c.Name, s.cfg.ConstantPrefix, s.cfg.DigitMarker)
		base := name
		for n := 2; used[name]; n++ {
			name = base + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name
		s.setConstant(c.Name, "Constants."+name)
	}

	var w writer
	w.open("public static partial class Constants")
	for i, c := range free {
		if i > 0 {
			w.line("")
		}
		w.doc(c.Comment)
		w.provided(c.Extension)

		expr := strings.TrimSpace(c.Expr)
		if len(expr) >= 2 && expr[0] == '"' && expr[len(expr)-1] == '"' {
			w.line("public const string %s = %s;", names[i], expr)
			continue
		}

		v, err := cexpr.Evaluate(c.Expr, s.rawExpr)
		if err != nil {
			return fmt.Errorf("constant %s: %w", c.Name, err)
		}
		value := constantLiteral(v)
		if ref, ok := cexpr.SoleReference(c.Expr); ok {
			if target, ok := s.ConstantName(ref); ok && strings.HasPrefix(target, "Constants.") {
				value = strings.TrimPrefix(target, "Constants.")
			}
		}
		w.line("public const %s %s = %s;", constantTypes[v.Width], names[i], value)
	}
	w.close()

	return s.namespaceUnit("Constants.cs").add("0-Constants", w.String())
}

func constantLiteral(v cexpr.Value) string {
	switch v.Width {
	case cexpr.Float32:
		return v.String() + "f"
	case cexpr.Float64:
		return v.String() + "d"
	}
	return v.String()
}

// emitLibrary declares the native library name once, in the global
// command unit.
func (s *Session) emitLibrary() error {
	return s.commandUnit("Global").add("", fmt.Sprintf("public const string LibraryName = %q;", s.cfg.Library))
}
