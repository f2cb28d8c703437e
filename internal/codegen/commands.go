// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package codegen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/albertocavalcante/cabind/internal/naming"
	"github.com/albertocavalcante/cabind/internal/registry"
)

// ParamKind says how a proxy supplies one raw argument.
type ParamKind string

const (
	// ParamRaw is passed through unchanged.
	ParamRaw ParamKind = "raw"
	// ParamElided is a length computed from the arrays that name it.
	ParamElided ParamKind = "elided"
	// ParamPromoted is the trailing out-parameter returned by the proxy.
	ParamPromoted ParamKind = "promoted"
	// ParamString is a managed string copied to a native buffer.
	ParamString ParamKind = "string"
	// ParamStringArray is a managed string array copied element by element.
	ParamStringArray ParamKind = "stringArray"
	// ParamArray is a managed array pinned for the call.
	ParamArray ParamKind = "array"
	// ParamJaggedArray is a managed array of rows, each pinned for the call
	// and passed through a native table of row pointers.
	ParamJaggedArray ParamKind = "jaggedArray"
	// ParamByRef is a writable single pointer taken by reference.
	ParamByRef ParamKind = "byRef"
	// ParamByValue is a read-only struct pointer taken by value.
	ParamByValue ParamKind = "byValue"
	// ParamFixedArray is a fixed-size argument taken as its helper type.
	ParamFixedArray ParamKind = "fixedArray"
)

// PlannedParam is the proxy treatment of one raw argument.
type PlannedParam struct {
	Name string    `yaml:"name"`
	Kind ParamKind `yaml:"kind"`

	// Proxy is the proxy parameter name, or the local variable name for
	// elided and promoted arguments.
	Proxy string `yaml:"proxy"`

	// Type is the proxy parameter type, or the local's type.
	Type string `yaml:"type"`

	arg *registry.Member
}

// CommandPlan describes the proxy derived for a command.
type CommandPlan struct {
	Command  string         `yaml:"command"`
	Proxy    string         `yaml:"proxy"`
	Return   string         `yaml:"return"`
	Promoted string         `yaml:"promoted,omitempty"`
	Elided   []string       `yaml:"elided,omitempty"`
	Params   []PlannedParam `yaml:"params"`

	// Unsafe marks the proxy signature unsafe. Otherwise Wrap reports
	// whether the body needs a scoped unsafe block.
	Unsafe bool `yaml:"unsafe"`
	Wrap   bool `yaml:"wrap"`

	// Throws is set when the raw call returns the result type.
	Throws bool `yaml:"throws"`
}

// Retained returns the parameters that stay in the proxy signature.
func (p *CommandPlan) Retained() []PlannedParam {
	var out []PlannedParam
	for _, pp := range p.Params {
		if pp.Kind != ParamElided && pp.Kind != ParamPromoted {
			out = append(out, pp)
		}
	}
	return out
}

// Plan derives the proxy of cmd. It returns nil when the command does not
// follow the public naming convention.
func (s *Session) Plan(cmd *registry.Command) (*CommandPlan, error) {
	proxy := s.ProxyName(cmd.Name)
	if proxy == "" {
		return nil, nil
	}

	plan := &CommandPlan{Command: cmd.Name, Proxy: proxy}
	rawReturn := s.returnType(&cmd.Signature)
	plan.Throws = cmd.Return != nil && rawReturn == s.cfg.ResultType

	elided := s.elidedSuppliers(cmd)
	promoted := s.promotedArg(cmd, proxy, rawReturn, elided)

	used := map[string]bool{"result": true}
	for _, a := range cmd.Args {
		pp := PlannedParam{Name: a.Name, Kind: ParamRaw, arg: a}
		pp.Proxy = uniqueName(naming.ParamName(a.Name, a.Pointers), used)

		switch {
		case elided[a.Name]:
			pp.Kind = ParamElided
			pp.Type = s.RenderType(a, a.Pointers)
			plan.Elided = append(plan.Elided, a.Name)
		case a == promoted:
			pp.Kind = ParamPromoted
			pp.Type = s.RenderType(a, 1)
			plan.Promoted = a.Name
		case a.FixedSize != "":
			t, err := s.fixedArrayType(a)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %w", a.Name, err)
			}
			pp.Kind, pp.Type = ParamFixedArray, t
		case a.IsString():
			pp.Kind, pp.Type = ParamString, "string"
		case a.IsStringArray() && cmd.Arg(a.Lengths[0]) != nil:
			pp.Kind, pp.Type = ParamStringArray, "string[]"
		case s.isManagedArray(cmd, a):
			elem := s.RenderType(a, 1)
			if elem == "void" {
				elem = "byte"
			}
			pp.Kind, pp.Type = ParamArray, elem+"[]"
		case s.isJaggedArray(cmd, a):
			elem := s.RenderType(a, 2)
			if elem == "void" {
				elem = "byte"
			}
			pp.Kind, pp.Type = ParamJaggedArray, elem+"[][]"
		case s.isByRef(a):
			pp.Kind, pp.Type = ParamByRef, s.RenderType(a, 1)
		case s.isByValue(a):
			pp.Kind, pp.Type = ParamByValue, s.RenderType(a, 1)
		default:
			pp.Type = s.RenderType(a, 0)
		}
		plan.Params = append(plan.Params, pp)
	}

	switch {
	case promoted != nil:
		plan.Return = s.RenderType(promoted, 1)
	case plan.Throws:
		plan.Return = "void"
	default:
		plan.Return = rawReturn
	}

	plan.Unsafe = strings.Contains(plan.Return, "*")
	for _, pp := range plan.Retained() {
		switch {
		case strings.Contains(pp.Type, "*"):
			plan.Unsafe = true
		case pp.Kind == ParamByValue || pp.Kind == ParamByRef:
			if s.IsUnsafe(pp.arg.Type) {
				plan.Unsafe = true
			}
		}
	}
	plan.Wrap = !plan.Unsafe && s.IsUnsafe(cmd.Name)
	return plan, nil
}

func uniqueName(name string, used map[string]bool) string {
	base := name
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s%d", base, n)
	}
	used[name] = true
	return name
}

// isManagedArray reports whether a is a single pointer counted by a sibling.
func (s *Session) isManagedArray(cmd *registry.Command, a *registry.Member) bool {
	if a.Pointers != 1 || a.FixedSize != "" || len(a.Lengths) != 1 {
		return false
	}
	supplier := a.LengthSupplier()
	if supplier == "" || cmd.Arg(supplier) == nil {
		return false
	}
	return !strings.Contains(s.RenderType(a, 1), "*")
}

// isJaggedArray reports whether a is a double pointer with both
// dimensions counted by siblings.
func (s *Session) isJaggedArray(cmd *registry.Command, a *registry.Member) bool {
	if a.Pointers != 2 || a.FixedSize != "" || len(a.Lengths) != 2 {
		return false
	}
	for _, l := range a.Lengths {
		if l == registry.NullTerminated || l == a.Name || cmd.Arg(l) == nil {
			return false
		}
	}
	return !strings.Contains(s.RenderType(a, 2), "*")
}

func (s *Session) isByRef(a *registry.Member) bool {
	if a.Pointers != 1 || a.Const || a.Optional || len(a.Lengths) > 0 {
		return false
	}
	elem := s.RenderType(a, 1)
	return elem != "void" && !strings.Contains(elem, "*")
}

func (s *Session) isByValue(a *registry.Member) bool {
	if a.Pointers != 1 || !a.Const || a.Optional || len(a.Lengths) > 0 {
		return false
	}
	_, ok := s.resolve(a.Type).(*registry.Struct)
	return ok
}

// elidedSuppliers returns the arguments whose value is computed from the
// managed arrays naming them as their length. A supplier that any other
// kind of argument depends on is kept.
func (s *Session) elidedSuppliers(cmd *registry.Command) map[string]bool {
	elided := map[string]bool{}
	for _, sup := range cmd.Args {
		if sup.Pointers > 1 || sup.FixedSize != "" {
			continue
		}
		named := false
		for _, a := range cmd.Args {
			if a == sup || !a.Names(sup.Name) {
				continue
			}
			named = true
			if !s.countedBy(cmd, a, sup.Name) {
				named = false
				break
			}
		}
		if named {
			elided[sup.Name] = true
		}
	}
	return elided
}

// countedBy reports whether a is a managed array or string array whose
// length is exactly the argument called supplier, or a jagged array with
// supplier counting one of its dimensions.
func (s *Session) countedBy(cmd *registry.Command, a *registry.Member, supplier string) bool {
	if s.isJaggedArray(cmd, a) {
		return a.Names(supplier)
	}
	if a.LengthSupplier() != supplier {
		return false
	}
	if a.IsStringArray() {
		return true
	}
	return s.isManagedArray(cmd, a)
}

// promotedArg returns the trailing out-parameter a creation-style proxy
// returns, or nil.
func (s *Session) promotedArg(cmd *registry.Command, proxy, rawReturn string, elided map[string]bool) *registry.Member {
	if len(cmd.Args) == 0 {
		return nil
	}
	if rawReturn != "void" && (cmd.Return == nil || rawReturn != s.cfg.ResultType) {
		return nil
	}
	if !slices.ContainsFunc(s.cfg.CreationVerbs, func(verb string) bool {
		return strings.HasPrefix(proxy, verb)
	}) {
		return nil
	}
	last := cmd.Args[len(cmd.Args)-1]
	if last.Pointers != 1 || last.FixedSize != "" || len(last.Lengths) > 0 || last.Const || elided[last.Name] {
		return nil
	}
	if elem := s.RenderType(last, 1); elem == "void" || strings.Contains(elem, "*") {
		return nil
	}
	return last
}

// commandUnit returns the unit of a command group. Every group shares the
// partial command class.
func (s *Session) commandUnit(group string) *unit {
	return s.units.open("Commands/"+group+".cs", defaultUsings,
		"namespace "+s.cfg.Namespace,
		"public static partial class "+s.cfg.CommandClass)
}

// commandGroup names the unit of cmd after the handle type of its first
// argument.
func (s *Session) commandGroup(cmd *registry.Command) string {
	if len(cmd.Args) > 0 && cmd.Args[0].Pointers == 0 {
		if h, ok := s.resolve(cmd.Args[0].Type).(*registry.Handle); ok {
			return h.Name
		}
	}
	return "Global"
}

// emitCommand writes the raw entry point of cmd and, for public commands,
// its proxy.
func (s *Session) emitCommand(cmd *registry.Command) error {
	params, err := s.rawParams(cmd.Args)
	if err != nil {
		return err
	}
	modifiers := "public static"
	if s.IsUnsafe(cmd.Name) {
		modifiers += " unsafe"
	}

	var w writer
	w.doc(cmd.Comment)
	w.provided(cmd.Extension)
	w.line("[DllImport(LibraryName, EntryPoint = %q, CallingConvention = CallingConvention.Winapi)]", cmd.Name)
	w.line("%s extern %s %s(%s);", modifiers, s.returnType(&cmd.Signature), cmd.Name, params)

	plan, err := s.Plan(cmd)
	if err != nil {
		return err
	}
	if plan != nil {
		w.line("")
		s.writeProxy(&w, cmd, plan)
	}

	return s.commandUnit(s.commandGroup(cmd)).add(cmd.Name, w.String())
}

// writeProxy renders the body of a planned proxy: length locals and their
// consistency checks, native string copies released in a finally block,
// pinned arrays, the raw call with result checking, and the promoted
// return.
func (s *Session) writeProxy(w *writer, cmd *registry.Command, plan *CommandPlan) {
	w.doc(cmd.Comment)
	for _, class := range s.Exceptions(cmd) {
		w.line("/// <exception cref=\"%s\"/>", class)
	}

	var params []string
	for _, pp := range plan.Retained() {
		t := pp.Type
		if pp.Kind == ParamByRef {
			t = "ref " + t
		}
		params = append(params, t+" "+pp.Proxy)
	}
	modifiers := "public static"
	if plan.Unsafe {
		modifiers += " unsafe"
	}
	w.open("%s %s %s(%s)", modifiers, plan.Return, plan.Proxy, strings.Join(params, ", "))
	if plan.Wrap {
		w.open("unsafe")
	}

	byName := make(map[string]PlannedParam, len(plan.Params))
	for _, pp := range plan.Params {
		byName[pp.Name] = pp
	}

	for _, pp := range plan.Params {
		switch pp.Kind {
		case ParamElided:
			s.writeLength(w, cmd, pp, byName)
		case ParamPromoted:
			w.line("%s %s = default;", pp.Type, pp.Proxy)
		}
	}

	var natives []PlannedParam
	for _, pp := range plan.Params {
		switch pp.Kind {
		case ParamString:
			w.line("IntPtr %s = IntPtr.Zero;", local(pp, "Ptr"))
			natives = append(natives, pp)
		case ParamStringArray:
			w.line("byte** %s = null;", local(pp, "Ptr"))
			w.line("int %s = 0;", local(pp, "Count"))
			natives = append(natives, pp)
		case ParamJaggedArray:
			w.line("%s** %s = null;", jaggedElem(pp), local(pp, "Ptr"))
			w.line("GCHandle[] %s = null;", local(pp, "Pins"))
			natives = append(natives, pp)
		}
	}

	if len(natives) > 0 {
		w.open("try")
		for _, pp := range natives {
			ptr := local(pp, "Ptr")
			switch pp.Kind {
			case ParamString:
				w.line("%s = Marshal.StringToHGlobalAnsi(%s);", ptr, pp.Proxy)
				continue
			case ParamJaggedArray:
				writePinRows(w, pp)
				continue
			}
			count := local(pp, "Count")
			w.open("if (%s != null)", pp.Proxy)
			w.line("%s = (byte**)Marshal.AllocHGlobal(%s.Length * IntPtr.Size);", ptr, pp.Proxy)
			w.open("for (; %s < %s.Length; %s++)", count, pp.Proxy, count)
			w.line("%s[%s] = (byte*)Marshal.StringToHGlobalAnsi(%s[%s]);", ptr, count, pp.Proxy, count)
			w.close()
			w.close()
		}
	}

	pinned := false
	for _, pp := range plan.Params {
		switch pp.Kind {
		case ParamArray:
			w.line("fixed (%s* %s = %s)", strings.TrimSuffix(pp.Type, "[]"), local(pp, "Ptr"), pp.Proxy)
			pinned = true
		case ParamByRef:
			w.line("fixed (%s* %s = &%s)", pp.Type, local(pp, "Ptr"), pp.Proxy)
			pinned = true
		}
	}
	if pinned {
		w.open("")
	}

	call := fmt.Sprintf("%s(%s)", cmd.Name, strings.Join(callArgs(plan), ", "))
	switch {
	case plan.Throws:
		w.line("%s result = %s;", s.cfg.ResultType, call)
		w.open("if (result < 0)")
		w.line("throw %s.FromResult(result);", s.cfg.ExceptionBase)
		w.close()
	case plan.Return == "void" || plan.Promoted != "":
		w.line("%s;", call)
	default:
		w.line("return %s;", call)
	}

	if pinned {
		w.close()
	}

	if len(natives) > 0 {
		w.close()
		w.open("finally")
		for _, pp := range natives {
			ptr := local(pp, "Ptr")
			switch pp.Kind {
			case ParamString:
				w.line("Marshal.FreeHGlobal(%s);", ptr)
				continue
			case ParamJaggedArray:
				writeUnpinRows(w, pp)
				continue
			}
			index := local(pp, "Index")
			w.open("for (int %s = 0; %s < %s; %s++)", index, index, local(pp, "Count"), index)
			w.line("Marshal.FreeHGlobal((IntPtr)%s[%s]);", ptr, index)
			w.close()
			w.open("if (%s != null)", ptr)
			w.line("Marshal.FreeHGlobal((IntPtr)%s);", ptr)
			w.close()
		}
		w.close()
	}

	for _, pp := range plan.Params {
		if pp.Kind == ParamPromoted {
			w.line("return %s;", pp.Proxy)
		}
	}

	if plan.Wrap {
		w.close()
	}
	w.close()
}

// lengthSource is one array dimension counted by an elided supplier.
type lengthSource struct {
	pp  PlannedParam
	dim int
}

// measure returns the managed expression for the dimension's length.
// Rows are measured by the first one; the rest are checked separately.
func (src lengthSource) measure() string {
	name := src.pp.Proxy
	switch {
	case src.dim == 0 && src.pp.arg.Optional:
		return fmt.Sprintf("(%s?.Length ?? 0)", name)
	case src.dim == 0:
		return name + ".Length"
	case src.pp.arg.Optional:
		return fmt.Sprintf("(%s != null && %s.Length > 0 ? %s[0].Length : 0)", name, name, name)
	default:
		return fmt.Sprintf("(%s.Length > 0 ? %s[0].Length : 0)", name, name)
	}
}

// lengthSources lists the dimensions counted by sup, in argument order.
// Only jagged arrays contribute an inner dimension.
func lengthSources(cmd *registry.Command, sup string, byName map[string]PlannedParam) []lengthSource {
	var out []lengthSource
	for _, a := range cmd.Args {
		pp := byName[a.Name]
		for dim, l := range a.Lengths {
			if l == sup && (dim == 0 || pp.Kind == ParamJaggedArray) {
				out = append(out, lengthSource{pp: pp, dim: dim})
			}
		}
	}
	return out
}

// writeLength declares the local standing in for an elided supplier. Its
// value comes from the first non-optional dimension counted by it; every
// other dimension must agree at call time, and so must every row of a
// jagged array.
func (s *Session) writeLength(w *writer, cmd *registry.Command, sup PlannedParam, byName map[string]PlannedParam) {
	sources := lengthSources(cmd, sup.Name, byName)
	if i := slices.IndexFunc(sources, func(src lengthSource) bool { return !src.pp.arg.Optional }); i > 0 {
		sources[0], sources[i] = sources[i], sources[0]
	}

	first := sources[0]
	w.line("%s %s = (%s)%s;", sup.Type, sup.Proxy, sup.Type, first.measure())

	firstName := strings.TrimPrefix(first.pp.Proxy, "@")
	if first.dim > 0 {
		firstName = "each row of " + firstName
	}
	for i, src := range sources {
		if src.dim > 0 {
			writeRowCheck(w, src.pp, sup)
			continue
		}
		if i == 0 {
			continue
		}
		cond := fmt.Sprintf("%s.Length != (int)%s", src.pp.Proxy, sup.Proxy)
		if src.pp.arg.Optional {
			cond = fmt.Sprintf("%s != null && %s", src.pp.Proxy, cond)
		}
		w.open("if (%s)", cond)
		w.line("throw new ArgumentException(\"%s must have the same length as %s\", nameof(%s));",
			strings.TrimPrefix(src.pp.Proxy, "@"), firstName, src.pp.Proxy)
		w.close()
	}
}

// writeRowCheck verifies that every row of a jagged array has the length
// held by sup.
func writeRowCheck(w *writer, pp, sup PlannedParam) {
	if pp.arg.Optional {
		w.open("if (%s != null)", pp.Proxy)
	}
	row := local(pp, "Row")
	w.open("foreach (var %s in %s)", row, pp.Proxy)
	w.open("if ((%s?.Length ?? 0) != (int)%s)", row, sup.Proxy)
	w.line("throw new ArgumentException(\"every row of %s must have the same length\", nameof(%s));",
		strings.TrimPrefix(pp.Proxy, "@"), pp.Proxy)
	w.close()
	w.close()
	if pp.arg.Optional {
		w.close()
	}
}

// jaggedElem returns the element type of a jagged array parameter.
func jaggedElem(pp PlannedParam) string {
	return strings.TrimSuffix(pp.Type, "[][]")
}

// writePinRows pins every row of a jagged array and fills the native row
// table.
func writePinRows(w *writer, pp PlannedParam) {
	ptr, pins, index := local(pp, "Ptr"), local(pp, "Pins"), local(pp, "Index")
	elem := jaggedElem(pp)
	w.open("if (%s != null)", pp.Proxy)
	w.line("%s = (%s**)Marshal.AllocHGlobal(%s.Length * IntPtr.Size);", ptr, elem, pp.Proxy)
	w.line("%s = new GCHandle[%s.Length];", pins, pp.Proxy)
	w.open("for (int %s = 0; %s < %s.Length; %s++)", index, index, pp.Proxy, index)
	w.line("%s[%s] = GCHandle.Alloc(%s[%s], GCHandleType.Pinned);", pins, index, pp.Proxy, index)
	w.line("%s[%s] = (%s*)%s[%s].AddrOfPinnedObject();", ptr, index, elem, pins, index)
	w.close()
	w.close()
}

// writeUnpinRows releases what writePinRows acquired, including after a
// partial failure.
func writeUnpinRows(w *writer, pp PlannedParam) {
	ptr, pins, index := local(pp, "Ptr"), local(pp, "Pins"), local(pp, "Index")
	w.open("if (%s != null)", pins)
	w.open("for (int %s = 0; %s < %s.Length; %s++)", index, index, pins, index)
	w.open("if (%s[%s].IsAllocated)", pins, index)
	w.line("%s[%s].Free();", pins, index)
	w.close()
	w.close()
	w.close()
	w.open("if (%s != null)", ptr)
	w.line("Marshal.FreeHGlobal((IntPtr)%s);", ptr)
	w.close()
}

// callArgs returns the raw call arguments of a planned proxy.
func callArgs(plan *CommandPlan) []string {
	args := make([]string, len(plan.Params))
	for i, pp := range plan.Params {
		switch pp.Kind {
		case ParamElided:
			if pp.arg.Pointers > 0 {
				args[i] = "&" + pp.Proxy
			} else {
				args[i] = pp.Proxy
			}
		case ParamPromoted, ParamByValue, ParamFixedArray:
			args[i] = "&" + pp.Proxy
		case ParamString:
			args[i] = "(byte*)" + local(pp, "Ptr")
		case ParamStringArray, ParamJaggedArray, ParamArray, ParamByRef:
			args[i] = local(pp, "Ptr")
		default:
			args[i] = pp.Proxy
		}
	}
	return args
}

// local derives a helper variable name from a proxy parameter.
func local(pp PlannedParam, suffix string) string {
	return strings.TrimPrefix(pp.Proxy, "@") + suffix
}

// Exceptions lists the exception classes cmd may throw, in the
// order its error codes are declared.
func (s *Session) Exceptions(cmd *registry.Command) []string {
	var out []string
	for _, code := range cmd.ErrorCodes {
		class := s.exceptionForConstant(code)
		if class != "" && !slices.Contains(out, class) {
			out = append(out, class)
		}
	}
	return out
}
