// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package cexpr evaluates the C constant expressions found in registry
// documents: integer and floating literals with width suffixes, bit
// shifts, arithmetic, and references to other constants written {NAME}.
package cexpr

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Width is the C type an expression evaluates to, taken from the widest
// literal suffix it contains.
type Width int

const (
	Int32 Width = iota
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

var widthNames = [...]string{"int32", "uint32", "int64", "uint64", "float32", "float64"}

func (w Width) String() string { return widthNames[w] }

// Unsigned reports whether w is an unsigned integer width.
func (w Width) Unsigned() bool { return w == Uint32 || w == Uint64 }

// Float reports whether w is a floating point width.
func (w Width) Float() bool { return w == Float32 || w == Float64 }

func (w Width) bits() uint {
	if w == Int32 || w == Uint32 || w == Float32 {
		return 32
	}
	return 64
}

// widen returns the width that can hold both w and o.
func (w Width) widen(o Width) Width {
	switch {
	case w.Float() || o.Float():
		return max(w, o, Float32)
	case w.bits() != o.bits():
		if w.bits() == 64 {
			return w
		}
		return o
	case w.Unsigned():
		return w
	default:
		return o
	}
}

// Value is the result of an evaluation.
type Value struct {
	Width Width
	v     constant.Value
}

// Int64 returns the value as a signed integer.
func (v Value) Int64() (int64, bool) {
	if v.Width.Float() {
		return 0, false
	}
	return constant.Int64Val(v.v)
}

// Uint64 returns the value as an unsigned integer.
func (v Value) Uint64() (uint64, bool) {
	if v.Width.Float() {
		return 0, false
	}
	return constant.Uint64Val(v.v)
}

// Float64 returns the value as a float, converting integers.
func (v Value) Float64() float64 {
	f, _ := constant.Float64Val(constant.ToFloat(v.v))
	return f
}

// Negative reports whether the value is below zero.
func (v Value) Negative() bool {
	return constant.Sign(v.v) < 0
}

// String formats the value as a decimal literal without suffix.
func (v Value) String() string {
	if v.Width.Float() {
		bits := 64
		if v.Width == Float32 {
			bits = 32
		}
		return strconv.FormatFloat(v.Float64(), 'g', -1, bits)
	}
	return v.v.ExactString()
}

// Resolver returns the raw expression of the constant called name.
type Resolver func(name string) (expr string, ok bool)

// maxDepth bounds nested constant references.
const maxDepth = 64

var refPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Substitute replaces every {NAME} marker in expr with the parenthesised raw
// expression of NAME, recursively.
func Substitute(expr string, resolve Resolver) (string, error) {
	return substitute(expr, resolve, nil)
}

func substitute(expr string, resolve Resolver, stack []string) (string, error) {
	if len(stack) > maxDepth {
		return "", fmt.Errorf("references nested deeper than %d", maxDepth)
	}
	var err error
	out := refPattern.ReplaceAllStringFunc(expr, func(m string) string {
		if err != nil {
			return m
		}
		name := m[1 : len(m)-1]
		for _, s := range stack {
			if s == name {
				err = fmt.Errorf("constant %s refers to itself", name)
				return m
			}
		}
		raw, ok := resolve(name)
		if !ok {
			err = fmt.Errorf("unknown constant %s", name)
			return m
		}
		var inner string
		inner, err = substitute(raw, resolve, append(stack, name))
		return "(" + inner + ")"
	})
	return out, err
}

// SoleReference reports the constant name when expr consists of a single
// reference and nothing else.
func SoleReference(expr string) (string, bool) {
	trimmed := strings.TrimSpace(expr)
	m := refPattern.FindStringSubmatchIndex(trimmed)
	if m == nil || m[0] != 0 || m[1] != len(trimmed) {
		return "", false
	}
	return trimmed[m[2]:m[3]], true
}

// Evaluate computes expr. Constant references are substituted with their
// raw expressions before evaluation; resolve may be nil when expr has none.
func Evaluate(expr string, resolve Resolver) (Value, error) {
	if resolve == nil {
		resolve = func(string) (string, bool) { return "", false }
	}
	full, err := Substitute(expr, resolve)
	if err != nil {
		return Value{}, &ExpressionEvaluationError{Expr: expr, Err: err}
	}

	stripped, width := stripSuffixes(full)

	if n, err := strconv.ParseInt(strings.TrimSpace(stripped), 0, 64); err == nil {
		return fit(Value{Width: width, v: constant.MakeInt64(n)}), nil
	}

	v, err := evalArith(stripped)
	if err != nil {
		return Value{}, &ExpressionEvaluationError{Expr: expr, Err: err}
	}
	if v.Kind() == constant.Float && !width.Float() {
		width = Float64
	}
	return fit(Value{Width: width, v: v}), nil
}

// fit wraps negative integers into unsigned widths, as C does.
func fit(v Value) Value {
	if !v.Width.Unsigned() || !v.Negative() {
		return v
	}
	mod := constant.Shift(constant.MakeInt64(1), token.SHL, v.Width.bits())
	v.v = constant.BinaryOp(v.v, token.ADD, mod)
	for constant.Sign(v.v) < 0 {
		v.v = constant.BinaryOp(v.v, token.ADD, mod)
	}
	return v
}

var (
	hexLiteral = regexp.MustCompile(`\b(0[xX][0-9a-fA-F]+)([uUlL]+)\b`)
	decLiteral = regexp.MustCompile(`\b([0-9]+(?:\.[0-9]*)?(?:[eE][+-]?[0-9]+)?|\.[0-9]+(?:[eE][+-]?[0-9]+)?)([uUlLfFdD]+)\b`)
	floatLit   = regexp.MustCompile(`[0-9]\.[0-9]*|\.[0-9]|[0-9][eE][+-]?[0-9]`)
	hexAny     = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)
)

// stripSuffixes removes C literal suffixes and returns the widest width
// they imply. Unsuffixed floating literals are doubles.
func stripSuffixes(expr string) (string, Width) {
	width := Int32
	replace := func(re *regexp.Regexp, s string) string {
		return re.ReplaceAllStringFunc(s, func(m string) string {
			parts := re.FindStringSubmatch(m)
			width = width.widen(suffixWidth(parts[2]))
			return parts[1]
		})
	}
	expr = replace(hexLiteral, expr)
	expr = replace(decLiteral, expr)
	if !width.Float() && floatLit.MatchString(hexAny.ReplaceAllString(expr, "0")) {
		width = Float64
	}
	return expr, width
}

func suffixWidth(suffix string) Width {
	s := strings.ToUpper(suffix)
	switch {
	case s == "F":
		return Float32
	case s == "D":
		return Float64
	case strings.Contains(s, "U") && strings.Contains(s, "L"):
		return Uint64
	case strings.Contains(s, "U"):
		return Uint32
	case strings.Contains(s, "L"):
		return Int64
	}
	return Int32
}

// evalArith evaluates a suffix-free C arithmetic expression. The C bitwise
// complement '~' is spelled '^' in the parsed form.
func evalArith(expr string) (constant.Value, error) {
	e, err := parser.ParseExpr(strings.ReplaceAll(expr, "~", "^"))
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return eval(e)
}

func eval(e ast.Expr) (constant.Value, error) {
	switch e := e.(type) {
	case *ast.BasicLit:
		v := constant.MakeFromLiteral(e.Value, e.Kind, 0)
		if v.Kind() == constant.Unknown {
			return nil, fmt.Errorf("bad literal %s", e.Value)
		}
		return v, nil

	case *ast.ParenExpr:
		return eval(e.X)

	case *ast.UnaryExpr:
		x, err := eval(e.X)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case token.ADD, token.SUB, token.XOR:
			if e.Op == token.XOR && x.Kind() != constant.Int {
				return nil, fmt.Errorf("complement of non-integer")
			}
			return constant.UnaryOp(e.Op, x, 0), nil
		case token.NOT:
			if constant.Sign(x) == 0 {
				return constant.MakeInt64(1), nil
			}
			return constant.MakeInt64(0), nil
		}
		return nil, fmt.Errorf("unsupported unary operator %s", e.Op)

	case *ast.BinaryExpr:
		x, err := eval(e.X)
		if err != nil {
			return nil, err
		}
		y, err := eval(e.Y)
		if err != nil {
			return nil, err
		}
		return binary(e.Op, x, y)
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

func binary(op token.Token, x, y constant.Value) (constant.Value, error) {
	bothInt := x.Kind() == constant.Int && y.Kind() == constant.Int
	switch op {
	case token.SHL, token.SHR:
		if !bothInt {
			return nil, fmt.Errorf("shift of non-integer")
		}
		s, ok := constant.Uint64Val(y)
		if !ok || s > math.MaxUint16 {
			return nil, fmt.Errorf("bad shift count %s", y)
		}
		return constant.Shift(x, op, uint(s)), nil

	case token.QUO, token.REM:
		if constant.Sign(y) == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		if op == token.QUO && bothInt {
			op = token.QUO_ASSIGN // integer division
		}
		if op == token.REM && !bothInt {
			return nil, fmt.Errorf("remainder of non-integer")
		}
		return constant.BinaryOp(x, op, y), nil

	case token.AND, token.OR, token.XOR, token.AND_NOT:
		if !bothInt {
			return nil, fmt.Errorf("bitwise operation on non-integer")
		}
		return constant.BinaryOp(x, op, y), nil

	case token.ADD, token.SUB, token.MUL:
		return constant.BinaryOp(x, op, y), nil
	}
	return nil, fmt.Errorf("unsupported operator %s", op)
}

// ExpressionEvaluationError reports a constant expression that cannot be
// evaluated.
type ExpressionEvaluationError struct {
	Expr string
	Err  error
}

func (e *ExpressionEvaluationError) Error() string {
	return fmt.Sprintf("evaluate %q: %v", e.Expr, e.Err)
}

func (e *ExpressionEvaluationError) Unwrap() error { return e.Err }
