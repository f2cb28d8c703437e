// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package model

import (
	"fmt"
	"strings"

	"github.com/albertocavalcante/cabind/internal/registry"
)

// MalformedInputError reports input that does not follow the expected
// grammar. It is fatal for the run.
type MalformedInputError struct {
	// Name is the declaration being read.
	Name string

	// Text is the offending input fragment.
	Text string

	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed %s: %s (in %q)", e.Name, e.Reason, e.Text)
}

// ParsePrototype reads a C function pointer typedef such as
//
//	typedef void* (VKAPI_PTR *PFN_vkAllocationFunction)(void* pUserData, size_t size);
//
// and returns the typedef name with its signature. The text is scanned from
// the end: the trailing parenthesised group is the argument list, the group
// before it holds the name, and what precedes that is the return type.
func ParsePrototype(text string) (string, *registry.Signature, error) {
	src := strings.TrimSpace(text)
	src = strings.TrimSuffix(src, ";")
	src = strings.TrimSpace(src)
	src = strings.TrimPrefix(src, "typedef")

	fail := func(name, reason string) (string, *registry.Signature, error) {
		return "", nil, &MalformedInputError{Name: name, Text: text, Reason: reason}
	}

	argsOpen, err := openingParen(src, len(src)-1)
	if err != nil {
		return fail("prototype", "argument list: "+err.Error())
	}
	argText := src[argsOpen+1 : len(src)-1]
	head := strings.TrimSpace(src[:argsOpen])

	nameOpen, err := openingParen(head, len(head)-1)
	if err != nil {
		return fail("prototype", "name group: "+err.Error())
	}
	nameGroup := head[nameOpen+1 : len(head)-1]
	star := strings.LastIndexByte(nameGroup, '*')
	if star < 0 {
		return fail("prototype", "name group has no '*'")
	}
	name := strings.TrimSpace(nameGroup[star+1:])
	if !isIdent(name) {
		return fail("prototype", "missing typedef name")
	}

	ret, err := parseDecl(strings.TrimSpace(head[:nameOpen]), false)
	if err != nil {
		return fail(name, "return type: "+err.Error())
	}
	sig := &registry.Signature{Return: ret}

	parts, err := splitArgs(argText)
	if err != nil {
		return fail(name, err.Error())
	}
	if len(parts) == 1 && strings.TrimSpace(parts[0]) == "void" {
		parts = nil
	}
	for _, p := range parts {
		m, err := parseDecl(strings.TrimSpace(p), true)
		if err != nil {
			return fail(name, "argument "+strings.TrimSpace(p)+": "+err.Error())
		}
		sig.Args = append(sig.Args, m)
	}
	return name, sig, nil
}

// openingParen returns the index of the '(' matching the ')' at end.
func openingParen(s string, end int) (int, error) {
	if end < 0 || s[end] != ')' {
		return 0, fmt.Errorf("expected ')' at end")
	}
	depth := 0
	for i := end; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced parentheses")
}

// splitArgs splits at top-level commas.
func splitArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced brackets")
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets")
	}
	parts = append(parts, s[start:])
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("empty argument")
		}
	}
	return parts, nil
}

// parseDecl reads "const T* const* name[N]". The name is required when
// named is set.
func parseDecl(s string, named bool) (*registry.Member, error) {
	m := &registry.Member{}

	if open := strings.IndexByte(s, '['); open >= 0 {
		if !strings.HasSuffix(s, "]") {
			return nil, fmt.Errorf("unterminated array size")
		}
		m.FixedSize = strings.TrimSpace(s[open+1 : len(s)-1])
		if m.FixedSize == "" {
			return nil, fmt.Errorf("empty array size")
		}
		s = s[:open]
	}

	m.Pointers = strings.Count(s, "*")
	fields := strings.Fields(strings.ReplaceAll(s, "*", " "))

	var idents []string
	for _, f := range fields {
		switch f {
		case "const":
			m.Const = true
		case "struct", "enum", "union":
		default:
			if !isIdent(f) {
				return nil, fmt.Errorf("unexpected token %q", f)
			}
			idents = append(idents, f)
		}
	}

	if named {
		if len(idents) < 2 {
			return nil, fmt.Errorf("missing type token")
		}
		m.Name = idents[len(idents)-1]
		idents = idents[:len(idents)-1]
	}
	if len(idents) != 1 {
		return nil, fmt.Errorf("expected one type token, got %d", len(idents))
	}
	m.Type = idents[0]
	return m, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
