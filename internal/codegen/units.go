// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package codegen

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
)

const indent = "    "

// unit is one output file. Declarations are added as fragments and laid
// out when the unit is closed: header, usings, the opened scopes, the
// fragments sorted by key, then one closing brace per scope.
type unit struct {
	name   string
	header string
	usings []string
	scopes []string

	mu        sync.Mutex
	fragments *treemap.Map
	closed    bool
	out       []byte
}

// add stores a fragment under key. Fragment text is written at depth zero;
// the unit indents it to the scope depth on close.
func (u *unit) add(key, text string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return fmt.Errorf("unit %s: add %s after close", u.name, key)
	}
	if _, found := u.fragments.Get(key); found {
		return fmt.Errorf("unit %s: duplicate declaration %s", u.name, key)
	}
	u.fragments.Put(key, text)
	return nil
}

// close renders the unit and unwinds every scope. Later calls return the
// same bytes.
func (u *unit) close() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return u.out
	}
	u.closed = true

	var buf bytes.Buffer
	buf.WriteString(u.header)
	for _, using := range u.usings {
		fmt.Fprintf(&buf, "using %s;\n", using)
	}
	if len(u.usings) > 0 {
		buf.WriteString("\n")
	}

	for depth, scope := range u.scopes {
		prefix := strings.Repeat(indent, depth)
		fmt.Fprintf(&buf, "%s%s\n%s{\n", prefix, scope, prefix)
	}

	depth := len(u.scopes)
	first := true
	it := u.fragments.Iterator()
	for it.Next() {
		if !first {
			buf.WriteString("\n")
		}
		first = false
		writeIndented(&buf, it.Value().(string), depth)
	}

	for depth := len(u.scopes) - 1; depth >= 0; depth-- {
		fmt.Fprintf(&buf, "%s}\n", strings.Repeat(indent, depth))
	}

	u.out = buf.Bytes()
	return u.out
}

func writeIndented(buf *bytes.Buffer, text string, depth int) {
	prefix := strings.Repeat(indent, depth)
	for line := range strings.SplitSeq(strings.TrimRight(text, "\n"), "\n") {
		if line == "" {
			buf.WriteString("\n")
			continue
		}
		buf.WriteString(prefix + line + "\n")
	}
}

// unitSet opens each unit once and keeps them sorted by file name.
type unitSet struct {
	mu     sync.Mutex
	header string
	units  *treemap.Map
}

func newUnitSet(header string) *unitSet {
	return &unitSet{header: header, units: treemap.NewWithStringComparator()}
}

// open returns the unit called name, creating it with the given usings and
// scopes on first access. Later calls reuse the unit and ignore the
// arguments.
func (us *unitSet) open(name string, usings []string, scopes ...string) *unit {
	us.mu.Lock()
	defer us.mu.Unlock()
	if u, found := us.units.Get(name); found {
		return u.(*unit)
	}
	u := &unit{
		name:      name,
		header:    us.header,
		usings:    usings,
		scopes:    scopes,
		fragments: treemap.NewWithStringComparator(),
	}
	us.units.Put(name, u)
	return u
}

// closeAll closes every unit and returns the rendered files.
func (us *unitSet) closeAll() map[string][]byte {
	us.mu.Lock()
	defer us.mu.Unlock()
	files := make(map[string][]byte, us.units.Size())
	it := us.units.Iterator()
	for it.Next() {
		files[it.Key().(string)] = it.Value().(*unit).close()
	}
	return files
}

// names returns the open unit names in order.
func (us *unitSet) names() []string {
	us.mu.Lock()
	defer us.mu.Unlock()
	var names []string
	for _, k := range us.units.Keys() {
		names = append(names, k.(string))
	}
	return names
}

// writer builds a fragment with brace-delimited blocks.
type writer struct {
	buf   bytes.Buffer
	depth int
}

func (w *writer) line(format string, args ...any) {
	if format == "" {
		w.buf.WriteString("\n")
		return
	}
	w.buf.WriteString(strings.Repeat(indent, w.depth))
	fmt.Fprintf(&w.buf, format, args...)
	w.buf.WriteString("\n")
}

// open writes header and an opening brace. An empty header opens a bare
// block.
func (w *writer) open(header string, args ...any) {
	if header != "" {
		w.line(header, args...)
	}
	w.line("{")
	w.depth++
}

func (w *writer) close() {
	w.depth--
	w.line("}")
}

// doc writes a summary comment. Nothing is written for empty text.
func (w *writer) doc(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	w.line("/// <summary>")
	for line := range strings.SplitSeq(text, "\n") {
		w.line("/// %s", xmlEscaper.Replace(strings.TrimSpace(line)))
	}
	w.line("/// </summary>")
}

// provided writes the extension attribution of a declaration.
func (w *writer) provided(extension string) {
	if extension != "" {
		w.line("// Provided by %s", extension)
	}
}

func (w *writer) String() string { return w.buf.String() }

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
