// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package codegen synthesizes C# bindings from a frozen registry.
//
// A [Session] holds everything one run learns along the way: the rendered
// name of every constant, the exception kinds derived from the result
// enum, the helper types emulating fixed arrays, the unsafety memo and the
// open output units. Generation runs in two passes. The first, serial,
// emits enums and free constants and so fills the constant table. The
// second emits every other entity concurrently and only reads that table.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/albertocavalcante/cabind/internal/logutil"
	"github.com/albertocavalcante/cabind/internal/naming"
	"github.com/albertocavalcante/cabind/internal/registry"
)

var defaultUsings = []string{"System", "System.Runtime.InteropServices"}

// Session is the state of one synthesis run.
type Session struct {
	reg    *registry.Registry
	cfg    Config
	prims  map[string]string
	filter map[string]bool

	// constMu guards constants and exceptions. Both are complete once the
	// first pass returns.
	constMu    sync.RWMutex
	constants  map[string]string
	exceptions *exceptionTable

	dummyMu sync.Mutex
	dummies map[dummyKey]string

	unsafeMu sync.Mutex
	unsafe   map[string]bool

	units *unitSet
}

// New creates a session for reg. The registry must not change while the
// session runs.
func New(reg *registry.Registry, cfg Config) *Session {
	prims := maps.Clone(defaultPrimitives)
	maps.Copy(prims, cfg.Primitives)

	s := &Session{
		reg:       reg,
		cfg:       cfg,
		prims:     prims,
		constants: make(map[string]string),
		dummies:   make(map[dummyKey]string),
		unsafe:    make(map[string]bool),
		units:     newUnitSet(fileHeader(cfg)),
	}
	if len(cfg.Types) > 0 {
		s.filter = make(map[string]bool, len(cfg.Types))
		for _, t := range cfg.Types {
			s.filter[t] = true
		}
		s.includeResultType()
	}
	return s
}

// includeResultType adds the result enum to the filter when a listed
// command returns it. Proxies of such commands throw the exceptions
// derived from that enum.
func (s *Session) includeResultType() {
	for name := range s.filter {
		cmd, ok := s.reg.Lookup(name).(*registry.Command)
		if ok && cmd.Return != nil && s.returnType(&cmd.Signature) == s.cfg.ResultType {
			s.filter[s.cfg.ResultType] = true
			return
		}
	}
}

func (s *Session) include(name string) bool {
	return s.filter == nil || s.filter[name]
}

// Generate emits every entity and returns the rendered files keyed by
// relative path. Output units are closed on every path, including errors;
// on error no files are returned.
func (s *Session) Generate(ctx context.Context) (files map[string][]byte, err error) {
	defer func() {
		rendered := s.units.closeAll()
		if err == nil {
			files = rendered
		}
	}()

	if err := s.checkAliases(); err != nil {
		return nil, err
	}

	if err := s.firstPass(); err != nil {
		return nil, err
	}

	if err := s.secondPass(ctx); err != nil {
		return nil, err
	}

	slog.Debug("synthesis complete", "units", len(s.units.names()), "dummies", len(s.dummies))
	return nil, nil
}

// checkAliases rejects alias cycles up front. Unknown targets are fine:
// they render as opaque handles.
func (s *Session) checkAliases() error {
	for _, a := range registry.All[*registry.Alias](s.reg) {
		if _, err := s.reg.ResolveAlias(a.Name); err != nil && !registry.IsUnresolved(err) {
			return err
		}
	}
	return nil
}

// firstPass fills the constant table from every enum and free constant and
// emits them with the exception hierarchy.
func (s *Session) firstPass() error {
	enums := s.reg.Enums()
	for _, en := range enums {
		if err := s.emitEnum(en); err != nil {
			return fmt.Errorf("enum %s: %w", en.Name, err)
		}
	}
	if err := s.emitConstants(); err != nil {
		return err
	}
	if err := s.emitExceptions(); err != nil {
		return err
	}
	if err := s.emitLibrary(); err != nil {
		return fmt.Errorf("library name: %w", err)
	}
	slog.Debug("first pass", "enums", len(enums), "constants", len(s.constants))
	return nil
}

// secondPass emits the remaining entities concurrently.
func (s *Session) secondPass(ctx context.Context) error {
	limit := s.cfg.Parallel
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	em := &emitter{s: s}
	n := 0
	for _, e := range s.reg.Entities() {
		switch e.Kind() {
		case registry.KindPrimitive, registry.KindAlias, registry.KindEnum:
			continue
		}
		if !s.include(e.Info().Name) {
			continue
		}
		n++
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			logutil.Trace("emitting", "kind", e.Kind(), "name", e.Info().Name)
			if err := registry.Visit(e, em); err != nil {
				return fmt.Errorf("%s %s: %w", e.Kind(), e.Info().Name, err)
			}
			return nil
		})
	}
	err := g.Wait()
	slog.Debug("second pass", "entities", n, "limit", limit)
	return err
}

// emitter dispatches second pass emission. Enums were handled by the first
// pass; primitives and aliases produce no output.
type emitter struct {
	s *Session
}

func (em *emitter) VisitPrimitive(*registry.Primitive) error { return nil }
func (em *emitter) VisitAlias(*registry.Alias) error         { return nil }
func (em *emitter) VisitEnum(*registry.Enum) error           { return nil }

func (em *emitter) VisitStruct(st *registry.Struct) error { return em.s.emitStruct(st) }
func (em *emitter) VisitHandle(h *registry.Handle) error  { return em.s.emitHandle(h) }

func (em *emitter) VisitFuncPointer(fp *registry.FuncPointer) error {
	return em.s.emitDelegate(fp)
}

func (em *emitter) VisitCommand(c *registry.Command) error { return em.s.emitCommand(c) }

// ConstantName returns the rendered, qualified name of a constant.
func (s *Session) ConstantName(name string) (string, bool) {
	s.constMu.RLock()
	defer s.constMu.RUnlock()
	v, ok := s.constants[name]
	return v, ok
}

func (s *Session) setConstant(name, rendered string) {
	s.constMu.Lock()
	defer s.constMu.Unlock()
	s.constants[name] = rendered
}

// rawExpr resolves {NAME} markers for the expression evaluator.
func (s *Session) rawExpr(name string) (string, bool) {
	c := s.reg.Constant(name)
	if c == nil {
		return "", false
	}
	return c.Expr, true
}

// ProxyName returns the proxy method name of a command, or "" when the
// command gets no proxy.
func (s *Session) ProxyName(command string) string {
	if !naming.IsPublic(command, s.cfg.ProxyPrefix) {
		return ""
	}
	return naming.ProxyName(command, s.cfg.ProxyPrefix, s.cfg.RecordingPrefix)
}

// UnitFor returns the output unit e is emitted into, or "" for entities
// that produce no declaration of their own.
func (s *Session) UnitFor(e registry.Entity) string {
	switch e := e.(type) {
	case *registry.Enum:
		return "Enums/" + e.Name + ".cs"
	case *registry.Struct:
		if e.Union {
			return "Unions/" + e.Name + ".cs"
		}
		return "Structs/" + e.Name + ".cs"
	case *registry.Handle:
		return "Handles/" + e.Name + ".cs"
	case *registry.FuncPointer:
		return "Delegates/" + e.Name + ".cs"
	case *registry.Command:
		return "Commands/" + s.commandGroup(e) + ".cs"
	}
	return ""
}

func (s *Session) namespaceUnit(name string) *unit {
	return s.units.open(name, defaultUsings, "namespace "+s.cfg.Namespace)
}

func fileHeader(cfg Config) string {
	lines := []string{"// Code generated by cabind. DO NOT EDIT."}
	if cfg.Source != "" {
		lines = append(lines, fmt.Sprintf("// Source: %s", cfg.Source))
	}
	if cfg.Ref != "" {
		lines = append(lines, fmt.Sprintf("// Ref: %s", cfg.Ref))
	}
	if cfg.CommitHash != "" {
		lines = append(lines, fmt.Sprintf("// Commit: %s", cfg.CommitHash))
	}
	if cfg.Version != "" {
		lines = append(lines, fmt.Sprintf("// Version: %s", cfg.Version))
	}
	return strings.Join(lines, "\n") + "\n\n"
}

// InvariantViolationError reports a registry claim that does not hold,
// such as a nullable struct with a member that has no null value.
type InvariantViolationError struct {
	Entity string
	Member string
	Reason string
}

func (e *InvariantViolationError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", e.Entity, e.Member, e.Reason)
}

// IsInvariantViolation reports whether err wraps an *InvariantViolationError.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolationError
	return errors.As(err, &iv)
}
