/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package engine satisfies the imports of composable parts.
//
// An Engine resolves each import of a part against its source provider,
// prerequisite imports first, and binds the matches with SetImport. Parts
// registered for recomposition have their recomposable imports re-resolved
// whenever the source reports a change to a contract they import.
package engine

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/internal/lock"
	"dirpx.dev/mef/internal/telemetry"
	"dirpx.dev/mef/primitives"
)

// DefaultMaxDepth bounds how many parts may be satisfied inside one another.
const DefaultMaxDepth = 100

var (
	// ErrNilSource is returned by SetSourceProvider for a nil provider.
	ErrNilSource = errors.New("mef(engine): nil source provider")
	// ErrSourceNotSet is returned when the engine is used before
	// SetSourceProvider.
	ErrSourceNotSet = errors.New("mef(engine): source provider not set")
	// ErrSourceAlreadySet is returned by a second SetSourceProvider.
	ErrSourceAlreadySet = errors.New("mef(engine): source provider already set")
)

// composition serializes import satisfaction across every engine. A chain
// of nested satisfactions runs on one goroutine and may re-enter it; other
// goroutines wait until the chain is done, so they never observe a part that
// is half satisfied. One lock for all engines keeps chains that cross
// engines, such as a container and its parent, free of lock order cycles.
var composition lock.Recursive

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger; the default discards.
func WithLogger(l logr.Logger) Option {
	return func(e *Engine) { e.tel = e.tel.WithLogger(l, "engine") }
}

// WithTracerProvider sets the tracer provider; the default records nothing.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tel = e.tel.WithTracerProvider(tp) }
}

// WithMaxDepth bounds nested satisfaction. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// Engine satisfies imports and tracks recomposable parts.
//
// Parts are used as map keys and must be comparable; pointer types are.
// Satisfaction may be requested from several goroutines; it runs one chain
// at a time. Hooks of a part that wait for another goroutine which composes
// deadlock.
type Engine struct {
	tel      telemetry.Telemetry
	maxDepth int

	mu     sync.Mutex
	source apis.ExportProvider
	cancel func()
	states map[primitives.ComposablePart]*partState
	// stack holds the parts being satisfied by the chain that holds the
	// composition lock, innermost last.
	stack    []*partState
	contract map[string][]*partState
	wildcard []*partState
	seq      uint64

	closed atomic.Bool
}

var _ apis.CompositionService = (*Engine)(nil)

// New returns an engine without a source provider.
func New(opts ...Option) *Engine {
	e := &Engine{
		tel:      telemetry.Default(),
		maxDepth: DefaultMaxDepth,
		states:   make(map[primitives.ComposablePart]*partState),
		contract: make(map[string][]*partState),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// SetSourceProvider sets the provider imports are resolved against and
// subscribes to its changes. It can be called once.
func (e *Engine) SetSourceProvider(src apis.ExportProvider) error {
	if e.closed.Load() {
		return primitives.ErrDisposed
	}
	if src == nil {
		return ErrNilSource
	}
	e.mu.Lock()
	if e.source != nil {
		e.mu.Unlock()
		return ErrSourceAlreadySet
	}
	e.source = src
	e.mu.Unlock()

	cancel := src.Subscribe(e.onExportsChanged)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	return nil
}

func (e *Engine) sourceProvider() (apis.ExportProvider, error) {
	if e.closed.Load() {
		return nil, primitives.ErrDisposed
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source == nil {
		return nil, ErrSourceNotSet
	}
	return e.source, nil
}

// SatisfyImports binds every import of part. With register, a part that has
// recomposable imports is re-composed when their contracts change; it is
// registered only if satisfaction succeeds. Errors are returned as a single
// *primitives.CompositionException.
func (e *Engine) SatisfyImports(part primitives.ComposablePart, register bool) error {
	if part == nil {
		return primitives.ErrNilPart
	}
	src, err := e.sourceProvider()
	if err != nil {
		return err
	}
	name := primitives.ElementChain(primitives.ElementOf(part))
	_, span := e.tel.Start(telemetry.SpanSatisfyImports,
		attribute.String(telemetry.AttrPart, name),
		attribute.Bool(telemetry.AttrRegister, register),
	)
	e.tel.Logger.V(1).Info("satisfying imports", "part", name, "register", register)

	r := e.trySatisfy(src, part, nil, register)
	err = r.Err()
	telemetry.End(span, err)
	telemetry.ObserveErrors(err)
	return err
}

// UnregisterForRecomposition stops recomposing part. Unknown parts are
// ignored.
func (e *Engine) UnregisterForRecomposition(part primitives.ComposablePart) error {
	if e.closed.Load() {
		return primitives.ErrDisposed
	}
	if part == nil {
		return primitives.ErrNilPart
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if ps, ok := e.states[part]; ok {
		e.unregisterLocked(ps)
	}
	return nil
}

// ReleaseImports forgets part and releases every export bound to its
// imports. Unknown parts are ignored.
func (e *Engine) ReleaseImports(part primitives.ComposablePart) error {
	if e.closed.Load() {
		return primitives.ErrDisposed
	}
	if part == nil {
		return primitives.ErrNilPart
	}
	e.mu.Lock()
	ps, ok := e.states[part]
	var held []*primitives.Export
	if ok {
		e.unregisterLocked(ps)
		delete(e.states, part)
		held = ps.takeAll()
	}
	e.mu.Unlock()
	release(held)
	return nil
}

// GetExportedValue satisfies part, registering it for recomposition, and
// asks it for the value of def.
func (e *Engine) GetExportedValue(part primitives.ComposablePart, def *primitives.ExportDefinition) (any, error) {
	if part == nil {
		return nil, primitives.ErrNilPart
	}
	if def == nil {
		return nil, primitives.ErrNilExportDefinition
	}
	src, err := e.sourceProvider()
	if err != nil {
		return nil, err
	}
	composition.Lock()
	defer composition.Unlock()

	fail := func(cause error) error {
		return primitives.NewCompositionException(primitives.NewCompositionError(
			primitives.ErrorIDPartCannotGetExportedValue, primitives.ExportElement(def, part), cause,
			"cannot get export '%s' from part '%s'", def, primitives.ElementChain(primitives.ElementOf(part))))
	}
	if r := e.trySatisfy(src, part, nil, true); !r.Succeeded() {
		return nil, fail(r.Err())
	}
	v, err := part.GetExportedValue(def)
	if err != nil {
		return nil, fail(err)
	}
	return v, nil
}

// Close unsubscribes from the source and forgets every part. Bound exports
// are not released; their owners dispose them.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.source = nil
	e.states = make(map[primitives.ComposablePart]*partState)
	e.contract = make(map[string][]*partState)
	e.wildcard = nil
	e.stack = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// IsRegistered reports whether part is registered for recomposition.
func (e *Engine) IsRegistered(part primitives.ComposablePart) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, ok := e.states[part]
	return ok && ps.registered
}

func (e *Engine) stateOf(part primitives.ComposablePart) *partState {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, ok := e.states[part]
	if !ok {
		ps = newPartState(part)
		e.states[part] = ps
	}
	return ps
}

func (e *Engine) push(ps *partState) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stack = append(e.stack, ps)
	return len(e.stack)
}

func (e *Engine) pop(ps *partState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i] == ps {
			e.stack = slices.Delete(e.stack, i, i+1)
			return
		}
	}
}

// cycleBreakable reports whether a re-entered part may hand out its exports:
// no part between its two occurrences on the stack may be resolving a
// prerequisite import.
func (e *Engine) cycleBreakable(ps *partState) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.stack) - 2; i >= 0; i-- {
		s := e.stack[i]
		if s.requiresFullyComposed {
			return false
		}
		if s == ps {
			return true
		}
	}
	return true
}

func (e *Engine) getState(ps *partState) compositionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ps.state
}

func (e *Engine) setState(ps *partState, s compositionState) {
	e.mu.Lock()
	ps.state = s
	e.mu.Unlock()
}
