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

package engine_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/engine"
	"dirpx.dev/mef/identity"
	"dirpx.dev/mef/part"
	"dirpx.dev/mef/primitives"
)

// source serves fixed exports plus the exports of parts composed by eng.
type source struct {
	eng *engine.Engine

	mu      sync.Mutex
	exports []*primitives.Export
	parts   []primitives.ComposablePart
	subs    []apis.ExportsChangedHandler
}

func newSource(t *testing.T, opts ...engine.Option) *source {
	t.Helper()
	s := &source{eng: engine.New(opts...)}
	require.NoError(t, s.eng.SetSourceProvider(s))
	t.Cleanup(func() { _ = s.eng.Close() })
	return s
}

func (s *source) GetExportsCore(def primitives.ImportDefinition) ([]*primitives.Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*primitives.Export
	for _, e := range s.exports {
		if primitives.Matches(def, e.Definition()) {
			out = append(out, e)
		}
	}
	for _, p := range s.parts {
		for _, ed := range p.ExportDefinitions() {
			if primitives.Matches(def, ed) {
				out = append(out, primitives.NewExport(ed, func() (any, error) {
					return s.eng.GetExportedValue(p, ed)
				}))
			}
		}
	}
	return out, nil
}

func (s *source) Subscribe(h apis.ExportsChangedHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, h)
	return func() {}
}

func (s *source) set(exports ...*primitives.Export) {
	s.mu.Lock()
	s.exports = exports
	s.mu.Unlock()
}

func (s *source) addParts(parts ...primitives.ComposablePart) {
	s.mu.Lock()
	s.parts = append(s.parts, parts...)
	s.mu.Unlock()
}

func (s *source) publish(names ...string) error {
	s.mu.Lock()
	subs := append([]apis.ExportsChangedHandler(nil), s.subs...)
	s.mu.Unlock()
	var errs []error
	for _, h := range subs {
		errs = append(errs, h(apis.ExportsChangedEvent{ChangedContractNames: names}))
	}
	return errors.Join(errs...)
}

func value(t *testing.T, contract string, v any) *primitives.Export {
	t.Helper()
	def, err := primitives.NewExportDefinition(contract, map[string]any{
		primitives.TypeIdentityMetadataKey: identity.Of(v),
	})
	require.NoError(t, err)
	return primitives.NewValueExport(def, v)
}

func build(t *testing.T, b *part.Builder) *part.Part {
	t.Helper()
	p, err := b.Build()
	require.NoError(t, err)
	return p
}

func TestExactlyOneMismatchLeavesImportUnset(t *testing.T) {
	for _, n := range []int{0, 2} {
		t.Run(fmt.Sprintf("%d exports", n), func(t *testing.T) {
			s := newSource(t)
			var exports []*primitives.Export
			for i := range n {
				exports = append(exports, value(t, "dep", i))
			}
			s.set(exports...)

			got, calls := -1, 0
			p := build(t, part.NewBuilder("consumer").Import("dep", func(e []*primitives.Export) error {
				calls++
				return part.Bind(&got)(e)
			}))

			err := s.eng.SatisfyImports(p, true)
			require.Error(t, err)
			var ex *primitives.CompositionException
			require.ErrorAs(t, err, &ex)
			assert.True(t, primitives.HasErrorID(err, primitives.ErrorIDImportCardinalityMismatch))
			assert.True(t, primitives.HasErrorID(err, primitives.ErrorIDPartCannotSetImport))
			assert.Zero(t, calls)
			assert.Equal(t, -1, got)
			assert.False(t, s.eng.IsRegistered(p))
		})
	}
}

func TestErrorsAccumulateAcrossImports(t *testing.T) {
	s := newSource(t)
	p := build(t, part.NewBuilder("consumer").
		Import("a", part.Bind(new(int))).
		Import("b", part.Bind(new(int))))

	err := s.eng.SatisfyImports(p, false)
	var ex *primitives.CompositionException
	require.ErrorAs(t, err, &ex)
	assert.Len(t, ex.Errors(), 2)
	assert.Contains(t, err.Error(), "2 root causes")
}

func TestZeroOrMoreKeepsSourceOrder(t *testing.T) {
	s := newSource(t)
	s.set(value(t, "n", 3), value(t, "n", 1), value(t, "n", 2))

	var got []int
	p := build(t, part.NewBuilder("consumer").Import("n", part.BindAll(&got), part.ZeroOrMore()))
	require.NoError(t, s.eng.SatisfyImports(p, false))
	assert.Equal(t, []int{3, 1, 2}, got)
}

func TestPrerequisitesFirst(t *testing.T) {
	s := newSource(t)
	s.set(value(t, "a", 1), value(t, "b", 2))

	var order []string
	record := func(name string) part.Setter {
		return func([]*primitives.Export) error { order = append(order, name); return nil }
	}
	p := build(t, part.NewBuilder("ctor").
		Import("a", record("a")).
		Import("b", record("b"), part.Prerequisite()).
		OnActivate(func() error { order = append(order, "activate"); return nil }).
		OnComposed(func() error { order = append(order, "composed"); return nil }))

	require.NoError(t, s.eng.SatisfyImports(p, false))
	assert.Equal(t, []string{"b", "activate", "a", "composed"}, order)

	// A satisfied part is not composed again.
	require.NoError(t, s.eng.SatisfyImports(p, false))
	assert.Len(t, order, 4)
}

func TestRecomposition(t *testing.T) {
	s := newSource(t)
	s.set(value(t, "v", 1))

	var got, composed int
	p := build(t, part.NewBuilder("watcher").
		Import("v", part.Bind(&got), part.Recomposable()).
		Import("fixed", part.Bind(new(int)), part.ZeroOrOne()).
		OnComposed(func() error { composed++; return nil }))

	require.NoError(t, s.eng.SatisfyImports(p, true))
	require.True(t, s.eng.IsRegistered(p))
	assert.Equal(t, 1, got)
	assert.Equal(t, 1, composed)

	s.set(value(t, "v", 2))
	require.NoError(t, s.publish("v"))
	assert.Equal(t, 2, got)
	assert.Equal(t, 2, composed)

	require.NoError(t, s.publish("unrelated"))
	require.NoError(t, s.publish("fixed"))
	assert.Equal(t, 2, composed)

	require.NoError(t, s.eng.UnregisterForRecomposition(p))
	require.NoError(t, s.eng.UnregisterForRecomposition(p))
	s.set(value(t, "v", 3))
	require.NoError(t, s.publish("v"))
	assert.Equal(t, 2, got)
}

func TestRecompositionWithoutRegistration(t *testing.T) {
	s := newSource(t)
	s.set(value(t, "v", 1))
	var got int
	p := build(t, part.NewBuilder("p").Import("v", part.Bind(&got), part.Recomposable()))

	require.NoError(t, s.eng.SatisfyImports(p, false))
	s.set(value(t, "v", 2))
	require.NoError(t, s.publish("v"))
	assert.Equal(t, 1, got)
}

func TestRecompositionFailuresAreIsolated(t *testing.T) {
	s := newSource(t)
	s.set(value(t, "v", 1))

	var strict, lenient []int
	a := build(t, part.NewBuilder("strict").Import("v", part.BindAll(&strict), part.Recomposable()))
	b := build(t, part.NewBuilder("lenient").Import("v", part.BindAll(&lenient), part.Recomposable(), part.ZeroOrMore()))
	require.NoError(t, s.eng.SatisfyImports(a, true))
	require.NoError(t, s.eng.SatisfyImports(b, true))

	s.set(value(t, "v", 1), value(t, "v", 2))
	err := s.publish("v")
	require.Error(t, err)
	assert.True(t, primitives.HasErrorID(err, primitives.ErrorIDImportCardinalityMismatch))
	assert.Equal(t, []int{1}, strict)
	assert.Equal(t, []int{1, 2}, lenient)
	assert.True(t, s.eng.IsRegistered(a))
}

func TestReleasesReplacedExports(t *testing.T) {
	s := newSource(t)
	released := map[string]int{}
	disposable := func(name string) *primitives.Export {
		def, err := primitives.NewExportDefinition("v", nil)
		require.NoError(t, err)
		return primitives.NewDisposableExport(def, func() (any, error) { return name, nil },
			func() { released[name]++ })
	}
	s.set(disposable("first"))

	var got []*primitives.Export
	p := build(t, part.NewBuilder("holder").Import("v", part.BindExports(&got), part.Recomposable()))
	require.NoError(t, s.eng.SatisfyImports(p, true))

	s.set(disposable("second"))
	require.NoError(t, s.publish("v"))
	assert.Equal(t, map[string]int{"first": 1}, released)

	require.NoError(t, s.eng.ReleaseImports(p))
	require.NoError(t, s.eng.ReleaseImports(p))
	assert.Equal(t, map[string]int{"first": 1, "second": 1}, released)
	assert.False(t, s.eng.IsRegistered(p))
}

func TestOnComposedFailure(t *testing.T) {
	s := newSource(t)
	boom := errors.New("boom")
	p := build(t, part.NewBuilder("p").
		Import("v", part.Bind(new(int)), part.ZeroOrOne(), part.Recomposable()).
		OnComposed(func() error { return boom }))

	err := s.eng.SatisfyImports(p, true)
	assert.ErrorIs(t, err, boom)
	assert.True(t, primitives.HasErrorID(err, primitives.ErrorIDPartCannotComposed))
	assert.False(t, s.eng.IsRegistered(p))
}

func TestPrerequisiteCycle(t *testing.T) {
	s := newSource(t)
	a := build(t, part.NewBuilder("A").
		Import("b", part.Bind(new(string)), part.Prerequisite()).
		ExportValue("a", "A"))
	b := build(t, part.NewBuilder("B").
		Import("a", part.Bind(new(string)), part.Prerequisite()).
		ExportValue("b", "B"))
	s.addParts(a, b)

	err := s.eng.SatisfyImports(a, false)
	require.Error(t, err)
	assert.True(t, primitives.HasErrorID(err, primitives.ErrorIDPartCycle))
}

func TestPropertyCycleIsAllowed(t *testing.T) {
	s := newSource(t)
	var fromA, fromB string
	a := build(t, part.NewBuilder("A").Import("b", part.Bind(&fromB)).ExportValue("a", "A"))
	b := build(t, part.NewBuilder("B").Import("a", part.Bind(&fromA)).ExportValue("b", "B"))
	s.addParts(a, b)

	require.NoError(t, s.eng.SatisfyImports(a, false))
	assert.Equal(t, "B", fromB)
	assert.Equal(t, "A", fromA)
}

func TestMaxDepth(t *testing.T) {
	s := newSource(t, engine.WithMaxDepth(2))
	s.set(value(t, "d", "leaf"))
	a := build(t, part.NewBuilder("A").Import("b", part.Bind(new(string))).ExportValue("a", "A"))
	b := build(t, part.NewBuilder("B").Import("c", part.Bind(new(string))).ExportValue("b", "B"))
	c := build(t, part.NewBuilder("C").Import("d", part.Bind(new(string))).ExportValue("c", "C"))
	s.addParts(b, c)

	err := s.eng.SatisfyImports(a, false)
	require.Error(t, err)
	assert.True(t, primitives.HasErrorID(err, primitives.ErrorIDComposeTookTooManyIterations))
}

func TestGetExportedValue(t *testing.T) {
	s := newSource(t)
	s.set(value(t, "in", 20))
	var in int
	p := build(t, part.NewBuilder("doubler").
		Import("in", part.Bind(&in), part.Recomposable()).
		Export("out", func() (any, error) { return in * 2, nil }))

	v, err := s.eng.GetExportedValue(p, p.ExportDefinitions()[0])
	require.NoError(t, err)
	assert.Equal(t, 40, v)
	assert.True(t, s.eng.IsRegistered(p))

	broken := build(t, part.NewBuilder("broken").Import("missing", part.Bind(new(int))).ExportValue("x", 1))
	_, err = s.eng.GetExportedValue(broken, broken.ExportDefinitions()[0])
	assert.True(t, primitives.HasErrorID(err, primitives.ErrorIDPartCannotGetExportedValue))
	assert.True(t, primitives.HasErrorID(err, primitives.ErrorIDImportCardinalityMismatch))
}

func TestArgumentAndLifecycleErrors(t *testing.T) {
	e := engine.New()
	p := build(t, part.NewBuilder("p"))

	assert.ErrorIs(t, e.SatisfyImports(p, false), engine.ErrSourceNotSet)
	assert.ErrorIs(t, e.SetSourceProvider(nil), engine.ErrNilSource)
	assert.ErrorIs(t, e.SatisfyImports(nil, false), primitives.ErrNilPart)

	s := &source{}
	require.NoError(t, e.SetSourceProvider(s))
	assert.ErrorIs(t, e.SetSourceProvider(s), engine.ErrSourceAlreadySet)
	require.NoError(t, e.SatisfyImports(p, true))

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.SatisfyImports(p, false), primitives.ErrDisposed)
	assert.ErrorIs(t, e.UnregisterForRecomposition(p), primitives.ErrDisposed)
	assert.ErrorIs(t, e.ReleaseImports(p), primitives.ErrDisposed)
	assert.ErrorIs(t, e.SetSourceProvider(s), primitives.ErrDisposed)
}

func TestConcurrentSatisfactionOfOnePart(t *testing.T) {
	s := newSource(t)
	s.set(value(t, "seed", 7))
	var seed, composed int
	p := build(t, part.NewBuilder("slow").
		Import("seed", func(exports []*primitives.Export) error {
			time.Sleep(5 * time.Millisecond)
			return part.Bind(&seed)(exports)
		}, part.Prerequisite()).
		Export("out", func() (any, error) { return seed * 2, nil }).
		OnComposed(func() error { composed++; return nil }))
	out := p.ExportDefinitions()[0]

	const callers = 8
	vals := make([]any, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Go(func() { vals[i], errs[i] = s.eng.GetExportedValue(p, out) })
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, 14, vals[i])
	}
	assert.Equal(t, 1, composed)
}
