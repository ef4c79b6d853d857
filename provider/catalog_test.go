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

package provider_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/part"
	"dirpx.dev/mef/primitives"
	"dirpx.dev/mef/provider"
	"dirpx.dev/mef/query"
)

// fakeCatalog is a notifying catalog over a mutable list.
type fakeCatalog struct {
	mu    sync.Mutex
	parts []primitives.ComposablePartDefinition
	subs  []apis.CatalogChangedHandler
}

func (c *fakeCatalog) Parts() []primitives.ComposablePartDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]primitives.ComposablePartDefinition(nil), c.parts...)
}

func (c *fakeCatalog) Subscribe(h apis.CatalogChangedHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, h)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs = nil
	}
}

func (c *fakeCatalog) change(add, remove []primitives.ComposablePartDefinition) error {
	c.mu.Lock()
	c.parts = append(c.parts, add...)
	for _, r := range remove {
		for i, p := range c.parts {
			if p == r {
				c.parts = append(c.parts[:i], c.parts[i+1:]...)
				break
			}
		}
	}
	subs := append([]apis.CatalogChangedHandler(nil), c.subs...)
	c.mu.Unlock()
	for _, h := range subs {
		if err := h(apis.CatalogChangedEvent{Added: add, Removed: remove}); err != nil {
			return err
		}
	}
	return nil
}

// counter is a definition whose parts count their instances and closes.
type counter struct {
	def     *part.Definition
	created atomic.Int32
	closed  atomic.Int32
}

func newCounter(t *testing.T, contract string, policy primitives.CreationPolicy) *counter {
	t.Helper()
	c := &counter{}
	def, err := part.NewDefinition(func() *part.Builder {
		n := c.created.Add(1)
		return part.NewBuilder("counter").
			CreationPolicy(policy).
			Export(contract, func() (any, error) { return int(n), nil }, part.Typed[int]()).
			OnClose(func() error { c.closed.Add(1); return nil })
	})
	require.NoError(t, err)
	c.created.Store(0)
	c.def = def
	return c
}

func newCatalogProvider(t *testing.T, cat apis.Catalog) *provider.CatalogExportProvider {
	t.Helper()
	p, err := provider.NewCatalogExportProvider(cat)
	require.NoError(t, err)
	require.NoError(t, p.SetSourceProvider(p))
	return p
}

func TestShouldUseSharedPart(t *testing.T) {
	cases := []struct {
		part, imp primitives.CreationPolicy
		want      bool
	}{
		{primitives.Any, primitives.Any, true},
		{primitives.Any, primitives.Shared, true},
		{primitives.Any, primitives.NonShared, false},
		{primitives.Shared, primitives.Any, true},
		{primitives.Shared, primitives.Shared, true},
		{primitives.NonShared, primitives.Any, false},
		{primitives.NonShared, primitives.NonShared, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%s", tc.part, tc.imp), func(t *testing.T) {
			assert.Equal(t, tc.want, provider.ShouldUseSharedPart(tc.part, tc.imp))
		})
	}
	assert.Panics(t, func() { provider.ShouldUseSharedPart(primitives.Shared, primitives.NonShared) })
	assert.Panics(t, func() { provider.ShouldUseSharedPart(primitives.NonShared, primitives.Shared) })
}

func TestCatalogSharedPartIsCreatedOnce(t *testing.T) {
	c := newCounter(t, "V", primitives.Shared)
	p := newCatalogProvider(t, &fakeCatalog{parts: []primitives.ComposablePartDefinition{c.def}})

	first, err := query.Value[int](p, "V")
	require.NoError(t, err)
	second, err := query.Value[int](p, "V")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, c.created.Load())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.EqualValues(t, 1, c.closed.Load())
}

func TestCatalogNonSharedPartPerExport(t *testing.T) {
	c := newCounter(t, "V", primitives.NonShared)
	p := newCatalogProvider(t, &fakeCatalog{parts: []primitives.ComposablePartDefinition{c.def}})

	exports, err := p.GetExportsCore(importOf(t, "V", primitives.ExactlyOne))
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Zero(t, c.created.Load(), "parts are created on first use")

	a, err := exports[0].Value()
	require.NoError(t, err)
	again, err := exports[0].Value()
	require.NoError(t, err)
	assert.Equal(t, a, again)

	b, err := query.Value[int](p, "V")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.EqualValues(t, 2, c.created.Load())

	exports[0].Release()
	exports[0].Release()
	assert.EqualValues(t, 1, c.closed.Load())

	require.NoError(t, p.Close())
	assert.EqualValues(t, 2, c.closed.Load())
}

func TestCatalogAnyPolicyFollowsImport(t *testing.T) {
	c := newCounter(t, "V", primitives.Any)
	p := newCatalogProvider(t, &fakeCatalog{parts: []primitives.ComposablePartDefinition{c.def}})

	nonShared := importOf(t, "V", primitives.ExactlyOne, primitives.WithRequiredCreationPolicy(primitives.NonShared))
	for range 2 {
		exports, err := query.GetExports(p, nonShared)
		require.NoError(t, err)
		_, err = exports[0].Value()
		require.NoError(t, err)
	}
	shared := importOf(t, "V", primitives.ExactlyOne, primitives.WithRequiredCreationPolicy(primitives.Shared))
	for range 2 {
		exports, err := query.GetExports(p, shared)
		require.NoError(t, err)
		_, err = exports[0].Value()
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, c.created.Load())
	require.NoError(t, p.Close())
}

func TestCatalogPolicyFiltersImports(t *testing.T) {
	c := newCounter(t, "V", primitives.Shared)
	p := newCatalogProvider(t, &fakeCatalog{parts: []primitives.ComposablePartDefinition{c.def}})
	exports, err := p.GetExportsCore(importOf(t, "V", primitives.ZeroOrMore, primitives.WithRequiredCreationPolicy(primitives.NonShared)))
	require.NoError(t, err)
	assert.Empty(t, exports)
}

func TestCatalogChangesBecomeExportChanges(t *testing.T) {
	a := newCounter(t, "A", primitives.Shared)
	b := newCounter(t, "B", primitives.Shared)
	cat := &fakeCatalog{parts: []primitives.ComposablePartDefinition{a.def}}
	p := newCatalogProvider(t, cat)
	rec := &recorder{}
	p.Subscribe(rec.handle)

	_, err := query.Value[int](p, "A")
	require.NoError(t, err)

	require.NoError(t, cat.change([]primitives.ComposablePartDefinition{b.def}, []primitives.ComposablePartDefinition{a.def}))
	assert.Equal(t, [][]string{{"B", "A"}}, rec.all())
	assert.EqualValues(t, 1, a.closed.Load(), "shared part of a removed definition is disposed")

	_, err = query.Value[int](p, "A")
	var cm *primitives.CardinalityMismatchError
	assert.ErrorAs(t, err, &cm)
	v, err := query.Value[int](p, "B")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, p.Close())
	require.NoError(t, cat.change(nil, []primitives.ComposablePartDefinition{b.def}))
	assert.Len(t, rec.all(), 1)
}

func TestCatalogProviderErrors(t *testing.T) {
	_, err := provider.NewCatalogExportProvider(nil)
	assert.ErrorIs(t, err, provider.ErrNilCatalog)

	p, err := provider.NewCatalogExportProvider(&fakeCatalog{})
	require.NoError(t, err)
	_, err = p.GetExportsCore(importOf(t, "V", primitives.ZeroOrMore))
	assert.ErrorIs(t, err, provider.ErrSourceNotSet)

	require.NoError(t, p.Close())
	_, err = p.GetExportsCore(importOf(t, "V", primitives.ZeroOrMore))
	assert.ErrorIs(t, err, primitives.ErrDisposed)
	assert.ErrorIs(t, p.SetSourceProvider(p), primitives.ErrDisposed)
}
