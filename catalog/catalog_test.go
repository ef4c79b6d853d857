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

package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/catalog"
	"dirpx.dev/mef/part"
	"dirpx.dev/mef/primitives"
)

func definition(t *testing.T, name string, contracts ...string) *part.Definition {
	t.Helper()
	def, err := part.NewDefinition(func() *part.Builder {
		b := part.NewBuilder(name)
		for _, c := range contracts {
			b.ExportValue(c, name)
		}
		return b
	})
	require.NoError(t, err)
	return def
}

func importOf(t *testing.T, contract string) primitives.ImportDefinition {
	t.Helper()
	def, err := primitives.NewContractBasedImport(contract, primitives.WithCardinality(primitives.ZeroOrMore))
	require.NoError(t, err)
	return def
}

type changes struct{ got []apis.CatalogChangedEvent }

func (e *changes) handle(ev apis.CatalogChangedEvent) error {
	e.got = append(e.got, ev)
	return nil
}

func names(pes []apis.PartExport) []string {
	var out []string
	for _, pe := range pes {
		out = append(out, pe.Part.(*part.Definition).DisplayName())
	}
	return out
}

func TestCatalogChanges(t *testing.T) {
	a := definition(t, "a", "A")
	b := definition(t, "b", "B")
	c := definition(t, "c", "A")

	cat, err := catalog.New(a, a)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())

	rec := &changes{}
	cat.Subscribe(rec.handle)

	require.NoError(t, cat.Add(b, a))
	require.NoError(t, cat.Remove(c))
	require.NoError(t, cat.Change([]primitives.ComposablePartDefinition{c}, []primitives.ComposablePartDefinition{a}))
	require.NoError(t, cat.Add())

	require.Len(t, rec.got, 2)
	assert.Equal(t, []primitives.ComposablePartDefinition{b}, rec.got[0].Added)
	assert.Empty(t, rec.got[0].Removed)
	assert.Equal(t, []primitives.ComposablePartDefinition{c}, rec.got[1].Added)
	assert.Equal(t, []primitives.ComposablePartDefinition{a}, rec.got[1].Removed)

	assert.Equal(t, []primitives.ComposablePartDefinition{b, c}, cat.Parts())
}

func TestCatalogIndex(t *testing.T) {
	a := definition(t, "a", "A", "B")
	b := definition(t, "b", "B")
	cat, err := catalog.New(a, b)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, names(cat.GetExports(importOf(t, "B"))))
	assert.Empty(t, cat.GetExports(importOf(t, "C")))

	either, err := primitives.NewImport(primitives.Or(primitives.ContractNameEquals("A"), primitives.ContractNameEquals("B")),
		primitives.WithCardinality(primitives.ZeroOrMore))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a", "b"}, names(cat.GetExports(either)))

	require.NoError(t, cat.Remove(a))
	assert.Equal(t, []string{"b"}, names(cat.GetExports(importOf(t, "B"))))
}

func TestCatalogHandlerErrorIsReturned(t *testing.T) {
	cat, err := catalog.New()
	require.NoError(t, err)
	boom := assert.AnError
	cat.Subscribe(func(apis.CatalogChangedEvent) error { return boom })

	a := definition(t, "a", "A")
	assert.ErrorIs(t, cat.Add(a), boom)
	assert.Equal(t, 1, cat.Len(), "the change is kept")
}

func TestCatalogNilDefinition(t *testing.T) {
	_, err := catalog.New(nil)
	assert.ErrorIs(t, err, catalog.ErrNilDefinition)

	cat, err := catalog.New()
	require.NoError(t, err)
	assert.ErrorIs(t, cat.Add(nil), catalog.ErrNilDefinition)
	assert.ErrorIs(t, cat.Remove(nil), catalog.ErrNilDefinition)
}

// plain is a catalog with neither an index nor notifications.
type plain []primitives.ComposablePartDefinition

func (p plain) Parts() []primitives.ComposablePartDefinition { return p }

func TestAggregate(t *testing.T) {
	a := definition(t, "a", "X")
	b := definition(t, "b", "X")
	c := definition(t, "c", "X")

	first, err := catalog.New(a)
	require.NoError(t, err)
	agg, err := catalog.NewAggregate(first, plain{b})
	require.NoError(t, err)
	assert.Len(t, agg.Catalogs(), 2)
	assert.Equal(t, []primitives.ComposablePartDefinition{a, b}, agg.Parts())
	assert.Equal(t, []string{"a", "b"}, names(agg.GetExports(importOf(t, "X"))))

	rec := &changes{}
	agg.Subscribe(rec.handle)
	require.NoError(t, first.Add(c))
	require.Len(t, rec.got, 1)
	assert.Equal(t, []primitives.ComposablePartDefinition{c}, rec.got[0].Added)
	assert.Equal(t, []string{"a", "c", "b"}, names(agg.GetExports(importOf(t, "X"))))

	require.NoError(t, agg.Close())
	require.NoError(t, agg.Close())
	require.NoError(t, first.Remove(c))
	assert.Len(t, rec.got, 1)

	_, err = catalog.NewAggregate(first, nil)
	assert.ErrorIs(t, err, catalog.ErrNilCatalog)
}
