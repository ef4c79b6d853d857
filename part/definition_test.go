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

package part_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/mef/part"
	"dirpx.dev/mef/primitives"
)

func TestDefinitionRebindsCreatedParts(t *testing.T) {
	built := 0
	def, err := part.NewDefinition(func() *part.Builder {
		built++
		n := built
		return part.NewBuilder("counter").
			CreationPolicy(primitives.NonShared).
			Export("count", func() (any, error) { return n, nil }, part.Typed[int]()).
			Import("seed", part.Bind(new(int)), part.ZeroOrOne())
	})
	require.NoError(t, err)
	assert.NotEmpty(t, def.ID())
	assert.Equal(t, "counter", def.DisplayName())
	assert.Equal(t, primitives.NonShared, def.Metadata()[primitives.CreationPolicyMetadataKey])

	a, err := def.CreatePart()
	require.NoError(t, err)
	b, err := def.CreatePart()
	require.NoError(t, err)

	exp := def.ExportDefinitions()[0]
	assert.Same(t, exp, a.ExportDefinitions()[0])
	assert.Same(t, exp, b.ExportDefinitions()[0])
	assert.Equal(t, def.ImportDefinitions()[0], a.ImportDefinitions()[0])

	require.NoError(t, a.SetImport(def.ImportDefinitions()[0], nil))
	va, err := a.GetExportedValue(exp)
	require.NoError(t, err)
	vb, err := b.GetExportedValue(exp)
	require.NoError(t, err)
	assert.NotEqual(t, va, vb)

	el, ok := a.(primitives.Element)
	require.True(t, ok)
	assert.Equal(t, "counter --> counter", primitives.ElementChain(el))
}

func TestDefinitionShapeMismatch(t *testing.T) {
	calls := 0
	def, err := part.NewDefinition(func() *part.Builder {
		calls++
		return part.NewBuilder("shifty").ExportValue("c"+strconv.Itoa(calls), 1)
	})
	require.NoError(t, err)

	_, err = def.CreatePart()
	assert.ErrorIs(t, err, part.ErrDefinitionMismatch)
}

func TestDefinitionErrors(t *testing.T) {
	_, err := part.NewDefinition(nil)
	assert.ErrorIs(t, err, part.ErrNilFactory)

	_, err = part.NewDefinition(func() *part.Builder { return part.NewBuilder("x").Export("", nil) })
	assert.ErrorIs(t, err, primitives.ErrEmptyContractName)
}

func TestForExport(t *testing.T) {
	e := valueExport(t, "v", 42)
	p, err := part.ForExport(e)
	require.NoError(t, err)

	require.Len(t, p.ExportDefinitions(), 1)
	assert.Empty(t, p.ImportDefinitions())
	v, err := p.GetExportedValue(e.Definition())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.NoError(t, p.OnComposed())

	_, err = part.ForExport(nil)
	assert.ErrorIs(t, err, primitives.ErrNilExport)
}

func TestAdapterPart(t *testing.T) {
	fn := part.AdaptValues("New", func(n int) (string, error) { return strconv.Itoa(n), nil })
	p, err := part.Adapter("Old", "New", fn)
	require.NoError(t, err)

	exports := p.ExportDefinitions()
	require.Len(t, exports, 1)
	assert.Equal(t, primitives.AdapterContractName, exports[0].ContractName())
	from, _ := exports[0].MetadataValue(primitives.AdapterFromContractMetadataKey)
	to, _ := exports[0].MetadataValue(primitives.AdapterToContractMetadataKey)
	assert.Equal(t, "Old", from)
	assert.Equal(t, "New", to)

	v, err := p.GetExportedValue(exports[0])
	require.NoError(t, err)
	adapt, ok := v.(primitives.AdaptFunc)
	require.True(t, ok)

	out, err := adapt(valueExport(t, "Old", 7))
	require.NoError(t, err)
	assert.Equal(t, "New", out.ContractName())
	s, err := primitives.ValueAs[string](out)
	require.NoError(t, err)
	assert.Equal(t, "7", s)

	_, err = part.Adapter("a", "b", nil)
	assert.Error(t, err)
}
