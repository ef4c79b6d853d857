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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/mef/part"
	"dirpx.dev/mef/primitives"
)

func TestBind(t *testing.T) {
	v := 7
	set := part.Bind(&v)

	require.NoError(t, set([]*primitives.Export{valueExport(t, "n", 42)}))
	assert.Equal(t, 42, v)

	require.NoError(t, set(nil))
	assert.Zero(t, v, "no match resets to the zero value")

	err := set([]*primitives.Export{valueExport(t, "n", "str")})
	var cm *primitives.ContractMismatchError
	require.ErrorAs(t, err, &cm)
	assert.Equal(t, "n", cm.Contract)

	assert.Error(t, set([]*primitives.Export{valueExport(t, "n", 1), valueExport(t, "n", 2)}))
}

func TestBindInterface(t *testing.T) {
	var s interface{ String() string }
	def, err := primitives.NewExportDefinition("s", nil)
	require.NoError(t, err)
	require.NoError(t, part.Bind(&s)([]*primitives.Export{primitives.NewValueExport(def, nil)}))
	assert.Nil(t, s)
}

func TestBindAll(t *testing.T) {
	var got []int
	set := part.BindAll(&got)
	require.NoError(t, set([]*primitives.Export{valueExport(t, "n", 1), valueExport(t, "n", 2)}))
	assert.Equal(t, []int{1, 2}, got)

	require.NoError(t, set(nil))
	assert.Empty(t, got)
}

func TestBindExportsDoesNotRealize(t *testing.T) {
	calls := 0
	def, err := primitives.NewExportDefinition("lazy", nil)
	require.NoError(t, err)
	e := primitives.NewExport(def, func() (any, error) { calls++; return 1, nil })

	var got []*primitives.Export
	require.NoError(t, part.BindExports(&got)([]*primitives.Export{e}))
	require.Len(t, got, 1)
	assert.Zero(t, calls)
}

func TestBindFunc(t *testing.T) {
	var seen []string
	set := part.BindFunc(func(s string) error { seen = append(seen, s); return nil })
	require.NoError(t, set([]*primitives.Export{valueExport(t, "s", "a")}))
	require.NoError(t, set(nil))
	assert.Equal(t, []string{"a", ""}, seen)
}
