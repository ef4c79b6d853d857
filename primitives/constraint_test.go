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

package primitives_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/mef/primitives"
)

func exportDef(t *testing.T, contract string, md map[string]any) *primitives.ExportDefinition {
	t.Helper()
	def, err := primitives.NewExportDefinition(contract, md)
	require.NoError(t, err)
	return def
}

func TestParseConstraint(t *testing.T) {
	c := primitives.ContractNameEquals("C")
	key := func(k string) primitives.Constraint { return primitives.HasMetadataKey(k) }
	opaque := primitives.FuncConstraint{Name: "any", Fn: func(*primitives.ExportDefinition) bool { return true }}

	tests := []struct {
		name     string
		in       primitives.Constraint
		contract string
		keys     []string
		ok       bool
	}{
		{name: "contract", in: c, contract: "C", ok: true},
		{name: "contract and keys", in: primitives.And(c, key("a"), key("b")), contract: "C", keys: []string{"a", "b"}, ok: true},
		{name: "duplicate keys", in: primitives.And(key("a"), c, key("b"), key("a")), contract: "C", keys: []string{"a", "b"}, ok: true},
		{name: "nested and", in: primitives.AndConstraint{primitives.AndConstraint{c, key("a")}, key("b")}, contract: "C", keys: []string{"a", "b"}, ok: true},
		{name: "same contract twice", in: primitives.And(c, key("a"), c), contract: "C", keys: []string{"a"}, ok: true},
		{name: "conflicting contracts", in: primitives.And(c, primitives.ContractNameEquals("D"))},
		{name: "no contract", in: primitives.And(key("a"), key("b"))},
		{name: "empty contract", in: primitives.ContractNameEquals("")},
		{name: "empty key", in: primitives.And(c, key(""))},
		{name: "empty and", in: primitives.AndConstraint{}},
		{name: "or", in: primitives.Or(c)},
		{name: "not", in: primitives.Not(c)},
		{name: "func", in: opaque},
		{name: "func inside and", in: primitives.And(c, key("a"), opaque)},
		{name: "or inside and", in: primitives.And(c, primitives.Or(key("a"), key("b")))},
		{name: "type identity", in: primitives.And(c, primitives.TypeIdentityEquals("int"))},
		{name: "policy", in: primitives.And(c, primitives.CreationPolicyAllows(primitives.Shared))},
		{name: "nil", in: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contract, keys, ok := primitives.ParseConstraint(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.contract, contract)
			assert.Equal(t, tt.keys, keys)
		})
	}
}

func TestCreateConstraintPolicy(t *testing.T) {
	policies := []primitives.CreationPolicy{primitives.Any, primitives.Shared, primitives.NonShared}
	allowed := map[primitives.CreationPolicy]map[primitives.CreationPolicy]bool{
		primitives.Any:       {primitives.Any: true, primitives.Shared: true, primitives.NonShared: true},
		primitives.Shared:    {primitives.Any: true, primitives.Shared: true, primitives.NonShared: false},
		primitives.NonShared: {primitives.Any: true, primitives.Shared: false, primitives.NonShared: true},
	}
	for _, required := range policies {
		c := primitives.CreateConstraint("C", "", nil, required)
		for _, offered := range policies {
			def := exportDef(t, "C", map[string]any{primitives.CreationPolicyMetadataKey: offered})
			assert.Equal(t, allowed[required][offered], c.Matches(def), "import %s, part %s", required, offered)
		}
		assert.True(t, c.Matches(exportDef(t, "C", nil)), "exports without a policy are Any")
		assert.False(t, c.Matches(exportDef(t, "D", nil)))
	}
}

func TestCreateConstraintTerms(t *testing.T) {
	assert.Equal(t, primitives.ContractNameEquals("C"), primitives.CreateConstraint("C", "", nil, primitives.Any))

	c := primitives.CreateConstraint("C", "int", []string{"k"}, primitives.Shared)
	full := map[string]any{
		primitives.TypeIdentityMetadataKey:   "int",
		primitives.CreationPolicyMetadataKey: primitives.Shared,
		"k":                                  1,
	}
	assert.True(t, c.Matches(exportDef(t, "C", full)))

	without := func(key string) map[string]any {
		md := map[string]any{}
		for k, v := range full {
			if k != key {
				md[k] = v
			}
		}
		return md
	}
	assert.False(t, c.Matches(exportDef(t, "C", without("k"))))
	assert.True(t, c.Matches(exportDef(t, "C", without(primitives.CreationPolicyMetadataKey))))
	assert.False(t, c.Matches(exportDef(t, "C", without(primitives.TypeIdentityMetadataKey))))

	other := without(primitives.TypeIdentityMetadataKey)
	other[primitives.TypeIdentityMetadataKey] = "string"
	assert.False(t, c.Matches(exportDef(t, "C", other)))
}

func TestContractNameOf(t *testing.T) {
	mustImport := func(imp primitives.ImportDefinition, err error) primitives.ImportDefinition {
		t.Helper()
		require.NoError(t, err)
		return imp
	}
	contractBased := func(name string, opts ...primitives.ImportOption) primitives.ImportDefinition {
		t.Helper()
		imp, err := primitives.NewContractBasedImport(name, opts...)
		require.NoError(t, err)
		return imp
	}

	tests := []struct {
		name     string
		in       primitives.ImportDefinition
		contract string
		ok       bool
	}{
		{name: "contract based", in: contractBased("C"), contract: "C", ok: true},
		{
			name:     "contract based with policy and type",
			in:       contractBased("C", primitives.WithRequiredCreationPolicy(primitives.Shared), primitives.WithTypeIdentity("int")),
			contract: "C",
			ok:       true,
		},
		{name: "constraint", in: mustImport(primitives.NewImport(primitives.ContractNameEquals("C"))), contract: "C", ok: true},
		{
			name:     "constraint with metadata",
			in:       mustImport(primitives.NewImport(primitives.ContractNameEquals("C"), primitives.WithRequiredMetadata("k"))),
			contract: "C",
			ok:       true,
		},
		{name: "constraint with type identity", in: mustImport(primitives.NewImport(primitives.ContractNameEquals("C"), primitives.WithTypeIdentity("int")))},
		{name: "or", in: mustImport(primitives.NewImport(primitives.Or(primitives.ContractNameEquals("C"), primitives.ContractNameEquals("D"))))},
		{name: "nil", in: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contract, ok := primitives.ContractNameOf(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.contract, contract)
		})
	}
}
