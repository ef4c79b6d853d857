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

// Package query runs import definitions against export providers.
//
// Providers answer GetExportsCore without looking at cardinality. The
// functions here add the cardinality check and the typed conveniences
// built on it.
package query

import (
	"fmt"
	"reflect"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/identity"
	"dirpx.dev/mef/primitives"
)

// GetExports returns the exports matching def, or a
// *primitives.CardinalityMismatchError when their count violates the
// cardinality of def.
func GetExports(p apis.ExportProvider, def primitives.ImportDefinition) ([]*primitives.Export, error) {
	exports, ok, err := TryGetExports(p, def)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &primitives.CardinalityMismatchError{Import: def, Count: len(exports)}
	}
	return exports, nil
}

// TryGetExports is GetExports reporting a cardinality mismatch as false.
// The matches are returned either way.
func TryGetExports(p apis.ExportProvider, def primitives.ImportDefinition) ([]*primitives.Export, bool, error) {
	if p == nil {
		return nil, false, ErrNilProvider
	}
	if def == nil {
		return nil, false, ErrNilImport
	}
	exports, err := p.GetExportsCore(def)
	if err != nil {
		return nil, false, err
	}
	return exports, def.Cardinality().Allows(len(exports)), nil
}

var anyType = reflect.TypeFor[any]()

// ImportFor derives the import a typed query runs. An empty contract stands
// for the type identity of t. Unless t is any, exports must carry the type
// identity of t; a struct view requires the metadata keys it decodes. The
// import is a prerequisite and accepts any creation policy.
func ImportFor(t, view reflect.Type, contract string, c primitives.Cardinality) (*primitives.ContractBasedImportDefinition, error) {
	if t == nil {
		t = anyType
	}
	var typeIdentity string
	if t != anyType {
		typeIdentity = identity.OfType(t)
	}
	if contract == "" {
		contract = typeIdentity
	}
	if contract == "" {
		return nil, fmt.Errorf("%w: no contract for %s", primitives.ErrEmptyContractName, t)
	}
	opts := []primitives.ImportOption{
		primitives.WithCardinality(c),
		primitives.WithPrerequisite(true),
	}
	if typeIdentity != "" {
		opts = append(opts, primitives.WithTypeIdentity(typeIdentity))
	}
	if view != nil {
		opts = append(opts, primitives.WithRequiredMetadata(primitives.MetadataViewKeys(view)...))
	}
	return primitives.NewContractBasedImport(contract, opts...)
}
