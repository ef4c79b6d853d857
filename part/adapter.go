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

package part

import (
	"fmt"

	"dirpx.dev/mef/identity"
	"dirpx.dev/mef/primitives"
)

// Adapter returns a part exporting fn as an adapter from one contract to
// another. The contracts are not validated here: a broken adapter only fails
// the queries that reach its to-contract.
func Adapter(from, to string, fn primitives.AdaptFunc) (*Part, error) {
	if fn == nil {
		return nil, fmt.Errorf("adapter %s -> %s: %w", from, to, primitives.ErrNilGetter)
	}
	return NewBuilder(fmt.Sprintf("Adapter %s -> %s", from, to)).
		Export(primitives.AdapterContractName, func() (any, error) { return fn, nil },
			WithMetadata(primitives.AdapterFromContractMetadataKey, from),
			WithMetadata(primitives.AdapterToContractMetadataKey, to),
		).
		Build()
}

// AdaptValues returns an AdaptFunc that maps the value of each export with
// fn and re-exports it under contract to, with the type identity of U.
func AdaptValues[T, U any](to string, fn func(T) (U, error)) primitives.AdaptFunc {
	return func(src *primitives.Export) (*primitives.Export, error) {
		md := primitives.Metadata{}
		if id := identity.For[U](); id != "" {
			md[primitives.TypeIdentityMetadataKey] = id
		}
		def, err := primitives.NewExportDefinition(to, md)
		if err != nil {
			return nil, err
		}
		return primitives.NewExport(def, func() (any, error) {
			v, err := primitives.ValueAs[T](src)
			if err != nil {
				return nil, err
			}
			return fn(v)
		}), nil
	}
}
