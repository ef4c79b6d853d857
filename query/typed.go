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

package query

import (
	"errors"
	"reflect"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/primitives"
)

var (
	// ErrNilProvider is returned when a query has no provider to run against.
	ErrNilProvider = errors.New("mef(query): nil export provider")
	// ErrNilImport is returned when a query has no import definition.
	ErrNilImport = errors.New("mef(query): nil import definition")
)

func typed[T any](p apis.ExportProvider, view reflect.Type, contract string, c primitives.Cardinality) ([]*primitives.Export, error) {
	def, err := ImportFor(reflect.TypeFor[T](), view, contract, c)
	if err != nil {
		return nil, err
	}
	return GetExports(p, def)
}

// Export returns the single export of T under contract.
func Export[T any](p apis.ExportProvider, contract string) (primitives.TypedExport[T], error) {
	exports, err := typed[T](p, nil, contract, primitives.ExactlyOne)
	if err != nil {
		return primitives.TypedExport[T]{}, err
	}
	return primitives.Typed[T](exports[0]), nil
}

// ExportWithMetadata returns the single export of T under contract with its
// metadata decoded into M.
func ExportWithMetadata[T, M any](p apis.ExportProvider, contract string) (primitives.TypedExportWithMetadata[T, M], error) {
	exports, err := typed[T](p, reflect.TypeFor[M](), contract, primitives.ExactlyOne)
	if err != nil {
		return primitives.TypedExportWithMetadata[T, M]{}, err
	}
	return primitives.TypedWithMetadata[T, M](exports[0])
}

// Exports returns every export of T under contract.
func Exports[T any](p apis.ExportProvider, contract string) ([]primitives.TypedExport[T], error) {
	exports, err := typed[T](p, nil, contract, primitives.ZeroOrMore)
	if err != nil {
		return nil, err
	}
	out := make([]primitives.TypedExport[T], len(exports))
	for i, e := range exports {
		out[i] = primitives.Typed[T](e)
	}
	return out, nil
}

// ExportsWithMetadata returns every export of T under contract with its
// metadata decoded into M.
func ExportsWithMetadata[T, M any](p apis.ExportProvider, contract string) ([]primitives.TypedExportWithMetadata[T, M], error) {
	exports, err := typed[T](p, reflect.TypeFor[M](), contract, primitives.ZeroOrMore)
	if err != nil {
		return nil, err
	}
	out := make([]primitives.TypedExportWithMetadata[T, M], 0, len(exports))
	for _, e := range exports {
		te, err := primitives.TypedWithMetadata[T, M](e)
		if err != nil {
			return nil, err
		}
		out = append(out, te)
	}
	return out, nil
}

// Value realizes the single export of T under contract.
func Value[T any](p apis.ExportProvider, contract string) (T, error) {
	e, err := Export[T](p, contract)
	if err != nil {
		var zero T
		return zero, err
	}
	return e.Value()
}

// ValueOrDefault is Value tolerating a missing export, for which it returns
// the zero value of T.
func ValueOrDefault[T any](p apis.ExportProvider, contract string) (T, error) {
	var zero T
	exports, err := typed[T](p, nil, contract, primitives.ZeroOrOne)
	if err != nil || len(exports) == 0 {
		return zero, err
	}
	return primitives.ValueAs[T](exports[0])
}

// Values realizes every export of T under contract, in provider order.
func Values[T any](p apis.ExportProvider, contract string) ([]T, error) {
	exports, err := typed[T](p, nil, contract, primitives.ZeroOrMore)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(exports))
	for _, e := range exports {
		v, err := primitives.ValueAs[T](e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
