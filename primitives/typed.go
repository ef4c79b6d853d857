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

package primitives

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ValueAs realizes e and converts the value to T.
func ValueAs[T any](e *Export) (T, error) {
	var zero T
	v, err := e.Value()
	if err != nil {
		return zero, err
	}
	return convert[T](e.ContractName(), v)
}

func convert[T any](contract string, v any) (T, error) {
	var zero T
	want := reflect.TypeFor[T]()
	if v == nil {
		switch want.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return zero, nil
		}
		return zero, &ContractMismatchError{Contract: contract, Want: want}
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	return zero, &ContractMismatchError{Contract: contract, Want: want, Got: reflect.TypeOf(v)}
}

// TypedExport views an export as producing T.
type TypedExport[T any] struct {
	*Export
}

// Typed wraps e.
func Typed[T any](e *Export) TypedExport[T] { return TypedExport[T]{Export: e} }

// Value realizes the export and converts it to T.
func (e TypedExport[T]) Value() (T, error) { return ValueAs[T](e.Export) }

// TypedExportWithMetadata additionally decodes the export metadata into M.
type TypedExportWithMetadata[T, M any] struct {
	TypedExport[T]
	view M
}

// TypedWithMetadata wraps e and decodes its metadata view.
func TypedWithMetadata[T, M any](e *Export) (TypedExportWithMetadata[T, M], error) {
	view, err := DecodeMetadata[M](e.definition.metadata)
	if err != nil {
		return TypedExportWithMetadata[T, M]{}, err
	}
	return TypedExportWithMetadata[T, M]{TypedExport: Typed[T](e), view: view}, nil
}

// View returns the decoded metadata view.
func (e TypedExportWithMetadata[T, M]) View() M { return e.view }

// DecodeMetadata decodes md into a view of type M (a struct or a map).
func DecodeMetadata[M any](md Metadata) (M, error) {
	var out M
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(map[string]any(md)); err != nil {
		return out, &CompositionError{
			ID:          ErrorIDInvalidExportMetadata,
			Description: fmt.Sprintf("export metadata cannot be decoded into %s", reflect.TypeFor[M]()),
			Cause:       err,
		}
	}
	return out, nil
}

// MetadataViewKeys lists the metadata keys a view type requires: every
// exported field of a struct view, named by its mapstructure tag or field
// name, except fields tagged omitempty. Map and interface views require none.
func MetadataViewKeys(t reflect.Type) []string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		flags := strings.Split(opts, ",")
		if slices.Contains(flags, "omitempty") || slices.Contains(flags, "squash") || slices.Contains(flags, "remain") {
			continue
		}
		if name == "" {
			name = f.Name
		}
		keys = append(keys, name)
	}
	return keys
}
