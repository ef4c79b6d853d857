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

package reflect

import (
	"errors"
	"path"
	"reflect"
	"strconv"
	"strings"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/config"
)

var (
	// ErrReflectNilType is returned when a nil reflect.Type is provided.
	ErrReflectNilType = errors.New("reflect: nil reflect.Type provided")
	// ErrReflectTooDeep is returned when a composite type nests deeper than
	// the configured MaxUnwrap.
	ErrReflectTooDeep = errors.New("reflect: type nests deeper than MaxUnwrap")
	// ErrReflectBuiltinHidden is returned for predeclared types when
	// IncludeBuiltins is off.
	ErrReflectBuiltinHidden = errors.New("reflect: builtin type has no identity")
)

// Identity renders the type identity of t.
//
// Rendering policy:
//   - named types: "pkg.Name" (or the full import path when QualifyPackages),
//     predeclared types by their bare name ("int", "error");
//   - pointer/slice/array/chan/map: Go syntax around the rendered element(s),
//     e.g. "*pkg.T", "[]pkg.T", "[4]int", "<-chan pkg.T", "map[string]pkg.T";
//   - other unnamed types (func, struct, interface): reflect's String form.
//
// Each composite level counts against MaxUnwrap; if MaxUnwrap <= 0,
// DefaultMaxUnwrap is used.
func Identity(t reflect.Type, cfg apis.Config) (string, error) {
	if t == nil {
		return "", ErrReflectNilType
	}
	maxUnwrap := cfg.MaxUnwrap
	if maxUnwrap <= 0 {
		maxUnwrap = config.DefaultMaxUnwrap
	}
	var b strings.Builder
	if err := render(&b, t, cfg, maxUnwrap); err != nil {
		return "", err
	}
	return b.String(), nil
}

func render(b *strings.Builder, t reflect.Type, cfg apis.Config, budget int) error {
	if t.Name() != "" {
		return renderNamed(b, t, cfg)
	}
	if budget <= 0 {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Chan, reflect.Map:
			return ErrReflectTooDeep
		}
	}
	switch t.Kind() {
	case reflect.Pointer:
		b.WriteString("*")
		return render(b, t.Elem(), cfg, budget-1)
	case reflect.Slice:
		b.WriteString("[]")
		return render(b, t.Elem(), cfg, budget-1)
	case reflect.Array:
		b.WriteString("[" + strconv.Itoa(t.Len()) + "]")
		return render(b, t.Elem(), cfg, budget-1)
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			b.WriteString("<-chan ")
		case reflect.SendDir:
			b.WriteString("chan<- ")
		default:
			b.WriteString("chan ")
		}
		return render(b, t.Elem(), cfg, budget-1)
	case reflect.Map:
		b.WriteString("map[")
		if err := render(b, t.Key(), cfg, budget-1); err != nil {
			return err
		}
		b.WriteString("]")
		return render(b, t.Elem(), cfg, budget-1)
	}
	b.WriteString(t.String())
	return nil
}

func renderNamed(b *strings.Builder, t reflect.Type, cfg apis.Config) error {
	pkg := t.PkgPath()
	if pkg == "" {
		if !cfg.IncludeBuiltins {
			return ErrReflectBuiltinHidden
		}
		b.WriteString(t.Name())
		return nil
	}
	if !cfg.QualifyPackages {
		pkg = path.Base(pkg)
	}
	b.WriteString(pkg)
	b.WriteString(".")
	b.WriteString(t.Name())
	return nil
}
