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

package strategy

import (
	"reflect"

	"dirpx.dev/mef/apis"
)

// NewNamerStrategy creates an apis.Strategy that asks apis.Namer.
func NewNamerStrategy() apis.Strategy {
	return &namerStrategy{}
}

// namerStrategy lets types choose their identity by implementing apis.Namer.
type namerStrategy struct{}

var _ apis.Strategy = (*namerStrategy)(nil)

var namerType = reflect.TypeFor[apis.Namer]()

// TryResolve returns v.ContractName() when v implements apis.Namer.
func (*namerStrategy) TryResolve(v any, _ apis.Config) (string, bool) {
	if v == nil {
		return "", false
	}
	if n, ok := v.(apis.Namer); ok {
		return nonEmpty(callNamer(n))
	}
	return "", false
}

// TryResolveType asks a zero instance of t. Interface types have no
// instance and are never handled; neither are names that panic or are empty.
func (*namerStrategy) TryResolveType(t reflect.Type, _ apis.Config) (string, bool) {
	if t == nil || t.Kind() == reflect.Interface {
		return "", false
	}
	var inst reflect.Value
	switch {
	case t.Kind() == reflect.Pointer && t.Implements(namerType):
		inst = reflect.New(t.Elem())
	case t.Implements(namerType):
		inst = reflect.Zero(t)
	case reflect.PointerTo(t).Implements(namerType):
		inst = reflect.New(t)
	default:
		return "", false
	}
	return nonEmpty(callNamer(inst.Interface().(apis.Namer)))
}

func callNamer(n apis.Namer) (name string) {
	defer func() {
		if recover() != nil {
			name = ""
		}
	}()
	return n.ContractName()
}

func nonEmpty(s string) (string, bool) {
	return s, s != ""
}
