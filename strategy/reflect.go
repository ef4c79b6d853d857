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
	"sync"

	"dirpx.dev/mef/apis"
	uref "dirpx.dev/mef/utils/reflect"
)

// NewReflectStrategy creates the universal fallback: the structural identity
// rendered by utils/reflect.Identity, memoized per type and config.
func NewReflectStrategy() apis.Strategy {
	return reflectStrategy{}
}

type reflectStrategy struct{}

var _ apis.Strategy = (*reflectStrategy)(nil)

// cacheKey ensures memoization respects every knob that affects rendering.
type cacheKey struct {
	t               reflect.Type
	includeBuiltins bool
	maxUnwrap       int16
	qualify         bool
}

// identityCache caches rendered identities; "" marks unrenderable types.
var identityCache sync.Map // key: cacheKey, val: string

// TryResolve renders v's dynamic type.
func (reflectStrategy) TryResolve(v any, cfg apis.Config) (string, bool) {
	if v == nil {
		return "", false
	}
	return byType(reflect.TypeOf(v), cfg), true
}

// TryResolveType renders t.
func (reflectStrategy) TryResolveType(t reflect.Type, cfg apis.Config) (string, bool) {
	if t == nil {
		return "", false
	}
	return byType(t, cfg), true
}

func byType(t reflect.Type, cfg apis.Config) string {
	key := cacheKey{
		t:               t,
		includeBuiltins: cfg.IncludeBuiltins,
		maxUnwrap:       int16(cfg.MaxUnwrap),
		qualify:         cfg.QualifyPackages,
	}
	if v, ok := identityCache.Load(key); ok {
		return v.(string)
	}
	id, err := uref.Identity(t, cfg)
	if err != nil {
		id = ""
	}
	identityCache.Store(key, id)
	return id
}
