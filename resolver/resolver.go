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

package resolver

import (
	"reflect"

	"dirpx.dev/mef/apis"
)

// New constructs an apis.Resolver that asks the given strategies in order.
// Nil strategies are ignored. The first strategy that handles a value or
// type decides its identity, even when that identity is "".
func New(strategies ...apis.Strategy) apis.Resolver {
	out := make([]apis.Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			out = append(out, s)
		}
	}
	return chain{strats: out}
}

// chain is immutable once built, so it is safe for concurrent use whenever
// its strategies are.
type chain struct {
	strats []apis.Strategy
}

func (r chain) Resolve(v any, cfg apis.Config) string {
	for _, s := range r.strats {
		if id, ok := s.TryResolve(v, cfg); ok {
			return id
		}
	}
	return ""
}

func (r chain) ResolveType(t reflect.Type, cfg apis.Config) string {
	for _, s := range r.strats {
		if id, ok := s.TryResolveType(t, cfg); ok {
			return id
		}
	}
	return ""
}
