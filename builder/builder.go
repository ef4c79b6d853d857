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

package builder

import (
	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/registry"
	"dirpx.dev/mef/resolver"
	"dirpx.dev/mef/strategy"
)

// New returns the default apis.Builder: a fresh registry carrying over the
// pinned identities of the previous one, and the Namer -> Registry -> Reflect
// resolver chain.
func New() apis.Builder {
	return &builder{}
}

type builder struct{}

// BuildRegistry returns a new registry holding every entry of prev.
// The identity config does not affect pinned identities.
func (b *builder) BuildRegistry(_ apis.Config, prev apis.Registry) apis.Registry {
	nreg := registry.New()
	if prev != nil {
		for _, e := range prev.Entries() {
			_ = nreg.Register(e.Type, e.Identity)
		}
	}
	return nreg
}

// BuildResolver returns the default strategy chain over reg.
func (b *builder) BuildResolver(_ apis.Config, reg apis.Registry, _ apis.Resolver) apis.Resolver {
	return resolver.New(
		strategy.NewNamerStrategy(),
		strategy.NewRegistryStrategy(reg),
		strategy.NewReflectStrategy(),
	)
}
