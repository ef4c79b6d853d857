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

package apis

import (
	"reflect"
)

// Resolver turns values and types into type identities.
// Typical chain: Namer -> Registry -> Reflect.
type Resolver interface {
	// Resolve returns the identity of v's dynamic type, or "".
	Resolve(v any, cfg Config) string
	// ResolveType returns the identity of t, or "".
	ResolveType(t reflect.Type, cfg Config) string
}
