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

// Strategy is one step of a Resolver chain.
type Strategy interface {
	// TryResolve returns (identity, true) if it handles v; otherwise ("", false).
	TryResolve(v any, cfg Config) (identity string, handled bool)
	// TryResolveType does the same for a type.
	TryResolveType(t reflect.Type, cfg Config) (identity string, handled bool)
}

// Namer is implemented by types that choose their own identity, which then
// doubles as their default contract name.
type Namer interface {
	ContractName() string
}
