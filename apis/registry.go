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

import "reflect"

// Registry pins the identity of selected types, overriding the reflected one.
// Exports and imports of a registered type agree on the pinned identity even
// when the type moves between packages.
type Registry interface {
	// Register pins t to identity. Re-registering the same pair is a no-op;
	// a different identity for a registered type is an error.
	Register(t reflect.Type, identity string) error
	// Lookup returns the pinned identity of t.
	Lookup(t reflect.Type) (identity string, ok bool)
	// Entries returns a snapshot (order is unspecified).
	Entries() []Entry
	// Count returns the number of pinned types.
	Count() int
	// Reset forgets every entry.
	Reset()
}

// Entry is a single pinned (type, identity) pair.
type Entry struct {
	Type     reflect.Type
	Identity string
}
