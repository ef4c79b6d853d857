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

// Config carries the read-only knobs of type identity resolution.
// It is passed by value and should be treated as immutable by implementations.
type Config struct {
	// IncludeBuiltins controls whether predeclared types ("int", "string")
	// have an identity. If false, such types resolve to "" and typed
	// queries over them skip the type identity check.
	IncludeBuiltins bool
	// MaxUnwrap bounds how deep composite types (pointer, slice, array,
	// chan, map) are rendered. Deeper types resolve to "".
	MaxUnwrap int
	// QualifyPackages renders named types with their full import path
	// ("dirpx.dev/mef/part.Widget") instead of the last path element
	// ("part.Widget").
	QualifyPackages bool
}
