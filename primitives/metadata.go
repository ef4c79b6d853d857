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

import "maps"

// Well-known metadata keys and contract names.
const (
	// TypeIdentityMetadataKey holds the type identity of an exported value.
	TypeIdentityMetadataKey = "mef.TypeIdentity"
	// CreationPolicyMetadataKey holds the CreationPolicy of the exporting part.
	CreationPolicyMetadataKey = "mef.CreationPolicy"
	// VersionMetadataKey holds a semantic version string.
	VersionMetadataKey = "mef.Version"
	// AdapterContractName is the reserved contract adapters are exported under.
	AdapterContractName = "mef.Adapter"
	// AdapterFromContractMetadataKey names the contract an adapter consumes.
	AdapterFromContractMetadataKey = "mef.AdapterFromContract"
	// AdapterToContractMetadataKey names the contract an adapter produces.
	AdapterToContractMetadataKey = "mef.AdapterToContract"
)

// Metadata is a read-only bag of export or part attributes.
// Values handed out by this package are copies; mutate only your own.
type Metadata map[string]any

// Has reports whether key is present.
func (m Metadata) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Get returns the value stored under key.
func (m Metadata) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (m Metadata) String(key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	maps.Copy(out, m)
	return out
}
