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

import (
	"fmt"
	"strings"
)

// Cardinality describes how many exports an import tolerates.
type Cardinality int

const (
	// ZeroOrOne accepts no match or a single match.
	ZeroOrOne Cardinality = iota
	// ExactlyOne requires a single match.
	ExactlyOne
	// ZeroOrMore accepts any number of matches.
	ZeroOrMore
)

// Valid reports whether c is one of the declared cardinalities.
func (c Cardinality) Valid() bool {
	return c >= ZeroOrOne && c <= ZeroOrMore
}

// Allows reports whether n matches satisfy c.
func (c Cardinality) Allows(n int) bool {
	switch c {
	case ExactlyOne:
		return n == 1
	case ZeroOrOne:
		return n <= 1
	case ZeroOrMore:
		return true
	}
	return false
}

func (c Cardinality) String() string {
	switch c {
	case ZeroOrOne:
		return "ZeroOrOne"
	case ExactlyOne:
		return "ExactlyOne"
	case ZeroOrMore:
		return "ZeroOrMore"
	}
	return fmt.Sprintf("Cardinality(%d)", int(c))
}

// ParseCardinality accepts the String form, case-insensitively.
func ParseCardinality(s string) (Cardinality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zeroorone", "optional":
		return ZeroOrOne, nil
	case "exactlyone", "", "one":
		return ExactlyOne, nil
	case "zeroormore", "many":
		return ZeroOrMore, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCardinality, s)
}

// CreationPolicy controls whether the part behind an export is shared.
type CreationPolicy int

const (
	// Any lets the other side of the match decide.
	Any CreationPolicy = iota
	// Shared means one instance per provider.
	Shared
	// NonShared means a fresh instance per request.
	NonShared
)

// Valid reports whether p is one of the declared policies.
func (p CreationPolicy) Valid() bool {
	return p >= Any && p <= NonShared
}

func (p CreationPolicy) String() string {
	switch p {
	case Any:
		return "Any"
	case Shared:
		return "Shared"
	case NonShared:
		return "NonShared"
	}
	return fmt.Sprintf("CreationPolicy(%d)", int(p))
}

// ParseCreationPolicy accepts the String form, case-insensitively.
func ParseCreationPolicy(s string) (CreationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "any", "":
		return Any, nil
	case "shared":
		return Shared, nil
	case "nonshared", "non-shared", "non_shared":
		return NonShared, nil
	}
	return Any, fmt.Errorf("%w: %q", ErrInvalidCreationPolicy, s)
}

// PolicyCompatible reports whether a part with partPolicy may satisfy an
// import that requires importPolicy.
func PolicyCompatible(partPolicy, importPolicy CreationPolicy) bool {
	switch importPolicy {
	case Shared:
		return partPolicy == Any || partPolicy == Shared
	case NonShared:
		return partPolicy == Any || partPolicy == NonShared
	}
	return true
}

// policyOf reads the creation policy stored in export metadata.
// Missing or unreadable values count as Any.
func policyOf(md Metadata) CreationPolicy {
	v, ok := md[CreationPolicyMetadataKey]
	if !ok {
		return Any
	}
	switch p := v.(type) {
	case CreationPolicy:
		return p
	case string:
		if cp, err := ParseCreationPolicy(p); err == nil {
			return cp
		}
	}
	return Any
}

// PolicyOf returns the creation policy declared by an export definition.
func PolicyOf(def *ExportDefinition) CreationPolicy {
	if def == nil {
		return Any
	}
	return policyOf(def.metadata)
}
