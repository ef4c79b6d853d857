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
	"reflect"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Constraint is a predicate over export definitions. The concrete node types
// below form an inspectable expression tree, so providers can recover indexed
// lookups from it (see ParseConstraint).
type Constraint interface {
	Matches(def *ExportDefinition) bool
	String() string
}

// ContractNameEquals matches exports offered under the contract.
type ContractNameEquals string

func (c ContractNameEquals) Matches(def *ExportDefinition) bool {
	return def != nil && def.contractName == string(c)
}

func (c ContractNameEquals) String() string {
	return fmt.Sprintf("exportDefinition.ContractName == %q", string(c))
}

// HasMetadataKey matches exports whose metadata contains the key.
type HasMetadataKey string

func (c HasMetadataKey) Matches(def *ExportDefinition) bool {
	return def != nil && def.metadata.Has(string(c))
}

func (c HasMetadataKey) String() string {
	return fmt.Sprintf("exportDefinition.Metadata.ContainsKey(%q)", string(c))
}

// TypeIdentityEquals matches exports declaring the type identity.
type TypeIdentityEquals string

func (c TypeIdentityEquals) Matches(def *ExportDefinition) bool {
	if def == nil {
		return false
	}
	s, ok := def.metadata.String(TypeIdentityMetadataKey)
	return ok && s == string(c)
}

func (c TypeIdentityEquals) String() string {
	return fmt.Sprintf("exportDefinition.Metadata[%q] == %q", TypeIdentityMetadataKey, string(c))
}

// CreationPolicyAllows matches exports whose part policy is compatible with
// the required policy.
type CreationPolicyAllows CreationPolicy

func (c CreationPolicyAllows) Matches(def *ExportDefinition) bool {
	return def != nil && PolicyCompatible(policyOf(def.metadata), CreationPolicy(c))
}

func (c CreationPolicyAllows) String() string {
	return fmt.Sprintf("CreationPolicyCompatible(exportDefinition, %s)", CreationPolicy(c))
}

// MetadataEquals matches exports whose metadata holds an equal value.
type MetadataEquals struct {
	Key   string
	Value any
}

func (c MetadataEquals) Matches(def *ExportDefinition) bool {
	if def == nil {
		return false
	}
	v, ok := def.metadata[c.Key]
	return ok && reflect.DeepEqual(v, c.Value)
}

func (c MetadataEquals) String() string {
	return fmt.Sprintf("exportDefinition.Metadata[%q] == %v", c.Key, c.Value)
}

// VersionSatisfies matches exports whose VersionMetadataKey value lies in a
// semantic version range.
type VersionSatisfies struct {
	raw         string
	constraints *semver.Constraints
}

// NewVersionConstraint parses a range such as ">= 1.2, < 2".
func NewVersionConstraint(rng string) (*VersionSatisfies, error) {
	c, err := semver.NewConstraint(rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidVersionRange, rng, err)
	}
	return &VersionSatisfies{raw: rng, constraints: c}, nil
}

func (c *VersionSatisfies) Matches(def *ExportDefinition) bool {
	if def == nil {
		return false
	}
	var v *semver.Version
	switch raw := def.metadata[VersionMetadataKey].(type) {
	case *semver.Version:
		v = raw
	case string:
		parsed, err := semver.NewVersion(raw)
		if err != nil {
			return false
		}
		v = parsed
	default:
		return false
	}
	return c.constraints.Check(v)
}

func (c *VersionSatisfies) String() string {
	return fmt.Sprintf("exportDefinition.Metadata[%q] in %q", VersionMetadataKey, c.raw)
}

// AndConstraint matches when every term matches.
type AndConstraint []Constraint

// And combines terms; a single term is returned as is.
func And(terms ...Constraint) Constraint {
	if len(terms) == 1 {
		return terms[0]
	}
	return AndConstraint(terms)
}

func (c AndConstraint) Matches(def *ExportDefinition) bool {
	for _, t := range c {
		if t == nil || !t.Matches(def) {
			return false
		}
	}
	return true
}

func (c AndConstraint) String() string { return join(c, " && ") }

// OrConstraint matches when any term matches.
type OrConstraint []Constraint

// Or combines terms.
func Or(terms ...Constraint) Constraint { return OrConstraint(terms) }

func (c OrConstraint) Matches(def *ExportDefinition) bool {
	for _, t := range c {
		if t != nil && t.Matches(def) {
			return true
		}
	}
	return false
}

func (c OrConstraint) String() string { return join(c, " || ") }

// NotConstraint negates its operand.
type NotConstraint struct{ Operand Constraint }

// Not negates c.
func Not(c Constraint) Constraint { return NotConstraint{Operand: c} }

func (c NotConstraint) Matches(def *ExportDefinition) bool {
	return c.Operand != nil && !c.Operand.Matches(def)
}

func (c NotConstraint) String() string { return "!(" + fmt.Sprint(c.Operand) + ")" }

// FuncConstraint is an opaque predicate. Providers cannot index it.
type FuncConstraint struct {
	Name string
	Fn   func(*ExportDefinition) bool
}

func (c FuncConstraint) Matches(def *ExportDefinition) bool {
	return c.Fn != nil && def != nil && c.Fn(def)
}

func (c FuncConstraint) String() string {
	if c.Name == "" {
		return "func(exportDefinition)"
	}
	return c.Name + "(exportDefinition)"
}

// CreateConstraint builds the canonical constraint of a contract based import.
// Terms that always hold (empty type identity, Any policy) are left out.
func CreateConstraint(contractName, requiredTypeIdentity string, requiredMetadata []string, policy CreationPolicy) Constraint {
	terms := []Constraint{ContractNameEquals(contractName)}
	if requiredTypeIdentity != "" {
		terms = append(terms, TypeIdentityEquals(requiredTypeIdentity))
	}
	for _, k := range requiredMetadata {
		terms = append(terms, HasMetadataKey(k))
	}
	if policy != Any {
		terms = append(terms, CreationPolicyAllows(policy))
	}
	return And(terms...)
}

// ParseConstraint recovers the contract name and required metadata keys from
// an AND tree made only of ContractNameEquals and HasMetadataKey terms.
// Any other shape, or a tree naming no contract or two different contracts,
// yields ok == false and no partial result.
func ParseConstraint(c Constraint) (contractName string, requiredMetadata []string, ok bool) {
	var keys []string
	if !walkAnd(c, &contractName, &keys) || contractName == "" {
		return "", nil, false
	}
	return contractName, dedupe(keys), true
}

func walkAnd(c Constraint, name *string, keys *[]string) bool {
	switch n := c.(type) {
	case ContractNameEquals:
		if n == "" || (*name != "" && *name != string(n)) {
			return false
		}
		*name = string(n)
		return true
	case HasMetadataKey:
		if n == "" {
			return false
		}
		*keys = append(*keys, string(n))
		return true
	case AndConstraint:
		if len(n) == 0 {
			return false
		}
		for _, t := range n {
			if !walkAnd(t, name, keys) {
				return false
			}
		}
		return true
	}
	return false
}

func join(cs []Constraint, sep string) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, "("+fmt.Sprint(c)+")")
	}
	return strings.Join(parts, sep)
}
