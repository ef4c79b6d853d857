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
	"slices"
	"strings"
)

// ExportDefinition describes one value a part offers.
type ExportDefinition struct {
	contractName string
	metadata     Metadata
}

// NewExportDefinition returns an immutable export definition.
// The metadata map is copied.
func NewExportDefinition(contractName string, metadata map[string]any) (*ExportDefinition, error) {
	if contractName == "" {
		return nil, ErrEmptyContractName
	}
	return &ExportDefinition{
		contractName: contractName,
		metadata:     Metadata(metadata).Clone(),
	}, nil
}

// ContractName returns the contract the export is offered under.
func (d *ExportDefinition) ContractName() string { return d.contractName }

// Metadata returns a copy of the export metadata.
func (d *ExportDefinition) Metadata() Metadata { return d.metadata.Clone() }

// MetadataValue returns a single metadata value without copying the map.
func (d *ExportDefinition) MetadataValue(key string) (any, bool) {
	v, ok := d.metadata[key]
	return v, ok
}

// Equal compares contract name and metadata structurally.
func (d *ExportDefinition) Equal(o *ExportDefinition) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil {
		return false
	}
	if d.contractName != o.contractName || len(d.metadata) != len(o.metadata) {
		return false
	}
	for k, v := range d.metadata {
		ov, ok := o.metadata[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

func (d *ExportDefinition) String() string {
	return d.contractName
}

// DisplayName implements Element.
func (d *ExportDefinition) DisplayName() string { return d.String() }

// Origin implements Element.
func (d *ExportDefinition) Origin() Element { return nil }

// ImportDefinition describes a requirement a part has on exports.
type ImportDefinition interface {
	// Constraint is the predicate an export definition must satisfy.
	Constraint() Constraint
	// Cardinality is the number of matches tolerated.
	Cardinality() Cardinality
	// IsRecomposable reports whether the import is re-resolved on change.
	IsRecomposable() bool
	// IsPrerequisite reports whether the import must be set before activation.
	IsPrerequisite() bool
	String() string
}

// ImportOption configures an import definition under construction.
type ImportOption func(*importSpec)

type importSpec struct {
	typeIdentity string
	metadata     []string
	cardinality  Cardinality
	recomposable bool
	prerequisite bool
	policy       CreationPolicy
	extra        []Constraint
}

// WithCardinality sets the cardinality (default ExactlyOne).
func WithCardinality(c Cardinality) ImportOption {
	return func(s *importSpec) { s.cardinality = c }
}

// WithTypeIdentity requires the export's type identity.
func WithTypeIdentity(identity string) ImportOption {
	return func(s *importSpec) { s.typeIdentity = identity }
}

// WithRequiredMetadata requires the given metadata keys on the export.
func WithRequiredMetadata(keys ...string) ImportOption {
	return func(s *importSpec) { s.metadata = append(s.metadata, keys...) }
}

// WithRecomposable marks the import recomposable.
func WithRecomposable(v bool) ImportOption {
	return func(s *importSpec) { s.recomposable = v }
}

// WithPrerequisite marks the import as a prerequisite.
func WithPrerequisite(v bool) ImportOption {
	return func(s *importSpec) { s.prerequisite = v }
}

// WithRequiredCreationPolicy restricts the creation policy of the exporter.
func WithRequiredCreationPolicy(p CreationPolicy) ImportOption {
	return func(s *importSpec) { s.policy = p }
}

// WithConstraint adds an extra term to the derived constraint.
func WithConstraint(c Constraint) ImportOption {
	return func(s *importSpec) {
		if c != nil {
			s.extra = append(s.extra, c)
		}
	}
}

func buildSpec(opts []ImportOption) (importSpec, error) {
	s := importSpec{cardinality: ExactlyOne}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if !s.cardinality.Valid() {
		return s, fmt.Errorf("%w: %s", ErrInvalidCardinality, s.cardinality)
	}
	if !s.policy.Valid() {
		return s, fmt.Errorf("%w: %s", ErrInvalidCreationPolicy, s.policy)
	}
	for _, k := range s.metadata {
		if k == "" {
			return s, ErrEmptyMetadataKey
		}
	}
	s.metadata = dedupe(s.metadata)
	return s, nil
}

// ContractBasedImportDefinition is an import keyed by contract name.
type ContractBasedImportDefinition struct {
	contractName string
	spec         importSpec
	constraint   Constraint
}

// NewContractBasedImport returns an import for contractName.
func NewContractBasedImport(contractName string, opts ...ImportOption) (*ContractBasedImportDefinition, error) {
	if contractName == "" {
		return nil, ErrEmptyContractName
	}
	s, err := buildSpec(opts)
	if err != nil {
		return nil, err
	}
	c := CreateConstraint(contractName, s.typeIdentity, s.metadata, s.policy)
	if len(s.extra) > 0 {
		c = And(append([]Constraint{c}, s.extra...)...)
	}
	return &ContractBasedImportDefinition{contractName: contractName, spec: s, constraint: c}, nil
}

// ContractName returns the required contract.
func (d *ContractBasedImportDefinition) ContractName() string { return d.contractName }

// RequiredTypeIdentity returns the required type identity, or "".
func (d *ContractBasedImportDefinition) RequiredTypeIdentity() string { return d.spec.typeIdentity }

// RequiredMetadata returns the required metadata keys.
func (d *ContractBasedImportDefinition) RequiredMetadata() []string {
	return slices.Clone(d.spec.metadata)
}

// RequiredCreationPolicy returns the creation policy the exporter must allow.
func (d *ContractBasedImportDefinition) RequiredCreationPolicy() CreationPolicy {
	return d.spec.policy
}

// Constraint implements ImportDefinition.
func (d *ContractBasedImportDefinition) Constraint() Constraint { return d.constraint }

// Cardinality implements ImportDefinition.
func (d *ContractBasedImportDefinition) Cardinality() Cardinality { return d.spec.cardinality }

// IsRecomposable implements ImportDefinition.
func (d *ContractBasedImportDefinition) IsRecomposable() bool { return d.spec.recomposable }

// IsPrerequisite implements ImportDefinition.
func (d *ContractBasedImportDefinition) IsPrerequisite() bool { return d.spec.prerequisite }

// IsConstraintSatisfiedBy evaluates the derived constraint.
func (d *ContractBasedImportDefinition) IsConstraintSatisfiedBy(def *ExportDefinition) bool {
	return def != nil && d.constraint.Matches(def)
}

func (d *ContractBasedImportDefinition) String() string {
	var b strings.Builder
	b.WriteString(d.contractName)
	if d.spec.typeIdentity != "" && d.spec.typeIdentity != d.contractName {
		b.WriteString(" (")
		b.WriteString(d.spec.typeIdentity)
		b.WriteString(")")
	}
	return b.String()
}

// DisplayName implements Element.
func (d *ContractBasedImportDefinition) DisplayName() string { return d.String() }

// Origin implements Element.
func (d *ContractBasedImportDefinition) Origin() Element { return nil }

// constraintImport is an import driven by an arbitrary constraint.
type constraintImport struct {
	constraint Constraint
	spec       importSpec
}

// NewImport returns an import for an arbitrary constraint. Contract specific
// options (type identity, metadata, policy) are folded into the constraint.
func NewImport(c Constraint, opts ...ImportOption) (ImportDefinition, error) {
	if c == nil {
		return nil, ErrNilConstraint
	}
	s, err := buildSpec(opts)
	if err != nil {
		return nil, err
	}
	terms := []Constraint{c}
	if s.typeIdentity != "" {
		terms = append(terms, TypeIdentityEquals(s.typeIdentity))
	}
	for _, k := range s.metadata {
		terms = append(terms, HasMetadataKey(k))
	}
	if s.policy != Any {
		terms = append(terms, CreationPolicyAllows(s.policy))
	}
	terms = append(terms, s.extra...)
	if len(terms) > 1 {
		c = And(terms...)
	}
	return &constraintImport{constraint: c, spec: s}, nil
}

func (d *constraintImport) Constraint() Constraint   { return d.constraint }
func (d *constraintImport) Cardinality() Cardinality { return d.spec.cardinality }
func (d *constraintImport) IsRecomposable() bool     { return d.spec.recomposable }
func (d *constraintImport) IsPrerequisite() bool     { return d.spec.prerequisite }
func (d *constraintImport) String() string           { return d.constraint.String() }

// ContractNameOf returns the contract an import targets, when it can be known
// without evaluating the constraint.
func ContractNameOf(def ImportDefinition) (string, bool) {
	if def == nil {
		return "", false
	}
	if cb, ok := def.(*ContractBasedImportDefinition); ok {
		return cb.contractName, true
	}
	name, _, ok := ParseConstraint(def.Constraint())
	return name, ok
}

// Matches reports whether def satisfies the import's constraint.
func Matches(imp ImportDefinition, def *ExportDefinition) bool {
	if imp == nil || def == nil {
		return false
	}
	c := imp.Constraint()
	return c != nil && c.Matches(def)
}

func dedupe(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
