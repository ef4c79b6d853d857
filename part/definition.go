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

package part

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"dirpx.dev/mef/primitives"
)

// ErrNilFactory is returned by NewDefinition for a nil factory.
var ErrNilFactory = errors.New("mef(part): nil factory")

// Factory returns a fresh builder for every part instance.
type Factory func() *Builder

// Definition is a ComposablePartDefinition whose parts are built by a
// Factory. The export and import definitions are captured once, and every
// created part is bound to those same definitions, so definitions obtained
// from the Definition can be passed to any of its parts.
type Definition struct {
	id       string
	name     string
	metadata primitives.Metadata
	exports  []*primitives.ExportDefinition
	imports  []primitives.ImportDefinition
	factory  Factory
}

var (
	_ primitives.ComposablePartDefinition = (*Definition)(nil)
	_ primitives.Identified               = (*Definition)(nil)
)

// NewDefinition builds one prototype part to capture the shape the factory
// produces. The prototype is discarded without being activated or closed.
func NewDefinition(factory Factory) (*Definition, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	proto, err := factory().Build()
	if err != nil {
		return nil, err
	}
	return &Definition{
		id:       uuid.NewString(),
		name:     proto.name,
		metadata: proto.metadata,
		exports:  proto.ExportDefinitions(),
		imports:  proto.ImportDefinitions(),
		factory:  factory,
	}, nil
}

// ID implements primitives.Identified.
func (d *Definition) ID() string { return d.id }

// Metadata implements primitives.ComposablePartDefinition.
func (d *Definition) Metadata() primitives.Metadata { return d.metadata.Clone() }

// ExportDefinitions implements primitives.ComposablePartDefinition.
func (d *Definition) ExportDefinitions() []*primitives.ExportDefinition {
	return append([]*primitives.ExportDefinition(nil), d.exports...)
}

// ImportDefinitions implements primitives.ComposablePartDefinition.
func (d *Definition) ImportDefinitions() []primitives.ImportDefinition {
	return append([]primitives.ImportDefinition(nil), d.imports...)
}

// CreatePart implements primitives.ComposablePartDefinition.
func (d *Definition) CreatePart() (primitives.ComposablePart, error) {
	p, err := d.factory().Build()
	if err != nil {
		return nil, err
	}
	if len(p.exports) != len(d.exports) || len(p.imports) != len(d.imports) {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionMismatch, d.name)
	}
	for i := range p.exports {
		if p.exports[i].def.ContractName() != d.exports[i].ContractName() {
			return nil, fmt.Errorf("%w: %s exports %s, expected %s",
				ErrDefinitionMismatch, d.name, p.exports[i].def, d.exports[i])
		}
		p.exports[i].def = d.exports[i]
	}
	for i := range p.imports {
		if p.imports[i].def.String() != d.imports[i].String() {
			return nil, fmt.Errorf("%w: %s imports %s, expected %s",
				ErrDefinitionMismatch, d.name, p.imports[i].def, d.imports[i])
		}
		p.imports[i].def = d.imports[i]
	}
	p.origin = d
	return p, nil
}

// DisplayName implements primitives.Element.
func (d *Definition) DisplayName() string { return d.name }

// Origin implements primitives.Element.
func (d *Definition) Origin() primitives.Element { return nil }

func (d *Definition) String() string { return d.name }
