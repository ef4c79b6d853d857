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

// ComposablePart is the unit of composition.
//
// Parts that own resources implement io.Closer; whoever created the part
// closes it exactly once.
type ComposablePart interface {
	// Metadata describes the part.
	Metadata() Metadata
	// ExportDefinitions lists what the part offers, in declaration order.
	ExportDefinitions() []*ExportDefinition
	// ImportDefinitions lists what the part needs, in declaration order.
	ImportDefinitions() []ImportDefinition
	// SetImport binds the exports matched for one of the part's imports.
	SetImport(def ImportDefinition, exports []*Export) error
	// GetExportedValue produces the value of one of the part's exports.
	GetExportedValue(def *ExportDefinition) (any, error)
	// OnComposed is called once all imports have been set.
	OnComposed() error
}

// ComposablePartDefinition is the declarative description of a part that can
// be instantiated on demand.
type ComposablePartDefinition interface {
	Metadata() Metadata
	ExportDefinitions() []*ExportDefinition
	ImportDefinitions() []ImportDefinition
	CreatePart() (ComposablePart, error)
}

// Identified is implemented by definitions with a stable identifier.
type Identified interface {
	ID() string
}

// Element names a participant of composition in error reports.
type Element interface {
	DisplayName() string
	// Origin is the element this one came from, or nil.
	Origin() Element
}

type element struct {
	name   string
	origin Element
}

func (e element) DisplayName() string { return e.name }
func (e element) Origin() Element     { return e.origin }
func (e element) String() string      { return e.name }

// NewElement returns an element named name that originates from origin.
func NewElement(name string, origin Element) Element {
	return element{name: name, origin: origin}
}

// ElementOf returns v as an Element: v itself when it implements Element,
// otherwise an element named after its String form or dynamic type.
func ElementOf(v any) Element {
	switch x := v.(type) {
	case nil:
		return nil
	case Element:
		return x
	case fmt.Stringer:
		return element{name: x.String()}
	}
	return element{name: fmt.Sprintf("%T", v)}
}

// ImportElement names the import def of part p.
func ImportElement(def ImportDefinition, p any) Element {
	return NewElement(fmt.Sprintf("Import %s", def), ElementOf(p))
}

// ExportElement names the export def of part p.
func ExportElement(def *ExportDefinition, p any) Element {
	return NewElement(fmt.Sprintf("Export %s", def), ElementOf(p))
}

// ElementChain renders e and its origins: "a --> b --> c".
func ElementChain(e Element) string {
	var parts []string
	for i := 0; e != nil && i < maxElementChain; i++ {
		parts = append(parts, e.DisplayName())
		e = e.Origin()
	}
	return strings.Join(parts, " --> ")
}

const maxElementChain = 64
