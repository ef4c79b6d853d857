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

// Package part builds composable parts declaratively.
//
// A part is assembled with a Builder: each Export names a contract and the
// getter producing its value, each Import names a contract and the setter
// receiving the matched exports. Hooks run at activation (after the
// prerequisite imports are set), after composition and on Close.
//
//	var name string
//	p, err := part.NewBuilder("greeter").
//		Import("Name", part.Bind(&name), part.Prerequisite()).
//		Export("Greeting", func() (any, error) { return "hello " + name, nil }, part.Typed[string]()).
//		Build()
package part

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"dirpx.dev/mef/primitives"
)

var (
	// ErrUnknownImport is returned by SetImport for a definition the part
	// does not declare.
	ErrUnknownImport = errors.New("mef(part): import not declared by part")
	// ErrUnknownExport is returned by GetExportedValue for a definition the
	// part does not declare.
	ErrUnknownExport = errors.New("mef(part): export not declared by part")
	// ErrNilSetter is returned by Build for an import without a setter.
	ErrNilSetter = errors.New("mef(part): nil import setter")
	// ErrInvalidVersion is returned by Build for an unparsable export version.
	ErrInvalidVersion = errors.New("mef(part): invalid version")
	// ErrDefinitionMismatch is returned when a factory builds a part whose
	// shape differs from the one its definition captured.
	ErrDefinitionMismatch = errors.New("mef(part): part does not match its definition")
)

// Setter receives the exports matched for an import.
type Setter func(exports []*primitives.Export) error

type exportSlot struct {
	def *primitives.ExportDefinition
	get primitives.Getter
}

type importSlot struct {
	def primitives.ImportDefinition
	set Setter
}

// Part is a ComposablePart assembled by a Builder. It is safe for concurrent
// use; hooks and setters must not call back into the same part.
type Part struct {
	name     string
	origin   primitives.Element
	metadata primitives.Metadata
	exports  []exportSlot
	imports  []importSlot

	onActivate func() error
	onComposed func() error
	onClose    func() error

	// actMu serializes activation so the hook runs once.
	actMu sync.Mutex

	mu        sync.Mutex
	activated bool
	set       map[primitives.ImportDefinition]struct{}
	closed    bool
	closeErr  error
}

var _ primitives.ComposablePart = (*Part)(nil)

// Metadata implements primitives.ComposablePart.
func (p *Part) Metadata() primitives.Metadata { return p.metadata.Clone() }

// ExportDefinitions implements primitives.ComposablePart.
func (p *Part) ExportDefinitions() []*primitives.ExportDefinition {
	out := make([]*primitives.ExportDefinition, len(p.exports))
	for i, s := range p.exports {
		out[i] = s.def
	}
	return out
}

// ImportDefinitions implements primitives.ComposablePart.
func (p *Part) ImportDefinitions() []primitives.ImportDefinition {
	out := make([]primitives.ImportDefinition, len(p.imports))
	for i, s := range p.imports {
		out[i] = s.def
	}
	return out
}

// SetImport implements primitives.ComposablePart. Setting a non-prerequisite
// import activates the part first.
func (p *Part) SetImport(def primitives.ImportDefinition, exports []*primitives.Export) error {
	i := slices.IndexFunc(p.imports, func(s importSlot) bool { return s.def == def })
	if i < 0 {
		return fmt.Errorf("%w: %s on %s", ErrUnknownImport, def, p.name)
	}
	if p.isClosed() {
		return primitives.ErrDisposed
	}
	if !def.IsPrerequisite() {
		if err := p.activate(); err != nil {
			return err
		}
	}
	if err := p.imports[i].set(slices.Clone(exports)); err != nil {
		return err
	}
	p.mu.Lock()
	p.set[def] = struct{}{}
	p.mu.Unlock()
	return nil
}

// GetExportedValue implements primitives.ComposablePart. The part is
// activated first.
func (p *Part) GetExportedValue(def *primitives.ExportDefinition) (any, error) {
	i := slices.IndexFunc(p.exports, func(s exportSlot) bool { return s.def == def })
	if i < 0 {
		i = slices.IndexFunc(p.exports, func(s exportSlot) bool { return s.def.Equal(def) })
	}
	if i < 0 {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownExport, def, p.name)
	}
	if p.isClosed() {
		return nil, primitives.ErrDisposed
	}
	if err := p.activate(); err != nil {
		return nil, err
	}
	return p.exports[i].get()
}

// OnComposed implements primitives.ComposablePart.
func (p *Part) OnComposed() error {
	if p.isClosed() {
		return primitives.ErrDisposed
	}
	if err := p.activate(); err != nil {
		return err
	}
	if p.onComposed != nil {
		return p.onComposed()
	}
	return nil
}

// Close runs the close hook once and disposes the part.
func (p *Part) Close() error {
	p.mu.Lock()
	if p.closed {
		err := p.closeErr
		p.mu.Unlock()
		return err
	}
	p.closed = true
	p.mu.Unlock()

	var err error
	if p.onClose != nil {
		err = p.onClose()
	}
	p.mu.Lock()
	p.closeErr = err
	p.mu.Unlock()
	return err
}

// Activated reports whether the activation hook has run.
func (p *Part) Activated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activated
}

// DisplayName implements primitives.Element.
func (p *Part) DisplayName() string { return p.name }

// Origin implements primitives.Element; parts created from a Definition
// originate from it.
func (p *Part) Origin() primitives.Element { return p.origin }

func (p *Part) String() string { return p.name }

func (p *Part) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// activate checks that every prerequisite import is set and runs the
// activation hook, once.
func (p *Part) activate() error {
	p.actMu.Lock()
	defer p.actMu.Unlock()

	p.mu.Lock()
	if p.activated {
		p.mu.Unlock()
		return nil
	}
	var missing primitives.ImportDefinition
	for _, s := range p.imports {
		if !s.def.IsPrerequisite() {
			continue
		}
		if _, ok := p.set[s.def]; !ok {
			missing = s.def
			break
		}
	}
	p.mu.Unlock()

	if missing != nil {
		return primitives.NewCompositionException(primitives.NewCompositionError(
			primitives.ErrorIDImportNotSetOnPart, primitives.ImportElement(missing, p), nil,
			"import '%s' of part '%s' must be set before the part is activated", missing, p.name))
	}
	if p.onActivate != nil {
		if err := p.onActivate(); err != nil {
			return primitives.NewCompositionException(primitives.NewCompositionError(
				primitives.ErrorIDPartCannotActivate, p, err, "cannot activate part '%s'", p.name))
		}
	}
	p.mu.Lock()
	p.activated = true
	p.mu.Unlock()
	return nil
}
