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

package engine

import (
	"fmt"

	"dirpx.dev/mef/primitives"
)

// compositionState tracks how far the imports of a part are satisfied.
type compositionState int

const (
	noImportsSatisfied compositionState = iota
	preExportImportsSatisfying
	preExportImportsSatisfied
	postExportImportsSatisfying
	postExportImportsSatisfied
	allImportsSatisfied
)

func (s compositionState) String() string {
	switch s {
	case noImportsSatisfied:
		return "NoImportsSatisfied"
	case preExportImportsSatisfying:
		return "PreExportImportsSatisfying"
	case preExportImportsSatisfied:
		return "PreExportImportsSatisfied"
	case postExportImportsSatisfying:
		return "PostExportImportsSatisfying"
	case postExportImportsSatisfied:
		return "PostExportImportsSatisfied"
	case allImportsSatisfied:
		return "AllImportsSatisfied"
	}
	return fmt.Sprintf("compositionState(%d)", int(s))
}

// partState is guarded by Engine.mu.
type partState struct {
	part  primitives.ComposablePart
	state compositionState
	// requiresFullyComposed is set while a prerequisite import of the part
	// is being resolved; a cycle through such an import cannot be broken.
	requiresFullyComposed bool

	imported map[primitives.ImportDefinition][]*primitives.Export
	// replaced holds exports superseded by a later SetImport, released once
	// the part is composed again.
	replaced []*primitives.Export

	registered bool
	seq        uint64
}

func newPartState(p primitives.ComposablePart) *partState {
	return &partState{part: p, imported: make(map[primitives.ImportDefinition][]*primitives.Export)}
}

// store records the exports bound to def and remembers the previous ones.
func (ps *partState) store(def primitives.ImportDefinition, exports []*primitives.Export) {
	if prev, ok := ps.imported[def]; ok {
		ps.replaced = append(ps.replaced, prev...)
	}
	ps.imported[def] = exports
}

// takeReplaced returns the superseded exports that are no longer bound.
func (ps *partState) takeReplaced() []*primitives.Export {
	if len(ps.replaced) == 0 {
		return nil
	}
	bound := make(map[*primitives.Export]struct{})
	for _, exports := range ps.imported {
		for _, e := range exports {
			bound[e] = struct{}{}
		}
	}
	var out []*primitives.Export
	for _, e := range ps.replaced {
		if _, ok := bound[e]; !ok {
			out = append(out, e)
		}
	}
	ps.replaced = nil
	return out
}

// takeAll returns every export the part holds and forgets them.
func (ps *partState) takeAll() []*primitives.Export {
	out := ps.replaced
	for _, exports := range ps.imported {
		out = append(out, exports...)
	}
	ps.replaced = nil
	clear(ps.imported)
	return out
}

func recomposableImports(p primitives.ComposablePart) []primitives.ImportDefinition {
	var out []primitives.ImportDefinition
	for _, def := range p.ImportDefinitions() {
		if def.IsRecomposable() {
			out = append(out, def)
		}
	}
	return out
}

func release(exports []*primitives.Export) {
	seen := make(map[*primitives.Export]struct{}, len(exports))
	for _, e := range exports {
		if e == nil {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		e.Release()
	}
}
