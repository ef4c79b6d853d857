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
	"cmp"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/internal/telemetry"
	"dirpx.dev/mef/primitives"
	"dirpx.dev/mef/query"
)

// importFilter selects the imports a recomposition re-resolves; nil selects
// every import.
type importFilter func(primitives.ImportDefinition) bool

// trySatisfy drives the part's state machine to allImportsSatisfied. It
// holds the composition lock, so every state it meets other than a settled
// one was left by its own chain.
func (e *Engine) trySatisfy(src apis.ExportProvider, part primitives.ComposablePart, filter importFilter, register bool) primitives.CompositionResult {
	composition.Lock()
	defer composition.Unlock()

	var result primitives.CompositionResult
	ps := e.stateOf(part)

	depth := e.push(ps)
	defer e.pop(ps)
	if depth > e.maxDepth {
		result.Add(primitives.NewCompositionError(primitives.ErrorIDComposeTookTooManyIterations, primitives.ElementOf(part), nil,
			"composition took more than %d nested iterations; this is often caused by parts that import each other", e.maxDepth))
		return result
	}

	if filter != nil {
		e.mu.Lock()
		if ps.state == allImportsSatisfied {
			ps.state = noImportsSatisfied
		}
		e.mu.Unlock()
	}

	for {
		switch e.getState(ps) {
		case allImportsSatisfied:
			return result

		case noImportsSatisfied:
			e.setState(ps, preExportImportsSatisfying)
			r := e.satisfyImports(src, ps, selectImports(part, true, filter))
			if !r.Succeeded() {
				e.setState(ps, noImportsSatisfied)
				result.Add(r.Errors()...)
				return result
			}
			e.setState(ps, preExportImportsSatisfied)

		case preExportImportsSatisfying:
			result.Add(partCycle(part))
			return result

		case preExportImportsSatisfied:
			e.setState(ps, postExportImportsSatisfying)
			r := e.satisfyImports(src, ps, selectImports(part, false, filter))
			if !r.Succeeded() {
				e.setState(ps, noImportsSatisfied)
				result.Add(r.Errors()...)
				return result
			}
			e.setState(ps, postExportImportsSatisfied)

		case postExportImportsSatisfying:
			// The part is being composed further up the stack; its exports
			// are available unless the cycle runs through a prerequisite.
			if !e.cycleBreakable(ps) {
				result.Add(partCycle(part))
			}
			return result

		case postExportImportsSatisfied:
			if err := part.OnComposed(); err != nil {
				e.setState(ps, noImportsSatisfied)
				result.Add(primitives.NewCompositionError(primitives.ErrorIDPartCannotComposed, primitives.ElementOf(part), err,
					"cannot complete composition of part '%s'", elementName(part)))
				return result
			}
			var recomposable []primitives.ImportDefinition
			if register {
				recomposable = recomposableImports(part)
			}
			e.mu.Lock()
			if len(recomposable) > 0 {
				e.registerLocked(ps, recomposable)
			}
			stale := ps.takeReplaced()
			ps.state = allImportsSatisfied
			e.mu.Unlock()
			release(stale)
		}
	}
}

func selectImports(part primitives.ComposablePart, prerequisite bool, filter importFilter) []primitives.ImportDefinition {
	var out []primitives.ImportDefinition
	for _, def := range part.ImportDefinitions() {
		if def.IsPrerequisite() != prerequisite {
			continue
		}
		if filter != nil && !filter(def) {
			continue
		}
		out = append(out, def)
	}
	return out
}

// satisfyImports resolves and sets each import, collecting every failure.
// An import whose exports cannot be resolved is left unset.
func (e *Engine) satisfyImports(src apis.ExportProvider, ps *partState, defs []primitives.ImportDefinition) primitives.CompositionResult {
	var result primitives.CompositionResult
	part := ps.part
	for _, def := range defs {
		e.mu.Lock()
		ps.requiresFullyComposed = def.IsPrerequisite()
		e.mu.Unlock()

		exports, err := query.GetExports(src, def)
		if err != nil {
			result.Add(cannotSetImport(part, def, resolveCause(part, def, err)))
			continue
		}
		if err := part.SetImport(def, exports); err != nil {
			result.Add(cannotSetImport(part, def, err))
			continue
		}
		e.mu.Lock()
		ps.store(def, exports)
		e.mu.Unlock()
	}
	e.mu.Lock()
	ps.requiresFullyComposed = false
	e.mu.Unlock()
	return result
}

// resolveCause turns a cardinality mismatch into a composition error so it is
// reported as a root cause with its import element.
func resolveCause(part primitives.ComposablePart, def primitives.ImportDefinition, err error) error {
	var cm *primitives.CardinalityMismatchError
	if errors.As(err, &cm) {
		return primitives.NewCompositionException(primitives.NewCompositionError(
			primitives.ErrorIDImportCardinalityMismatch, primitives.ImportElement(def, part), nil, "%s", cm.Error()))
	}
	return err
}

func cannotSetImport(part primitives.ComposablePart, def primitives.ImportDefinition, cause error) *primitives.CompositionError {
	return primitives.NewCompositionError(primitives.ErrorIDPartCannotSetImport, primitives.ImportElement(def, part), cause,
		"cannot set import '%s' on part '%s'", def, elementName(part))
}

func partCycle(part primitives.ComposablePart) *primitives.CompositionError {
	return primitives.NewCompositionError(primitives.ErrorIDPartCycle, primitives.ElementOf(part), nil,
		"cannot compose part '%s' because a cycle exists in the dependencies between its prerequisite imports", elementName(part))
}

func elementName(part primitives.ComposablePart) string {
	if el := primitives.ElementOf(part); el != nil {
		return el.DisplayName()
	}
	return fmt.Sprintf("%T", part)
}

// registerLocked indexes the recomposable imports of ps by contract.
func (e *Engine) registerLocked(ps *partState, defs []primitives.ImportDefinition) {
	if ps.registered {
		return
	}
	e.seq++
	ps.seq = e.seq
	ps.registered = true
	for _, def := range defs {
		name, ok := primitives.ContractNameOf(def)
		if !ok {
			if !slices.Contains(e.wildcard, ps) {
				e.wildcard = append(e.wildcard, ps)
			}
			continue
		}
		if !slices.Contains(e.contract[name], ps) {
			e.contract[name] = append(e.contract[name], ps)
		}
	}
}

func (e *Engine) unregisterLocked(ps *partState) {
	if !ps.registered {
		return
	}
	ps.registered = false
	drop := func(s *partState) bool { return s == ps }
	for name, list := range e.contract {
		list = slices.DeleteFunc(list, drop)
		if len(list) == 0 {
			delete(e.contract, name)
		} else {
			e.contract[name] = list
		}
	}
	e.wildcard = slices.DeleteFunc(e.wildcard, drop)
}

// affected returns the registered parts importing any of names, in
// registration order.
func (e *Engine) affected(names []string) []*partState {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*partState
	add := func(list []*partState) {
		for _, ps := range list {
			if !slices.Contains(out, ps) {
				out = append(out, ps)
			}
		}
	}
	for _, name := range names {
		add(e.contract[name])
	}
	add(e.wildcard)
	slices.SortFunc(out, func(a, b *partState) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

// onExportsChanged recomposes the registered parts affected by ev. Failures
// are aggregated; one failing part does not stop the others.
func (e *Engine) onExportsChanged(ev apis.ExportsChangedEvent) error {
	if e.closed.Load() || len(ev.ChangedContractNames) == 0 {
		return nil
	}
	src, err := e.sourceProvider()
	if err != nil {
		return nil
	}
	parts := e.affected(ev.ChangedContractNames)
	if len(parts) == 0 {
		return nil
	}

	_, span := e.tel.Start(telemetry.SpanRecompose,
		attribute.StringSlice(telemetry.AttrContracts, ev.ChangedContractNames),
		attribute.Int(telemetry.AttrAffectedParts, len(parts)),
	)
	changed := make(map[string]struct{}, len(ev.ChangedContractNames))
	for _, n := range ev.ChangedContractNames {
		changed[n] = struct{}{}
	}
	filter := func(def primitives.ImportDefinition) bool {
		if !def.IsRecomposable() {
			return false
		}
		name, ok := primitives.ContractNameOf(def)
		if !ok {
			return true
		}
		_, hit := changed[name]
		return hit
	}

	var result primitives.CompositionResult
	for _, ps := range parts {
		r := e.trySatisfy(src, ps.part, filter, true)
		if r.Succeeded() {
			telemetry.ObserveRecomposition()
		}
		result.Add(r.Errors()...)
	}
	err = result.Err()
	if err != nil {
		e.tel.Logger.Error(err, "recomposition failed", "contracts", ev.ChangedContractNames)
	} else {
		e.tel.Logger.V(1).Info("recomposed", "contracts", ev.ChangedContractNames, "parts", len(parts))
	}
	telemetry.End(span, err)
	telemetry.ObserveErrors(err)
	return err
}
