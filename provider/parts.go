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

package provider

import (
	"slices"
	"sync"
	"sync/atomic"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/engine"
	"dirpx.dev/mef/internal/events"
	"dirpx.dev/mef/internal/telemetry"
	"dirpx.dev/mef/primitives"
)

// PartExportProvider serves the exports of a list of live parts and composes
// them against its source provider.
//
// The list is copy-on-write: readers load a snapshot, Compose builds a new
// slice and swaps it in. List updates are serialized.
type PartExportProvider struct {
	tel    telemetry.Telemetry
	engine *engine.Engine

	composeMu sync.Mutex
	parts     atomic.Pointer[[]primitives.ComposablePart]
	sourceSet atomic.Bool
	changed   events.Dispatcher[apis.ExportsChangedEvent]
	closed    atomic.Bool
}

var (
	_ apis.ExportProvider     = (*PartExportProvider)(nil)
	_ apis.SourceConsumer     = (*PartExportProvider)(nil)
	_ apis.CompositionService = (*PartExportProvider)(nil)
)

// NewPartExportProvider returns an empty provider. SetSourceProvider must be
// called before it is queried.
func NewPartExportProvider(opts ...Option) *PartExportProvider {
	o := newOptions(opts)
	p := &PartExportProvider{tel: o.tel, engine: engine.New(o.engineOpts...)}
	p.parts.Store(&[]primitives.ComposablePart{})
	return p
}

// SetSourceProvider implements apis.SourceConsumer.
func (p *PartExportProvider) SetSourceProvider(src apis.ExportProvider) error {
	if p.closed.Load() {
		return primitives.ErrDisposed
	}
	if err := p.engine.SetSourceProvider(src); err != nil {
		return err
	}
	p.sourceSet.Store(true)
	return nil
}

// Parts returns a snapshot of the live parts.
func (p *PartExportProvider) Parts() []primitives.ComposablePart {
	return slices.Clone(*p.parts.Load())
}

// GetExportsCore implements apis.ExportProvider. Values are produced on
// demand by composing the owning part.
func (p *PartExportProvider) GetExportsCore(def primitives.ImportDefinition) ([]*primitives.Export, error) {
	if p.closed.Load() {
		return nil, primitives.ErrDisposed
	}
	if def == nil {
		return nil, ErrNilImport
	}
	if !p.sourceSet.Load() {
		return nil, ErrSourceNotSet
	}
	var out []*primitives.Export
	for _, part := range *p.parts.Load() {
		for _, ed := range part.ExportDefinitions() {
			if !primitives.Matches(def, ed) {
				continue
			}
			out = append(out, primitives.NewExport(ed, func() (any, error) {
				return p.engine.GetExportedValue(part, ed)
			}))
		}
	}
	return out, nil
}

// Subscribe implements apis.ExportProvider.
func (p *PartExportProvider) Subscribe(h apis.ExportsChangedHandler) func() {
	return p.changed.Subscribe(events.Handler[apis.ExportsChangedEvent](h))
}

// Compose removes and adds parts as one change. Removing a part that is not
// in the list and adding one that already is are no-ops. The contracts
// exported by the parts actually removed or added are announced before the
// added parts are composed; every failure is returned as a single
// *primitives.CompositionException.
//
// Only the list update is exclusive. Announcing the change and composing the
// added parts run unlocked, so a hook or change handler may call Compose
// again.
func (p *PartExportProvider) Compose(add, remove []primitives.ComposablePart) error {
	if p.closed.Load() {
		return primitives.ErrDisposed
	}
	if slices.Contains(add, nil) || slices.Contains(remove, nil) {
		return primitives.ErrNilPart
	}
	if len(add) == 0 && len(remove) == 0 {
		return nil
	}
	if !p.sourceSet.Load() {
		return ErrSourceNotSet
	}

	var result primitives.CompositionResult
	removed, added := p.update(add, remove, &result)
	if len(removed) == 0 && len(added) == 0 {
		return result.Err()
	}

	var defs [][]*primitives.ExportDefinition
	for _, part := range slices.Concat(removed, added) {
		defs = append(defs, part.ExportDefinitions())
	}
	names := exportedContracts(defs...)
	p.tel.Logger.V(1).Info("parts changed", "added", len(added), "removed", len(removed), "contracts", names)

	if len(names) > 0 {
		result.Merge(p.changed.Publish(apis.ExportsChangedEvent{ChangedContractNames: names}))
	}
	for _, a := range added {
		result.Merge(p.engine.SatisfyImports(a, true))
	}
	return result.Err()
}

// update swaps in the new list and forgets the removed parts. It returns the
// parts actually removed and added.
func (p *PartExportProvider) update(add, remove []primitives.ComposablePart, result *primitives.CompositionResult) (removed, added []primitives.ComposablePart) {
	p.composeMu.Lock()
	defer p.composeMu.Unlock()

	next := slices.Clone(*p.parts.Load())
	for _, r := range remove {
		if i := slices.Index(next, r); i >= 0 {
			next = slices.Delete(next, i, i+1)
			removed = append(removed, r)
		}
	}
	for _, a := range add {
		if !slices.Contains(next, a) {
			next = append(next, a)
			added = append(added, a)
		}
	}
	if len(removed) == 0 && len(added) == 0 {
		return nil, nil
	}
	for _, r := range removed {
		result.Merge(p.engine.UnregisterForRecomposition(r))
		result.Merge(p.engine.ReleaseImports(r))
	}
	p.parts.Store(&next)
	return removed, added
}

// SatisfyImports implements apis.CompositionService for parts outside the
// list.
func (p *PartExportProvider) SatisfyImports(part primitives.ComposablePart, register bool) error {
	if p.closed.Load() {
		return primitives.ErrDisposed
	}
	return p.engine.SatisfyImports(part, register)
}

// UnregisterForRecomposition implements apis.CompositionService.
func (p *PartExportProvider) UnregisterForRecomposition(part primitives.ComposablePart) error {
	if p.closed.Load() {
		return primitives.ErrDisposed
	}
	return p.engine.UnregisterForRecomposition(part)
}

// Close stops composing. The parts were supplied by the caller and are not
// closed.
func (p *PartExportProvider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.changed.Clear()
	p.parts.Store(&[]primitives.ComposablePart{})
	return p.engine.Close()
}
