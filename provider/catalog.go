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
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/engine"
	"dirpx.dev/mef/internal/events"
	"dirpx.dev/mef/internal/telemetry"
	"dirpx.dev/mef/primitives"
)

// ShouldUseSharedPart decides whether an export of a part with partPolicy
// requested by an import requiring importPolicy is served by the shared
// instance. Shared parts are never handed to NonShared imports and the
// reverse; import constraints filter those pairs out, so meeting one here
// is a programming error and panics.
func ShouldUseSharedPart(partPolicy, importPolicy primitives.CreationPolicy) bool {
	switch partPolicy {
	case primitives.Any:
		return importPolicy != primitives.NonShared
	case primitives.Shared:
		if importPolicy == primitives.NonShared {
			panic(fmt.Sprintf("mef(provider): shared part requested by a %s import", importPolicy))
		}
		return true
	case primitives.NonShared:
		if importPolicy == primitives.Shared {
			panic(fmt.Sprintf("mef(provider): non-shared part requested by a %s import", importPolicy))
		}
		return false
	}
	panic(fmt.Sprintf("mef(provider): %s", partPolicy))
}

// CatalogExportProvider serves the exports of the part definitions of a
// catalog. Parts are created when a value is first requested: shared parts
// once per provider, non-shared parts once per export, disposed when the
// export is released.
type CatalogExportProvider struct {
	tel     telemetry.Telemetry
	catalog apis.Catalog
	engine  *engine.Engine

	// shared holds one part per definition key, without expiration.
	shared *gocache.Cache
	keys   sync.Map // primitives.ComposablePartDefinition -> string

	mu        sync.Mutex
	nonShared map[primitives.ComposablePart]struct{}

	sourceSet atomic.Bool
	cancel    func()
	changed   events.Dispatcher[apis.ExportsChangedEvent]
	closed    atomic.Bool
}

var (
	_ apis.ExportProvider = (*CatalogExportProvider)(nil)
	_ apis.SourceConsumer = (*CatalogExportProvider)(nil)
)

// NewCatalogExportProvider serves cat. Changes of a notifying catalog are
// republished as export changes.
func NewCatalogExportProvider(cat apis.Catalog, opts ...Option) (*CatalogExportProvider, error) {
	if cat == nil {
		return nil, ErrNilCatalog
	}
	o := newOptions(opts)
	p := &CatalogExportProvider{
		tel:       o.tel,
		catalog:   cat,
		engine:    engine.New(o.engineOpts...),
		shared:    gocache.New(gocache.NoExpiration, 0),
		nonShared: make(map[primitives.ComposablePart]struct{}),
	}
	if nc, ok := cat.(apis.NotifyingCatalog); ok {
		p.cancel = nc.Subscribe(p.onCatalogChanged)
	}
	return p, nil
}

// Catalog returns the catalog the provider serves.
func (p *CatalogExportProvider) Catalog() apis.Catalog { return p.catalog }

// SetSourceProvider implements apis.SourceConsumer.
func (p *CatalogExportProvider) SetSourceProvider(src apis.ExportProvider) error {
	if p.closed.Load() {
		return primitives.ErrDisposed
	}
	if err := p.engine.SetSourceProvider(src); err != nil {
		return err
	}
	p.sourceSet.Store(true)
	return nil
}

// GetExportsCore implements apis.ExportProvider.
func (p *CatalogExportProvider) GetExportsCore(def primitives.ImportDefinition) ([]*primitives.Export, error) {
	if p.closed.Load() {
		return nil, primitives.ErrDisposed
	}
	if def == nil {
		return nil, ErrNilImport
	}
	if !p.sourceSet.Load() {
		return nil, ErrSourceNotSet
	}
	importPolicy := primitives.Any
	if cb, ok := def.(*primitives.ContractBasedImportDefinition); ok {
		importPolicy = cb.RequiredCreationPolicy()
	}

	var out []*primitives.Export
	for _, pe := range p.candidates(def) {
		pd, ed := pe.Part, pe.Export
		if ShouldUseSharedPart(primitives.PolicyOf(ed), importPolicy) {
			out = append(out, primitives.NewExport(ed, func() (any, error) {
				part, err := p.sharedPart(pd)
				if err != nil {
					return nil, err
				}
				return p.engine.GetExportedValue(part, ed)
			}))
			continue
		}
		ns := &nonSharedExport{provider: p, definition: pd, export: ed}
		out = append(out, primitives.NewDisposableExport(ed, ns.value, ns.release))
	}
	return out, nil
}

func (p *CatalogExportProvider) candidates(def primitives.ImportDefinition) []apis.PartExport {
	if ic, ok := p.catalog.(apis.IndexedCatalog); ok {
		return ic.GetExports(def)
	}
	var out []apis.PartExport
	for _, pd := range p.catalog.Parts() {
		for _, ed := range pd.ExportDefinitions() {
			if primitives.Matches(def, ed) {
				out = append(out, apis.PartExport{Part: pd, Export: ed})
			}
		}
	}
	return out
}

// Subscribe implements apis.ExportProvider.
func (p *CatalogExportProvider) Subscribe(h apis.ExportsChangedHandler) func() {
	return p.changed.Subscribe(events.Handler[apis.ExportsChangedEvent](h))
}

func (p *CatalogExportProvider) keyOf(pd primitives.ComposablePartDefinition) string {
	if id, ok := pd.(primitives.Identified); ok && id.ID() != "" {
		return id.ID()
	}
	k, _ := p.keys.LoadOrStore(pd, uuid.NewString())
	return k.(string)
}

// sharedPart returns the shared instance of pd, creating it on first use.
// When two callers race, the part stored first wins and the other is
// disposed.
func (p *CatalogExportProvider) sharedPart(pd primitives.ComposablePartDefinition) (primitives.ComposablePart, error) {
	key := p.keyOf(pd)
	if v, ok := p.shared.Get(key); ok {
		return v.(primitives.ComposablePart), nil
	}
	part, err := pd.CreatePart()
	if err != nil {
		return nil, err
	}
	if err := p.shared.Add(key, part, gocache.NoExpiration); err != nil {
		_ = dispose(part)
		v, ok := p.shared.Get(key)
		if !ok {
			return nil, err
		}
		return v.(primitives.ComposablePart), nil
	}
	p.tel.Logger.V(1).Info("created shared part", "part", primitives.ElementChain(primitives.ElementOf(part)))
	if p.closed.Load() {
		p.shared.Delete(key)
		_ = dispose(part)
		return nil, primitives.ErrDisposed
	}
	return part, nil
}

func (p *CatalogExportProvider) track(part primitives.ComposablePart) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return false
	}
	p.nonShared[part] = struct{}{}
	return true
}

func (p *CatalogExportProvider) releasePart(part primitives.ComposablePart) error {
	p.mu.Lock()
	_, owned := p.nonShared[part]
	delete(p.nonShared, part)
	p.mu.Unlock()
	if !owned {
		return nil
	}
	return p.disposePart(part)
}

func (p *CatalogExportProvider) disposePart(part primitives.ComposablePart) error {
	if !p.closed.Load() {
		_ = p.engine.ReleaseImports(part)
	}
	return dispose(part)
}

// onCatalogChanged announces the contracts of the added and removed
// definitions, then disposes the shared parts of the removed ones.
func (p *CatalogExportProvider) onCatalogChanged(ev apis.CatalogChangedEvent) error {
	if p.closed.Load() {
		return nil
	}
	var defs [][]*primitives.ExportDefinition
	for _, pd := range slices.Concat(ev.Added, ev.Removed) {
		defs = append(defs, pd.ExportDefinitions())
	}
	names := exportedContracts(defs...)

	var errs []error
	if len(names) > 0 {
		errs = append(errs, p.changed.Publish(apis.ExportsChangedEvent{ChangedContractNames: names}))
	}
	for _, pd := range ev.Removed {
		key := p.keyOf(pd)
		v, ok := p.shared.Get(key)
		if !ok {
			continue
		}
		p.shared.Delete(key)
		errs = append(errs, p.disposePart(v.(primitives.ComposablePart)))
	}
	return errors.Join(errs...)
}

// Close disposes every part the provider created, once.
func (p *CatalogExportProvider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.changed.Clear()

	p.mu.Lock()
	created := make([]primitives.ComposablePart, 0, len(p.nonShared)+p.shared.ItemCount())
	for part := range p.nonShared {
		created = append(created, part)
	}
	p.nonShared = make(map[primitives.ComposablePart]struct{})
	p.mu.Unlock()
	for _, item := range p.shared.Items() {
		created = append(created, item.Object.(primitives.ComposablePart))
	}
	p.shared.Flush()

	errs := []error{p.engine.Close()}
	for _, part := range created {
		errs = append(errs, dispose(part))
	}
	return errors.Join(errs...)
}

// nonSharedExport creates its own part on first use and disposes it on
// release.
type nonSharedExport struct {
	provider   *CatalogExportProvider
	definition primitives.ComposablePartDefinition
	export     *primitives.ExportDefinition

	mu   sync.Mutex
	part primitives.ComposablePart
}

func (e *nonSharedExport) value() (any, error) {
	part, err := e.definition.CreatePart()
	if err != nil {
		return nil, err
	}
	if !e.provider.track(part) {
		_ = dispose(part)
		return nil, primitives.ErrDisposed
	}
	e.mu.Lock()
	e.part = part
	e.mu.Unlock()
	return e.provider.engine.GetExportedValue(part, e.export)
}

func (e *nonSharedExport) release() {
	e.mu.Lock()
	part := e.part
	e.part = nil
	e.mu.Unlock()
	if part != nil {
		_ = e.provider.releasePart(part)
	}
}
