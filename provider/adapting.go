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
	"dirpx.dev/mef/internal/events"
	"dirpx.dev/mef/internal/telemetry"
	"dirpx.dev/mef/primitives"
)

// AdaptingExportProvider returns the exports of its source followed by the
// exports adapters produce from it. Adapters are exports of
// primitives.AdapterContractName; only one level of adaptation is applied.
type AdaptingExportProvider struct {
	tel    telemetry.Telemetry
	source apis.ExportProvider
	cancel func()

	// rebuild serializes adapter cache rebuilds; adapters is nil until the
	// cache is first needed.
	rebuild  sync.Mutex
	adapters atomic.Pointer[[]*AdapterDefinition]

	changed events.Dispatcher[apis.ExportsChangedEvent]
	closed  atomic.Bool
}

var _ apis.ExportProvider = (*AdaptingExportProvider)(nil)

// NewAdaptingExportProvider wraps source and republishes its changes, adding
// the to-contracts of the adapters they affect.
func NewAdaptingExportProvider(source apis.ExportProvider, opts ...Option) (*AdaptingExportProvider, error) {
	if source == nil {
		return nil, ErrNilProvider
	}
	o := newOptions(opts)
	p := &AdaptingExportProvider{tel: o.tel, source: source}
	p.cancel = source.Subscribe(p.onSourceChanged)
	return p, nil
}

// Source returns the wrapped provider.
func (p *AdaptingExportProvider) Source() apis.ExportProvider { return p.source }

// GetExportsCore implements apis.ExportProvider. Adapter errors fail only
// the queries that reach the adapter's to-contract.
func (p *AdaptingExportProvider) GetExportsCore(def primitives.ImportDefinition) ([]*primitives.Export, error) {
	if p.closed.Load() {
		return nil, primitives.ErrDisposed
	}
	if def == nil {
		return nil, ErrNilImport
	}
	exports, err := p.source.GetExportsCore(def)
	if err != nil {
		return nil, err
	}
	contract, known := primitives.ContractNameOf(def)
	if known && contract == primitives.AdapterContractName {
		return exports, nil
	}
	adapters, err := p.currentAdapters()
	if err != nil {
		return nil, err
	}

	var result primitives.CompositionResult
	for _, a := range adapters {
		if known && a.ToContract() != contract {
			continue
		}
		if ce := a.Validate(); ce != nil {
			result.Add(ce)
			continue
		}
		inputs, err := p.source.GetExportsCore(allOf(a.FromContract()))
		if err != nil {
			result.Merge(err)
			continue
		}
		for _, in := range inputs {
			out, err := a.Adapt(in)
			if err != nil {
				result.Merge(err)
				continue
			}
			if out != nil && primitives.Matches(def, out.Definition()) {
				exports = append(exports, out)
			}
		}
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return exports, nil
}

// Subscribe implements apis.ExportProvider.
func (p *AdaptingExportProvider) Subscribe(h apis.ExportsChangedHandler) func() {
	return p.changed.Subscribe(events.Handler[apis.ExportsChangedEvent](h))
}

func (p *AdaptingExportProvider) currentAdapters() ([]*AdapterDefinition, error) {
	if cur := p.adapters.Load(); cur != nil {
		return *cur, nil
	}
	p.rebuild.Lock()
	defer p.rebuild.Unlock()
	if cur := p.adapters.Load(); cur != nil {
		return *cur, nil
	}
	list, err := p.loadAdapters()
	if err != nil {
		return nil, err
	}
	p.adapters.Store(&list)
	return list, nil
}

func (p *AdaptingExportProvider) loadAdapters() ([]*AdapterDefinition, error) {
	exports, err := p.source.GetExportsCore(allOf(primitives.AdapterContractName))
	if err != nil {
		return nil, err
	}
	list := make([]*AdapterDefinition, 0, len(exports))
	for _, e := range exports {
		a, err := NewAdapterDefinition(e)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, nil
}

// onSourceChanged republishes a source change. When the adapters changed
// the cache is rebuilt and the to-contracts of the adapters that appeared or
// disappeared are added; the to-contract of every adapter whose
// from-contract changed is added as well.
func (p *AdaptingExportProvider) onSourceChanged(ev apis.ExportsChangedEvent) error {
	if p.closed.Load() {
		return nil
	}
	names := slices.Clone(ev.ChangedContractNames)

	p.rebuild.Lock()
	var current []*AdapterDefinition
	if cur := p.adapters.Load(); cur != nil {
		current = *cur
	}
	if slices.Contains(names, primitives.AdapterContractName) {
		next, err := p.loadAdapters()
		if err != nil {
			p.adapters.Store(nil)
			p.rebuild.Unlock()
			return err
		}
		diff := changedAdapterContracts(current, next)
		p.tel.Logger.V(1).Info("adapters changed", "adapters", len(next), "contracts", diff)
		names = append(names, diff...)
		p.adapters.Store(&next)
		current = next
	}
	p.rebuild.Unlock()

	for _, a := range current {
		if slices.Contains(ev.ChangedContractNames, a.FromContract()) {
			names = append(names, a.ToContract())
		}
	}
	names = distinct(names)
	if len(names) == 0 {
		return nil
	}
	return p.changed.Publish(apis.ExportsChangedEvent{ChangedContractNames: names})
}

// changedAdapterContracts returns the to-contracts of the adapters present
// in only one of old and next.
func changedAdapterContracts(old, next []*AdapterDefinition) []string {
	in := func(list []*AdapterDefinition, a *AdapterDefinition) bool {
		return slices.ContainsFunc(list, func(b *AdapterDefinition) bool { return sameAdapter(a, b) })
	}
	var out []string
	for _, a := range old {
		if !in(next, a) {
			out = append(out, a.ToContract())
		}
	}
	for _, a := range next {
		if !in(old, a) {
			out = append(out, a.ToContract())
		}
	}
	return out
}

func sameAdapter(a, b *AdapterDefinition) bool {
	return a.from == b.from && a.to == b.to && a.export.Definition() == b.export.Definition()
}

// Close unsubscribes from the source, which it does not own.
func (p *AdaptingExportProvider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.cancel()
	p.changed.Clear()
	p.adapters.Store(nil)
	return nil
}

// allOf imports every export of contract.
func allOf(contract string) primitives.ImportDefinition {
	def, err := primitives.NewContractBasedImport(contract, primitives.WithCardinality(primitives.ZeroOrMore))
	if err != nil {
		panic(err)
	}
	return def
}
