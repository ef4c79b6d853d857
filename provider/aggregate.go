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
	"dirpx.dev/mef/primitives"
)

// AggregateExportProvider queries an ordered list of providers. Earlier
// providers take precedence: a single-cardinality import is answered by the
// first provider that satisfies it on its own.
type AggregateExportProvider struct {
	providers []apis.ExportProvider

	mu      sync.Mutex
	cancels []func()
	changed events.Dispatcher[apis.ExportsChangedEvent]
	closed  atomic.Bool
}

var _ apis.ExportProvider = (*AggregateExportProvider)(nil)

// NewAggregateExportProvider subscribes to every provider and republishes
// their changes.
func NewAggregateExportProvider(providers ...apis.ExportProvider) (*AggregateExportProvider, error) {
	if slices.Contains(providers, nil) {
		return nil, ErrNilProvider
	}
	a := &AggregateExportProvider{providers: slices.Clone(providers)}
	for _, p := range a.providers {
		a.cancels = append(a.cancels, p.Subscribe(a.republish))
	}
	return a, nil
}

// Providers returns the upstream providers in query order.
func (a *AggregateExportProvider) Providers() []apis.ExportProvider {
	return slices.Clone(a.providers)
}

// GetExportsCore implements apis.ExportProvider.
func (a *AggregateExportProvider) GetExportsCore(def primitives.ImportDefinition) ([]*primitives.Export, error) {
	if a.closed.Load() {
		return nil, primitives.ErrDisposed
	}
	if def == nil {
		return nil, ErrNilImport
	}
	card := def.Cardinality()
	var all []*primitives.Export
	for _, p := range a.providers {
		exports, err := p.GetExportsCore(def)
		if err != nil {
			return nil, err
		}
		if card != primitives.ZeroOrMore && len(exports) > 0 && card.Allows(len(exports)) {
			return exports, nil
		}
		all = append(all, exports...)
	}
	return all, nil
}

// Subscribe implements apis.ExportProvider.
func (a *AggregateExportProvider) Subscribe(h apis.ExportsChangedHandler) func() {
	return a.changed.Subscribe(events.Handler[apis.ExportsChangedEvent](h))
}

func (a *AggregateExportProvider) republish(ev apis.ExportsChangedEvent) error {
	if a.closed.Load() {
		return nil
	}
	names := distinct(ev.ChangedContractNames)
	if len(names) == 0 {
		return nil
	}
	return a.changed.Publish(apis.ExportsChangedEvent{ChangedContractNames: names})
}

// Close unsubscribes from the upstream providers, which it does not own.
func (a *AggregateExportProvider) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.mu.Lock()
	cancels := a.cancels
	a.cancels = nil
	a.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	a.changed.Clear()
	return nil
}
