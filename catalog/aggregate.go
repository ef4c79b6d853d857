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

package catalog

import (
	"errors"
	"slices"
	"sync"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/internal/events"
	"dirpx.dev/mef/primitives"
)

// ErrNilCatalog is returned when a catalog is required.
var ErrNilCatalog = errors.New("mef(catalog): nil catalog")

// Aggregate presents several catalogs as one, in order, and forwards the
// changes of those that notify.
type Aggregate struct {
	catalogs []apis.Catalog

	mu      sync.Mutex
	cancels []func()
	changed events.Dispatcher[apis.CatalogChangedEvent]
}

var (
	_ apis.NotifyingCatalog = (*Aggregate)(nil)
	_ apis.IndexedCatalog   = (*Aggregate)(nil)
)

// NewAggregate combines catalogs.
func NewAggregate(catalogs ...apis.Catalog) (*Aggregate, error) {
	if slices.Contains(catalogs, nil) {
		return nil, ErrNilCatalog
	}
	a := &Aggregate{catalogs: slices.Clone(catalogs)}
	for _, c := range a.catalogs {
		if nc, ok := c.(apis.NotifyingCatalog); ok {
			a.cancels = append(a.cancels, nc.Subscribe(a.changed.Publish))
		}
	}
	return a, nil
}

// Catalogs returns the combined catalogs.
func (a *Aggregate) Catalogs() []apis.Catalog { return slices.Clone(a.catalogs) }

// Parts implements apis.Catalog.
func (a *Aggregate) Parts() []primitives.ComposablePartDefinition {
	var out []primitives.ComposablePartDefinition
	for _, c := range a.catalogs {
		out = append(out, c.Parts()...)
	}
	return out
}

// GetExports implements apis.IndexedCatalog, using the index of each
// catalog that has one.
func (a *Aggregate) GetExports(def primitives.ImportDefinition) []apis.PartExport {
	var out []apis.PartExport
	for _, c := range a.catalogs {
		if ic, ok := c.(apis.IndexedCatalog); ok {
			out = append(out, ic.GetExports(def)...)
			continue
		}
		for _, pd := range c.Parts() {
			for _, ed := range pd.ExportDefinitions() {
				if primitives.Matches(def, ed) {
					out = append(out, apis.PartExport{Part: pd, Export: ed})
				}
			}
		}
	}
	return out
}

// Subscribe implements apis.NotifyingCatalog.
func (a *Aggregate) Subscribe(h apis.CatalogChangedHandler) func() {
	return a.changed.Subscribe(events.Handler[apis.CatalogChangedEvent](h))
}

// Close stops forwarding changes.
func (a *Aggregate) Close() error {
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
