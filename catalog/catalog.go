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

// Package catalog provides in-memory sources of part definitions.
//
// A Catalog holds definitions in insertion order, indexes their exports by
// contract and notifies subscribers of every change. An Aggregate merges
// several catalogs. Manifests describe parts in YAML.
package catalog

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/internal/events"
	"dirpx.dev/mef/primitives"
)

// ErrNilDefinition is returned when a part definition is required.
var ErrNilDefinition = errors.New("mef(catalog): nil part definition")

type snapshot struct {
	parts []primitives.ComposablePartDefinition
	index map[string][]apis.PartExport
}

func newSnapshot(parts []primitives.ComposablePartDefinition) *snapshot {
	s := &snapshot{parts: parts, index: make(map[string][]apis.PartExport)}
	for _, pd := range parts {
		for _, ed := range pd.ExportDefinitions() {
			s.index[ed.ContractName()] = append(s.index[ed.ContractName()], apis.PartExport{Part: pd, Export: ed})
		}
	}
	return s
}

// Catalog is a mutable, change-notifying list of part definitions.
// Readers see a consistent snapshot; changes are serialized.
type Catalog struct {
	mu      sync.Mutex
	state   atomic.Pointer[snapshot]
	changed events.Dispatcher[apis.CatalogChangedEvent]
}

var (
	_ apis.NotifyingCatalog = (*Catalog)(nil)
	_ apis.IndexedCatalog   = (*Catalog)(nil)
)

// New returns a catalog holding parts.
func New(parts ...primitives.ComposablePartDefinition) (*Catalog, error) {
	if slices.Contains(parts, nil) {
		return nil, ErrNilDefinition
	}
	c := &Catalog{}
	c.state.Store(newSnapshot(dedupe(nil, parts)))
	return c, nil
}

// Parts implements apis.Catalog.
func (c *Catalog) Parts() []primitives.ComposablePartDefinition {
	return slices.Clone(c.state.Load().parts)
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.state.Load().parts) }

// GetExports implements apis.IndexedCatalog.
func (c *Catalog) GetExports(def primitives.ImportDefinition) []apis.PartExport {
	s := c.state.Load()
	if name, ok := primitives.ContractNameOf(def); ok {
		return filter(s.index[name], def)
	}
	var out []apis.PartExport
	for _, pd := range s.parts {
		for _, ed := range pd.ExportDefinitions() {
			if primitives.Matches(def, ed) {
				out = append(out, apis.PartExport{Part: pd, Export: ed})
			}
		}
	}
	return out
}

// Subscribe implements apis.NotifyingCatalog.
func (c *Catalog) Subscribe(h apis.CatalogChangedHandler) func() {
	return c.changed.Subscribe(events.Handler[apis.CatalogChangedEvent](h))
}

// Add appends definitions not already present.
func (c *Catalog) Add(parts ...primitives.ComposablePartDefinition) error {
	return c.Change(parts, nil)
}

// Remove drops definitions; absent ones are ignored.
func (c *Catalog) Remove(parts ...primitives.ComposablePartDefinition) error {
	return c.Change(nil, parts)
}

// Change removes and adds definitions as one change and notifies
// subscribers when anything changed. Subscriber errors are returned.
func (c *Catalog) Change(add, remove []primitives.ComposablePartDefinition) error {
	if slices.Contains(add, nil) || slices.Contains(remove, nil) {
		return ErrNilDefinition
	}
	c.mu.Lock()
	cur := c.state.Load().parts
	var removed []primitives.ComposablePartDefinition
	next := slices.DeleteFunc(slices.Clone(cur), func(pd primitives.ComposablePartDefinition) bool {
		if slices.Contains(remove, pd) {
			removed = append(removed, pd)
			return true
		}
		return false
	})
	added := dedupe(next, add)
	if len(added) == 0 && len(removed) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.state.Store(newSnapshot(append(next, added...)))
	c.mu.Unlock()

	return c.changed.Publish(apis.CatalogChangedEvent{Added: added, Removed: removed})
}

// dedupe returns the entries of add that are neither in have nor repeated.
func dedupe(have, add []primitives.ComposablePartDefinition) []primitives.ComposablePartDefinition {
	var out []primitives.ComposablePartDefinition
	for _, pd := range add {
		if slices.Contains(have, pd) || slices.Contains(out, pd) {
			continue
		}
		out = append(out, pd)
	}
	return out
}

func filter(entries []apis.PartExport, def primitives.ImportDefinition) []apis.PartExport {
	var out []apis.PartExport
	for _, pe := range entries {
		if primitives.Matches(def, pe.Export) {
			out = append(out, pe)
		}
	}
	return out
}
