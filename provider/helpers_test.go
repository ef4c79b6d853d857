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

package provider_test

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/identity"
	"dirpx.dev/mef/part"
	"dirpx.dev/mef/primitives"
)

// fakeProvider serves a mutable list of exports and publishes on demand.
type fakeProvider struct {
	mu        sync.Mutex
	exports   []*primitives.Export
	subs      map[int]apis.ExportsChangedHandler
	next      int
	cancelled int
	err       error
}

func (p *fakeProvider) GetExportsCore(def primitives.ImportDefinition) ([]*primitives.Export, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	var out []*primitives.Export
	for _, e := range p.exports {
		if primitives.Matches(def, e.Definition()) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (p *fakeProvider) Subscribe(h apis.ExportsChangedHandler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subs == nil {
		p.subs = map[int]apis.ExportsChangedHandler{}
	}
	p.next++
	id := p.next
	p.subs[id] = h
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[id]; ok {
			delete(p.subs, id)
			p.cancelled++
		}
	}
}

func (p *fakeProvider) set(exports ...*primitives.Export) {
	p.mu.Lock()
	p.exports = exports
	p.mu.Unlock()
}

func (p *fakeProvider) publish(names ...string) error {
	p.mu.Lock()
	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]apis.ExportsChangedHandler, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, p.subs[id])
	}
	p.mu.Unlock()
	var errs []error
	for _, h := range subs {
		errs = append(errs, h(apis.ExportsChangedEvent{ChangedContractNames: names}))
	}
	return errors.Join(errs...)
}

// recorder collects published change events.
type recorder struct {
	mu     sync.Mutex
	events [][]string
}

func (r *recorder) handle(ev apis.ExportsChangedEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev.ChangedContractNames)
	r.mu.Unlock()
	return nil
}

func (r *recorder) all() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func value(t *testing.T, contract string, v any) *primitives.Export {
	t.Helper()
	md := map[string]any{}
	if v != nil {
		md[primitives.TypeIdentityMetadataKey] = identity.Of(v)
	}
	def, err := primitives.NewExportDefinition(contract, md)
	require.NoError(t, err)
	return primitives.NewValueExport(def, v)
}

func adapterExport(t *testing.T, from, to string, fn any) *primitives.Export {
	t.Helper()
	def, err := primitives.NewExportDefinition(primitives.AdapterContractName, map[string]any{
		primitives.AdapterFromContractMetadataKey: from,
		primitives.AdapterToContractMetadataKey:   to,
	})
	require.NoError(t, err)
	return primitives.NewValueExport(def, fn)
}

func importOf(t *testing.T, contract string, c primitives.Cardinality, opts ...primitives.ImportOption) primitives.ImportDefinition {
	t.Helper()
	def, err := primitives.NewContractBasedImport(contract, append([]primitives.ImportOption{primitives.WithCardinality(c)}, opts...)...)
	require.NoError(t, err)
	return def
}

func values(t *testing.T, exports []*primitives.Export) []any {
	t.Helper()
	out := make([]any, 0, len(exports))
	for _, e := range exports {
		v, err := e.Value()
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func build(t *testing.T, b *part.Builder) *part.Part {
	t.Helper()
	p, err := b.Build()
	require.NoError(t, err)
	return p
}
