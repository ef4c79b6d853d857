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

package identity_test

import (
	"reflect"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/identity"
)

type mockRegistry struct {
	id   string
	mu   sync.Mutex
	data map[reflect.Type]string
}

func newMockRegistry(id string) *mockRegistry {
	return &mockRegistry{id: id, data: make(map[reflect.Type]string)}
}

func (m *mockRegistry) Register(t reflect.Type, id string) error {
	m.mu.Lock()
	m.data[t] = id
	m.mu.Unlock()
	return nil
}

func (m *mockRegistry) Lookup(t reflect.Type) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.data[t]
	return n, ok
}

func (m *mockRegistry) Entries() []apis.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []apis.Entry
	for t, n := range m.data {
		out = append(out, apis.Entry{Type: t, Identity: n})
	}
	return out
}

func (m *mockRegistry) Count() int { m.mu.Lock(); defer m.mu.Unlock(); return len(m.data) }
func (m *mockRegistry) Reset()     { m.mu.Lock(); clear(m.data); m.mu.Unlock() }

type mockResolver struct {
	id string
}

func (r *mockResolver) Resolve(_ any, cfg apis.Config) string {
	return r.id + ":" + strconv.FormatBool(cfg.IncludeBuiltins) + ":" + strconv.Itoa(cfg.MaxUnwrap)
}

func (r *mockResolver) ResolveType(t reflect.Type, cfg apis.Config) string {
	return r.Resolve(nil, cfg) + ":" + t.String()
}

type mockBuilder struct {
	mu         sync.Mutex
	lastCfg    apis.Config
	prevRegID  string
	regCounter int
	resCounter int
}

func (b *mockBuilder) BuildRegistry(cfg apis.Config, prev apis.Registry) apis.Registry {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastCfg = cfg
	if mr, ok := prev.(*mockRegistry); ok {
		b.prevRegID = mr.id
	}
	b.regCounter++
	return newMockRegistry("reg#" + strconv.Itoa(b.regCounter))
}

func (b *mockBuilder) BuildResolver(cfg apis.Config, _ apis.Registry, _ apis.Resolver) apis.Resolver {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastCfg = cfg
	b.resCounter++
	return &mockResolver{id: "res#" + strconv.Itoa(b.resCounter)}
}

func (b *mockBuilder) counters() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regCounter, b.resCounter
}

// useBuilder installs b with cfg and restores the defaults when t ends.
func useBuilder(t *testing.T, b apis.Builder, cfg apis.Config) {
	t.Helper()
	t.Cleanup(identity.Reset)
	identity.Reset()
	identity.SetBuilder(b)
	identity.SetConfig(cfg)
}

func TestSetConfigRebuildsUnpinnedLayers(t *testing.T) {
	b := &mockBuilder{}
	useBuilder(t, b, apis.Config{MaxUnwrap: 8})

	reg1, res1 := identity.Registry(), identity.Resolver()
	identity.SetConfig(apis.Config{IncludeBuiltins: true, MaxUnwrap: 4})

	assert.NotSame(t, reg1, identity.Registry())
	assert.NotSame(t, res1, identity.Resolver())

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, apis.Config{IncludeBuiltins: true, MaxUnwrap: 4}, b.lastCfg)
	assert.Equal(t, reg1.(*mockRegistry).id, b.prevRegID)
}

func TestSetRegistryPinsRegistry(t *testing.T) {
	b := &mockBuilder{}
	useBuilder(t, b, apis.Config{MaxUnwrap: 8})

	custom := newMockRegistry("custom")
	identity.SetRegistry(custom)
	resBefore := identity.Resolver()

	identity.SetConfig(apis.Config{IncludeBuiltins: true, MaxUnwrap: 8})

	assert.Same(t, custom, identity.Registry())
	assert.NotSame(t, resBefore, identity.Resolver())
}

func TestSetResolverPinsResolver(t *testing.T) {
	b := &mockBuilder{}
	useBuilder(t, b, apis.Config{MaxUnwrap: 8})

	custom := &mockResolver{id: "custom"}
	identity.SetResolver(custom)
	regBefore := identity.Registry()

	identity.SetConfig(apis.Config{IncludeBuiltins: true, MaxUnwrap: 8})

	assert.Same(t, custom, identity.Resolver())
	assert.NotSame(t, regBefore, identity.Registry())
	assert.Equal(t, "custom:true:8", identity.Of(1))
}

func TestSetBuilderRebuildsOnlyUnpinned(t *testing.T) {
	a := &mockBuilder{}
	useBuilder(t, a, apis.Config{MaxUnwrap: 8})

	pinned := &mockResolver{id: "pinned"}
	identity.SetResolver(pinned)
	regBefore := identity.Registry()

	b := &mockBuilder{}
	identity.SetBuilder(b)

	assert.NotSame(t, regBefore, identity.Registry())
	assert.Same(t, pinned, identity.Resolver())
	regs, ress := b.counters()
	assert.Equal(t, 1, regs)
	assert.Zero(t, ress)
}

func TestSetBuilderIgnoresNil(t *testing.T) {
	b := &mockBuilder{}
	useBuilder(t, b, apis.Config{MaxUnwrap: 8})

	identity.SetBuilder(nil)
	identity.SetRegistry(nil)
	identity.SetResolver(nil)
	assert.Same(t, b, identity.Builder())
}

func TestPinnedLayersAreNotRebuiltUntilUnpinned(t *testing.T) {
	b := &mockBuilder{}
	useBuilder(t, b, apis.Config{MaxUnwrap: 8})

	identity.SetRegistry(identity.Registry())
	identity.SetResolver(identity.Resolver())
	reg1, res1 := identity.Registry(), identity.Resolver()
	regs, ress := b.counters()

	identity.SetConfig(apis.Config{IncludeBuiltins: true, MaxUnwrap: 4})
	assert.Same(t, reg1, identity.Registry())
	assert.Same(t, res1, identity.Resolver())
	regs2, ress2 := b.counters()
	assert.Equal(t, regs, regs2)
	assert.Equal(t, ress, ress2)

	identity.Unpin()
	assert.Same(t, reg1, identity.Registry(), "Unpin alone does not rebuild")

	identity.SetConfig(apis.Config{MaxUnwrap: 6})
	assert.NotSame(t, reg1, identity.Registry())
	assert.NotSame(t, res1, identity.Resolver())
}

type nilRegistryBuilder struct{ mockBuilder }

func (*nilRegistryBuilder) BuildRegistry(apis.Config, apis.Registry) apis.Registry { return nil }

func TestNilLayerPanics(t *testing.T) {
	t.Cleanup(identity.Reset)
	identity.Reset()

	assert.PanicsWithValue(t, identity.ErrNilRegistry, func() {
		identity.SetBuilder(&nilRegistryBuilder{})
	})
	assert.NotNil(t, identity.Registry(), "a failed update publishes nothing")
}

type widget struct{}

type named struct{}

func (named) ContractName() string { return "acme.Named" }

func TestDefaultChain(t *testing.T) {
	t.Cleanup(identity.Reset)
	identity.Reset()

	assert.Equal(t, "int", identity.For[int]())
	assert.Equal(t, "identity_test.widget", identity.For[widget]())
	assert.Equal(t, "*identity_test.widget", identity.Of(&widget{}))
	assert.Equal(t, "acme.Named", identity.For[named]())
	assert.Empty(t, identity.Of(nil))

	require.NoError(t, identity.Register(reflect.TypeFor[widget](), "acme.Widget"))
	assert.Equal(t, "acme.Widget", identity.For[widget]())

	identity.SetConfig(apis.Config{IncludeBuiltins: false, MaxUnwrap: 8})
	assert.Empty(t, identity.For[int]())
	assert.Equal(t, "acme.Widget", identity.For[widget](), "pins survive a rebuild")
}

func TestOfConcurrentWithSetConfig(t *testing.T) {
	b := &mockBuilder{}
	useBuilder(t, b, apis.Config{MaxUnwrap: 8})

	type token struct{}
	done := make(chan struct{})
	var wg sync.WaitGroup

	readers := runtime.GOMAXPROCS(0) * 4
	for range readers {
		wg.Go(func() {
			for range 1000 {
				_ = identity.Of(token{})
				_ = identity.OfType(reflect.TypeFor[token]())
			}
		})
	}

	go func() {
		defer close(done)
		for i := range 20 {
			identity.SetConfig(apis.Config{IncludeBuiltins: i%2 == 0, MaxUnwrap: 4 + i%5})
			time.Sleep(time.Millisecond)
		}
	}()

	wg.Wait()
	<-done
}
