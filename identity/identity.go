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

// Package identity is the process-wide type identity service.
//
// A type identity is the string stored under primitives.TypeIdentityMetadataKey
// on exports and required by typed imports, and the default contract name of
// a type. It is resolved by a chain of strategies (apis.Namer, pinned
// registry entries, reflection) held in an immutable snapshot. Readers load
// the snapshot atomically and never lock; writers serialize on a build mutex
// and publish a freshly built snapshot.
//
// Registry and Resolver installed directly with SetRegistry / SetResolver are
// pinned: later SetConfig / SetBuilder calls keep them instead of rebuilding.
package identity

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/builder"
	"dirpx.dev/mef/config"
)

func init() {
	Reset()
}

var (
	// ErrNilRegistry is raised when a builder returns a nil registry.
	ErrNilRegistry = errors.New("mef(identity): builder returned nil registry")
	// ErrNilResolver is raised when a builder returns a nil resolver.
	ErrNilResolver = errors.New("mef(identity): builder returned nil resolver")
)

// Of returns the type identity of v's dynamic type, or "" for nil.
func Of(v any) string {
	s := st.Load()
	return s.res.Resolve(v, s.cfg)
}

// OfType returns the type identity of t.
func OfType(t reflect.Type) string {
	s := st.Load()
	return s.res.ResolveType(t, s.cfg)
}

// For returns the type identity of T.
func For[T any]() string {
	return OfType(reflect.TypeFor[T]())
}

// Register pins t to id in the current registry.
func Register(t reflect.Type, id string) error {
	return st.Load().reg.Register(t, id)
}

// Config returns the current identity configuration.
func Config() apis.Config { return st.Load().cfg }

// Registry returns the current registry.
func Registry() apis.Registry { return st.Load().reg }

// Resolver returns the current resolver.
func Resolver() apis.Resolver { return st.Load().res }

// Builder returns the current builder.
func Builder() apis.Builder { return st.Load().bld }

// Reset restores the default builder and configuration, drops pins and
// starts from an empty registry.
func Reset() {
	buildMu.Lock()
	defer buildMu.Unlock()

	cfg := config.DefaultConfig()
	b := builder.New()
	reg := b.BuildRegistry(cfg, nil)
	st.Store(&state{cfg: cfg, reg: reg, res: b.BuildResolver(cfg, reg, nil), bld: b})
}

// SetConfig installs cfg and rebuilds the layers that are not pinned.
func SetConfig(cfg apis.Config) {
	update(0, func(s *state) { s.cfg = cfg })
}

// SetBuilder installs b and rebuilds the layers that are not pinned.
// A nil builder is ignored.
func SetBuilder(b apis.Builder) {
	if b == nil {
		return
	}
	update(0, func(s *state) { s.bld = b })
}

// SetRegistry installs and pins reg; the resolver is rebuilt over it unless
// pinned. A nil registry is ignored.
func SetRegistry(reg apis.Registry) {
	if reg == nil {
		return
	}
	update(keepRegistry, func(s *state) { s.reg, s.preg = reg, true })
}

// SetResolver installs and pins res. A nil resolver is ignored.
func SetResolver(res apis.Resolver) {
	if res == nil {
		return
	}
	update(keepRegistry|keepResolver, func(s *state) { s.res, s.pres = res, true })
}

// Unpin lets SetConfig and SetBuilder rebuild both layers again.
func Unpin() {
	update(keepRegistry|keepResolver, func(s *state) { s.preg, s.pres = false, false })
}

// layers selects snapshot layers an update leaves as they are.
type layers uint8

const (
	keepRegistry layers = 1 << iota
	keepResolver
)

// update derives the next snapshot from the current one. mutate edits a copy;
// layers that are neither pinned nor kept are rebuilt with the resulting builder.
func update(keep layers, mutate func(*state)) {
	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	next := *old
	mutate(&next)

	if !next.preg && keep&keepRegistry == 0 {
		next.reg = next.bld.BuildRegistry(next.cfg, old.reg)
	}
	if !next.pres && keep&keepResolver == 0 {
		next.res = next.bld.BuildResolver(next.cfg, next.reg, old.res)
	}
	if next.reg == nil {
		panic(ErrNilRegistry)
	}
	if next.res == nil {
		panic(ErrNilResolver)
	}
	st.Store(&next)
}

// buildMu serializes writers so partially built snapshots are never published.
var buildMu sync.Mutex

// st is the current snapshot.
var st atomic.Pointer[state]

// state is immutable once published.
type state struct {
	cfg apis.Config
	reg apis.Registry
	res apis.Resolver
	bld apis.Builder
	// preg and pres mark layers installed directly by the caller.
	preg bool
	pres bool
}
