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

package registry

import (
	"errors"
	"reflect"
	"sync"

	"dirpx.dev/mef/apis"
)

var (
	// ErrNilType is returned when a nil reflect.Type is provided.
	ErrNilType = errors.New("mef(registry): nil reflect.Type provided")
	// ErrEmptyIdentity is returned when an empty identity is provided.
	ErrEmptyIdentity = errors.New("mef(registry): empty identity provided")
	// ErrConflictingRegistration indicates an attempt to pin a type to a
	// second, different identity.
	ErrConflictingRegistration = errors.New("mef(registry): conflicting type registration")
)

// New constructs an empty Registry. Types are pinned exactly: registering T
// says nothing about *T or []T.
func New() apis.Registry {
	return &registry{}
}

// registry is backed by sync.Map; writers additionally hold mu to keep the
// counter exact.
type registry struct {
	mu    sync.Mutex
	m     sync.Map // map[reflect.Type]string
	count int
}

// Register pins t to identity. It is idempotent for the same pair.
func (r *registry) Register(t reflect.Type, identity string) error {
	if t == nil {
		return ErrNilType
	}
	if identity == "" {
		return ErrEmptyIdentity
	}
	if old, ok := r.m.Load(t); ok {
		if old.(string) == identity {
			return nil
		}
		return ErrConflictingRegistration
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under lock in case another goroutine stored meanwhile.
	if old, ok := r.m.Load(t); ok {
		if old.(string) == identity {
			return nil
		}
		return ErrConflictingRegistration
	}
	r.m.Store(t, identity)
	r.count++
	return nil
}

// Lookup returns the identity pinned for t.
func (r *registry) Lookup(t reflect.Type) (string, bool) {
	if t == nil {
		return "", false
	}
	if v, ok := r.m.Load(t); ok {
		return v.(string), true
	}
	return "", false
}

// Entries returns a snapshot (order is unspecified).
func (r *registry) Entries() []apis.Entry {
	entries := make([]apis.Entry, 0, r.Count())
	r.m.Range(func(key, value any) bool {
		entries = append(entries, apis.Entry{Type: key.(reflect.Type), Identity: value.(string)})
		return true
	})
	return entries
}

// Count returns the number of pinned types.
func (r *registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Reset forgets every entry.
func (r *registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Clear()
	r.count = 0
}
