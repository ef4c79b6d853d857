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

// Package events delivers change notifications to subscribed handlers.
//
// Unlike a channel based broker, delivery is synchronous: Publish returns
// after every handler ran, and hands the handlers' errors back to the caller
// that raised the change.
package events

import (
	"slices"
	"sync"

	"dirpx.dev/mef/primitives"
)

// Handler observes events of type E.
type Handler[E any] func(E) error

// Dispatcher is a list of handlers invoked in subscription order.
// The zero value is ready to use.
type Dispatcher[E any] struct {
	mu   sync.RWMutex
	next uint64
	subs []subscription[E]
}

type subscription[E any] struct {
	id uint64
	h  Handler[E]
}

// Subscribe registers h. The returned cancel func removes it and may be
// called more than once. A nil handler is never invoked.
func (d *Dispatcher[E]) Subscribe(h Handler[E]) (cancel func()) {
	if h == nil {
		return func() {}
	}
	d.mu.Lock()
	d.next++
	id := d.next
	d.subs = append(d.subs, subscription[E]{id: id, h: h})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(id) })
	}
}

func (d *Dispatcher[E]) remove(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = slices.DeleteFunc(slices.Clone(d.subs), func(s subscription[E]) bool { return s.id == id })
}

// Publish invokes every handler subscribed when Publish was called. Handlers
// subscribed or cancelled during delivery take effect on the next event.
// Errors are aggregated into a single *primitives.CompositionException.
func (d *Dispatcher[E]) Publish(ev E) error {
	d.mu.RLock()
	subs := d.subs
	d.mu.RUnlock()

	var result primitives.CompositionResult
	for _, s := range subs {
		result.Merge(s.h(ev))
	}
	return result.Err()
}

// Len returns the number of subscribed handlers.
func (d *Dispatcher[E]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Clear removes every handler.
func (d *Dispatcher[E]) Clear() {
	d.mu.Lock()
	d.subs = nil
	d.mu.Unlock()
}
