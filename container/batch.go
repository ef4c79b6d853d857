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

package container

import (
	"errors"
	"slices"
	"sync/atomic"

	"dirpx.dev/mef/identity"
	"dirpx.dev/mef/part"
	"dirpx.dev/mef/primitives"
)

// ErrBatchConsumed is returned when a batch is changed or composed after it
// was composed once.
var ErrBatchConsumed = errors.New("mef(container): batch already composed")

// Batch collects the parts one Compose call adds and removes. A batch is
// consumed by the first Compose that accepts it.
// A Batch is not safe for concurrent use.
type Batch struct {
	add      []primitives.ComposablePart
	remove   []primitives.ComposablePart
	consumed atomic.Bool
}

// NewBatch returns an empty batch.
func NewBatch() *Batch { return &Batch{} }

// AddPart schedules p to be added.
func (b *Batch) AddPart(p primitives.ComposablePart) error {
	if b.consumed.Load() {
		return ErrBatchConsumed
	}
	if p == nil {
		return primitives.ErrNilPart
	}
	b.add = append(b.add, p)
	return nil
}

// RemovePart schedules p to be removed. Removing a part the container does
// not hold does nothing.
func (b *Batch) RemovePart(p primitives.ComposablePart) error {
	if b.consumed.Load() {
		return ErrBatchConsumed
	}
	if p == nil {
		return primitives.ErrNilPart
	}
	b.remove = append(b.remove, p)
	return nil
}

// AddExport schedules a part offering e. The part is returned so that it can
// be removed later.
func (b *Batch) AddExport(e *primitives.Export) (primitives.ComposablePart, error) {
	if b.consumed.Load() {
		return nil, ErrBatchConsumed
	}
	if e == nil {
		return nil, primitives.ErrNilExport
	}
	p, err := part.ForExport(e)
	if err != nil {
		return nil, err
	}
	b.add = append(b.add, p)
	return p, nil
}

// AddExportedValue schedules a part exporting v under contract, stamped with
// the type identity of v. A nil v is exported as is.
func (b *Batch) AddExportedValue(contract string, v any) (primitives.ComposablePart, error) {
	return b.addValue(contract, identity.Of(v), v)
}

// AddExportedValueOf is AddExportedValue with the type identity of T. An
// empty contract defaults to that identity.
func AddExportedValueOf[T any](b *Batch, contract string, v T) (primitives.ComposablePart, error) {
	id := identity.For[T]()
	if contract == "" {
		contract = id
	}
	return b.addValue(contract, id, v)
}

func (b *Batch) addValue(contract, typeIdentity string, v any) (primitives.ComposablePart, error) {
	md := map[string]any{}
	if typeIdentity != "" {
		md[primitives.TypeIdentityMetadataKey] = typeIdentity
	}
	def, err := primitives.NewExportDefinition(contract, md)
	if err != nil {
		return nil, err
	}
	return b.AddExport(primitives.NewValueExport(def, v))
}

// PartsToAdd returns a copy of the parts scheduled for addition.
func (b *Batch) PartsToAdd() []primitives.ComposablePart { return slices.Clone(b.add) }

// PartsToRemove returns a copy of the parts scheduled for removal.
func (b *Batch) PartsToRemove() []primitives.ComposablePart { return slices.Clone(b.remove) }

// Consumed reports whether the batch was composed.
func (b *Batch) Consumed() bool { return b.consumed.Load() }

func (b *Batch) consume() bool { return b.consumed.CompareAndSwap(false, true) }
