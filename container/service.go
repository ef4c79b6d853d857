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
	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/primitives"
)

// Composer applies composition batches. *Container implements it.
type Composer interface {
	Compose(batch *Batch) error
}

// ComposeParts composes parts in one batch.
func ComposeParts(c Composer, parts ...primitives.ComposablePart) error {
	b := NewBatch()
	for _, p := range parts {
		if err := b.AddPart(p); err != nil {
			return err
		}
	}
	return c.Compose(b)
}

// ComposeExportedValue composes a part exporting v with the type identity
// of T. An empty contract defaults to that identity.
func ComposeExportedValue[T any](c Composer, contract string, v T) (primitives.ComposablePart, error) {
	b := NewBatch()
	p, err := AddExportedValueOf(b, contract, v)
	if err != nil {
		return nil, err
	}
	return p, c.Compose(b)
}

// SatisfyImportsOnce binds the imports of part without registering it for
// recomposition.
func SatisfyImportsOnce(svc apis.CompositionService, part primitives.ComposablePart) error {
	return svc.SatisfyImports(part, false)
}
