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

package primitives

import (
	"sync"
)

// Getter produces an exported value.
type Getter func() (any, error)

// Export pairs a definition with a lazily evaluated value.
//
// The getter of a regular export runs at most once; the value and the error
// it returned are both memoized. A live export calls its getter every time.
type Export struct {
	definition *ExportDefinition
	getter     Getter
	live       bool

	once  sync.Once
	value any
	err   error

	releaseOnce sync.Once
	release     func()
}

// NewExport returns a memoizing export. It panics on a nil definition or
// getter, both of which are programming errors.
func NewExport(def *ExportDefinition, getter Getter) *Export {
	if def == nil {
		panic(ErrNilExportDefinition)
	}
	if getter == nil {
		panic(ErrNilGetter)
	}
	return &Export{definition: def, getter: getter}
}

// NewDisposableExport returns a memoizing export whose Release runs release.
func NewDisposableExport(def *ExportDefinition, getter Getter, release func()) *Export {
	e := NewExport(def, getter)
	e.release = release
	return e
}

// NewLiveExport returns an export that does not memoize its value.
func NewLiveExport(def *ExportDefinition, getter Getter) *Export {
	e := NewExport(def, getter)
	e.live = true
	return e
}

// NewValueExport exports a fixed value.
func NewValueExport(def *ExportDefinition, v any) *Export {
	return NewExport(def, func() (any, error) { return v, nil })
}

// Definition returns the export definition.
func (e *Export) Definition() *ExportDefinition { return e.definition }

// ContractName is shorthand for Definition().ContractName().
func (e *Export) ContractName() string { return e.definition.contractName }

// Metadata returns a copy of the definition metadata.
func (e *Export) Metadata() Metadata { return e.definition.Metadata() }

// Value realizes the exported value.
func (e *Export) Value() (any, error) {
	if e.live {
		return e.getter()
	}
	e.once.Do(func() {
		e.value, e.err = e.getter()
	})
	return e.value, e.err
}

// Release runs the release hook, once. Exports without a hook ignore it.
func (e *Export) Release() {
	e.releaseOnce.Do(func() {
		if e.release != nil {
			e.release()
		}
	})
}

// Releasable reports whether Release does anything.
func (e *Export) Releasable() bool { return e.release != nil }

func (e *Export) String() string { return e.definition.String() }

// AdaptFunc transforms an export of one contract into an export of another.
// Returning nil drops the input silently.
type AdaptFunc func(*Export) (*Export, error)
