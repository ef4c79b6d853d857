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

package apis

import (
	"dirpx.dev/mef/primitives"
)

// ExportsChangedEvent announces that the exports visible under some contract
// names changed.
type ExportsChangedEvent struct {
	// ChangedContractNames lists each affected contract once.
	ChangedContractNames []string
}

// ExportsChangedHandler observes provider changes. An error returned by a
// handler is reported to whoever caused the change.
type ExportsChangedHandler func(ExportsChangedEvent) error

// ExportProvider supplies exports matching import definitions.
type ExportProvider interface {
	// GetExportsCore returns every export matching def. It never fails on
	// the number of matches; cardinality is the caller's concern.
	GetExportsCore(def primitives.ImportDefinition) ([]*primitives.Export, error)
	// Subscribe registers h for change notifications. The returned func
	// removes the subscription and is safe to call more than once.
	Subscribe(h ExportsChangedHandler) (cancel func())
}

// SourceConsumer is implemented by providers that resolve the imports of
// their own parts against an upstream provider.
type SourceConsumer interface {
	// SetSourceProvider sets the upstream provider; it can be set once.
	SetSourceProvider(src ExportProvider) error
}

// CompositionService satisfies the imports of parts that live outside any
// provider.
type CompositionService interface {
	SatisfyImports(part primitives.ComposablePart, registerForRecomposition bool) error
	UnregisterForRecomposition(part primitives.ComposablePart) error
}
