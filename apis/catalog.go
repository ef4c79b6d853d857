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

// Catalog is a source of part definitions.
type Catalog interface {
	Parts() []primitives.ComposablePartDefinition
}

// PartExport is one export definition of one part definition.
type PartExport struct {
	Part   primitives.ComposablePartDefinition
	Export *primitives.ExportDefinition
}

// IndexedCatalog answers export queries without a full scan.
type IndexedCatalog interface {
	Catalog
	// GetExports returns the exports matching def, in catalog order.
	GetExports(def primitives.ImportDefinition) []PartExport
}

// CatalogChangedEvent lists the definitions added to and removed from a
// catalog by one change.
type CatalogChangedEvent struct {
	Added   []primitives.ComposablePartDefinition
	Removed []primitives.ComposablePartDefinition
}

// CatalogChangedHandler observes catalog changes.
type CatalogChangedHandler func(CatalogChangedEvent) error

// NotifyingCatalog reports changes to its part definitions.
type NotifyingCatalog interface {
	Catalog
	Subscribe(h CatalogChangedHandler) (cancel func())
}
