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

package mef

import (
	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/container"
	"dirpx.dev/mef/identity"
	"dirpx.dev/mef/primitives"
	"dirpx.dev/mef/query"
)

type (
	Container                = container.Container
	Batch                    = container.Batch
	Option                   = container.Option
	ExportProvider           = apis.ExportProvider
	CompositionService       = apis.CompositionService
	ExportsChangedEvent      = apis.ExportsChangedEvent
	Catalog                  = apis.Catalog
	Export                   = primitives.Export
	ExportDefinition         = primitives.ExportDefinition
	ImportDefinition         = primitives.ImportDefinition
	ComposablePart           = primitives.ComposablePart
	ComposablePartDefinition = primitives.ComposablePartDefinition
	Cardinality              = primitives.Cardinality
	CreationPolicy           = primitives.CreationPolicy
	ErrorID                  = primitives.ErrorID
	CompositionError         = primitives.CompositionError
	CompositionException     = primitives.CompositionException
	CardinalityMismatchError = primitives.CardinalityMismatchError
	ContractMismatchError    = primitives.ContractMismatchError
)

// TypedExport views an export as producing T.
type TypedExport[T any] = primitives.TypedExport[T]

// TypedExportWithMetadata adds a metadata view M to a TypedExport.
type TypedExportWithMetadata[T, M any] = primitives.TypedExportWithMetadata[T, M]

const (
	ZeroOrOne  = primitives.ZeroOrOne
	ExactlyOne = primitives.ExactlyOne
	ZeroOrMore = primitives.ZeroOrMore

	Any       = primitives.Any
	Shared    = primitives.Shared
	NonShared = primitives.NonShared

	AdapterContractName = primitives.AdapterContractName
)

var (
	// ErrDisposed is returned by every operation of a closed container.
	ErrDisposed = primitives.ErrDisposed
	// ErrBatchConsumed is returned when a batch is composed twice.
	ErrBatchConsumed = container.ErrBatchConsumed
)

var (
	WithCatalog             = container.WithCatalog
	WithProviders           = container.WithProviders
	WithParent              = container.WithParent
	WithLogger              = container.WithLogger
	WithTracerProvider      = container.WithTracerProvider
	WithMetrics             = container.WithMetrics
	WithMaxCompositionDepth = container.WithMaxCompositionDepth
)

// NewContainer builds a container.
func NewContainer(opts ...Option) (*Container, error) { return container.New(opts...) }

// NewBatch returns an empty composition batch.
func NewBatch() *Batch { return container.NewBatch() }

// ComposeParts composes parts into c in one batch.
func ComposeParts(c *Container, parts ...ComposablePart) error {
	return container.ComposeParts(c, parts...)
}

// ComposeExportedValue composes a part exporting v under contract, or under
// the type identity of T when contract is empty.
func ComposeExportedValue[T any](c *Container, contract string, v T) (ComposablePart, error) {
	return container.ComposeExportedValue(c, contract, v)
}

// SatisfyImportsOnce binds the imports of part without registering it for
// recomposition.
func SatisfyImportsOnce(svc CompositionService, part ComposablePart) error {
	return container.SatisfyImportsOnce(svc, part)
}

// TypeIdentity returns the identity typed queries use for T.
func TypeIdentity[T any]() string { return identity.For[T]() }

// HasErrorID reports whether err carries a composition error with id.
func HasErrorID(err error, id ErrorID) bool { return primitives.HasErrorID(err, id) }

// GetExport returns the single export of contract producing T.
func GetExport[T any](p ExportProvider, contract string) (TypedExport[T], error) {
	return query.Export[T](p, contract)
}

// GetExportWithMetadata is GetExport with the metadata view M.
func GetExportWithMetadata[T, M any](p ExportProvider, contract string) (TypedExportWithMetadata[T, M], error) {
	return query.ExportWithMetadata[T, M](p, contract)
}

// GetExports returns every export of contract producing T.
func GetExports[T any](p ExportProvider, contract string) ([]TypedExport[T], error) {
	return query.Exports[T](p, contract)
}

// GetExportsWithMetadata is GetExports with the metadata view M.
func GetExportsWithMetadata[T, M any](p ExportProvider, contract string) ([]TypedExportWithMetadata[T, M], error) {
	return query.ExportsWithMetadata[T, M](p, contract)
}

// GetExportedValue returns the value of the single export of contract.
func GetExportedValue[T any](p ExportProvider, contract string) (T, error) {
	return query.Value[T](p, contract)
}

// GetExportedValueOrDefault is GetExportedValue returning the zero value
// when nothing matches.
func GetExportedValueOrDefault[T any](p ExportProvider, contract string) (T, error) {
	return query.ValueOrDefault[T](p, contract)
}

// GetExportedValues returns the values of every export of contract.
func GetExportedValues[T any](p ExportProvider, contract string) ([]T, error) {
	return query.Values[T](p, contract)
}
