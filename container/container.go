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

// Package container assembles export providers into a composition container.
//
// A Container owns a PartExportProvider for the parts composed into it and,
// when given a catalog, a CatalogExportProvider. Both resolve their imports
// against the container itself, so every part sees the whole export surface:
//
//	adapting
//	   └── aggregate: parts, catalog, providers..., parent
//
// Without a catalog, extra providers or a parent the aggregate is omitted
// and the adapting provider sits directly on the part provider.
package container

import (
	"errors"
	"io"
	"slices"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"dirpx.dev/mef/apis"
	"dirpx.dev/mef/engine"
	"dirpx.dev/mef/internal/events"
	"dirpx.dev/mef/internal/telemetry"
	"dirpx.dev/mef/primitives"
	"dirpx.dev/mef/provider"
	"dirpx.dev/mef/query"
)

var (
	// ErrNilBatch is returned by Compose for a nil batch.
	ErrNilBatch = errors.New("mef(container): nil batch")
	// ErrNilProvider is returned by New for a nil supplied provider.
	ErrNilProvider = provider.ErrNilProvider
)

// Container composes parts and answers export queries.
type Container struct {
	tel telemetry.Telemetry

	catalog   apis.Catalog
	providers []apis.ExportProvider

	parts    *provider.PartExportProvider
	catalogs *provider.CatalogExportProvider
	root     apis.ExportProvider
	owned    []io.Closer

	cancel  func()
	changed events.Dispatcher[apis.ExportsChangedEvent]
	closed  atomic.Bool
}

var (
	_ apis.ExportProvider     = (*Container)(nil)
	_ apis.CompositionService = (*Container)(nil)
	_ io.Closer               = (*Container)(nil)
)

// New builds a container.
func New(opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if slices.Contains(o.providers, nil) {
		return nil, ErrNilProvider
	}
	if err := telemetry.Register(o.metrics); err != nil {
		return nil, err
	}

	if o.maxDepth < 1 {
		o.maxDepth = engine.DefaultMaxDepth
	}

	tel := telemetry.Default().WithTracerProvider(o.tracer)
	popts := []provider.Option{
		provider.WithTracerProvider(o.tracer),
		provider.WithMaxDepth(o.maxDepth),
	}
	if o.loggerSet {
		tel = tel.WithLogger(o.logger, "container")
		popts = append(popts, provider.WithLogger(o.logger))
	}

	c := &Container{tel: tel, catalog: o.catalog}
	c.providers = slices.Clone(o.providers)
	if o.parent != nil {
		c.providers = append(c.providers, o.parent)
	}

	c.parts = provider.NewPartExportProvider(popts...)
	c.owned = append(c.owned, c.parts)
	upstream := []apis.ExportProvider{c.parts}
	if o.catalog != nil {
		cp, err := provider.NewCatalogExportProvider(o.catalog, popts...)
		if err != nil {
			return nil, errors.Join(err, c.closeOwned())
		}
		c.catalogs = cp
		c.owned = append(c.owned, cp)
		upstream = append(upstream, cp)
	}
	upstream = append(upstream, c.providers...)

	var base apis.ExportProvider = c.parts
	if len(upstream) > 1 {
		agg, err := provider.NewAggregateExportProvider(upstream...)
		if err != nil {
			return nil, errors.Join(err, c.closeOwned())
		}
		c.owned = append(c.owned, agg)
		base = agg
	}
	adapting, err := provider.NewAdaptingExportProvider(base, popts...)
	if err != nil {
		return nil, errors.Join(err, c.closeOwned())
	}
	c.owned = append(c.owned, adapting)
	c.root = adapting
	c.cancel = adapting.Subscribe(c.changed.Publish)

	if err := c.parts.SetSourceProvider(c); err != nil {
		return nil, errors.Join(err, c.Close())
	}
	if c.catalogs != nil {
		if err := c.catalogs.SetSourceProvider(c); err != nil {
			return nil, errors.Join(err, c.Close())
		}
	}
	return c, nil
}

// Catalog returns the catalog the container was built with. It returns nil
// when there is none or the container is closed.
func (c *Container) Catalog() apis.Catalog {
	if c.closed.Load() {
		return nil
	}
	return c.catalog
}

// Providers returns the supplied upstream providers, parent last. It returns
// nil once the container is closed.
func (c *Container) Providers() []apis.ExportProvider {
	if c.closed.Load() {
		return nil
	}
	return slices.Clone(c.providers)
}

// Parts returns the parts composed into the container. It returns nil once
// the container is closed.
func (c *Container) Parts() []primitives.ComposablePart {
	if c.closed.Load() {
		return nil
	}
	return c.parts.Parts()
}

// Compose applies batch: removed parts are unregistered and their imports
// released, added parts are composed after the change is announced. Every
// failure is returned in one *primitives.CompositionException; parts already
// bound stay bound. A batch is composed once; composing it again returns
// ErrBatchConsumed. Compose may be called from a part hook or a change
// handler.
func (c *Container) Compose(batch *Batch) (err error) {
	if c.closed.Load() {
		return primitives.ErrDisposed
	}
	if batch == nil {
		return ErrNilBatch
	}
	if !batch.consume() {
		return ErrBatchConsumed
	}
	add, remove := batch.PartsToAdd(), batch.PartsToRemove()
	if len(add) == 0 && len(remove) == 0 {
		return nil
	}

	start := time.Now()
	_, span := c.tel.Start(telemetry.SpanCompose,
		attribute.Int(telemetry.AttrPartsAdded, len(add)),
		attribute.Int(telemetry.AttrPartsRemoved, len(remove)),
	)
	defer func() {
		telemetry.End(span, err)
		telemetry.ObserveCompose(start, err)
		if err != nil {
			c.tel.Logger.Error(err, "compose failed", "added", len(add), "removed", len(remove))
			return
		}
		c.tel.Logger.Info("composed", "added", len(add), "removed", len(remove))
	}()

	return c.parts.Compose(add, remove)
}

// GetExports returns the exports matching def, checking its cardinality.
func (c *Container) GetExports(def primitives.ImportDefinition) ([]*primitives.Export, error) {
	return query.GetExports(c, def)
}

// GetExportsCore implements apis.ExportProvider.
func (c *Container) GetExportsCore(def primitives.ImportDefinition) (exports []*primitives.Export, err error) {
	if c.closed.Load() {
		return nil, primitives.ErrDisposed
	}
	if def == nil {
		return nil, provider.ErrNilImport
	}
	attrs := []attribute.KeyValue{attribute.String(telemetry.AttrContract, def.String())}
	_, span := c.tel.Start(telemetry.SpanGetExports, attrs...)
	defer func() {
		span.SetAttributes(attribute.Int(telemetry.AttrExportCount, len(exports)))
		telemetry.End(span, err)
	}()
	return c.root.GetExportsCore(def)
}

// Subscribe implements apis.ExportProvider. Handlers see every change of
// the container's export surface, including those of its upstreams.
func (c *Container) Subscribe(h apis.ExportsChangedHandler) func() {
	return c.changed.Subscribe(events.Handler[apis.ExportsChangedEvent](h))
}

// ReleaseExport releases e. Exports of non-shared catalog parts dispose
// their part.
func (c *Container) ReleaseExport(e *primitives.Export) error {
	if c.closed.Load() {
		return primitives.ErrDisposed
	}
	if e == nil {
		return primitives.ErrNilExport
	}
	e.Release()
	return nil
}

// ReleaseExports releases every export of exports.
func (c *Container) ReleaseExports(exports []*primitives.Export) error {
	if c.closed.Load() {
		return primitives.ErrDisposed
	}
	if slices.Contains(exports, nil) {
		return primitives.ErrNilExport
	}
	for _, e := range exports {
		e.Release()
	}
	return nil
}

// SatisfyImports implements apis.CompositionService for parts that are not
// composed into the container.
func (c *Container) SatisfyImports(part primitives.ComposablePart, register bool) error {
	if c.closed.Load() {
		return primitives.ErrDisposed
	}
	return c.parts.SatisfyImports(part, register)
}

// UnregisterForRecomposition implements apis.CompositionService.
func (c *Container) UnregisterForRecomposition(part primitives.ComposablePart) error {
	if c.closed.Load() {
		return primitives.ErrDisposed
	}
	if part == nil {
		return primitives.ErrNilPart
	}
	return c.parts.UnregisterForRecomposition(part)
}

// Close disposes the providers the container owns, once. Supplied providers
// and the parent are left open. Every later call returns
// primitives.ErrDisposed.
func (c *Container) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.changed.Clear()
	return c.closeOwned()
}

// closeOwned closes owned providers, outermost first.
func (c *Container) closeOwned() error {
	var errs []error
	for _, o := range slices.Backward(c.owned) {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.owned = nil
	return errors.Join(errs...)
}
