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

// Package provider implements the export providers of a composition.
//
// Every provider answers GetExportsCore without checking cardinality and
// raises ExportsChanged when the exports it can return change:
//
//   - PartExportProvider serves the exports of a flat list of live parts.
//   - CatalogExportProvider serves the exports of catalog definitions,
//     creating parts lazily according to their creation policy.
//   - AggregateExportProvider concatenates several providers in order.
//   - AdaptingExportProvider adds the exports produced by adapters.
package provider

import (
	"errors"
	"io"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"

	"dirpx.dev/mef/engine"
	"dirpx.dev/mef/internal/telemetry"
	"dirpx.dev/mef/primitives"
	"dirpx.dev/mef/query"
)

var (
	// ErrNilProvider is returned for a nil upstream provider.
	ErrNilProvider = query.ErrNilProvider
	// ErrNilImport is returned by GetExportsCore for a nil import definition.
	ErrNilImport = query.ErrNilImport
	// ErrNilCatalog is returned by NewCatalogExportProvider for a nil catalog.
	ErrNilCatalog = errors.New("mef(provider): nil catalog")
	// ErrSourceNotSet is returned when a provider that composes its own parts
	// is queried before SetSourceProvider.
	ErrSourceNotSet = engine.ErrSourceNotSet
)

type options struct {
	tel        telemetry.Telemetry
	engineOpts []engine.Option
}

// Option configures a provider.
type Option func(*options)

// WithLogger sets the logger of the provider and of the engine it owns.
func WithLogger(l logr.Logger) Option {
	return func(o *options) {
		o.tel = o.tel.WithLogger(l, "provider")
		o.engineOpts = append(o.engineOpts, engine.WithLogger(l))
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tel = o.tel.WithTracerProvider(tp)
		o.engineOpts = append(o.engineOpts, engine.WithTracerProvider(tp))
	}
}

// WithMaxDepth bounds nested part satisfaction in the provider's engine.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		o.engineOpts = append(o.engineOpts, engine.WithMaxDepth(n))
	}
}

func newOptions(opts []Option) options {
	o := options{tel: telemetry.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// distinct returns names without duplicates or empty entries, keeping the
// first occurrence.
func distinct(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// exportedContracts lists the contract names exported by defs.
func exportedContracts(defs ...[]*primitives.ExportDefinition) []string {
	var names []string
	for _, list := range defs {
		for _, d := range list {
			names = append(names, d.ContractName())
		}
	}
	return distinct(names)
}

// dispose closes part if it holds resources.
func dispose(part primitives.ComposablePart) error {
	if c, ok := part.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
