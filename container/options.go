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
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"dirpx.dev/mef/apis"
)

type options struct {
	catalog   apis.Catalog
	providers []apis.ExportProvider
	parent    apis.ExportProvider
	logger    logr.Logger
	loggerSet bool
	tracer    trace.TracerProvider
	metrics   prometheus.Registerer
	maxDepth  int
}

// Option configures a Container.
type Option func(*options)

// WithCatalog adds a catalog whose definitions are composed on demand.
func WithCatalog(cat apis.Catalog) Option {
	return func(o *options) { o.catalog = cat }
}

// WithProviders adds upstream providers, queried after the container's own
// parts and catalog, in the given order.
func WithProviders(providers ...apis.ExportProvider) Option {
	return func(o *options) { o.providers = append(o.providers, providers...) }
}

// WithParent makes parent the last provider the container falls back to.
func WithParent(parent apis.ExportProvider) Option {
	return func(o *options) { o.parent = parent }
}

// WithLogger sets the logger of the container and everything it owns.
func WithLogger(l logr.Logger) Option {
	return func(o *options) {
		o.logger = l
		o.loggerSet = true
	}
}

// WithTracerProvider records composition spans through tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

// WithMetrics registers the composition collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.metrics = reg }
}

// WithMaxCompositionDepth bounds how many parts may be satisfied inside
// one another. Values below 1 keep engine.DefaultMaxDepth.
func WithMaxCompositionDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}
