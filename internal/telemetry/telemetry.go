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

// Package telemetry bundles the logger, tracer and metrics used by the
// composition runtime.
package telemetry

import (
	"context"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ScopeName is the instrumentation scope of every span.
const ScopeName = "dirpx.dev/mef"

// Span names.
const (
	SpanCompose        = "mef.Compose"
	SpanSatisfyImports = "mef.SatisfyImports"
	SpanRecompose      = "mef.Recompose"
	SpanGetExports     = "mef.GetExports"
)

// Span attribute keys.
const (
	AttrPart           = "mef.part"
	AttrContract       = "mef.contract"
	AttrContracts      = "mef.contracts"
	AttrPartsAdded     = "mef.parts.added"
	AttrPartsRemoved   = "mef.parts.removed"
	AttrExportCount    = "mef.exports"
	AttrRegister       = "mef.register"
	AttrAffectedParts  = "mef.parts.affected"
	AttrCompositionErr = "mef.errors"
)

// Telemetry is passed by value; the zero value is not usable, start from
// Default.
type Telemetry struct {
	Logger logr.Logger
	Tracer trace.Tracer
}

// Default discards logs and records no spans.
func Default() Telemetry {
	return Telemetry{
		Logger: logr.Discard(),
		Tracer: noop.NewTracerProvider().Tracer(ScopeName),
	}
}

// WithTracerProvider returns t tracing through tp. A nil provider keeps the
// current tracer.
func (t Telemetry) WithTracerProvider(tp trace.TracerProvider) Telemetry {
	if tp != nil {
		t.Tracer = tp.Tracer(ScopeName)
	}
	return t
}

// WithLogger returns t logging through l, named after the component. The
// zero logr.Logger discards.
func (t Telemetry) WithLogger(l logr.Logger, name string) Telemetry {
	if name != "" {
		l = l.WithName(name)
	}
	t.Logger = l
	return t
}

// Start opens an internal span.
func (t Telemetry) Start(name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.Tracer.Start(context.Background(), name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End records err on span and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
