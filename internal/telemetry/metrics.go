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

package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dirpx.dev/mef/primitives"
)

var (
	compositionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mef_compositions_total",
			Help: "Number of batches composed, by result.",
		},
		[]string{"result"},
	)
	recompositionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mef_recompositions_total",
			Help: "Number of parts recomposed after an exports change.",
		},
	)
	compositionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mef_composition_errors_total",
			Help: "Number of composition errors, by error id.",
		},
		[]string{"id"},
	)
	adapterInvocationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mef_adapter_invocations_total",
			Help: "Number of exports passed through an adapter.",
		},
	)
	composeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mef_compose_duration_seconds",
			Help:    "Time taken to compose a batch.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Collectors returns every collector of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		compositionsTotal,
		recompositionsTotal,
		compositionErrorsTotal,
		adapterInvocationsTotal,
		composeDuration,
	}
}

// Register adds the collectors to reg. Collectors already registered with
// reg are accepted, so several containers may share one registry.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	var errs []error
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ObserveCompose records one Compose call.
func ObserveCompose(start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	compositionsTotal.WithLabelValues(result).Inc()
	composeDuration.Observe(time.Since(start).Seconds())
}

// ObserveRecomposition records one recomposed part.
func ObserveRecomposition() { recompositionsTotal.Inc() }

// ObserveAdapter records one adapter invocation.
func ObserveAdapter() { adapterInvocationsTotal.Inc() }

// ObserveErrors counts the composition errors carried by err, by ID.
func ObserveErrors(err error) {
	if err == nil {
		return
	}
	var ex *primitives.CompositionException
	if errors.As(err, &ex) {
		for _, ce := range ex.Errors() {
			compositionErrorsTotal.WithLabelValues(ce.ID.String()).Inc()
		}
		return
	}
	compositionErrorsTotal.WithLabelValues(primitives.ErrorIDOf(err).String()).Inc()
}
