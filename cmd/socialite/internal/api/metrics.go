// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracer resolves the global provider on each call, so a provider installed
// after the client was built still receives its spans.
func tracer() trace.Tracer {
	return otel.Tracer("socialite.api")
}

// Metrics are the client's request collectors.
type Metrics struct {
	// RequestsTotal counts calls by operation and status code ("error" when
	// no response arrived).
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes call latency by operation.
	RequestDuration *prometheus.HistogramVec

	// RateLimited counts calls that waited on the client-side limiter.
	RateLimited prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered, which is what tests and one-shot commands want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "socialite_api_requests_total",
			Help: "Backend API calls by operation and status code",
		}, []string{"op", "code"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socialite_api_request_duration_seconds",
			Help:    "Backend API call latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "socialite_api_rate_limited_total",
			Help: "Calls delayed by the client-side rate limiter",
		}),
	}
}
