// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the realtime channel's collectors.
type Metrics struct {
	// Events counts received frames by event name. Unparseable frames are
	// counted as "malformed".
	Events *prometheus.CounterVec

	// Reconnects counts successful reconnections after a dropped connection.
	Reconnects prometheus.Counter

	// Connected is 1 while the channel is connected.
	Connected prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "socialite_realtime_events_total",
			Help: "Realtime frames received by event name",
		}, []string{"event"}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "socialite_realtime_reconnects_total",
			Help: "Realtime reconnections after a dropped connection",
		}),
		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "socialite_realtime_connected",
			Help: "1 while the realtime channel is connected",
		}),
	}
}
