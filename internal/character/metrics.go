// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package character

import "github.com/prometheus/client_golang/prometheus"

// ActivatedTotal counts characters whose idle animation was started.
// Use RegisterMetrics to register this with a Prometheus registry.
var ActivatedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "marionette_characters_activated_total",
		Help: "Total number of characters whose idle animation was started",
	},
)

// AnimationsRequested counts clip loads issued by the orchestrator. Animation
// names come from definition files, so they are not used as a label.
// Use RegisterMetrics to register this with a Prometheus registry.
var AnimationsRequested = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "marionette_animations_requested_total",
		Help: "Total number of animation clips requested for characters",
	},
)

// RegisterMetrics registers character package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ActivatedTotal)
	reg.MustRegister(AnimationsRequested)
}
