// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package asset

import "github.com/prometheus/client_golang/prometheus"

// Result labels for asset load metrics.
const (
	ResultRequested    = "requested"
	ResultDeduplicated = "deduplicated"
	ResultLoaded       = "loaded"
	ResultFailed       = "failed"
	ResultEvicted      = "evicted"
)

// LoadsTotal counts asset load transitions by kind and result.
// Use RegisterMetrics to register this with a Prometheus registry.
var LoadsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "marionette_asset_loads_total",
		Help: "Total number of asset load transitions by kind and result",
	},
	[]string{"kind", "result"},
)

// RegisterMetrics registers asset package metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LoadsTotal)
}

func recordLoad(kind Kind, result string) {
	LoadsTotal.WithLabelValues(string(kind), result).Inc()
}
