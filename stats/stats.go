// Package stats is the instrumentation registry shared by every pipeline
// stage, mirroring carbon-relay-ng's stats package: a thin wrapper that
// hands out named counters and gauges backed by Dieterbe/go-metrics so each
// component can report without taking a hard dependency on a specific
// metrics backend.
package stats

import (
	metrics "github.com/Dieterbe/go-metrics"
)

var registry = metrics.NewRegistry()

// Counter returns (creating if necessary) the named counter.
func Counter(key string) metrics.Counter {
	return metrics.GetOrRegisterCounter(key, registry)
}

// Gauge returns (creating if necessary) the named gauge.
func Gauge(key string) metrics.Gauge {
	return metrics.GetOrRegisterGauge(key, registry)
}

// Registry exposes the underlying registry for reporters that want to dump
// all known metrics, e.g. into logging or an external listener.
func Registry() metrics.Registry {
	return registry
}
