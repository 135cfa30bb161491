// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes the latest sampled values and the loop's
// health as Prometheus metrics.
//
// The Exporter observes the scheduler. After every emitted batch each
// numeric field becomes a gauge sample labelled by entity and metric.
// An unavailable field removes its series rather than reporting zero,
// so dashboards show a gap where the tool had no value.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bureau-foundation/gpusampler/lib/smi"
)

// Exporter holds the sampler's collectors on a private registry.
type Exporter struct {
	registry *prometheus.Registry

	values         *prometheus.GaugeVec
	cycles         prometheus.Counter
	failures       prometheus.Counter
	overruns       prometheus.Counter
	overrunSeconds prometheus.Counter
	work           prometheus.Histogram
	lastStamp      prometheus.Gauge
	entities       prometheus.Gauge

	mu     sync.Mutex
	series map[[2]string]struct{}
}

// New registers the collectors under namespace, e.g. "gpu_sampler".
func New(namespace string) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "metric_value",
			Help:      "Latest numeric value reported by the device tool.",
		}, []string{"entity", "metric"}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Sampling cycles whose batch was committed to the log.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_errors_total",
			Help:      "Sampling cycles that failed to produce a batch.",
		}),
		overruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overruns_total",
			Help:      "Cycles whose work exceeded the sampling period.",
		}),
		overrunSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overrun_seconds_total",
			Help:      "Accumulated time by which cycles exceeded the period.",
		}),
		work: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_work_seconds",
			Help:      "Time spent sampling and emitting one cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		lastStamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_stamp_seconds",
			Help:      "Stamp of the last committed batch, in seconds since the loop started.",
		}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entities",
			Help:      "Devices in the last committed batch.",
		}),
		series: make(map[[2]string]struct{}),
	}
	e.registry.MustRegister(
		e.values, e.cycles, e.failures, e.overruns, e.overrunSeconds,
		e.work, e.lastStamp, e.entities,
	)
	return e
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

// CycleCompleted publishes batch and the cycle's timing.
func (e *Exporter) CycleCompleted(_ uint64, stamp int64, batch smi.Batch, work time.Duration) {
	e.cycles.Inc()
	e.work.Observe(work.Seconds())
	e.lastStamp.Set(float64(stamp))
	e.entities.Set(float64(batch.Len()))

	index := batch.Catalog.Index("index")
	current := make(map[[2]string]struct{})
	for position, record := range batch.Records {
		entity := strconv.Itoa(position)
		if index >= 0 {
			if label, ok := record.Fields[index].Text(); ok && label != "" {
				entity = label
			}
		}
		for i, field := range record.Fields {
			value, ok := field.Number()
			if !ok {
				continue
			}
			key := [2]string{entity, batch.Catalog.Name(i)}
			e.values.WithLabelValues(key[0], key[1]).Set(value)
			current[key] = struct{}{}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for key := range e.series {
		if _, still := current[key]; !still {
			e.values.DeleteLabelValues(key[0], key[1])
		}
	}
	e.series = current
}

// CycleFailed counts a failed sample.
func (e *Exporter) CycleFailed(uint64, error) { e.failures.Inc() }

// Overrun counts an overrun and its magnitude.
func (e *Exporter) Overrun(_ uint64, overrun time.Duration) {
	e.overruns.Inc()
	e.overrunSeconds.Add(overrun.Seconds())
}
