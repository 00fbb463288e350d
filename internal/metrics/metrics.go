// Copyright 2026 The Ultrasearch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics is a thin prometheus/client_golang registry wrapper
// backing the core's observability counters (worker_failures_total,
// per-queue drop counters, compaction counts, gap-detected counts) and the
// Snapshot that fills StatusResponse.metrics. It is the one corner of
// the "metrics sinks" Non-goal that stays in core: external exporters are
// out of scope, but the IPC status response is part of the core's own
// contract and has to be populated from somewhere.
package metrics

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Queue names used as the "queue" label throughout. They match the three
// scheduler's admission queues.
const (
	QueueCritical = "critical"
	QueueMetadata = "metadata"
	QueueContent  = "content"
)

// Registry owns one isolated prometheus registry per process (not the
// global default registry, so tests can construct as many as they like
// without colliding). It implements the narrow Metrics interfaces each
// consuming package declares (worker.Metrics, scheduler.Metrics) so those
// packages never import the prometheus client directly.
type Registry struct {
	reg *prometheus.Registry

	workerFailures prometheus.Counter
	jobsDropped    prometheus.Counter
	gapDetected    prometheus.Counter
	compactions    prometheus.Counter

	queueDropped *prometheus.CounterVec
	queueDepth   *prometheus.GaugeVec
}

// New builds a Registry with every counter/gauge pre-registered.
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.workerFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ultrasearch_worker_failures_total",
		Help: "Extraction worker batches that failed (crash or non-zero exit).",
	})
	r.jobsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ultrasearch_worker_jobs_dropped_total",
		Help: "Extraction jobs dropped after exhausting the re-queue limit.",
	})
	r.gapDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ultrasearch_journal_gap_detected_total",
		Help: "USN journal gaps detected, each forcing a full MFT re-enumeration.",
	})
	r.compactions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ultrasearch_index_compactions_total",
		Help: "Hot-to-cold tier compactions run.",
	})
	r.queueDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ultrasearch_queue_dropped_total",
		Help: "Enqueues dropped because a queue exceeded its high-water mark.",
	}, []string{"queue"})
	r.queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ultrasearch_queue_depth",
		Help: "Current depth of each admission queue.",
	}, []string{"queue"})

	r.reg.MustRegister(r.workerFailures, r.jobsDropped, r.gapDetected, r.compactions, r.queueDropped, r.queueDepth)
	return r
}

// Registerer exposes the underlying prometheus registry for components
// (e.g. a future debug endpoint) that want to register their own
// collectors alongside this one.
func (r *Registry) Registerer() prometheus.Registerer { return r.reg }

// IncWorkerFailures implements worker.Metrics.
func (r *Registry) IncWorkerFailures() { r.workerFailures.Inc() }

// IncJobDropped implements worker.Metrics.
func (r *Registry) IncJobDropped() { r.jobsDropped.Inc() }

// IncGapDetected records one USN journal gap.
func (r *Registry) IncGapDetected() { r.gapDetected.Inc() }

// IncCompaction records one completed hot-to-cold compaction.
func (r *Registry) IncCompaction() { r.compactions.Inc() }

// IncQueueDropped implements scheduler.Metrics: one enqueue dropped for
// queue due to a high-water-mark overflow.
func (r *Registry) IncQueueDropped(queue string) { r.queueDropped.WithLabelValues(queue).Inc() }

// SetQueueDepth implements scheduler.Metrics: the current length of queue.
func (r *Registry) SetQueueDepth(queue string, depth int) {
	r.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// Snapshot is the counters subset surfaced in StatusResponse.metrics.
type Snapshot struct {
	WorkerFailuresTotal uint64
	JobsDroppedTotal    uint64
	GapDetectedTotal    uint64
	CompactionsTotal    uint64
	QueueDropped        map[string]uint64
	QueueDepth          map[string]uint64
}

// Snapshot reads every counter/gauge into a plain value type suitable for
// binary-encoding onto the IPC wire.
func (r *Registry) Snapshot() Snapshot {
	s := Snapshot{
		WorkerFailuresTotal: counterValue(r.workerFailures),
		JobsDroppedTotal:    counterValue(r.jobsDropped),
		GapDetectedTotal:    counterValue(r.gapDetected),
		CompactionsTotal:    counterValue(r.compactions),
		QueueDropped:        make(map[string]uint64, 3),
		QueueDepth:          make(map[string]uint64, 3),
	}
	for _, q := range []string{QueueCritical, QueueMetadata, QueueContent} {
		s.QueueDropped[q] = counterVecValue(r.queueDropped, q)
		s.QueueDepth[q] = uint64(gaugeVecValue(r.queueDepth, q))
	}
	return s
}

// counterValue reads a live value out of a prometheus.Counter via its
// Write(*dto.Metric) hook, the same introspection path promhttp itself
// uses when serializing a scrape.
func counterValue(c prometheus.Counter) uint64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil || m.Counter == nil {
		return 0
	}
	return uint64(m.Counter.GetValue())
}

func counterVecValue(v *prometheus.CounterVec, label string) uint64 {
	return counterValue(v.WithLabelValues(label))
}

func gaugeVecValue(v *prometheus.GaugeVec, label string) float64 {
	g := v.WithLabelValues(label)
	var m dto.Metric
	if err := g.Write(&m); err != nil || m.Gauge == nil {
		return 0
	}
	return m.Gauge.GetValue()
}
