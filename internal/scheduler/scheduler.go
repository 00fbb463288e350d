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

// Package scheduler implements the adaptive three-queue admission
// controller: an idle/load sampler gates the metadata and content queues
// while the critical queue is always serviced, and a combined per-tick
// (max_files, max_bytes) budget is filled highest-priority-first. Each
// queue folds its own high-water-mark admission check into push; ticks are
// driven through internal/clock's Clock/SimulatedClock split for
// deterministic tests, with golang.org/x/time/rate enforcing the budget.
package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shaneholloman/ultrasearch/internal/clock"
	"github.com/shaneholloman/ultrasearch/internal/logger"
)

const tickInterval = time.Second

// Queue name labels, used only as arguments to Metrics; kept local to
// this package (not imported from internal/metrics) the same way
// internal/worker declares its own narrow Metrics interface rather than
// depending on the concrete prometheus-backed registry.
const (
	QueueCritical = "critical"
	QueueMetadata = "metadata"
	QueueContent  = "content"
)

// Metrics is the narrow counter surface the scheduler needs; implemented
// by internal/metrics.Registry in the running binary and by a fake in
// tests.
type Metrics interface {
	IncQueueDropped(queue string)
	SetQueueDepth(queue string, depth int)
}

// Config is the subset of cfg.SchedulerConfig the scheduler consults.
type Config struct {
	WarmThreshold, DeepThreshold                  time.Duration
	MetadataCPUCap, ContentCPUCap                 float64
	DiskBusyBytesPerSec                           int64
	CriticalPerTick, MetadataPerTick, ContentPerTick int
	ContentBatchSize                              int
	QueueHighWaterMark                            int
	MaxBytesPerTick                               int64
}

// Scheduler is the admission controller described above.
type Scheduler struct {
	cfg      Config
	clock    clock.Clock
	sampler  Sampler
	metrics  Metrics
	handlers Handlers

	mu        sync.Mutex
	criticalQ *admissionQueue[CriticalJob]
	metadataQ *admissionQueue[MetadataJob]
	contentQ  *admissionQueue[ContentJob]

	filesLimiter *rate.Limiter
	bytesLimiter *rate.Limiter
}

// New builds a Scheduler. sampler supplies idle/load readings each tick;
// pass scheduler.NewOSSampler() in production or a fake in tests.
func New(cfg Config, clk clock.Clock, sampler Sampler, metrics Metrics, handlers Handlers) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		clock:        clk,
		sampler:      sampler,
		metrics:      metrics,
		handlers:     handlers,
		criticalQ:    newAdmissionQueue[CriticalJob](0),
		metadataQ:    newAdmissionQueue[MetadataJob](cfg.QueueHighWaterMark),
		contentQ:     newAdmissionQueue[ContentJob](cfg.QueueHighWaterMark),
		filesLimiter: rate.NewLimiter(rate.Limit(cfg.CriticalPerTick), cfg.CriticalPerTick),
		bytesLimiter: rate.NewLimiter(rate.Limit(cfg.MaxBytesPerTick), int(cfg.MaxBytesPerTick)),
	}
}

// SubmitCritical enqueues a critical-priority job. The critical queue has
// no cap, so this never drops: a caller that floods it has a bug to fix,
// not a backpressure path to rely on.
func (s *Scheduler) SubmitCritical(j CriticalJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criticalQ.push(j)
}

// SubmitMetadata enqueues a metadata job, dropping it (and incrementing
// the drop counter) if the queue is already at its high-water mark.
func (s *Scheduler) SubmitMetadata(j MetadataJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.metadataQ.push(j) {
		s.metrics.IncQueueDropped(QueueMetadata)
		return false
	}
	return true
}

// SubmitContent enqueues a content job, dropping it (and incrementing the
// drop counter) if the queue is already at its high-water mark.
func (s *Scheduler) SubmitContent(j ContentJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.contentQ.push(j) {
		s.metrics.IncQueueDropped(QueueContent)
		return false
	}
	return true
}

// QueueDepths reports the current length of each queue, surfaced via
// StatusResponse.
func (s *Scheduler) QueueDepths() (critical, metadata, content int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criticalQ.len(), s.metadataQ.len(), s.contentQ.len()
}

// Run ticks once every tickInterval (driven by s.clock, so tests can drive
// it with a SimulatedClock) until ctx is cancelled. A tick already in
// flight runs to completion; no new tick is started afterward: in-flight
// batches finish their commit, then the scheduler exits.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(tickInterval):
		}
		if err := s.Tick(s.clock.Now()); err != nil {
			logger.Errorf("scheduler: tick failed: %v", err)
		}
	}
}

// Tick samples idle/load state, admits work from all three queues under
// one combined per-tick budget (highest priority first), and dispatches
// the admitted batches to Handlers concurrently via errgroup.
func (s *Scheduler) Tick(now time.Time) error {
	load, idleFor := s.sampler.Sample()
	idle := ClassifyIdle(idleFor, s.cfg.WarmThreshold, s.cfg.DeepThreshold)
	b := computeBudget(s.cfg, idle)

	s.filesLimiter.SetLimitAt(now, rate.Limit(b.MaxFiles))
	s.filesLimiter.SetBurstAt(now, b.MaxFiles)
	s.bytesLimiter.SetLimitAt(now, rate.Limit(b.MaxBytes))
	s.bytesLimiter.SetBurstAt(now, int(b.MaxBytes))

	s.mu.Lock()
	criticalBatch := drain(s.criticalQ, s.cfg.CriticalPerTick, s.filesLimiter, s.bytesLimiter, now)

	var metadataBatch []MetadataJob
	if admitMetadata(idle, load, s.cfg) {
		metadataBatch = drain(s.metadataQ, s.cfg.MetadataPerTick, s.filesLimiter, s.bytesLimiter, now)
	}

	var contentBatch []ContentJob
	if admitContent(idle, load, s.cfg) {
		contentBatch = drain(s.contentQ, s.cfg.ContentPerTick, s.filesLimiter, s.bytesLimiter, now)
	}

	s.metrics.SetQueueDepth(QueueCritical, s.criticalQ.len())
	s.metrics.SetQueueDepth(QueueMetadata, s.metadataQ.len())
	s.metrics.SetQueueDepth(QueueContent, s.contentQ.len())
	s.mu.Unlock()

	return s.dispatch(criticalBatch, metadataBatch, contentBatch)
}

// admitMetadata implements the metadata queue's admission gate:
// warm-or-deep idle, CPU under cap, disk not busy.
func admitMetadata(idle IdleState, load LoadSample, cfg Config) bool {
	if idle != WarmIdle && idle != DeepIdle {
		return false
	}
	if load.CPUPercent >= cfg.MetadataCPUCap {
		return false
	}
	return !load.DiskBusy(cfg.DiskBusyBytesPerSec)
}

// admitContent implements the content queue's admission gate: deep idle
// only, CPU under cap, disk not busy, on AC power, not in
// game mode.
func admitContent(idle IdleState, load LoadSample, cfg Config) bool {
	if idle != DeepIdle {
		return false
	}
	if load.CPUPercent >= cfg.ContentCPUCap {
		return false
	}
	if load.DiskBusy(cfg.DiskBusyBytesPerSec) {
		return false
	}
	return !load.OnBattery && !load.GameMode
}

// drain pops up to perTickCap jobs off q, stopping early once either the
// files or bytes limiter is exhausted: "a per-job est_bytes prevents a
// single huge job from starving the tick". Caller must
// already hold s.mu.
func drain[T estimable](q *admissionQueue[T], perTickCap int, filesLim, bytesLim *rate.Limiter, now time.Time) []T {
	var out []T
	for len(out) < perTickCap {
		j, ok := q.peek()
		if !ok {
			break
		}
		if !filesLim.AllowN(now, 1) {
			break
		}
		if !bytesLim.AllowN(now, int(j.estBytes())) {
			break
		}
		j, _ = q.pop()
		out = append(out, j)
	}
	return out
}

// dispatch hands each admitted batch to its Handlers entry concurrently.
// Content jobs are further chunked to ContentBatchSize before dispatch,
// one worker batch per chunk.
func (s *Scheduler) dispatch(critical []CriticalJob, metadata []MetadataJob, content []ContentJob) error {
	g := &errgroup.Group{}

	if s.handlers.Critical != nil {
		for _, j := range critical {
			j := j
			g.Go(func() error { return s.handlers.Critical(j) })
		}
	}

	if len(metadata) > 0 && s.handlers.Metadata != nil {
		batch := metadata
		g.Go(func() error { return s.handlers.Metadata(batch) })
	}

	if s.handlers.Content != nil {
		batchSize := s.cfg.ContentBatchSize
		if batchSize <= 0 {
			batchSize = len(content)
		}
		for start := 0; start < len(content); start += batchSize {
			end := start + batchSize
			if end > len(content) {
				end = len(content)
			}
			batch := content[start:end]
			g.Go(func() error { return s.handlers.Content(batch) })
		}
	}

	return g.Wait()
}
