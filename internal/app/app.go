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

// Package app assembles the indexing core into one running service: it
// owns the Services context (one explicitly-constructed
// dependency bundle — no process-wide singletons), the per-volume ingest
// pipelines, the scheduler's commit handlers, and the deep-idle compaction
// loop. Everything the cmd layer needs is reachable from a *Services.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaneholloman/ultrasearch/cfg"
	"github.com/shaneholloman/ultrasearch/internal/clock"
	"github.com/shaneholloman/ultrasearch/internal/cursor"
	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/index"
	"github.com/shaneholloman/ultrasearch/internal/logger"
	"github.com/shaneholloman/ultrasearch/internal/metrics"
	"github.com/shaneholloman/ultrasearch/internal/pathcache"
	"github.com/shaneholloman/ultrasearch/internal/scheduler"
	"github.com/shaneholloman/ultrasearch/internal/search"
	"github.com/shaneholloman/ultrasearch/internal/volume"
	"github.com/shaneholloman/ultrasearch/internal/worker"
)

// Data-root subdirectories.
const (
	metaIndexSubdir    = "index/meta"
	contentIndexSubdir = "index/content"
	volumesSubdir      = "volumes"
	jobsSubdir         = "jobs"
	logSubdir          = "log"
)

// workerFailureHealthThreshold is the consecutive-batch-failure count that
// flips the degraded-health bit surfaced through Status.
const workerFailureHealthThreshold = 3

// volumeTracker is the live per-volume bookkeeping behind
// StatusResponse.volumes.
type volumeTracker struct {
	desc    volume.Descriptor
	indexed atomic.Uint64
	pending atomic.Int64

	mu    sync.Mutex
	state modelVolumeState
}

// modelVolumeState is a small alias-free copy of the cursor fields status
// reads; the authoritative persisted form lives in internal/cursor.
type modelVolumeState struct {
	lastUSN   uint64
	journalId uint64
}

// Options carries the knobs the cmd layer injects into New: the worker
// binary to spawn (empty means run extraction in-process, the seam the
// end-to-end tests and non-Windows development builds use), plus clock and
// sampler overrides for deterministic tests.
type Options struct {
	WorkerBinary string
	Clock        clock.Clock
	Sampler      scheduler.Sampler

	// ReloadConfig, if set, is invoked for the IPC ReloadConfig request
	// (the cmd layer owns the viper machinery that can actually re-read
	// the file).
	ReloadConfig func(context.Context) error
}

// Services is the dependency context passed down at startup:
// background loops hold it strongly for the life of Run; nothing in it is
// reachable as a package-level singleton.
type Services struct {
	Cfg       *cfg.Config
	Metrics   *metrics.Registry
	Cursors   *cursor.Store
	IdMap     *cursor.VolumeIdMap
	Meta      *index.Index
	Content   *index.Index
	Paths     *pathcache.Cache
	Executor  *search.Executor
	Scheduler *scheduler.Scheduler

	clk          clock.Clock
	sampler      scheduler.Sampler
	tracker      *worker.FailureTracker
	workerBinary string
	reloadConfig func(context.Context) error
	jobsDir      string
	volumesDir   string
	contentDir   string

	mu      sync.Mutex
	parents map[docid.DocKey]docid.DocKey
	volumes []*volumeTracker

	lastCommitNs        atomic.Int64
	workerFailureStreak atomic.Int64
	rescanGeneration    atomic.Uint64
	mftParseErrors      atomic.Uint64
}

// New builds the whole Services graph under c.DataRoot, creating the
// directory layout on first run. The returned Services is inert until Run
// is called.
func New(c *cfg.Config, opts Options) (*Services, error) {
	for _, sub := range []string{metaIndexSubdir, contentIndexSubdir, volumesSubdir, jobsSubdir, logSubdir} {
		if err := os.MkdirAll(filepath.Join(c.DataRoot, sub), 0o755); err != nil {
			return nil, fmt.Errorf("app: creating data directory %s: %w", sub, err)
		}
	}

	reg := metrics.New()

	volumesDir := filepath.Join(c.DataRoot, volumesSubdir)
	cursors, err := cursor.Open(volumesDir)
	if err != nil {
		return nil, err
	}
	idMap, err := cursor.NewVolumeIdMap(volumesDir)
	if err != nil {
		cursors.Close()
		return nil, err
	}

	contentDir := filepath.Join(c.DataRoot, contentIndexSubdir)
	meta, err := index.Open(filepath.Join(c.DataRoot, metaIndexSubdir))
	if err != nil {
		cursors.Close()
		return nil, err
	}
	content, err := index.Open(contentDir)
	if err != nil {
		meta.Close()
		cursors.Close()
		return nil, err
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	sampler := opts.Sampler
	if sampler == nil {
		sampler = scheduler.NewOSSampler()
	}

	s := &Services{
		Cfg:          c,
		Metrics:      reg,
		Cursors:      cursors,
		IdMap:        idMap,
		Meta:         meta,
		Content:      content,
		Paths:        pathcache.New(c.Index.PathCacheCapacity),
		Executor:     &search.Executor{Meta: meta, Content: content},
		clk:          clk,
		sampler:      sampler,
		tracker:      worker.NewFailureTracker(reg),
		workerBinary: opts.WorkerBinary,
		reloadConfig: opts.ReloadConfig,
		jobsDir:      filepath.Join(c.DataRoot, jobsSubdir),
		volumesDir:   volumesDir,
		contentDir:   contentDir,
		parents:      make(map[docid.DocKey]docid.DocKey),
	}

	s.Scheduler = scheduler.New(schedulerConfig(c), clk, sampler, reg, scheduler.Handlers{
		Critical: s.handleCritical,
		Metadata: s.handleMetadata,
		Content:  s.handleContent,
	})

	// Content committed by a worker that exited after our last shutdown is
	// still sitting in the intake directory; absorb it before serving.
	if n, err := content.AbsorbIntake(); err != nil {
		logger.Warnf("app: absorbing leftover content intake: %v", err)
	} else if n > 0 {
		logger.Infof("app: absorbed %d content docs left over from a prior run", n)
	}

	return s, nil
}

func schedulerConfig(c *cfg.Config) scheduler.Config {
	return scheduler.Config{
		WarmThreshold:       time.Duration(c.Scheduler.WarmThresholdSecs) * time.Second,
		DeepThreshold:       time.Duration(c.Scheduler.DeepThresholdSecs) * time.Second,
		MetadataCPUCap:      c.Scheduler.MetadataCPUCap,
		ContentCPUCap:       c.Scheduler.ContentCPUCap,
		DiskBusyBytesPerSec: c.Scheduler.DiskBusyBytesPerSec,
		CriticalPerTick:     c.Scheduler.CriticalPerTick,
		MetadataPerTick:     c.Scheduler.MetadataPerTick,
		ContentPerTick:      c.Scheduler.ContentPerTick,
		ContentBatchSize:    c.Scheduler.ContentBatchSize,
		QueueHighWaterMark:  c.Scheduler.QueueHighWaterMark,
		MaxBytesPerTick:     c.Scheduler.MaxBytesPerTick,
	}
}

// Close releases every handle New opened. Safe to call after Run returns.
func (s *Services) Close() error {
	var firstErr error
	for _, c := range []func() error{s.Content.Close, s.Meta.Close, s.Cursors.Close} {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
