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

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/ultrasearch/internal/clock"
)

type fakeMetrics struct {
	mu      sync.Mutex
	dropped map[string]int
	depth   map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{dropped: map[string]int{}, depth: map[string]int{}}
}

func (m *fakeMetrics) IncQueueDropped(queue string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[queue]++
}

func (m *fakeMetrics) SetQueueDepth(queue string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depth[queue] = depth
}

func testConfig() Config {
	return Config{
		WarmThreshold:       15 * time.Second,
		DeepThreshold:       60 * time.Second,
		MetadataCPUCap:      0.5,
		ContentCPUCap:       0.2,
		DiskBusyBytesPerSec: 50 << 20,
		CriticalPerTick:     16,
		MetadataPerTick:     256,
		ContentPerTick:      64,
		ContentBatchSize:    16,
		QueueHighWaterMark:  4,
		MaxBytesPerTick:     10 << 20,
	}
}

func TestCriticalAdmittedUnderHighLoadAndActiveState(t *testing.T) {
	// Testable property #11: critical-queue jobs are selected even when
	// CPU=95%, memory=90%, disk_busy=true, state=Active.
	metrics := newFakeMetrics()
	var committed []CriticalJob
	var mu sync.Mutex
	s := New(testConfig(), clock.NewSimulatedClock(time.Unix(0, 0)),
		&fakeSampler{sample: LoadSample{CPUPercent: 0.95, MemPercent: 0.9, DiskBytesPerSec: 1 << 30}, idle: time.Second},
		metrics,
		Handlers{Critical: func(j CriticalJob) error {
			mu.Lock()
			defer mu.Unlock()
			committed = append(committed, j)
			return nil
		}},
	)

	for i := 0; i < 3; i++ {
		s.SubmitCritical(CriticalJob{})
	}

	require.NoError(t, s.Tick(time.Unix(1, 0)))
	assert.Len(t, committed, 3)
}

func TestMetadataGatedOnIdleAndLoad(t *testing.T) {
	metrics := newFakeMetrics()
	var calls int
	s := New(testConfig(), clock.NewSimulatedClock(time.Unix(0, 0)),
		&fakeSampler{sample: LoadSample{CPUPercent: 0.9}, idle: time.Second}, // Active, high cpu
		metrics,
		Handlers{Metadata: func(j []MetadataJob) error { calls++; return nil }},
	)
	s.SubmitMetadata(MetadataJob{})
	require.NoError(t, s.Tick(time.Unix(1, 0)))
	assert.Equal(t, 0, calls, "metadata must not run while Active")

	s2 := New(testConfig(), clock.NewSimulatedClock(time.Unix(0, 0)),
		&fakeSampler{sample: LoadSample{CPUPercent: 0.1}, idle: 30 * time.Second}, // WarmIdle, low cpu
		metrics,
		Handlers{Metadata: func(j []MetadataJob) error { calls++; return nil }},
	)
	s2.SubmitMetadata(MetadataJob{})
	require.NoError(t, s2.Tick(time.Unix(1, 0)))
	assert.Equal(t, 1, calls, "metadata should run while WarmIdle with low cpu")
}

func TestContentRequiresDeepIdleAcPowerAndNoGameMode(t *testing.T) {
	metrics := newFakeMetrics()
	var calls int
	cfg := testConfig()

	mk := func(sample LoadSample, idle time.Duration) *Scheduler {
		return New(cfg, clock.NewSimulatedClock(time.Unix(0, 0)), &fakeSampler{sample: sample, idle: idle}, metrics,
			Handlers{Content: func(jobs []ContentJob) error { calls++; return nil }})
	}

	// WarmIdle only: should not run content.
	s := mk(LoadSample{}, 30*time.Second)
	s.SubmitContent(ContentJob{})
	require.NoError(t, s.Tick(time.Unix(1, 0)))
	assert.Equal(t, 0, calls)

	// DeepIdle but on battery: should not run.
	s = mk(LoadSample{OnBattery: true}, 90*time.Second)
	s.SubmitContent(ContentJob{})
	require.NoError(t, s.Tick(time.Unix(1, 0)))
	assert.Equal(t, 0, calls)

	// DeepIdle but in game mode: should not run.
	s = mk(LoadSample{GameMode: true}, 90*time.Second)
	s.SubmitContent(ContentJob{})
	require.NoError(t, s.Tick(time.Unix(1, 0)))
	assert.Equal(t, 0, calls)

	// DeepIdle, AC power, no game mode, low cpu: should run.
	s = mk(LoadSample{CPUPercent: 0.01}, 90*time.Second)
	s.SubmitContent(ContentJob{})
	require.NoError(t, s.Tick(time.Unix(1, 0)))
	assert.Equal(t, 1, calls)
}

func TestQueueHighWaterMarkDropsAndCounts(t *testing.T) {
	metrics := newFakeMetrics()
	cfg := testConfig() // high-water mark 4
	s := New(cfg, clock.NewSimulatedClock(time.Unix(0, 0)), &fakeSampler{}, metrics, Handlers{})

	for i := 0; i < 4; i++ {
		assert.True(t, s.SubmitMetadata(MetadataJob{}))
	}
	assert.False(t, s.SubmitMetadata(MetadataJob{}))
	assert.Equal(t, 1, metrics.dropped[QueueMetadata])
}

func TestCriticalQueueNeverDrops(t *testing.T) {
	metrics := newFakeMetrics()
	cfg := testConfig()
	s := New(cfg, clock.NewSimulatedClock(time.Unix(0, 0)), &fakeSampler{}, metrics, Handlers{})

	for i := 0; i < cfg.QueueHighWaterMark*10; i++ {
		s.SubmitCritical(CriticalJob{})
	}
	critical, _, _ := s.QueueDepths()
	assert.Equal(t, cfg.QueueHighWaterMark*10, critical)
}

func TestBudgetRespectsMaxFilesAndMaxBytes(t *testing.T) {
	// Testable property #10: select never returns a batch whose
	// sum(est_bytes) exceeds max_bytes or whose size exceeds max_files.
	cfg := testConfig()
	cfg.MaxBytesPerTick = 3 * defaultContentEstBytes // room for only 3 content jobs' worth of bytes
	cfg.ContentPerTick = 1000
	metrics := newFakeMetrics()

	var received []ContentJob
	s := New(cfg, clock.NewSimulatedClock(time.Unix(0, 0)),
		&fakeSampler{sample: LoadSample{}, idle: 90 * time.Second}, metrics,
		Handlers{Content: func(jobs []ContentJob) error { received = append(received, jobs...); return nil }},
	)
	for i := 0; i < 20; i++ {
		s.SubmitContent(ContentJob{})
	}
	require.NoError(t, s.Tick(time.Unix(1, 0)))

	var totalBytes int64
	for _, j := range received {
		totalBytes += j.estBytes()
	}
	assert.LessOrEqual(t, totalBytes, cfg.MaxBytesPerTick)
	assert.LessOrEqual(t, len(received), cfg.CriticalPerTick+cfg.MetadataPerTick+cfg.ContentPerTick)
}

func TestRunStopsAfterContextCancelWithoutStartingNewTick(t *testing.T) {
	metrics := newFakeMetrics()
	clk := clock.NewSimulatedClock(time.Unix(0, 0))
	var ticks int
	var mu sync.Mutex
	s := New(testConfig(), clk, &fakeSampler{idle: time.Hour}, metrics, Handlers{
		Critical: func(j CriticalJob) error {
			mu.Lock()
			ticks++
			mu.Unlock()
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	clk.AdvanceTime(tickInterval)
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
