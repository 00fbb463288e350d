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

package app

import (
	"context"
	"time"

	"github.com/shaneholloman/ultrasearch/internal/ipc"
	"github.com/shaneholloman/ultrasearch/internal/logger"
	"github.com/shaneholloman/ultrasearch/internal/scheduler"
)

// Status assembles the StatusResponse body: per-volume
// counters, the scheduler's current idle classification, and a metrics
// snapshot. The worker-health degradation bit rides in served_by.
func (s *Services) Status(ctx context.Context) ipc.StatusResponse {
	s.mu.Lock()
	trackers := append([]*volumeTracker(nil), s.volumes...)
	s.mu.Unlock()

	vols := make([]ipc.VolumeStatus, len(trackers))
	for i, vt := range trackers {
		vt.mu.Lock()
		st := vt.state
		vt.mu.Unlock()
		pending := vt.pending.Load()
		if pending < 0 {
			pending = 0
		}
		vols[i] = ipc.VolumeStatus{
			Volume:       vt.desc.Id,
			IndexedFiles: vt.indexed.Load(),
			PendingFiles: uint64(pending),
			LastUSN:      st.lastUSN,
			JournalID:    st.journalId,
		}
	}

	_, idleFor := s.sampler.Sample()
	idle := scheduler.ClassifyIdle(idleFor,
		time.Duration(s.Cfg.Scheduler.WarmThresholdSecs)*time.Second,
		time.Duration(s.Cfg.Scheduler.DeepThresholdSecs)*time.Second)

	servedBy := s.Cfg.AppName
	if s.workerFailureStreak.Load() >= workerFailureHealthThreshold {
		servedBy += " (degraded: extraction workers failing)"
	}

	return ipc.StatusResponse{
		Volumes:        vols,
		LastCommitTS:   s.lastCommitNs.Load(),
		SchedulerState: idle.String(),
		Metrics:        s.Metrics.Snapshot(),
		ServedBy:       servedBy,
	}
}

// TriggerRescan forces a full MFT re-enumeration of every volume: each
// volume loop notices the bumped generation on its next poll and re-seeds.
func (s *Services) TriggerRescan(ctx context.Context) error {
	gen := s.rescanGeneration.Add(1)
	logger.Infof("app: full rescan requested (generation %d)", gen)
	return nil
}
