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
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaneholloman/ultrasearch/cfg"
	"github.com/shaneholloman/ultrasearch/internal/ipc"
	"github.com/shaneholloman/ultrasearch/internal/logger"
	"github.com/shaneholloman/ultrasearch/internal/mft"
	"github.com/shaneholloman/ultrasearch/internal/model"
	"github.com/shaneholloman/ultrasearch/internal/scheduler"
	"github.com/shaneholloman/ultrasearch/internal/usn"
	"github.com/shaneholloman/ultrasearch/internal/volume"
)

const (
	usnPollInterval    = 2 * time.Second
	compactionInterval = 5 * time.Minute
	transientRetries   = 2
)

// Run discovers volumes and drives the whole core until ctx is cancelled:
// one ingest loop per volume, the scheduler's tick loop, the deep-idle
// compaction loop, and the IPC server on ln. Shutdown is cooperative —
// every loop watches ctx, and in-flight batches finish their commit before
// Run returns.
func (s *Services) Run(ctx context.Context, ln net.Listener) error {
	vols, err := volume.Discover(ctx, s.IdMap)
	if err != nil {
		return err
	}
	vols = filterVolumes(vols, &s.Cfg.Volumes)

	s.mu.Lock()
	for _, d := range vols {
		if err := s.IdMap.Record(s.volumesDir, d.GUIDPath, d.Id); err != nil {
			s.mu.Unlock()
			return err
		}
		s.volumes = append(s.volumes, &volumeTracker{desc: d})
	}
	trackers := append([]*volumeTracker(nil), s.volumes...)
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.Scheduler.Run(ctx) })
	g.Go(func() error { return s.compactionLoop(ctx) })

	server := &ipc.Server{
		Executor:     s.Executor,
		Status:       s.Status,
		Rescan:       s.TriggerRescan,
		ReloadConfig: s.reloadConfig,
	}
	g.Go(func() error { return server.Serve(ctx, ln) })

	for _, vt := range trackers {
		vt := vt
		g.Go(func() error {
			s.volumeLoop(ctx, vt)
			return nil
		})
	}

	return g.Wait()
}

// filterVolumes applies the user's include/exclude lists (matched against
// drive letters and GUID paths) on top of Discover's fixed+NTFS filter.
func filterVolumes(vols []volume.Descriptor, vc *cfg.VolumesConfig) []volume.Descriptor {
	match := func(d volume.Descriptor, patterns []string) bool {
		for _, p := range patterns {
			if p == d.GUIDPath {
				return true
			}
			for _, letter := range d.DriveLetters {
				if p == letter {
					return true
				}
			}
		}
		return false
	}

	var out []volume.Descriptor
	for _, d := range vols {
		if len(vc.Include) > 0 && !match(d, vc.Include) {
			continue
		}
		if match(d, vc.Exclude) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// volumeLoop owns one volume end to end: decide whether a full MFT seed is
// needed, then tail the USN journal forever, re-seeding whenever a gap is
// detected or a rescan is requested over IPC.
func (s *Services) volumeLoop(ctx context.Context, vt *volumeTracker) {
	d := vt.desc
	settingsHash := cfg.SettingsHash(s.Cfg)

	state, err := s.Cursors.Load(d.Id)
	if err != nil {
		logger.Warnf("app: cursor for volume %d is unreadable (%v); forcing re-enumeration", d.Id, err)
		state = model.VolumeState{}
	}

	needSeed := state.JournalId == 0 || state.SettingsHash != settingsHash
	if state.SettingsHash != settingsHash && state.JournalId != 0 {
		logger.Infof("app: indexing settings changed for volume %d; forcing re-enumeration", d.Id)
	}

	seenRescanGen := s.rescanGeneration.Load()
	retries := 0

	for {
		if ctx.Err() != nil {
			return
		}

		if gen := s.rescanGeneration.Load(); gen != seenRescanGen {
			seenRescanGen = gen
			needSeed = true
		}

		if needSeed {
			newState, err := s.seedVolume(ctx, d, settingsHash, vt)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Errorf("app: seeding volume %d failed: %v; volume unusable until next attempt", d.Id, err)
				if !s.sleep(ctx, 30*time.Second) {
					return
				}
				continue
			}
			state = newState
			needSeed = false
		}

		if !s.sleep(ctx, usnPollInterval) {
			return
		}

		res, err := usn.Tail(ctx, usn.Volume{Id: d.Id, Path: d.GUIDPath}, model.JournalCursor{
			LastUSN:   state.LastUSN,
			JournalId: state.JournalId,
		})
		if errors.Is(err, usn.ErrGapDetected) {
			s.Metrics.IncGapDetected()
			logger.Warnf("app: %v", err)
			needSeed = true
			continue
		}
		if err != nil {
			// Transient I/O: bounded retry, then log and keep polling.
			retries++
			if retries > transientRetries {
				logger.Warnf("app: tailing volume %d: %v", d.Id, err)
				retries = 0
			}
			continue
		}
		retries = 0

		// Guard invariant 2: within one journal_id the cursor only moves
		// forward. A decrease means the journal lied to us; treat it like
		// a gap rather than silently rewinding.
		if res.Cursor.JournalId == state.JournalId && res.Cursor.LastUSN < state.LastUSN {
			s.Metrics.IncGapDetected()
			needSeed = true
			continue
		}

		if len(res.Events) == 0 && res.Cursor == (model.JournalCursor{LastUSN: state.LastUSN, JournalId: state.JournalId}) {
			continue
		}

		state.LastUSN = res.Cursor.LastUSN
		state.JournalId = res.Cursor.JournalId
		s.routeEvents(d.Id, res.Events, vt, state)
	}
}

// sleep waits d on the Services clock, returning false if ctx ended first.
func (s *Services) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.clk.After(d):
		return true
	}
}

// seedVolume streams the volume's full MFT into the metadata queue and,
// once every record is committed, persists a cursor positioned at the
// journal state captured *before* the scan started — changes racing the
// scan are simply replayed by the first tail, which is idempotent because
// index writes are upserts.
func (s *Services) seedVolume(ctx context.Context, d volume.Descriptor, settingsHash uint64, vt *volumeTracker) (model.VolumeState, error) {
	bootstrap, err := usn.Tail(ctx, usn.Volume{Id: d.Id, Path: d.GUIDPath}, model.JournalCursor{})
	if err != nil && !errors.Is(err, usn.ErrGapDetected) {
		return model.VolumeState{}, err
	}

	records, err := mft.Enumerate(ctx, mft.Volume{Id: d.Id, Path: d.GUIDPath})
	if err != nil {
		return model.VolumeState{}, err
	}

	var wg sync.WaitGroup
	count := 0
	for r := range records {
		if r.Err != nil {
			var abort *mft.AbortError
			if errors.As(r.Err, &abort) {
				// Drain so the scan goroutine exits, then report failure.
				for range records {
				}
				return model.VolumeState{}, abort
			}
			s.mftParseErrors.Add(1)
			continue
		}

		ev := model.FileEvent{Kind: model.EventCreated, Meta: r.Meta}
		wg.Add(1)
		vt.pending.Add(1)
		job := scheduler.MetadataJob{
			Event:    ev,
			EstBytes: int64(r.Meta.Size),
			Done: func() {
				vt.pending.Add(-1)
				vt.indexed.Add(1)
				wg.Done()
			},
		}
		// The enumerator is the one producer the scheduler may
		// backpressure by blocking: the MFT stream is lazy, so pausing
		// here bounds memory instead of dropping records. Wait for queue
		// room before submitting rather than spinning on rejected
		// submits, which would inflate the drop counter.
		for {
			_, metadataDepth, _ := s.Scheduler.QueueDepths()
			if metadataDepth < s.Cfg.Scheduler.QueueHighWaterMark {
				break
			}
			if ctx.Err() != nil {
				vt.pending.Add(-1)
				wg.Done()
				return model.VolumeState{}, ctx.Err()
			}
			time.Sleep(100 * time.Millisecond)
		}
		if !s.Scheduler.SubmitMetadata(job) {
			vt.pending.Add(-1)
			wg.Done()
			continue
		}
		count++
	}
	if ctx.Err() != nil {
		return model.VolumeState{}, ctx.Err()
	}

	logger.Infof("app: volume %d MFT scan enqueued %d records", d.Id, count)

	// Cursor persistence is ordered after the index commits it covers
	//: wait for every seeded record before writing state.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return model.VolumeState{}, ctx.Err()
	case <-done:
	}

	prior, _ := s.Cursors.Load(d.Id)
	state := model.VolumeState{
		LastUSN:               bootstrap.Cursor.LastUSN,
		JournalId:             bootstrap.Cursor.JournalId,
		LastMFTScanGeneration: prior.LastMFTScanGeneration + 1,
		SettingsHash:          settingsHash,
	}
	if err := s.Cursors.Save(d.Id, state); err != nil {
		return model.VolumeState{}, err
	}
	vt.setCursor(state.LastUSN, state.JournalId)
	return state, nil
}

func (vt *volumeTracker) setCursor(lastUSN, journalId uint64) {
	vt.mu.Lock()
	vt.state = modelVolumeState{lastUSN: lastUSN, journalId: journalId}
	vt.mu.Unlock()
}

// routeEvents submits one tail chunk's events to the scheduler's queues —
// deletes/renames/attribute changes to critical, creates/modifies to
// metadata — and persists state once every event in the
// chunk has committed. Content jobs are not derived here: they are
// submitted by the metadata commit path itself, so a content job can never
// be admitted before its metadata write is searchable.
func (s *Services) routeEvents(volumeId uint16, events []model.FileEvent, vt *volumeTracker, state model.VolumeState) {
	var wg sync.WaitGroup

	for _, ev := range events {
		ev := ev
		wg.Add(1)
		vt.pending.Add(1)
		done := func() {
			vt.pending.Add(-1)
			wg.Done()
		}

		switch ev.Kind {
		case model.EventDeleted, model.EventRenamed, model.EventAttributesChanged:
			s.Scheduler.SubmitCritical(scheduler.CriticalJob{Event: ev, Done: done})
		default:
			indexedDone := func() {
				vt.indexed.Add(1)
				done()
			}
			if !s.Scheduler.SubmitMetadata(scheduler.MetadataJob{Event: ev, Done: indexedDone}) {
				vt.pending.Add(-1)
				wg.Done()
			}
		}
	}

	go func() {
		wg.Wait()
		if err := s.Cursors.Save(volumeId, state); err != nil {
			logger.Errorf("app: persisting cursor for volume %d: %v", volumeId, err)
			return
		}
		vt.setCursor(state.LastUSN, state.JournalId)
	}()
}

// compactionLoop folds the hot tiers into cold whenever the system has
// been deep-idle for a while (compaction runs only under
// deep idle).
func (s *Services) compactionLoop(ctx context.Context) error {
	lastCompaction := s.clk.Now()
	for {
		if !s.sleep(ctx, 30*time.Second) {
			return nil
		}

		_, idleFor := s.sampler.Sample()
		idle := scheduler.ClassifyIdle(idleFor,
			time.Duration(s.Cfg.Scheduler.WarmThresholdSecs)*time.Second,
			time.Duration(s.Cfg.Scheduler.DeepThresholdSecs)*time.Second)
		if idle != scheduler.DeepIdle {
			continue
		}
		if s.clk.Now().Sub(lastCompaction) < compactionInterval {
			continue
		}

		if err := s.Meta.Compact(); err != nil {
			logger.Errorf("app: compacting metadata index: %v", err)
		}
		if err := s.Content.Compact(); err != nil {
			logger.Errorf("app: compacting content index: %v", err)
		}
		s.Metrics.IncCompaction()
		lastCompaction = s.clk.Now()
	}
}
