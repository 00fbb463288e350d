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
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/shaneholloman/ultrasearch/internal/logger"
	"github.com/shaneholloman/ultrasearch/internal/scheduler"
	"github.com/shaneholloman/ultrasearch/internal/worker"
)

// handleContent turns one admitted content batch into a worker run: write
// the versioned manifest to the jobs directory, spawn the worker process
// (or run the batch in-process when no worker binary is configured — the
// development and test seam), absorb the intake delta the worker
// committed, and apply the once-only requeue policy on failure.
func (s *Services) handleContent(batch []scheduler.ContentJob) error {
	if len(batch) == 0 {
		return nil
	}

	jobs := make([]worker.Job, len(batch))
	maxBytes := uint64(s.Cfg.Extraction.MaxBytes)
	maxChars := uint64(s.Cfg.Extraction.MaxChars)
	for i, j := range batch {
		vol, frn := j.DocKey.Split()
		jobs[i] = worker.Job{
			VolumeID: vol,
			FileID:   frn,
			Path:     j.Path,
			MaxBytes: &maxBytes,
			MaxChars: &maxChars,
		}
	}

	manifest, err := worker.EncodeManifest(jobs)
	if err != nil {
		return err
	}
	manifestPath := filepath.Join(s.jobsDir, "batch-"+uuid.NewString()+".json")
	if err := os.WriteFile(manifestPath, manifest, 0o644); err != nil {
		return err
	}
	defer os.Remove(manifestPath)

	if err := s.runWorker(manifestPath); err != nil {
		logger.Warnf("app: content batch failed: %v", err)
		s.workerFailureStreak.Add(1)
		for _, j := range s.requeueFailed(jobs, batch) {
			s.Scheduler.SubmitContent(j)
		}
		return nil
	}

	s.workerFailureStreak.Store(0)
	for _, j := range jobs {
		s.tracker.OnJobSucceeded(j)
	}

	n, err := s.Content.AbsorbIntake()
	if err != nil {
		return err
	}
	// A delete applied while this batch ran may have removed content that
	// the absorb above then re-added; drop content whose metadata is gone.
	for _, j := range batch {
		if _, ok := s.Meta.Get(j.DocKey); !ok {
			if err := s.Content.Delete(j.DocKey); err != nil {
				return err
			}
		}
	}
	if n > 0 {
		s.noteCommit()
	}
	return nil
}

// runWorker executes one batch: out of process via Spawn when a worker
// binary is configured, otherwise in-process. A worker that exits with
// non-zero status has already logged its stderr line by line.
func (s *Services) runWorker(manifestPath string) error {
	if s.workerBinary == "" {
		return worker.RunBatch(context.Background(), manifestPath, s.contentDir,
			worker.DefaultStack(s.Cfg.Extraction.OCREnabled))
	}

	args := []string{"extract-worker", "--content-index-dir", s.contentDir}
	if s.Cfg.Extraction.OCREnabled {
		args = append(args, "--ocr")
	}
	args = append(args, manifestPath)
	proc, err := worker.Spawn(context.Background(), s.workerBinary, args,
		func(line string) { logger.Warnf("worker: %s", line) },
	)
	if err != nil {
		return err
	}
	return proc.Wait()
}

// requeueFailed maps the once-only retry decision back onto scheduler
// jobs: first-time failures go back to the content queue, repeat failures
// are dropped with a counter increment.
func (s *Services) requeueFailed(jobs []worker.Job, batch []scheduler.ContentJob) []scheduler.ContentJob {
	byKey := make(map[worker.Job]scheduler.ContentJob, len(batch))
	for i, j := range jobs {
		key := worker.Job{VolumeID: j.VolumeID, FileID: j.FileID}
		byKey[key] = batch[i]
	}

	var out []scheduler.ContentJob
	for _, j := range s.tracker.OnBatchFailed(jobs) {
		if cj, ok := byKey[worker.Job{VolumeID: j.VolumeID, FileID: j.FileID}]; ok {
			out = append(out, cj)
		}
	}
	return out
}
