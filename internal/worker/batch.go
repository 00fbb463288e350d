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

package worker

// Metrics is the narrow counter surface internal/worker needs; it is
// implemented by internal/metrics in the running binary and by a no-op
// fake in tests, so this package never depends on the prometheus client
// directly.
type Metrics interface {
	IncWorkerFailures()
	IncJobDropped()
}

type jobKey struct {
	volumeID uint16
	fileID   uint64
}

func keyOf(j Job) jobKey { return jobKey{j.VolumeID, j.FileID} }

// FailureTracker implements the batch failure policy: a crashed
// worker fails its whole batch, and each job in that batch is re-queued at
// most once before being dropped with a counter increment.
type FailureTracker struct {
	metrics Metrics
	retries map[jobKey]int
}

// NewFailureTracker builds a tracker reporting through m.
func NewFailureTracker(m Metrics) *FailureTracker {
	return &FailureTracker{metrics: m, retries: make(map[jobKey]int)}
}

// OnBatchFailed partitions a failed batch's jobs into those to requeue
// (first failure) and those to drop (already retried once), incrementing
// worker_failures_total for the batch and job-drop counters for each drop.
func (t *FailureTracker) OnBatchFailed(jobs []Job) (requeue []Job) {
	t.metrics.IncWorkerFailures()
	for _, j := range jobs {
		k := keyOf(j)
		if t.retries[k] > 0 {
			delete(t.retries, k)
			t.metrics.IncJobDropped()
			continue
		}
		t.retries[k]++
		requeue = append(requeue, j)
	}
	return requeue
}

// OnJobSucceeded forgets any retry bookkeeping for a job that completed,
// whether on its first or second attempt.
func (t *FailureTracker) OnJobSucceeded(j Job) {
	delete(t.retries, keyOf(j))
}
