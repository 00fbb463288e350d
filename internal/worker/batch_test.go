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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetrics struct {
	failures int
	dropped  int
}

func (m *fakeMetrics) IncWorkerFailures() { m.failures++ }
func (m *fakeMetrics) IncJobDropped()     { m.dropped++ }

func TestFailureTrackerRequeuesOnFirstFailure(t *testing.T) {
	m := &fakeMetrics{}
	tr := NewFailureTracker(m)
	jobs := []Job{{VolumeID: 1, FileID: 1}, {VolumeID: 1, FileID: 2}}

	requeue := tr.OnBatchFailed(jobs)
	require.Len(t, requeue, 2)
	assert.Equal(t, 1, m.failures)
	assert.Equal(t, 0, m.dropped)
}

func TestFailureTrackerDropsOnSecondFailure(t *testing.T) {
	m := &fakeMetrics{}
	tr := NewFailureTracker(m)
	job := Job{VolumeID: 1, FileID: 1}

	tr.OnBatchFailed([]Job{job})
	requeue := tr.OnBatchFailed([]Job{job})

	assert.Empty(t, requeue)
	assert.Equal(t, 1, m.dropped)
	assert.Equal(t, 2, m.failures)
}

func TestFailureTrackerSuccessClearsRetryState(t *testing.T) {
	m := &fakeMetrics{}
	tr := NewFailureTracker(m)
	job := Job{VolumeID: 1, FileID: 1}

	tr.OnBatchFailed([]Job{job})
	tr.OnJobSucceeded(job)

	// Having succeeded, a later failure is treated as first-time again.
	requeue := tr.OnBatchFailed([]Job{job})
	assert.Len(t, requeue, 1)
	assert.Equal(t, 0, m.dropped)
}
