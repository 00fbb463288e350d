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
	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/model"
)

// Default est_bytes charged against the per-tick byte budget for jobs
// that don't carry their own estimate, so a single huge job can't starve
// the tick.
const (
	defaultCriticalEstBytes = 256
	defaultMetadataEstBytes = 512
	defaultContentEstBytes  = 64 << 10
)

// estimable is satisfied by every job type the admission budget drains
// against; it is unexported because only this package's three queues need
// it.
type estimable interface {
	estBytes() int64
}

// CriticalJob is a delete/rename/attribute-change event: admitted
// unconditionally up to CriticalPerTick, regardless of idle/load state.
type CriticalJob struct {
	Event model.FileEvent

	// Done, if non-nil, is called by the handler once the event's index
	// commit is durable, letting the submitter order cursor persistence
	// after the commit so the on-disk cursor never advances past
	// unindexed changes.
	Done func()
}

func (j CriticalJob) estBytes() int64 { return defaultCriticalEstBytes }

// MetadataJob is one bulk MFT record or USN metadata delta.
type MetadataJob struct {
	Event    model.FileEvent
	EstBytes int64

	// Done has the same contract as CriticalJob.Done.
	Done func()
}

func (j MetadataJob) estBytes() int64 {
	if j.EstBytes > 0 {
		return j.EstBytes
	}
	return defaultMetadataEstBytes
}

// ContentJob is one extraction job derived from a Created/Renamed event,
// destined for a worker batch manifest.
type ContentJob struct {
	DocKey   docid.DocKey
	Path     string
	EstBytes int64
}

func (j ContentJob) estBytes() int64 {
	if j.EstBytes > 0 {
		return j.EstBytes
	}
	return defaultContentEstBytes
}

// Handlers wires admitted batches to the rest of the indexing core: a
// per-event commit for critical jobs, a batched metadata commit, and a
// batched worker dispatch for content jobs (already sub-batched to
// ContentBatchSize). Any handler may be nil, in which case that batch's
// jobs are admitted and discarded (useful in tests that only exercise
// admission logic).
type Handlers struct {
	Critical func(CriticalJob) error
	Metadata func([]MetadataJob) error
	Content  func([]ContentJob) error
}
