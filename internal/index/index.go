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

package index

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/logger"
)

// Index is one two-tier (hot in-memory, cold on-disk) full-text index. The
// same type backs both the metadata index and the content index; the
// caller decides which Doc fields it populates on Upsert.
type Index struct {
	dir string

	hot *tier

	coldMu  sync.RWMutex
	cold    *tier
	coldLog *segmentLog

	sf singleflight.Group
}

// Open loads (or creates) the cold tier's on-disk state under dir and
// starts with an empty hot tier. A corrupt cold tier is recovered in place
// (renamed .broken, recreated empty); Open logs the
// recovery loudly and returns successfully with an empty index, since the
// caller is expected to schedule re-enumeration afterward.
func Open(dir string) (*Index, error) {
	cold, coldLog, err := openSegmentLog(dir)
	if err != nil {
		var corrupt *Corrupt
		if !asCorrupt(err, &corrupt) {
			return nil, err
		}
		logger.Warnf("index: %s is corrupt (%v); recovering to empty index", dir, corrupt.Cause)
		if rerr := recoverCorruptDir(dir); rerr != nil {
			return nil, rerr
		}
		cold, coldLog, err = openSegmentLog(dir)
		if err != nil {
			return nil, fmt.Errorf("index: reopening after recovery: %w", err)
		}
	}

	return &Index{
		dir:     dir,
		hot:     newTierState(),
		cold:    cold,
		coldLog: coldLog,
	}, nil
}

func asCorrupt(err error, target **Corrupt) bool {
	c, ok := err.(*Corrupt)
	if ok {
		*target = c
	}
	return ok
}

// Close releases the cold tier's segment log file handle.
func (idx *Index) Close() error {
	idx.coldMu.Lock()
	defer idx.coldMu.Unlock()
	return idx.coldLog.close()
}

// Upsert writes d to the hot tier, replacing any prior version of
// d.DocKey across both tiers (at most one tier
// holds the live version of a given doc_key between compactions — we
// enforce this more strongly by always deleting the cold-tier copy
// immediately rather than waiting for compaction, since the cold tier's
// append-only log can cheaply absorb a tombstone).
func (idx *Index) Upsert(d Doc) error {
	idx.coldMu.Lock()
	if _, ok := idx.cold.get(d.DocKey); ok {
		idx.cold.delete(d.DocKey)
		if err := idx.coldLog.appendDelete(d.DocKey); err != nil {
			idx.coldMu.Unlock()
			return fmt.Errorf("index: tombstoning cold copy of %s: %w", d.DocKey, err)
		}
	}
	idx.coldMu.Unlock()

	idx.hot.upsert(d)
	return nil
}

// Delete removes doc_key from both tiers.
func (idx *Index) Delete(key docid.DocKey) error {
	idx.hot.delete(key)

	idx.coldMu.Lock()
	defer idx.coldMu.Unlock()
	if _, ok := idx.cold.get(key); ok {
		idx.cold.delete(key)
		return idx.coldLog.appendDelete(key)
	}
	return nil
}

// Get returns the stored fields for key, checking the hot tier first.
func (idx *Index) Get(key docid.DocKey) (Stored, bool) {
	if s, ok := idx.hot.get(key); ok {
		return s, true
	}
	idx.coldMu.RLock()
	defer idx.coldMu.RUnlock()
	return idx.cold.get(key)
}

// HotLen and ColdLen report tier sizes, surfaced in StatusResponse.
func (idx *Index) HotLen() int { return idx.hot.len() }
func (idx *Index) ColdLen() int {
	idx.coldMu.RLock()
	defer idx.coldMu.RUnlock()
	return idx.cold.len()
}

// Compact reads every live doc from the hot tier, commits it to cold, then
// empties hot. Only one compaction runs at a time per
// index, enforced with golang.org/x/sync/singleflight.
func (idx *Index) Compact() error {
	_, err, _ := idx.sf.Do("compact", func() (interface{}, error) {
		return nil, idx.compactOnce()
	})
	return err
}

func (idx *Index) compactOnce() error {
	snapshot := idx.hot.snapshot()
	if len(snapshot) == 0 {
		return nil
	}

	idx.coldMu.Lock()
	for _, sd := range snapshot {
		idx.cold.mu.Lock()
		idx.cold.removeLocked(sd.Stored.DocKey)
		idx.cold.upsertTokensLocked(sd.Stored, sd.ContentTokens)
		idx.cold.mu.Unlock()
	}
	allCold := idx.cold.snapshot()
	err := idx.coldLog.rewrite(allCold)
	idx.coldMu.Unlock()
	if err != nil {
		return fmt.Errorf("index: rewriting cold segment during compaction: %w", err)
	}

	for _, sd := range snapshot {
		idx.hot.delete(sd.Stored.DocKey)
	}
	return nil
}
