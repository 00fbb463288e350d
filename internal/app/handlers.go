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
	"os"
	"time"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/index"
	"github.com/shaneholloman/ultrasearch/internal/mft"
	"github.com/shaneholloman/ultrasearch/internal/model"
	"github.com/shaneholloman/ultrasearch/internal/pathcache"
	"github.com/shaneholloman/ultrasearch/internal/scheduler"
)

// handleCritical commits one delete/rename/attribute-change event.
func (s *Services) handleCritical(j scheduler.CriticalJob) error {
	err := s.applyEvent(j.Event)
	if j.Done != nil {
		j.Done()
	}
	return err
}

// handleMetadata commits one admitted batch of create/modify events.
func (s *Services) handleMetadata(batch []scheduler.MetadataJob) error {
	var firstErr error
	for _, j := range batch {
		if err := s.applyEvent(j.Event); err != nil && firstErr == nil {
			firstErr = err
		}
		if j.Done != nil {
			j.Done()
		}
	}
	return firstErr
}

// applyEvent is the single index mutation path for filesystem events. It
// runs on the scheduler's dispatch goroutines; the index's own locking
// makes concurrent calls safe.
func (s *Services) applyEvent(ev model.FileEvent) error {
	switch ev.Kind {
	case model.EventCreated:
		return s.upsertMeta(ev.Meta)

	case model.EventRenamed:
		// A rename whose doc_key has no prior metadata entry is treated
		// as a plain create — the MFT snapshot missed the creation.
		return s.upsertMeta(ev.Meta)

	case model.EventModified:
		return s.refreshMeta(ev.Key, true)

	case model.EventAttributesChanged:
		return s.refreshMeta(ev.Key, false)

	case model.EventDeleted:
		if err := s.Meta.Delete(ev.Key); err != nil {
			return err
		}
		if err := s.Content.Delete(ev.Key); err != nil {
			return err
		}
		s.Paths.Invalidate(ev.Key)
		s.mu.Lock()
		delete(s.parents, ev.Key)
		s.mu.Unlock()
		s.noteCommit()
		return nil
	}
	return nil
}

// upsertMeta publishes m to the metadata index, resolving its absolute
// path through the path cache first, and derives a content-extraction job
// for regular files — from inside the commit path, so the metadata write
// is searchable before the scheduler can admit the content job.
func (s *Services) upsertMeta(m model.FileMeta) error {
	if parent, ok := mft.ParentKey(m); ok {
		s.mu.Lock()
		s.parents[m.DocKey] = parent
		s.mu.Unlock()
	}

	// Drop any stale cached path (for this key and every descendant whose
	// chain passes through it) before resolving fresh.
	s.Paths.Invalidate(m.DocKey)

	path := m.Path
	if path == "" {
		path = s.resolvePath(m).Path
	}

	doc := index.Doc{
		DocKey:   m.DocKey,
		Volume:   m.Volume,
		Name:     m.Name,
		Path:     path,
		Ext:      m.Ext(),
		Size:     m.Size,
		Created:  m.Created.UnixNano(),
		Modified: m.Modified.UnixNano(),
		Flags:    uint64(m.Flags),
	}
	if err := s.Meta.Upsert(doc); err != nil {
		return err
	}
	s.noteCommit()

	if !m.Flags.Has(model.FlagIsDir) && path != "" {
		s.Scheduler.SubmitContent(scheduler.ContentJob{
			DocKey:   m.DocKey,
			Path:     path,
			EstBytes: int64(m.Size),
		})
	}
	return nil
}

// refreshMeta re-publishes an already-indexed doc_key after a modify or
// attribute-only change, re-reading size/timestamps from the file when the
// stored path still resolves. A key with no metadata entry is skipped: the
// next MFT seed will pick it up.
func (s *Services) refreshMeta(key docid.DocKey, deriveContent bool) error {
	stored, ok := s.Meta.Get(key)
	if !ok {
		return nil
	}

	if stored.Path != "" {
		if fi, err := os.Stat(stored.Path); err == nil {
			stored.Size = uint64(fi.Size())
			stored.Modified = fi.ModTime().UnixNano()
		}
	}

	doc := index.Doc{
		DocKey:   stored.DocKey,
		Volume:   stored.Volume,
		Name:     stored.Name,
		Path:     stored.Path,
		Ext:      stored.Ext,
		Size:     stored.Size,
		Created:  stored.Created,
		Modified: stored.Modified,
		Flags:    stored.Flags,
	}
	if err := s.Meta.Upsert(doc); err != nil {
		return err
	}
	s.noteCommit()

	if deriveContent && stored.Flags&uint64(model.FlagIsDir) == 0 && stored.Path != "" {
		s.Scheduler.SubmitContent(scheduler.ContentJob{
			DocKey:   key,
			Path:     stored.Path,
			EstBytes: int64(stored.Size),
		})
	}
	return nil
}

// resolvePath reconstructs m's absolute path by ascending the parent
// chain. The leaf's own name comes from m itself (it may not be in the
// index yet mid-commit); ancestors come from the metadata index plus the
// in-memory parent table.
func (s *Services) resolvePath(m model.FileMeta) pathcache.Result {
	miss := func(k docid.DocKey) (string, docid.DocKey, bool, bool) {
		if k == m.DocKey {
			parent, hasParent := mft.ParentKey(m)
			return m.Name, parent, hasParent, true
		}
		stored, ok := s.Meta.Get(k)
		if !ok {
			return "", 0, false, false
		}
		s.mu.Lock()
		parent, hasParent := s.parents[k]
		s.mu.Unlock()
		return stored.Name, parent, hasParent, true
	}
	return s.Paths.Resolve(m.DocKey, miss)
}

func (s *Services) noteCommit() {
	s.lastCommitNs.Store(time.Now().UnixNano())
}
