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

// Package cursor implements the Cursor Store: durable,
// atomically-written per-volume USN/MFT scan positions, guarded against
// concurrent writers from a second process instance.
package cursor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"

	"github.com/shaneholloman/ultrasearch/internal/model"
)

const lockFileName = ".ultrasearch-cursor.lock"

// Store persists VolumeState records to one JSON file per volume under
// dir, using write-temp-then-rename for atomicity and a flock-based lock
// file to ensure only one process instance writes at a time.
type Store struct {
	dir  string
	lock *flock.Flock
	mu   sync.Mutex
}

// Open acquires the store's write lock and returns a Store rooted at dir.
// dir is created if it does not exist. The lock is exclusive: a second
// Open against the same dir fails at once with an error (TryLock) rather
// than blocking or silently racing the first.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cursor: creating %s: %w", dir, err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("cursor: locking %s: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("cursor: %s is already locked by another ultrasearch instance", dir)
	}

	return &Store{dir: dir, lock: lock}, nil
}

// Close releases the store's write lock.
func (s *Store) Close() error {
	return s.lock.Unlock()
}

func (s *Store) path(volumeId uint16) string {
	return filepath.Join(s.dir, fmt.Sprintf("volume-%d.json", volumeId))
}

// persisted is the on-disk envelope: VolumeState plus a version tag so a
// future format change can be detected rather than silently misread.
type persisted struct {
	Version int               `json:"version"`
	State   model.VolumeState `json:"state"`
}

const currentVersion = 1

// Load reads the persisted state for volumeId. A missing file is not an
// error: it returns the zero VolumeState, meaning "never scanned."
func (s *Store) Load(volumeId uint16) (model.VolumeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(volumeId))
	if os.IsNotExist(err) {
		return model.VolumeState{}, nil
	}
	if err != nil {
		return model.VolumeState{}, fmt.Errorf("cursor: reading volume %d: %w", volumeId, err)
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return model.VolumeState{}, &ErrCorrupt{VolumeId: volumeId, Cause: err}
	}
	return p.State, nil
}

// Save atomically overwrites the persisted state for volumeId: a reader
// racing this call always observes either the old or the new content,
// never a partial write, because renameio writes to a temp file in the
// same directory and renames it into place.
func (s *Store) Save(volumeId uint16, state model.VolumeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(persisted{Version: currentVersion, State: state})
	if err != nil {
		return fmt.Errorf("cursor: marshaling volume %d: %w", volumeId, err)
	}

	return renameio.WriteFile(s.path(volumeId), data, 0o644)
}

// ErrCorrupt reports that a cursor file exists but failed to parse. The
// caller should treat the volume as never-scanned and let the next full
// reconciliation pass rebuild it, rather than crash the whole process.
type ErrCorrupt struct {
	VolumeId uint16
	Cause    error
}

func (e *ErrCorrupt) Error() string {
	return fmt.Sprintf("cursor: volume %d state file is corrupt: %v", e.VolumeId, e.Cause)
}

func (e *ErrCorrupt) Unwrap() error { return e.Cause }

// VolumeIdMap implements volume.KnownIds by reading the GUID-path-to-id
// mapping recorded alongside cursor state. It is a thin adapter so
// Volume Probe discovery can preserve stable ids across restarts without
// importing this package's on-disk format directly.
type VolumeIdMap struct {
	mu   sync.RWMutex
	byID map[string]uint16
}

// NewVolumeIdMap loads volume id assignments from a small sidecar file,
// tolerating a missing file as "no assignments yet."
func NewVolumeIdMap(dir string) (*VolumeIdMap, error) {
	m := &VolumeIdMap{byID: make(map[string]uint16)}
	data, err := os.ReadFile(filepath.Join(dir, "volume-ids.json"))
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cursor: reading volume id map: %w", err)
	}
	if err := json.Unmarshal(data, &m.byID); err != nil {
		return nil, fmt.Errorf("cursor: parsing volume id map: %w", err)
	}
	return m, nil
}

// IdForGUIDPath implements volume.KnownIds.
func (m *VolumeIdMap) IdForGUIDPath(guidPath string) (uint16, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byID[guidPath]
	return id, ok
}

// Record assigns guidPath to id and persists the whole map atomically.
func (m *VolumeIdMap) Record(dir, guidPath string, id uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[guidPath] = id

	data, err := json.Marshal(m.byID)
	if err != nil {
		return err
	}
	return renameio.WriteFile(filepath.Join(dir, "volume-ids.json"), data, 0o644)
}
