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

// Package volume implements the Volume Probe: enumerating
// fixed, NTFS-formatted volumes with stable ids.
package volume

import (
	"context"
	"sort"

	"github.com/shaneholloman/ultrasearch/internal/logger"
)

// Descriptor describes one discovered volume.
type Descriptor struct {
	GUIDPath     string
	DriveLetters []string
	Id           uint16
}

// raw is what the platform-specific enumerator returns before stable ids
// are assigned.
type raw struct {
	guidPath     string
	driveLetters []string
	fixed        bool
	ntfs         bool
	readErr      error
}

// enumerate is implemented per-platform (probe_windows.go for the real
// FindFirstVolume/FindNextVolume walk, probe_other.go as a portable fake
// used in tests and non-Windows builds).
var enumerate func(ctx context.Context) ([]raw, error)

// KnownIds maps an already-seen GUID path to the id it was assigned
// previously, so re-running discovery preserves ids.
type KnownIds interface {
	IdForGUIDPath(guidPath string) (uint16, bool)
}

// Discover returns the subset of enumerated volumes that are fixed and
// NTFS-formatted, sorted deterministically by GUID path, with per-volume
// errors skipped rather than failing the whole call.
func Discover(ctx context.Context, known KnownIds) ([]Descriptor, error) {
	raws, err := enumerate(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []raw
	for _, r := range raws {
		if r.readErr != nil {
			logger.WarnOncePerKey("volume-probe:"+r.guidPath, "volume probe: skipping %s: %v", r.guidPath, r.readErr)
			continue
		}
		if !r.fixed || !r.ntfs {
			continue
		}
		candidates = append(candidates, r)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].guidPath < candidates[j].guidPath })

	nextID := uint16(1)
	used := make(map[uint16]bool)
	descs := make([]Descriptor, 0, len(candidates))

	// First pass: honor ids already known, reserving them.
	assigned := make(map[string]uint16, len(candidates))
	if known != nil {
		for _, r := range candidates {
			if id, ok := known.IdForGUIDPath(r.guidPath); ok {
				assigned[r.guidPath] = id
				used[id] = true
			}
		}
	}

	for _, r := range candidates {
		id, ok := assigned[r.guidPath]
		if !ok {
			for used[nextID] {
				nextID++
			}
			id = nextID
			used[id] = true
		}
		descs = append(descs, Descriptor{
			GUIDPath:     r.guidPath,
			DriveLetters: r.driveLetters,
			Id:           id,
		})
	}

	return descs, nil
}
