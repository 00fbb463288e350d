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

// Package model holds the shared filesystem record types that every
// indexing-core component passes between each other: FileMeta, FileEvent,
// JournalCursor, and VolumeState. It exists to keep internal/mft,
// internal/usn, internal/index, and internal/cursor free of import cycles.
package model

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/shaneholloman/ultrasearch/internal/docid"
)

// Flags are the NTFS-derived attribute bits.
type Flags uint64

const (
	FlagIsDir Flags = 1 << iota
	FlagHidden
	FlagSystem
	FlagArchive
	FlagReparse
	FlagOffline
	FlagTemporary
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// FileMeta is the identity + attribute record for one file or directory.
type FileMeta struct {
	DocKey   docid.DocKey
	Volume   uint16
	Parent   *docid.DocKey // nil for a volume root
	Name     string        // short filename component only
	Path     string        // reconstructed absolute path, if known
	Size     uint64
	Created  time.Time
	Modified time.Time
	Flags    Flags
}

// Ext derives the lowercase extension from Name. Extension is never stored
// authoritatively: it's always recomputed from the name.
func (m FileMeta) Ext() string {
	ext := filepath.Ext(m.Name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// EventKind tags the variant of a FileEvent.
type EventKind int

const (
	EventCreated EventKind = iota
	EventDeleted
	EventModified
	EventRenamed
	EventAttributesChanged
)

// FileEvent is the tagged variant USN tailing (and MFT-miss fallback)
// produces: {Created(FileMeta) | Deleted(DocKey) | Modified(DocKey) |
// Renamed{from, to} | AttributesChanged(DocKey)}.
type FileEvent struct {
	Kind EventKind

	// Created: Meta.DocKey identifies the file.
	// Renamed: From is the prior identity, Meta is the post-rename state.
	// Deleted, Modified, AttributesChanged: Key identifies the file (Meta
	// is zero).
	Meta FileMeta
	Key  docid.DocKey
	From docid.DocKey
}

// JournalCursor is the minimal USN-journal position.
type JournalCursor struct {
	LastUSN   uint64
	JournalId uint64
}

// VolumeState is the persisted per-volume cursor record.
type VolumeState struct {
	LastUSN               uint64
	JournalId             uint64
	LastMFTScanGeneration uint64
	SettingsHash          uint64
}
