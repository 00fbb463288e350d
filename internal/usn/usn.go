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

// Package usn implements the USN Tailer: incremental
// journal reads that turn raw USN reason codes into the FileEvent variants
// the rest of the indexing core consumes, with gap detection against a
// persisted cursor.
package usn

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/model"
)

// ErrGapDetected is returned when the journal's own JournalId no longer
// matches the cursor, or the cursor's LastUSN predates the journal's first
// available record: the caller must fall back to a full MFT rescan.
var ErrGapDetected = errors.New("usn: journal gap detected, rescan required")

// reader is implemented per-platform: reader_windows.go drives
// FSCTL_READ_USN_JOURNAL against a real volume handle; reader_other.go
// installs a reader that returns no records, which tests replace through
// SetReaderForTest with a fake that replays a canned raw-record sequence.
var reader func(ctx context.Context, vol Volume, cursor model.JournalCursor) ([]rawUsnRecord, model.JournalCursor, error)

// Volume identifies the volume being tailed.
type Volume struct {
	Id   uint16
	Path string
}

// rawUsnRecord is the decoded-but-not-yet-collapsed form of one
// USN_RECORD_V2: a single (FRN, reason, timestamp) transition.
type rawUsnRecord struct {
	usn        uint64
	frn        uint64
	parentFRN  uint64
	reason     uint32
	attributes uint32
	name       string
	isDir      bool
}

// USN reason bits (the subset this package names; collapse consults all
// but reasonClose).
const (
	reasonDataOverwrite  = 0x00000001
	reasonDataExtend     = 0x00000002
	reasonDataTruncation = 0x00000004
	reasonFileCreate     = 0x00000100
	reasonFileDelete     = 0x00000200
	reasonRenameOldName  = 0x00001000
	reasonRenameNewName  = 0x00002000
	reasonBasicInfo      = 0x00008000
	reasonClose          = 0x80000000
)

// TailResult is the outcome of one Tail call.
type TailResult struct {
	Events []model.FileEvent
	Cursor model.JournalCursor
}

// Tail reads everything newly appended to vol's USN journal since cursor,
// collapses per-FRN transitions (a file touched by several USN
// records within one tail call folds to the event the net transition
// implies), and returns the new cursor position. If the journal has wrapped
// or been recreated since cursor was captured, Tail returns ErrGapDetected
// and the caller must fall back to a full MFT rescan for vol.
func Tail(ctx context.Context, vol Volume, cursor model.JournalCursor) (TailResult, error) {
	raws, newCursor, err := reader(ctx, vol, cursor)
	if err != nil {
		return TailResult{}, err
	}

	events := collapse(vol.Id, raws)
	return TailResult{Events: events, Cursor: newCursor}, nil
}

// collapse folds a sequence of raw per-record transitions into one
// FileEvent per FRN, following the net effect of everything observed: a
// create-then-delete within one batch collapses away entirely (never
// existed from the index's point of view); a rename yields one Renamed
// event whose From is the file's own key (a rename keeps the FRN) and
// whose Meta comes from the new-name record, which carries the live
// metadata.
func collapse(volumeId uint16, raws []rawUsnRecord) []model.FileEvent {
	type acc struct {
		created   bool
		deleted   bool
		renamedTo bool
		renamedOf uint64 // old FRN for a rename pair, 0 if none seen
		attrsOnly bool
		last      rawUsnRecord
	}

	order := make([]uint64, 0, len(raws))
	byFRN := make(map[uint64]*acc)

	get := func(frn uint64) *acc {
		a, ok := byFRN[frn]
		if !ok {
			a = &acc{}
			byFRN[frn] = a
			order = append(order, frn)
		}
		return a
	}

	for _, r := range raws {
		a := get(r.frn)
		a.last = r
		switch {
		case r.reason&reasonFileCreate != 0:
			a.created = true
		case r.reason&reasonFileDelete != 0:
			a.deleted = true
		case r.reason&reasonRenameNewName != 0:
			a.renamedTo = true
		case r.reason&reasonRenameOldName != 0:
			// Old-name record belongs to the pre-rename FRN bookkeeping;
			// nothing to accumulate beyond noting a rename occurred, the
			// new-name record (same FRN) carries the live state.
		case r.reason&(reasonBasicInfo|reasonDataOverwrite|reasonDataExtend|reasonDataTruncation) != 0:
			a.attrsOnly = true
		}
	}

	events := make([]model.FileEvent, 0, len(order))
	for _, frn := range order {
		a := byFRN[frn]
		key := docid.Pack(volumeId, frn)

		switch {
		case a.created && a.deleted:
			continue // net no-op within this batch
		case a.deleted:
			events = append(events, model.FileEvent{Kind: model.EventDeleted, Key: key})
		case a.created:
			events = append(events, model.FileEvent{Kind: model.EventCreated, Meta: toMeta(volumeId, a.last)})
		case a.renamedTo:
			events = append(events, model.FileEvent{
				Kind: model.EventRenamed,
				Meta: toMeta(volumeId, a.last),
				Key:  key,
				From: key,
			})
		case a.attrsOnly:
			events = append(events, model.FileEvent{Kind: model.EventAttributesChanged, Key: key})
		default:
			events = append(events, model.FileEvent{Kind: model.EventModified, Key: key})
		}
	}

	return events
}

func toMeta(volumeId uint16, r rawUsnRecord) model.FileMeta {
	parent := docid.Pack(volumeId, r.parentFRN)
	var flags model.Flags
	if r.isDir {
		flags |= model.FlagIsDir
	}
	return model.FileMeta{
		DocKey: docid.Pack(volumeId, r.frn),
		Volume: volumeId,
		Parent: &parent,
		Name:   r.name,
		Flags:  flags,
	}
}

func gapError(vol Volume, reason string) error {
	return fmt.Errorf("%w: volume %d (%s): %s", ErrGapDetected, vol.Id, vol.Path, reason)
}
