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

//go:build !windows

package usn

import (
	"context"

	"github.com/shaneholloman/ultrasearch/internal/model"
)

func init() {
	reader = func(ctx context.Context, vol Volume, cursor model.JournalCursor) ([]rawUsnRecord, model.JournalCursor, error) {
		return nil, cursor, nil
	}
}

// fakeReader lets tests script an exact raw-record sequence and resulting
// cursor/error, standing in for a real FSCTL_READ_USN_JOURNAL call.
type fakeReader struct {
	records []rawUsnRecord
	cursor  model.JournalCursor
	err     error
}

// SetReaderForTest installs a fake journal reader.
func SetReaderForTest(fn func(ctx context.Context, vol Volume, cursor model.JournalCursor) ([]rawUsnRecord, model.JournalCursor, error)) {
	reader = fn
}

// NewFakeCreateRecord builds a raw creation record for use in tests.
func NewFakeCreateRecord(usn, frn, parentFRN uint64, name string, isDir bool) rawUsnRecord {
	return rawUsnRecord{usn: usn, frn: frn, parentFRN: parentFRN, reason: reasonFileCreate, name: name, isDir: isDir}
}

// NewFakeDeleteRecord builds a raw deletion record for use in tests.
func NewFakeDeleteRecord(usn, frn uint64) rawUsnRecord {
	return rawUsnRecord{usn: usn, frn: frn, reason: reasonFileDelete}
}

// NewFakeRenameRecord builds the new-name half of a rename pair.
func NewFakeRenameRecord(usn, frn, parentFRN uint64, name string) rawUsnRecord {
	return rawUsnRecord{usn: usn, frn: frn, parentFRN: parentFRN, reason: reasonRenameNewName, name: name}
}

// NewFakeAttrRecord builds a metadata-only change record.
func NewFakeAttrRecord(usn, frn uint64) rawUsnRecord {
	return rawUsnRecord{usn: usn, frn: frn, reason: reasonBasicInfo}
}

// GapError exposes gapError for tests asserting on the wrapped sentinel.
func GapError(vol Volume, reason string) error { return gapError(vol, reason) }
