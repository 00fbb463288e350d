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

//go:build windows

package usn

import (
	"context"
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/shaneholloman/ultrasearch/internal/model"
)

func init() {
	reader = readWindows
}

const (
	fsctlQueryUsnJournal = 0x900f4
	fsctlReadUsnJournal  = 0x900bb
	readChunkSize        = 1 << 16
)

// usnJournalData mirrors USN_JOURNAL_DATA_V0, used to detect that the
// journal has been recreated (different JournalId) since cursor was taken.
type usnJournalData struct {
	UsnJournalID uint64
	FirstUsn     int64
	NextUsn      int64
	LowestValid  int64
	MaxUsn       int64
	MaxSize      uint64
	AllocDelta   uint64
}

type readUsnJournalData struct {
	StartUsn          int64
	ReasonMask        uint32
	ReturnOnlyOnClose uint32
	Timeout           uint64
	BytesToWaitFor    uint64
	UsnJournalID      uint64
}

func readWindows(ctx context.Context, vol Volume, cursor model.JournalCursor) ([]rawUsnRecord, model.JournalCursor, error) {
	path := vol.Path
	if len(path) > 0 && path[len(path)-1] == '\\' {
		path = path[:len(path)-1]
	}
	handle, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return nil, cursor, err
	}
	defer windows.CloseHandle(handle)

	var journal usnJournalData
	var returned uint32
	if err := windows.DeviceIoControl(handle, fsctlQueryUsnJournal, nil, 0,
		(*byte)(unsafe.Pointer(&journal)), uint32(unsafe.Sizeof(journal)), &returned, nil); err != nil {
		return nil, cursor, err
	}

	if cursor.JournalId != 0 && cursor.JournalId != journal.UsnJournalID {
		return nil, cursor, gapError(vol, "journal id changed since last cursor")
	}
	if cursor.JournalId != 0 && int64(cursor.LastUSN) < journal.LowestValid {
		return nil, cursor, gapError(vol, "cursor USN older than journal's retained window")
	}

	startUsn := int64(cursor.LastUSN)
	journalId := journal.UsnJournalID
	var all []rawUsnRecord
	buf := make([]byte, readChunkSize)

	for {
		select {
		case <-ctx.Done():
			return all, model.JournalCursor{LastUSN: uint64(startUsn), JournalId: journalId}, ctx.Err()
		default:
		}

		req := readUsnJournalData{
			StartUsn:     startUsn,
			ReasonMask:   0xFFFFFFFF,
			Timeout:      0,
			UsnJournalID: journalId,
		}
		var n uint32
		err := windows.DeviceIoControl(handle, fsctlReadUsnJournal,
			(*byte)(unsafe.Pointer(&req)), uint32(unsafe.Sizeof(req)),
			&buf[0], uint32(len(buf)), &n, nil)
		if err != nil {
			return all, model.JournalCursor{LastUSN: uint64(startUsn), JournalId: journalId}, err
		}
		if n <= 8 {
			break
		}

		nextUsn := int64(binary.LittleEndian.Uint64(buf[0:8]))
		off := 8
		records := 0
		for off < int(n) {
			recLen := binary.LittleEndian.Uint32(buf[off:])
			if recLen == 0 || off+int(recLen) > int(n) {
				break
			}
			all = append(all, parseUsnV2(buf[off:off+int(recLen)]))
			off += int(recLen)
			records++
		}

		startUsn = nextUsn
		if records == 0 || nextUsn >= journal.NextUsn {
			break
		}
	}

	return all, model.JournalCursor{LastUSN: uint64(startUsn), JournalId: journalId}, nil
}

func parseUsnV2(rec []byte) rawUsnRecord {
	if len(rec) < 60 {
		return rawUsnRecord{}
	}
	frn := binary.LittleEndian.Uint64(rec[8:16])
	parentFRN := binary.LittleEndian.Uint64(rec[16:24])
	usn := binary.LittleEndian.Uint64(rec[24:32])
	reason := binary.LittleEndian.Uint32(rec[40:44])
	attrs := binary.LittleEndian.Uint32(rec[52:56])
	nameLen := binary.LittleEndian.Uint16(rec[56:58])
	nameOff := binary.LittleEndian.Uint16(rec[58:60])

	start := int(nameOff)
	end := start + int(nameLen)
	var name string
	if end <= len(rec) {
		u := make([]uint16, nameLen/2)
		for i := range u {
			u[i] = binary.LittleEndian.Uint16(rec[start+i*2:])
		}
		name = windows.UTF16ToString(u)
	}

	const fileAttrDirectory = 0x10
	return rawUsnRecord{
		usn:        usn,
		frn:        frn,
		parentFRN:  parentFRN,
		reason:     reason,
		attributes: attrs,
		name:       name,
		isDir:      attrs&fileAttrDirectory != 0,
	}
}
