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

package mft

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/model"
)

func init() {
	enumerator = enumerateWindows
}

const (
	fsctlEnumUsnData = 0x900b3
	// chunkSize is the 64 KiB output buffer handed to each
	// FSCTL_ENUM_USN_DATA call.
	chunkSize = 1 << 16
)

// mftEnumData mirrors the MFT_ENUM_DATA_V0 kernel struct.
type mftEnumData struct {
	StartFileReferenceNumber uint64
	LowUsn                   int64
	HighUsn                  int64
}

func enumerateWindows(ctx context.Context, vol Volume) (<-chan Result, error) {
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
		return nil, &AbortError{Volume: vol, Cause: err}
	}

	out := make(chan Result)
	go func() {
		defer close(out)
		defer windows.CloseHandle(handle)

		enumIn := mftEnumData{StartFileReferenceNumber: 0, LowUsn: 0, HighUsn: (1 << 63) - 1}
		buf := make([]byte, chunkSize)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			var bytesReturned uint32
			err := windows.DeviceIoControl(
				handle, fsctlEnumUsnData,
				(*byte)(unsafe.Pointer(&enumIn)), uint32(unsafe.Sizeof(enumIn)),
				&buf[0], uint32(len(buf)),
				&bytesReturned, nil,
			)
			if err != nil {
				if err == windows.ERROR_HANDLE_EOF {
					return
				}
				select {
				case out <- Result{Err: &AbortError{Volume: vol, Cause: err}}:
				case <-ctx.Done():
				}
				return
			}
			if bytesReturned <= 8 {
				return
			}

			nextStart := binary.LittleEndian.Uint64(buf[0:8])
			off := 8
			for off < int(bytesReturned) {
				recLen := binary.LittleEndian.Uint32(buf[off:])
				if recLen == 0 || off+int(recLen) > int(bytesReturned) {
					break
				}
				meta, perr := parseUsnRecord(vol.Id, buf[off:off+int(recLen)])
				select {
				case out <- Result{Meta: meta, Err: perr}:
				case <-ctx.Done():
					return
				}
				off += int(recLen)
			}

			enumIn.StartFileReferenceNumber = nextStart
		}
	}()

	return out, nil
}

// parseUsnRecord decodes a USN_RECORD_V2 into a FileMeta. Malformed
// individual records are reported as a non-aborting error so the scan
// continues; one unparseable record never aborts the scan.
func parseUsnRecord(volumeId uint16, rec []byte) (model.FileMeta, error) {
	if len(rec) < 60 {
		return model.FileMeta{}, fmt.Errorf("mft: truncated usn record (%d bytes)", len(rec))
	}

	frn := binary.LittleEndian.Uint64(rec[8:16])
	parentFRN := binary.LittleEndian.Uint64(rec[16:24])
	timestamp := int64(binary.LittleEndian.Uint64(rec[32:40]))
	fileAttrs := binary.LittleEndian.Uint32(rec[52:56])
	nameLen := binary.LittleEndian.Uint16(rec[56:58])
	nameOff := binary.LittleEndian.Uint16(rec[58:60])

	start := int(nameOff)
	end := start + int(nameLen)
	if end > len(rec) {
		return model.FileMeta{}, fmt.Errorf("mft: name extends past record bounds")
	}
	name := windows.UTF16ToString(bytesToUTF16(rec[start:end]))

	parent := docid.Pack(volumeId, parentFRN)
	modified := filetimeToTime(timestamp)

	return model.FileMeta{
		DocKey:   docid.Pack(volumeId, frn),
		Volume:   volumeId,
		Parent:   &parent,
		Name:     name,
		Created:  modified,
		Modified: modified,
		Flags:    attrsToFlags(fileAttrs),
	}, nil
}

func bytesToUTF16(b []byte) []uint16 {
	u := make([]uint16, len(b)/2)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return u
}

func filetimeToTime(ft int64) time.Time {
	// Windows FILETIME: 100ns intervals since 1601-01-01.
	const epochDiff = 116444736000000000
	if ft == 0 {
		return time.Time{}
	}
	unixNano := (ft - epochDiff) * 100
	return time.Unix(0, unixNano).UTC()
}

func attrsToFlags(attrs uint32) model.Flags {
	const (
		fileAttrDirectory = 0x10
		fileAttrHidden    = 0x2
		fileAttrSystem    = 0x4
		fileAttrArchive   = 0x20
		fileAttrReparse   = 0x400
		fileAttrOffline   = 0x1000
		fileAttrTemporary = 0x100
	)
	var f model.Flags
	if attrs&fileAttrDirectory != 0 {
		f |= model.FlagIsDir
	}
	if attrs&fileAttrHidden != 0 {
		f |= model.FlagHidden
	}
	if attrs&fileAttrSystem != 0 {
		f |= model.FlagSystem
	}
	if attrs&fileAttrArchive != 0 {
		f |= model.FlagArchive
	}
	if attrs&fileAttrReparse != 0 {
		f |= model.FlagReparse
	}
	if attrs&fileAttrOffline != 0 {
		f |= model.FlagOffline
	}
	if attrs&fileAttrTemporary != 0 {
		f |= model.FlagTemporary
	}
	return f
}
