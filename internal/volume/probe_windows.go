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

package volume

import (
	"context"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

func init() {
	enumerate = enumerateWindows
}

// enumerateWindows walks FindFirstVolume/FindNextVolume, classifying each
// volume with GetDriveType and GetVolumeInformation so only fixed NTFS
// volumes survive the filter.
func enumerateWindows(ctx context.Context) ([]raw, error) {
	var results []raw

	var buf [windows.MAX_PATH]uint16
	handle, err := windows.FindFirstVolume(&buf[0], uint32(len(buf)))
	if err != nil {
		return nil, err
	}
	defer windows.FindVolumeClose(handle)

	for {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		guidPath := windows.UTF16ToString(buf[:])
		results = append(results, classifyVolume(guidPath))

		err = windows.FindNextVolume(handle, &buf[0], uint32(len(buf)))
		if err != nil {
			if err == windows.ERROR_NO_MORE_FILES {
				break
			}
			return results, err
		}
	}

	return results, nil
}

func classifyVolume(guidPath string) raw {
	r := raw{guidPath: guidPath}

	driveType := windows.GetDriveType(windows.StringToUTF16Ptr(guidPath))
	r.fixed = driveType == windows.DRIVE_FIXED

	var fsName [windows.MAX_PATH]uint16
	err := windows.GetVolumeInformation(
		windows.StringToUTF16Ptr(guidPath),
		nil, 0,
		nil, nil, nil,
		&fsName[0], uint32(len(fsName)),
	)
	if err != nil {
		r.readErr = err
		return r
	}
	r.ntfs = strings.EqualFold(windows.UTF16ToString(fsName[:]), "NTFS")

	r.driveLetters = driveLettersFor(guidPath)
	return r
}

// driveLettersFor scans the A:-Z: namespace for mount points that target
// guidPath, via QueryDosDevice-style reverse lookup.
func driveLettersFor(guidPath string) []string {
	var letters []string
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil
	}
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		letter := string(rune('A'+i)) + ":"
		target, err := targetOf(letter)
		if err == nil && strings.EqualFold(target, strings.TrimSuffix(strings.TrimPrefix(guidPath, `\\?\`), `\`)) {
			letters = append(letters, letter)
		}
	}
	return letters
}

func targetOf(drive string) (string, error) {
	var buf [1024]uint16
	d, err := syscall.UTF16PtrFromString(drive)
	if err != nil {
		return "", err
	}
	n, err := windows.QueryDosDevice(d, &buf[0], uint32(len(buf)))
	if err != nil {
		return "", err
	}
	return windows.UTF16ToString((*[1 << 16]uint16)(unsafe.Pointer(&buf[0]))[:n]), nil
}
