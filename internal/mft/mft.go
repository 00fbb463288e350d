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

// Package mft implements the MFT Enumerator: a lazy,
// streaming, non-restartable walk of every live file and directory record
// on one volume, by way of FSCTL_ENUM_USN_DATA.
package mft

import (
	"context"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/model"
)

// Result is one element of the enumeration stream: either a record or a
// record-level parse error that the caller should count and skip.
type Result struct {
	Meta model.FileMeta
	Err  error
}

// Volume identifies the volume being enumerated.
type Volume struct {
	Id   uint16
	Path string // GUID path, e.g. `\\?\Volume{...}\`
}

// enumerator is implemented per-platform: enumerate_windows.go drives
// FSCTL_ENUM_USN_DATA against a real volume handle; enumerate_other.go (and
// test fakes) produce a canned record set without touching any device.
var enumerator func(ctx context.Context, vol Volume) (<-chan Result, error)

// AbortError wraps a whole-volume failure (handle open failed, device
// unplugged mid-scan) that makes continuing the enumeration meaningless.
// Record-level parse errors are reported inline via Result.Err instead and
// do not stop the stream.
type AbortError struct {
	Volume Volume
	Cause  error
}

func (e *AbortError) Error() string {
	return "mft: aborted enumeration of " + e.Volume.Path + ": " + e.Cause.Error()
}

func (e *AbortError) Unwrap() error { return e.Cause }

// Enumerate streams every live file/directory record on vol. The channel is
// closed when the walk completes, the context is cancelled, or an
// AbortError is delivered as the final Result. Callers must drain the
// channel to avoid leaking the underlying scan goroutine; this is a
// one-shot, non-restartable operation — a second call starts a fresh scan
// from the beginning of the MFT, it does not resume a prior one.
func Enumerate(ctx context.Context, vol Volume) (<-chan Result, error) {
	return enumerator(ctx, vol)
}

// ParentKey returns m.Parent dereferenced, or false if m is a volume root.
func ParentKey(m model.FileMeta) (docid.DocKey, bool) {
	if m.Parent == nil {
		return 0, false
	}
	return *m.Parent, true
}
