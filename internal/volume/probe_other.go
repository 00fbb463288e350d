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

package volume

import "context"

// On non-Windows builds there is no MFT/USN journal to talk to; enumerate
// returns nothing by default so the rest of the module still links and
// tests can install their own fake via SetEnumeratorForTest.
func init() {
	enumerate = func(ctx context.Context) ([]raw, error) { return nil, nil }
}

// SetEnumeratorForTest installs a fake volume enumerator, used by this
// package's own tests and by higher-level component tests that need
// deterministic volume sets without a real NTFS volume.
func SetEnumeratorForTest(fn func(ctx context.Context) ([]raw, error)) {
	enumerate = fn
}

// FakeVolume builds a raw candidate for use with SetEnumeratorForTest.
func FakeVolume(guidPath string, driveLetters []string, fixed, ntfs bool) raw {
	return raw{guidPath: guidPath, driveLetters: driveLetters, fixed: fixed, ntfs: ntfs}
}

// FakeVolumeErr builds a raw candidate that fails to read, for testing the
// per-volume-skip error path.
func FakeVolumeErr(guidPath string, err error) raw {
	return raw{guidPath: guidPath, readErr: err}
}
