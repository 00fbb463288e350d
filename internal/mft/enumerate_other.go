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

package mft

import "context"

func init() {
	enumerator = func(ctx context.Context, vol Volume) (<-chan Result, error) {
		out := make(chan Result)
		close(out)
		return out, nil
	}
}

// SetEnumeratorForTest installs a fake volume walk, used by this package's
// own tests and by higher-level components that need a deterministic MFT
// without a real NTFS volume.
func SetEnumeratorForTest(fn func(ctx context.Context, vol Volume) (<-chan Result, error)) {
	enumerator = fn
}
