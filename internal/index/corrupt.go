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

package index

import "fmt"

// Corrupt is a typed sentinel for index corruption, replacing the
// substring-matching heuristic on error text: a cold-tier segment log
// that fails to parse returns *Corrupt instead of a bare error, so callers
// can errors.As it rather than inspect an error string.
type Corrupt struct {
	Dir   string
	Cause error
}

func (e *Corrupt) Error() string {
	return fmt.Sprintf("index: %s is corrupt: %v", e.Dir, e.Cause)
}

func (e *Corrupt) Unwrap() error { return e.Cause }
