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

package cfg

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// SettingsHash returns a stable hash of the user-visible indexing options
// for a volume. It intentionally only covers options that change
// what gets indexed, not how it's logged or served, so a logging- or IPC-only change
// like logging.severity never forces a re-enumeration.
func SettingsHash(c *Config) uint64 {
	digest := xxhash.New()
	fmt.Fprintf(digest, "ocr=%v;maxbytes=%d;maxchars=%d;include=%v;exclude=%v",
		c.Extraction.OCREnabled,
		c.Extraction.MaxBytes,
		c.Extraction.MaxChars,
		c.Volumes.Include,
		c.Volumes.Exclude,
	)
	return digest.Sum64()
}
