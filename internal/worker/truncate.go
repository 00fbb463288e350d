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

package worker

import "unicode/utf8"

// truncateBytesUTF8 cuts data to at most maxBytes, backing off byte-by-byte
// if the cut point lands in the middle of a multi-byte rune so the result
// always ends on a valid UTF-8 boundary.
func truncateBytesUTF8(data []byte, maxBytes uint64) ([]byte, bool) {
	if uint64(len(data)) <= maxBytes {
		return data, false
	}
	cut := int(maxBytes)
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return data[:cut], true
}

// truncateCharsUTF8 cuts s to at most maxChars runes (not bytes).
func truncateCharsUTF8(s string, maxChars uint64) (string, bool) {
	if maxChars == 0 {
		return "", len(s) > 0
	}
	count := uint64(0)
	for i := range s {
		if count == maxChars {
			return s[:i], true
		}
		count++
	}
	return s, false
}
