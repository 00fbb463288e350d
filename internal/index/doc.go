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

// Package index implements the metadata and content indices: two-tier
// (hot in-memory, cold on-disk) full-text inverted indices sharing one
// schema and one upsert-via-delete-by-term writer discipline.
package index

import (
	"strings"
	"unicode"

	"github.com/shaneholloman/ultrasearch/internal/docid"
)

// Doc is the superset schema backing both the metadata and content index
// (the metadata and content schemas share every identity and
// attribute field; only Content/ContentLang are exclusive to the content
// index). A metadata-only write simply leaves Content empty.
type Doc struct {
	DocKey      docid.DocKey
	Volume      uint16
	Name        string
	Path        string
	Ext         string
	Size        uint64
	Created     int64 // unix nanoseconds
	Modified    int64
	Flags       uint64
	ContentLang string
	Content     string // tokenized at write time, never stored
}

// Stored is the subset of Doc persisted and returned to callers; Content is
// deliberately excluded ("content ... not stored").
type Stored struct {
	DocKey   docid.DocKey
	Volume   uint16
	Name     string
	Path     string
	Ext      string
	Size     uint64
	Created  int64
	Modified int64
	Flags    uint64
}

func (d Doc) stored() Stored {
	return Stored{
		DocKey: d.DocKey, Volume: d.Volume, Name: d.Name, Path: d.Path,
		Ext: d.Ext, Size: d.Size, Created: d.Created, Modified: d.Modified, Flags: d.Flags,
	}
}

// tokenize splits s on non-alphanumeric runes and lowercases each piece,
// the same coarse tokenizer used for name, path, and content fields. It is
// intentionally simple: no stemming, no stop words, matching the spirit of
// a desktop search index where exact substring recall matters more than
// linguistic sophistication.
func tokenize(s string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
