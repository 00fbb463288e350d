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

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shaneholloman/ultrasearch/internal/docid"
)

// plainTextExts are the extensions the built-in plain-text backend claims.
var plainTextExts = map[string]bool{
	"txt": true, "md": true, "markdown": true, "csv": true, "json": true,
	"xml": true, "yaml": true, "yml": true, "log": true, "ini": true,
	"cfg": true, "conf": true, "go": true, "py": true, "js": true, "ts": true,
	"c": true, "h": true, "cpp": true, "hpp": true, "java": true, "rs": true,
	"sh": true, "ps1": true, "bat": true, "html": true, "htm": true, "css": true,
}

// Context is what a backend consults to decide support and locate input.
type Context struct {
	Path       string
	Ext        string // lowercase, no leading dot, derived from Path
	OCREnabled bool
}

// Extractor is one extraction backend: a stable name, a support predicate,
// and the extraction itself, bounded by input-byte and output-char caps.
type Extractor interface {
	Name() string
	Supports(ctx Context) bool
	Extract(ctx Context, maxBytes, maxChars uint64) (text string, truncated bool, bytesProcessed uint64, err error)
}

// Stack is the ordered backend list a worker runs jobs through: the first
// backend whose Supports returns true wins. The core ships plain text
// first and OCR last; format-specific backends registered by the host sit
// between them, so a dedicated handler always beats the OCR fallback.
type Stack struct {
	backends   []Extractor
	ocrEnabled bool
}

// NewStack builds a stack from backends in claim order.
func NewStack(ocrEnabled bool, backends ...Extractor) *Stack {
	return &Stack{backends: backends, ocrEnabled: ocrEnabled}
}

// DefaultStack is the stack the core runs with no host-registered format
// backends: built-in plain text, then OCR (which only claims raster
// images, and only when enabled and its external binary is present).
func DefaultStack(ocrEnabled bool) *Stack {
	return NewStack(ocrEnabled, plainTextExtractor{}, newOCRExtractor())
}

// WithFormats returns a stack with format-specific backends inserted ahead
// of the final OCR fallback.
func (s *Stack) WithFormats(formats ...Extractor) *Stack {
	if len(s.backends) == 0 {
		return NewStack(s.ocrEnabled, formats...)
	}
	combined := make([]Extractor, 0, len(s.backends)+len(formats))
	combined = append(combined, s.backends[:len(s.backends)-1]...)
	combined = append(combined, formats...)
	combined = append(combined, s.backends[len(s.backends)-1])
	return NewStack(s.ocrEnabled, combined...)
}

// Extract runs job through the stack, first claiming backend wins. A job
// no backend claims comes back as Record{Unsupported: true}, not an error.
func (s *Stack) Extract(key docid.DocKey, job Job) (Record, error) {
	ctx := Context{
		Path:       job.Path,
		Ext:        strings.ToLower(strings.TrimPrefix(filepath.Ext(job.Path), ".")),
		OCREnabled: s.ocrEnabled,
	}

	for _, b := range s.backends {
		if !b.Supports(ctx) {
			continue
		}
		text, truncated, bytesProcessed, err := b.Extract(ctx, job.maxBytes(), job.maxChars())
		if err != nil {
			return Record{}, err
		}
		return Record{
			DocKey:         key,
			Text:           text,
			Truncated:      truncated,
			BytesProcessed: bytesProcessed,
		}, nil
	}
	return Record{DocKey: key, Unsupported: true}, nil
}

// plainTextExtractor reads the file as-is for known textual extensions.
type plainTextExtractor struct{}

func (plainTextExtractor) Name() string { return "plain-text" }

func (plainTextExtractor) Supports(ctx Context) bool { return plainTextExts[ctx.Ext] }

func (plainTextExtractor) Extract(ctx Context, maxBytes, maxChars uint64) (string, bool, uint64, error) {
	f, err := os.Open(ctx.Path)
	if err != nil {
		return "", false, 0, err
	}
	defer f.Close()

	limited := io.LimitReader(f, int64(maxBytes)+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "", false, 0, err
	}

	data, byteTrunc := truncateBytesUTF8(data, maxBytes)
	text, charTrunc := truncateCharsUTF8(string(data), maxChars)
	return text, byteTrunc || charTrunc, uint64(len(data)), nil
}
