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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/index"
	"github.com/shaneholloman/ultrasearch/internal/logger"
)

// RunBatch is the entire life of one extraction worker process: decode the
// batch manifest, extract text from each job under its byte/char caps, and
// commit the batch's records to the content index (as an intake delta the
// indexer absorbs) before returning. A per-entry failure — unreadable
// file, extractor error — is logged and skipped; only a failure to parse
// the manifest or to commit the results makes the whole batch (and thus
// the process exit status) a failure, matching the worker exit-code
// contract.
func RunBatch(ctx context.Context, manifestPath, contentIndexDir string, stack *Stack) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("worker: reading manifest %s: %w", manifestPath, err)
	}
	manifest, err := DecodeManifest(data)
	if err != nil {
		return err
	}
	if stack == nil {
		stack = DefaultStack(false)
	}

	var docs []index.Doc
	for _, job := range manifest.Jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rec, err := stack.Extract(docid.Pack(job.VolumeID, job.FileID), job)
		if err != nil {
			logger.Warnf("worker: extracting %s: %v", job.Path, err)
			continue
		}
		if rec.Unsupported {
			// Not a failure: no extractor claims this format.
			continue
		}
		docs = append(docs, recordDoc(job, rec))
	}

	batchID := strings.TrimSuffix(filepath.Base(manifestPath), filepath.Ext(manifestPath))
	if err := index.WriteIntakeSegment(contentIndexDir, batchID, docs); err != nil {
		return err
	}
	return nil
}

// recordDoc shapes one extraction record into the content index's schema:
// the identity and attribute fields the content index copies from metadata
// are re-derived from the file itself so
// the worker never needs read access to the metadata index.
func recordDoc(job Job, rec Record) index.Doc {
	name := filepath.Base(job.Path)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))

	var size uint64
	var modified int64
	if fi, err := os.Stat(job.Path); err == nil {
		size = uint64(fi.Size())
		modified = fi.ModTime().UnixNano()
	}

	return index.Doc{
		DocKey:      rec.DocKey,
		Volume:      job.VolumeID,
		Name:        name,
		Path:        job.Path,
		Ext:         ext,
		Size:        size,
		Modified:    modified,
		ContentLang: rec.ContentLang,
		Content:     rec.Text,
	}
}
