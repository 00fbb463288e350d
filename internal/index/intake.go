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

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/shaneholloman/ultrasearch/internal/logger"
)

// The intake subdirectory is how an out-of-process extraction worker
// commits its batch into the content index before exit:
// the worker shares nothing with the indexer except the manifest file and
// the index directory, so it hands results over as an atomically-written
// delta file the indexer's writer absorbs on its own schedule. Each file
// uses the same segmentOp line format as the cold tier's log, with content
// already tokenized — raw text never touches disk.
const intakeDirName = "intake"

func intakeDir(dir string) string {
	return filepath.Join(dir, intakeDirName)
}

// WriteIntakeSegment atomically writes docs as one intake delta file named
// after batchID under dir's intake subdirectory. It is the only index
// write path usable from a process that does not own the index writer.
func WriteIntakeSegment(dir, batchID string, docs []Doc) error {
	if err := os.MkdirAll(intakeDir(dir), 0o755); err != nil {
		return fmt.Errorf("index: creating intake dir under %s: %w", dir, err)
	}

	var buf []byte
	for _, d := range docs {
		line, err := json.Marshal(segmentOp{
			Op:            "upsert",
			Stored:        d.stored(),
			ContentTokens: tokenize(d.Content),
		})
		if err != nil {
			return err
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	path := filepath.Join(intakeDir(dir), batchID+".jsonl")
	if err := renameio.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("index: writing intake segment %s: %w", path, err)
	}
	return nil
}

// AbsorbIntake replays every pending intake delta into the hot tier (with
// the usual delete-before-add upsert discipline) and removes the absorbed
// files. An unparseable intake file is renamed aside with a .broken suffix
// and skipped — one bad worker batch must not poison the index. Returns
// the number of documents absorbed.
func (idx *Index) AbsorbIntake() (int, error) {
	entries, err := os.ReadDir(intakeDir(idx.dir))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("index: listing intake dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	absorbed := 0
	for _, name := range names {
		path := filepath.Join(intakeDir(idx.dir), name)
		n, err := idx.absorbIntakeFile(path)
		absorbed += n
		if err != nil {
			logger.Warnf("index: intake file %s is unreadable (%v); setting it aside", path, err)
			if rerr := os.Rename(path, path+".broken"); rerr != nil {
				return absorbed, rerr
			}
			continue
		}
		if err := os.Remove(path); err != nil {
			return absorbed, err
		}
	}
	return absorbed, nil
}

func (idx *Index) absorbIntakeFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	// Parse every line before applying any, so a torn file is skipped
	// whole rather than half-applied.
	var ops []segmentOp
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var op segmentOp
		if err := json.Unmarshal(line, &op); err != nil {
			return 0, fmt.Errorf("line %d: %w", lineNo, err)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	for _, op := range ops {
		if op.Op != "upsert" {
			continue
		}
		key := op.Stored.DocKey

		idx.coldMu.Lock()
		if _, ok := idx.cold.get(key); ok {
			idx.cold.delete(key)
			if err := idx.coldLog.appendDelete(key); err != nil {
				idx.coldMu.Unlock()
				return 0, err
			}
		}
		idx.coldMu.Unlock()

		idx.hot.mu.Lock()
		idx.hot.removeLocked(key)
		idx.hot.upsertTokensLocked(op.Stored, op.ContentTokens)
		idx.hot.mu.Unlock()
	}
	return len(ops), nil
}
