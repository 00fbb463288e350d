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
	"time"

	"github.com/google/renameio/v2"

	"github.com/shaneholloman/ultrasearch/internal/docid"
)

const segmentFileName = "segment.jsonl"

// segmentOp is one append-only log entry for the cold tier: either an
// upsert (stored fields plus already-tokenized content — raw content text
// is never written to disk) or a tombstone delete. Delete-by-term against
// the in-memory state is implied on replay.
type segmentOp struct {
	Op            string   `json:"op"` // "upsert" | "delete"
	Stored        Stored   `json:"stored,omitempty"`
	ContentTokens []string `json:"content_tokens,omitempty"`
	Key           uint64   `json:"key,omitempty"`
}

// segmentLog is the durable, append-only writer backing one cold tier.
// Because an append-only writer cannot update a record in place, every
// logical upsert is physically a fresh append; replaying the log in order
// and applying each op via tier.upsertLocked/removeLocked reconstructs the
// same "last write wins per doc_key" result the in-memory hot tier gives
// for free (upsert semantics apply equally to both tiers).
type segmentLog struct {
	dir  string
	file *os.File
	enc  *json.Encoder
}

func segmentPath(dir string) string {
	return filepath.Join(dir, segmentFileName)
}

// openSegmentLog replays dir's segment file (if any) into a fresh tier and
// returns both the loaded state and a log appender positioned at EOF. A
// parse failure partway through the file is reported as *Corrupt so the
// caller can run the recovery rename.
func openSegmentLog(dir string) (*tier, *segmentLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("index: creating %s: %w", dir, err)
	}

	state := newTierState()
	path := segmentPath(dir)

	if f, err := os.Open(path); err == nil {
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
				f.Close()
				return nil, nil, &Corrupt{Dir: dir, Cause: fmt.Errorf("line %d: %w", lineNo, err)}
			}
			applyOp(state, op)
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return nil, nil, &Corrupt{Dir: dir, Cause: err}
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("index: opening %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("index: opening %s for append: %w", path, err)
	}

	return state, &segmentLog{dir: dir, file: file, enc: json.NewEncoder(file)}, nil
}

func applyOp(state *tier, op segmentOp) {
	state.mu.Lock()
	defer state.mu.Unlock()
	switch op.Op {
	case "upsert":
		state.removeLocked(op.Stored.DocKey)
		state.upsertTokensLocked(op.Stored, op.ContentTokens)
	case "delete":
		state.removeLocked(docid.DocKey(op.Key))
	}
}

func (s *segmentLog) appendDelete(key docid.DocKey) error {
	if err := s.enc.Encode(segmentOp{Op: "delete", Key: uint64(key)}); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *segmentLog) close() error {
	return s.file.Close()
}

// rewrite atomically replaces the segment file with exactly one upsert op
// per doc in docs — the durable counterpart of compaction: the cold
// tier's on-disk log shrinks back down to "one line per live document"
// instead of growing without bound across every upsert it has ever seen.
func (s *segmentLog) rewrite(docs []snapshotDoc) error {
	var buf []byte
	for _, sd := range docs {
		line, err := json.Marshal(segmentOp{Op: "upsert", Stored: sd.Stored, ContentTokens: sd.ContentTokens})
		if err != nil {
			return err
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	if err := s.file.Close(); err != nil {
		return err
	}
	if err := renameio.WriteFile(segmentPath(s.dir), buf, 0o644); err != nil {
		return err
	}

	file, err := os.OpenFile(segmentPath(s.dir), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	s.file = file
	s.enc = json.NewEncoder(file)
	return nil
}

// recoverCorruptDir renames dir to dir+".broken"+timestamp and recreates it
// empty, the corruption-recovery contract the indexer relies on.
func recoverCorruptDir(dir string) error {
	broken := fmt.Sprintf("%s.broken.%d", dir, time.Now().UnixNano())
	if err := os.Rename(dir, broken); err != nil {
		return fmt.Errorf("index: renaming corrupt %s: %w", dir, err)
	}
	return os.MkdirAll(dir, 0o755)
}
