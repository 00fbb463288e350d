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

// Package worker implements the extraction worker contract: the
// scheduler spawns one OS process per batch, handing it a JSON
// manifest of jobs; the worker reads each job's file, extracts text under
// byte/char limits, and writes one output record per job.
package worker

import (
	"encoding/json"
	"fmt"

	"github.com/shaneholloman/ultrasearch/internal/logger"
)

const manifestVersion = 1

const (
	defaultMaxBytes uint64 = 10 * 1024 * 1024
	defaultMaxChars uint64 = 100_000
)

// Job is one file a worker must extract text from.
type Job struct {
	VolumeID uint16  `json:"volume_id"`
	FileID   uint64  `json:"file_id"`
	Path     string  `json:"path"`
	MaxBytes *uint64 `json:"max_bytes,omitempty"`
	MaxChars *uint64 `json:"max_chars,omitempty"`
}

func (j Job) maxBytes() uint64 {
	if j.MaxBytes != nil {
		return *j.MaxBytes
	}
	return defaultMaxBytes
}

func (j Job) maxChars() uint64 {
	if j.MaxChars != nil {
		return *j.MaxChars
	}
	return defaultMaxChars
}

// Manifest is the versioned batch job file handed to a worker.
type Manifest struct {
	Version int   `json:"version"`
	Jobs    []Job `json:"jobs"`
}

// EncodeManifest marshals jobs into the current versioned manifest form.
func EncodeManifest(jobs []Job) ([]byte, error) {
	return json.Marshal(Manifest{Version: manifestVersion, Jobs: jobs})
}

// DecodeManifest parses a batch job file. It accepts both the current
// {"version":1,"jobs":[...]} form and the legacy bare-array form
// ("[{...}, ...]"), still accepted for one release
// with a logged deprecation warning.
func DecodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err == nil && m.Version != 0 {
		return m, nil
	}

	var jobs []Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return Manifest{}, fmt.Errorf("worker: manifest is neither versioned nor a bare job array: %w", err)
	}
	logger.Warnf("worker: batch manifest uses the deprecated bare-array form; emit {\"version\":%d,\"jobs\":[...]} instead", manifestVersion)
	return Manifest{Version: manifestVersion, Jobs: jobs}, nil
}
