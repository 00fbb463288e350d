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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/index"
	"github.com/shaneholloman/ultrasearch/internal/query"
)

func writeManifest(t *testing.T, dir string, jobs []Job) string {
	t.Helper()
	data, err := EncodeManifest(jobs)
	require.NoError(t, err)
	path := filepath.Join(dir, "batch-test.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunBatchCommitsExtractedTextToContentIndex(t *testing.T) {
	dir := t.TempDir()
	contentDir := filepath.Join(dir, "content")

	file := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(file, []byte("annual maintenance checklist"), 0o644))

	manifest := writeManifest(t, dir, []Job{{VolumeID: 1, FileID: 10, Path: file}})
	require.NoError(t, RunBatch(context.Background(), manifest, contentDir, nil))

	idx, err := index.Open(contentDir)
	require.NoError(t, err)
	defer idx.Close()
	n, err := idx.AbsorbIntake()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	hits := idx.SearchHot(query.Term(query.FieldContent, "checklist", query.ModTerm), 10, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, docid.Pack(1, 10), hits[0].DocKey)

	got, ok := idx.Get(docid.Pack(1, 10))
	require.True(t, ok)
	assert.Equal(t, "doc.txt", got.Name)
	assert.Equal(t, "txt", got.Ext)
	assert.Equal(t, uint64(28), got.Size)
}

func TestRunBatchSkipsUnsupportedAndUnreadableEntries(t *testing.T) {
	dir := t.TempDir()
	contentDir := filepath.Join(dir, "content")

	good := filepath.Join(dir, "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("useful text"), 0o644))

	manifest := writeManifest(t, dir, []Job{
		{VolumeID: 1, FileID: 10, Path: good},
		{VolumeID: 1, FileID: 11, Path: filepath.Join(dir, "missing.txt")},
		{VolumeID: 1, FileID: 12, Path: filepath.Join(dir, "image.xyz")},
	})

	// Per-entry failures and unsupported formats are not batch failures.
	require.NoError(t, RunBatch(context.Background(), manifest, contentDir, nil))

	idx, err := index.Open(contentDir)
	require.NoError(t, err)
	defer idx.Close()
	n, err := idx.AbsorbIntake()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunBatchFailsOnUnparseableManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(manifest, []byte("nonsense"), 0o644))

	err := RunBatch(context.Background(), manifest, filepath.Join(dir, "content"), nil)
	require.Error(t, err)
}
