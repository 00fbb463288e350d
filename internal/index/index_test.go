package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/query"
)

func TestUpsertReplacesPriorVersion(t *testing.T) {
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	key := docid.Pack(1, 10)
	require.NoError(t, idx.Upsert(Doc{DocKey: key, Name: "foo.txt", Modified: 1}))
	require.NoError(t, idx.Upsert(Doc{DocKey: key, Name: "foo.txt", Modified: 2}))

	hits := idx.SearchHot(query.Term(query.FieldName, "foo", query.ModPrefix), 10, 0)
	require.Len(t, hits, 1)
	got, ok := idx.Get(hits[0].DocKey)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Modified)
}

func TestSearchPrefixMatchesNamePrefix(t *testing.T) {
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Upsert(Doc{DocKey: docid.Pack(1, 10), Name: "foo.txt", Size: 10}))
	require.NoError(t, idx.Upsert(Doc{DocKey: docid.Pack(1, 11), Name: "bar.md", Size: 20}))
	require.NoError(t, idx.Upsert(Doc{DocKey: docid.Pack(1, 12), Name: "pic.png", Size: 30}))

	hits := idx.SearchHot(query.Term(query.FieldName, "foo", query.ModPrefix), 10, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, docid.Pack(1, 10), hits[0].DocKey)
}

func TestSearchRangeOnSize(t *testing.T) {
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Upsert(Doc{DocKey: docid.Pack(1, 10), Name: "a", Size: 500}))
	require.NoError(t, idx.Upsert(Doc{DocKey: docid.Pack(1, 11), Name: "b", Size: 5}))

	hits := idx.SearchHot(query.RangeExpr(query.FieldSize, query.OpGe, 100, 0), 10, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, docid.Pack(1, 10), hits[0].DocKey)
}

func TestCompactionMovesHotDocsToCold(t *testing.T) {
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Upsert(Doc{DocKey: docid.Pack(1, 10), Name: "foo.txt", Content: "lorem ipsum"}))
	assert.Equal(t, 1, idx.HotLen())
	assert.Equal(t, 0, idx.ColdLen())

	require.NoError(t, idx.Compact())
	assert.Equal(t, 0, idx.HotLen())
	assert.Equal(t, 1, idx.ColdLen())

	hits := idx.SearchCold(query.Term(query.FieldContent, "lorem", query.ModTerm), 10, 0)
	assert.Len(t, hits, 1)
}

func TestReopenReplaysColdTierFromDisk(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(Doc{DocKey: docid.Pack(1, 10), Name: "foo.txt", Content: "needle haystack"}))
	require.NoError(t, idx.Compact())
	require.NoError(t, idx.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 1, reopened.ColdLen())
	hits := reopened.SearchCold(query.Term(query.FieldContent, "needle", query.ModTerm), 10, 0)
	assert.Len(t, hits, 1)
}

func TestOpenRecoversFromCorruptSegmentFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, segmentFileName), []byte("{not json\n"), 0o644))

	idx, err := Open(dir)
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, 0, idx.ColdLen())

	matches, err := filepath.Glob(dir + ".broken.*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	for _, m := range matches {
		t.Cleanup(func() { os.RemoveAll(m) })
	}
}

func TestDeleteRemovesFromBothTiers(t *testing.T) {
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	key := docid.Pack(1, 10)
	require.NoError(t, idx.Upsert(Doc{DocKey: key, Name: "foo.txt"}))
	require.NoError(t, idx.Compact())
	require.NoError(t, idx.Delete(key))

	_, ok := idx.Get(key)
	assert.False(t, ok)
}
