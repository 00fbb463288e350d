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

package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/index"
	"github.com/shaneholloman/ultrasearch/internal/query"
)

func openIndex(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestResolveModeAutoPicksNameOnlyForMetadataOnlyQuery(t *testing.T) {
	e := query.And(
		query.Term(query.FieldName, "report", query.ModPrefix),
		query.RangeExpr(query.FieldSize, query.OpGe, 100, 0),
	)
	assert.Equal(t, NameOnly, ResolveMode(Auto, e))
}

func TestResolveModeAutoPicksHybridWhenContentFieldReferenced(t *testing.T) {
	e := query.Term(query.FieldContent, "quarterly", query.ModTerm)
	assert.Equal(t, Hybrid, ResolveMode(Auto, e))
}

func TestResolveModeAutoPicksNameOnlyForBareTermQuery(t *testing.T) {
	// A bare (fieldless) Term collects FieldName and FieldPath only, both
	// metadata fields, so a fieldless query resolves NameOnly under Auto.
	e := query.Term("", "invoice", query.ModTerm)
	assert.Equal(t, NameOnly, ResolveMode(Auto, e))
}

func TestResolveModeLeavesExplicitModeUnchanged(t *testing.T) {
	e := query.Term(query.FieldName, "x", query.ModTerm)
	assert.Equal(t, Content, ResolveMode(Content, e))
	assert.Equal(t, Hybrid, ResolveMode(Hybrid, e))
}

func TestHybridWeightsFavorsMetadataForShortQueries(t *testing.T) {
	meta, content := HybridWeights(1)
	assert.Equal(t, 0.6, meta)
	assert.Equal(t, 0.4, content)

	meta, content = HybridWeights(3)
	assert.Equal(t, 0.6, meta)
	assert.Equal(t, 0.4, content)
}

func TestHybridWeightsFavorsContentForLongQueries(t *testing.T) {
	meta, content := HybridWeights(4)
	assert.Equal(t, 0.4, meta)
	assert.Equal(t, 0.6, content)
}

func TestSearchNameOnlyHydratesStoredFields(t *testing.T) {
	meta := openIndex(t)
	require.NoError(t, meta.Upsert(index.Doc{DocKey: docid.Pack(1, 10), Name: "invoice.pdf", Path: `C:\docs\invoice.pdf`, Ext: ".pdf", Size: 2048}))
	require.NoError(t, meta.Upsert(index.Doc{DocKey: docid.Pack(1, 11), Name: "photo.png", Path: `C:\pics\photo.png`, Ext: ".png", Size: 4096}))

	ex := &Executor{Meta: meta}
	res, err := ex.Search(context.Background(), Request{
		Expr:  query.Term(query.FieldName, "invoice", query.ModPrefix),
		Mode:  NameOnly,
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "invoice.pdf", res.Hits[0].Name)
	assert.Equal(t, uint64(2048), res.Hits[0].Size)
	assert.False(t, res.Truncated)
}

func TestSearchDedupesAcrossHotAndColdTiers(t *testing.T) {
	meta := openIndex(t)
	key := docid.Pack(1, 20)
	require.NoError(t, meta.Upsert(index.Doc{DocKey: key, Name: "report.docx", Size: 10}))
	require.NoError(t, meta.Compact())
	// Re-upsert after compaction: now live in hot, tombstoned in cold, but
	// both tiers must still only surface one hit for key.
	require.NoError(t, meta.Upsert(index.Doc{DocKey: key, Name: "report.docx", Size: 20}))

	ex := &Executor{Meta: meta}
	res, err := ex.Search(context.Background(), Request{
		Expr:  query.Term(query.FieldName, "report", query.ModPrefix),
		Mode:  NameOnly,
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, uint64(20), res.Hits[0].Size)
}

func TestSearchHybridMergesAndWeightsBothIndices(t *testing.T) {
	meta := openIndex(t)
	content := openIndex(t)

	onlyInMeta := docid.Pack(1, 1)
	onlyInContent := docid.Pack(1, 2)
	inBoth := docid.Pack(1, 3)

	require.NoError(t, meta.Upsert(index.Doc{DocKey: onlyInMeta, Name: "budget.xlsx"}))
	require.NoError(t, meta.Upsert(index.Doc{DocKey: inBoth, Name: "budget-notes.txt"}))
	require.NoError(t, content.Upsert(index.Doc{DocKey: onlyInContent, Name: "scan.txt", Content: "budget overrun discussion"}))
	require.NoError(t, content.Upsert(index.Doc{DocKey: inBoth, Name: "budget-notes.txt", Content: "budget overrun discussion"}))

	ex := &Executor{Meta: meta, Content: content}
	res, err := ex.Search(context.Background(), Request{
		Expr: query.Or(
			query.Term(query.FieldName, "budget", query.ModPrefix),
			query.Term(query.FieldContent, "budget", query.ModTerm),
		),
		Mode:  Hybrid,
		Limit: 10,
	})
	require.NoError(t, err)

	keys := map[docid.DocKey]bool{}
	for _, h := range res.Hits {
		keys[h.DocKey] = true
	}
	assert.True(t, keys[onlyInMeta])
	assert.True(t, keys[onlyInContent])
	assert.True(t, keys[inBoth])
	assert.Len(t, res.Hits, 3, "doc_key present in both indices must appear once, not twice")
}

func TestSearchOffsetAndLimitPaginate(t *testing.T) {
	meta := openIndex(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, meta.Upsert(index.Doc{DocKey: docid.Pack(1, uint64(i)), Name: "file", Size: uint64(i)}))
	}
	ex := &Executor{Meta: meta}

	first, err := ex.Search(context.Background(), Request{
		Expr: query.Term(query.FieldName, "file", query.ModPrefix), Mode: NameOnly, Limit: 2, Offset: 0,
	})
	require.NoError(t, err)
	require.Len(t, first.Hits, 2)

	second, err := ex.Search(context.Background(), Request{
		Expr: query.Term(query.FieldName, "file", query.ModPrefix), Mode: NameOnly, Limit: 2, Offset: 2,
	})
	require.NoError(t, err)
	require.Len(t, second.Hits, 2)

	for _, a := range first.Hits {
		for _, b := range second.Hits {
			assert.NotEqual(t, a.DocKey, b.DocKey, "paginated pages must not overlap")
		}
	}
}

func TestSearchRejectsNilExpr(t *testing.T) {
	ex := &Executor{Meta: openIndex(t)}
	_, err := ex.Search(context.Background(), Request{Mode: NameOnly, Limit: 10})
	assert.ErrorIs(t, err, ErrNilQuery)
}

func TestSearchTimeoutReturnsTruncatedNotError(t *testing.T) {
	ex := &Executor{Meta: openIndex(t)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already-expired context: the select in Search must hit ctx.Done() immediately.

	res, err := ex.Search(ctx, Request{
		Expr:  query.Term(query.FieldName, "x", query.ModTerm),
		Mode:  NameOnly,
		Limit: 10,
	})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
}

func TestCountTermsCountsLeavesNotFields(t *testing.T) {
	e := query.And(
		query.Term(query.FieldContent, "alpha", query.ModTerm),
		query.Or(query.Term(query.FieldContent, "beta", query.ModTerm), query.Term(query.FieldContent, "gamma", query.ModTerm)),
	)
	assert.Equal(t, 3, countTerms(e))
}
