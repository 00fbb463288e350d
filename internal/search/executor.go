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
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/index"
	"github.com/shaneholloman/ultrasearch/internal/query"
)

const defaultLimit = 50

// ErrNilQuery is returned when Search is called without a query expression.
var ErrNilQuery = errors.New("search: nil query expression")

// Request is one search call's full set of inputs.
type Request struct {
	Expr    *query.Expr
	Mode    Mode
	Limit   int
	Offset  int
	Timeout time.Duration
}

// ResultHit is one hydrated, scored match.
type ResultHit struct {
	DocKey   docid.DocKey
	Score    float64
	Name     string
	Path     string
	Ext      string
	Size     uint64
	Created  int64
	Modified int64
}

// Result is the executor's output: the hydrated, truncated hit list plus
// whether a timeout cut the search short.
type Result struct {
	Hits      []ResultHit
	Truncated bool
}

// Executor runs planned queries against the metadata and content indices
// and merges the results. Meta and Content may be the same
// *index.Index in tests that only exercise one tier, but in production
// they are the two indices opened at startup.
type Executor struct {
	Meta    *index.Index
	Content *index.Index
}

// Search resolves mode, fans the query out to whichever index (or both)
// the resolved mode selects, merges and dedupes by doc_key, truncates to
// limit/offset, and hydrates stored fields for the surviving hits.
func (ex *Executor) Search(ctx context.Context, req Request) (Result, error) {
	if req.Expr == nil {
		return Result{}, ErrNilQuery
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	mode := ResolveMode(req.Mode, req.Expr)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	fanout := limit + req.Offset
	needMeta := mode == NameOnly || mode == Hybrid
	needContent := mode == Content || mode == Hybrid

	type indexResult struct {
		which string
		hits  []index.Hit
	}

	var wg sync.WaitGroup
	resultsCh := make(chan indexResult, 2)
	if needMeta && ex.Meta != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resultsCh <- indexResult{"meta", mergeHotCold(ex.Meta, req.Expr, fanout)}
		}()
	}
	if needContent && ex.Content != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resultsCh <- indexResult{"content", mergeHotCold(ex.Content, req.Expr, fanout)}
		}()
	}
	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	var metaHits, contentHits []index.Hit
	truncated := false
drain:
	for {
		// Check ctx first, non-blocking: an already-expired context must
		// win deterministically rather than racing the channel receive
		// below in select's pseudo-random case choice.
		select {
		case <-ctx.Done():
			truncated = true
			break drain
		default:
		}
		select {
		case r, ok := <-resultsCh:
			if !ok {
				break drain
			}
			if r.which == "meta" {
				metaHits = r.hits
			} else {
				contentHits = r.hits
			}
		case <-ctx.Done():
			truncated = true
			break drain
		}
	}

	var merged []index.Hit
	switch mode {
	case NameOnly:
		merged = metaHits
	case Content:
		merged = contentHits
	default: // Hybrid
		metaWeight, contentWeight := HybridWeights(countTerms(req.Expr))
		merged = mergeWeighted(metaHits, metaWeight, contentHits, contentWeight)
	}

	page := paginate(merged, req.Offset, limit)

	hits := make([]ResultHit, 0, len(page))
	for _, h := range page {
		stored, ok := ex.hydrate(mode, h.DocKey)
		if !ok {
			continue
		}
		hits = append(hits, ResultHit{
			DocKey:   stored.DocKey,
			Score:    float64(h.Score),
			Name:     stored.Name,
			Path:     stored.Path,
			Ext:      stored.Ext,
			Size:     stored.Size,
			Created:  stored.Created,
			Modified: stored.Modified,
		})
	}

	return Result{Hits: hits, Truncated: truncated}, nil
}

// hydrate fetches stored fields for key, preferring the metadata index
// (which carries the canonical copy) and falling back to the content
// index for Content-mode results.
func (ex *Executor) hydrate(mode Mode, key docid.DocKey) (index.Stored, bool) {
	if ex.Meta != nil {
		if s, ok := ex.Meta.Get(key); ok {
			return s, true
		}
	}
	if ex.Content != nil {
		if s, ok := ex.Content.Get(key); ok {
			return s, true
		}
	}
	return index.Stored{}, false
}

// mergeHotCold runs expr against both tiers of idx, keeping the
// higher-scored hit for any doc_key present in both, and returns the top n
// by score.
func mergeHotCold(idx *index.Index, expr *query.Expr, n int) []index.Hit {
	hot := idx.SearchHot(expr, n, 0)
	cold := idx.SearchCold(expr, n, 0)

	byKey := make(map[docid.DocKey]float32, len(hot)+len(cold))
	for _, h := range hot {
		byKey[h.DocKey] = h.Score
	}
	for _, h := range cold {
		if cur, ok := byKey[h.DocKey]; !ok || h.Score > cur {
			byKey[h.DocKey] = h.Score
		}
	}

	out := make([]index.Hit, 0, len(byKey))
	for k, s := range byKey {
		out = append(out, index.Hit{DocKey: k, Score: s})
	}
	sortHits(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// mergeWeighted combines two already-sorted hit sets by doc_key, summing
// weighted scores for hybrid mode.
func mergeWeighted(meta []index.Hit, metaWeight float64, content []index.Hit, contentWeight float64) []index.Hit {
	scores := make(map[docid.DocKey]float64, len(meta)+len(content))
	for _, h := range meta {
		scores[h.DocKey] += float64(h.Score) * metaWeight
	}
	for _, h := range content {
		scores[h.DocKey] += float64(h.Score) * contentWeight
	}
	out := make([]index.Hit, 0, len(scores))
	for k, s := range scores {
		out = append(out, index.Hit{DocKey: k, Score: float32(s)})
	}
	sortHits(out)
	return out
}

func sortHits(hits []index.Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocKey < hits[j].DocKey
	})
}

// paginate applies offset/limit to an already score-sorted hit list.
func paginate(hits []index.Hit, offset, limit int) []index.Hit {
	if offset >= len(hits) {
		return nil
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}

// countTerms counts the Term leaves in expr, used to pick the hybrid
// weighting ratio: a query built from more terms reads
// more like prose than a filename, so content is weighted more heavily.
func countTerms(e *query.Expr) int {
	if e == nil {
		return 0
	}
	switch e.Kind {
	case query.KindTerm:
		return 1
	case query.KindNot:
		return countTerms(e.Child)
	case query.KindAnd, query.KindOr:
		n := 0
		for _, c := range e.Children {
			n += countTerms(c)
		}
		return n
	default:
		return 0
	}
}
