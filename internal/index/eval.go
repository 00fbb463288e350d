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
	"sort"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/query"
)

// Hit is one scored match within a single tier, before cross-tier and
// cross-index merging (that happens in the search executor).
type Hit struct {
	DocKey docid.DocKey
	Score  float32
}

// SearchHot evaluates expr against the hot tier only.
func (idx *Index) SearchHot(expr *query.Expr, limit, offset int) []Hit {
	return searchTier(idx.hot, expr, limit, offset)
}

// SearchCold evaluates expr against the cold tier only.
func (idx *Index) SearchCold(expr *query.Expr, limit, offset int) []Hit {
	idx.coldMu.RLock()
	defer idx.coldMu.RUnlock()
	return searchTier(idx.cold, expr, limit, offset)
}

func searchTier(t *tier, expr *query.Expr, limit, offset int) []Hit {
	t.mu.RLock()
	scores := evalLocked(t, expr)
	t.mu.RUnlock()

	hits := make([]Hit, 0, len(scores))
	for k, s := range scores {
		hits = append(hits, Hit{DocKey: k, Score: s})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocKey < hits[j].DocKey
	})

	if offset >= len(hits) {
		return nil
	}
	end := offset + limit
	if end > len(hits) || limit <= 0 {
		end = len(hits)
	}
	return hits[offset:end]
}

// evalLocked evaluates expr against t, which must already be read-locked
// by the caller (postings and docs are read directly, without copying).
func evalLocked(t *tier, expr *query.Expr) map[docid.DocKey]float32 {
	if expr == nil {
		return nil
	}
	switch expr.Kind {
	case query.KindTerm:
		return evalTermLocked(t, expr)
	case query.KindRange:
		return evalRangeLocked(t, expr)
	case query.KindNot:
		return evalNotLocked(t, expr)
	case query.KindAnd:
		return evalAndLocked(t, expr)
	case query.KindOr:
		return evalOrLocked(t, expr)
	}
	return nil
}

func evalTermLocked(t *tier, expr *query.Expr) map[docid.DocKey]float32 {
	var fields []*postings
	switch expr.Field {
	case query.FieldName:
		fields = []*postings{t.name}
	case query.FieldPath:
		fields = []*postings{t.path}
	case query.FieldContent:
		fields = []*postings{t.content}
	case query.FieldExt:
		return evalExtLocked(t, expr.Value)
	case "":
		fields = []*postings{t.name, t.path}
	default:
		return nil
	}

	out := make(map[docid.DocKey]float32)
	needle := tokenizeSingle(expr.Value)
	for _, p := range fields {
		var matches map[docid.DocKey]struct{}
		switch expr.Mod {
		case query.ModPrefix:
			matches = p.prefixLookup(needle)
		case query.ModFuzzy:
			matches = p.fuzzyLookup(needle, expr.MaxEditDist)
		default: // ModTerm, ModPhrase: treated as exact-token match
			matches = p.lookup(needle)
		}
		for k := range matches {
			out[k] += 1.0
		}
	}
	return out
}

// tokenizeSingle normalizes a query term the same way document text is
// tokenized, so casing/punctuation differences don't prevent a match.
func tokenizeSingle(s string) string {
	toks := tokenize(s)
	if len(toks) == 0 {
		return ""
	}
	return toks[0]
}

func evalExtLocked(t *tier, value string) map[docid.DocKey]float32 {
	out := make(map[docid.DocKey]float32)
	for k, d := range t.docs {
		if d.Ext == value {
			out[k] = 1.0
		}
	}
	return out
}

func evalRangeLocked(t *tier, expr *query.Expr) map[docid.DocKey]float32 {
	out := make(map[docid.DocKey]float32)
	for k, d := range t.docs {
		var v int64
		switch expr.RangeField {
		case query.FieldSize:
			v = int64(d.Size)
		case query.FieldModified:
			v = d.Modified
		case query.FieldCreated:
			v = d.Created
		case query.FieldFlags:
			v = int64(d.Flags)
		case query.FieldVolume:
			v = int64(d.Volume)
		default:
			continue
		}
		if rangeMatch(expr.RangeOp, v, expr.Low, expr.High) {
			out[k] = 1.0
		}
	}
	return out
}

func rangeMatch(op query.RangeOp, v, low, high int64) bool {
	switch op {
	case query.OpGt:
		return v > low
	case query.OpGe:
		return v >= low
	case query.OpLt:
		return v < low
	case query.OpLe:
		return v <= low
	case query.OpBetween:
		return v >= low && v <= high
	}
	return false
}

func evalNotLocked(t *tier, expr *query.Expr) map[docid.DocKey]float32 {
	child := evalLocked(t, expr.Child)
	out := make(map[docid.DocKey]float32)
	for k := range t.docs {
		if _, excluded := child[k]; !excluded {
			out[k] = 1.0
		}
	}
	return out
}

func evalAndLocked(t *tier, expr *query.Expr) map[docid.DocKey]float32 {
	if len(expr.Children) == 0 {
		return nil
	}
	acc := evalLocked(t, expr.Children[0])
	for _, c := range expr.Children[1:] {
		next := evalLocked(t, c)
		for k := range acc {
			if s, ok := next[k]; ok {
				acc[k] += s
			} else {
				delete(acc, k)
			}
		}
	}
	return acc
}

func evalOrLocked(t *tier, expr *query.Expr) map[docid.DocKey]float32 {
	out := make(map[docid.DocKey]float32)
	for _, c := range expr.Children {
		for k, s := range evalLocked(t, c) {
			out[k] += s
		}
	}
	return out
}
