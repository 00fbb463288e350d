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
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/shaneholloman/ultrasearch/internal/docid"
)

// shardCount buckets the term vocabulary across independent maps so an
// exact-term lookup (the common case for name/ext filters) never has to
// scan the whole vocabulary to find its shard.
const shardCount = 16

// postings maps a term to the set of doc keys containing it, sharded by
// cespare/xxhash/v2 of the term — the same hashing library the rest of the
// stack uses for settings and term fingerprints.
type postings struct {
	shards [shardCount]map[string]map[docid.DocKey]struct{}
}

func newPostings() *postings {
	p := &postings{}
	for i := range p.shards {
		p.shards[i] = make(map[string]map[docid.DocKey]struct{})
	}
	return p
}

func shardFor(term string) int {
	return int(xxhash.Sum64String(term) % shardCount)
}

func (p *postings) add(term string, key docid.DocKey) {
	shard := p.shards[shardFor(term)]
	set, ok := shard[term]
	if !ok {
		set = make(map[docid.DocKey]struct{})
		shard[term] = set
	}
	set[key] = struct{}{}
}

func (p *postings) remove(term string, key docid.DocKey) {
	shard := p.shards[shardFor(term)]
	set, ok := shard[term]
	if !ok {
		return
	}
	delete(set, key)
	if len(set) == 0 {
		delete(shard, term)
	}
}

// lookup returns doc keys for an exact term match.
func (p *postings) lookup(term string) map[docid.DocKey]struct{} {
	return p.shards[shardFor(term)][term]
}

// prefixLookup returns the union of doc keys for every term sharing prefix.
func (p *postings) prefixLookup(prefix string) map[docid.DocKey]struct{} {
	out := make(map[docid.DocKey]struct{})
	for _, shard := range p.shards {
		for term, set := range shard {
			if strings.HasPrefix(term, prefix) {
				for k := range set {
					out[k] = struct{}{}
				}
			}
		}
	}
	return out
}

// fuzzyLookup returns the union of doc keys for every term within
// maxEdits of query, via a straightforward Levenshtein distance — the
// vocabulary sizes this index deals with (per-machine filenames and
// document text) don't warrant a BK-tree or n-gram index.
func (p *postings) fuzzyLookup(query string, maxEdits int) map[docid.DocKey]struct{} {
	out := make(map[docid.DocKey]struct{})
	for _, shard := range p.shards {
		for term, set := range shard {
			if levenshtein(query, term) <= maxEdits {
				for k := range set {
					out[k] = struct{}{}
				}
			}
		}
	}
	return out
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
