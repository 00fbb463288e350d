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

// Package search implements the Search Executor: mode
// resolution, hot+cold tier fan-out across one or both indices, cross-tier
// score merge and dedup, timeout-bounded best-effort truncation, and result
// hydration from stored fields.
package search

import "github.com/shaneholloman/ultrasearch/internal/query"

// Mode selects which index (or both) a query runs against.
type Mode int

const (
	Auto Mode = iota
	NameOnly
	Content
	Hybrid
)

func (m Mode) String() string {
	switch m {
	case NameOnly:
		return "name_only"
	case Content:
		return "content"
	case Hybrid:
		return "hybrid"
	default:
		return "auto"
	}
}

// ResolveMode turns Auto into NameOnly or Hybrid based on which fields expr
// references: NameOnly if every referenced field resolves
// against the metadata index alone, Hybrid otherwise. A non-Auto mode is
// returned unchanged.
func ResolveMode(mode Mode, expr *query.Expr) Mode {
	if mode != Auto {
		return mode
	}
	for f := range query.Fields(expr) {
		if !query.MetadataFields[f] {
			return Hybrid
		}
	}
	return NameOnly
}

// HybridWeights returns the (metadata, content) score weights Hybrid mode
// applies before summing per-index scores. Metadata dominates for short,
// filename-shaped queries; content dominates once the query carries enough
// terms to plausibly be a content search. The ratio is fixed and
// documented rather than learned.
func HybridWeights(termCount int) (metaWeight, contentWeight float64) {
	if termCount <= 3 {
		return 0.6, 0.4
	}
	return 0.4, 0.6
}
