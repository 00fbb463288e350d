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
	"sync"

	"github.com/shaneholloman/ultrasearch/internal/docid"
)

// tier is the in-memory representation shared by the hot tier and the
// cold tier's loaded state. The cold tier additionally durably logs every
// write (see segment.go); this type only ever holds the current live view.
//
// Raw content text is never retained here: only its tokenized form is, in
// contentTokens. That is what lets a cold-tier reload (or a compaction,
// which moves docs from hot to cold) rebuild content postings without
// ever persisting the document body itself ("content ...
// not stored").
type tier struct {
	mu            sync.RWMutex
	docs          map[docid.DocKey]Stored
	contentTokens map[docid.DocKey][]string
	name          *postings
	path          *postings
	content       *postings
}

func newTierState() *tier {
	return &tier{
		docs:          make(map[docid.DocKey]Stored),
		contentTokens: make(map[docid.DocKey][]string),
		name:          newPostings(),
		path:          newPostings(),
		content:       newPostings(),
	}
}

// upsertLocked performs the delete-by-term-then-add idiom required by
// within one held lock, any prior version of doc.DocKey is
// fully removed from postings and stored fields before the new version is
// added, so no reader can ever observe both.
func (t *tier) upsertLocked(d Doc) {
	t.removeLocked(d.DocKey)
	t.upsertTokensLocked(d.stored(), tokenize(d.Content))
}

// upsertTokensLocked adds a doc whose content tokens are already computed
// (the path taken by segment-log replay and by compaction, neither of
// which has the raw content text available or needed). Callers must have
// already removed any prior version via removeLocked.
func (t *tier) upsertTokensLocked(s Stored, contentTokens []string) {
	t.docs[s.DocKey] = s
	t.contentTokens[s.DocKey] = contentTokens

	for _, tok := range tokenize(s.Name) {
		t.name.add(tok, s.DocKey)
	}
	for _, tok := range tokenize(s.Path) {
		t.path.add(tok, s.DocKey)
	}
	for _, tok := range contentTokens {
		t.content.add(tok, s.DocKey)
	}
}

func (t *tier) removeLocked(key docid.DocKey) {
	old, ok := t.docs[key]
	if !ok {
		return
	}
	for _, tok := range tokenize(old.Name) {
		t.name.remove(tok, key)
	}
	for _, tok := range tokenize(old.Path) {
		t.path.remove(tok, key)
	}
	for _, tok := range t.contentTokens[key] {
		t.content.remove(tok, key)
	}
	delete(t.contentTokens, key)
	delete(t.docs, key)
}

func (t *tier) upsert(d Doc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.upsertLocked(d)
}

func (t *tier) delete(key docid.DocKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(key)
}

func (t *tier) get(key docid.DocKey) (Stored, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.docs[key]
	return s, ok
}

// snapshot returns every live doc in the tier together with its content
// tokens, used by compaction to re-add hot-tier docs into cold without
// re-tokenizing raw text that was never retained.
func (t *tier) snapshot() []snapshotDoc {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]snapshotDoc, 0, len(t.docs))
	for key, s := range t.docs {
		out = append(out, snapshotDoc{Stored: s, ContentTokens: t.contentTokens[key]})
	}
	return out
}

type snapshotDoc struct {
	Stored        Stored
	ContentTokens []string
}

func (t *tier) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.docs)
}
