package pathcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/ultrasearch/internal/docid"
)

type fakeTree map[docid.DocKey]struct {
	name   string
	parent docid.DocKey
	hasP   bool
}

func (tr fakeTree) fetch(key docid.DocKey) (string, docid.DocKey, bool, bool) {
	n, ok := tr[key]
	if !ok {
		return "", 0, false, false
	}
	return n.name, n.parent, n.hasP, true
}

func TestResolveJoinsParentChain(t *testing.T) {
	root := docid.Pack(1, 1)
	mid := docid.Pack(1, 2)
	leaf := docid.Pack(1, 3)

	tree := fakeTree{
		root: {name: "C:"},
		mid:  {name: "Users", parent: root, hasP: true},
		leaf: {name: "file.txt", parent: mid, hasP: true},
	}

	c := New(10)
	res := c.Resolve(leaf, tree.fetch)
	require.False(t, res.Truncated)
	assert.Equal(t, `C:\Users\file.txt`, res.Path)
}

func TestResolveCachesSecondLookup(t *testing.T) {
	root := docid.Pack(1, 1)
	leaf := docid.Pack(1, 2)
	tree := fakeTree{
		root: {name: "C:"},
		leaf: {name: "file.txt", parent: root, hasP: true},
	}

	c := New(10)
	calls := 0
	counting := func(key docid.DocKey) (string, docid.DocKey, bool, bool) {
		calls++
		return tree.fetch(key)
	}

	r1 := c.Resolve(leaf, counting)
	r2 := c.Resolve(leaf, counting)
	assert.Equal(t, r1.Path, r2.Path)
	assert.Equal(t, 2, calls) // only the first Resolve call walks the chain
}

func TestResolveTruncatesOnMissingParent(t *testing.T) {
	leaf := docid.Pack(1, 2)
	tree := fakeTree{
		leaf: {name: "file.txt", parent: docid.Pack(1, 99), hasP: true},
	}

	c := New(10)
	res := c.Resolve(leaf, tree.fetch)
	assert.True(t, res.Truncated)
	assert.Equal(t, "file.txt", res.Path)
}

func TestResolveTruncatesOnCycle(t *testing.T) {
	a := docid.Pack(1, 1)
	b := docid.Pack(1, 2)
	tree := fakeTree{
		a: {name: "a", parent: b, hasP: true},
		b: {name: "b", parent: a, hasP: true},
	}

	c := New(10)
	res := c.Resolve(a, tree.fetch)
	assert.True(t, res.Truncated)
}

func TestInvalidateEvictsDependentPaths(t *testing.T) {
	root := docid.Pack(1, 1)
	leaf := docid.Pack(1, 2)
	tree := fakeTree{
		root: {name: "C:"},
		leaf: {name: "file.txt", parent: root, hasP: true},
	}

	c := New(10)
	c.Resolve(leaf, tree.fetch)
	require.Equal(t, 1, c.Len())

	c.Invalidate(root)
	assert.Equal(t, 0, c.Len())
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	tree := fakeTree{}
	for i := uint64(1); i <= 3; i++ {
		tree[docid.Pack(1, i)] = struct {
			name   string
			parent docid.DocKey
			hasP   bool
		}{name: "f"}
	}

	c := New(2)
	c.Resolve(docid.Pack(1, 1), tree.fetch)
	c.Resolve(docid.Pack(1, 2), tree.fetch)
	c.Resolve(docid.Pack(1, 3), tree.fetch)

	assert.Equal(t, 2, c.Len())
}
