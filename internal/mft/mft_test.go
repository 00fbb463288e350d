//go:build !windows

package mft

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/model"
)

func fakeChannel(results ...Result) chan Result {
	ch := make(chan Result, len(results))
	for _, r := range results {
		ch <- r
	}
	close(ch)
	return ch
}

func TestEnumerateStreamsAllRecords(t *testing.T) {
	vol := Volume{Id: 1, Path: `\\?\Volume{x}\`}
	key1 := docid.Pack(1, 10)
	key2 := docid.Pack(1, 11)

	SetEnumeratorForTest(func(ctx context.Context, v Volume) (<-chan Result, error) {
		require.Equal(t, vol, v)
		return fakeChannel(
			Result{Meta: model.FileMeta{DocKey: key1, Name: "a.txt"}},
			Result{Meta: model.FileMeta{DocKey: key2, Name: "b.txt"}},
		), nil
	})

	ch, err := Enumerate(context.Background(), vol)
	require.NoError(t, err)

	var got []model.FileMeta
	for r := range ch {
		require.NoError(t, r.Err)
		got = append(got, r.Meta)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "a.txt", got[0].Name)
	assert.Equal(t, "b.txt", got[1].Name)
}

func TestEnumerateReportsRecordLevelErrorWithoutStopping(t *testing.T) {
	vol := Volume{Id: 2, Path: `\\?\Volume{y}\`}

	SetEnumeratorForTest(func(ctx context.Context, v Volume) (<-chan Result, error) {
		return fakeChannel(
			Result{Err: errors.New("corrupt record")},
			Result{Meta: model.FileMeta{DocKey: docid.Pack(2, 5), Name: "ok.txt"}},
		), nil
	})

	ch, err := Enumerate(context.Background(), vol)
	require.NoError(t, err)

	var errs int
	var oks int
	for r := range ch {
		if r.Err != nil {
			errs++
			continue
		}
		oks++
	}
	assert.Equal(t, 1, errs)
	assert.Equal(t, 1, oks)
}

func TestEnumerateAbortErrorUnwraps(t *testing.T) {
	cause := errors.New("device removed")
	vol := Volume{Id: 3, Path: `\\?\Volume{z}\`}
	abortErr := &AbortError{Volume: vol, Cause: cause}

	assert.ErrorIs(t, abortErr, cause)
	assert.Contains(t, abortErr.Error(), vol.Path)
}

func TestParentKey(t *testing.T) {
	parent := docid.Pack(1, 2)
	withParent := model.FileMeta{Parent: &parent}
	root := model.FileMeta{}

	id, ok := ParentKey(withParent)
	require.True(t, ok)
	assert.Equal(t, parent, id)

	_, ok = ParentKey(root)
	assert.False(t, ok)
}
