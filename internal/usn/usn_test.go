//go:build !windows

package usn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/model"
)

var testVol = Volume{Id: 1, Path: `\\?\Volume{x}\`}

func TestTailCollapsesCreateThenDeleteToNoop(t *testing.T) {
	SetReaderForTest(func(ctx context.Context, vol Volume, cursor model.JournalCursor) ([]rawUsnRecord, model.JournalCursor, error) {
		return []rawUsnRecord{
			NewFakeCreateRecord(1, 10, 1, "temp.txt", false),
			NewFakeDeleteRecord(2, 10),
		}, model.JournalCursor{LastUSN: 2, JournalId: 99}, nil
	})

	res, err := Tail(context.Background(), testVol, model.JournalCursor{})
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	assert.Equal(t, uint64(2), res.Cursor.LastUSN)
}

func TestTailEmitsCreateEvent(t *testing.T) {
	SetReaderForTest(func(ctx context.Context, vol Volume, cursor model.JournalCursor) ([]rawUsnRecord, model.JournalCursor, error) {
		return []rawUsnRecord{
			NewFakeCreateRecord(1, 20, 1, "doc.pdf", false),
		}, model.JournalCursor{LastUSN: 1, JournalId: 99}, nil
	})

	res, err := Tail(context.Background(), testVol, model.JournalCursor{})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, model.EventCreated, res.Events[0].Kind)
	assert.Equal(t, docid.Pack(1, 20), res.Events[0].Meta.DocKey)
	assert.Equal(t, "doc.pdf", res.Events[0].Meta.Name)
}

func TestTailEmitsDeleteEvent(t *testing.T) {
	SetReaderForTest(func(ctx context.Context, vol Volume, cursor model.JournalCursor) ([]rawUsnRecord, model.JournalCursor, error) {
		return []rawUsnRecord{
			NewFakeDeleteRecord(5, 30),
		}, model.JournalCursor{LastUSN: 5, JournalId: 99}, nil
	})

	res, err := Tail(context.Background(), testVol, model.JournalCursor{})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, model.EventDeleted, res.Events[0].Kind)
	assert.Equal(t, docid.Pack(1, 30), res.Events[0].Key)
}

func TestTailCollapsesRenameToSingleEvent(t *testing.T) {
	SetReaderForTest(func(ctx context.Context, vol Volume, cursor model.JournalCursor) ([]rawUsnRecord, model.JournalCursor, error) {
		return []rawUsnRecord{
			NewFakeRenameRecord(8, 40, 1, "renamed.txt"),
		}, model.JournalCursor{LastUSN: 8, JournalId: 99}, nil
	})

	res, err := Tail(context.Background(), testVol, model.JournalCursor{})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, model.EventRenamed, res.Events[0].Kind)
	assert.Equal(t, "renamed.txt", res.Events[0].Meta.Name)
}

func TestTailCollapsesAttrOnlyChange(t *testing.T) {
	SetReaderForTest(func(ctx context.Context, vol Volume, cursor model.JournalCursor) ([]rawUsnRecord, model.JournalCursor, error) {
		return []rawUsnRecord{
			NewFakeAttrRecord(9, 50),
			NewFakeAttrRecord(10, 50),
		}, model.JournalCursor{LastUSN: 10, JournalId: 99}, nil
	})

	res, err := Tail(context.Background(), testVol, model.JournalCursor{})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, model.EventAttributesChanged, res.Events[0].Kind)
}

func TestTailPropagatesGapDetected(t *testing.T) {
	SetReaderForTest(func(ctx context.Context, vol Volume, cursor model.JournalCursor) ([]rawUsnRecord, model.JournalCursor, error) {
		return nil, cursor, GapError(vol, "journal id changed since last cursor")
	})

	_, err := Tail(context.Background(), testVol, model.JournalCursor{LastUSN: 1, JournalId: 1})
	assert.ErrorIs(t, err, ErrGapDetected)
}

func TestMonotonicUSNAcrossRecords(t *testing.T) {
	records := []rawUsnRecord{
		NewFakeCreateRecord(1, 60, 1, "a.txt", false),
		NewFakeAttrRecord(2, 60),
		NewFakeAttrRecord(3, 61),
	}
	for i := 1; i < len(records); i++ {
		assert.GreaterOrEqual(t, records[i].usn, records[i-1].usn)
	}
}
