package cursor

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/ultrasearch/internal/model"
)

func TestLoadMissingVolumeReturnsZeroState(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	state, err := store.Load(1)
	require.NoError(t, err)
	assert.Equal(t, model.VolumeState{}, state)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	want := model.VolumeState{LastUSN: 42, JournalId: 7, LastMFTScanGeneration: 3, SettingsHash: 0xdead}
	require.NoError(t, store.Save(1, want))

	got, err := store.Load(1)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveIsAtomicAcrossRepeatedWrites(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	for i := uint64(0); i < 50; i++ {
		require.NoError(t, store.Save(1, model.VolumeState{LastUSN: i}))
		got, err := store.Load(1)
		require.NoError(t, err)
		assert.Equal(t, i, got.LastUSN)
	}
}

func TestOpenFailsWhenAlreadyLocked(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	_, err = Open(dir)
	assert.Error(t, err)
}

func TestLoadCorruptFileReturnsErrCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(2, model.VolumeState{LastUSN: 1}))
	require.NoError(t, os.WriteFile(store.path(2), []byte("{not json"), 0o644))

	_, err = store.Load(2)
	var corrupt *ErrCorrupt
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, uint16(2), corrupt.VolumeId)
}

func TestVolumeIdMapPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	m, err := NewVolumeIdMap(dir)
	require.NoError(t, err)

	require.NoError(t, m.Record(dir, `\\?\Volume{a}\`, 3))

	reloaded, err := NewVolumeIdMap(dir)
	require.NoError(t, err)
	id, ok := reloaded.IdForGUIDPath(`\\?\Volume{a}\`)
	require.True(t, ok)
	assert.Equal(t, uint16(3), id)
}
