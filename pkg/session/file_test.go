package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userdeck/userdeck/pkg/config"
	"github.com/userdeck/userdeck/pkg/errors"
	"github.com/userdeck/userdeck/pkg/logger"
	"github.com/userdeck/userdeck/pkg/types"
)

func newTestSlot(t *testing.T) (*FileSlot, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "pending_deletion.json")
	slot, err := NewFileSlot(path)
	require.NoError(t, err)
	return slot, path
}

func sampleBlob() *types.PendingBlob {
	return &types.PendingBlob{
		RecordIDs: []string{"1", "3"},
		SnapshotRecords: types.RecordList{
			{ID: "1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
			{ID: "2", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"},
			{ID: "3", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"},
		},
		ExpiresAt: time.Now().Add(5 * time.Second).UnixMilli(),
		Message:   "2 users removed.",
	}
}

func TestReadEmptySlot(t *testing.T) {
	slot, _ := newTestSlot(t)

	blob, err := slot.Read()
	require.NoError(t, err)
	assert.Nil(t, blob)
}

func TestWriteReadRoundTrip(t *testing.T) {
	slot, _ := newTestSlot(t)
	blob := sampleBlob()

	require.NoError(t, slot.Write(blob))

	got, err := slot.Read()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, blob.RecordIDs, got.RecordIDs)
	assert.Equal(t, blob.ExpiresAt, got.ExpiresAt)
	assert.Equal(t, blob.Message, got.Message)
	assert.Len(t, got.SnapshotRecords, 3)
}

func TestWriteReplacesPriorBlob(t *testing.T) {
	slot, _ := newTestSlot(t)

	require.NoError(t, slot.Write(sampleBlob()))

	replacement := sampleBlob()
	replacement.RecordIDs = []string{"2"}
	replacement.Message = "1 user removed."
	require.NoError(t, slot.Write(replacement))

	got, err := slot.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, got.RecordIDs)
}

func TestClear(t *testing.T) {
	slot, path := newTestSlot(t)

	require.NoError(t, slot.Write(sampleBlob()))
	require.NoError(t, slot.Clear())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	blob, err := slot.Read()
	require.NoError(t, err)
	assert.Nil(t, blob)

	// Clearing an already empty slot is fine.
	assert.NoError(t, slot.Clear())
}

func TestReadCorruptBlob(t *testing.T) {
	t.Run("BadJSON", func(t *testing.T) {
		slot, path := newTestSlot(t)
		require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0644))

		_, err := slot.Read()
		require.Error(t, err)
		udErr := errors.GetUserdeckError(err)
		require.NotNil(t, udErr)
		assert.Equal(t, errors.ErrCodeSlotCorrupted, udErr.Code)
	})

	t.Run("StructurallyInvalid", func(t *testing.T) {
		slot, path := newTestSlot(t)
		require.NoError(t, os.WriteFile(path, []byte(`{"recordIds":[],"expiresAt":0}`), 0644))

		_, err := slot.Read()
		require.Error(t, err)
		udErr := errors.GetUserdeckError(err)
		require.NotNil(t, udErr)
		assert.Equal(t, errors.ErrCodeSlotCorrupted, udErr.Code)
	})
}

func TestFactorySelectsFileBackend(t *testing.T) {
	cfg := &config.SessionConfig{
		Backend: "file",
		Path:    filepath.Join(t.TempDir(), "pending_deletion.json"),
	}

	slot, err := NewSlot(cfg, logger.NewTestLogger())
	require.NoError(t, err)
	defer slot.Close()

	_, ok := slot.(*FileSlot)
	assert.True(t, ok)

	_, err = NewSlot(&config.SessionConfig{Backend: "carrier-pigeon"}, logger.NewTestLogger())
	assert.Error(t, err)
}
