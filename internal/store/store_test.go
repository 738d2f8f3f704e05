package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "saves.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("chapter1", []byte(`{"pc":3}`)))

	slot, err := s.Get("chapter1")
	require.NoError(t, err)
	require.Equal(t, "chapter1", slot.Name)
	require.Equal(t, `{"pc":3}`, string(slot.Document))
	require.False(t, slot.UpdatedAt.IsZero())
}

func TestPutOverwritesExistingSlot(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("autosave", []byte("first")))
	require.NoError(t, s.Put("autosave", []byte("second")))

	slot, err := s.Get("autosave")
	require.NoError(t, err)
	require.Equal(t, "second", string(slot.Document))
}

func TestGetMissingSlotReturnsNoRows(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("nope")
	require.Error(t, err)
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("slot-a", []byte("a")))
	require.NoError(t, s.Put("slot-b", []byte("b")))
	require.NoError(t, s.Put("slot-a", []byte("a-updated")))

	slots, err := s.List()
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Equal(t, "slot-a", slots[0].Name)
}

func TestDeleteRemovesSlot(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("temp", []byte("x")))
	require.NoError(t, s.Delete("temp"))

	_, err := s.Get("temp")
	require.Error(t, err)
}

func TestDeleteMissingSlotIsNotAnError(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Delete("never-existed"))
}
