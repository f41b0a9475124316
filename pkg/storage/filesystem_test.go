package storage

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("SCH-1001/result_sheet.pdf", []byte("pdf-bytes"))
	require.NoError(t, err)
	require.Equal(t, "SCH-1001/result_sheet.pdf", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "pdf-bytes", string(data))
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.pdf", []byte("x"))
	require.ErrorIs(t, err, ErrUnsafePath)

	_, err = store.Open("/etc/passwd")
	require.ErrorIs(t, err, ErrUnsafePath)
}

func TestLocalStorageSweep(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("SCH-1001/old.csv", []byte("old"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	removed, err := store.Sweep(10 * time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = store.Open("SCH-1001/old.csv")
	require.Error(t, err)
}
