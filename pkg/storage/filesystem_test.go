package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	n, err := store.SaveStream("a/b.txt", strings.NewReader("hello"), 10)
	require.NoError(t, err)
	require.EqualValues(t, 5, n)

	f, err := store.Open("a/b.txt")
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))

	require.NoError(t, store.Delete("a/b.txt"))
	_, err = store.Open("a/b.txt")
	require.Error(t, err)
}

func TestLocalStorageRejectsOversizedAndEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveStream("big.bin", strings.NewReader("0123456789"), 4)
	require.ErrorIs(t, err, ErrTooLarge)
	_, err = store.Open("big.bin")
	require.Error(t, err)

	_, err = store.SaveStream("../escape.txt", strings.NewReader("x"), 0)
	require.ErrorIs(t, err, ErrInvalidPath)
}
