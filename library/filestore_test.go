package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMissingFile(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "none.json"))

	_, err := fs.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)

	c, err := Load(context.Background(), fs, "Fresh")
	require.NoError(t, err)
	assert.Equal(t, "Fresh", c.Name)
	assert.Empty(t, c.Items())
}

func TestFileStoreSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "library.json")
	fs := NewFileStore(path)
	c := seedCatalog(t)

	require.NoError(t, Save(context.Background(), fs, c))

	back, err := Load(context.Background(), fs, "ignored")
	require.NoError(t, err)
	assert.Equal(t, Serialize(c), Serialize(back))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must not be left behind")
	assert.Equal(t, "library.json", entries[0].Name())
}

func TestFileStoreOverwrite(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "library.json"))
	ctx := context.Background()

	c := newCatalog(t)
	require.NoError(t, c.AddItem(NewItem("B1", "Dune", "Frank Herbert", 1965)))
	require.NoError(t, Save(ctx, fs, c))

	require.NoError(t, c.RemoveItem("B1"))
	require.NoError(t, Save(ctx, fs, c))

	back, err := Load(ctx, fs, "x")
	require.NoError(t, err)
	assert.Empty(t, back.Items())
}

func TestFileStoreCorruptFallsBackToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	require.NoError(t, os.WriteFile(path, []byte("{ definitely not json"), 0o644))

	c, err := Load(context.Background(), NewFileStore(path), "Fallback")
	assert.ErrorIs(t, err, ErrCorruptStore)
	require.NotNil(t, c)
	assert.Equal(t, "Fallback", c.Name)
	assert.Empty(t, c.Items())
	assert.Empty(t, c.Patrons())
}

func TestFileStoreReadError(t *testing.T) {
	// A directory where the file should be cannot be read as a catalog.
	dir := t.TempDir()
	c, err := Load(context.Background(), NewFileStore(dir), "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorruptStore)
	assert.Nil(t, c)
}

func TestFileStoreCancelledContext(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "library.json"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, fs.Save(ctx, []byte("{}")), context.Canceled)
	_, err := fs.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
