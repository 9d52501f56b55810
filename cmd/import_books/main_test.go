package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"lending-catalog/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportItems(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lib.json")
	mgr, err := library.NewLibraryManager(ctx, library.NewFileStore(path), "Import", nil)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	csv := strings.Join([]string{
		"key,title,author,year,kind,extra1,extra2",
		"B1,Dune,Frank Herbert,1965,standard",
		`D1,"Go, in Action",Kennedy,2015,EBook,4.5,epub`,
		"P1,World Atlas,Various,1999,physical,Map-1,Fair",
		"B1,Duplicate,Someone,2000,standard",
		"X1,Bad Year,Someone,soon,standard",
		"S1,Scroll,Someone,100,scroll",
		"T1,Too Short",
	}, "\n")

	var out bytes.Buffer
	res, err := importItems(ctx, mgr, strings.NewReader(csv), &out)
	require.NoError(t, err)
	assert.Equal(t, 3, res.imported)
	assert.Equal(t, 4, res.failed)
	assert.Contains(t, out.String(), "line 5: ERROR")

	cat := mgr.Catalog()
	d1, ok := cat.Item("D1")
	require.True(t, ok)
	assert.Equal(t, "Go, in Action", d1.Title)
	assert.Equal(t, library.ItemDigital, d1.Kind)
	assert.Equal(t, "EPUB", d1.Digital.Format)

	p1, ok := cat.Item("P1")
	require.True(t, ok)
	assert.Equal(t, "Map-1", p1.Physical.ShelfLocation)
	assert.Equal(t, "Fair", p1.Physical.Condition)

	// Everything imported was persisted.
	back, err := library.Load(ctx, library.NewFileStore(path), "x")
	require.NoError(t, err)
	assert.Len(t, back.Items(), 3)
}

func TestImportSavesOneSnapshot(t *testing.T) {
	ctx := context.Background()
	store, err := library.NewSQLiteStore(filepath.Join(t.TempDir(), "lib.db"), 3)
	require.NoError(t, err)
	mgr, err := library.NewLibraryManager(ctx, store, "Import", nil)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	require.NoError(t, mgr.AddItem(ctx, library.NewItem("B0", "Emma", "Jane Austen", 1815)))

	var rows []string
	for i := 1; i <= 6; i++ {
		rows = append(rows, fmt.Sprintf("B%d,Title %d,Author,2000,standard", i, i))
	}
	res, err := importItems(ctx, mgr, strings.NewReader(strings.Join(rows, "\n")), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 6, res.imported)

	snaps, err := store.Snapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 2, "the pre-import snapshot survives")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "Harry P...", truncateString("Harry Potter and the Deathly Hallows", 10))
	assert.Equal(t, "Стр...", truncateString("Странник", 6))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}
