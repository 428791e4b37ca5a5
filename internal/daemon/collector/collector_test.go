package collector

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/pkg/collection"
	"github.com/grovetools/framefill/pkg/document"
	"github.com/grovetools/framefill/pkg/document/memdoc"
	"github.com/grovetools/framefill/pkg/folder"
	"github.com/grovetools/framefill/pkg/geometry"
	"github.com/grovetools/framefill/pkg/selection"
)

func writePNG(t *testing.T, dir, name string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
}

func openDir(t *testing.T, reg *collection.Registry, names ...string) (collection.Collection, string) {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		writePNG(t, dir, n)
	}
	local, err := folder.Open(dir, nil)
	require.NoError(t, err)
	c, err := reg.Open(context.Background(), local)
	require.NoError(t, err)
	return c, dir
}

func TestDocumentDriftReleasesDeletedElements(t *testing.T) {
	reg := collection.NewRegistry(collection.Options{}, nil, nil)
	c, _ := openDir(t, reg, "a.jpg", "b.jpg", "c.jpg")
	keys := c.Keys()

	doc := memdoc.New(document.Target{ID: "t1", Bounds: geometry.NewRect(0, 0, 10, 10)})
	require.NoError(t, reg.MarkPlaced(c.ID, keys[0], "t1", "el-gone"))
	require.NoError(t, reg.MarkPlaced(c.ID, keys[1], "t1", ""))

	col := NewDocumentDriftCollector(reg, doc, time.Second)
	released, ok := col.Scan(context.Background())
	require.True(t, ok)
	assert.Equal(t, []selection.Entry{{CollectionID: c.ID, Key: keys[0]}}, released)

	a, _ := reg.Resource(c.ID, keys[0])
	b, _ := reg.Resource(c.ID, keys[1])
	assert.False(t, a.Used)
	assert.True(t, b.Used, "bound target still present")
	assert.Zero(t, doc.Mutations(), "drift detection only reads the document")

	doc.Remove("t1")
	released, _ = col.Scan(context.Background())
	assert.Len(t, released, 1)
}

func TestDocumentDriftRunEmitsUpdate(t *testing.T) {
	reg := collection.NewRegistry(collection.Options{}, nil, nil)
	c, _ := openDir(t, reg, "a.jpg")
	require.NoError(t, reg.MarkPlaced(c.ID, c.Keys()[0], "t1", "el-1"))

	st := store.New()
	updates := make(chan store.Update, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	col := NewDocumentDriftCollector(reg, memdoc.New(), 20*time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- col.Run(ctx, st, updates) }()

	select {
	case u := <-updates:
		assert.Equal(t, store.UpdateReleased, u.Type)
		assert.Equal(t, 1, u.Scanned)
		snap, ok := u.Payload.(store.Snapshot)
		require.True(t, ok)
		require.Len(t, snap.Collections, 1)
		assert.False(t, snap.Collections[0].Resources[0].Used)
	case <-time.After(2 * time.Second):
		t.Fatal("no update emitted")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestFolderDriftBaselineThenRefresh(t *testing.T) {
	reg := collection.NewRegistry(collection.Options{}, nil, nil)
	c, dir := openDir(t, reg, "a.jpg", "b.jpg")
	col := NewFolderDriftCollector(reg, time.Second)
	ctx := context.Background()

	assert.False(t, col.Scan(ctx), "first pass takes the baseline")
	assert.False(t, col.Scan(ctx), "unchanged folder is not reloaded")

	writePNG(t, dir, "c.jpg")
	assert.True(t, col.Scan(ctx))
	got, err := reg.Get(c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Resources, 3)
	assert.Equal(t, 3, got.LastKnownCount)

	assert.False(t, col.Scan(ctx))
}

func TestFolderDriftRebaselinesOnActivation(t *testing.T) {
	reg := collection.NewRegistry(collection.Options{}, nil, nil)
	first, firstDir := openDir(t, reg, "a.jpg")
	_, _ = openDir(t, reg, "x.jpg")
	col := NewFolderDriftCollector(reg, time.Second)
	ctx := context.Background()

	assert.False(t, col.Scan(ctx))

	writePNG(t, firstDir, "b.jpg")
	_, err := reg.Activate(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, col.Scan(ctx), "activation starts a new baseline")

	got, _ := reg.Get(first.ID)
	assert.Len(t, got.Resources, 1, "baseline does not reload")
	assert.Equal(t, 2, got.LastKnownCount)
}

func TestFolderDriftIgnoresIOErrors(t *testing.T) {
	reg := collection.NewRegistry(collection.Options{}, nil, nil)
	_, dir := openDir(t, reg, "a.jpg")
	col := NewFolderDriftCollector(reg, time.Second)
	ctx := context.Background()

	assert.False(t, col.Scan(ctx))
	require.NoError(t, os.RemoveAll(dir))
	assert.False(t, col.Scan(ctx))
}

func TestFolderDriftNoActiveCollection(t *testing.T) {
	reg := collection.NewRegistry(collection.Options{}, nil, nil)
	assert.False(t, NewFolderDriftCollector(reg, 0).Scan(context.Background()))
}
