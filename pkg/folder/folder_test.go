package folder

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/pkg/collection"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func TestListEntries(t *testing.T) {
	dir := tempDir(t)
	writeFile(t, dir, "a.jpg", "aaaa")
	writeFile(t, dir, "b_draft.png", "bb")
	writeFile(t, dir, ".hidden.png", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	f, err := Open(dir, []string{"*_draft.*"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), f.Name())
	assert.Equal(t, dir, f.Path())

	entries, err := f.ListEntries(context.Background())
	require.NoError(t, err)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	assert.Equal(t, []collection.Entry{
		{Name: "a.jpg", IsFile: true, Size: 4},
		{Name: "nested"},
	}, entries)
}

func TestReadBinary(t *testing.T) {
	dir := tempDir(t)
	writeFile(t, dir, "a.jpg", "payload")
	f, err := Open(dir, nil)
	require.NoError(t, err)

	data, err := f.ReadBinary(context.Background(), "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	for _, name := range []string{"", "..", "../a.jpg", "sub/a.jpg"} {
		_, err := f.ReadBinary(context.Background(), name)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), name)
	}

	_, err = f.ReadBinary(context.Background(), "missing.jpg")
	assert.True(t, os.IsNotExist(err))
}

func TestOpenErrors(t *testing.T) {
	dir := tempDir(t)
	writeFile(t, dir, "file.txt", "x")

	_, err := Open(filepath.Join(dir, "missing"), nil)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	_, err = Open(filepath.Join(dir, "file.txt"), nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestListCancelled(t *testing.T) {
	f, err := Open(tempDir(t), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.ListEntries(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatcherCoalescesBursts(t *testing.T) {
	dir := tempDir(t)
	var fired atomic.Int32
	w, err := NewWatcher(100*time.Millisecond, func(name string) bool {
		return filepath.Ext(name) == ".jpg"
	}, func(got string) {
		assert.Equal(t, dir, got)
		fired.Add(1)
	})
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))
	assert.Equal(t, dir, w.Dir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, dir, "1.jpg", "x")
	writeFile(t, dir, "2.jpg", "x")
	writeFile(t, dir, "3.jpg", "x")

	require.Eventually(t, func() bool { return fired.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())

	writeFile(t, dir, "notes.txt", "ignored")
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestWatcherSwitchDirectory(t *testing.T) {
	first, second := tempDir(t), tempDir(t)
	got := make(chan string, 4)
	w, err := NewWatcher(50*time.Millisecond, nil, func(dir string) { got <- dir })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, w.Watch(first))
	require.NoError(t, w.Watch(second))
	writeFile(t, first, "a.jpg", "x")
	writeFile(t, second, "b.jpg", "x")

	select {
	case dir := <-got:
		assert.Equal(t, second, dir)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	require.NoError(t, w.Watch(""))
	assert.Empty(t, w.Dir())
}
