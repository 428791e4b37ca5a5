package collection

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/pkg/selection"
)

// fakeFolder is an in-memory Folder.
type fakeFolder struct {
	mu      sync.Mutex
	name    string
	path    string
	files   map[string][]byte
	dirs    []string
	listErr error
	reads   map[string]int
}

func newFakeFolder(path string, names ...string) *fakeFolder {
	f := &fakeFolder{name: path, path: path, files: make(map[string][]byte), reads: make(map[string]int)}
	for _, n := range names {
		f.files[n] = pngBytes(8, 4)
	}
	return f
}

func pngBytes(w, h int) []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)))
	return buf.Bytes()
}

func (f *fakeFolder) Name() string { return f.name }
func (f *fakeFolder) Path() string { return f.path }

func (f *fakeFolder) ListEntries(ctx context.Context) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Entry
	for name, data := range f.files {
		out = append(out, Entry{Name: name, IsFile: true, Size: int64(len(data))})
	}
	for _, d := range f.dirs {
		out = append(out, Entry{Name: d})
	}
	return out, nil
}

func (f *fakeFolder) ReadBinary(ctx context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[name]++
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: no such file", name)
	}
	return data, nil
}

func (f *fakeFolder) set(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = data
}

func (f *fakeFolder) remove(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, name)
}

func names(c Collection) []string {
	out := make([]string, len(c.Resources))
	for i, r := range c.Resources {
		out[i] = r.Name
	}
	return out
}

func TestOpenFiltersAndSorts(t *testing.T) {
	reg := NewRegistry(Options{}, nil, nil)
	folder := newFakeFolder("/shoot", "img10.jpg", "img2.PNG", "notes.txt", "Img1.webp", "raw.cr2")
	folder.dirs = []string{"sub.jpg"}
	folder.set("img10.jpg", []byte("corrupt"))

	c, err := reg.Open(context.Background(), folder)
	require.NoError(t, err)

	assert.Equal(t, []string{"Img1.webp", "img2.PNG", "img10.jpg"}, names(c))
	assert.Equal(t, 3, c.LastKnownCount)
	assert.Equal(t, "/shoot", c.Label)
	assert.Equal(t, c.ID, reg.ActiveID())
	assert.Equal(t, ResourceKey("/shoot", "img2.PNG"), c.Resources[1].Key)

	// Decoding sniffs content, not the extension. Undecodable files stay
	// listed without a preview.
	assert.NotNil(t, c.Resources[0].Preview)
	assert.NotNil(t, c.Resources[1].Preview)
	assert.Nil(t, c.Resources[2].Preview)
}

func TestOpenLimit(t *testing.T) {
	reg := NewRegistry(Options{MaxOpen: 5}, nil, nil)
	for i := 0; i < 5; i++ {
		_, err := reg.Open(context.Background(), newFakeFolder(fmt.Sprintf("/f%d", i), "a.jpg"))
		require.NoError(t, err)
	}

	_, err := reg.Open(context.Background(), newFakeFolder("/f5", "a.jpg"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeLimitExceeded))
	assert.Equal(t, 5, reg.Len())
}

func TestOpenListingFailure(t *testing.T) {
	reg := NewRegistry(Options{}, nil, nil)
	folder := newFakeFolder("/gone")
	folder.listErr = fmt.Errorf("permission denied")

	_, err := reg.Open(context.Background(), folder)
	assert.True(t, errors.Is(err, errors.ErrCodeIO))
	assert.Zero(t, reg.Len())
}

func TestSamePathSharesPreviews(t *testing.T) {
	reg := NewRegistry(Options{}, nil, nil)
	folder := newFakeFolder("/shared", "a.jpg", "b.png")

	_, err := reg.Open(context.Background(), folder)
	require.NoError(t, err)
	_, err = reg.Open(context.Background(), folder)
	require.NoError(t, err)

	assert.Equal(t, 1, folder.reads["a.jpg"])
	assert.Equal(t, 1, folder.reads["b.png"])
	assert.Equal(t, int64(2), reg.Cache().Loads())
}

func TestActivate(t *testing.T) {
	reg := NewRegistry(Options{}, nil, nil)
	ctx := context.Background()

	_, err := reg.Activate(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	empty := newFakeFolder("/empty")
	first, err := reg.Open(ctx, empty)
	require.NoError(t, err)
	second, err := reg.Open(ctx, newFakeFolder("/other", "x.jpg"))
	require.NoError(t, err)
	assert.Equal(t, second.ID, reg.ActiveID())

	gen := reg.Generation()
	empty.set("new.jpg", pngBytes(2, 2))
	c, err := reg.Activate(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, reg.ActiveID())
	assert.Equal(t, []string{"new.jpg"}, names(c), "empty collection reloads on activation")
	assert.Greater(t, reg.Generation(), gen)
}

func TestCloseMovesActive(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(Options{}, nil, nil)
	a, _ := reg.Open(ctx, newFakeFolder("/a", "1.jpg"))
	b, _ := reg.Open(ctx, newFakeFolder("/b", "1.jpg"))
	c, _ := reg.Open(ctx, newFakeFolder("/c", "1.jpg"))

	reg.Selection().Toggle(b.ID, b.Resources[0].Key)

	_, err := reg.Activate(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, reg.Close(b.ID))
	assert.Equal(t, c.ID, reg.ActiveID(), "the collection that took the slot")
	assert.Zero(t, reg.Selection().Count(b.ID))

	require.NoError(t, reg.Close(c.ID))
	assert.Equal(t, a.ID, reg.ActiveID(), "falls back to the previous one")

	require.NoError(t, reg.Close(a.ID))
	assert.Empty(t, reg.ActiveID())
	_, ok := reg.Active()
	assert.False(t, ok)

	assert.True(t, errors.Is(reg.Close(a.ID), errors.ErrCodeNotFound))
}

func TestCloseInactiveKeepsActive(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(Options{}, nil, nil)
	a, _ := reg.Open(ctx, newFakeFolder("/a", "1.jpg"))
	b, _ := reg.Open(ctx, newFakeFolder("/b", "1.jpg"))

	require.NoError(t, reg.Close(a.ID))
	assert.Equal(t, b.ID, reg.ActiveID())
}

func TestRefreshPreservesUsageByKey(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(Options{}, nil, nil)
	folder := newFakeFolder("/shoot", "a.jpg", "b.jpg", "c.jpg")
	c, err := reg.Open(ctx, folder)
	require.NoError(t, err)

	keyA := ResourceKey("/shoot", "a.jpg")
	keyB := ResourceKey("/shoot", "b.jpg")
	keyC := ResourceKey("/shoot", "c.jpg")
	require.NoError(t, reg.MarkPlaced(c.ID, keyB, "frame-1", "layer-9"))
	reg.Selection().Toggle(c.ID, keyA)
	reg.Selection().Toggle(c.ID, keyC)
	require.True(t, reg.Cache().Has(keyC))

	folder.remove("c.jpg")
	folder.set("0.jpg", pngBytes(3, 3))

	updated, err := reg.Refresh(ctx, c.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"0.jpg", "a.jpg", "b.jpg"}, names(updated), "used resources sort last")
	b, ok := updated.Find(keyB)
	require.True(t, ok)
	assert.True(t, b.Used)
	assert.Equal(t, "frame-1", b.TargetBinding)
	assert.Equal(t, "layer-9", b.ElementID)
	assert.Equal(t, 3, updated.LastKnownCount)

	assert.False(t, reg.Cache().Has(keyC), "vanished file invalidated")
	assert.Equal(t, []string{keyA}, reg.Selection().Selected(c.ID), "stale key pruned")
}

func TestMarkPlacedAndUnused(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(Options{}, nil, nil)
	c, _ := reg.Open(ctx, newFakeFolder("/s", "a.jpg", "b.jpg"))
	keyA := ResourceKey("/s", "a.jpg")

	require.NoError(t, reg.MarkPlaced(c.ID, keyA, "t1", "e1"))
	got, _ := reg.Get(c.ID)
	assert.Equal(t, []string{"b.jpg", "a.jpg"}, names(got))

	// The earlier value is unchanged.
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, names(c))

	require.NoError(t, reg.MarkUnused(c.ID, keyA))
	res, err := reg.Resource(c.ID, keyA)
	require.NoError(t, err)
	assert.False(t, res.Used)
	assert.Empty(t, res.ElementID)

	assert.True(t, errors.Is(reg.MarkPlaced(c.ID, "nope", "t", "e"), errors.ErrCodeNotFound))
	assert.True(t, errors.Is(reg.MarkPlaced("nope", keyA, "t", "e"), errors.ErrCodeNotFound))
}

func TestReleaseBindings(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(Options{}, nil, nil)
	c, _ := reg.Open(ctx, newFakeFolder("/s", "a.jpg", "b.jpg", "c.jpg"))
	keyA := ResourceKey("/s", "a.jpg")
	keyB := ResourceKey("/s", "b.jpg")
	keyC := ResourceKey("/s", "c.jpg")

	require.NoError(t, reg.MarkPlaced(c.ID, keyA, "frame-1", "layer-1"))
	require.NoError(t, reg.MarkPlaced(c.ID, keyB, "frame-2", "layer-2"))
	require.NoError(t, reg.MarkPlaced(c.ID, keyC, "frame-3", ""))

	present := map[string]bool{"layer-1": true, "frame-3": false}
	released := reg.ReleaseBindings(func(id string) bool { return present[id] })

	assert.ElementsMatch(t, []selection.Entry{
		{CollectionID: c.ID, Key: keyB},
		{CollectionID: c.ID, Key: keyC},
	}, released)

	a, _ := reg.Resource(c.ID, keyA)
	b, _ := reg.Resource(c.ID, keyB)
	assert.True(t, a.Used)
	assert.False(t, b.Used)
	assert.Empty(t, b.TargetBinding)

	assert.Empty(t, reg.ReleaseBindings(func(string) bool { return true }))
}

func TestAggregateFollowsRegistrationThenDisplayOrder(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(Options{}, nil, nil)
	first, _ := reg.Open(ctx, newFakeFolder("/one", "b.jpg", "a.jpg"))
	second, _ := reg.Open(ctx, newFakeFolder("/two", "z.jpg", "y.jpg"))

	sel := reg.Selection()
	sel.Toggle(second.ID, ResourceKey("/two", "z.jpg"))
	sel.Toggle(first.ID, ResourceKey("/one", "b.jpg"))
	sel.Toggle(second.ID, ResourceKey("/two", "y.jpg"))
	sel.Toggle(first.ID, ResourceKey("/one", "a.jpg"))

	want := []selection.Entry{
		{CollectionID: first.ID, Key: ResourceKey("/one", "a.jpg")},
		{CollectionID: first.ID, Key: ResourceKey("/one", "b.jpg")},
		{CollectionID: second.ID, Key: ResourceKey("/two", "y.jpg")},
		{CollectionID: second.ID, Key: ResourceKey("/two", "z.jpg")},
	}
	assert.Equal(t, want, reg.Aggregate())
	assert.Equal(t, want, reg.Aggregate())
}

func TestProbeAndStats(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(Options{}, nil, nil)
	folder := newFakeFolder("/s", "a.jpg", "b.png", "c.png")
	c, _ := reg.Open(ctx, folder)

	n, err := reg.Probe(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	folder.set("d.gif", pngBytes(1, 1))
	n, err = reg.Probe(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	reg.ObserveCount(c.ID, n)
	got, _ := reg.Get(c.ID)
	assert.Equal(t, 4, got.LastKnownCount)
	assert.Len(t, got.Resources, 3, "observing does not reload")

	require.NoError(t, reg.MarkPlaced(c.ID, ResourceKey("/s", "a.jpg"), "t", "e"))
	reg.Selection().Toggle(c.ID, ResourceKey("/s", "b.png"))
	stats, err := reg.Stats(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Used)
	assert.Equal(t, 1, stats.Selected)
	assert.Equal(t, map[string]int{"jpg": 1, "png": 2}, stats.Formats)
	assert.Positive(t, stats.Bytes)
}

func TestFilterImages(t *testing.T) {
	entries := []Entry{
		{Name: "a.JPEG", IsFile: true},
		{Name: "b.tif", IsFile: true},
		{Name: "c.psd", IsFile: true},
		{Name: "d.png"},
		{Name: "noext", IsFile: true},
	}
	got := FilterImages(entries, []string{".jpeg", "TIF", "png"})
	require.Len(t, got, 2)
	assert.Equal(t, "a.JPEG", got[0].Name)
	assert.Equal(t, "b.tif", got[1].Name)
}
