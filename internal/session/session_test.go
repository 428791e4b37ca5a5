package session

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/framefill/config"
	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/logging"
	"github.com/grovetools/framefill/pkg/alert"
	"github.com/grovetools/framefill/pkg/document"
	"github.com/grovetools/framefill/pkg/document/memdoc"
	"github.com/grovetools/framefill/pkg/geometry"
)

type harness struct {
	sess *Session
	doc  *memdoc.Doc
	st   *store.Store
	rec  *alert.Recorder
	cfg  *config.Config
	ctx  context.Context
}

func newHarness(t *testing.T, targets int) *harness {
	t.Helper()
	frames := make([]document.Target, targets)
	for i := range frames {
		frames[i] = document.Target{ID: fmt.Sprintf("frame-%d", i+1), Bounds: geometry.NewRect(float64(i)*500, 0, 400, 300)}
	}
	h := &harness{
		doc: memdoc.New(frames...),
		st:  store.New(),
		rec: &alert.Recorder{},
		cfg: config.Default(),
		ctx: context.Background(),
	}
	sess, err := New(h.cfg, Deps{Document: h.doc, Tokens: h.doc, Notifier: h.rec, Store: h.st})
	require.NoError(t, err)
	h.sess = sess
	return h
}

func writeImages(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 30, 20))
	for _, n := range names {
		var buf bytes.Buffer
		if filepath.Ext(n) == ".jpg" {
			require.NoError(t, jpeg.Encode(&buf, img, nil))
		} else {
			require.NoError(t, png.Encode(&buf, img))
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), buf.Bytes(), 0o644))
	}
	return dir
}

func TestEndToEndPlacement(t *testing.T) {
	h := newHarness(t, 2)
	c, err := h.sess.OpenFolder(h.ctx, writeImages(t, "a.jpg", "b.png"))
	require.NoError(t, err)
	keyA, keyB := c.Resources[0].Key, c.Resources[1].Key
	assert.Equal(t, "a.jpg", c.Resources[0].Name)

	require.NoError(t, h.sess.Click(c.ID, keyA, Modifiers{}))
	require.NoError(t, h.sess.Click(c.ID, keyB, Modifiers{Range: true}))
	assert.Equal(t, []string{keyA, keyB}, h.sess.Snapshot().Selection[c.ID])

	report, err := h.sess.PlaceSelected(h.ctx)
	require.NoError(t, err)
	assert.Len(t, report.Placed, 2)
	assert.Empty(t, report.Failed)

	for _, key := range []string{keyA, keyB} {
		res, err := h.sess.Registry().Resource(c.ID, key)
		require.NoError(t, err)
		assert.True(t, res.Used, key)
	}
	assert.Empty(t, h.sess.Snapshot().Selection[c.ID])
	assert.Empty(t, h.rec.Alerts())

	state := h.st.Get()
	require.NotNil(t, state.LastReport)
	assert.Len(t, state.LastReport.Placed, 2)
	require.Len(t, state.Collections, 1)
	assert.True(t, state.Collections[0].Resources[0].Used)
}

func TestMismatchIsNotified(t *testing.T) {
	h := newHarness(t, 3)
	c, err := h.sess.OpenFolder(h.ctx, writeImages(t, "a.jpg", "b.jpg"))
	require.NoError(t, err)
	require.NoError(t, h.sess.Click(c.ID, c.Resources[0].Key, Modifiers{Toggle: true}))
	require.NoError(t, h.sess.Click(c.ID, c.Resources[1].Key, Modifiers{Toggle: true}))

	report, err := h.sess.PlaceSelected(h.ctx)
	require.NoError(t, err)
	require.NotNil(t, report.Mismatch)
	assert.True(t, report.Rejected())
	assert.Zero(t, h.doc.Mutations())

	alerts := h.rec.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "2 images selected but 3 frames selected", alerts[0].Message)
}

func TestLimitExceededIsNotified(t *testing.T) {
	h := newHarness(t, 1)
	dir := writeImages(t, "a.jpg")
	for i := 0; i < config.DefaultMaxOpen; i++ {
		_, err := h.sess.OpenFolder(h.ctx, dir)
		require.NoError(t, err)
	}
	_, err := h.sess.OpenFolder(h.ctx, dir)
	assert.True(t, errors.Is(err, errors.ErrCodeLimitExceeded))
	require.Len(t, h.rec.Alerts(), 1)
	assert.Equal(t, "Open folder", h.rec.Alerts()[0].Title)
}

func TestNothingSelected(t *testing.T) {
	h := newHarness(t, 1)
	_, err := h.sess.PlaceSelected(h.ctx)
	assert.True(t, errors.Is(err, errors.ErrCodeNothingSelected))
	assert.Len(t, h.rec.Alerts(), 1)
}

func TestClickModifiers(t *testing.T) {
	h := newHarness(t, 1)
	c, err := h.sess.OpenFolder(h.ctx, writeImages(t, "1.png", "2.png", "3.png", "4.png"))
	require.NoError(t, err)
	keys := c.Keys()
	sel := func() []string { return h.sess.Snapshot().Selection[c.ID] }

	require.NoError(t, h.sess.Click(c.ID, keys[1], Modifiers{}))
	require.NoError(t, h.sess.Click(c.ID, keys[3], Modifiers{Toggle: true}))
	assert.Equal(t, []string{keys[1], keys[3]}, sel())

	require.NoError(t, h.sess.Click(c.ID, keys[3], Modifiers{Toggle: true}))
	assert.Equal(t, []string{keys[1]}, sel())

	require.NoError(t, h.sess.Click(c.ID, keys[0], Modifiers{}))
	require.NoError(t, h.sess.Click(c.ID, keys[2], Modifiers{Range: true}))
	assert.Equal(t, keys[:3], sel())

	err = h.sess.Click(c.ID, "nope", Modifiers{})
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestStep(t *testing.T) {
	h := newHarness(t, 1)
	c, err := h.sess.OpenFolder(h.ctx, writeImages(t, "1.png", "2.png", "3.png"))
	require.NoError(t, err)
	keys := c.Keys()

	key, ok, err := h.sess.Step(c.ID, 1, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, keys[0], key, "no anchor selects the first resource")

	key, ok, _ = h.sess.Step(c.ID, 1, true)
	assert.True(t, ok)
	assert.Equal(t, keys[1], key)
	assert.Equal(t, keys[:2], h.sess.Snapshot().Selection[c.ID])

	_, ok, _ = h.sess.Step(c.ID, 5, false)
	assert.False(t, ok)
}

func TestCloseAndActivate(t *testing.T) {
	h := newHarness(t, 1)
	first, err := h.sess.OpenFolder(h.ctx, writeImages(t, "a.png"))
	require.NoError(t, err)
	second, err := h.sess.OpenFolder(h.ctx, writeImages(t, "b.png"))
	require.NoError(t, err)

	_, err = h.sess.Activate(h.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, h.st.Get().Active)

	require.NoError(t, h.sess.Close(first.ID))
	assert.Equal(t, second.ID, h.st.Get().Active)

	_, err = h.sess.Activate(h.ctx, first.ID)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestPlaceSingleAndDiagnostics(t *testing.T) {
	logging.Ring().Reset()
	h := newHarness(t, 1)
	c, err := h.sess.OpenFolder(h.ctx, writeImages(t, "a.png"))
	require.NoError(t, err)

	report, err := h.sess.PlaceSingle(h.ctx, c.ID, c.Resources[0].Key)
	require.NoError(t, err)
	require.Len(t, report.Placed, 1)

	d, err := h.sess.Diagnostics(h.ctx)
	require.NoError(t, err)
	require.Len(t, d.Targets, 1)
	require.Len(t, d.Tree, 1)
	require.Len(t, d.Tree[0].Children, 1)
	assert.Equal(t, report.Placed[0].ElementID, d.Tree[0].Children[0].ID)
	assert.Contains(t, logging.Ring().String(), "Active frame")
}

func TestRefreshActive(t *testing.T) {
	h := newHarness(t, 1)
	dir := writeImages(t, "a.png")
	c, err := h.sess.OpenFolder(h.ctx, dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), mustPNG(t), 0o644))
	got, err := h.sess.Refresh(h.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Len(t, got.Resources, 2)

	stats, err := h.sess.Stats(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
}

func mustPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}
