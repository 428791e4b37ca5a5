// Package memdoc is an in-memory host document. It backs tests and the
// simulated placement mode of the CLI.
package memdoc

import (
	"context"
	"fmt"
	"sync"

	"github.com/grovetools/framefill/pkg/document"
	"github.com/grovetools/framefill/pkg/geometry"
)

// DefaultWidth and DefaultHeight size imported elements when no Sizer is set.
const (
	DefaultWidth  = 1000
	DefaultHeight = 750
)

// Call names recorded besides the placement stages.
const (
	CallExclusive = "exclusive"
	CallTargets   = "targets"
	CallElements  = "elements"
)

// Sizer returns the pixel size of the image at path.
type Sizer func(path string) (width, height float64, ok bool)

// ElementInfo is a snapshot of one imported element.
type ElementInfo struct {
	ID         string        `json:"id"`
	TargetID   string        `json:"target_id"`
	Path       string        `json:"path"`
	Bounds     geometry.Rect `json:"bounds"`
	Rasterized bool          `json:"rasterized"`
	Clipped    bool          `json:"clipped"`
}

type failure struct {
	stage   document.Stage
	subject string
	err     error
}

// Doc is safe for concurrent use. Edits are serialized by RunExclusive.
type Doc struct {
	excl sync.Mutex

	mu          sync.Mutex
	targets     map[string]geometry.Rect
	targetOrder []string
	active      []string
	elements    map[string]*ElementInfo
	elemOrder   []string
	tokens      map[string]string
	selected    string
	sizer       Sizer
	seq         int

	calls    map[string]int
	labels   []string
	failures []failure
}

var (
	_ document.Document    = (*Doc)(nil)
	_ document.TokenIssuer = (*Doc)(nil)
	_ document.Describer   = (*Doc)(nil)
)

// New creates a document holding targets, all of them selected.
func New(targets ...document.Target) *Doc {
	d := &Doc{
		targets:  make(map[string]geometry.Rect),
		elements: make(map[string]*ElementInfo),
		tokens:   make(map[string]string),
		calls:    make(map[string]int),
	}
	for _, t := range targets {
		d.addTargetLocked(t)
		d.active = append(d.active, t.ID)
	}
	return d
}

// AddTarget adds an unselected frame.
func (d *Doc) AddTarget(t document.Target) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addTargetLocked(t)
}

func (d *Doc) addTargetLocked(t document.Target) {
	if _, ok := d.targets[t.ID]; !ok {
		d.targetOrder = append(d.targetOrder, t.ID)
	}
	d.targets[t.ID] = t.Bounds
}

// SetActive replaces the frame selection. Unknown ids are ignored.
func (d *Doc) SetActive(ids ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = d.active[:0]
	for _, id := range ids {
		if _, ok := d.targets[id]; ok {
			d.active = append(d.active, id)
		}
	}
}

// SetSizer sets how imported elements are sized.
func (d *Doc) SetSizer(s Sizer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sizer = s
}

// FailOn makes stage fail with err whenever its subject matches. The subject
// is the file path for the token stage and the target id for every other
// stage; an empty subject matches every call.
func (d *Doc) FailOn(stage document.Stage, subject string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, failure{stage: stage, subject: subject, err: err})
}

// Remove deletes an element or a frame, as a user editing the document would.
func (d *Doc) Remove(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.elements[id]; ok {
		delete(d.elements, id)
		d.elemOrder = without(d.elemOrder, id)
		return true
	}
	if _, ok := d.targets[id]; ok {
		delete(d.targets, id)
		d.targetOrder = without(d.targetOrder, id)
		d.active = without(d.active, id)
		return true
	}
	return false
}

// Calls returns how often a stage or call name was invoked.
func (d *Doc) Calls(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[name]
}

// Mutations returns the number of exclusive scopes, token requests and edit
// calls made so far.
func (d *Doc) Mutations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for name, c := range d.calls {
		if name != CallTargets && name != CallElements {
			n += c
		}
	}
	return n
}

// Labels returns the labels of every exclusive scope, oldest first.
func (d *Doc) Labels() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.labels...)
}

// Element returns a snapshot of an imported element.
func (d *Doc) Element(id string) (ElementInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.elements[id]
	if !ok {
		return ElementInfo{}, false
	}
	return *e, true
}

// Elements returns every imported element in creation order.
func (d *Doc) Elements() []ElementInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ElementInfo, 0, len(d.elemOrder))
	for _, id := range d.elemOrder {
		out = append(out, *d.elements[id])
	}
	return out
}

func (d *Doc) ActiveTargets(ctx context.Context) ([]document.Target, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[CallTargets]++
	out := make([]document.Target, 0, len(d.active))
	for _, id := range d.active {
		out = append(out, document.Target{ID: id, Bounds: d.targets[id]})
	}
	return out, nil
}

func (d *Doc) ElementIDs(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[CallElements]++
	ids := make([]string, 0, len(d.targetOrder)+len(d.elemOrder))
	ids = append(ids, d.targetOrder...)
	ids = append(ids, d.elemOrder...)
	return ids, nil
}

func (d *Doc) RunExclusive(ctx context.Context, label string, fn func(ctx context.Context, s document.Scope) error) error {
	s, end := d.Begin(label)
	defer end()
	return fn(ctx, s)
}

// Begin opens an exclusive scope without a callback. The scope stays open,
// blocking other scopes, until end is called.
func (d *Doc) Begin(label string) (s document.Scope, end func()) {
	d.excl.Lock()

	d.mu.Lock()
	d.calls[CallExclusive]++
	d.labels = append(d.labels, label)
	d.selected = ""
	d.mu.Unlock()

	var once sync.Once
	return &scope{d: d}, func() { once.Do(d.excl.Unlock) }
}

func (d *Doc) CreateAccessToken(ctx context.Context, path string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.callLocked(document.StageToken, path); err != nil {
		return "", err
	}
	d.seq++
	token := fmt.Sprintf("tok-%d", d.seq)
	d.tokens[token] = path
	return token, nil
}

// Describe dumps frames with the elements clipped or imported into them.
func (d *Doc) Describe(ctx context.Context) ([]document.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	children := make(map[string][]document.Element)
	var loose []document.Element
	for _, id := range d.elemOrder {
		e := d.elements[id]
		node := document.Element{ID: e.ID, Name: e.Path, Kind: "image", Bounds: e.Bounds}
		if _, ok := d.targets[e.TargetID]; ok {
			children[e.TargetID] = append(children[e.TargetID], node)
		} else {
			loose = append(loose, node)
		}
	}

	out := make([]document.Element, 0, len(d.targetOrder)+len(loose))
	for _, id := range d.targetOrder {
		out = append(out, document.Element{ID: id, Kind: "frame", Bounds: d.targets[id], Children: children[id]})
	}
	return append(out, loose...), nil
}

// callLocked counts a call and returns an injected failure, if any.
func (d *Doc) callLocked(stage document.Stage, subject string) error {
	d.calls[string(stage)]++
	for _, f := range d.failures {
		if f.stage == stage && (f.subject == "" || f.subject == subject) {
			return f.err
		}
	}
	return nil
}

// subjectLocked maps an element id to the target it belongs to.
func (d *Doc) subjectLocked(id string) string {
	if e, ok := d.elements[id]; ok {
		return e.TargetID
	}
	return id
}

func (d *Doc) elementLocked(id string) (*ElementInfo, error) {
	e, ok := d.elements[id]
	if !ok {
		return nil, fmt.Errorf("element %s does not exist", id)
	}
	return e, nil
}

type scope struct {
	d *Doc
}

func (s *scope) SelectTarget(ctx context.Context, id string) error {
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.callLocked(document.StageSelect, id); err != nil {
		return err
	}
	if _, ok := d.targets[id]; !ok {
		return fmt.Errorf("frame %s does not exist", id)
	}
	d.selected = id
	return nil
}

func (s *scope) ImportAndEmbed(ctx context.Context, token string) (string, error) {
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.callLocked(document.StageImport, d.selected); err != nil {
		return "", err
	}
	path, ok := d.tokens[token]
	if !ok {
		return "", fmt.Errorf("unknown token %q", token)
	}
	if d.selected == "" {
		return "", fmt.Errorf("no frame selected")
	}

	w, h := float64(DefaultWidth), float64(DefaultHeight)
	if d.sizer != nil {
		if sw, sh, ok := d.sizer(path); ok {
			w, h = sw, sh
		}
	}
	d.seq++
	id := fmt.Sprintf("el-%d", d.seq)
	d.elements[id] = &ElementInfo{
		ID:       id,
		TargetID: d.selected,
		Path:     path,
		Bounds:   geometry.NewRect(0, 0, w, h),
	}
	d.elemOrder = append(d.elemOrder, id)
	return id, nil
}

func (s *scope) Bounds(ctx context.Context, id string) (geometry.Rect, error) {
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.callLocked(document.StageBounds, d.subjectLocked(id)); err != nil {
		return geometry.Rect{}, err
	}
	if e, ok := d.elements[id]; ok {
		return e.Bounds, nil
	}
	if r, ok := d.targets[id]; ok {
		return r, nil
	}
	return geometry.Rect{}, fmt.Errorf("element %s does not exist", id)
}

func (s *scope) Scale(ctx context.Context, id string, percentX, percentY float64) error {
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.callLocked(document.StageScale, d.subjectLocked(id)); err != nil {
		return err
	}
	e, err := d.elementLocked(id)
	if err != nil {
		return err
	}
	e.Bounds = geometry.Apply(e.Bounds, geometry.Transform{ScaleX: percentX / 100, ScaleY: percentY / 100})
	return nil
}

func (s *scope) Translate(ctx context.Context, id string, dx, dy float64) error {
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.callLocked(document.StageTranslate, d.subjectLocked(id)); err != nil {
		return err
	}
	e, err := d.elementLocked(id)
	if err != nil {
		return err
	}
	e.Bounds = geometry.Apply(e.Bounds, geometry.Transform{ScaleX: 1, ScaleY: 1, TranslateX: dx, TranslateY: dy})
	return nil
}

func (s *scope) Rasterize(ctx context.Context, id string) error {
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.callLocked(document.StageRasterize, d.subjectLocked(id)); err != nil {
		return err
	}
	e, err := d.elementLocked(id)
	if err != nil {
		return err
	}
	e.Rasterized = true
	return nil
}

func (s *scope) ClipToEnclosing(ctx context.Context, id string) error {
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.callLocked(document.StageClip, d.subjectLocked(id)); err != nil {
		return err
	}
	e, err := d.elementLocked(id)
	if err != nil {
		return err
	}
	if _, ok := d.targets[e.TargetID]; !ok {
		return fmt.Errorf("element %s has no enclosing frame", id)
	}
	e.Clipped = true
	return nil
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

