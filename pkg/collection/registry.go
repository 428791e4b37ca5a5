package collection

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/config"
	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/logging"
	"github.com/grovetools/framefill/pkg/cache"
	"github.com/grovetools/framefill/pkg/preview"
	"github.com/grovetools/framefill/pkg/selection"
)

// Options configures a Registry.
type Options struct {
	MaxOpen       int
	Extensions    []string
	ThumbnailSize int
}

// OptionsFromConfig maps the collections config section to Options.
func OptionsFromConfig(c config.CollectionsConfig) Options {
	return Options{
		MaxOpen:       c.MaxOpen,
		Extensions:    c.NormalizedExtensions(),
		ThumbnailSize: c.ThumbnailSize,
	}
}

func (o *Options) setDefaults() {
	if o.MaxOpen <= 0 {
		o.MaxOpen = config.DefaultMaxOpen
	}
	if len(o.Extensions) == 0 {
		o.Extensions = config.DefaultExtensions
	}
	if o.ThumbnailSize <= 0 {
		o.ThumbnailSize = config.DefaultThumbnailSize
	}
}

// Registry owns the ordered list of open collections. It is safe for
// concurrent use; published Collection values are never modified.
type Registry struct {
	mu          sync.RWMutex
	collections []Collection
	active      string
	generation  uint64

	opts   Options
	cache  *cache.Cache[*preview.Preview]
	sel    *selection.Model
	logger *logrus.Entry
}

// NewRegistry creates a registry. The cache is shared by every collection
// so the same file opened twice is decoded once.
func NewRegistry(opts Options, c *cache.Cache[*preview.Preview], sel *selection.Model) *Registry {
	opts.setDefaults()
	if c == nil {
		c = cache.New[*preview.Preview]()
	}
	if sel == nil {
		sel = selection.New()
	}
	return &Registry{
		opts:   opts,
		cache:  c,
		sel:    sel,
		logger: logging.NewLogger("collection"),
	}
}

// Selection returns the selection model the registry prunes.
func (r *Registry) Selection() *selection.Model { return r.sel }

// Cache returns the shared preview cache.
func (r *Registry) Cache() *cache.Cache[*preview.Preview] { return r.cache }

// Options returns the effective options.
func (r *Registry) Options() Options { return r.opts }

// Open lists folder into a new collection and makes it active.
func (r *Registry) Open(ctx context.Context, folder Folder) (Collection, error) {
	if r.Len() >= r.opts.MaxOpen {
		return Collection{}, errors.LimitExceeded(r.opts.MaxOpen)
	}

	resources, count, err := r.load(ctx, folder, nil)
	if err != nil {
		return Collection{}, err
	}

	c := Collection{
		ID:             uuid.NewString(),
		Label:          folder.Name(),
		Path:           folder.Path(),
		Resources:      resources,
		LastKnownCount: count,
		OpenedAt:       time.Now(),
		Folder:         folder,
	}

	r.mu.Lock()
	// Another Open may have filled the last slot while listing.
	if len(r.collections) >= r.opts.MaxOpen {
		r.mu.Unlock()
		return Collection{}, errors.LimitExceeded(r.opts.MaxOpen)
	}
	next := make([]Collection, len(r.collections), len(r.collections)+1)
	copy(next, r.collections)
	r.collections = append(next, c)
	r.active = c.ID
	r.generation++
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"collection": c.ID,
		"path":       c.Path,
		"resources":  len(c.Resources),
	}).Info("Opened collection")
	return c, nil
}

// Activate makes id the active collection. An empty collection is reloaded.
func (r *Registry) Activate(ctx context.Context, id string) (Collection, error) {
	r.mu.Lock()
	idx := r.indexLocked(id)
	if idx < 0 {
		r.mu.Unlock()
		return Collection{}, errors.NotFound("collection", id)
	}
	r.active = id
	r.generation++
	c := r.collections[idx]
	r.mu.Unlock()

	if len(c.Resources) == 0 {
		return r.Refresh(ctx, id)
	}
	return c, nil
}

// Close removes a collection and discards its selection bucket. When the
// closed collection was active, the collection that took its slot becomes
// active, else the previous one, else none.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	idx := r.indexLocked(id)
	if idx < 0 {
		r.mu.Unlock()
		return errors.NotFound("collection", id)
	}
	next := make([]Collection, 0, len(r.collections)-1)
	next = append(next, r.collections[:idx]...)
	next = append(next, r.collections[idx+1:]...)
	r.collections = next

	if r.active == id {
		switch {
		case idx < len(next):
			r.active = next[idx].ID
		case idx > 0:
			r.active = next[idx-1].ID
		default:
			r.active = ""
		}
		r.generation++
	}
	r.mu.Unlock()

	r.sel.Discard(id)
	r.logger.WithField("collection", id).Info("Closed collection")
	return nil
}

// Refresh re-lists the backing folder. Usage state is kept for keys that
// still exist, new files are added, vanished files are dropped and their
// cache entries invalidated. The selection bucket is pruned afterwards.
func (r *Registry) Refresh(ctx context.Context, id string) (Collection, error) {
	c, err := r.Get(id)
	if err != nil {
		return Collection{}, err
	}

	prev := make(map[string]Resource, len(c.Resources))
	for _, res := range c.Resources {
		prev[res.Key] = res
	}
	resources, count, err := r.load(ctx, c.Folder, prev)
	if err != nil {
		return Collection{}, err
	}

	r.mu.Lock()
	idx := r.indexLocked(id)
	if idx < 0 {
		r.mu.Unlock()
		return Collection{}, errors.NotFound("collection", id)
	}
	cur := r.collections[idx]

	// Usage may have changed while listing; the current value wins.
	latest := make(map[string]Resource, len(cur.Resources))
	for _, res := range cur.Resources {
		latest[res.Key] = res
	}
	fresh := make(map[string]bool, len(resources))
	added := 0
	for i := range resources {
		fresh[resources[i].Key] = true
		if old, ok := latest[resources[i].Key]; ok {
			resources[i].Used = old.Used
			resources[i].TargetBinding = old.TargetBinding
			resources[i].ElementID = old.ElementID
		} else {
			added++
		}
	}
	var vanished []string
	for key := range latest {
		if !fresh[key] {
			vanished = append(vanished, key)
		}
	}
	sortResources(resources)

	updated := cur
	updated.Resources = resources
	updated.LastKnownCount = count
	r.replaceLocked(idx, updated)
	r.mu.Unlock()

	for _, key := range vanished {
		r.cache.Invalidate(key)
	}
	pruned := r.sel.Prune(id, updated.Keys())

	r.logger.WithFields(logrus.Fields{
		"collection": id,
		"added":      added,
		"removed":    len(vanished),
		"pruned":     pruned,
	}).Debug("Refreshed collection")
	return updated, nil
}

// MarkPlaced records that key was placed into targetID as elementID.
func (r *Registry) MarkPlaced(collectionID, key, targetID, elementID string) error {
	return r.updateResource(collectionID, key, func(res *Resource) {
		res.Used = true
		res.TargetBinding = targetID
		res.ElementID = elementID
	})
}

// MarkUnused clears the usage state of one resource.
func (r *Registry) MarkUnused(collectionID, key string) error {
	return r.updateResource(collectionID, key, func(res *Resource) {
		res.Used = false
		res.TargetBinding = ""
		res.ElementID = ""
	})
}

func (r *Registry) updateResource(collectionID, key string, fn func(*Resource)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(collectionID)
	if idx < 0 {
		return errors.NotFound("collection", collectionID)
	}
	c := r.collections[idx]
	resources := make([]Resource, len(c.Resources))
	copy(resources, c.Resources)
	found := false
	for i := range resources {
		if resources[i].Key == key {
			fn(&resources[i])
			found = true
			break
		}
	}
	if !found {
		return errors.NotFound("resource", key)
	}
	sortResources(resources)
	c.Resources = resources
	r.replaceLocked(idx, c)
	return nil
}

// ReleaseBindings resets every used resource whose placed element (or
// target, when no element id was recorded) is no longer present. It returns
// the released resources.
func (r *Registry) ReleaseBindings(present func(id string) bool) []selection.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released []selection.Entry
	for idx, c := range r.collections {
		var resources []Resource
		for i, res := range c.Resources {
			id := res.binding()
			if !res.Used || id == "" || present(id) {
				continue
			}
			if resources == nil {
				resources = make([]Resource, len(c.Resources))
				copy(resources, c.Resources)
			}
			resources[i].Used = false
			resources[i].TargetBinding = ""
			resources[i].ElementID = ""
			released = append(released, selection.Entry{CollectionID: c.ID, Key: res.Key})
		}
		if resources != nil {
			sortResources(resources)
			c.Resources = resources
			r.replaceLocked(idx, c)
		}
	}
	return released
}

// Probe lists a collection's folder and returns how many images it holds.
func (r *Registry) Probe(ctx context.Context, id string) (int, error) {
	c, err := r.Get(id)
	if err != nil {
		return 0, err
	}
	entries, err := c.Folder.ListEntries(ctx)
	if err != nil {
		return 0, errors.IO(c.Path, err)
	}
	return len(FilterImages(entries, r.opts.Extensions)), nil
}

// ObserveCount records the latest folder count without reloading.
func (r *Registry) ObserveCount(id string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexLocked(id); idx >= 0 && r.collections[idx].LastKnownCount != count {
		c := r.collections[idx]
		c.LastKnownCount = count
		r.replaceLocked(idx, c)
	}
}

// Get returns the collection with id.
func (r *Registry) Get(id string) (Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexLocked(id); idx >= 0 {
		return r.collections[idx], nil
	}
	return Collection{}, errors.NotFound("collection", id)
}

// Resource returns one resource of a collection.
func (r *Registry) Resource(collectionID, key string) (Resource, error) {
	c, err := r.Get(collectionID)
	if err != nil {
		return Resource{}, err
	}
	res, ok := c.Find(key)
	if !ok {
		return Resource{}, errors.NotFound("resource", key)
	}
	return res, nil
}

// List returns the open collections in registration order.
func (r *Registry) List() []Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Collection, len(r.collections))
	copy(out, r.collections)
	return out
}

// Len returns the number of open collections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.collections)
}

// Active returns the active collection, if any.
func (r *Registry) Active() (Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexLocked(r.active); idx >= 0 {
		return r.collections[idx], true
	}
	return Collection{}, false
}

// ActiveID returns the active collection id, or "".
func (r *Registry) ActiveID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Generation increases every time a collection is opened or activated, or
// the active collection changes.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Layout returns the display order used to flatten the selection.
func (r *Registry) Layout() selection.Layout {
	r.mu.RLock()
	defer r.mu.RUnlock()
	layout := selection.Layout{
		Order: make([]string, 0, len(r.collections)),
		Keys:  make(map[string][]string, len(r.collections)),
	}
	for _, c := range r.collections {
		layout.Order = append(layout.Order, c.ID)
		layout.Keys[c.ID] = c.Keys()
	}
	return layout
}

// Aggregate returns the selected resources across all collections in
// registration order, then display order.
func (r *Registry) Aggregate() []selection.Entry {
	return r.sel.Aggregate(r.Layout())
}

// Stats summarizes one collection.
func (r *Registry) Stats(id string) (Stats, error) {
	c, err := r.Get(id)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{Total: len(c.Resources), Formats: make(map[string]int)}
	for _, res := range c.Resources {
		if res.Used {
			s.Used++
		}
		if r.sel.IsSelected(id, res.Key) {
			s.Selected++
		}
		s.Bytes += res.Size
		s.Formats[res.Ext()]++
	}
	return s, nil
}

// load lists folder and builds its resources in display order. Previews
// come from prev when known, otherwise through the cache. A preview that
// fails to load is logged and the resource is kept without one.
func (r *Registry) load(ctx context.Context, folder Folder, prev map[string]Resource) ([]Resource, int, error) {
	entries, err := folder.ListEntries(ctx)
	if err != nil {
		return nil, 0, errors.IO(folder.Path(), err)
	}
	images := FilterImages(entries, r.opts.Extensions)

	resources := make([]Resource, 0, len(images))
	for _, e := range images {
		key := ResourceKey(folder.Path(), e.Name)
		res := Resource{Key: key, Name: e.Name, Size: e.Size}
		if old, ok := prev[key]; ok && old.Preview != nil {
			res.Preview = old.Preview
		} else {
			res.Preview = r.loadPreview(ctx, folder, e.Name, key)
		}
		resources = append(resources, res)
	}
	sortResources(resources)
	return resources, len(images), nil
}

func (r *Registry) loadPreview(ctx context.Context, folder Folder, name, key string) *preview.Preview {
	p, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (*preview.Preview, error) {
		data, err := folder.ReadBinary(ctx, name)
		if err != nil {
			return nil, errors.IO(key, err)
		}
		return preview.Decode(data, r.opts.ThumbnailSize)
	})
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("Failed to load preview")
		return nil
	}
	return p
}

func (r *Registry) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, c := range r.collections {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// replaceLocked swaps in a new slice so readers keep a consistent view.
func (r *Registry) replaceLocked(idx int, c Collection) {
	next := make([]Collection, len(r.collections))
	copy(next, r.collections)
	next[idx] = c
	r.collections = next
}
