// Package collection manages the open folder tabs and the resources listed
// from each of them.
package collection

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/grovetools/framefill/pkg/preview"
)

// Entry is one item of a folder listing.
type Entry struct {
	Name   string `json:"name"`
	IsFile bool   `json:"is_file"`
	Size   int64  `json:"size"`
}

// Folder is the backing source of a collection.
type Folder interface {
	// Name is the label shown on the tab.
	Name() string
	// Path is the folder's stable location; resource keys are built from it.
	Path() string
	ListEntries(ctx context.Context) ([]Entry, error)
	ReadBinary(ctx context.Context, name string) ([]byte, error)
}

// Resource is one image file staged for placement.
type Resource struct {
	Key           string           `json:"key"`
	Name          string           `json:"name"`
	Size          int64            `json:"size"`
	Preview       *preview.Preview `json:"preview,omitempty"`
	Used          bool             `json:"used"`
	TargetBinding string           `json:"target_binding,omitempty"`
	ElementID     string           `json:"element_id,omitempty"`
}

// Ext returns the lower-cased extension without the dot.
func (r Resource) Ext() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(r.Name), "."))
}

// binding returns the document id whose disappearance releases the resource.
func (r Resource) binding() string {
	if r.ElementID != "" {
		return r.ElementID
	}
	return r.TargetBinding
}

// Collection is one opened folder. Values are immutable once published by
// the Registry; every mutation produces a new Collection.
type Collection struct {
	ID             string     `json:"id"`
	Label          string     `json:"label"`
	Path           string     `json:"path"`
	Resources      []Resource `json:"resources"`
	LastKnownCount int        `json:"last_known_count"`
	OpenedAt       time.Time  `json:"opened_at"`

	Folder Folder `json:"-"`
}

// Keys returns the resource keys in display order.
func (c Collection) Keys() []string {
	keys := make([]string, len(c.Resources))
	for i, r := range c.Resources {
		keys[i] = r.Key
	}
	return keys
}

// Find returns the resource with key.
func (c Collection) Find(key string) (Resource, bool) {
	for _, r := range c.Resources {
		if r.Key == key {
			return r, true
		}
	}
	return Resource{}, false
}

// Stats summarizes a collection.
type Stats struct {
	Total    int            `json:"total"`
	Used     int            `json:"used"`
	Selected int            `json:"selected"`
	Bytes    int64          `json:"bytes"`
	Formats  map[string]int `json:"formats"`
}

// ResourceKey builds the stable identity of a file in a folder.
func ResourceKey(folderPath, name string) string {
	return filepath.Join(folderPath, name)
}

// FilterImages keeps file entries whose extension is in exts. Extensions
// are compared case-insensitively and without the leading dot.
func FilterImages(entries []Entry, exts []string) []Entry {
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	var out []Entry
	for _, e := range entries {
		if !e.IsFile {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(e.Name), "."))
		if allowed[ext] {
			out = append(out, e)
		}
	}
	return out
}
