// Package folder provides the local filesystem backing for collections.
package folder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/pkg/collection"
	"github.com/grovetools/framefill/util/pathutil"
)

// Local is a directory on disk. Only its direct children are listed.
type Local struct {
	path    string
	name    string
	matcher *patternmatcher.PatternMatcher
}

var _ collection.Folder = (*Local)(nil)

// Open resolves dir and returns it as a Folder. Exclude patterns use
// .dockerignore syntax and match names relative to dir.
func Open(dir string, exclude []string) (*Local, error) {
	abs, err := pathutil.Expand(dir)
	if err != nil {
		return nil, errors.IO(dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("folder", abs)
		}
		return nil, errors.IO(abs, err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("%s is not a directory", abs))
	}

	l := &Local{path: abs, name: filepath.Base(abs)}
	if len(exclude) > 0 {
		pm, err := patternmatcher.New(exclude)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid exclude pattern")
		}
		l.matcher = pm
	}
	return l, nil
}

func (l *Local) Name() string { return l.name }
func (l *Local) Path() string { return l.path }

// ListEntries lists the directory. Excluded and hidden names are skipped.
func (l *Local) ListEntries(ctx context.Context) ([]collection.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(l.path)
	if err != nil {
		return nil, err
	}

	out := make([]collection.Entry, 0, len(dirents))
	for _, d := range dirents {
		name := d.Name()
		if strings.HasPrefix(name, ".") || l.excluded(name) {
			continue
		}
		e := collection.Entry{Name: name}
		if d.Type().IsRegular() {
			e.IsFile = true
			if info, err := d.Info(); err == nil {
				e.Size = info.Size()
			}
		} else if d.Type()&os.ModeSymlink != 0 {
			// Follow links to regular files only.
			if info, err := os.Stat(filepath.Join(l.path, name)); err == nil && info.Mode().IsRegular() {
				e.IsFile = true
				e.Size = info.Size()
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// ReadBinary reads one direct child of the directory.
func (l *Local) ReadBinary(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" || name != filepath.Base(name) || name == ".." {
		return nil, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("invalid file name %q", name))
	}
	return os.ReadFile(filepath.Join(l.path, name))
}

func (l *Local) excluded(name string) bool {
	if l.matcher == nil {
		return false
	}
	ok, err := l.matcher.MatchesOrParentMatches(name)
	return err == nil && ok
}
