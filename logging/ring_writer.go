package logging

import (
	"bytes"
	"strings"
	"sync"
)

// DefaultRingSize is the number of lines the shared ring keeps.
const DefaultRingSize = 500

// RingWriter keeps the last N complete lines written to it. A partial
// trailing line is buffered until its newline arrives.
type RingWriter struct {
	mu      sync.Mutex
	lines   []string
	next    int
	full    bool
	partial bytes.Buffer
}

// NewRingWriter creates a ring holding up to size lines.
func NewRingWriter(size int) *RingWriter {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingWriter{lines: make([]string, size)}
}

// Write implements io.Writer.
func (r *RingWriter) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.partial.Write(p)
	for {
		data := r.partial.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		r.push(string(data[:i]))
		r.partial.Next(i + 1)
	}
	return len(p), nil
}

func (r *RingWriter) push(line string) {
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
}

// Lines returns the buffered lines, oldest first.
func (r *RingWriter) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]string, r.next)
		copy(out, r.lines[:r.next])
		return out
	}
	out := make([]string, 0, len(r.lines))
	out = append(out, r.lines[r.next:]...)
	out = append(out, r.lines[:r.next]...)
	return out
}

// Tail returns at most n of the newest lines.
func (r *RingWriter) Tail(n int) []string {
	lines := r.Lines()
	if n > 0 && n < len(lines) {
		return lines[len(lines)-n:]
	}
	return lines
}

// String joins the buffered lines.
func (r *RingWriter) String() string {
	return strings.Join(r.Lines(), "\n")
}

// Reset discards all buffered lines.
func (r *RingWriter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.lines {
		r.lines[i] = ""
	}
	r.next = 0
	r.full = false
	r.partial.Reset()
}

var (
	sharedRing     *RingWriter
	sharedRingOnce sync.Once
)

// Ring returns the process-wide ring every logger writes to.
func Ring() *RingWriter {
	return ringWithSize(0)
}

// ringWithSize sizes the shared ring on first use; later sizes are ignored.
func ringWithSize(size int) *RingWriter {
	sharedRingOnce.Do(func() {
		sharedRing = NewRingWriter(size)
	})
	return sharedRing
}
