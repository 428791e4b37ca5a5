package logging

import (
	"io"
	"os"
	"sync/atomic"
)

// stderrSink is the console destination shared by every logger. It can be
// redirected after loggers have been created.
type stderrSink struct {
	target atomic.Pointer[io.Writer]
}

func (s *stderrSink) Write(p []byte) (int, error) {
	return (*s.target.Load()).Write(p)
}

var consoleSink = func() *stderrSink {
	s := &stderrSink{}
	var w io.Writer = os.Stderr
	s.target.Store(&w)
	return s
}()

// SetGlobalOutput redirects the console output of every logger, e.g. to
// io.Discard once the daemon runs detached.
func SetGlobalOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	consoleSink.target.Store(&w)
}

// GetGlobalOutput returns the shared console writer.
func GetGlobalOutput() io.Writer {
	return consoleSink
}
