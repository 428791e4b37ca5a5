// Package server provides the HTTP API of the framefill daemon.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/internal/daemon/engine"
	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/logging"
	"github.com/grovetools/framefill/pkg/collection"
	"github.com/grovetools/framefill/pkg/geometry"
)

// maxDetectBody caps uploads to /api/detect.
const maxDetectBody = 32 << 20

// RunningConfig holds the settings the daemon was started with.
// It is exposed via /api/config so clients can verify what is active.
type RunningConfig struct {
	Version          string        `json:"version"`
	Listen           string        `json:"listen"`
	FitPolicy        string        `json:"fit_policy"`
	Mismatch         string        `json:"mismatch"`
	MaxOpen          int           `json:"max_open"`
	DocumentInterval time.Duration `json:"document_interval"`
	FolderInterval   time.Duration `json:"folder_interval"`
	Watch            bool          `json:"watch"`
	Collectors       []string      `json:"collectors"`
	StartedAt        time.Time     `json:"started_at"`
}

// Detector finds frame boxes in an encoded image.
type Detector func(data []byte) ([]geometry.Rect, error)

// Server manages the daemon's HTTP listener.
type Server struct {
	logger        *logrus.Entry
	server        *http.Server
	engine        *engine.Engine
	registry      *collection.Registry
	host          http.Handler
	detector      Detector
	runningConfig *RunningConfig
}

// New creates a new Server instance.
func New(logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logging.NewLogger("server")
	}
	return &Server{logger: logger}
}

// SetEngine sets the collector engine whose store backs the state endpoints.
func (s *Server) SetEngine(eng *engine.Engine) {
	s.engine = eng
}

// SetRegistry sets the registry previews are served from.
func (s *Server) SetRegistry(reg *collection.Registry) {
	s.registry = reg
}

// SetHost mounts the host plugin's websocket handler on /ws.
func (s *Server) SetHost(h http.Handler) {
	s.host = h
}

// SetDetector enables /api/detect.
func (s *Server) SetDetector(d Detector) {
	s.detector = d
}

// SetRunningConfig sets the running configuration for the server.
func (s *Server) SetRunningConfig(cfg *RunningConfig) {
	s.runningConfig = cfg
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/state", s.handleGetState)
	mux.HandleFunc("/api/stream", s.handleStreamState)
	mux.HandleFunc("/api/config", s.handleGetConfig)
	mux.HandleFunc("/api/logs", s.handleGetLogs)
	mux.HandleFunc("/api/preview", s.handlePreview)
	mux.HandleFunc("/api/detect", s.handleDetect)
	if s.host != nil {
		mux.Handle("/ws", s.host)
	}
	return mux
}

// ListenAndServe starts the daemon on addr. It blocks until the server
// stops or fails.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, fmt.Sprintf("failed to listen on %s", addr))
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener.
func (s *Server) Serve(listener net.Listener) error {
	s.server = &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.WithField("addr", listener.Addr().String()).Info("Daemon listening")
	err := s.server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleGetState returns the complete daemon state as JSON.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.engine.Store().Get())
}

// handleStreamState provides Server-Sent Events for state updates.
func (s *Server) handleStreamState(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	st := s.engine.Store()
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected")

	// Current state first so clients have data right away.
	state := st.Get()
	if data, err := json.Marshal(apiStateUpdate{UpdateType: "initial", Snapshot: &state.Snapshot}); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			apiUpdate := convertToAPIUpdate(update)
			if apiUpdate == nil {
				continue
			}
			data, err := json.Marshal(apiUpdate)
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal update")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleGetConfig returns the running configuration as JSON.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.runningConfig == nil {
		http.Error(w, "config not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.runningConfig)
}

// handleGetLogs returns the most recent log lines. ?n limits the count.
func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	n := 100
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	writeJSON(w, map[string][]string{"lines": logging.Ring().Tail(n)})
}

// handlePreview renders the thumbnail of one resource as PNG.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		http.Error(w, "registry not initialized", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	res, err := s.registry.Resource(q.Get("collection"), q.Get("key"))
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Preview == nil || res.Preview.Thumbnail == nil {
		http.Error(w, "no preview", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, res.Preview.Thumbnail); err != nil {
		s.logger.WithError(err).Debug("Failed to write preview")
	}
}

// handleDetect finds frame boxes in the posted image.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.detector == nil {
		http.Error(w, "detection not available", http.StatusNotImplemented)
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxDetectBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	boxes, err := s.detector(data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string][]geometry.Rect{"frames": boxes})
}

// apiStateUpdate matches daemon.StateUpdate for SSE streaming.
type apiStateUpdate struct {
	UpdateType string          `json:"update_type"`
	Source     string          `json:"source,omitempty"`
	Scanned    int             `json:"scanned,omitempty"`
	Snapshot   *store.Snapshot `json:"snapshot,omitempty"`
	Report     interface{}     `json:"report,omitempty"`
	Alert      interface{}     `json:"alert,omitempty"`
	ConfigFile string          `json:"config_file,omitempty"`
}

// convertToAPIUpdate converts internal store.Update to the public API format.
func convertToAPIUpdate(u store.Update) *apiStateUpdate {
	out := &apiStateUpdate{UpdateType: string(u.Type), Source: u.Source, Scanned: u.Scanned}
	switch u.Type {
	case store.UpdateCollections, store.UpdateReleased, store.UpdateRefreshed:
		if snap, ok := u.Payload.(store.Snapshot); ok {
			out.Snapshot = &snap
		}
	case store.UpdatePlacement:
		out.Report = u.Payload
	case store.UpdateAlert:
		out.Alert = u.Payload
	case store.UpdateConfigReload:
		if file, ok := u.Payload.(string); ok {
			out.ConfigFile = file
		}
	default:
		return nil
	}
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrCodeNotFound):
		status = http.StatusNotFound
	case errors.IsValidation(err), errors.Is(err, errors.ErrCodeInvalidInput):
		status = http.StatusBadRequest
	}
	fe, ok := err.(*errors.FrameError)
	if !ok {
		fe = errors.Wrap(err, errors.ErrCodeInternal, "request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(fe)
}
