package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/logging"
	"github.com/grovetools/framefill/pkg/alert"
	"github.com/grovetools/framefill/pkg/document"
	"github.com/grovetools/framefill/pkg/geometry"
)

// DefaultCallTimeout bounds every core to host call.
const DefaultCallTimeout = 30 * time.Second

// Hub accepts the host plugin's websocket and exposes it as the document,
// token issuer and notifier of the core. One host is connected at a time;
// a new connection replaces the previous one.
type Hub struct {
	upgrader    websocket.Upgrader
	callTimeout time.Duration
	logger      *logrus.Entry

	mu      sync.RWMutex
	peer    *Peer
	handler Handler
}

var (
	_ document.Document    = (*Hub)(nil)
	_ document.TokenIssuer = (*Hub)(nil)
	_ document.Describer   = (*Hub)(nil)
	_ alert.Notifier       = (*Hub)(nil)
)

// NewHub creates a hub. Host requests are served by handler.
func NewHub(handler Handler) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The listener is bound to loopback; the host runs as a local plugin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		callTimeout: DefaultCallTimeout,
		handler:     handler,
		logger:      logging.NewLogger("bridge"),
	}
}

// SetHandler replaces the handler for host requests.
func (h *Hub) SetHandler(handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

// SetCallTimeout changes the per-call timeout.
func (h *Hub) SetCallTimeout(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callTimeout = d
}

// Connected reports whether a host is attached.
func (h *Hub) Connected() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.peer != nil
}

// ServeHTTP upgrades the request and serves the host until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	peer := NewPeer(conn, HandlerFunc(h.handle), h.logger)
	old := h.peer
	h.peer = peer
	h.mu.Unlock()
	if old != nil {
		h.logger.Info("Replacing connected host")
		old.Close()
	}

	h.logger.WithField("remote", r.RemoteAddr).Info("Host connected")
	if err := peer.Serve(context.Background()); err != nil {
		h.logger.WithError(err).Debug("Host connection ended")
	}

	h.mu.Lock()
	if h.peer == peer {
		h.peer = nil
	}
	h.mu.Unlock()
	h.logger.Info("Host disconnected")
}

func (h *Hub) handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	h.mu.RLock()
	handler := h.handler
	h.mu.RUnlock()
	if handler == nil {
		return nil, ErrMethodNotFound
	}
	return handler.Handle(ctx, method, params)
}

func (h *Hub) current() (*Peer, time.Duration, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.peer == nil {
		return nil, 0, errors.New(errors.ErrCodeExternalAPI, "host is not connected")
	}
	return h.peer, h.callTimeout, nil
}

// call issues one request to the host under the per-call timeout.
func (h *Hub) call(ctx context.Context, method string, params, result interface{}) error {
	peer, timeout, err := h.current()
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return peer.Call(ctx, method, params, result)
}

func (h *Hub) ActiveTargets(ctx context.Context) ([]document.Target, error) {
	var targets []document.Target
	err := h.call(ctx, MethodActiveTargets, struct{}{}, &targets)
	return targets, err
}

func (h *Hub) ElementIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := h.call(ctx, MethodElementIDs, struct{}{}, &ids)
	return ids, err
}

func (h *Hub) Describe(ctx context.Context) ([]document.Element, error) {
	var tree []document.Element
	err := h.call(ctx, MethodDescribe, struct{}{}, &tree)
	return tree, err
}

func (h *Hub) CreateAccessToken(ctx context.Context, path string) (string, error) {
	var res TokenResult
	err := h.call(ctx, MethodCreateToken, PathParams{Path: path}, &res)
	return res.Token, err
}

// RunExclusive opens a scope on the host, runs fn against it and closes the
// scope, reporting fn's error to the host.
func (h *Hub) RunExclusive(ctx context.Context, label string, fn func(ctx context.Context, s document.Scope) error) error {
	var begin BeginResult
	if err := h.call(ctx, MethodBeginExclusive, BeginParams{Label: label}, &begin); err != nil {
		return err
	}

	fnErr := fn(ctx, &remoteScope{hub: h, scope: begin.Scope})

	end := EndParams{Scope: begin.Scope}
	if fnErr != nil {
		end.Error = fnErr.Error()
	}
	if err := h.call(ctx, MethodEndExclusive, end, nil); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}

// Notify shows an alert in the host. It is dropped when no host is attached.
func (h *Hub) Notify(title, message string) {
	h.notify(MethodAlert, alert.Alert{Title: title, Message: message})
}

func (h *Hub) notify(method string, params interface{}) {
	peer, _, err := h.current()
	if err != nil {
		return
	}
	if err := peer.Notify(method, params); err != nil {
		h.logger.WithError(err).WithField("method", method).Debug("Failed to notify host")
	}
}

// Relay forwards state changes from st to the host until ctx is cancelled.
func (h *Hub) Relay(ctx context.Context, st *store.Store) {
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-ch:
			if !ok {
				return
			}
			switch u.Type {
			case store.UpdateCollections, store.UpdateReleased, store.UpdateRefreshed:
				if snap, ok := u.Payload.(store.Snapshot); ok {
					h.notify(MethodStateChanged, StateChanged{Source: u.Source, Snapshot: snap})
				}
			}
		}
	}
}

type remoteScope struct {
	hub   *Hub
	scope string
}

func (s *remoteScope) SelectTarget(ctx context.Context, id string) error {
	return s.hub.call(ctx, MethodSelectTarget, ElementParams{Scope: s.scope, ID: id}, nil)
}

func (s *remoteScope) ImportAndEmbed(ctx context.Context, token string) (string, error) {
	var res ElementResult
	err := s.hub.call(ctx, MethodImportAndEmbed, ImportParams{Scope: s.scope, Token: token}, &res)
	return res.ID, err
}

func (s *remoteScope) Bounds(ctx context.Context, id string) (geometry.Rect, error) {
	var r geometry.Rect
	err := s.hub.call(ctx, MethodBounds, ElementParams{Scope: s.scope, ID: id}, &r)
	return r, err
}

func (s *remoteScope) Scale(ctx context.Context, id string, percentX, percentY float64) error {
	return s.hub.call(ctx, MethodScale, ScaleParams{Scope: s.scope, ID: id, PercentX: percentX, PercentY: percentY}, nil)
}

func (s *remoteScope) Translate(ctx context.Context, id string, dx, dy float64) error {
	return s.hub.call(ctx, MethodTranslate, TranslateParams{Scope: s.scope, ID: id, DX: dx, DY: dy}, nil)
}

func (s *remoteScope) Rasterize(ctx context.Context, id string) error {
	return s.hub.call(ctx, MethodRasterize, ElementParams{Scope: s.scope, ID: id}, nil)
}

func (s *remoteScope) ClipToEnclosing(ctx context.Context, id string) error {
	return s.hub.call(ctx, MethodClipToEnclosing, ElementParams{Scope: s.scope, ID: id}, nil)
}
