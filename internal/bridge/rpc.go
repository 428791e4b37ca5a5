// Package bridge connects the core to the host plugin over a websocket.
// Messages follow the JSON-RPC 2.0 shape; both sides issue requests.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/errors"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeApplication    = -32000
)

// Message is one frame on the wire.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error member of a response. Application errors carry the
// framefill error code in Data.
type RPCError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    *errors.FrameError `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Unwrap exposes the framefill error so errors.Is sees its code.
func (e *RPCError) Unwrap() error {
	if e.Data == nil {
		return nil
	}
	return e.Data
}

// Handler serves requests from the other side.
type Handler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, method string, params json.RawMessage) (interface{}, error)

func (f HandlerFunc) Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	return f(ctx, method, params)
}

// ErrMethodNotFound is returned by handlers for unknown methods.
var ErrMethodNotFound = &RPCError{Code: CodeMethodNotFound, Message: "method not found"}

// Peer is one websocket connection. Calls may be issued concurrently.
type Peer struct {
	conn    *websocket.Conn
	handler Handler
	logger  *logrus.Entry

	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan Message
	closed  chan struct{}
	once    sync.Once
}

// NewPeer wraps conn. handler may be nil when the peer only makes calls.
func NewPeer(conn *websocket.Conn, handler Handler, logger *logrus.Entry) *Peer {
	return &Peer{
		conn:    conn,
		handler: handler,
		logger:  logger,
		pending: make(map[int64]chan Message),
		closed:  make(chan struct{}),
	}
}

// Call sends a request and decodes the response into result.
func (p *Peer) Call(ctx context.Context, method string, params, result interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to encode params")
	}
	id := p.nextID.Add(1)
	ch := make(chan Message, 1)

	p.mu.Lock()
	p.pending[id] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	if err := p.write(Message{JSONRPC: "2.0", ID: &id, Method: method, Params: raw}); err != nil {
		return err
	}

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return msg.Error
		}
		if result == nil || len(msg.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(msg.Result, result); err != nil {
			return errors.Wrap(err, errors.ErrCodeInvalidInput, fmt.Sprintf("invalid result for %s", method))
		}
		return nil
	case <-p.closed:
		return errors.New(errors.ErrCodeExternalAPI, "host disconnected")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Notify sends a notification; no response is expected.
func (p *Peer) Notify(method string, params interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to encode params")
	}
	return p.write(Message{JSONRPC: "2.0", Method: method, Params: raw})
}

// Serve reads messages until the connection fails or ctx is cancelled.
func (p *Peer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer p.Close()

	go func() {
		select {
		case <-ctx.Done():
			p.Close()
		case <-p.closed:
		}
	}()

	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		switch {
		case msg.Method == "" && msg.ID != nil:
			p.mu.Lock()
			ch, ok := p.pending[*msg.ID]
			p.mu.Unlock()
			if ok {
				ch <- msg
			}
		case msg.Method != "":
			go p.dispatch(ctx, msg)
		}
	}
}

// Done is closed when the peer shuts down.
func (p *Peer) Done() <-chan struct{} { return p.closed }

// Close closes the connection.
func (p *Peer) Close() {
	p.once.Do(func() {
		close(p.closed)
		p.writeMu.Lock()
		_ = p.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		p.writeMu.Unlock()
		_ = p.conn.Close()
	})
}

func (p *Peer) dispatch(ctx context.Context, msg Message) {
	var (
		result interface{}
		err    error
	)
	if p.handler == nil {
		err = ErrMethodNotFound
	} else {
		result, err = p.handler.Handle(ctx, msg.Method, msg.Params)
	}
	if msg.ID == nil {
		if err != nil {
			p.logger.WithError(err).WithField("method", msg.Method).Debug("Notification handler failed")
		}
		return
	}

	resp := Message{JSONRPC: "2.0", ID: msg.ID}
	if err != nil {
		resp.Error = toRPCError(err)
	} else if resp.Result, err = json.Marshal(result); err != nil {
		resp.Error = &RPCError{Code: CodeInternal, Message: err.Error()}
	}
	if err := p.write(resp); err != nil {
		p.logger.WithError(err).WithField("method", msg.Method).Debug("Failed to send response")
	}
}

func (p *Peer) write(msg Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.conn.WriteJSON(msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalAPI, "failed to write to host")
	}
	return nil
}

func toRPCError(err error) *RPCError {
	if rpcErr, ok := err.(*RPCError); ok {
		return rpcErr
	}
	code := errors.GetCode(err)
	if code == "" {
		return &RPCError{Code: CodeInternal, Message: err.Error()}
	}
	out := &RPCError{Code: CodeApplication, Message: err.Error()}
	if fe, ok := errors.As(err); ok {
		out.Data = &errors.FrameError{Code: fe.Code, Message: fe.Message, Details: fe.Details}
	}
	if code == errors.ErrCodeInvalidInput {
		out.Code = CodeInvalidParams
	}
	return out
}
