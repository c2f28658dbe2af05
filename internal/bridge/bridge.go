// Package bridge is the WebSocket link to the browser extension. The
// extension pushes tab/window lifecycle events and command requests; the
// daemon issues control calls (create/remove/query tabs and windows) that
// are correlated by message id.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lotas/tabruhe/internal/applog"
	"github.com/lotas/tabruhe/internal/types"
	"nhooyr.io/websocket"
)

// ErrGone means the control call's target no longer exists in the browser.
// Callers usually treat the intended end state as already achieved.
var ErrGone = errors.New("target gone")

// ErrNotConnected means no extension is currently attached.
var ErrNotConnected = errors.New("extension not connected")

// callTimeout bounds a single control round trip.
const callTimeout = 10 * time.Second

// Event is a lifecycle signal pushed by the extension.
type Event struct {
	Type     string // tab.created, tab.removed, tab.moved, tab.updated, window.removed
	Tab      *types.LiveTab
	TabID    int
	WindowID int
	Index    int
}

// Command is a user-triggered request from the extension UI. Respond must be
// called exactly once.
type Command struct {
	ID     string
	Action string // SYNC_ALL, SUSPEND_TAB, RESTORE_TAB, DELETE_TAB
	TID    string

	respond func(ok bool, errMsg string)
}

// Respond sends the {ok, error?} result back to the requester.
func (c Command) Respond(ok bool, errMsg string) {
	if c.respond != nil {
		c.respond(ok, errMsg)
	}
}

// wireMsg is anything the extension sends: events, command requests, and
// responses to our control calls.
type wireMsg struct {
	Type     string          `json:"type,omitempty"`
	Tab      json.RawMessage `json:"tab,omitempty"`
	Window   json.RawMessage `json:"window,omitempty"`
	Windows  json.RawMessage `json:"windows,omitempty"`
	TabID    int             `json:"tabId,omitempty"`
	WindowID int             `json:"windowId,omitempty"`
	Index    int             `json:"index,omitempty"`

	ID    string `json:"id,omitempty"`
	OK    *bool  `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`

	Action string `json:"action,omitempty"`
	TID    string `json:"tid,omitempty"`
}

// controlMsg is what the daemon sends: control calls and command responses.
type controlMsg struct {
	ID       string `json:"id"`
	Action   string `json:"action,omitempty"`
	TabID    int    `json:"tabId,omitempty"`
	WindowID int    `json:"windowId,omitempty"`
	URL      string `json:"url,omitempty"`
	OK       *bool  `json:"ok,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Bridge manages the single extension connection.
type Bridge struct {
	port   int
	events chan Event
	cmds   chan Command

	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
	pending map[string]chan wireMsg
}

// New creates a Bridge. Port 0 means the caller manages the listener.
func New(port int) *Bridge {
	return &Bridge{
		port:    port,
		events:  make(chan Event, 64),
		cmds:    make(chan Command, 16),
		pending: make(map[string]chan wireMsg),
	}
}

// Port returns the configured port.
func (b *Bridge) Port() int {
	return b.port
}

// Events returns the channel of lifecycle events from the extension.
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// Commands returns the channel of user-triggered command requests.
func (b *Bridge) Commands() <-chan Command {
	return b.cmds
}

// Connected reports whether an extension is attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *Bridge) send(msg controlMsg) error {
	b.mu.Lock()
	conn := b.conn
	ctx := b.connCtx
	b.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// call sends a control message and waits for the correlated response.
func (b *Bridge) call(ctx context.Context, msg controlMsg) (wireMsg, error) {
	msg.ID = uuid.NewString()
	resp := make(chan wireMsg, 1)

	b.mu.Lock()
	b.pending[msg.ID] = resp
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, msg.ID)
		b.mu.Unlock()
	}()

	applog.Info("ws.call", "action", msg.Action, "id", msg.ID)
	if err := b.send(msg); err != nil {
		return wireMsg{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	select {
	case r := <-resp:
		if r.OK != nil && !*r.OK {
			if r.Error == "gone" {
				return r, ErrGone
			}
			return r, fmt.Errorf("%s failed: %s", msg.Action, r.Error)
		}
		return r, nil
	case <-ctx.Done():
		return wireMsg{}, fmt.Errorf("%s: %w", msg.Action, ctx.Err())
	}
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("ws.accept", err)
			return
		}

		conn.SetReadLimit(16 << 20) // resync payloads with many tabs can be large

		ctx := r.Context()
		b.mu.Lock()
		if b.conn != nil {
			applog.Info("ws.replaced")
			b.conn.CloseNow()
		}
		b.conn = conn
		b.connCtx = ctx
		b.mu.Unlock()

		applog.Info("ws.connected", "remote", r.RemoteAddr)

		defer func() {
			b.mu.Lock()
			if b.conn == conn {
				b.conn = nil
				b.connCtx = nil
			}
			b.mu.Unlock()
			conn.CloseNow()
			applog.Info("ws.disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg wireMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				applog.Error("ws.parse", err)
				continue
			}
			b.route(msg)
		}
	})
}

// route dispatches an incoming message: control responses to their waiting
// caller, command requests to the command channel, events to the event
// channel. Full channels drop rather than block the read loop.
func (b *Bridge) route(msg wireMsg) {
	if msg.ID != "" && msg.Action == "" && msg.Type == "" {
		b.mu.Lock()
		resp, ok := b.pending[msg.ID]
		b.mu.Unlock()
		if ok {
			resp <- msg
		}
		return
	}

	if msg.Action != "" {
		id := msg.ID
		cmd := Command{
			ID:     id,
			Action: msg.Action,
			TID:    msg.TID,
			respond: func(ok bool, errMsg string) {
				if err := b.send(controlMsg{ID: id, OK: &ok, Error: errMsg}); err != nil {
					applog.Error("ws.respond", err, "id", id)
				}
			},
		}
		applog.Info("ws.command", "action", msg.Action, "tid", msg.TID)
		select {
		case b.cmds <- cmd:
		default:
			cmd.Respond(false, "busy")
		}
		return
	}

	ev, err := parseEvent(msg)
	if err != nil {
		applog.Error("ws.event", err, "type", msg.Type)
		return
	}
	select {
	case b.events <- ev:
	default:
	}
}

// ListenAndServe starts the WebSocket server on the configured port.
func (b *Bridge) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/", b.Handler())

	addr := fmt.Sprintf("127.0.0.1:%d", b.port)
	applog.Info("bridge.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	return srv.ListenAndServe()
}
