// Package engine owns the persisted window/tab model. All mutations are
// serialized through one goroutine, so every load-mutate-save runs
// atomically with respect to the others.
package engine

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/lotas/tabruhe/internal/applog"
	"github.com/lotas/tabruhe/internal/bridge"
	"github.com/lotas/tabruhe/internal/preview"
	"github.com/lotas/tabruhe/internal/store"
	"github.com/lotas/tabruhe/internal/types"
)

// ErrNotFound means the operation targeted a tab the model does not track
// (or one in the wrong state). Reported, never fatal.
var ErrNotFound = errors.New("tab not found")

// placeholderURL is opened in a window about to lose its last active tab.
// An empty window would be closed by the browser, destroying the window
// identity that later restores depend on.
const placeholderURL = "about:blank"

// restoreMarkTTL bounds how long a restore-originated tab id suppresses its
// own tab.created event.
const restoreMarkTTL = 30 * time.Second

// Browser is the control surface the engine drives. bridge.Bridge implements
// it; tests substitute a fake.
type Browser interface {
	GetTab(ctx context.Context, tabID int) (*types.LiveTab, error)
	CreateTab(ctx context.Context, windowID int, url string) (*types.LiveTab, error)
	RemoveTab(ctx context.Context, tabID int) error
	GetWindow(ctx context.Context, windowID int) (*types.LiveWindow, error)
	CreateWindow(ctx context.Context, url string) (*types.LiveWindow, error)
	AllWindows(ctx context.Context) ([]types.LiveWindow, error)
}

// Options tune the engine.
type Options struct {
	IdleAfter       time.Duration // inactivity threshold; 0 disables the sweep
	SweepEvery      time.Duration // sweep interval (default 1m)
	CaptureExcerpts bool          // fetch readable excerpts at suspend time
}

type request struct {
	fn    func(context.Context) error
	reply chan error
}

// Engine drives the suspend/restore state machine and the event reconciler.
type Engine struct {
	store    *store.Store
	browser  Browser
	opts     Options
	requests chan request

	// Restore-originated tab ids whose next tab.created event must be
	// skipped; counting them again would double-count. Consumed exactly
	// once, entries expire after restoreMarkTTL. Only touched from the
	// Run goroutine.
	restoreMarks map[int]time.Time

	fetchExcerpt func(url string) (string, error)
	now          func() time.Time
}

// New creates an Engine over the given store and browser.
func New(st *store.Store, browser Browser, opts Options) *Engine {
	return &Engine{
		store:        st,
		browser:      browser,
		opts:         opts,
		requests:     make(chan request),
		restoreMarks: make(map[int]time.Time),
		fetchExcerpt: preview.Fetch,
		now:          time.Now,
	}
}

// Run processes browser events, extension commands, internal requests and
// the idle sweep until ctx is cancelled. Handlers log and recover; no event
// ever takes the loop down.
func (e *Engine) Run(ctx context.Context, events <-chan bridge.Event, cmds <-chan bridge.Command) error {
	var tick <-chan time.Time
	if e.opts.IdleAfter > 0 {
		every := e.opts.SweepEvery
		if every <= 0 {
			every = time.Minute
		}
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			e.handleEvent(ev)
		case cmd, ok := <-cmds:
			if !ok {
				cmds = nil
				continue
			}
			e.dispatchCommand(ctx, cmd)
		case req := <-e.requests:
			req.reply <- req.fn(ctx)
		case <-tick:
			e.sweep(ctx)
		}
	}
}

// do runs fn inside the Run goroutine and returns its result.
func (e *Engine) do(ctx context.Context, fn func(context.Context) error) error {
	req := request{fn: fn, reply: make(chan error, 1)}
	select {
	case e.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SuspendTab suspends the live tab with the given model id.
func (e *Engine) SuspendTab(ctx context.Context, tid string) error {
	return e.do(ctx, func(ctx context.Context) error { return e.suspendByID(ctx, tid) })
}

// RestoreTab recreates a suspended tab as a real browser tab.
func (e *Engine) RestoreTab(ctx context.Context, tid string) error {
	return e.do(ctx, func(ctx context.Context) error { return e.restore(ctx, tid) })
}

// DeleteTab forgets a tracked tab, closing the real one if still active.
func (e *Engine) DeleteTab(ctx context.Context, tid string) error {
	return e.do(ctx, func(ctx context.Context) error { return e.delete(ctx, tid) })
}

// SyncAll discards the model and rebuilds it from the live browser.
func (e *Engine) SyncAll(ctx context.Context) error {
	return e.do(ctx, func(ctx context.Context) error { return e.syncAll(ctx) })
}

// dispatchCommand executes an extension-originated command and responds.
func (e *Engine) dispatchCommand(ctx context.Context, cmd bridge.Command) {
	var err error
	switch cmd.Action {
	case "SYNC_ALL":
		err = e.syncAll(ctx)
	case "SUSPEND_TAB":
		err = e.suspendByID(ctx, cmd.TID)
	case "RESTORE_TAB":
		err = e.restore(ctx, cmd.TID)
	case "DELETE_TAB":
		err = e.delete(ctx, cmd.TID)
	default:
		cmd.Respond(false, "unknown action "+cmd.Action)
		return
	}
	if err != nil {
		applog.Error("engine.command", err, "action", cmd.Action, "tid", cmd.TID)
		cmd.Respond(false, err.Error())
		return
	}
	cmd.Respond(true, "")
}

// suspendByID resolves the live tab first, the way the SUSPEND_TAB message
// works: a tab the browser no longer knows cannot be suspended.
func (e *Engine) suspendByID(ctx context.Context, tid string) error {
	id, err := strconv.Atoi(tid)
	if err != nil {
		return ErrNotFound
	}
	live, err := e.browser.GetTab(ctx, id)
	if errors.Is(err, bridge.ErrGone) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return e.suspend(ctx, live)
}

func (e *Engine) markRestored(id int) {
	now := time.Now()
	for k, exp := range e.restoreMarks {
		if now.After(exp) {
			delete(e.restoreMarks, k)
		}
	}
	e.restoreMarks[id] = now.Add(restoreMarkTTL)
}

// consumeRestoreMark reports and clears a pending mark for the id.
func (e *Engine) consumeRestoreMark(id int) bool {
	exp, ok := e.restoreMarks[id]
	if !ok {
		return false
	}
	delete(e.restoreMarks, id)
	return time.Now().Before(exp)
}
