package engine

import (
	"time"

	"github.com/lotas/tabruhe/internal/applog"
	"github.com/lotas/tabruhe/internal/bridge"
	"github.com/lotas/tabruhe/internal/types"
)

// handleEvent folds one live browser signal into the model. Every handler
// is idempotent with respect to "not found": the browser emits events for
// tabs the model never learned about, and that is a no-op, not an error.
// High-frequency handlers persist through the debounced queue.
func (e *Engine) handleEvent(ev bridge.Event) {
	m, err := e.store.LoadModel()
	if err != nil {
		applog.Error("reconcile.load", err, "type", ev.Type)
		return
	}

	switch ev.Type {
	case "tab.created":
		e.tabCreated(m, ev.Tab)
	case "tab.removed":
		e.tabRemoved(m, ev.TabID)
	case "tab.moved":
		e.tabMoved(m, ev.TabID, ev.Index)
	case "tab.updated":
		e.tabUpdated(m, ev.Tab)
	case "window.removed":
		e.windowRemoved(m, ev.WindowID)
	default:
		applog.Info("reconcile.skip", "type", ev.Type)
		return
	}

	e.store.QueueModel(m)
}

func (e *Engine) tabCreated(m *types.Model, live *types.LiveTab) {
	if live == nil {
		return
	}
	// Restore-originated (and placeholder) tabs were already inserted with
	// the correct state; counting them again would double-count.
	if e.consumeRestoreMark(live.ID) {
		applog.Info("reconcile.created.skip", "tid", live.ID)
		return
	}

	now := time.Now()
	wid := types.Key(live.WindowID)
	w := m.EnsureWindow(wid)
	w.Active++
	w.LastActive = now

	m.Tabs[types.Key(live.ID)] = &types.Tab{
		WindowID:  wid,
		URL:       live.URL,
		Title:     live.Title,
		FavIcon:   live.FavIconURL,
		Index:     live.Index,
		LastVisit: now,
		State:     types.StateActive,
	}
}

func (e *Engine) tabRemoved(m *types.Model, tabID int) {
	tid := types.Key(tabID)
	t := m.Tabs[tid]
	if t == nil {
		return
	}
	// A suspended record must survive its real tab's closure: the real tab
	// was already closed on purpose at suspend time, and the record itself
	// is the tab now.
	if t.State != types.StateActive {
		return
	}

	if w := m.Windows[t.WindowID]; w != nil && w.Active > 0 {
		w.Active--
	}
	delete(m.Tabs, tid)
	if !m.HasTabsIn(t.WindowID) {
		delete(m.Windows, t.WindowID)
	}
}

func (e *Engine) tabMoved(m *types.Model, tabID, index int) {
	if t := m.Tabs[types.Key(tabID)]; t != nil {
		t.Index = index
	}
}

// tabUpdated patches display metadata. An untracked tab is self-healed into
// the model from its live data; tabs can predate tracking.
func (e *Engine) tabUpdated(m *types.Model, live *types.LiveTab) {
	if live == nil {
		return
	}
	t := m.Tabs[types.Key(live.ID)]
	if t == nil {
		e.tabCreated(m, live)
		return
	}

	if live.URL != "" {
		t.URL = live.URL
	}
	if live.Title != "" {
		t.Title = live.Title
	}
	if live.FavIconURL != "" {
		t.FavIcon = live.FavIconURL
	}
	t.Index = live.Index
	t.LastVisit = time.Now()
}

// windowRemoved deletes the window entry outright when nothing references
// it; while suspended tabs still do, the entry stays as a closed
// placeholder so they keep a coherent owner until restored or deleted.
func (e *Engine) windowRemoved(m *types.Model, windowID int) {
	wid := types.Key(windowID)
	if !m.HasTabsIn(wid) {
		delete(m.Windows, wid)
		return
	}
	if w := m.Windows[wid]; w != nil {
		w.Closed = true
	}
}
