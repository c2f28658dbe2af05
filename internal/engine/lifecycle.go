package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lotas/tabruhe/internal/applog"
	"github.com/lotas/tabruhe/internal/bridge"
	"github.com/lotas/tabruhe/internal/types"
)

// suspend transitions a live tab to SUSPENDED: the record is updated and
// persisted first, then the real tab is closed. The record surviving the
// real tab IS the suspended tab from then on.
func (e *Engine) suspend(ctx context.Context, live *types.LiveTab) error {
	m, err := e.store.LoadModel()
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	now := time.Now()
	wid := types.Key(live.WindowID)
	w := m.EnsureWindow(wid)

	// Last active tab in the window: open a placeholder first so the
	// browser never closes the window under us. The placeholder is
	// inserted here and its tab.created event suppressed, same as a
	// restore-originated tab.
	if w.Active <= 1 {
		ph, err := e.browser.CreateTab(ctx, live.WindowID, placeholderURL)
		if err != nil {
			return fmt.Errorf("open placeholder in window %s: %w", wid, err)
		}
		e.markRestored(ph.ID)
		m.Tabs[types.Key(ph.ID)] = &types.Tab{
			WindowID:  wid,
			URL:       ph.URL,
			Title:     ph.Title,
			Index:     ph.Index,
			LastVisit: now,
			State:     types.StateActive,
		}
		w.Active++
		applog.Info("engine.placeholder", "window", wid, "tid", ph.ID)
	}

	if w.Active > 0 {
		w.Active--
	}
	w.Suspended++
	w.LastActive = now

	tid := types.Key(live.ID)
	m.Tabs[tid] = &types.Tab{
		WindowID:  wid,
		URL:       live.URL,
		Title:     live.Title,
		FavIcon:   live.FavIconURL,
		Index:     live.Index,
		LastVisit: now,
		State:     types.StateSuspended,
	}

	if err := e.store.SaveModel(m); err != nil {
		return fmt.Errorf("persist suspend: %w", err)
	}

	// Close the real tab. Already gone counts as done; any other failure
	// leaves the model ahead of reality for the next event or resync.
	if err := e.browser.RemoveTab(ctx, live.ID); err != nil && !errors.Is(err, bridge.ErrGone) {
		applog.Error("engine.suspend.close", err, "tid", tid)
	}

	applog.Info("engine.suspend", "tid", tid, "window", wid)

	if e.opts.CaptureExcerpts {
		e.captureExcerpt(tid, live.URL)
	}
	return nil
}

// restore recreates a suspended tab as a real browser tab. The new tab gets
// a new id, so the old record is deleted and a fresh one inserted under the
// new key.
func (e *Engine) restore(ctx context.Context, tid string) error {
	m, err := e.store.LoadModel()
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	t := m.Tabs[tid]
	if t == nil || t.State != types.StateSuspended {
		return ErrNotFound
	}

	oldWID := t.WindowID

	var newTab *types.LiveTab
	newWID := oldWID

	// A window id the browser could never have issued is gone by definition.
	oldID, convErr := strconv.Atoi(oldWID)
	winErr := bridge.ErrGone
	if convErr == nil {
		_, winErr = e.browser.GetWindow(ctx, oldID)
	}
	switch {
	case winErr == nil:
		newTab, err = e.browser.CreateTab(ctx, oldID, t.URL)
		if err != nil {
			return fmt.Errorf("open tab in window %s: %w", oldWID, err)
		}
	case errors.Is(winErr, bridge.ErrGone):
		// Original window is gone: a new window is created already
		// navigated to the URL, and window identity shifts. Every
		// persisted tab still pointing at the old id follows.
		win, err := e.browser.CreateWindow(ctx, t.URL)
		if err != nil {
			return fmt.Errorf("open replacement window: %w", err)
		}
		newTab = &win.Tabs[0]
		newWID = types.Key(win.ID)
		if newWID != oldWID {
			for _, sibling := range m.Tabs {
				if sibling.WindowID == oldWID {
					sibling.WindowID = newWID
				}
			}
			if placeholder := m.Windows[oldWID]; placeholder != nil {
				delete(m.Windows, oldWID)
				m.Windows[newWID] = placeholder
			}
		}
		applog.Info("engine.restore.newwindow", "old", oldWID, "new", newWID)
	default:
		return fmt.Errorf("look up window %s: %w", oldWID, winErr)
	}

	now := time.Now()
	w := m.EnsureWindow(newWID)
	if w.Suspended > 0 {
		w.Suspended--
	}
	w.Active++
	w.Closed = false
	w.LastActive = now

	// Identity migration: old key out, new key in. The tab.created event
	// for the new id is suppressed so the count is not bumped twice.
	delete(m.Tabs, tid)
	restored := &types.Tab{
		WindowID:  newWID,
		URL:       t.URL,
		Title:     t.Title,
		FavIcon:   t.FavIcon,
		Index:     newTab.Index,
		LastVisit: now,
		State:     types.StateActive,
	}
	if newTab.Title != "" {
		restored.Title = newTab.Title
	}
	if newTab.FavIconURL != "" {
		restored.FavIcon = newTab.FavIconURL
	}
	m.Tabs[types.Key(newTab.ID)] = restored
	e.markRestored(newTab.ID)

	if err := e.store.SaveModel(m); err != nil {
		return fmt.Errorf("persist restore: %w", err)
	}
	applog.Info("engine.restore", "old", tid, "new", newTab.ID, "window", newWID)
	return nil
}

// delete forgets a tracked tab in any state.
func (e *Engine) delete(ctx context.Context, tid string) error {
	m, err := e.store.LoadModel()
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	t := m.Tabs[tid]
	if t == nil {
		return ErrNotFound
	}

	w := m.Windows[t.WindowID]
	switch t.State {
	case types.StateActive:
		if id, err := strconv.Atoi(tid); err == nil {
			if err := e.browser.RemoveTab(ctx, id); err != nil && !errors.Is(err, bridge.ErrGone) {
				applog.Error("engine.delete.close", err, "tid", tid)
			}
		}
		if w != nil && w.Active > 0 {
			w.Active--
		}
	case types.StateSuspended:
		if w != nil && w.Suspended > 0 {
			w.Suspended--
		}
	}

	delete(m.Tabs, tid)
	if !m.HasTabsIn(t.WindowID) {
		delete(m.Windows, t.WindowID)
	}

	if err := e.store.SaveModel(m); err != nil {
		return fmt.Errorf("persist delete: %w", err)
	}
	applog.Info("engine.delete", "tid", tid)
	return nil
}

// syncAll rebuilds the model from scratch by enumerating the live browser.
// All prior records are discarded, suspended ones included; a resync is
// an explicit re-baseline.
func (e *Engine) syncAll(ctx context.Context) error {
	wins, err := e.browser.AllWindows(ctx)
	if err != nil {
		return fmt.Errorf("enumerate windows: %w", err)
	}

	now := time.Now()
	m := types.NewModel()
	for _, win := range wins {
		wid := types.Key(win.ID)
		w := m.EnsureWindow(wid)
		w.Active = len(win.Tabs)
		w.LastActive = now
		for _, lt := range win.Tabs {
			m.Tabs[types.Key(lt.ID)] = &types.Tab{
				WindowID:  wid,
				URL:       lt.URL,
				Title:     lt.Title,
				FavIcon:   lt.FavIconURL,
				Index:     lt.Index,
				LastVisit: now,
				State:     types.StateActive,
			}
		}
	}

	// The old baseline is gone; pending creation marks mean nothing now.
	e.restoreMarks = make(map[int]time.Time)

	if err := e.store.SaveModel(m); err != nil {
		return fmt.Errorf("persist resync: %w", err)
	}
	applog.Info("engine.sync", "windows", len(m.Windows), "tabs", len(m.Tabs))
	return nil
}

// captureExcerpt fetches readable page text in the background and attaches
// it to the suspended record if the tab is still suspended at the same URL.
func (e *Engine) captureExcerpt(tid, url string) {
	go func() {
		text, err := e.fetchExcerpt(url)
		if err != nil || text == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		e.do(ctx, func(context.Context) error {
			m, err := e.store.LoadModel()
			if err != nil {
				return err
			}
			t := m.Tabs[tid]
			if t == nil || t.State != types.StateSuspended || t.URL != url {
				return nil
			}
			t.Excerpt = text
			e.store.QueueModel(m)
			return nil
		})
	}()
}
