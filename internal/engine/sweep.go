package engine

import (
	"context"
	"errors"
	"strconv"

	"github.com/lotas/tabruhe/internal/applog"
	"github.com/lotas/tabruhe/internal/bridge"
	"github.com/lotas/tabruhe/internal/types"
)

// sweep auto-suspends every active tab idle for strictly longer than the
// threshold. Each tab goes through the same steps as a manual suspend,
// placeholder guard included; a failed close skips that tab without
// aborting the sweep. Every model mutation commits as one write, placeholder
// insertions included: a placeholder is a live tab the moment it opens, and
// its creation event is already marked for suppression.
func (e *Engine) sweep(ctx context.Context) {
	m, err := e.store.LoadModel()
	if err != nil {
		applog.Error("sweep.load", err)
		return
	}

	now := e.now()
	suspended := 0
	mutated := false

	for tid, t := range m.Tabs {
		if t.State != types.StateActive {
			continue
		}
		if now.Sub(t.LastVisit) <= e.opts.IdleAfter {
			continue
		}
		id, err := strconv.Atoi(tid)
		if err != nil {
			continue
		}

		w := m.EnsureWindow(t.WindowID)
		if w.Active <= 1 {
			winID, err := strconv.Atoi(t.WindowID)
			if err != nil {
				continue
			}
			ph, err := e.browser.CreateTab(ctx, winID, placeholderURL)
			if err != nil {
				// Cannot keep the window alive; leave the tab active.
				applog.Error("sweep.placeholder", err, "window", t.WindowID)
				continue
			}
			e.markRestored(ph.ID)
			m.Tabs[types.Key(ph.ID)] = &types.Tab{
				WindowID:  t.WindowID,
				URL:       ph.URL,
				Title:     ph.Title,
				Index:     ph.Index,
				LastVisit: now,
				State:     types.StateActive,
			}
			w.Active++
			mutated = true
		}

		if err := e.browser.RemoveTab(ctx, id); err != nil && !errors.Is(err, bridge.ErrGone) {
			applog.Error("sweep.close", err, "tid", tid)
			continue
		}

		if w.Active > 0 {
			w.Active--
		}
		w.Suspended++
		t.State = types.StateSuspended
		t.LastVisit = now
		suspended++
		mutated = true

		if e.opts.CaptureExcerpts {
			e.captureExcerpt(tid, t.URL)
		}
	}

	if !mutated {
		return
	}
	if err := e.store.SaveModel(m); err != nil {
		applog.Error("sweep.persist", err)
		return
	}
	if suspended > 0 {
		applog.Info("sweep.done", "suspended", suspended)
	}
}
