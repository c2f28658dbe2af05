package types

import (
	"fmt"
	"strconv"
	"time"
)

// TabState is the persisted lifecycle state of a tracked tab. There are no
// transitional states: suspend and restore are atomic from the model's view.
type TabState string

const (
	StateActive    TabState = "ACTIVE"
	StateSuspended TabState = "SUSPENDED"
)

// Window represents one browser window known to the model. The window id is
// the key of Model.Windows; it is stable only while the real window exists.
type Window struct {
	Alias      string    `json:"alias"`
	Active     int       `json:"active"`
	Suspended  int       `json:"suspended"`
	LastActive time.Time `json:"lastActive"`

	// Closed marks a window whose real counterpart is gone but whose
	// suspended tabs still reference it. The entry stays as a logical
	// placeholder until those tabs are restored or deleted.
	Closed bool `json:"closed,omitempty"`
}

// Tab represents one tracked browser tab, active or suspended. The map key in
// Model.Tabs is the browser tab id; restoring a suspended tab creates a real
// tab with a NEW id, so the old entry is deleted and a new one inserted.
type Tab struct {
	WindowID  string    `json:"windowId"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	FavIcon   string    `json:"favIcon,omitempty"`
	Index     int       `json:"index"`
	LastVisit time.Time `json:"lastVisit"`
	State     TabState  `json:"state"`

	// Excerpt is readable page text captured at suspend time so dashboard
	// search still matches content after the real tab is gone.
	Excerpt string `json:"excerpt,omitempty"`
}

// LiveTab is a real browser tab as reported by the extension.
type LiveTab struct {
	ID         int    `json:"id"`
	WindowID   int    `json:"windowId"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	FavIconURL string `json:"favIconUrl,omitempty"`
	Index      int    `json:"index"`
}

// LiveWindow is a real browser window, optionally populated with its tabs.
type LiveWindow struct {
	ID   int       `json:"id"`
	Tabs []LiveTab `json:"tabs,omitempty"`
}

// Model is the persisted logical state: all known windows and tabs. It is the
// single source of truth; the live browser is a second, independently mutable
// one that the reconciler folds back in.
type Model struct {
	Windows map[string]*Window `json:"windows"`
	Tabs    map[string]*Tab    `json:"tabs"`
}

// NewModel returns a Model with non-nil maps.
func NewModel() *Model {
	return &Model{
		Windows: make(map[string]*Window),
		Tabs:    make(map[string]*Tab),
	}
}

// Key converts a browser id to the string key used in the model maps.
func Key(id int) string {
	return strconv.Itoa(id)
}

// DefaultAlias is the display label a window gets at creation.
func DefaultAlias(wid string) string {
	return "Window " + wid
}

// EnsureWindow returns the window for wid, creating it with a default alias
// and zero counts if the model has not seen it before.
func (m *Model) EnsureWindow(wid string) *Window {
	if w, ok := m.Windows[wid]; ok {
		return w
	}
	w := &Window{
		Alias:      DefaultAlias(wid),
		LastActive: time.Now(),
	}
	m.Windows[wid] = w
	return w
}

// HasTabsIn reports whether any tab still references the window.
func (m *Model) HasTabsIn(wid string) bool {
	for _, t := range m.Tabs {
		if t.WindowID == wid {
			return true
		}
	}
	return false
}

// TabsInWindow returns the ids of tabs referencing the window, ordered by
// their tab-strip index so rows render in a faithful order.
func (m *Model) TabsInWindow(wid string) []string {
	var ids []string
	for id, t := range m.Tabs {
		if t.WindowID == wid {
			ids = append(ids, id)
		}
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && m.Tabs[ids[j]].Index < m.Tabs[ids[j-1]].Index; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}

// Stats aggregates the model for display.
type Stats struct {
	Windows   int
	Active    int
	Suspended int
}

// ComputeStats tallies windows and tab counts.
func (m *Model) ComputeStats() Stats {
	s := Stats{Windows: len(m.Windows)}
	for _, w := range m.Windows {
		s.Active += w.Active
		s.Suspended += w.Suspended
	}
	return s
}

// CheckCounts verifies the central invariant: every window's denormalized
// counts equal the actual tab population, and no count is negative.
func (m *Model) CheckCounts() error {
	for wid, w := range m.Windows {
		if w.Active < 0 || w.Suspended < 0 {
			return fmt.Errorf("window %s has negative counts (%d/%d)", wid, w.Active, w.Suspended)
		}
		active, suspended := 0, 0
		for _, t := range m.Tabs {
			if t.WindowID != wid {
				continue
			}
			switch t.State {
			case StateActive:
				active++
			case StateSuspended:
				suspended++
			}
		}
		if w.Active != active || w.Suspended != suspended {
			return fmt.Errorf("window %s counts drifted: recorded %d/%d, actual %d/%d",
				wid, w.Active, w.Suspended, active, suspended)
		}
	}
	for id, t := range m.Tabs {
		if _, ok := m.Windows[t.WindowID]; !ok {
			return fmt.Errorf("tab %s references unknown window %s", id, t.WindowID)
		}
	}
	return nil
}
