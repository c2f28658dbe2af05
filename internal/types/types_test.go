package types

import (
	"testing"
	"time"
)

func TestEnsureWindowDefaults(t *testing.T) {
	m := NewModel()
	w := m.EnsureWindow("7")

	if w.Alias != "Window 7" {
		t.Errorf("alias = %q, want %q", w.Alias, "Window 7")
	}
	if w.Active != 0 || w.Suspended != 0 {
		t.Errorf("new window counts = %d/%d, want 0/0", w.Active, w.Suspended)
	}
	if w.Closed {
		t.Error("new window should not be closed")
	}

	// Second call returns the same entry, untouched.
	w.Active = 3
	if again := m.EnsureWindow("7"); again.Active != 3 {
		t.Errorf("EnsureWindow replaced existing entry, active = %d", again.Active)
	}
}

func TestTabsInWindowOrderedByIndex(t *testing.T) {
	m := NewModel()
	m.EnsureWindow("1")
	m.Tabs["10"] = &Tab{WindowID: "1", Index: 2, State: StateActive}
	m.Tabs["11"] = &Tab{WindowID: "1", Index: 0, State: StateSuspended}
	m.Tabs["12"] = &Tab{WindowID: "1", Index: 1, State: StateActive}
	m.Tabs["99"] = &Tab{WindowID: "2", Index: 0, State: StateActive}

	got := m.TabsInWindow("1")
	want := []string{"11", "12", "10"}
	if len(got) != len(want) {
		t.Fatalf("got %d ids, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ids[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCheckCounts(t *testing.T) {
	m := NewModel()
	w := m.EnsureWindow("1")
	m.Tabs["10"] = &Tab{WindowID: "1", State: StateActive, LastVisit: time.Now()}
	m.Tabs["11"] = &Tab{WindowID: "1", State: StateSuspended, LastVisit: time.Now()}

	w.Active, w.Suspended = 1, 1
	if err := m.CheckCounts(); err != nil {
		t.Errorf("consistent model reported drift: %v", err)
	}

	w.Active = 2
	if err := m.CheckCounts(); err == nil {
		t.Error("drifted active count not detected")
	}

	w.Active, w.Suspended = 1, -1
	if err := m.CheckCounts(); err == nil {
		t.Error("negative count not detected")
	}
}

func TestCheckCountsOrphanTab(t *testing.T) {
	m := NewModel()
	m.Tabs["5"] = &Tab{WindowID: "9", State: StateSuspended}
	if err := m.CheckCounts(); err == nil {
		t.Error("tab referencing unknown window not detected")
	}
}

func TestComputeStats(t *testing.T) {
	m := NewModel()
	a := m.EnsureWindow("1")
	a.Active, a.Suspended = 3, 1
	b := m.EnsureWindow("2")
	b.Active = 1

	s := m.ComputeStats()
	if s.Windows != 2 || s.Active != 4 || s.Suspended != 1 {
		t.Errorf("stats = %+v, want 2 windows, 4 active, 1 suspended", s)
	}
}
