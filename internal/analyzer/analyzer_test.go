package analyzer

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lotas/tabruhe/internal/types"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com/page#section", "https://example.com/page"},
		{"https://example.com/page/", "https://example.com/page"},
		{"https://example.com/page?b=2&a=1", "https://example.com/page?a=1&b=2"},
		{"https://example.com", "https://example.com"},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.input); got != tt.expected {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFindDuplicates(t *testing.T) {
	m := types.NewModel()
	m.Tabs["1"] = &types.Tab{WindowID: "1", URL: "https://example.com/page#a", State: types.StateActive}
	m.Tabs["2"] = &types.Tab{WindowID: "1", URL: "https://example.com/page#b", State: types.StateActive}
	m.Tabs["3"] = &types.Tab{WindowID: "2", URL: "https://example.com/other", State: types.StateActive}
	// A suspended copy of the same page still counts.
	m.Tabs["4"] = &types.Tab{WindowID: "2", URL: "https://example.com/page?x=1&y=2", State: types.StateSuspended}
	m.Tabs["5"] = &types.Tab{WindowID: "2", URL: "https://example.com/page?y=2&x=1", State: types.StateActive}

	groups := FindDuplicates(m)
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if strings.Join(groups[0], ",") != "1,2" {
		t.Errorf("group 0 = %v, want [1 2]", groups[0])
	}
	if strings.Join(groups[1], ",") != "4,5" {
		t.Errorf("group 1 = %v, want [4 5]", groups[1])
	}
}

func TestFindStale(t *testing.T) {
	now := time.Now()
	m := types.NewModel()
	m.Tabs["1"] = &types.Tab{URL: "https://a.example.com", State: types.StateActive, LastVisit: now.Add(-10 * 24 * time.Hour)}
	m.Tabs["2"] = &types.Tab{URL: "https://b.example.com", State: types.StateActive, LastVisit: now.Add(-time.Hour)}
	m.Tabs["3"] = &types.Tab{URL: "https://c.example.com", State: types.StateSuspended, LastVisit: now.Add(-30 * 24 * time.Hour)}
	m.Tabs["4"] = &types.Tab{URL: "https://d.example.com", State: types.StateActive, LastVisit: now.Add(-3 * 24 * time.Hour)}

	stale := FindStale(m, 7*24*time.Hour)
	if len(stale) != 1 {
		t.Fatalf("stale = %v, want only the 10-day tab", stale)
	}
	if stale[0].ID != "1" || stale[0].IdleDays != 10 {
		t.Errorf("stale[0] = %+v, want id 1 idle 10d", stale[0])
	}

	stale = FindStale(m, 24*time.Hour)
	if len(stale) != 2 || stale[0].ID != "1" || stale[1].ID != "4" {
		t.Errorf("stale = %v, want oldest first [1 4]", stale)
	}
}

func TestCheckDeadLinks(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer okServer.Close()
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer notFound.Close()

	m := types.NewModel()
	m.Tabs["1"] = &types.Tab{URL: okServer.URL + "/page", State: types.StateSuspended}
	m.Tabs["2"] = &types.Tab{URL: notFound.URL + "/missing", State: types.StateSuspended}
	m.Tabs["3"] = &types.Tab{URL: "about:blank", State: types.StateSuspended}
	// Active tabs are alive in the browser; nothing to probe.
	m.Tabs["4"] = &types.Tab{URL: notFound.URL + "/also-missing", State: types.StateActive}

	dead := CheckDeadLinks(m)
	if len(dead) != 1 {
		t.Fatalf("dead = %v, want only the 404 suspended tab", dead)
	}
	if dead[0].ID != "2" || dead[0].Reason != "404" {
		t.Errorf("dead[0] = %+v, want id 2 reason 404", dead[0])
	}
}

func TestReportFormat(t *testing.T) {
	now := time.Now()
	m := types.NewModel()
	w := m.EnsureWindow("1")
	w.Alias = "Reading"
	w.Active = 2
	m.Tabs["1"] = &types.Tab{WindowID: "1", URL: "https://example.com/page", Title: "Page", State: types.StateActive, LastVisit: now.Add(-9 * 24 * time.Hour)}
	m.Tabs["2"] = &types.Tab{WindowID: "1", URL: "https://example.com/page", Title: "Page", State: types.StateActive, LastVisit: now}

	r := Analyze(m, 7*24*time.Hour, false)
	out := r.Format(m)

	if !strings.Contains(out, "1 windows, 2 active tabs, 0 suspended") {
		t.Errorf("missing stats line:\n%s", out)
	}
	if !strings.Contains(out, "Duplicates (1 groups):") {
		t.Errorf("missing duplicates section:\n%s", out)
	}
	if !strings.Contains(out, "in Reading [ACTIVE]") {
		t.Errorf("duplicate entry missing window alias:\n%s", out)
	}
	if !strings.Contains(out, "idle 9d") {
		t.Errorf("missing stale entry:\n%s", out)
	}

	empty := Analyze(types.NewModel(), time.Hour, false)
	if out := empty.Format(types.NewModel()); !strings.Contains(out, "Nothing to report.") {
		t.Errorf("empty report = %q", out)
	}
}
