package tui

import (
	"testing"

	"github.com/lotas/tabruhe/internal/types"
)

func sessionModel() *types.Model {
	m := types.NewModel()
	w1 := m.EnsureWindow("1")
	w1.Alias = "Research"
	w1.Active = 1
	w1.Suspended = 1
	m.Tabs["10"] = &types.Tab{WindowID: "1", URL: "https://go.dev/doc", Title: "Go docs", Index: 0, State: types.StateActive}
	m.Tabs["11"] = &types.Tab{
		WindowID: "1", URL: "https://example.com/article", Title: "Deep Dive", Index: 1,
		State: types.StateSuspended, Excerpt: "An article about goroutine scheduling.",
	}

	w2 := m.EnsureWindow("2")
	w2.Active = 1
	m.Tabs["20"] = &types.Tab{WindowID: "2", URL: "https://news.example.com", Title: "News", Index: 0, State: types.StateActive}
	return m
}

func TestVisibleNodesLayout(t *testing.T) {
	tree := NewTree(sessionModel())

	nodes := tree.VisibleNodes()
	if len(nodes) != 5 {
		t.Fatalf("nodes = %d, want 2 windows + 3 tabs", len(nodes))
	}
	if nodes[0].Window == nil || nodes[0].WindowID != "1" {
		t.Errorf("node 0 = %+v, want window 1 header", nodes[0])
	}
	if nodes[1].Tab == nil || nodes[1].TabID != "10" {
		t.Errorf("node 1 = %+v, want tab 10 (index order)", nodes[1])
	}
	if nodes[3].Window == nil || nodes[3].WindowID != "2" {
		t.Errorf("node 3 = %+v, want window 2 header", nodes[3])
	}
}

func TestToggleCollapsesWindow(t *testing.T) {
	tree := NewTree(sessionModel())

	tree.Toggle() // cursor starts on window 1 header
	nodes := tree.VisibleNodes()
	if len(nodes) != 3 {
		t.Fatalf("nodes after collapse = %d, want 2 headers + 1 tab", len(nodes))
	}
	tree.Toggle()
	if len(tree.VisibleNodes()) != 5 {
		t.Error("expand did not bring tabs back")
	}
}

func TestQueryMatchesExcerpt(t *testing.T) {
	tree := NewTree(sessionModel())

	// Content search: the query only appears in the captured excerpt.
	tree.SetQuery("goroutine")
	nodes := tree.VisibleNodes()
	if len(nodes) != 2 {
		t.Fatalf("nodes = %d, want window 1 header + matching tab", len(nodes))
	}
	if nodes[1].TabID != "11" {
		t.Errorf("matched tab = %s, want 11", nodes[1].TabID)
	}

	tree.SetQuery("nothing-matches-this")
	if len(tree.VisibleNodes()) != 0 {
		t.Error("empty result should hide all windows")
	}

	tree.SetQuery("")
	if len(tree.VisibleNodes()) != 5 {
		t.Error("clearing the query did not restore the full view")
	}
}

func TestQueryMatchesURLCaseInsensitive(t *testing.T) {
	tree := NewTree(sessionModel())
	tree.SetQuery("NEWS.EXAMPLE")
	nodes := tree.VisibleNodes()
	if len(nodes) != 2 || nodes[1].TabID != "20" {
		t.Errorf("nodes = %+v, want window 2 with its tab", nodes)
	}
}

func TestCursorClampsOnRebuild(t *testing.T) {
	m := sessionModel()
	tree := NewTree(m)
	tree.Cursor = 4

	smaller := types.NewModel()
	smaller.EnsureWindow("1").Active = 1
	smaller.Tabs["10"] = &types.Tab{WindowID: "1", URL: "https://go.dev", State: types.StateActive}
	tree.Rebuild(smaller)

	if tree.Cursor != 1 {
		t.Errorf("cursor = %d, want clamped to last row", tree.Cursor)
	}
	if node := tree.SelectedNode(); node == nil || node.TabID != "10" {
		t.Errorf("selected = %+v, want the remaining tab", node)
	}
}

func TestMoveScrollsOffset(t *testing.T) {
	tree := NewTree(sessionModel())
	tree.Height = 2

	for i := 0; i < 4; i++ {
		tree.MoveDown()
	}
	if tree.Cursor != 4 {
		t.Fatalf("cursor = %d, want 4", tree.Cursor)
	}
	if tree.Offset != 3 {
		t.Errorf("offset = %d, want window scrolled to keep cursor visible", tree.Offset)
	}

	for i := 0; i < 4; i++ {
		tree.MoveUp()
	}
	if tree.Offset != 0 {
		t.Errorf("offset = %d, want back at top", tree.Offset)
	}
}
