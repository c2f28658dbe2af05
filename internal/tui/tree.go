package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lotas/tabruhe/internal/types"
)

// Node is one visible row: a window header or a tab beneath it.
type Node struct {
	WindowID string
	Window   *types.Window
	TabID    string
	Tab      *types.Tab
}

// Tree renders the session as collapsible window cards. A non-empty Query
// filters tab rows by title, URL, and captured excerpt; windows with no
// matching tabs are hidden while filtering.
type Tree struct {
	Model    *types.Model
	Expanded map[string]bool
	Query    string
	Cursor   int
	Offset   int
	Width    int
	Height   int
}

func NewTree(m *types.Model) Tree {
	t := Tree{Model: m, Expanded: make(map[string]bool)}
	for wid := range m.Windows {
		t.Expanded[wid] = true
	}
	return t
}

// Rebuild swaps in a fresh model while keeping cursor, scroll, expansion,
// and the active query.
func (t *Tree) Rebuild(m *types.Model) {
	t.Model = m
	for wid := range m.Windows {
		if _, known := t.Expanded[wid]; !known {
			t.Expanded[wid] = true
		}
	}
	t.clamp()
}

func (t Tree) windowIDs() []string {
	ids := make([]string, 0, len(t.Model.Windows))
	for wid := range t.Model.Windows {
		ids = append(ids, wid)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids
}

func (t Tree) matches(tab *types.Tab) bool {
	if t.Query == "" {
		return true
	}
	q := strings.ToLower(t.Query)
	return strings.Contains(strings.ToLower(tab.Title), q) ||
		strings.Contains(strings.ToLower(tab.URL), q) ||
		strings.Contains(strings.ToLower(tab.Excerpt), q)
}

// VisibleNodes returns the flat list of rows in display order.
func (t Tree) VisibleNodes() []Node {
	var nodes []Node
	for _, wid := range t.windowIDs() {
		w := t.Model.Windows[wid]

		var tabs []Node
		if t.Expanded[wid] || t.Query != "" {
			for _, tid := range t.Model.TabsInWindow(wid) {
				tab := t.Model.Tabs[tid]
				if t.matches(tab) {
					tabs = append(tabs, Node{WindowID: wid, TabID: tid, Tab: tab})
				}
			}
		}
		if t.Query != "" && len(tabs) == 0 {
			continue
		}
		nodes = append(nodes, Node{WindowID: wid, Window: w})
		nodes = append(nodes, tabs...)
	}
	return nodes
}

// SelectedNode returns the row under the cursor, nil when the list is empty.
func (t Tree) SelectedNode() *Node {
	nodes := t.VisibleNodes()
	if t.Cursor < 0 || t.Cursor >= len(nodes) {
		return nil
	}
	return &nodes[t.Cursor]
}

func (t *Tree) MoveUp() {
	if t.Cursor > 0 {
		t.Cursor--
	}
	t.scroll()
}

func (t *Tree) MoveDown() {
	if t.Cursor < len(t.VisibleNodes())-1 {
		t.Cursor++
	}
	t.scroll()
}

// Toggle flips expansion of the window under the cursor (or the cursor
// tab's window).
func (t *Tree) Toggle() {
	node := t.SelectedNode()
	if node == nil {
		return
	}
	t.Expanded[node.WindowID] = !t.Expanded[node.WindowID]
	t.clamp()
}

func (t *Tree) clamp() {
	if n := len(t.VisibleNodes()); t.Cursor >= n {
		t.Cursor = n - 1
	}
	if t.Cursor < 0 {
		t.Cursor = 0
	}
	t.scroll()
}

func (t *Tree) scroll() {
	if t.Height <= 0 {
		return
	}
	if t.Cursor < t.Offset {
		t.Offset = t.Cursor
	}
	if t.Cursor >= t.Offset+t.Height {
		t.Offset = t.Cursor - t.Height + 1
	}
}

// SetQuery replaces the search filter and resets the cursor to the top.
func (t *Tree) SetQuery(q string) {
	t.Query = q
	t.Cursor = 0
	t.Offset = 0
}

func (t Tree) View(styles Styles) string {
	nodes := t.VisibleNodes()
	if len(nodes) == 0 {
		if t.Query != "" {
			return styles.Dim.Render("  No tabs match " + fmt.Sprintf("%q", t.Query))
		}
		return styles.Dim.Render("  No windows tracked yet. Press S to sync from the browser.")
	}

	end := len(nodes)
	if t.Height > 0 && t.Offset+t.Height < end {
		end = t.Offset + t.Height
	}

	var b strings.Builder
	for i := t.Offset; i < end; i++ {
		line := t.renderNode(nodes[i], styles)
		if i == t.Cursor {
			line = styles.Cursor.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (t Tree) renderNode(n Node, styles Styles) string {
	if n.Window != nil {
		marker := "▾"
		if !t.Expanded[n.WindowID] && t.Query == "" {
			marker = "▸"
		}
		alias := n.Window.Alias
		if alias == "" {
			alias = types.DefaultAlias(n.WindowID)
		}
		head := fmt.Sprintf("%s %s — %d A / %d S", marker, alias, n.Window.Active, n.Window.Suspended)
		if n.Window.Closed {
			head += "  (closed)"
		}
		return styles.WindowHead.Render(truncate(head, t.Width))
	}

	title := n.Tab.Title
	if title == "" {
		title = n.Tab.URL
	}
	if n.Tab.State == types.StateSuspended {
		return "  " + styles.Suspended.Render(truncate("⏸ "+title, t.Width-2))
	}
	return "  " + styles.Active.Render(truncate("● "+title, t.Width-2))
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
