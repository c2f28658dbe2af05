package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lotas/tabruhe/internal/types"
)

// Markdown formats the tracked session as a markdown document, one section
// per window. Suspended tabs keep their links, so the export doubles as a
// recoverable reading list.
func Markdown(m *types.Model) string {
	var b strings.Builder

	stats := m.ComputeStats()
	fmt.Fprintf(&b, "# Tabruhe Session — %d active, %d suspended\n", stats.Active, stats.Suspended)
	fmt.Fprintf(&b, "> Exported %s\n", time.Now().Format("2006-01-02 15:04"))

	for _, wid := range sortedWindowIDs(m) {
		w := m.Windows[wid]
		title := w.Alias
		if title == "" {
			title = types.DefaultAlias(wid)
		}
		if w.Closed {
			title += " (closed)"
		}
		fmt.Fprintf(&b, "\n## %s — %d active / %d suspended\n\n", title, w.Active, w.Suspended)

		for _, tid := range m.TabsInWindow(wid) {
			tab := m.Tabs[tid]
			name := tab.Title
			if name == "" {
				name = tab.URL
			}
			marker := ""
			if tab.State == types.StateSuspended {
				marker = " [suspended]"
			}
			fmt.Fprintf(&b, "- [%s](%s)%s — %s\n", name, tab.URL, marker, relativeTime(tab.LastVisit))
		}
	}

	return b.String()
}

func sortedWindowIDs(m *types.Model) []string {
	ids := make([]string, 0, len(m.Windows))
	for wid := range m.Windows {
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

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
