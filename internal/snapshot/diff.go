package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lotas/tabruhe/internal/types"
)

// Entry is a single tab in a diff result.
type Entry struct {
	URL    string
	Title  string
	Window string
	State  types.TabState
}

// Result holds the comparison of two session models. Added entries are in
// the new model but not the old one; Removed the other way around.
// Comparison is by URL, so suspending a tab is not a change.
type Result struct {
	Added   []Entry
	Removed []Entry
}

// Diff compares two models by URL set.
func Diff(prev, curr *types.Model) *Result {
	result := &Result{}
	oldURLs := urlSet(prev)
	newURLs := urlSet(curr)

	for url, entry := range newURLs {
		if _, ok := oldURLs[url]; !ok {
			result.Added = append(result.Added, entry)
		}
	}
	for url, entry := range oldURLs {
		if _, ok := newURLs[url]; !ok {
			result.Removed = append(result.Removed, entry)
		}
	}

	sort.Slice(result.Added, func(i, j int) bool { return result.Added[i].URL < result.Added[j].URL })
	sort.Slice(result.Removed, func(i, j int) bool { return result.Removed[i].URL < result.Removed[j].URL })
	return result
}

func urlSet(m *types.Model) map[string]Entry {
	set := make(map[string]Entry, len(m.Tabs))
	for _, tab := range m.Tabs {
		window := ""
		if w := m.Windows[tab.WindowID]; w != nil && w.Alias != "" {
			window = w.Alias
		}
		set[tab.URL] = Entry{URL: tab.URL, Title: tab.Title, Window: window, State: tab.State}
	}
	return set
}

// Format renders a diff for the terminal.
func Format(d *Result) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Added: %d  Removed: %d\n", len(d.Added), len(d.Removed))

	if len(d.Added) > 0 {
		sb.WriteString("\n+ Added:\n")
		for _, e := range d.Added {
			writeEntry(&sb, "+", e)
		}
	}
	if len(d.Removed) > 0 {
		sb.WriteString("\n- Removed:\n")
		for _, e := range d.Removed {
			writeEntry(&sb, "-", e)
		}
	}
	if len(d.Added) == 0 && len(d.Removed) == 0 {
		sb.WriteString("\nNo changes.\n")
	}
	return sb.String()
}

func writeEntry(sb *strings.Builder, sign string, e Entry) {
	if e.Window != "" {
		fmt.Fprintf(sb, "  %s %s [%s]\n", sign, e.URL, e.Window)
	} else {
		fmt.Fprintf(sb, "  %s %s\n", sign, e.URL)
	}
}
