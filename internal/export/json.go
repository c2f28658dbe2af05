package export

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/lotas/tabruhe/internal/types"
)

type jsonExport struct {
	ExportedAt time.Time    `json:"exported_at"`
	Active     int          `json:"active_tabs"`
	Suspended  int          `json:"suspended_tabs"`
	Windows    []jsonWindow `json:"windows"`
}

type jsonWindow struct {
	ID        string    `json:"id"`
	Alias     string    `json:"alias"`
	Closed    bool      `json:"closed,omitempty"`
	Active    int       `json:"active"`
	Suspended int       `json:"suspended"`
	Tabs      []jsonTab `json:"tabs"`
}

type jsonTab struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	Domain          string    `json:"domain"`
	State           string    `json:"state"`
	Index           int       `json:"index"`
	LastVisit       time.Time `json:"last_visit"`
	LastVisitPretty string    `json:"last_visit_pretty"`
	Excerpt         string    `json:"excerpt,omitempty"`
}

// JSON formats the tracked session as an indented JSON document.
func JSON(m *types.Model) (string, error) {
	stats := m.ComputeStats()
	out := jsonExport{
		ExportedAt: time.Now(),
		Active:     stats.Active,
		Suspended:  stats.Suspended,
		Windows:    make([]jsonWindow, 0, len(m.Windows)),
	}

	for _, wid := range sortedWindowIDs(m) {
		w := m.Windows[wid]
		alias := w.Alias
		if alias == "" {
			alias = types.DefaultAlias(wid)
		}
		win := jsonWindow{
			ID:        wid,
			Alias:     alias,
			Closed:    w.Closed,
			Active:    w.Active,
			Suspended: w.Suspended,
			Tabs:      make([]jsonTab, 0, w.Active+w.Suspended),
		}
		for _, tid := range m.TabsInWindow(wid) {
			tab := m.Tabs[tid]
			win.Tabs = append(win.Tabs, jsonTab{
				ID:              tid,
				Title:           tab.Title,
				URL:             tab.URL,
				Domain:          extractDomain(tab.URL),
				State:           string(tab.State),
				Index:           tab.Index,
				LastVisit:       tab.LastVisit,
				LastVisitPretty: relativeTime(tab.LastVisit),
				Excerpt:         tab.Excerpt,
			})
		}
		out.Windows = append(out.Windows, win)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Hostname()
}
