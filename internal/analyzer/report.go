package analyzer

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/tabruhe/internal/types"
)

// Report is the result of a full session analysis.
type Report struct {
	Stats      types.Stats
	Duplicates [][]string
	Stale      []StaleTab
	Dead       []DeadLink
}

// Analyze runs every check over the model. Dead-link probing hits the
// network and is optional.
func Analyze(m *types.Model, staleAfter time.Duration, checkLinks bool) Report {
	r := Report{
		Stats:      m.ComputeStats(),
		Duplicates: FindDuplicates(m),
		Stale:      FindStale(m, staleAfter),
	}
	if checkLinks {
		r.Dead = CheckDeadLinks(m)
	}
	return r
}

// Format renders the report for the terminal.
func (r Report) Format(m *types.Model) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d windows, %d active tabs, %d suspended\n",
		r.Stats.Windows, r.Stats.Active, r.Stats.Suspended)

	if len(r.Duplicates) > 0 {
		fmt.Fprintf(&b, "\nDuplicates (%d groups):\n", len(r.Duplicates))
		for _, group := range r.Duplicates {
			fmt.Fprintf(&b, "  %s\n", describe(m, group[0]))
			for _, tid := range group {
				tab := m.Tabs[tid]
				fmt.Fprintf(&b, "    #%s in %s [%s]\n", tid, windowName(m, tab.WindowID), tab.State)
			}
		}
	}

	if len(r.Stale) > 0 {
		fmt.Fprintf(&b, "\nStale (%d tabs):\n", len(r.Stale))
		for _, s := range r.Stale {
			fmt.Fprintf(&b, "  #%s %s (idle %dd)\n", s.ID, describe(m, s.ID), s.IdleDays)
		}
	}

	if len(r.Dead) > 0 {
		fmt.Fprintf(&b, "\nDead links (%d suspended tabs):\n", len(r.Dead))
		for _, d := range r.Dead {
			fmt.Fprintf(&b, "  #%s %s (%s)\n", d.ID, describe(m, d.ID), d.Reason)
		}
	}

	if len(r.Duplicates) == 0 && len(r.Stale) == 0 && len(r.Dead) == 0 {
		b.WriteString("\nNothing to report.\n")
	}
	return b.String()
}

func describe(m *types.Model, tid string) string {
	tab := m.Tabs[tid]
	if tab == nil {
		return tid
	}
	if tab.Title != "" {
		return tab.Title
	}
	return tab.URL
}

func windowName(m *types.Model, wid string) string {
	if w := m.Windows[wid]; w != nil && w.Alias != "" {
		return w.Alias
	}
	return types.DefaultAlias(wid)
}
