package analyzer

import (
	"sort"
	"time"

	"github.com/lotas/tabruhe/internal/types"
)

// StaleTab is an active tab that has been idle beyond the threshold and is
// a candidate for suspension at the next sweep.
type StaleTab struct {
	ID       string
	IdleDays int
}

// FindStale returns active tabs idle for strictly longer than the threshold,
// oldest first. Suspended tabs are already resting and never stale.
func FindStale(m *types.Model, threshold time.Duration) []StaleTab {
	now := time.Now()
	var stale []StaleTab
	for tid, tab := range m.Tabs {
		if tab.State != types.StateActive {
			continue
		}
		age := now.Sub(tab.LastVisit)
		if age <= threshold {
			continue
		}
		stale = append(stale, StaleTab{ID: tid, IdleDays: int(age.Hours() / 24)})
	}
	sort.Slice(stale, func(i, j int) bool {
		if stale[i].IdleDays != stale[j].IdleDays {
			return stale[i].IdleDays > stale[j].IdleDays
		}
		return stale[i].ID < stale[j].ID
	})
	return stale
}
