package snapshot

import (
	"fmt"

	"github.com/lotas/tabruhe/internal/applog"
	"github.com/lotas/tabruhe/internal/store"
	"github.com/lotas/tabruhe/internal/types"
)

// Create persists a new revision of the tracked session, unless the URL set
// is identical to the latest snapshot. It returns the revision, whether a
// new one was written, and the diff against the previous revision (nil when
// this is the first).
func Create(st *store.Store, m *types.Model, label string) (rev int, created bool, diff *Result, err error) {
	latest, info, err := st.GetSnapshot(0)
	if err != nil && err != store.ErrNoSnapshot {
		return 0, false, nil, fmt.Errorf("load latest snapshot: %w", err)
	}

	if latest != nil {
		d := Diff(latest, m)
		if len(d.Added) == 0 && len(d.Removed) == 0 {
			applog.Info("snapshot.skipped", "rev", info.Rev)
			return info.Rev, false, nil, nil
		}
		diff = d
	}

	rev, err = st.SaveSnapshot(m, label)
	if err != nil {
		return 0, false, nil, err
	}
	applog.Info("snapshot.created", "rev", rev, "tabs", len(m.Tabs))
	return rev, true, diff, nil
}
