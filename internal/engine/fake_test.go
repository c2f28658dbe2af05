package engine

import (
	"context"
	"sort"

	"github.com/lotas/tabruhe/internal/bridge"
	"github.com/lotas/tabruhe/internal/types"
)

// fakeBrowser is an in-memory control surface for engine tests.
type fakeBrowser struct {
	tabs    map[int]types.LiveTab
	windows map[int]bool
	nextID  int

	removed   []int
	removeErr map[int]error // per-tab injected close failure
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		tabs:      make(map[int]types.LiveTab),
		windows:   make(map[int]bool),
		nextID:    1000,
		removeErr: make(map[int]error),
	}
}

// addTab seeds a live tab, creating the window as needed.
func (f *fakeBrowser) addTab(id, windowID int, url string) types.LiveTab {
	f.windows[windowID] = true
	tab := types.LiveTab{ID: id, WindowID: windowID, URL: url, Index: len(f.tabsIn(windowID))}
	f.tabs[id] = tab
	return tab
}

func (f *fakeBrowser) tabsIn(windowID int) []types.LiveTab {
	var out []types.LiveTab
	for _, t := range f.tabs {
		if t.WindowID == windowID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (f *fakeBrowser) GetTab(_ context.Context, tabID int) (*types.LiveTab, error) {
	t, ok := f.tabs[tabID]
	if !ok {
		return nil, bridge.ErrGone
	}
	return &t, nil
}

func (f *fakeBrowser) CreateTab(_ context.Context, windowID int, url string) (*types.LiveTab, error) {
	if !f.windows[windowID] {
		return nil, bridge.ErrGone
	}
	f.nextID++
	t := f.addTab(f.nextID, windowID, url)
	return &t, nil
}

func (f *fakeBrowser) RemoveTab(_ context.Context, tabID int) error {
	if err, ok := f.removeErr[tabID]; ok {
		return err
	}
	if _, ok := f.tabs[tabID]; !ok {
		return bridge.ErrGone
	}
	delete(f.tabs, tabID)
	f.removed = append(f.removed, tabID)
	return nil
}

func (f *fakeBrowser) GetWindow(_ context.Context, windowID int) (*types.LiveWindow, error) {
	if !f.windows[windowID] {
		return nil, bridge.ErrGone
	}
	return &types.LiveWindow{ID: windowID}, nil
}

func (f *fakeBrowser) CreateWindow(_ context.Context, url string) (*types.LiveWindow, error) {
	f.nextID++
	winID := f.nextID
	f.windows[winID] = true
	f.nextID++
	tab := f.addTab(f.nextID, winID, url)
	return &types.LiveWindow{ID: winID, Tabs: []types.LiveTab{tab}}, nil
}

func (f *fakeBrowser) AllWindows(_ context.Context) ([]types.LiveWindow, error) {
	var ids []int
	for id := range f.windows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []types.LiveWindow
	for _, id := range ids {
		out = append(out, types.LiveWindow{ID: id, Tabs: f.tabsIn(id)})
	}
	return out, nil
}
