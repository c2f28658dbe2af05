package bridge

import (
	"context"
	"fmt"

	"github.com/lotas/tabruhe/internal/types"
)

// The control surface the engine depends on. Each call is one correlated
// round trip to the extension; ErrGone means the target no longer exists.

// GetTab fetches a live tab by id.
func (b *Bridge) GetTab(ctx context.Context, tabID int) (*types.LiveTab, error) {
	resp, err := b.call(ctx, controlMsg{Action: "tab.get", TabID: tabID})
	if err != nil {
		return nil, err
	}
	return parseTab(resp.Tab)
}

// CreateTab opens a new tab with the given URL inside an existing window.
func (b *Bridge) CreateTab(ctx context.Context, windowID int, url string) (*types.LiveTab, error) {
	resp, err := b.call(ctx, controlMsg{Action: "tab.create", WindowID: windowID, URL: url})
	if err != nil {
		return nil, err
	}
	return parseTab(resp.Tab)
}

// RemoveTab closes a real tab.
func (b *Bridge) RemoveTab(ctx context.Context, tabID int) error {
	_, err := b.call(ctx, controlMsg{Action: "tab.remove", TabID: tabID})
	return err
}

// GetWindow fetches a live window by id, without its tabs.
func (b *Bridge) GetWindow(ctx context.Context, windowID int) (*types.LiveWindow, error) {
	resp, err := b.call(ctx, controlMsg{Action: "window.get", WindowID: windowID})
	if err != nil {
		return nil, err
	}
	return parseWindow(resp.Window)
}

// CreateWindow opens a brand-new window navigated to the given URL. The
// returned window includes the initial tab the browser opened for it.
func (b *Bridge) CreateWindow(ctx context.Context, url string) (*types.LiveWindow, error) {
	resp, err := b.call(ctx, controlMsg{Action: "window.create", URL: url})
	if err != nil {
		return nil, err
	}
	win, err := parseWindow(resp.Window)
	if err != nil {
		return nil, err
	}
	if len(win.Tabs) == 0 {
		return nil, fmt.Errorf("window.create returned no initial tab")
	}
	return win, nil
}

// AllWindows enumerates every live window with its tabs populated.
func (b *Bridge) AllWindows(ctx context.Context) ([]types.LiveWindow, error) {
	resp, err := b.call(ctx, controlMsg{Action: "query.all"})
	if err != nil {
		return nil, err
	}
	return parseWindows(resp.Windows)
}
