package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/lotas/tabruhe/internal/types"
)

func parseTab(raw json.RawMessage) (*types.LiveTab, error) {
	var t types.LiveTab
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse tab: %w", err)
	}
	return &t, nil
}

func parseWindow(raw json.RawMessage) (*types.LiveWindow, error) {
	var w types.LiveWindow
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("parse window: %w", err)
	}
	return &w, nil
}

func parseWindows(raw json.RawMessage) ([]types.LiveWindow, error) {
	var ws []types.LiveWindow
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("parse windows: %w", err)
	}
	return ws, nil
}

// parseEvent converts a pushed wire message into an Event.
func parseEvent(msg wireMsg) (Event, error) {
	ev := Event{
		Type:     msg.Type,
		TabID:    msg.TabID,
		WindowID: msg.WindowID,
		Index:    msg.Index,
	}
	switch msg.Type {
	case "tab.created", "tab.updated":
		tab, err := parseTab(msg.Tab)
		if err != nil {
			return Event{}, err
		}
		ev.Tab = tab
	case "tab.removed", "tab.moved", "window.removed":
		// id/index fields only
	default:
		return Event{}, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return ev, nil
}
