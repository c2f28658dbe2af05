package store

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lotas/tabruhe/internal/types"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetAbsentKeys(t *testing.T) {
	s := testStore(t)

	values, err := s.Get(KeyWindows, KeyTabs, KeyTheme)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("absent keys returned %d values, want 0", len(values))
	}
}

func TestSetAndGet(t *testing.T) {
	s := testStore(t)

	if err := s.Set(map[string][]byte{KeyTheme: []byte(`"dark"`)}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	values, err := s.Get(KeyTheme)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(values[KeyTheme]) != `"dark"` {
		t.Errorf("theme = %s, want %q", values[KeyTheme], `"dark"`)
	}
}

func TestSetMergesAtKeyGranularity(t *testing.T) {
	s := testStore(t)

	s.Set(map[string][]byte{KeyWindows: []byte(`{"1":{}}`), KeyTheme: []byte(`"light"`)})
	s.Set(map[string][]byte{KeyWindows: []byte(`{"2":{}}`)})

	values, err := s.Get(KeyWindows, KeyTheme)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(values[KeyWindows]) != `{"2":{}}` {
		t.Errorf("windows not replaced: %s", values[KeyWindows])
	}
	if string(values[KeyTheme]) != `"light"` {
		t.Errorf("untouched key clobbered: %s", values[KeyTheme])
	}
}

func TestQueueWriteCoalesces(t *testing.T) {
	s := testStore(t)

	s.QueueWrite(map[string][]byte{KeyTheme: []byte(`"one"`)})
	s.QueueWrite(map[string][]byte{KeyTheme: []byte(`"two"`)})

	// Reads see the latest queued value even before the flush.
	values, err := s.Get(KeyTheme)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(values[KeyTheme]) != `"two"` {
		t.Errorf("Get before flush = %s, want queued value", values[KeyTheme])
	}

	// Nothing durable before the quiet interval elapses.
	var raw []byte
	s.db.QueryRow("SELECT value FROM kv WHERE key = ?", KeyTheme).Scan(&raw)
	if raw != nil {
		t.Error("queued write flushed before debounce interval")
	}

	deadline := time.After(2 * time.Second)
	for {
		s.mu.Lock()
		pending := len(s.queue)
		s.mu.Unlock()
		if pending == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("queued write never flushed")
		case <-time.After(20 * time.Millisecond):
		}
	}
	values, err = s.Get(KeyTheme)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(values[KeyTheme]) != `"two"` {
		t.Errorf("flushed value = %s, want coalesced latest", values[KeyTheme])
	}
}

func TestFlushWritesImmediately(t *testing.T) {
	s := testStore(t)

	s.QueueWrite(map[string][]byte{KeyTabs: []byte(`{}`)})
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	values, _ := s.Get(KeyTabs)
	if string(values[KeyTabs]) != `{}` {
		t.Errorf("flush did not persist queued value: %s", values[KeyTabs])
	}
}

func TestSubscribeNotifiesChangedKeys(t *testing.T) {
	s := testStore(t)
	ch := s.Subscribe()

	s.Set(map[string][]byte{KeyWindows: []byte(`{}`)})

	select {
	case keys := <-ch:
		if len(keys) != 1 || keys[0] != KeyWindows {
			t.Errorf("notified keys = %v, want [windows]", keys)
		}
	case <-time.After(time.Second):
		t.Fatal("no change notification received")
	}
}

func TestModelRoundTrip(t *testing.T) {
	s := testStore(t)

	m := types.NewModel()
	w := m.EnsureWindow("3")
	w.Active = 2
	m.Tabs["41"] = &types.Tab{
		WindowID:  "3",
		URL:       "https://example.com",
		Title:     "Example",
		State:     types.StateActive,
		LastVisit: time.Now().UTC(),
	}
	if err := s.SaveModel(m); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}

	got, err := s.LoadModel()
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if got.Windows["3"] == nil || got.Windows["3"].Active != 2 {
		t.Errorf("window not round-tripped: %+v", got.Windows["3"])
	}
	tab := got.Tabs["41"]
	if tab == nil || tab.URL != "https://example.com" || tab.State != types.StateActive {
		t.Errorf("tab not round-tripped: %+v", tab)
	}
}

func TestLoadModelEmpty(t *testing.T) {
	s := testStore(t)

	m, err := s.LoadModel()
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if m.Windows == nil || m.Tabs == nil {
		t.Fatal("empty model has nil maps")
	}
	if len(m.Windows) != 0 || len(m.Tabs) != 0 {
		t.Errorf("empty model not empty: %d windows, %d tabs", len(m.Windows), len(m.Tabs))
	}
}

func TestCompressRoundTrip(t *testing.T) {
	// Repetitive payload compresses; the frame must decode back exactly.
	big := []byte(strings.Repeat(`{"windowId":"1","state":"SUSPENDED"},`, 200))
	framed := compress(big)
	if len(framed) >= len(big) {
		t.Errorf("repetitive payload did not shrink: %d >= %d", len(framed), len(big))
	}
	back, err := decompress(framed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(back, big) {
		t.Error("round trip mismatch")
	}

	// Tiny payload is stored raw and passes through untouched.
	small := []byte(`"dark"`)
	if got := compress(small); !bytes.Equal(got, small) {
		t.Errorf("small payload framed: %q", got)
	}
	back, err = decompress(small)
	if err != nil {
		t.Fatalf("decompress raw: %v", err)
	}
	if !bytes.Equal(back, small) {
		t.Error("raw passthrough mismatch")
	}
}
