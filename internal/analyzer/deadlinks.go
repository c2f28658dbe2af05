package analyzer

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lotas/tabruhe/internal/types"
)

// DeadLink flags a suspended tab whose URL no longer resolves. Its real tab
// was closed at suspend time, so a dead URL means the page cannot come back.
type DeadLink struct {
	ID     string
	Reason string
}

var skipPrefixes = []string{"about:", "moz-extension:", "chrome:", "chrome-extension:", "file:", "resource:", "data:"}

func shouldSkip(url string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// CheckDeadLinks probes every suspended tab's URL with a HEAD request, at
// most ten in flight. Only hard negatives (404/410, unreachable, malformed)
// are reported; transient server errors are not a dead page.
func CheckDeadLinks(m *types.Model) []DeadLink {
	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	sem := make(chan struct{}, 10)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var dead []DeadLink

	report := func(tid, reason string) {
		mu.Lock()
		dead = append(dead, DeadLink{ID: tid, Reason: reason})
		mu.Unlock()
	}

	for tid, tab := range m.Tabs {
		if tab.State != types.StateSuspended || shouldSkip(tab.URL) {
			continue
		}

		wg.Add(1)
		go func(tid, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			req, err := http.NewRequest(http.MethodHead, url, nil)
			if err != nil {
				report(tid, "invalid URL")
				return
			}
			resp, err := client.Do(req)
			if err != nil {
				report(tid, "unreachable")
				return
			}
			resp.Body.Close()

			if resp.StatusCode == 404 || resp.StatusCode == 410 {
				report(tid, fmt.Sprintf("%d", resp.StatusCode))
			}
		}(tid, tab.URL)
	}

	wg.Wait()
	return dead
}
