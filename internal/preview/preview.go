// Package preview captures a short readable excerpt of a page at suspend
// time, so dashboard search can still match content after the real tab is
// closed.
package preview

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	readability "github.com/go-shiori/go-readability"
)

// maxExcerptLen caps how much text a suspended record carries.
const maxExcerptLen = 400

var skipPrefixes = []string{"about:", "moz-extension:", "file:", "chrome:", "chrome-extension:", "resource:", "data:"}

// Fetch downloads a URL and extracts a readable-text excerpt.
// Returns an error for non-HTTP URLs or if extraction fails.
func Fetch(url string) (string, error) {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(url, prefix) {
			return "", fmt.Errorf("skipping non-HTTP URL: %s", url)
		}
	}

	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, nil)
	if err != nil {
		return "", fmt.Errorf("extract readable content from %s: %w", url, err)
	}

	return Condense(article.TextContent), nil
}

// Condense collapses whitespace runs and truncates to the excerpt cap on a
// rune boundary.
func Condense(text string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
		if b.Len() >= maxExcerptLen {
			break
		}
	}
	return b.String()
}
