package preview

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html><head><title>Test Article</title></head>
<body>
<article>
<h1>Test Article</h1>
<p>This is the main content of the article. It has enough text to be considered readable content by the readability algorithm. The quick brown fox jumps over the lazy dog. This paragraph needs to be long enough for readability to pick it up as meaningful content.</p>
<p>Second paragraph with more meaningful content that helps the readability parser understand this is a real article and not just navigation or boilerplate. We need several sentences here to make this work properly.</p>
</article>
</body></html>`))
	}))
	defer srv.Close()

	text, err := Fetch(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text == "" {
		t.Fatal("expected non-empty excerpt")
	}
	if !strings.Contains(text, "main content") {
		t.Errorf("excerpt missing article text: %q", text)
	}
	if len(text) > maxExcerptLen+4 {
		t.Errorf("excerpt too long: %d bytes", len(text))
	}
}

func TestFetchSkipsNonHTTP(t *testing.T) {
	urls := []string{
		"about:blank",
		"moz-extension://abc/page",
		"file:///home/user/doc.html",
		"chrome://settings",
		"chrome-extension://abc/popup.html",
		"data:text/html,hello",
	}
	for _, u := range urls {
		if _, err := Fetch(u); err == nil {
			t.Errorf("expected error for %q, got nil", u)
		}
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	if _, err := Fetch(srv.URL); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestCondense(t *testing.T) {
	got := Condense("  hello \n\t world  \n again ")
	if got != "hello world again" {
		t.Errorf("Condense = %q", got)
	}

	long := strings.Repeat("word ", 200)
	if c := Condense(long); len(c) > maxExcerptLen+4 {
		t.Errorf("long text not truncated: %d bytes", len(c))
	}
}
