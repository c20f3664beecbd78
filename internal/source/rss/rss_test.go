package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/desk-dashboard/internal/source"
	"github.com/desk-dashboard/pkg/logger"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test</title>
  <item>
    <title>Older</title>
    <link>https://example.com/older</link>
    <description>&lt;p&gt;Old &lt;b&gt;news&lt;/b&gt;&lt;/p&gt;</description>
    <pubDate>Mon, 01 Jun 2026 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Newest</title>
    <link>https://example.com/newest</link>
    <description>Fresh</description>
    <pubDate>Wed, 03 Jun 2026 10:00:00 GMT</pubDate>
  </item>
  <item>
    <link>https://example.com/untitled</link>
    <description>No title here</description>
  </item>
  <item>
    <title>Middle</title>
    <link>https://example.com/middle</link>
    <pubDate>Tue, 02 Jun 2026 10:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func newServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func titles(entries []*source.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title
	}
	return out
}

func TestFetchNewestFirstWithLimit(t *testing.T) {
	srv := newServer(t, testFeed, http.StatusOK)
	r := New(0, nil, logger.Nop())

	got, err := r.Fetch(context.Background(), srv.URL, 3)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if diff := cmp.Diff([]string{"Newest", "Middle", "Older"}, titles(got)); diff != "" {
		t.Errorf("titles (-want +got):\n%s", diff)
	}
	if got[2].Description != "Old news" {
		t.Errorf("description not cleaned: %q", got[2].Description)
	}
	if got[0].PublishedAt == nil {
		t.Error("published date missing")
	}
}

func TestFetchDefaultsTitle(t *testing.T) {
	srv := newServer(t, testFeed, http.StatusOK)
	r := New(0, nil, logger.Nop())

	got, err := r.Fetch(context.Background(), srv.URL, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d entries, want 4", len(got))
	}
	last := got[3]
	if last.Title != source.DefaultTitle || last.Link != "https://example.com/untitled" {
		t.Errorf("undated untitled entry = %+v", last)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := newServer(t, "gone", http.StatusNotFound)
	r := New(0, nil, logger.Nop())

	if _, err := r.Fetch(context.Background(), srv.URL, 5); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"<p>one</p><p>two</p>", "one two"},
		{"a<br/>b", "a b"},
		{"  spaced\n\tout  ", "spaced out"},
		{`<a href="x">link</a> text`, "link text"},
	}
	for _, tt := range tests {
		if got := cleanText(tt.in); got != tt.want {
			t.Errorf("cleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
