package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkalra/jobsieve/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Jobs</title>
    <item>
      <title>Senior Engineer at Acme</title>
      <link>https://x/1</link>
      <guid>job-1</guid>
      <pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate>
      <description>Build things. Location: Berlin, Germany</description>
    </item>
    <item>
      <title>Untitled posting</title>
    </item>
    <item>
      <title>Staff Engineer at Globex</title>
      <link>https://x/2</link>
    </item>
  </channel>
</rss>`

func TestFetchCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, sampleRSS)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), discardLogger())
	src := model.FeedSource{URL: srv.URL, Name: "testfeed", Enabled: true}

	candidates, err := f.FetchCandidates(context.Background(), src)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}

	// The linkless item is skipped.
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if candidates[0].Company != "Acme" || candidates[0].Title != "Senior Engineer" {
		t.Errorf("candidate 0 = %q at %q", candidates[0].Title, candidates[0].Company)
	}
	if candidates[0].UniqueID != "job-1" {
		t.Errorf("candidate 0 UniqueID = %q, want feed GUID", candidates[0].UniqueID)
	}
	if candidates[0].SourceName != "testfeed" {
		t.Errorf("candidate 0 SourceName = %q", candidates[0].SourceName)
	}
}

func TestFetchCandidates_HTTPErrorTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), discardLogger())
	_, err := f.FetchCandidates(context.Background(), model.FeedSource{URL: srv.URL, Name: "testfeed"})
	if err == nil {
		t.Fatal("FetchCandidates succeeded, want error")
	}

	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error %T, want *model.HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d", httpErr.StatusCode)
	}
	if httpErr.RetryAfter != 2*time.Minute {
		t.Errorf("RetryAfter = %v, want 2m", httpErr.RetryAfter)
	}
}

func TestFetchCandidates_MalformedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "this is not a feed")
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), discardLogger())
	if _, err := f.FetchCandidates(context.Background(), model.FeedSource{URL: srv.URL, Name: "bad"}); err == nil {
		t.Fatal("FetchCandidates succeeded on malformed feed, want error")
	}
}
