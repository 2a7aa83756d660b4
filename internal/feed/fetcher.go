// Package feed fetches syndicated job feeds and normalizes their items into
// candidate records.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/dkalra/jobsieve/internal/model"
)

// Ensure Fetcher implements model.FeedFetcher.
var _ model.FeedFetcher = (*Fetcher)(nil)

// Fetcher retrieves one feed over HTTP and parses it as RSS, Atom or JSON
// Feed. It is stateless per invocation; per-source bookkeeping belongs to the
// caller.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a feed fetcher. The client's timeout bounds the whole
// fetch; 30s is the recommended value.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		logger: logger,
	}
}

// FetchCandidates fetches src and returns the candidates its items yield.
// Items missing a title or a resolvable link are skipped, not errors.
func (f *Fetcher) FetchCandidates(ctx context.Context, src model.FeedSource) ([]model.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("feed fetch for %s: %w", src.Name, err)
	}
	req.Header.Set("User-Agent", "jobsieve/1.0 (+feed ingestion)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed fetch for %s: %w", src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("feed fetch for %s", src.Name),
		}
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.Name, err)
	}

	candidates := make([]model.Candidate, 0, len(parsed.Items))
	skipped := 0
	for _, item := range parsed.Items {
		c, ok := Extract(item, src.Name)
		if !ok {
			skipped++
			continue
		}
		candidates = append(candidates, c)
	}

	f.logger.Debug("feed parsed",
		"feed", src.Name,
		"items", len(parsed.Items),
		"candidates", len(candidates),
		"skipped", skipped,
	)

	return candidates, nil
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or
// unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
