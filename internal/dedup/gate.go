// Package dedup decides whether a candidate record already exists in the
// store, and admits new ones.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dkalra/jobsieve/internal/model"
	"github.com/dkalra/jobsieve/internal/status"
)

// DuplicateWindow is the trailing window for the (title, company) match.
// URL matches have no window: the same link is always the same posting.
const DuplicateWindow = 30 * 24 * time.Hour

// Gate is the single entry point through which new job records are created.
type Gate struct {
	store  model.JobStore
	logger *slog.Logger
	now    func() time.Time
}

// NewGate creates a dedup gate over the given store.
func NewGate(store model.JobStore, logger *slog.Logger) *Gate {
	return &Gate{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Admit decides whether c is new and, if so, persists it as a job record in
// state new. It returns the created record and dup=false, or nil and
// dup=true for a duplicate.
//
// Equivalence is checked in order: exact source_url match first, then a
// case-insensitive (title, company) match among records created within the
// trailing 30-day window. A failed duplicate check fails open — the
// candidate is treated as new — because over-admission beats silently
// dropping postings.
func (g *Gate) Admit(ctx context.Context, c model.Candidate) (*model.JobRecord, bool, error) {
	if dup, err := g.isDuplicate(ctx, c); err != nil {
		g.logger.Warn("duplicate check failed, admitting candidate",
			"url", c.SourceURL,
			"error", err,
		)
	} else if dup {
		return nil, true, nil
	}

	now := g.now()
	job := &model.JobRecord{
		ID:            model.NewJobID(),
		UniqueID:      c.UniqueID,
		Title:         c.Title,
		Company:       c.Company,
		Location:      c.Location,
		SalaryRange:   c.SalaryRange,
		Description:   c.Description,
		SourceURL:     c.SourceURL,
		PublishedDate: c.PublishedDate,
		SourceName:    c.SourceName,
		Status:        status.New,
		Emailed:       false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// The insert itself is the race barrier: two concurrent candidates with
	// the same identity resolve to one row.
	created, err := g.store.CreateJobIfAbsent(ctx, job)
	if err != nil {
		return nil, false, fmt.Errorf("admit candidate %s: %w", c.SourceURL, err)
	}
	if !created {
		return nil, true, nil
	}
	return job, false, nil
}

func (g *Gate) isDuplicate(ctx context.Context, c model.Candidate) (bool, error) {
	existing, err := g.store.FindByURL(ctx, c.SourceURL)
	if err != nil {
		return false, fmt.Errorf("url lookup: %w", err)
	}
	if existing != nil {
		return true, nil
	}

	since := g.now().Add(-DuplicateWindow)
	existing, err = g.store.FindRecentByTitleCompany(ctx,
		strings.ToLower(c.Title), strings.ToLower(c.Company), since)
	if err != nil {
		return false, fmt.Errorf("title/company lookup: %w", err)
	}
	return existing != nil, nil
}
