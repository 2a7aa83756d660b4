package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkalra/jobsieve/internal/model"
	"github.com/dkalra/jobsieve/internal/status"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeJob(url string) *model.JobRecord {
	now := time.Now().UTC()
	return &model.JobRecord{
		ID:         model.NewJobID(),
		UniqueID:   "guid-" + url,
		Title:      "Senior Engineer",
		Company:    "Acme",
		SourceURL:  url,
		SourceName: "testfeed",
		Status:     status.New,
		TopMatches: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestCreateJobIfAbsent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	created, err := s.CreateJobIfAbsent(ctx, makeJob("https://x/1"))
	if err != nil {
		t.Fatalf("CreateJobIfAbsent: %v", err)
	}
	if !created {
		t.Fatal("first insert reported not created")
	}

	// Same URL again: the insert is skipped, not an error.
	created, err = s.CreateJobIfAbsent(ctx, makeJob("https://x/1"))
	if err != nil {
		t.Fatalf("CreateJobIfAbsent: %v", err)
	}
	if created {
		t.Error("duplicate insert reported created")
	}

	jobs, err := s.JobsByStatus(ctx, status.New)
	if err != nil {
		t.Fatalf("JobsByStatus: %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("store has %d new jobs, want 1", len(jobs))
	}
}

func TestFindByURL(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	job := makeJob("https://x/1")
	if _, err := s.CreateJobIfAbsent(ctx, job); err != nil {
		t.Fatal(err)
	}

	got, err := s.FindByURL(ctx, "https://x/1")
	if err != nil {
		t.Fatalf("FindByURL: %v", err)
	}
	if got == nil || got.ID != job.ID {
		t.Errorf("FindByURL = %+v", got)
	}

	got, err = s.FindByURL(ctx, "https://x/absent")
	if err != nil {
		t.Fatalf("FindByURL: %v", err)
	}
	if got != nil {
		t.Error("FindByURL returned a record for an absent url")
	}
}

func TestFindRecentByTitleCompany(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	job := makeJob("https://x/1")
	if _, err := s.CreateJobIfAbsent(ctx, job); err != nil {
		t.Fatal(err)
	}

	// Case-insensitive match inside the window.
	got, err := s.FindRecentByTitleCompany(ctx, "senior engineer", "ACME", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("FindRecentByTitleCompany: %v", err)
	}
	if got == nil {
		t.Error("case-insensitive match not found")
	}

	// Outside the window.
	got, err = s.FindRecentByTitleCompany(ctx, "senior engineer", "acme", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("FindRecentByTitleCompany: %v", err)
	}
	if got != nil {
		t.Error("match found outside the window")
	}
}

func TestFindRecentByTitleCompany_SubSecondWindowBoundary(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	// The stored timestamp has a fractional second; the window cutoff falls
	// on the whole second just before it. The stored strings are compared as
	// text, so a format that drops trailing fractional zeros would sort
	// "…:05Z" after "…:05.1Z" and miss the match.
	created := time.Date(2024, 6, 1, 12, 0, 5, 100_000_000, time.UTC)
	job := makeJob("https://x/1")
	job.CreatedAt = created
	job.UpdatedAt = created
	if _, err := s.CreateJobIfAbsent(ctx, job); err != nil {
		t.Fatal(err)
	}

	since := time.Date(2024, 6, 1, 12, 0, 5, 0, time.UTC)
	got, err := s.FindRecentByTitleCompany(ctx, "Senior Engineer", "Acme", since)
	if err != nil {
		t.Fatalf("FindRecentByTitleCompany: %v", err)
	}
	if got == nil {
		t.Error("record created 100ms inside the window not found")
	}

	// 100ms later in the same second: the record is now outside the window.
	got, err = s.FindRecentByTitleCompany(ctx, "Senior Engineer", "Acme", created.Add(100*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("match found outside the window")
	}
}

func TestUpdateStatus_LegalTransitionWithMutation(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	job := makeJob("https://x/1")
	if _, err := s.CreateJobIfAbsent(ctx, job); err != nil {
		t.Fatal(err)
	}

	processed := time.Now().UTC()
	err := s.UpdateStatus(ctx, job.ID, status.New, status.Approved, func(j *model.JobRecord) {
		j.Rating = model.RatingApprove
		j.Reasoning = "strong match"
		j.TopMatches = []string{"Go", "Berlin"}
		j.DetailedAnalysis = &model.Analysis{WorthReviewing: "yes", Confidence: 70}
		j.Cost = &model.CostInfo{Provider: "ollama", Model: "llama3.1"}
		j.DateProcessed = &processed
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != status.Approved {
		t.Errorf("Status = %s, want approved", got.Status)
	}
	if got.Rating != model.RatingApprove || got.Reasoning != "strong match" {
		t.Errorf("rating/reasoning = %s/%q", got.Rating, got.Reasoning)
	}
	if len(got.TopMatches) != 2 || got.TopMatches[0] != "Go" {
		t.Errorf("TopMatches = %v", got.TopMatches)
	}
	if got.DetailedAnalysis == nil || got.DetailedAnalysis.Confidence != 70 {
		t.Errorf("DetailedAnalysis = %+v", got.DetailedAnalysis)
	}
	if got.Cost == nil || got.Cost.Provider != "ollama" {
		t.Errorf("Cost = %+v", got.Cost)
	}
	if got.DateProcessed == nil {
		t.Error("DateProcessed not stored")
	}
}

func TestUpdateStatus_IllegalTransitionLeavesRecordUnchanged(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	job := makeJob("https://x/1")
	if _, err := s.CreateJobIfAbsent(ctx, job); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStatus(ctx, job.ID, status.New, status.Approved, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStatus(ctx, job.ID, status.Approved, status.Emailed, nil); err != nil {
		t.Fatal(err)
	}

	// emailed → new is not in the table.
	err := s.UpdateStatus(ctx, job.ID, status.Emailed, status.New, nil)
	var te *status.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *status.TransitionError", err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != status.Emailed {
		t.Errorf("Status = %s, want emailed (unchanged)", got.Status)
	}
}

func TestUpdateStatus_ClaimConflict(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	job := makeJob("https://x/1")
	if _, err := s.CreateJobIfAbsent(ctx, job); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStatus(ctx, job.ID, status.New, status.Approved, nil); err != nil {
		t.Fatal(err)
	}

	// A second run still believes the job is new.
	err := s.UpdateStatus(ctx, job.ID, status.New, status.FilteredOut, nil)
	if !errors.Is(err, model.ErrClaimConflict) {
		t.Errorf("err = %v, want ErrClaimConflict", err)
	}
}

func TestFeedSources(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	src := &model.FeedSource{URL: "https://feed/1", Name: "One", Enabled: true}
	if err := s.UpsertFeedSource(ctx, src); err != nil {
		t.Fatalf("UpsertFeedSource: %v", err)
	}
	if err := s.UpsertFeedSource(ctx, &model.FeedSource{URL: "https://feed/2", Name: "Two", Enabled: false}); err != nil {
		t.Fatal(err)
	}

	feeds, err := s.EnabledFeeds(ctx)
	if err != nil {
		t.Fatalf("EnabledFeeds: %v", err)
	}
	if len(feeds) != 1 || feeds[0].URL != "https://feed/1" {
		t.Fatalf("EnabledFeeds = %+v", feeds)
	}

	now := time.Now().UTC()
	feeds[0].LastFetched = &now
	feeds[0].LastFetchStatus = "error"
	feeds[0].LastError = "boom"
	feeds[0].JobCount = 3
	if err := s.RecordFetchResult(ctx, feeds[0]); err != nil {
		t.Fatalf("RecordFetchResult: %v", err)
	}

	// Upserting again keeps bookkeeping, refreshes name/enabled.
	if err := s.UpsertFeedSource(ctx, &model.FeedSource{URL: "https://feed/1", Name: "Renamed", Enabled: true}); err != nil {
		t.Fatal(err)
	}

	feeds, err = s.EnabledFeeds(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if feeds[0].Name != "Renamed" {
		t.Errorf("Name = %q, want refreshed", feeds[0].Name)
	}
	if feeds[0].LastFetchStatus != "error" || feeds[0].LastError != "boom" {
		t.Errorf("bookkeeping lost: %+v", feeds[0])
	}
	if feeds[0].JobCount != 3 {
		t.Errorf("JobCount = %d, want 3", feeds[0].JobCount)
	}
	if feeds[0].LastFetched == nil {
		t.Error("LastFetched lost")
	}
}

func TestAccumulateRunStats(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	delta := model.RunStats{
		RunDate:       "2024-01-01",
		JobsProcessed: 5,
		JobsApproved:  2,
		JobsFiltered:  3,
		Errors:        1,
		Elapsed:       2 * time.Second,
	}
	if err := s.AccumulateRunStats(ctx, delta); err != nil {
		t.Fatalf("AccumulateRunStats: %v", err)
	}
	// Second run on the same date accumulates.
	if err := s.AccumulateRunStats(ctx, delta); err != nil {
		t.Fatal(err)
	}

	got, err := s.RunStatsFor(ctx, "2024-01-01")
	if err != nil {
		t.Fatalf("RunStatsFor: %v", err)
	}
	if got.JobsProcessed != 10 || got.JobsApproved != 4 || got.Errors != 2 {
		t.Errorf("stats = %+v, want doubled counts", got)
	}
	if got.Elapsed != 4*time.Second {
		t.Errorf("Elapsed = %v, want 4s", got.Elapsed)
	}

	if _, err := s.RunStatsFor(ctx, "1999-01-01"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing date: err = %v, want ErrNotFound", err)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	s := openStore(t)
	if _, err := s.GetJob(context.Background(), "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
