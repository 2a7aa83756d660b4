package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/dkalra/jobsieve/internal/dedup"
	"github.com/dkalra/jobsieve/internal/llm"
	"github.com/dkalra/jobsieve/internal/model"
	"github.com/dkalra/jobsieve/internal/ratelimit"
	"github.com/dkalra/jobsieve/internal/status"
)

// classifyKey is the pacing key for provider completions. One key suffices:
// jobs are classified sequentially on the configured agents.
const classifyKey = "classifier"

// Orchestrator owns the full pipeline: ingest → classify → deliver.
// Each stage is independently invocable; Run chains them.
type Orchestrator struct {
	store          model.JobStore
	fetcher        model.FeedFetcher
	gate           *dedup.Gate
	classifier     *llm.Classifier
	deliverer      model.Deliverer
	feedPacing     *ratelimit.PacingLimiter
	providerPacing *ratelimit.PacingLimiter
	logger         *slog.Logger
	now            func() time.Time
}

// NewOrchestrator creates an orchestrator wired with all its dependencies.
// feedDelay spaces fetches against the same feed host; providerDelay spaces
// model completions.
func NewOrchestrator(
	store model.JobStore,
	fetcher model.FeedFetcher,
	gate *dedup.Gate,
	classifier *llm.Classifier,
	deliverer model.Deliverer,
	feedDelay, providerDelay time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:          store,
		fetcher:        fetcher,
		gate:           gate,
		classifier:     classifier,
		deliverer:      deliverer,
		feedPacing:     ratelimit.NewPacingLimiter(feedDelay),
		providerPacing: ratelimit.NewPacingLimiter(providerDelay),
		logger:         logger,
		now:            time.Now,
	}
}

// IngestResult summarizes one ingest pass. Errors holds per-feed and
// per-candidate failures; a non-empty list does not mean the pass failed.
type IngestResult struct {
	FeedsFetched int
	FeedErrors   int
	Candidates   int
	Admitted     int
	Duplicates   int
	Errors       []error
}

// ClassifyResult summarizes one classification pass.
type ClassifyResult struct {
	Processed   int
	Approved    int
	Filtered    int
	NeedsReview int
	Errors      []error
}

// DeliverResult summarizes one delivery pass.
type DeliverResult struct {
	Delivered int
	Errors    []error
}

// RunResult is the combined outcome of a full pipeline run. Counts are
// always populated, even when Errors is non-empty.
type RunResult struct {
	Ingest   IngestResult
	Classify ClassifyResult
	Deliver  DeliverResult
	Elapsed  time.Duration
	Errors   []error
}

// Ingest fetches every enabled feed and pushes the candidates through the
// duplicate gate. A failing feed is recorded on its source row and skipped;
// the pass continues with the remaining feeds.
func (o *Orchestrator) Ingest(ctx context.Context) (IngestResult, error) {
	var res IngestResult

	feeds, err := o.store.EnabledFeeds(ctx)
	if err != nil {
		return res, fmt.Errorf("ingest: listing feeds: %w", err)
	}

	for _, src := range feeds {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("ingest cancelled: %w", err))
			return res, nil
		}

		if err := o.feedPacing.Wait(ctx, feedKey(src.URL)); err != nil {
			res.Errors = append(res.Errors, err)
			return res, nil
		}

		admitted, dups, candidates, err := o.ingestFeed(ctx, src)
		res.Candidates += candidates
		res.Admitted += admitted
		res.Duplicates += dups
		if err != nil {
			res.FeedErrors++
			res.Errors = append(res.Errors, fmt.Errorf("feed %s: %w", src.Name, err))
			continue
		}
		res.FeedsFetched++
	}

	o.logger.Info("ingest complete",
		"feeds", res.FeedsFetched,
		"feed_errors", res.FeedErrors,
		"candidates", res.Candidates,
		"admitted", res.Admitted,
		"duplicates", res.Duplicates,
	)
	return res, nil
}

// ingestFeed fetches one feed, records the outcome on the source row, and
// admits candidates through the gate. Returns admitted, duplicate, and total
// candidate counts.
func (o *Orchestrator) ingestFeed(ctx context.Context, src model.FeedSource) (admitted, dups, total int, err error) {
	now := o.now()

	candidates, fetchErr := o.fetcher.FetchCandidates(ctx, src)
	if fetchErr != nil {
		src.LastFetched = &now
		src.LastFetchStatus = "error"
		src.LastError = fetchErr.Error()
		src.JobCount = 0
		if recErr := o.store.RecordFetchResult(ctx, src); recErr != nil {
			o.logger.Error("recording feed failure", "feed", src.Name, "error", recErr)
		}
		return 0, 0, 0, fetchErr
	}

	total = len(candidates)
	for _, c := range candidates {
		if ctxErr := ctx.Err(); ctxErr != nil {
			break
		}
		job, dup, admitErr := o.gate.Admit(ctx, c)
		if admitErr != nil {
			o.logger.Error("admitting candidate", "feed", src.Name, "url", c.SourceURL, "error", admitErr)
			continue
		}
		if dup {
			dups++
			continue
		}
		admitted++
		o.logger.Debug("job admitted", "id", job.ID, "title", job.Title, "company", job.Company)
	}

	src.LastFetched = &now
	src.LastFetchStatus = "success"
	src.LastError = ""
	src.JobCount = int64(admitted)
	if recErr := o.store.RecordFetchResult(ctx, src); recErr != nil {
		o.logger.Error("recording feed success", "feed", src.Name, "error", recErr)
	}
	return admitted, dups, total, nil
}

// Classify runs the two-tier filter over every job in new, one at a time.
// A job that cannot be classified or persisted is quarantined to
// needs_review with the failure recorded, never silently dropped.
func (o *Orchestrator) Classify(ctx context.Context) (ClassifyResult, error) {
	var res ClassifyResult

	jobs, err := o.store.JobsByStatus(ctx, status.New)
	if err != nil {
		return res, fmt.Errorf("classify: listing new jobs: %w", err)
	}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("classify cancelled: %w", err))
			return res, nil
		}

		if err := o.providerPacing.Wait(ctx, classifyKey); err != nil {
			res.Errors = append(res.Errors, err)
			return res, nil
		}

		target, err := o.classifyOne(ctx, job)
		if err != nil {
			if errors.Is(err, model.ErrClaimConflict) {
				// Another worker took this job; not a failure.
				o.logger.Debug("job claimed elsewhere", "id", job.ID)
				continue
			}
			res.Errors = append(res.Errors, fmt.Errorf("job %s: %w", job.ID, err))
			o.quarantine(ctx, job.ID, err)
			res.NeedsReview++
			res.Processed++
			continue
		}

		res.Processed++
		switch target {
		case status.Approved:
			res.Approved++
		case status.FilteredOut:
			res.Filtered++
		case status.NeedsReview:
			res.NeedsReview++
		}
	}

	o.logger.Info("classification complete",
		"processed", res.Processed,
		"approved", res.Approved,
		"filtered", res.Filtered,
		"needs_review", res.NeedsReview,
		"errors", len(res.Errors),
	)
	return res, nil
}

// classifyOne classifies a single job and commits the verdict with a
// conditional transition out of new. Panics from provider or parser code are
// converted to errors so one bad job cannot take down the pass.
func (o *Orchestrator) classifyOne(ctx context.Context, job *model.JobRecord) (target status.Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classification panicked: %v", r)
		}
	}()

	result := o.classifier.ClassifyJob(ctx, job)
	target = targetFor(result.Rating)
	processed := o.now()

	err = o.store.UpdateStatus(ctx, job.ID, status.New, target, func(j *model.JobRecord) {
		j.Rating = result.Rating
		j.Reasoning = result.Reasoning
		j.TopMatches = result.TopMatches
		j.DetailedAnalysis = result.Analysis
		j.Cost = result.Cost
		j.DateProcessed = &processed
	})
	if err != nil {
		return target, err
	}
	return target, nil
}

// targetFor maps a classifier verdict to the job's next state.
func targetFor(r model.Rating) status.Status {
	switch r {
	case model.RatingApprove:
		return status.Approved
	case model.RatingMaybe:
		return status.NeedsReview
	default:
		return status.FilteredOut
	}
}

// quarantine moves a failed job to needs_review with the error recorded.
// Best effort: if the quarantine write itself fails there is nothing left to
// do but log.
func (o *Orchestrator) quarantine(ctx context.Context, id string, cause error) {
	processed := o.now()
	err := o.store.UpdateStatus(ctx, id, status.New, status.NeedsReview, func(j *model.JobRecord) {
		j.ProcessingError = cause.Error()
		j.DateProcessed = &processed
	})
	if err != nil {
		o.logger.Error("quarantining job", "id", id, "error", err)
	}
}

// Deliver hands every approved, not-yet-delivered job to the delivery
// collaborator and marks the handed-off jobs emailed.
func (o *Orchestrator) Deliver(ctx context.Context) (DeliverResult, error) {
	var res DeliverResult

	approved, err := o.store.JobsByStatus(ctx, status.Approved)
	if err != nil {
		return res, fmt.Errorf("deliver: listing approved jobs: %w", err)
	}

	var pending []*model.JobRecord
	for _, j := range approved {
		if !j.Emailed {
			pending = append(pending, j)
		}
	}
	if len(pending) == 0 {
		return res, nil
	}

	if err := o.deliverer.Deliver(ctx, pending); err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("deliver: %w", err))
		return res, nil
	}

	for _, j := range pending {
		err := o.store.UpdateStatus(ctx, j.ID, status.Approved, status.Emailed, func(rec *model.JobRecord) {
			rec.Emailed = true
		})
		if err != nil {
			if errors.Is(err, model.ErrClaimConflict) {
				o.logger.Debug("delivered job moved elsewhere", "id", j.ID)
				continue
			}
			res.Errors = append(res.Errors, fmt.Errorf("marking %s emailed: %w", j.ID, err))
			continue
		}
		res.Delivered++
	}

	o.logger.Info("delivery complete", "delivered", res.Delivered, "errors", len(res.Errors))
	return res, nil
}

// Run executes one full pipeline cycle and accumulates the day's counters.
// Stage failures are collected; counts are returned even on partial failure.
func (o *Orchestrator) Run(ctx context.Context) RunResult {
	start := o.now()
	var res RunResult

	ingest, err := o.Ingest(ctx)
	res.Ingest = ingest
	res.Errors = append(res.Errors, ingest.Errors...)
	if err != nil {
		res.Errors = append(res.Errors, err)
	}

	if ingest.Admitted > 0 {
		classify, err := o.Classify(ctx)
		res.Classify = classify
		res.Errors = append(res.Errors, classify.Errors...)
		if err != nil {
			res.Errors = append(res.Errors, err)
		}
	}

	if res.Classify.Approved > 0 {
		deliver, err := o.Deliver(ctx)
		res.Deliver = deliver
		res.Errors = append(res.Errors, deliver.Errors...)
		if err != nil {
			res.Errors = append(res.Errors, err)
		}
	}

	res.Elapsed = o.now().Sub(start)

	stats := model.RunStats{
		RunDate:       start.Format("2006-01-02"),
		JobsProcessed: int64(res.Classify.Processed),
		JobsApproved:  int64(res.Classify.Approved),
		JobsFiltered:  int64(res.Classify.Filtered),
		JobsEmailed:   int64(res.Deliver.Delivered),
		Errors:        int64(len(res.Errors)),
		Elapsed:       res.Elapsed,
	}
	if err := o.store.AccumulateRunStats(ctx, stats); err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("recording run stats: %w", err))
	}

	o.logger.Info("pipeline run complete",
		"admitted", res.Ingest.Admitted,
		"processed", res.Classify.Processed,
		"approved", res.Classify.Approved,
		"delivered", res.Deliver.Delivered,
		"errors", len(res.Errors),
		"elapsed", res.Elapsed,
	)
	return res
}

// feedKey derives the pacing key for a feed URL. Feeds on the same host
// share a key so a multi-feed host is not hammered.
func feedKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
