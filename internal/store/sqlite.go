// Package store persists job records, feed sources and run stats in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dkalra/jobsieve/internal/model"
	"github.com/dkalra/jobsieve/internal/status"
)

// Ensure SQLiteStore implements model.JobStore.
var _ model.JobStore = (*SQLiteStore)(nil)

// timeFormat is how timestamps are stored. The window queries compare the
// stored strings as text, so the format must sort lexicographically in time
// order: every value is UTC and the fractional part is fixed width
// (RFC3339Nano drops trailing zeros, which breaks the ordering within a
// second).
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is the durable keyed record store behind the pipeline.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	// Single writer: serializes the create-if-absent and claim updates.
	db.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id                TEXT PRIMARY KEY,
			unique_id         TEXT NOT NULL,
			title             TEXT NOT NULL,
			company           TEXT NOT NULL,
			location          TEXT NOT NULL DEFAULT '',
			salary_range      TEXT NOT NULL DEFAULT '',
			description       TEXT NOT NULL DEFAULT '',
			source_url        TEXT NOT NULL UNIQUE,
			published_date    TEXT,
			source_name       TEXT NOT NULL DEFAULT '',
			status            TEXT NOT NULL,
			emailed           INTEGER NOT NULL DEFAULT 0,
			rating            TEXT NOT NULL DEFAULT '',
			reasoning         TEXT NOT NULL DEFAULT '',
			top_matches       TEXT NOT NULL DEFAULT '[]',
			detailed_analysis TEXT,
			cost_info         TEXT,
			processing_error  TEXT NOT NULL DEFAULT '',
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL,
			date_processed    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_title_company ON jobs(title, company)`,
		`CREATE TABLE IF NOT EXISTS feed_sources (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			url               TEXT NOT NULL UNIQUE,
			name              TEXT NOT NULL DEFAULT '',
			enabled           INTEGER NOT NULL DEFAULT 1,
			last_fetched      TEXT,
			last_fetch_status TEXT NOT NULL DEFAULT '',
			last_error        TEXT NOT NULL DEFAULT '',
			job_count         INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS run_stats (
			run_date       TEXT PRIMARY KEY,
			jobs_processed INTEGER NOT NULL DEFAULT 0,
			jobs_approved  INTEGER NOT NULL DEFAULT 0,
			jobs_filtered  INTEGER NOT NULL DEFAULT 0,
			jobs_emailed   INTEGER NOT NULL DEFAULT 0,
			errors         INTEGER NOT NULL DEFAULT 0,
			elapsed_ms     INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateJobIfAbsent inserts job unless a row with the same source_url
// already exists. The unique constraint makes this safe against concurrent
// identical candidates.
func (s *SQLiteStore) CreateJobIfAbsent(ctx context.Context, job *model.JobRecord) (bool, error) {
	topMatches, err := json.Marshal(job.TopMatches)
	if err != nil {
		return false, fmt.Errorf("marshal top matches: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (
			id, unique_id, title, company, location, salary_range,
			description, source_url, published_date, source_name,
			status, emailed, top_matches, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_url) DO NOTHING`,
		job.ID, job.UniqueID, job.Title, job.Company, job.Location,
		job.SalaryRange, job.Description, job.SourceURL,
		formatTimePtr(job.PublishedDate), job.SourceName,
		string(job.Status), boolToInt(job.Emailed), string(topMatches),
		job.CreatedAt.UTC().Format(timeFormat), job.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return false, fmt.Errorf("inserting job %s: %w", job.SourceURL, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting job %s: %w", job.SourceURL, err)
	}
	return n == 1, nil
}

const jobColumns = `id, unique_id, title, company, location, salary_range,
	description, source_url, published_date, source_name, status, emailed,
	rating, reasoning, top_matches, detailed_analysis, cost_info,
	processing_error, created_at, updated_at, date_processed`

// GetJob returns the record with the given id, or model.ErrNotFound.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading job %s: %w", id, err)
	}
	return job, nil
}

// FindByURL returns the record with the given source URL, or nil when none
// exists. Absence is not an error here: the dedup gate treats it as "new".
func (s *SQLiteStore) FindByURL(ctx context.Context, sourceURL string) (*model.JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE source_url = ?`, sourceURL)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up job by url: %w", err)
	}
	return job, nil
}

// FindRecentByTitleCompany returns a record matching title and company
// case-insensitively, created at or after since. Nil when none exists.
func (s *SQLiteStore) FindRecentByTitleCompany(ctx context.Context, title, company string, since time.Time) (*model.JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE LOWER(title) = LOWER(?) AND LOWER(company) = LOWER(?) AND created_at >= ?
		LIMIT 1`,
		title, company, since.UTC().Format(timeFormat))
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up job by title/company: %w", err)
	}
	return job, nil
}

// JobsByStatus returns all records in the given status, oldest first.
func (s *SQLiteStore) JobsByStatus(ctx context.Context, st status.Status) ([]*model.JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at`, string(st))
	if err != nil {
		return nil, fmt.Errorf("listing jobs in %s: %w", st, err)
	}
	defer rows.Close()

	var jobs []*model.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CountsByStatus returns the number of records per status.
func (s *SQLiteStore) CountsByStatus(ctx context.Context) (map[status.Status]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[status.Status]int64)
	for rows.Next() {
		var st string
		var n int64
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[status.Status(st)] = n
	}
	return counts, rows.Err()
}

// UpdateStatus transitions job id from → to, applying mutate in the same
// write. The transition is validated first; the conditional update then
// guarantees no two runs claim the same record.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, from, to status.Status, mutate model.StatusMutation) error {
	if err := status.Check(from, to); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("loading job %s: %w", id, err)
	}
	if job.Status != from {
		return fmt.Errorf("job %s is %s, expected %s: %w", id, job.Status, from, model.ErrClaimConflict)
	}

	job.Status = to
	job.UpdatedAt = time.Now().UTC()
	if mutate != nil {
		mutate(job)
	}
	// The transition target is not negotiable by the mutation.
	job.Status = to

	analysisJSON, err := marshalNullable(job.DetailedAnalysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	costJSON, err := marshalNullable(job.Cost)
	if err != nil {
		return fmt.Errorf("marshal cost info: %w", err)
	}
	topMatches, err := json.Marshal(job.TopMatches)
	if err != nil {
		return fmt.Errorf("marshal top matches: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE jobs SET
			status = ?, emailed = ?, rating = ?, reasoning = ?,
			top_matches = ?, detailed_analysis = ?, cost_info = ?,
			processing_error = ?, updated_at = ?, date_processed = ?
		WHERE id = ? AND status = ?`,
		string(to), boolToInt(job.Emailed), string(job.Rating), job.Reasoning,
		string(topMatches), analysisJSON, costJSON,
		job.ProcessingError, job.UpdatedAt.Format(timeFormat),
		formatTimePtr(job.DateProcessed),
		id, string(from),
	)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating job %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("job %s: %w", id, model.ErrClaimConflict)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}
	return nil
}

// UpsertFeedSource inserts the source or refreshes its name/enabled flag,
// keyed by URL. Fetch bookkeeping fields are left alone.
func (s *SQLiteStore) UpsertFeedSource(ctx context.Context, src *model.FeedSource) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_sources (url, name, enabled)
		VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET name = excluded.name, enabled = excluded.enabled`,
		src.URL, src.Name, boolToInt(src.Enabled))
	if err != nil {
		return fmt.Errorf("upserting feed source %s: %w", src.URL, err)
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		src.ID = id
	}
	return nil
}

// EnabledFeeds returns the sources with enabled=true.
func (s *SQLiteStore) EnabledFeeds(ctx context.Context) ([]model.FeedSource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, name, enabled, last_fetched, last_fetch_status, last_error, job_count
		FROM feed_sources WHERE enabled = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing enabled feeds: %w", err)
	}
	defer rows.Close()

	var feeds []model.FeedSource
	for rows.Next() {
		var src model.FeedSource
		var enabled int
		var lastFetched sql.NullString
		if err := rows.Scan(&src.ID, &src.URL, &src.Name, &enabled,
			&lastFetched, &src.LastFetchStatus, &src.LastError, &src.JobCount); err != nil {
			return nil, fmt.Errorf("scanning feed source: %w", err)
		}
		src.Enabled = enabled == 1
		if t, err := parseTimePtr(lastFetched); err == nil {
			src.LastFetched = t
		}
		feeds = append(feeds, src)
	}
	return feeds, rows.Err()
}

// RecordFetchResult writes the post-fetch bookkeeping for a source:
// last_fetched, last_fetch_status, last_error and the job_count delta.
func (s *SQLiteStore) RecordFetchResult(ctx context.Context, src model.FeedSource) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE feed_sources SET
			last_fetched = ?, last_fetch_status = ?, last_error = ?,
			job_count = job_count + ?
		WHERE url = ?`,
		formatTimePtr(src.LastFetched), src.LastFetchStatus, src.LastError,
		src.JobCount, src.URL)
	if err != nil {
		return fmt.Errorf("recording fetch result for %s: %w", src.URL, err)
	}
	return nil
}

// AccumulateRunStats adds delta into the row for delta.RunDate, creating it
// on first use. Multiple runs on one date accumulate instead of overwriting.
func (s *SQLiteStore) AccumulateRunStats(ctx context.Context, delta model.RunStats) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_stats (run_date, jobs_processed, jobs_approved, jobs_filtered, jobs_emailed, errors, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_date) DO UPDATE SET
			jobs_processed = jobs_processed + excluded.jobs_processed,
			jobs_approved  = jobs_approved + excluded.jobs_approved,
			jobs_filtered  = jobs_filtered + excluded.jobs_filtered,
			jobs_emailed   = jobs_emailed + excluded.jobs_emailed,
			errors         = errors + excluded.errors,
			elapsed_ms     = elapsed_ms + excluded.elapsed_ms`,
		delta.RunDate, delta.JobsProcessed, delta.JobsApproved,
		delta.JobsFiltered, delta.JobsEmailed, delta.Errors,
		delta.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("accumulating run stats for %s: %w", delta.RunDate, err)
	}
	return nil
}

// RunStatsFor returns the stats row for the given date, or model.ErrNotFound.
func (s *SQLiteStore) RunStatsFor(ctx context.Context, date string) (*model.RunStats, error) {
	var stats model.RunStats
	var elapsedMS int64
	err := s.db.QueryRowContext(ctx, `
		SELECT run_date, jobs_processed, jobs_approved, jobs_filtered, jobs_emailed, errors, elapsed_ms
		FROM run_stats WHERE run_date = ?`, date).
		Scan(&stats.RunDate, &stats.JobsProcessed, &stats.JobsApproved,
			&stats.JobsFiltered, &stats.JobsEmailed, &stats.Errors, &elapsedMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run stats for %s: %w", date, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run stats for %s: %w", date, err)
	}
	stats.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return &stats, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*model.JobRecord, error) {
	var job model.JobRecord
	var (
		published, analysisJSON, costJSON, dateProcessed sql.NullString
		emailed                                           int
		st, rating, topMatches, createdAt, updatedAt      string
	)

	err := row.Scan(&job.ID, &job.UniqueID, &job.Title, &job.Company,
		&job.Location, &job.SalaryRange, &job.Description, &job.SourceURL,
		&published, &job.SourceName, &st, &emailed, &rating, &job.Reasoning,
		&topMatches, &analysisJSON, &costJSON, &job.ProcessingError,
		&createdAt, &updatedAt, &dateProcessed)
	if err != nil {
		return nil, err
	}

	job.Status = status.Status(st)
	job.Rating = model.Rating(rating)
	job.Emailed = emailed == 1

	if err := json.Unmarshal([]byte(topMatches), &job.TopMatches); err != nil {
		return nil, fmt.Errorf("unmarshal top matches: %w", err)
	}
	if analysisJSON.Valid && analysisJSON.String != "" {
		job.DetailedAnalysis = &model.Analysis{}
		if err := json.Unmarshal([]byte(analysisJSON.String), job.DetailedAnalysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
	}
	if costJSON.Valid && costJSON.String != "" {
		job.Cost = &model.CostInfo{}
		if err := json.Unmarshal([]byte(costJSON.String), job.Cost); err != nil {
			return nil, fmt.Errorf("unmarshal cost info: %w", err)
		}
	}

	if job.PublishedDate, err = parseTimePtr(published); err != nil {
		return nil, fmt.Errorf("parse published_date: %w", err)
	}
	if job.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if job.DateProcessed, err = parseTimePtr(dateProcessed); err != nil {
		return nil, fmt.Errorf("parse date_processed: %w", err)
	}

	return &job, nil
}

func marshalNullable[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
