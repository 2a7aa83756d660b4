package model

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dkalra/jobsieve/internal/status"
)

// Rating is the tier-1 classifier verdict.
type Rating string

const (
	RatingApprove Rating = "APPROVE"
	RatingMaybe   Rating = "MAYBE"
	RatingReject  Rating = "REJECT"
)

// JobRecord is the unit of work: one job posting as it moves from ingestion
// to delivery. Created only by the dedup gate; every later status write goes
// through the state machine.
type JobRecord struct {
	ID            string // internal identity
	UniqueID      string // feed GUID, or a content-hash fallback
	Title         string
	Company       string
	Location      string
	SalaryRange   string
	Description   string
	SourceURL     string
	PublishedDate *time.Time
	SourceName    string

	Status  status.Status
	Emailed bool

	Rating           Rating
	Reasoning        string
	TopMatches       []string
	DetailedAnalysis *Analysis
	Cost             *CostInfo

	ProcessingError string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DateProcessed   *time.Time
}

// Analysis is the tier-2 structured write-up. An empty field means the model
// response had no matching section.
type Analysis struct {
	WorthReviewing      string `json:"worth_reviewing"`
	TechnicalChallenges string `json:"technical_challenges"`
	CareerGrowth        string `json:"career_growth"`
	CompanyAssessment   string `json:"company_assessment"`
	PotentialConcerns   string `json:"potential_concerns"`
	Recommendations     string `json:"recommendations"`
	Confidence          int    `json:"confidence"` // structural heuristic, 0-100
}

// CostInfo is per-classification observability metadata. It never drives
// control flow.
type CostInfo struct {
	Provider       string        `json:"provider"`
	Model          string        `json:"model"`
	EstimatedUSD   float64       `json:"estimated_usd"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// Candidate is a job posting extracted from a feed before duplicate-checking
// or persistence.
type Candidate struct {
	UniqueID      string
	Title         string
	Company       string
	Location      string
	SalaryRange   string
	Description   string
	SourceURL     string
	PublishedDate *time.Time
	SourceName    string
}

// FeedSource is a configured syndication origin. The fetch-status fields are
// mutated only by the ingestion gateway after each attempt.
type FeedSource struct {
	ID              int64
	URL             string
	Name            string
	Enabled         bool
	LastFetched     *time.Time
	LastFetchStatus string // "success" or "error", empty before first fetch
	LastError       string
	JobCount        int64
}

// PreferenceProfile is the single active filtering criteria set. The core
// reads it; a settings collaborator owns it.
type PreferenceProfile struct {
	Locations         []string
	WorkModes         []string
	CareerLevels      []string
	TechStack         []string
	CompanySizes      []string
	TravelWillingness string // "limited", "moderate" or "extensive"
	SalaryRange       string // "min-max" or a single amount
}

// RunStats accumulates pipeline counters for one calendar run date.
type RunStats struct {
	RunDate       string // YYYY-MM-DD
	JobsProcessed int64
	JobsApproved  int64
	JobsFiltered  int64
	JobsEmailed   int64
	Errors        int64
	Elapsed       time.Duration
}

// NewJobID returns a fresh record identity.
func NewJobID() string {
	return uuid.NewString()
}

// FeedFetcher fetches and normalizes one feed source into candidates.
type FeedFetcher interface {
	FetchCandidates(ctx context.Context, src FeedSource) ([]Candidate, error)
}

// StatusMutation applies record changes alongside a status transition. It
// runs inside the store's conditional update so the transition and the field
// writes commit together.
type StatusMutation func(*JobRecord)

// JobStore is the durable keyed record store the pipeline operates over.
type JobStore interface {
	// CreateJobIfAbsent inserts the record unless one with the same
	// source_url already exists. Returns false when the insert was skipped.
	CreateJobIfAbsent(ctx context.Context, job *JobRecord) (bool, error)
	GetJob(ctx context.Context, id string) (*JobRecord, error)
	FindByURL(ctx context.Context, sourceURL string) (*JobRecord, error)
	FindRecentByTitleCompany(ctx context.Context, title, company string, since time.Time) (*JobRecord, error)
	JobsByStatus(ctx context.Context, s status.Status) ([]*JobRecord, error)
	CountsByStatus(ctx context.Context) (map[status.Status]int64, error)

	// UpdateStatus transitions job id from → to, applying mutate (may be
	// nil) to the stored record in the same write. It fails with a
	// *status.TransitionError for an illegal pair and with ErrClaimConflict
	// when the record is no longer in the expected from state.
	UpdateStatus(ctx context.Context, id string, from, to status.Status, mutate StatusMutation) error

	UpsertFeedSource(ctx context.Context, src *FeedSource) error
	EnabledFeeds(ctx context.Context) ([]FeedSource, error)
	RecordFetchResult(ctx context.Context, src FeedSource) error

	AccumulateRunStats(ctx context.Context, delta RunStats) error
	RunStatsFor(ctx context.Context, date string) (*RunStats, error)
}

// Deliverer hands approved jobs to the outbound delivery collaborator.
// Message composition and transport live outside the core.
type Deliverer interface {
	Deliver(ctx context.Context, jobs []*JobRecord) error
}
