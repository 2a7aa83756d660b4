package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dkalra/jobsieve/internal/model"
)

// Result is the outcome of classifying one job. Rating is always set; a
// provider failure degrades to REJECT rather than propagating, so a flaky
// backend fails safe toward exclusion.
type Result struct {
	Rating     model.Rating
	Reasoning  string
	TopMatches []string
	// Analysis is non-nil iff the rating is not REJECT and the detailed
	// agent was enabled at classification time.
	Analysis *model.Analysis
	Cost     *model.CostInfo
}

// Classifier runs the two-tier filter: a cheap basic pass on agent1 and,
// conditionally, a detailed pass on agent2.
type Classifier struct {
	agent1    Provider
	agent2    Provider // nil when the detailed stage is disabled
	profile   model.PreferenceProfile
	biography string
	cv        string
	logger    *slog.Logger
	now       func() time.Time
}

// NewClassifier creates a classifier. Pass a nil agent2 to disable the
// detailed stage; that is a valid configuration, not an error.
func NewClassifier(agent1, agent2 Provider, profile model.PreferenceProfile, biography, cv string, logger *slog.Logger) *Classifier {
	return &Classifier{
		agent1:    agent1,
		agent2:    agent2,
		profile:   profile,
		biography: biography,
		cv:        cv,
		logger:    logger,
		now:       time.Now,
	}
}

// Tier2Enabled reports whether the detailed agent is configured.
func (c *Classifier) Tier2Enabled() bool {
	return c.agent2 != nil
}

// ClassifyJob runs both tiers for one job. It never returns an error:
// transport and parse failures are folded into the result per the failure
// semantics of each tier.
func (c *Classifier) ClassifyJob(ctx context.Context, job *model.JobRecord) Result {
	start := c.now()
	vars := PromptVars(job, c.profile, c.biography, c.cv)

	// Cost covers both tiers; provider and model name the tier-1 agent.
	cost := &model.CostInfo{
		Provider: c.agent1.Name(),
		Model:    c.agent1.Model(),
	}

	res := Result{
		TopMatches: c.topMatches(job),
		Cost:       cost,
	}

	prompt := RenderTemplate(Tier1Prompt, vars)
	response, err := c.agent1.Complete(ctx, prompt)
	if err != nil {
		// Fail safe toward exclusion: the pipeline keeps moving and the
		// record carries the failure for operator visibility.
		res.Rating = model.RatingReject
		res.Reasoning = fmt.Sprintf("basic filter unavailable (%v); rejected pending a healthy provider", err)
		c.logger.Warn("tier-1 completion failed",
			"job", job.ID,
			"provider", c.agent1.Name(),
			"error", err,
		)
		cost.ProcessingTime = c.now().Sub(start)
		return res
	}
	cost.EstimatedUSD += c.agent1.EstimateCost(len(prompt), len(response))

	res.Rating, res.Reasoning = ParseTier1(response)

	if res.Rating != model.RatingReject && c.agent2 != nil {
		res.Analysis = c.detailedAnalysis(ctx, vars, job, cost)
	}

	cost.ProcessingTime = c.now().Sub(start)
	return res
}

// detailedAnalysis runs tier 2. A failure degrades to a placeholder analysis
// and never disturbs the tier-1 rating.
func (c *Classifier) detailedAnalysis(ctx context.Context, vars map[string]string, job *model.JobRecord, cost *model.CostInfo) *model.Analysis {
	prompt := RenderTemplate(Tier2Prompt, vars)
	response, err := c.agent2.Complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("tier-2 completion failed",
			"job", job.ID,
			"provider", c.agent2.Name(),
			"error", err,
		)
		return PlaceholderAnalysis(fmt.Sprintf("Provider error: %v.", err))
	}
	cost.EstimatedUSD += c.agent2.EstimateCost(len(prompt), len(response))

	return ParseAnalysis(response)
}

// topMatchLimit caps how many preference terms are recorded per job.
const topMatchLimit = 5

// topMatches collects the profile terms that appear in the job's title or
// description, in profile order: tech stack first, then locations, work
// modes and career levels.
func (c *Classifier) topMatches(job *model.JobRecord) []string {
	haystack := strings.ToLower(job.Title + " " + job.Location + " " + job.Description)

	var matches []string
	groups := [][]string{
		c.profile.TechStack,
		c.profile.Locations,
		c.profile.WorkModes,
		c.profile.CareerLevels,
	}
	for _, group := range groups {
		for _, term := range group {
			if len(matches) >= topMatchLimit {
				return matches
			}
			if term == "" {
				continue
			}
			if strings.Contains(haystack, strings.ToLower(term)) {
				matches = append(matches, term)
			}
		}
	}
	return matches
}
