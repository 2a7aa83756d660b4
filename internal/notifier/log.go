package notifier

import (
	"context"
	"log/slog"

	"github.com/dkalra/jobsieve/internal/model"
)

// Ensure LogDeliverer implements model.Deliverer.
var _ model.Deliverer = (*LogDeliverer)(nil)

// LogDeliverer writes approved jobs to the given logger as structured
// messages. It is the default delivery collaborator.
type LogDeliverer struct {
	logger *slog.Logger
}

// NewLogDeliverer returns a deliverer that logs each approved job via slog.
func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger}
}

// Deliver logs each job with company, title, location, rating, and URL.
// Returns nil (stdout logging does not fail).
func (d *LogDeliverer) Deliver(_ context.Context, jobs []*model.JobRecord) error {
	for _, j := range jobs {
		args := []any{
			"company", j.Company,
			"title", j.Title,
			"location", j.Location,
			"rating", string(j.Rating),
			"url", j.SourceURL,
		}
		if j.DetailedAnalysis != nil {
			args = append(args, "confidence", j.DetailedAnalysis.Confidence)
		}
		d.logger.Info("approved job", args...)
	}
	return nil
}
