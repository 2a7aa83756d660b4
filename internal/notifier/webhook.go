package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dkalra/jobsieve/internal/model"
)

// Ensure WebhookDeliverer implements model.Deliverer.
var _ model.Deliverer = (*WebhookDeliverer)(nil)

// WebhookDeliverer POSTs each approved job to a configured webhook endpoint
// as a JSON payload, one request per job.
type WebhookDeliverer struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookDeliverer returns a deliverer that posts each job to the webhook.
func NewWebhookDeliverer(webhookURL string, httpClient *http.Client, logger *slog.Logger) *WebhookDeliverer {
	return &WebhookDeliverer{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// webhookPayload is the JSON body sent per job.
type webhookPayload struct {
	JobID         string          `json:"job_id"`
	Title         string          `json:"title"`
	Company       string          `json:"company"`
	Location      string          `json:"location,omitempty"`
	SalaryRange   string          `json:"salary_range,omitempty"`
	URL           string          `json:"url"`
	Source        string          `json:"source"`
	Rating        string          `json:"rating"`
	Reasoning     string          `json:"reasoning,omitempty"`
	TopMatches    []string        `json:"top_matches,omitempty"`
	Analysis      *model.Analysis `json:"analysis,omitempty"`
	PublishedDate *time.Time      `json:"published_date,omitempty"`
}

// Deliver sends each job as a separate webhook POST.
// Returns an error only if ALL posts fail. Individual failures are logged.
func (d *WebhookDeliverer) Deliver(ctx context.Context, jobs []*model.JobRecord) error {
	if len(jobs) == 0 {
		return nil
	}

	failures := 0
	for i, j := range jobs {
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("delivery cancelled: %w", ctx.Err())
			case <-time.After(500 * time.Millisecond):
			}
		}

		if err := d.sendJob(ctx, j); err != nil {
			d.logger.Error("webhook delivery failed", "company", j.Company, "title", j.Title, "error", err)
			failures++
		}
	}

	sent := len(jobs) - failures
	if failures == len(jobs) {
		return fmt.Errorf("all %d webhook deliveries failed", failures)
	}
	d.logger.Info("webhook deliveries complete", "sent", sent, "failed", failures)
	return nil
}

func (d *WebhookDeliverer) sendJob(ctx context.Context, j *model.JobRecord) error {
	payload := webhookPayload{
		JobID:         j.ID,
		Title:         j.Title,
		Company:       j.Company,
		Location:      j.Location,
		SalaryRange:   j.SalaryRange,
		URL:           j.SourceURL,
		Source:        j.SourceName,
		Rating:        string(j.Rating),
		Reasoning:     j.Reasoning,
		TopMatches:    j.TopMatches,
		Analysis:      j.DetailedAnalysis,
		PublishedDate: j.PublishedDate,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	resp, err := d.post(ctx, body)
	if err != nil {
		return fmt.Errorf("post to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		secs, _ := strconv.Atoi(retryAfter)
		if secs <= 0 {
			secs = 1
		}
		d.logger.Warn("webhook rate limited, retrying", "retry_after_secs", secs)

		select {
		case <-ctx.Done():
			return fmt.Errorf("webhook retry cancelled: %w", ctx.Err())
		case <-time.After(time.Duration(secs) * time.Second):
		}

		resp2, err := d.post(ctx, body)
		if err != nil {
			return fmt.Errorf("post to webhook (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode < 200 || resp2.StatusCode >= 300 {
			return fmt.Errorf("webhook returned %d on retry", resp2.StatusCode)
		}
		d.logger.Info("webhook delivery sent", "company", j.Company, "title", j.Title, "retried", true)
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	d.logger.Info("webhook delivery sent", "company", j.Company, "title", j.Title)
	return nil
}

func (d *WebhookDeliverer) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return d.httpClient.Do(req)
}
