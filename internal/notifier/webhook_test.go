package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dkalra/jobsieve/internal/model"
	"github.com/dkalra/jobsieve/internal/status"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleJob(title, company string) *model.JobRecord {
	return &model.JobRecord{
		ID:         model.NewJobID(),
		Title:      title,
		Company:    company,
		Location:   "Remote, EU",
		SourceURL:  "https://example.com/apply",
		SourceName: "weworkremotely",
		Status:     status.Approved,
		Rating:     model.RatingApprove,
		Reasoning:  "strong match on stack and location",
		TopMatches: []string{"Go", "remote"},
	}
}

func TestWebhookDeliverer_EmptyJobs(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewWebhookDeliverer(srv.URL, srv.Client(), discardLogger())

	if err := d.Deliver(context.Background(), nil); err != nil {
		t.Errorf("Deliver(nil) = %v, want nil", err)
	}
	if err := d.Deliver(context.Background(), []*model.JobRecord{}); err != nil {
		t.Errorf("Deliver([]) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestWebhookDeliverer_SingleJob(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewWebhookDeliverer(srv.URL, srv.Client(), discardLogger())
	job := sampleJob("Backend Engineer", "Acme Corp")

	if err := d.Deliver(context.Background(), []*model.JobRecord{job}); err != nil {
		t.Fatalf("Deliver() = %v, want nil", err)
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Title != "Backend Engineer" || payload.Company != "Acme Corp" {
		t.Errorf("payload title/company = %q/%q", payload.Title, payload.Company)
	}
	if payload.Rating != "APPROVE" {
		t.Errorf("payload rating = %q, want APPROVE", payload.Rating)
	}
	if payload.URL != "https://example.com/apply" {
		t.Errorf("payload URL = %q", payload.URL)
	}
	if len(payload.TopMatches) != 2 {
		t.Errorf("payload top matches = %v", payload.TopMatches)
	}
}

func TestWebhookDeliverer_MultipleJobs(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewWebhookDeliverer(srv.URL, srv.Client(), discardLogger())
	jobs := []*model.JobRecord{
		sampleJob("Engineer 1", "A"),
		sampleJob("Engineer 2", "B"),
		sampleJob("Engineer 3", "C"),
	}

	if err := d.Deliver(context.Background(), jobs); err != nil {
		t.Fatalf("Deliver() = %v, want nil", err)
	}
	if c := calls.Load(); c != 3 {
		t.Errorf("expected 3 HTTP calls, got %d", c)
	}
}

func TestWebhookDeliverer_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewWebhookDeliverer(srv.URL, srv.Client(), discardLogger())
	jobs := []*model.JobRecord{
		sampleJob("A", "X"),
		sampleJob("B", "Y"),
	}

	if err := d.Deliver(context.Background(), jobs); err == nil {
		t.Error("expected error when all deliveries fail, got nil")
	}
}

func TestWebhookDeliverer_PartialFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := calls.Add(1)
		if c == 1 {
			w.WriteHeader(http.StatusInternalServerError)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	d := NewWebhookDeliverer(srv.URL, srv.Client(), discardLogger())
	jobs := []*model.JobRecord{
		sampleJob("Fails", "A"),
		sampleJob("Succeeds", "B"),
	}

	if err := d.Deliver(context.Background(), jobs); err != nil {
		t.Errorf("expected nil (partial success), got %v", err)
	}
}

func TestWebhookDeliverer_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := calls.Add(1)
		if c == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	d := NewWebhookDeliverer(srv.URL, srv.Client(), discardLogger())
	if err := d.Deliver(context.Background(), []*model.JobRecord{sampleJob("Rate Limited Job", "Test")}); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}
