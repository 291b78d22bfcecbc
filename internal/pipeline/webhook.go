package pipeline

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/spherical-ai/intellidoc/internal/observability"
	"github.com/spherical-ai/intellidoc/internal/results"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw payload bytes.
const signatureHeader = "X-IntelliDoc-Signature"

// WebhookPayload is the wire shape of a job completion notification.
type WebhookPayload struct {
	Event  string `json:"event"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// WebhookConfig holds delivery settings for one endpoint.
type WebhookConfig struct {
	URL        string
	Secret     string
	RetryCount int
	Timeout    time.Duration
}

// WebhookDispatcher delivers job completion callbacks. Delivery is
// best-effort: exhausted retries are logged and never change the job's
// stored status.
type WebhookDispatcher struct {
	client *http.Client
	logger *observability.Logger
}

// NewWebhookDispatcher creates a dispatcher.
func NewWebhookDispatcher(logger *observability.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		client: &http.Client{},
		logger: logger,
	}
}

// Notify sends the completion webhook for a terminal job. Returns
// whether delivery succeeded.
func (d *WebhookDispatcher) Notify(ctx context.Context, cfg WebhookConfig, job *results.ProcessingJob) bool {
	if cfg.URL == "" {
		return false
	}

	payload := WebhookPayload{
		Event:  "job.completed",
		JobID:  job.ID.String(),
		Status: string(job.Status),
	}
	if job.Status == results.StatusFailed {
		payload.Event = "job.failed"
		payload.Error = job.ErrorMessage
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to marshal webhook payload")
		return false
	}

	retries := cfg.RetryCount
	if retries <= 0 {
		retries = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	for attempt := 1; attempt <= retries; attempt++ {
		if d.deliver(ctx, cfg, body, timeout) {
			d.logger.Info().
				Str("url", cfg.URL).
				Str("job_id", payload.JobID).
				Int("attempt", attempt).
				Msg("Webhook delivered")
			return true
		}
		d.logger.Warn().
			Str("url", cfg.URL).
			Str("job_id", payload.JobID).
			Int("attempt", attempt).
			Int("retries", retries).
			Msg("Webhook delivery attempt failed")
	}

	d.logger.Error().
		Str("url", cfg.URL).
		Str("job_id", payload.JobID).
		Int("retries", retries).
		Msg("Webhook delivery exhausted all retries")
	return false
}

func (d *WebhookDispatcher) deliver(ctx context.Context, cfg WebhookConfig, body []byte, timeout time.Duration) bool {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "IntelliDoc-Webhook/1.0")
	if cfg.Secret != "" {
		req.Header.Set(signatureHeader, "sha256="+SignPayload(cfg.Secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 300
}

// SignPayload computes the hex HMAC-SHA256 of the payload bytes.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
