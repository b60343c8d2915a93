package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hakim/reconaug/internal/jobs"
)

// Notifier posts a summary of finished jobs to a webhook.
type Notifier struct {
	WebhookURL string // if empty, no notifications
	Client     *http.Client
}

// completionPayload is the JSON body posted to the webhook endpoint.
type completionPayload struct {
	JobID           string  `json:"job_id"`
	Kind            string  `json:"kind"`
	Target          string  `json:"target"`
	ScanID          string  `json:"scan_id,omitempty"`
	Status          string  `json:"status"`
	Message         string  `json:"message"`
	SubdomainsCount int     `json:"subdomains_count"`
	LiveHostsCount  int     `json:"live_hosts_count"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
}

// SendCompletion posts snap to the webhook URL.
// Returns nil if WebhookURL is empty (no-op). Callers should treat errors
// as warnings.
func (n *Notifier) SendCompletion(ctx context.Context, snap jobs.Snapshot) error {
	if n == nil || n.WebhookURL == "" {
		return nil
	}

	payload := completionPayload{
		JobID:           snap.ID,
		Kind:            string(snap.Kind),
		Target:          snap.Target,
		ScanID:          snap.ScanID,
		Status:          string(snap.Status),
		Message:         snap.Message,
		SubdomainsCount: snap.SubdomainsCount,
		LiveHostsCount:  snap.LiveHostsCount,
		ElapsedSeconds:  snap.UpdatedAt.Sub(snap.CreatedAt).Seconds(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: posting to %s: %w", n.WebhookURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned non-2xx status %d", resp.StatusCode)
	}

	return nil
}
