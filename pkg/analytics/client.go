// Package analytics forwards finished-session debriefs to an external
// analytics or learning-management endpoint.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/incident-sim/internal/timeline"
	"github.com/invisible-tech/incident-sim/internal/types"
	"github.com/invisible-tech/incident-sim/internal/version"
)

// ErrNotConfigured is returned when the endpoint or API key is missing.
var ErrNotConfigured = errors.New("analytics client not configured")

// Client handles communication with the analytics API
type Client struct {
	apiEndpoint string
	apiKey      string
	httpClient  *http.Client
	log         *logrus.Logger
}

// Config for the analytics client
type Config struct {
	APIEndpoint string
	APIKey      string
	Timeout     time.Duration
}

// NewClient creates a new analytics API client
func NewClient(cfg Config, log *logrus.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		apiEndpoint: cfg.APIEndpoint,
		apiKey:      cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

// Debrief is the record of one finished session.
type Debrief struct {
	SessionID   string                  `json:"session_id"`
	ScenarioID  string                  `json:"scenario_id"`
	UserID      string                  `json:"user_id"`
	CompletedAt time.Time               `json:"completed_at"`
	Evaluation  *types.EvaluationResult `json:"evaluation"`
	Commands    int                     `json:"commands"`
	Timeline    []timeline.Event        `json:"timeline,omitempty"`
}

func (c *Client) configured() bool {
	return c.apiEndpoint != "" && c.apiKey != ""
}

// SendDebrief posts a session debrief
func (c *Client) SendDebrief(ctx context.Context, d *Debrief) error {
	if !c.configured() {
		return ErrNotConfigured
	}

	url := fmt.Sprintf("%s/api/v1/debriefs", c.apiEndpoint)
	return c.sendJSON(ctx, url, d)
}

// sendJSON sends a JSON payload to the API
func (c *Client) sendJSON(ctx context.Context, url string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	c.log.WithFields(logrus.Fields{
		"url":    url,
		"status": resp.StatusCode,
	}).Debug("Debrief delivered")

	return nil
}

// HealthCheck checks if the analytics API is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.configured() {
		return ErrNotConfigured
	}

	url := fmt.Sprintf("%s/health", c.apiEndpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}

	return nil
}
