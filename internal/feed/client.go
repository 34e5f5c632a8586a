// Package feed fetches the authority's metrics and status documents.
package feed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/mir00r/lb-dashboard/internal/auth"
	"github.com/mir00r/lb-dashboard/internal/config"
	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/internal/errors"
	"github.com/mir00r/lb-dashboard/pkg/logger"
)

// maxBodyBytes caps a single feed document
const maxBodyBytes = 4 << 20

// Client polls the two read-only feeds. It holds no simulation state and is
// safe for concurrent use.
type Client struct {
	metricsURL string
	statusURL  string
	client     *http.Client
	signer     *auth.Signer
	logger     *logger.Logger
}

// NewClient creates a feed client from the feeds configuration
func NewClient(cfg config.FeedsConfig, log *logger.Logger) *Client {
	return &Client{
		metricsURL: cfg.MetricsURL,
		statusURL:  cfg.StatusURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		signer: auth.NewSigner(cfg.JWTSecret, cfg.TokenTTL),
		logger: log,
	}
}

// MetricsURL returns the metrics endpoint
func (c *Client) MetricsURL() string {
	return c.metricsURL
}

// StatusURL returns the status endpoint
func (c *Client) StatusURL() string {
	return c.statusURL
}

// FetchMetrics returns the current backend health snapshot
func (c *Client) FetchMetrics(ctx context.Context) ([]domain.BackendMetric, error) {
	var metrics []domain.BackendMetric
	if err := c.getJSON(ctx, c.metricsURL, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

// FetchStatus returns the current routing status and decision log
func (c *Client) FetchStatus(ctx context.Context) (*domain.StatusReport, error) {
	var report domain.StatusReport
	if err := c.getJSON(ctx, c.statusURL, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeInvalidConfig, "feed", "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	if c.signer != nil {
		if err := c.signer.Authorize(req, auth.Issuer); err != nil {
			return errors.WrapError(err, errors.ErrCodeInternalError, "feed", "failed to authorize request")
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.NewFeedUnavailableError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.NewFeedBadStatusError(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.NewFeedUnavailableError(url, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.WrapError(err, errors.ErrCodeFeedDecodeFailed, "feed", "failed to parse "+url).
			WithMetadata("url", url)
	}

	c.logger.WithField("url", url).WithField("bytes", len(body)).Debug("Feed fetched")
	return nil
}
