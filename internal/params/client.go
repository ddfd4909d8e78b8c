package params

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/ltv"
	"go.uber.org/zap"
)

// maxResponseBytes caps how much of a parameters response is read.
const maxResponseBytes = 1 << 20

// Client fetches calculation parameters from the platform API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient builds a Client for baseURL, e.g. "https://example.org/api".
// A non-positive timeout falls back to constants.DefaultParametersTimeout.
func NewClient(logger *zap.Logger, baseURL string, timeout time.Duration) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = constants.DefaultParametersTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.client = hc
	}
	return c
}

// Endpoint returns the request URL for path.
func (c *Client) Endpoint(path BusinessPath) string {
	q := url.Values{}
	q.Set("business_path", string(path))
	return c.baseURL + constants.ParametersPath + "?" + q.Encode()
}

// Fetch performs GET /v1/calculation-parameters for path.
func (c *Client) Fetch(ctx context.Context, path BusinessPath) (*Parameters, error) {
	endpoint := c.Endpoint(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("calculation parameters response",
		zap.String("op", "params.Client.Fetch"),
		zap.String("url", endpoint),
		zap.Int("bytes", len(body)),
	)

	return decodeResponse(body, path)
}

func decodeResponse(body []byte, path BusinessPath) (*Parameters, error) {
	var envelope Response
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if envelope.Status != constants.ResponseStatusSuccess {
		return nil, fmt.Errorf("%w: status %q", ErrMalformedResponse, envelope.Status)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}

	data := envelope.Data
	if data.BusinessPath == "" {
		data.BusinessPath = path
	}
	if data.PropertyOwnershipLTVs == nil {
		data.PropertyOwnershipLTVs = map[string]ltv.OwnershipLTV{}
	}
	return data, nil
}
