package frequency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultBaseURL is the ExAC variant endpoint; the variant ID is appended.
const DefaultBaseURL = "http://exac.hms.harvard.edu/rest/variant/variant/"

// Client looks up a single variant by its CHROM-POS-REF-ALT identifier.
type Client interface {
	Lookup(ctx context.Context, variantID string) (*Response, error)
}

// LookupError describes a failed lookup of one variant.
type LookupError struct {
	VariantID string
	Err       error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s: %v", e.VariantID, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// HTTPClient queries the variant service over HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	inFlight   *semaphore.Weighted
}

// NewHTTPClient creates a client for the service at baseURL. maxInFlight caps
// concurrent requests; values <= 0 leave requests unbounded.
func NewHTTPClient(baseURL string, maxInFlight int) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	if maxInFlight > 0 {
		c.inFlight = semaphore.NewWeighted(int64(maxInFlight))
	}
	return c
}

// SetHTTPClient replaces the underlying *http.Client.
func (c *HTTPClient) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Lookup fetches and validates the service response for one variant.
func (c *HTTPClient) Lookup(ctx context.Context, variantID string) (*Response, error) {
	if c.inFlight != nil {
		if err := c.inFlight.Acquire(ctx, 1); err != nil {
			return nil, &LookupError{VariantID: variantID, Err: err}
		}
		defer c.inFlight.Release(1)
	}

	resp, err := c.get(ctx, variantID)
	if err != nil {
		return nil, &LookupError{VariantID: variantID, Err: err}
	}
	return resp, nil
}

func (c *HTTPClient) get(ctx context.Context, variantID string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+variantID, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	var r Response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
