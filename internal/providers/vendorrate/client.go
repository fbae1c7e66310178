package vendorrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	supplierdomain "github.com/smallbiznis/karat/internal/supplier/domain"
)

const (
	DefaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

var ErrEmptyEndpoint = errors.New("vendor_endpoint_empty")

// Client fetches the flat {material: rate} document a vendor publishes.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

func NewClient(httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{httpClient: httpClient, timeout: timeout}
}

// Fetch returns the vendor's quotes keyed by lower-cased material name.
// Entries that are not finite, non-negative numbers are dropped.
func (c *Client) Fetch(ctx context.Context, vendor supplierdomain.Vendor) (map[string]float64, error) {
	endpoint := strings.TrimSpace(vendor.Endpoint)
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building vendor request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if credential := strings.TrimSpace(vendor.Credential); credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vendor %s request: %w", vendor.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("vendor %s: unexpected status %d", vendor.Name, resp.StatusCode)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding vendor %s response: %w", vendor.Name, err)
	}

	quotes := make(map[string]float64, len(raw))
	for name, value := range raw {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		rate, ok := parseRate(value)
		if !ok {
			continue
		}
		quotes[key] = rate
	}
	return quotes, nil
}

func parseRate(value json.RawMessage) (float64, bool) {
	var number float64
	if err := json.Unmarshal(value, &number); err == nil {
		return number, number >= 0
	}

	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return 0, false
	}
	number, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || number < 0 {
		return 0, false
	}
	return number, true
}
