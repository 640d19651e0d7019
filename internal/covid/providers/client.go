package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/covid-stats/internal/covid"
)

const (
	// DefaultBaseURL is the disease.sh COVID-19 API root.
	DefaultBaseURL   = "https://disease.sh/v3/covid-19"
	defaultUserAgent = "covid-stats/1.0"
	maxMessageLen    = 200
)

var errNoHTTPClient = errors.New("http client not configured")

// Fetcher issues a GET against the provider and returns the raw JSON body.
type Fetcher interface {
	FetchJSON(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
}

// Client talks to the statistics provider. It makes exactly one attempt per
// call; retries are the caller's decision.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient builds a Client. An empty baseURL falls back to DefaultBaseURL.
func NewClient(httpClient *http.Client, baseURL, userAgent string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      httpClient,
	}
}

// FetchJSON performs GET {base}/{path}?{query}. path segments must already be
// escaped. Network failures become *covid.TransportError, non-2xx statuses
// *covid.ProviderError and non-JSON bodies *covid.MalformedRecordError.
func (c *Client) FetchJSON(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if c.http == nil {
		return nil, errNoHTTPClient
	}

	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	op := "GET /" + strings.TrimLeft(path, "/")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &covid.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &covid.TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &covid.ProviderError{
			StatusCode: resp.StatusCode,
			Message:    providerMessage(resp.StatusCode, body),
		}
	}

	if !json.Valid(body) {
		return nil, &covid.MalformedRecordError{Index: -1, Field: "body", Reason: "response is not valid JSON"}
	}
	return json.RawMessage(body), nil
}

// providerMessage prefers the provider's {"message": "..."} field, then the
// raw body, then the status text.
func providerMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return http.StatusText(status)
	}
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	return msg
}
