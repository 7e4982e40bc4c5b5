// API transport for the telephony platform
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/linesync/internal/shared"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "http://localhost:8080"
	DefaultTimeout  = 20 * time.Second
	RequestIDHeader = "X-Request-ID"
)

// APIService performs raw authenticated GET requests against the platform.
//
// Every request carries a fresh request ID, waits on the rate limiter and is bounded by the per-request timeout.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *log.Logger
}

// APIOption configures an [APIService].
type APIOption func(*APIService)

// WithTimeout bounds each request. Non-positive values keep the default.
func WithTimeout(d time.Duration) APIOption {
	return func(a *APIService) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. Non-positive values disable limiting.
func WithRateLimit(perSecond float64) APIOption {
	return func(a *APIService) {
		if perSecond > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			a.limiter = rate.NewLimiter(rate.Inf, 0)
		}
	}
}

// WithAPILogger sets the logger used for request tracing.
func WithAPILogger(l *log.Logger) APIOption {
	return func(a *APIService) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAPIService creates a new API service instance for the platform at baseURL.
func NewAPIService(baseURL string, client *http.Client, opts ...APIOption) *APIService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		timeout:    DefaultTimeout,
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BaseURL returns the platform base URL without a trailing slash.
func (a *APIService) BaseURL() string { return a.baseURL }

// APIResponse represents a raw API response with status and body.
//
// JSONData holds the body decoded once with [json.Decoder.UseNumber] when the body is JSON.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
	RequestID  string
	Duration   time.Duration
}

// Get performs a GET request to path with query and bearer authorization and returns the raw response.
//
// Non-2xx statuses are not errors; only transport failures are.
func (a *APIService) Get(ctx context.Context, path string, query url.Values, bearer string) (*APIResponse, error) {
	fullURL := a.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", shared.ErrAPIRequest, err)
	}

	started := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		RequestID:  requestID,
		Duration:   time.Since(started),
	}

	if data, ok := decodeJSON(body); ok {
		apiResp.IsJSON = true
		apiResp.JSONData = data
	}

	a.logger.Debug("platform request", "path", path, "status", resp.StatusCode, "request_id", requestID, "duration", apiResp.Duration)
	return apiResp, nil
}

func decodeJSON(body []byte) (any, bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return data, true
}
