// Package apiclient talks to the jobmatch analysis backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/muhammadolammi/jobmatch/internal/analysis"
	"github.com/muhammadolammi/jobmatch/internal/inputguard"
	"github.com/muhammadolammi/jobmatch/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("analysis api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("analysis api: status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	tokens     transport.TokenSource
	base       http.RoundTripper
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type Option func(*Client)

// WithHTTPBase sets the round tripper under the bearer transport.
func WithHTTPBase(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

// WithRateLimit allows one request per interval. Zero disables throttling.
func WithRateLimit(interval time.Duration) Option {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New returns a client for baseURL. tokens may be nil, in which case every
// request goes out unauthenticated.
func New(baseURL string, tokens transport.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		timeout: 2 * time.Minute,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient = transport.NewClient(c.tokens, c.base)
	c.httpClient.Timeout = c.timeout
	return c
}

type analyzeRequest struct {
	Resume         string `json:"resume"`
	JobDescription string `json:"job_description"`
}

// Analyze validates both texts, sends them to the backend and returns the
// normalized result.
func (c *Client) Analyze(ctx context.Context, resume, jobDescription string) (analysis.CanonicalResult, error) {
	err := inputguard.ValidateAll(
		inputguard.Field{Name: "resume", Text: resume, Limits: inputguard.ResumeLimits},
		inputguard.Field{Name: "job description", Text: jobDescription, Limits: inputguard.JobDescriptionLimits},
	)
	if err != nil {
		return analysis.CanonicalResult{}, err
	}

	body, err := json.Marshal(analyzeRequest{Resume: resume, JobDescription: jobDescription})
	if err != nil {
		return analysis.CanonicalResult{}, fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	data, err := c.do(ctx, http.MethodPost, "/api/analyze", body)
	if err != nil {
		return analysis.CanonicalResult{}, err
	}

	raw, err := analysis.Decode(data)
	if err != nil {
		return analysis.CanonicalResult{}, fmt.Errorf("decode analysis: %w", err)
	}
	result := analysis.Normalize(raw)

	c.logger.Info("analysis received",
		zap.Float64("match_score", result.MatchScore),
		zap.Int("missing_keywords", len(result.MissingKeywords)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health returns the backend's status message.
func (c *Client) Health(ctx context.Context) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return "", err
	}
	var h healthResponse
	if err := json.Unmarshal(data, &h); err != nil {
		return "", fmt.Errorf("decode health: %w", err)
	}
	if h.Status != "ok" {
		return "", fmt.Errorf("backend unhealthy: %s", h.Status)
	}
	return h.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
		}
		return nil, apiErr
	}
	return data, nil
}

// IsUnauthorized reports a 401 or 403 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}
