// Package studio is the HTTP client for the remote generative service that
// produces book ideas, page prompts, images, enhanced images and exports.
package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"
)

// Endpoint paths relative to the base URL.
const (
	PathIdeas         = "/api/ideas"
	PathPageIdeas     = "/api/page-ideas"
	PathImprovePrompt = "/api/improve-prompt"
	PathGenerateImage = "/api/generate-image"
	PathEnhanceImage  = "/api/enhance-image"
	PathExportPDF     = "/api/export/pdf"
	PathExportZIP     = "/api/export/zip"
)

// maxMessageLen bounds error messages built from raw response bodies.
const maxMessageLen = 200

// Error is a failed remote call: a non-2xx status, an {error} payload,
// or a body that could not be parsed.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// Retryable reports whether repeating the same request may succeed.
func (e *Error) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config configures a Client.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	MaxAttempts       int
	RetryDelay        time.Duration
	RequestsPerMinute int
	ImageSize         string
	Logger            *slog.Logger
	HTTPClient        *http.Client
}

// Client calls the studio service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	attempts   uint
	retryDelay time.Duration
	imageSize  string
	logger     *slog.Logger

	ideasSchema     *jsonschema.Schema
	pageIdeasSchema *jsonschema.Schema
}

// NewClient creates a client. Zero config values fall back to defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("studio base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = "1024x1536"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	ideasSchema, err := compileSchema("ideas.json", ideasSchemaJSON)
	if err != nil {
		return nil, err
	}
	pageIdeasSchema, err := compileSchema("page_ideas.json", pageIdeasSchemaJSON)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		httpClient:      httpClient,
		limiter:         rate.NewLimiter(limit, 1),
		attempts:        uint(cfg.MaxAttempts),
		retryDelay:      cfg.RetryDelay,
		imageSize:       cfg.ImageSize,
		logger:          cfg.Logger,
		ideasSchema:     ideasSchema,
		pageIdeasSchema: pageIdeasSchema,
	}, nil
}

// post sends body to path and decodes the JSON response into out.
// Transport errors, 429 and 5xx responses are retried with exponential backoff.
// When schema is non-nil the response document is validated before decoding.
func (c *Client) post(ctx context.Context, op, path string, body, out any, schema *jsonschema.Schema) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	var respBody []byte
	err = retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			b, err := c.do(ctx, op, path, payload)
			if err != nil {
				return err
			}
			respBody = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("studio request failed, retrying", "op", op, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return err
	}

	return decode(op, respBody, out, schema)
}

func (c *Client) do(ctx context.Context, op, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// decode parses a 2xx body. A non-JSON body or an {error} payload is an Error.
func decode(op string, body []byte, out any, schema *jsonschema.Schema) error {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return &Error{Op: op, Message: "invalid JSON response: " + Truncate(string(body), maxMessageLen)}
	}
	if m, ok := doc.(map[string]any); ok {
		if msg, ok := m["error"].(string); ok && msg != "" {
			return &Error{Op: op, Message: msg}
		}
	}
	if schema != nil {
		if err := schema.Validate(doc); err != nil {
			return &Error{Op: op, Message: "unexpected response shape: " + Truncate(err.Error(), maxMessageLen)}
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Op: op, Message: "failed to decode response: " + err.Error()}
	}
	return nil
}

// errorMessage extracts {error} from a failure body, falling back to the raw text.
func errorMessage(body []byte) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
		return eb.Error
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty response"
	}
	return Truncate(text, maxMessageLen)
}

func isRetryable(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
