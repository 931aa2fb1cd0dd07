package bookstack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/logging"
)

// Default client settings, used when config values are zero.
const (
	defaultTimeout         = 30 * time.Second
	defaultRequestInterval = 500 * time.Millisecond
	defaultMaxRetries      = 3

	// defaultBackoffBase is the first retry delay; it doubles per attempt.
	defaultBackoffBase = time.Second

	// maxErrorBodyBytes caps how much of an error response body is read
	// when extracting the API's error message.
	maxErrorBodyBytes = 8192
)

// Client is the stateless request layer for the BookStack API.
//
// It owns the HTTP transport, token authentication, request pacing, and
// the retry policy. It holds no per-run state; use NewSession() to get the
// run-scoped find-or-create layer.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Request pacing is serialised internally.
type Client struct {
	baseURL     string
	tokenID     string
	tokenSecret string
	httpc       *http.Client
	logger      *logging.Logger

	// nestedChapterRoutes selects POST /api/books/{id}/chapters over the
	// documented flat POST /api/chapters route. See config.BookStackConfig.
	nestedChapterRoutes bool

	// maxRetries is the retry budget after the initial attempt.
	maxRetries int

	// backoffBase is the first retry delay; it doubles each attempt.
	// Shortened in tests.
	backoffBase time.Duration

	// minInterval is the minimum gap between requests. BookStack's default
	// rate limit is 180 requests/minute; pacing keeps bulk exports under it.
	minInterval time.Duration
	paceMu      sync.Mutex
	lastRequest time.Time
}

// New creates a BookStack client from configuration.
//
// The client performs no network activity until the first request; use
// Ping() to verify connectivity and credentials.
//
// Parameters:
//   - cfg: BookStack connection settings from config.yaml
//   - logger: Structured logger (a "bookstack" component child is derived)
//
// Returns:
//   - *Client: Configured client
//   - error: If required settings are missing
func New(cfg config.BookStackConfig, logger *logging.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("bookstack: base URL is required")
	}
	if cfg.TokenID == "" || cfg.TokenSecret == "" {
		return nil, fmt.Errorf("bookstack: API token is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	interval := cfg.MinRequestInterval()
	if interval <= 0 {
		interval = defaultRequestInterval
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = defaultMaxRetries
	}

	return &Client{
		baseURL:             strings.TrimRight(cfg.BaseURL, "/"),
		tokenID:             cfg.TokenID,
		tokenSecret:         cfg.TokenSecret,
		httpc:               &http.Client{Timeout: timeout},
		logger:              logger.With("component", "bookstack"),
		nestedChapterRoutes: cfg.NestedChapterRoutes,
		maxRetries:          retries,
		backoffBase:         defaultBackoffBase,
		minInterval:         interval,
	}, nil
}

// Ping verifies connectivity and credentials with a cheap list request.
//
// Returns:
//   - error: nil if the API is reachable and the token is accepted
func (c *Client) Ping(ctx context.Context) error {
	var out listEnvelope[Book]
	return c.call(ctx, callSpec{
		op: "ping", level: "book", name: "",
		method: http.MethodGet, path: "/api/books",
		query: url.Values{"count": {"1"}},
		out:   &out,
	})
}

// callSpec describes a single API call for the retry layer.
type callSpec struct {
	// op, level, name identify the call in logs and terminal errors.
	op, level, name string

	method  string
	path    string
	query   url.Values
	payload any
	out     any
}

// call executes an API call through the retry policy. Terminal failures
// are wrapped in an OpError carrying the operation context; ErrNotFound
// passes through unwrapped so find operations can treat it as a miss.
func (c *Client) call(ctx context.Context, spec callSpec) error {
	var err error
	attempts := 0
	delay := c.backoffBase

	for attempt := 0; ; attempt++ {
		attempts++
		err = c.doRequest(ctx, spec)
		if err == nil {
			c.logger.Debug("request succeeded",
				"op", spec.op, "level", spec.level, "name", spec.name,
				"attempt", attempts,
			)
			return nil
		}

		if !retryable(err) || attempt == c.maxRetries {
			break
		}

		c.logger.Warn("request failed, retrying",
			"op", spec.op, "level", spec.level, "name", spec.name,
			"attempt", attempts, "delay", delay.String(), "error", err,
		)

		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(delay):
			delay *= 2
			continue
		}
		break
	}

	// Find misses pass through untouched; they are outcomes, not failures.
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}

	c.logger.Warn("request failed",
		"op", spec.op, "level", spec.level, "name", spec.name,
		"attempts", attempts, "error", err,
	)
	return &OpError{Op: spec.op, Level: spec.level, Name: spec.name, Attempts: attempts, Err: err}
}

// doRequest performs one paced HTTP round-trip and decodes the response.
func (c *Client) doRequest(ctx context.Context, spec callSpec) error {
	if err := c.pace(ctx); err != nil {
		return err
	}

	u := c.baseURL + spec.path
	if len(spec.query) > 0 {
		u += "?" + spec.query.Encode()
	}

	var body io.Reader
	if spec.payload != nil {
		data, err := json.Marshal(spec.payload)
		if err != nil {
			return fmt.Errorf("%w: encoding request body: %v", ErrValidation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, u, body)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrValidation, err)
	}
	req.Header.Set("Authorization", "Token "+c.tokenID+":"+c.tokenSecret)
	req.Header.Set("Accept", "application/json")
	if spec.payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		// A cancelled context surfaces as a transport error; report it as
		// cancellation, not a transient network fault, so it isn't retried.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError(resp.StatusCode, readErrorMessage(resp.Body))
	}

	if spec.out != nil {
		if err := json.NewDecoder(resp.Body).Decode(spec.out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", ErrValidation, err)
		}
	}
	return nil
}

// pace enforces the minimum interval between requests.
func (c *Client) pace(ctx context.Context) error {
	c.paceMu.Lock()
	wait := c.minInterval - time.Since(c.lastRequest)
	if wait > 0 {
		c.paceMu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		c.paceMu.Lock()
	}
	c.lastRequest = time.Now()
	c.paceMu.Unlock()
	return nil
}

// readErrorMessage extracts the error message from a failure response body.
// BookStack wraps errors as {"error": {"code": N, "message": "..."}}; older
// versions used a bare string. Both shapes are handled; an unreadable body
// yields an empty message.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil || len(data) == 0 {
		return ""
	}

	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}

	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}

	return ""
}

// foldName normalises a node name for case-insensitive comparison.
func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
