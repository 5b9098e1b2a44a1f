// Package hyperliquid reads account state and fills from the Hyperliquid
// public /info endpoint.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"hlrecap/internal/logger"
	"hlrecap/internal/pkg/circuit"

	"github.com/jpillora/backoff"
	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL = "https://api.hyperliquid.xyz"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4096
)

var (
	ErrInvalidAddress = errors.New("invalid account address")
	ErrCircuitOpen    = circuit.ErrOpen

	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("hyperliquid returned status %d", e.Code)
	}
	return fmt.Sprintf("hyperliquid returned status %d: %s", e.Code, e.Body)
}

// Temporary reports whether retrying may help.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Config 描述客户端访问参数；零值字段使用默认值。
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Client talks to the /info endpoint with retry and a circuit breaker.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	breaker    *circuit.CircuitBreaker

	assetsMu sync.Mutex
	assets   map[string]string
}

func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = defaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse hyperliquid url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("hyperliquid url must be absolute: %s", raw)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: retries,
		retryDelay: cfg.RetryDelay,
		breaker:    circuit.NewCircuitBreaker("hyperliquid", threshold, cooldown),
	}, nil
}

// ValidateAddress checks the 0x-prefixed 40 hex digit form.
func ValidateAddress(addr string) error {
	if !addressPattern.MatchString(strings.TrimSpace(addr)) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return nil
}

// info posts a request body to /info through the circuit breaker. Only
// failures worth retrying count against the breaker.
func (c *Client) info(ctx context.Context, payload any) (gjson.Result, error) {
	var res gjson.Result
	err := c.breaker.Execute(func() error {
		var err error
		res, err = c.infoWithRetry(ctx, payload)
		if err != nil && (!retryable(err) || ctx.Err() != nil) {
			return circuit.Ignore(err)
		}
		return err
	})
	return res, err
}

// infoWithRetry retries transient failures with exponential backoff
// (retryDelay * 2^n).
func (c *Client) infoWithRetry(ctx context.Context, payload any) (gjson.Result, error) {
	b := &backoff.Backoff{
		Min:    c.retryDelay,
		Max:    c.retryDelay << uint(c.maxRetries),
		Factor: 2,
	}
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(0)
			if c.retryDelay > 0 {
				wait = b.Duration()
			}
			logger.Warnf("hyperliquid: attempt %d/%d failed: %v (retry in %s)", attempt, c.maxRetries+1, lastErr, wait)
			if err := sleepContext(ctx, wait); err != nil {
				return gjson.Result{}, err
			}
		}
		res, err := c.doRequest(ctx, payload)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return gjson.Result{}, lastErr
}

func (c *Client) doRequest(ctx context.Context, payload any) (gjson.Result, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode request: %w", err)
	}
	endpoint := c.baseURL.JoinPath("info")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(buf))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("call hyperliquid: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return gjson.Result{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read hyperliquid response: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("hyperliquid response is not valid JSON")
	}
	return gjson.ParseBytes(data), nil
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
