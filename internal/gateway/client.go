// Package gateway provides access to the GitHub GraphQL API: a retrying
// query executor and typed fetchers for each document the crawl issues.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"

	"github.com/prlab/prcrawl/internal/config"
)

// ErrExhausted is the definitive failure returned once the retry budget
// for transient errors is spent. Callers apply per-entity fallback policy
// instead of aborting the run.
var ErrExhausted = errors.New("max retries exceeded")

// StatusError is a non-retryable HTTP failure (anything that is not a
// rate limit or a server error).
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("query failed with status %d: %s", e.Code, e.Body)
}

// Response is the raw GraphQL envelope.
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []QueryError    `json:"errors,omitempty"`
}

// QueryError is one entry of the optional top-level error list.
type QueryError struct {
	Message string `json:"message"`
}

// Client executes GraphQL documents with retry and backoff. It is safe
// for concurrent use; every worker in the crawl shares one instance.
type Client struct {
	httpClient *http.Client
	endpoint   string
	maxRetries int
	retryDelay time.Duration
	logger     *log.Logger

	// Injection points for tests. Production values are time.Sleep and
	// time.Now.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewClient builds a Client authenticated with the configured token. The
// token is wired once here through an oauth2 static source and never
// re-read mid-run.
func NewClient(cfg *config.Config, logger *log.Logger) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &oauth2.Transport{
			Base:   http.DefaultTransport,
			Source: ts,
		},
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   cfg.APIURL,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// Execute posts a query document with its variables and returns the parsed
// envelope. Transient failures are retried:
//
//   - 403 is treated as a rate limit: sleep until the reset hint from
//     X-RateLimit-Reset (at least 60s), then try again without consuming
//     a retry attempt.
//   - 5xx and network-level failures back off exponentially and consume
//     an attempt; once maxRetries attempts are spent the call degrades to
//     ErrExhausted.
//   - any other error status is fatal for this call and returned as a
//     StatusError immediately.
//
// Each retry blocks the calling goroutine for the full backoff duration,
// so callers running under a bounded pool must budget for that.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (*Response, error) {
	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query payload: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = 4 * time.Hour
	bo.MaxElapsedTime = 0
	bo.Reset()

	for attempt := 0; attempt < c.maxRetries; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := c.post(ctx, body)
		if err != nil {
			// Network-level failure (connection refused, timeout).
			attempt++
			if attempt >= c.maxRetries {
				c.logger.Printf("query failed: %v; max retries (%d) exceeded, giving up", err, c.maxRetries)
				return nil, fmt.Errorf("%w: %v", ErrExhausted, err)
			}
			wait := bo.NextBackOff()
			c.logger.Printf("query failed: %v; retrying in %s (attempt %d/%d)", err, wait, attempt+1, c.maxRetries)
			c.sleep(wait)
			continue
		}

		switch {
		case resp.statusCode == http.StatusForbidden:
			wait := c.rateLimitWait(resp.header)
			c.logger.Printf("API rate limit exceeded, waiting %s", wait)
			c.sleep(wait)
			continue

		case resp.statusCode >= 500 && resp.statusCode < 600:
			attempt++
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("%w: server error %d", ErrExhausted, resp.statusCode)
			}
			wait := bo.NextBackOff()
			c.logger.Printf("server error %d, retrying in %s (attempt %d/%d)", resp.statusCode, wait, attempt+1, c.maxRetries)
			c.sleep(wait)
			continue

		case resp.statusCode != http.StatusOK:
			return nil, &StatusError{Code: resp.statusCode, Body: string(resp.body)}
		}

		var parsed Response
		if err := json.Unmarshal(resp.body, &parsed); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &parsed, nil
	}

	return nil, ErrExhausted
}

type rawResponse struct {
	statusCode int
	header     http.Header
	body       []byte
}

func (c *Client) post(ctx context.Context, body []byte) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &rawResponse{statusCode: resp.StatusCode, header: resp.Header, body: data}, nil
}

// rateLimitWait derives the sleep duration from the reset-time hint. The
// hint is a unix timestamp; the wait is padded by 5s and floored at 60s
// so a missing or stale header still paces the client.
func (c *Client) rateLimitWait(h http.Header) time.Duration {
	reset, _ := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	wait := time.Duration(reset-c.now().Unix()+5) * time.Second
	if wait < 60*time.Second {
		wait = 60 * time.Second
	}
	return wait
}
