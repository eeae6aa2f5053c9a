package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a Client against a mock server with recorded
// sleeps instead of real ones.
func newTestClient(server *httptest.Server, maxRetries int, retryDelay time.Duration) (*Client, *[]time.Duration) {
	var sleeps []time.Duration
	c := &Client{
		httpClient: server.Client(),
		endpoint:   server.URL,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     log.New(io.Discard, "", 0),
		sleep:      func(d time.Duration) { sleeps = append(sleeps, d) },
		now:        time.Now,
	}
	return c, &sleeps
}

func TestClient_Execute_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		fmt.Fprint(w, `{"data": {"viewer": {"login": "octocat"}}}`)
	}))
	defer server.Close()

	client, sleeps := newTestClient(server, 5, 10*time.Second)
	resp, err := client.Execute(context.Background(), "query { viewer { login } }", nil)

	require.NoError(t, err)
	assert.JSONEq(t, `{"viewer": {"login": "octocat"}}`, string(resp.Data))
	assert.Empty(t, *sleeps)
}

func TestClient_Execute_RateLimitThenSuccess(t *testing.T) {
	resetAt := time.Now().Add(90 * time.Second).Unix()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt))
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"data": {"ok": true}}`)
	}))
	defer server.Close()

	client, sleeps := newTestClient(server, 5, 10*time.Second)
	resp, err := client.Execute(context.Background(), "query {}", nil)

	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, 2, calls)
	require.Len(t, *sleeps, 1)
	// The wait must honor the reset hint (+5s padding) and never go below
	// the 60s floor.
	assert.GreaterOrEqual(t, (*sleeps)[0], 60*time.Second)
	assert.LessOrEqual(t, (*sleeps)[0], 95*time.Second)
}

func TestClient_Execute_RateLimitWithoutHintUsesFloor(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"data": {}}`)
	}))
	defer server.Close()

	client, sleeps := newTestClient(server, 5, 10*time.Second)
	_, err := client.Execute(context.Background(), "query {}", nil)

	require.NoError(t, err)
	require.Len(t, *sleeps, 1)
	assert.Equal(t, 60*time.Second, (*sleeps)[0])
}

func TestClient_Execute_ServerErrorExhaustsRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	const maxRetries = 5
	client, sleeps := newTestClient(server, maxRetries, 10*time.Second)
	resp, err := client.Execute(context.Background(), "query {}", nil)

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, maxRetries, calls)

	// Exponential backoff: each wait strictly longer than the previous.
	require.Len(t, *sleeps, maxRetries-1)
	for i := 1; i < len(*sleeps); i++ {
		assert.Greater(t, (*sleeps)[i], (*sleeps)[i-1])
	}
	assert.Equal(t, 10*time.Second, (*sleeps)[0])
	assert.Equal(t, 20*time.Second, (*sleeps)[1])
}

func TestClient_Execute_NetworkFailureExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, sleeps := newTestClient(server, 3, time.Second)
	server.Close() // every request now fails at the connection level

	resp, err := client.Execute(context.Background(), "query {}", nil)

	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.Len(t, *sleeps, 2)
}

func TestClient_Execute_OtherStatusIsFatal(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Bad credentials"}`)
	}))
	defer server.Close()

	client, sleeps := newTestClient(server, 5, 10*time.Second)
	resp, err := client.Execute(context.Background(), "query {}", nil)

	assert.Nil(t, resp)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	// No retry for fatal statuses.
	assert.Equal(t, 1, calls)
	assert.Empty(t, *sleeps)
}

func TestClient_Execute_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server, 5, 10*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Execute(ctx, "query {}", nil)
	assert.True(t, errors.Is(err, context.Canceled))
}
