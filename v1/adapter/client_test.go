package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func (p *payload) Validate() error {
	if p.Name == "" {
		return errors.New("name missing")
	}
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient("test", Config{Endpoint: srv.URL + "/", Token: "secret"})
	require.NoError(t, err)
	return c
}

func TestClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
		{http.StatusBadRequest, false},
		{http.StatusUnprocessableEntity, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			err := c.GetJSON(context.Background(), "/x", nil, &payload{})

			aerr, ok := As(err)
			require.True(t, ok)
			assert.Equal(t, "test", aerr.Service)
			assert.Equal(t, tt.status, aerr.StatusCode)
			assert.Equal(t, tt.retryable, aerr.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestRateLimitedMatchesSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	err := c.GetJSON(context.Background(), "/x", nil, nil)

	assert.ErrorIs(t, err, ErrRateLimited)
	aerr, _ := As(err)
	assert.Equal(t, 7*time.Second, aerr.RetryAfter)

	assert.NotErrorIs(t, FromStatus("x", http.StatusServiceUnavailable, "", 0), ErrRateLimited)
}

func TestDecodeAndValidate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/lookup", r.URL.Path)
		assert.Equal(t, "Queen", r.URL.Query().Get("artist"))
		_ = json.NewEncoder(w).Encode(payload{Name: "ok"})
	})

	var out payload
	require.NoError(t, c.GetJSON(context.Background(), "/lookup", url.Values{"artist": {"Queen"}}, &out))
	assert.Equal(t, "ok", out.Name)
}

func TestSchemaFailuresAreFatal(t *testing.T) {
	for name, body := range map[string]string{
		"garbage": "not json",
		"invalid": `{"name": ""}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			err := c.GetJSON(context.Background(), "/x", nil, &payload{})
			assert.ErrorIs(t, err, ErrSchema)
			assert.False(t, IsRetryable(err))
		})
	}
}

func TestTransportFailureIsRetryable(t *testing.T) {
	c, err := NewHTTPClient("test", Config{
		Endpoint: "http://example.invalid",
		Transport: TransportFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}),
	})
	require.NoError(t, err)

	err = c.PostJSON(context.Background(), "/x", map[string]string{"a": "b"}, nil)
	aerr, ok := As(err)
	require.True(t, ok)
	assert.True(t, aerr.Retryable)
	assert.Zero(t, aerr.StatusCode)
}

func TestLimiterHonoursContext(t *testing.T) {
	c, err := NewHTTPClient("test", Config{Endpoint: "http://example.invalid", RequestsPerSecond: 0.001})
	require.NoError(t, err)
	// first token is free, prime it
	c.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = c.GetJSON(ctx, "/x", nil, nil)
	assert.True(t, IsRetryable(err))
}

func TestConfigValidation(t *testing.T) {
	_, err := NewHTTPClient("test", Config{})
	assert.Error(t, err)
	_, err = NewHTTPClient("test", Config{Endpoint: "http://x", RequestsPerSecond: -1})
	assert.Error(t, err)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "lyrics: http 404: Not Found", FromStatus("lyrics", 404, "", 0).Error())
	assert.ErrorIs(t, InvalidInput("embedding", "empty text"), ErrInvalidInput)
	assert.False(t, InvalidInput("embedding", "empty text").Retryable)
}
