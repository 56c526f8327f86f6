package audiofeatures

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)
	return c
}

func TestFetch(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio-features/USRC17607839", r.URL.Path)
		_, _ = w.Write([]byte(`{"energy": 0.85, "tempo": 150, "mode": 1, "key": 7}`))
	})

	f, err := c.Fetch(context.Background(), "USRC17607839")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, 0.85, *f.Energy)
	assert.Equal(t, 150.0, *f.Tempo)
	assert.Equal(t, 1, *f.Mode)
	assert.Equal(t, 7, *f.Key)
	assert.Nil(t, f.Valence)
}

func TestFetchAbsent(t *testing.T) {
	for name, h := range map[string]http.HandlerFunc{
		"not found": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
		"empty":     func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{}`)) },
	} {
		t.Run(name, func(t *testing.T) {
			f, err := newClient(t, h).Fetch(context.Background(), "USRC17607839")
			assert.NoError(t, err)
			assert.Nil(t, f)
		})
	}
}

func TestFetchOutOfRangeIsSchemaFailure(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tempo": 400}`))
	})
	_, err := c.Fetch(context.Background(), "USRC17607839")
	assert.ErrorIs(t, err, adapter.ErrSchema)
	assert.False(t, adapter.IsRetryable(err))
}

func TestFetchServerErrorIsRetryable(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.Fetch(context.Background(), "USRC17607839")
	assert.True(t, adapter.IsRetryable(err))
}
