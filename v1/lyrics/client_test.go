package lyrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
)

func newClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)
	return c
}

func TestFetchWithLyrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tracks/USRC17607839", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"Bohemian Rhapsody","artist":"Queen","album":"A Night at the Opera","lyrics":"Is this the real life?"}`))
	})

	res, err := newClient(t, mux).Fetch(context.Background(), Query{ISRC: "USRC17607839"})
	require.NoError(t, err)
	assert.Equal(t, "Bohemian Rhapsody", res.Metadata.Title)
	assert.Equal(t, "A Night at the Opera", res.Metadata.Album)
	require.NotNil(t, res.Lyrics)
	assert.Equal(t, "Is this the real life?", *res.Lyrics)
}

func TestFetchFallsBackToTitleArtistLookup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tracks/GBAYE0000351", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"Hey Jude","artist":"The Beatles","album":"Hey Jude"}`))
	})
	mux.HandleFunc("/lyrics", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Hey Jude", r.URL.Query().Get("title"))
		assert.Equal(t, "The Beatles", r.URL.Query().Get("artist"))
		_, _ = w.Write([]byte(`{"lyrics":"Hey Jude, don't make it bad"}`))
	})

	res, err := newClient(t, mux).Fetch(context.Background(), Query{ISRC: "GBAYE0000351"})
	require.NoError(t, err)
	require.NotNil(t, res.Lyrics)
	assert.Equal(t, "Hey Jude, don't make it bad", *res.Lyrics)
}

func TestFetchInstrumental(t *testing.T) {
	var lookups int32
	mux := http.NewServeMux()
	mux.HandleFunc("/tracks/USUM70000001", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"Interlude","artist":"Ensemble","album":"Quiet","instrumental":true}`))
	})
	mux.HandleFunc("/lyrics", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&lookups, 1)
	})

	res, err := newClient(t, mux).Fetch(context.Background(), Query{ISRC: "USUM70000001"})
	require.NoError(t, err)
	assert.Nil(t, res.Lyrics)
	assert.Zero(t, atomic.LoadInt32(&lookups))
}

func TestFetchLyricsLookupNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tracks/USUM70000002", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"Song","artist":"Someone","album":"Record","lyrics":"   "}`))
	})
	mux.HandleFunc("/lyrics", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	res, err := newClient(t, mux).Fetch(context.Background(), Query{ISRC: "USUM70000002"})
	require.NoError(t, err)
	assert.Nil(t, res.Lyrics)
}

func TestFetchUnknownTrackIsFatal(t *testing.T) {
	res, err := newClient(t, http.NewServeMux()).Fetch(context.Background(), Query{ISRC: "USUM70000003"})
	assert.Nil(t, res)
	aerr, ok := adapter.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, aerr.StatusCode)
	assert.False(t, aerr.Retryable)
}

func TestFetchRecordWithoutTitleIsSchemaFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tracks/USUM70000004", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"artist":"Someone"}`))
	})
	_, err := newClient(t, mux).Fetch(context.Background(), Query{ISRC: "USUM70000004"})
	assert.ErrorIs(t, err, adapter.ErrSchema)
}
