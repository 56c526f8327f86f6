package interpretation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
	"github.com/Aleph-Alpha/trackindex/v1/track"
)

// fakeLLM answers every prompt through reply and records the prompts it saw.
type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) string
}

func (f *fakeLLM) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req chatRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.Len(t, req.Messages, 2) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		prompt := req.Messages[1].Content

		f.mu.Lock()
		f.prompts = append(f.prompts, prompt)
		f.mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": f.reply(prompt)}}},
		})
	}
}

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{Endpoint: srv.URL, Token: "k"})
	require.NoError(t, err)
	return c
}

func TestInterpretWithLyrics(t *testing.T) {
	llm := &fakeLLM{reply: func(string) string { return "  A defiant operatic confession.  " }}
	lyrics := "Is this the real life?"

	out, err := newClient(t, llm.handler(t)).Interpret(context.Background(), Input{
		Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera", Lyrics: &lyrics,
	})
	require.NoError(t, err)
	require.NotNil(t, out.Interpretation)
	assert.Equal(t, "A defiant operatic confession.", *out.Interpretation)
	assert.Equal(t, "A defiant operatic confession.", out.Descriptions[track.FromLyrics])
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Is this the real life?")
}

func TestInterpretWithoutLyricsUsesAudioFeatures(t *testing.T) {
	llm := &fakeLLM{reply: func(string) string { return "Energetic and fast." }}

	out, err := newClient(t, llm.handler(t)).Interpret(context.Background(), Input{
		Title: "Interlude", Artist: "Ensemble",
		AudioFeatures: &track.AudioFeatures{Energy: track.Float(0.85), Tempo: track.Float(150)},
	})
	require.NoError(t, err)
	assert.Nil(t, out.Interpretation)
	assert.Equal(t, "Energetic and fast.", out.Descriptions[track.FromAudioFeatures])
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "energy=0.85")
}

func TestInterpretWithMetadataOnly(t *testing.T) {
	llm := &fakeLLM{reply: func(string) string { return "A track by Ensemble." }}

	out, err := newClient(t, llm.handler(t)).Interpret(context.Background(), Input{Title: "Interlude", Artist: "Ensemble", Album: "Quiet"})
	require.NoError(t, err)
	assert.Equal(t, "A track by Ensemble.", out.Descriptions[track.FromMetadata])
	assert.Contains(t, llm.prompts[0], "Only the title, artist and album are known")
}

func TestInterpretFallsBackOnEmptyOutput(t *testing.T) {
	llm := &fakeLLM{reply: func(prompt string) string {
		if strings.Contains(prompt, "Only the title") {
			return "Metadata description."
		}
		return ""
	}}
	lyrics := "la la la"

	out, err := newClient(t, llm.handler(t)).Interpret(context.Background(), Input{
		Title: "Song", Artist: "Someone", Lyrics: &lyrics,
		AudioFeatures: &track.AudioFeatures{Valence: track.Float(0.2)},
	})
	require.NoError(t, err)
	assert.Nil(t, out.Interpretation)
	assert.Equal(t, map[track.DescriptionSource]string{track.FromMetadata: "Metadata description."}, out.Descriptions)
	assert.Len(t, llm.prompts, 3)
}

func TestInterpretEmptyEverywhereIsSchemaFailure(t *testing.T) {
	llm := &fakeLLM{reply: func(string) string { return "" }}
	_, err := newClient(t, llm.handler(t)).Interpret(context.Background(), Input{Title: "Song", Artist: "Someone"})
	assert.ErrorIs(t, err, adapter.ErrSchema)
}

func TestInterpretNoChoicesIsSchemaFailure(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})
	_, err := c.Interpret(context.Background(), Input{Title: "Song", Artist: "Someone"})
	assert.ErrorIs(t, err, adapter.ErrSchema)
	assert.False(t, adapter.IsRetryable(err))
}

func TestInterpretRateLimited(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Interpret(context.Background(), Input{Title: "Song", Artist: "Someone"})
	assert.ErrorIs(t, err, adapter.ErrRateLimited)
	assert.True(t, adapter.IsRetryable(err))
}
