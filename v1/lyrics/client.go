// Package lyrics resolves a recording's catalogue metadata and its lyric text.
package lyrics

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
	"github.com/Aleph-Alpha/trackindex/v1/track"
)

// Query identifies the recording. ISRC is required; Title and Artist enable the
// lookup fallback when the track record carries no lyrics.
type Query struct {
	ISRC   string
	Title  string
	Artist string
}

// Result is the resolved track. Lyrics is nil for instrumentals and for tracks the
// provider has no text for.
type Result struct {
	Metadata track.Metadata `json:"metadata"`
	Lyrics   *string        `json:"lyrics,omitempty"`
}

// Client talks to the provider.
type Client struct {
	http *adapter.HTTPClient
}

// NewClient creates the client.
func NewClient(cfg Config) (*Client, error) {
	hc, err := adapter.NewHTTPClient(ServiceName, cfg.httpConfig())
	if err != nil {
		return nil, err
	}
	return &Client{http: hc}, nil
}

type trackResponse struct {
	ISRC         string  `json:"isrc"`
	Title        string  `json:"title"`
	Artist       string  `json:"artist"`
	Album        string  `json:"album"`
	Lyrics       *string `json:"lyrics"`
	Instrumental bool    `json:"instrumental"`
}

func (r *trackResponse) Validate() error {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Artist) == "" {
		return errors.New("track record without title or artist")
	}
	return nil
}

type lyricsResponse struct {
	Lyrics *string `json:"lyrics"`
}

// Fetch resolves the track. A missing track (404) is a non-retryable failure; a
// track without lyrics is a successful result with nil Lyrics.
func (c *Client) Fetch(ctx context.Context, q Query) (*Result, error) {
	var tr trackResponse
	if err := c.http.GetJSON(ctx, "/tracks/"+url.PathEscape(q.ISRC), nil, &tr); err != nil {
		return nil, err
	}

	res := &Result{
		Metadata: track.Metadata{
			Title:  strings.TrimSpace(tr.Title),
			Artist: strings.TrimSpace(tr.Artist),
			Album:  strings.TrimSpace(tr.Album),
		},
		Lyrics: clean(tr.Lyrics),
	}
	if res.Lyrics != nil || tr.Instrumental {
		return res, nil
	}

	title, artist := firstNonEmpty(q.Title, res.Metadata.Title), firstNonEmpty(q.Artist, res.Metadata.Artist)
	if title == "" || artist == "" {
		return res, nil
	}

	var lr lyricsResponse
	err := c.http.GetJSON(ctx, "/lyrics", url.Values{"title": {title}, "artist": {artist}}, &lr)
	if err != nil {
		if aerr, ok := adapter.As(err); ok && aerr.StatusCode == http.StatusNotFound {
			return res, nil
		}
		return nil, err
	}
	res.Lyrics = clean(lr.Lyrics)
	return res, nil
}

func clean(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
