// Package audiofeatures fetches the numeric audio descriptors of a recording.
package audiofeatures

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
	"github.com/Aleph-Alpha/trackindex/v1/track"
)

// Client calls GET {endpoint}/audio-features/{isrc}.
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

type response struct {
	track.AudioFeatures
}

func (r *response) Validate() error {
	return r.AudioFeatures.Validate()
}

// Fetch returns the features of the recording, or nil when the provider has none.
// Out-of-range values are a schema failure.
func (c *Client) Fetch(ctx context.Context, isrc string) (*track.AudioFeatures, error) {
	var out response
	err := c.http.GetJSON(ctx, "/audio-features/"+url.PathEscape(isrc), nil, &out)
	if err != nil {
		if aerr, ok := adapter.As(err); ok && aerr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if out.AudioFeatures.IsEmpty() {
		return nil, nil
	}
	return &out.AudioFeatures, nil
}
