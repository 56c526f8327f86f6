// Package interpretation generates free-text interpretations and short descriptions
// of tracks through an OpenAI-compatible chat-completions API.
package interpretation

import (
	"context"
	"errors"
	"strings"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
	"github.com/Aleph-Alpha/trackindex/v1/track"
)

// Input is what is known about the track when the interpretation runs.
type Input struct {
	Title         string
	Artist        string
	Album         string
	Lyrics        *string
	AudioFeatures *track.AudioFeatures
}

// Output carries the interpretation, nil when no lyrics were available, and the
// short descriptions generated, keyed by the prompt they came from.
type Output struct {
	Interpretation *string                            `json:"interpretation,omitempty"`
	Descriptions   map[track.DescriptionSource]string `json:"descriptions"`
}

// Client calls POST {endpoint}/chat/completions.
type Client struct {
	http        *adapter.HTTPClient
	model       string
	temperature float64
	maxTokens   int
}

// NewClient creates the client.
func NewClient(cfg Config) (*Client, error) {
	hc, err := adapter.NewHTTPClient(ServiceName, cfg.httpConfig())
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Client{http: hc, model: cfg.Model, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (r *chatResponse) Validate() error {
	if len(r.Choices) == 0 {
		return errors.New("no choices in completion")
	}
	return nil
}

// Interpret runs the lyrics prompt when lyrics exist. Without lyrics, or when the
// lyrics prompt yields nothing, it runs the audio-features prompt when features
// exist, then the bare-metadata prompt. Empty output from the last prompt tried is
// a schema failure.
func (c *Client) Interpret(ctx context.Context, in Input) (*Output, error) {
	out := &Output{Descriptions: map[track.DescriptionSource]string{}}

	if in.Lyrics != nil && strings.TrimSpace(*in.Lyrics) != "" {
		text, err := c.complete(ctx, lyricsPrompt(in))
		if err != nil {
			return nil, err
		}
		if text != "" {
			out.Interpretation = &text
			out.Descriptions[track.FromLyrics] = text
			return out, nil
		}
	}

	if !in.AudioFeatures.IsEmpty() {
		text, err := c.complete(ctx, audioFeaturesPrompt(in))
		if err != nil {
			return nil, err
		}
		if text != "" {
			out.Descriptions[track.FromAudioFeatures] = text
			return out, nil
		}
	}

	text, err := c.complete(ctx, metadataPrompt(in))
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, adapter.Schema(ServiceName, errors.New("empty completion"))
	}
	out.Descriptions[track.FromMetadata] = text
	return out, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	var resp chatResponse
	if err := c.http.PostJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
