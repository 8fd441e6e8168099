package embedding

import (
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps an OpenAI-compatible API client shared by embedding and generation.
type Client struct {
	client *openai.Client
}

// NewClient creates a client for the OpenAI API or any compatible server.
// The API key is required only when talking to api.openai.com.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if apiKey == "" && (baseURL == "" || strings.Contains(baseURL, "api.openai.com")) {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., generation).
func (c *Client) Client() *openai.Client {
	return c.client
}
