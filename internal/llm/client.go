// Package llm is a small client for OpenAI-compatible chat completions
// endpoints (OpenAI, Gemini's compatibility layer, Ollama, vLLM) with
// structured JSON output.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to one model on one endpoint.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	apiKey      string
	temperature *float64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithTemperature sets the sampling temperature. Nil leaves the provider default.
func WithTemperature(t *float64) Option {
	return func(c *Client) { c.temperature = t }
}

// New creates a client for model at baseURL. baseURL is the API root, for
// example "https://api.openai.com/v1"; "/chat/completions" is appended.
func New(baseURL, model string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Schema describes the JSON object the model must return.
type Schema struct {
	Name   string
	Schema map[string]any
}

// Request is one single-turn exchange.
type Request struct {
	System string
	User   string
	// Schema, when set, asks the endpoint for structured JSON output.
	Schema *Schema
}

// Complete sends req and returns the text of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	wireRequest := c.buildRequest(req)

	httpResponse, err := c.do(ctx, wireRequest)
	if err != nil {
		return "", err
	}
	defer httpResponse.Body.Close()

	var wireResp chatResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&wireResp); err != nil {
		return "", fmt.Errorf("llm: decoding response: %w", err)
	}
	if len(wireResp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(wireResp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// CompleteJSON sends req and decodes the first choice into out.
// Markdown code fences around the JSON are tolerated.
func (c *Client) CompleteJSON(ctx context.Context, req Request, out any) error {
	content, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFences(content)), out); err != nil {
		return &DecodeError{Content: content, Err: err}
	}
	return nil
}

func (c *Client) endpoint() string {
	return c.baseURL + "/chat/completions"
}

func (c *Client) buildRequest(req Request) chatRequest {
	wireRequest := chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
	}
	if req.System != "" {
		wireRequest.Messages = append(wireRequest.Messages, chatMessage{Role: "system", Content: req.System})
	}
	wireRequest.Messages = append(wireRequest.Messages, chatMessage{Role: "user", Content: req.User})

	if req.Schema != nil {
		wireRequest.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   req.Schema.Name,
				Schema: req.Schema.Schema,
				Strict: true,
			},
		}
	}
	return wireRequest
}

// do POSTs wireRequest and returns the response. Non-200 statuses become a
// ProviderError; on error the body is already closed.
func (c *Client) do(ctx context.Context, wireRequest chatRequest) (*http.Response, error) {
	body, err := json.Marshal(wireRequest)
	if err != nil {
		return nil, fmt.Errorf("llm: marshaling request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("llm: sending request: %w", err)
	}

	if httpResponse.StatusCode != http.StatusOK {
		defer httpResponse.Body.Close()
		return nil, readProviderError(httpResponse)
	}
	return httpResponse, nil
}

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// readProviderError parses {"error":{...}} or Gemini's [{"error":{...}}].
func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))

	type wireError struct {
		Error struct {
			Type    string `json:"type"`
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}

	var single wireError
	if json.Unmarshal(body, &single) == nil && single.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Type:       firstNonEmpty(single.Error.Type, single.Error.Status),
			Message:    single.Error.Message,
		}
	}
	var list []wireError
	if json.Unmarshal(body, &list) == nil && len(list) > 0 && list[0].Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Type:       firstNonEmpty(list[0].Error.Type, list[0].Error.Status),
			Message:    list[0].Error.Message,
		}
	}

	return &ProviderError{
		StatusCode: httpResponse.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
