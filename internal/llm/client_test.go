package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL+"/v1", "gemini-2.0-flash-lite", WithAPIKey("secret"))
}

func writeChoice(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"model":"m","choices":[{"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
}

func TestCompleteJSON(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var wire chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wire))
		require.Equal(t, "gemini-2.0-flash-lite", wire.Model)
		require.Len(t, wire.Messages, 2)
		require.Equal(t, "system", wire.Messages[0].Role)
		require.Equal(t, "classify", wire.Messages[0].Content)
		require.Equal(t, "user", wire.Messages[1].Role)
		require.NotNil(t, wire.ResponseFormat)
		require.Equal(t, "json_schema", wire.ResponseFormat.Type)
		require.Equal(t, "proposal", wire.ResponseFormat.JSONSchema.Name)

		writeChoice(w, `{"tasks":["Preparar o carro"]}`)
	})

	var out struct {
		Tasks []string `json:"tasks"`
	}
	err := client.CompleteJSON(context.Background(), Request{
		System: "classify",
		User:   "Preciso preparar o carro",
		Schema: &Schema{Name: "proposal", Schema: map[string]any{"type": "object"}},
	}, &out)
	require.NoError(t, err)
	require.Equal(t, []string{"Preparar o carro"}, out.Tasks)
}

func TestCompleteJSON_FencedOutput(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeChoice(w, "```json\n{\"decision\":\"revise\"}\n```")
	})

	var out struct {
		Decision string `json:"decision"`
	}
	require.NoError(t, client.CompleteJSON(context.Background(), Request{User: "x"}, &out))
	require.Equal(t, "revise", out.Decision)
}

func TestCompleteJSON_NotJSON(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeChoice(w, "I think this is a task.")
	})

	var out map[string]any
	err := client.CompleteJSON(context.Background(), Request{User: "x"}, &out)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	require.Equal(t, "I think this is a task.", decodeErr.Content)
}

func TestComplete_ProviderError(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"type":"rate_limit_error","message":"slow down"}}`)
	})

	_, err := client.Complete(context.Background(), Request{User: "x"})

	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr))
	require.Equal(t, 429, providerErr.StatusCode)
	require.Equal(t, "rate_limit_error", providerErr.Type)
	require.True(t, providerErr.IsRateLimited())
}

func TestComplete_GeminiErrorList(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `[{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"API key not valid"}}]`)
	})

	_, err := client.Complete(context.Background(), Request{User: "x"})

	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr))
	require.Equal(t, "INVALID_ARGUMENT", providerErr.Type)
	require.Equal(t, "API key not valid", providerErr.Message)
}

func TestComplete_EmptyChoices(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	})

	_, err := client.Complete(context.Background(), Request{User: "x"})
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestStripFences(t *testing.T) {
	require.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripFences(`  {"a":1} `))
	require.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}```"))
}

func TestBuildRequest_Temperature(t *testing.T) {
	temp := 0.2
	client := New("http://x/", "m", WithTemperature(&temp))
	require.Equal(t, "http://x/chat/completions", client.endpoint())

	wire := client.buildRequest(Request{User: "u"})
	require.Len(t, wire.Messages, 1)
	require.Equal(t, &temp, wire.Temperature)
	require.Nil(t, wire.ResponseFormat)
}
