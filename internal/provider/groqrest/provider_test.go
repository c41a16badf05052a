package groqrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/models"
	"mediaid-gateway/internal/provider"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := New("groq", config.ProviderConfig{
		Style:   config.StyleGroqREST,
		APIKey:  "test-key",
		BaseURL: server.URL + "/openai/v1/",
		Models:  []string{"llama-3.1-8b-instant"},
		Headers: config.Headers{"X-Trace": "abc"},
	}, server.Client())
	require.NoError(t, err)
	return p
}

func TestCompleteSendsPayloadAndExtractsText(t *testing.T) {
	temp := 0.5
	maxTokens := 180

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "abc", r.Header.Get("X-Trace"))

		var payload chatPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "llama-3.1-8b-instant", payload.Model)
		require.Len(t, payload.Messages, 4)
		assert.Equal(t, chatMessage{Role: "system", Content: "be brief"}, payload.Messages[0])
		assert.Equal(t, chatMessage{Role: "user", Content: "earlier"}, payload.Messages[1])
		assert.Equal(t, chatMessage{Role: "assistant", Content: "earlier reply"}, payload.Messages[2])
		assert.Equal(t, chatMessage{Role: "user", Content: "I have a headache"}, payload.Messages[3])
		require.NotNil(t, payload.Temperature)
		assert.InDelta(t, 0.5, *payload.Temperature, 1e-9)
		require.NotNil(t, payload.MaxTokens)
		assert.Equal(t, 180, *payload.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"  Try paracetamol  "},"finish_reason":"stop"}]}`)
	})

	resp, err := p.Complete(context.Background(), models.CompletionRequest{
		Model:        "llama-3.1-8b-instant",
		SystemPrompt: "be brief",
		History: []models.Message{
			{Role: models.RoleUser, Content: "earlier"},
			{Role: models.RoleAssistant, Content: "earlier reply"},
		},
		UserText:    "I have a headache",
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	require.NoError(t, err)
	assert.Equal(t, "Try paracetamol", resp.Text)
	assert.Contains(t, string(resp.Raw), `"finish_reason":"stop"`)
}

func TestCompleteEmptyChoicesIsNotAnError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"x","choices":[]}`)
	})

	resp, err := p.Complete(context.Background(), models.CompletionRequest{Model: "llama-3.1-8b-instant", UserText: "hi"})
	require.NoError(t, err)
	assert.Empty(t, resp.Text)
}

func TestCompleteFailures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantMsg    string
	}{
		{
			name: "api error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`)
			},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid API Key",
		},
		{
			name: "plain error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, "overloaded")
			},
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    "overloaded",
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices":[`)
			},
			wantMsg: "decode provider response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.handler)
			_, err := p.Complete(context.Background(), models.CompletionRequest{Model: "llama-3.1-8b-instant", UserText: "hi"})
			require.Error(t, err)
			assert.ErrorIs(t, err, provider.ErrUnavailable)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var upstream *provider.UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, tt.wantStatus, upstream.Status)
		})
	}
}

func TestCompleteTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	p, err := New("groq", config.ProviderConfig{
		Style:   config.StyleGroqREST,
		APIKey:  "k",
		BaseURL: server.URL,
		Models:  []string{"m"},
	}, server.Client())
	require.NoError(t, err)
	server.Close()

	_, err = p.Complete(context.Background(), models.CompletionRequest{Model: "m", UserText: "hi"})
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestCompleteRejectsEmptyPrompt(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called")
	})

	_, err := p.Complete(context.Background(), models.CompletionRequest{Model: "llama-3.1-8b-instant", UserText: "  "})
	assert.ErrorIs(t, err, provider.ErrEmptyPrompt)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New("groq", config.ProviderConfig{Style: config.StyleGroqREST, BaseURL: "http://x"}, nil)
	assert.Error(t, err)

	_, err = New("groq", config.ProviderConfig{Style: config.StyleGeminiREST, BaseURL: "http://x"}, http.DefaultClient)
	assert.Error(t, err)

	_, err = New("groq", config.ProviderConfig{Style: config.StyleGroqREST}, http.DefaultClient)
	assert.Error(t, err)
}
