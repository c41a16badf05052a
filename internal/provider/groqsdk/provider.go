package groqsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/models"
	"mediaid-gateway/internal/provider"
)

// Provider talks to Groq through the go-openai client pointed at Groq's
// OpenAI-compatible base URL.
type Provider struct {
	name   string
	client *openai.Client
	models []models.Model
}

// New constructs a Groq SDK provider. Extra configured headers are attached by
// wrapping the transport of the supplied http client.
func New(name string, cfg config.ProviderConfig, httpClient *http.Client) (*Provider, error) {
	if httpClient == nil {
		return nil, errors.New("http client must not be nil")
	}
	if cfg.Style != config.StyleGroqSDK {
		return nil, fmt.Errorf("groq sdk provider %q received unsupported style %q", name, cfg.Style)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL
	clientCfg.HTTPClient = withHeaders(httpClient, cfg.Headers)

	modelsList := make([]models.Model, 0, len(cfg.Models))
	for _, id := range cfg.Models {
		modelsList = append(modelsList, models.Model{
			ID:       id,
			Provider: name,
			Style:    cfg.Style,
		})
	}

	return &Provider{
		name:   name,
		client: openai.NewClientWithConfig(clientCfg),
		models: modelsList,
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) ListModels(ctx context.Context) ([]models.Model, error) {
	result := make([]models.Model, len(p.models))
	copy(result, p.models)
	return result, nil
}

// Complete sends one chat completion and extracts the first choice's content.
func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
	if strings.TrimSpace(req.UserText) == "" {
		return nil, provider.ErrEmptyPrompt
	}

	resp, err := p.client.CreateChatCompletion(ctx, buildChatRequest(req))
	if err != nil {
		return nil, p.wrapError(err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal provider response: %w", err)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}

	return &models.CompletionResponse{
		Text: text,
		Raw:  json.RawMessage(raw),
	}, nil
}

func buildChatRequest(req models.CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, msg := range req.History {
		role := openai.ChatMessageRoleUser
		if msg.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserText,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
		if chatReq.Temperature == 0 {
			// go-openai omits a zero temperature; the smallest float32 still encodes.
			chatReq.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if req.MaxTokens != nil {
		chatReq.MaxTokens = *req.MaxTokens
	}
	return chatReq
}

func (p *Provider) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &provider.UpstreamError{
			Provider: p.name,
			Status:   apiErr.HTTPStatusCode,
			Message:  fmt.Sprintf("groq error (%s): %s", apiErr.Type, apiErr.Message),
			Err:      err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &provider.UpstreamError{
			Provider: p.name,
			Status:   reqErr.HTTPStatusCode,
			Err:      err,
		}
	}

	return provider.Unavailable(p.name, fmt.Errorf("groq chat request failed: %w", err))
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

func withHeaders(client *http.Client, headers map[string]string) *http.Client {
	if len(headers) == 0 {
		return client
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *client
	wrapped.Transport = headerTransport{base: base, headers: headers}
	return &wrapped
}
