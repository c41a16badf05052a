package groqrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/models"
	"mediaid-gateway/internal/provider"
)

const (
	contentTypeJSON  = "application/json"
	userAgent        = "mediaid-gateway/0.1"
	maxResponseBytes = 4 << 20
	maxErrorBytes    = 64 * 1024
)

// Provider calls Groq's OpenAI-compatible chat completions endpoint over plain HTTP.
type Provider struct {
	name    string
	apiKey  string
	headers map[string]string
	client  *http.Client
	models  []models.Model
	chatURL string
}

// New creates a Groq REST provider.
func New(name string, cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if cfg.Style != config.StyleGroqREST {
		return nil, fmt.Errorf("groq rest provider %q received unsupported style %q", name, cfg.Style)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}

	modelsList := make([]models.Model, 0, len(cfg.Models))
	for _, id := range cfg.Models {
		modelsList = append(modelsList, models.Model{
			ID:       id,
			Provider: name,
			Style:    cfg.Style,
		})
	}

	return &Provider{
		name:    name,
		apiKey:  cfg.APIKey,
		headers: cfg.Headers,
		client:  client,
		models:  modelsList,
		chatURL: baseURL + "/chat/completions",
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

// Complete sends one chat completion and extracts choices[0].message.content.
func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
	if strings.TrimSpace(req.UserText) == "" {
		return nil, provider.ErrEmptyPrompt
	}

	httpReq, err := p.newRequest(ctx, http.MethodPost, p.chatURL, buildChatPayload(req))
	if err != nil {
		return nil, err
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, provider.Unavailable(p.name, fmt.Errorf("groq chat request failed: %w", err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, p.parseAPIError(httpResp)
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, provider.Unavailable(p.name, fmt.Errorf("read provider response: %w", err))
	}

	var providerResp chatResponse
	if err := json.Unmarshal(raw, &providerResp); err != nil {
		return nil, provider.Unavailable(p.name, fmt.Errorf("decode provider response: %w", err))
	}

	return &models.CompletionResponse{
		Text: providerResp.text(),
		Raw:  json.RawMessage(raw),
	}, nil
}

func (p *Provider) newRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func buildChatPayload(req models.CompletionRequest) chatPayload {
	messages := make([]chatMessage, 0, len(req.History)+2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, msg := range req.History {
		messages = append(messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserText})

	return chatPayload{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

func (r chatResponse) text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Choices[0].Message.Content)
}

type apiErrorResponse struct {
	Error apiErrorObject `json:"error"`
}

type apiErrorObject struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (p *Provider) parseAPIError(resp *http.Response) error {
	upstream := &provider.UpstreamError{Provider: p.name, Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	if err != nil {
		upstream.Err = fmt.Errorf("read error body: %w", err)
		return upstream
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		upstream.Message = fmt.Sprintf("groq error (%s): %s", apiErr.Error.Type, apiErr.Error.Message)
		return upstream
	}

	upstream.Message = strings.TrimSpace(string(body))
	return upstream
}
