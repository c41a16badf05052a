package geminirest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/models"
	"mediaid-gateway/internal/provider"
)

const (
	contentTypeJSON  = "application/json"
	userAgent        = "mediaid-gateway/0.1"
	apiVersion       = "v1beta"
	maxResponseBytes = 4 << 20
	maxErrorBytes    = 64 * 1024
)

// Provider calls the Gemini generateContent REST endpoint.
type Provider struct {
	name    string
	apiKey  string
	baseURL string
	headers map[string]string
	client  *http.Client
	models  []models.Model
}

// New constructs a Gemini REST provider instance.
func New(name string, cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if cfg.Style != config.StyleGeminiREST {
		return nil, fmt.Errorf("gemini rest provider %q received unsupported style %q", name, cfg.Style)
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
		baseURL: baseURL,
		headers: cfg.Headers,
		client:  client,
		models:  modelsList,
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

// Complete calls generateContent and joins the text parts of the first candidate.
func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
	if strings.TrimSpace(req.UserText) == "" {
		return nil, provider.ErrEmptyPrompt
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent", p.baseURL, apiVersion, url.PathEscape(req.Model))
	httpReq, err := p.newRequest(ctx, http.MethodPost, endpoint, buildGeneratePayload(req))
	if err != nil {
		return nil, err
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, provider.Unavailable(p.name, fmt.Errorf("gemini generate request failed: %w", err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, p.parseAPIError(httpResp)
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, provider.Unavailable(p.name, fmt.Errorf("read provider response: %w", err))
	}

	var providerResp generateResponse
	if err := json.Unmarshal(raw, &providerResp); err != nil {
		return nil, provider.Unavailable(p.name, fmt.Errorf("decode provider response: %w", err))
	}

	return &models.CompletionResponse{
		Text: providerResp.text(),
		Raw:  json.RawMessage(raw),
	}, nil
}

func (p *Provider) newRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-goog-api-key", p.apiKey)

	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

type generatePayload struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

func buildGeneratePayload(req models.CompletionRequest) generatePayload {
	contents := make([]content, 0, len(req.History)+1)
	for _, msg := range req.History {
		role := "user"
		if msg.Role == models.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: msg.Content}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: req.UserText}}})

	payload := generatePayload{Contents: contents}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	if req.Temperature != nil || req.MaxTokens != nil {
		payload.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}
	return payload
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, pt := range r.Candidates[0].Content.Parts {
		sb.WriteString(pt.Text)
	}
	return strings.TrimSpace(sb.String())
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
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
		upstream.Message = fmt.Sprintf("gemini error (%s): %s", apiErr.Error.Status, apiErr.Error.Message)
		return upstream
	}

	upstream.Message = strings.TrimSpace(string(body))
	return upstream
}
