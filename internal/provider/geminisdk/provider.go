package geminisdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/models"
	"mediaid-gateway/internal/provider"
)

const apiVersion = "v1beta"

// Provider calls Gemini through the google.golang.org/genai client.
type Provider struct {
	name   string
	client *genai.Client
	models []models.Model
}

// New constructs a Gemini SDK provider bound to the configured endpoint.
func New(ctx context.Context, name string, cfg config.ProviderConfig, httpClient *http.Client) (*Provider, error) {
	if httpClient == nil {
		return nil, errors.New("http client must not be nil")
	}
	if cfg.Style != config.StyleGeminiSDK {
		return nil, fmt.Errorf("gemini sdk provider %q received unsupported style %q", name, cfg.Style)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}

	headers := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    baseURL,
			APIVersion: apiVersion,
			Headers:    headers,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
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
		name:   name,
		client: client,
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

// Complete generates one reply. The SDK's Text helper joins the first candidate's text parts.
func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
	if strings.TrimSpace(req.UserText) == "" {
		return nil, provider.ErrEmptyPrompt
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, buildContents(req), buildGenerateConfig(req))
	if err != nil {
		return nil, provider.Unavailable(p.name, fmt.Errorf("generate content: %w", err))
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal provider response: %w", err)
	}

	return &models.CompletionResponse{
		Text: strings.TrimSpace(resp.Text()),
		Raw:  json.RawMessage(raw),
	}, nil
}

func buildContents(req models.CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, msg := range req.History {
		role := genai.RoleUser
		if msg.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: req.UserText}},
	})
	return contents
}

func buildGenerateConfig(req models.CompletionRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*req.MaxTokens)
	}
	return cfg
}
