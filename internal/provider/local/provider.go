package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mediaid-gateway/internal/catalog"
	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/models"
	"mediaid-gateway/internal/provider"
)

// Provider answers from the drug catalog and a fixed advice table. It makes no
// network calls and needs no API key.
type Provider struct {
	name   string
	drugs  catalog.Catalog
	models []models.Model
}

type replyTrace struct {
	Symptoms []string `json:"symptoms"`
	Drugs    []string `json:"drugs"`
}

// New constructs a local provider backed by drugs.
func New(name string, cfg config.ProviderConfig, drugs catalog.Catalog) (*Provider, error) {
	if drugs == nil {
		return nil, errors.New("local provider requires a drug catalog")
	}
	if cfg.Style != config.StyleLocal {
		return nil, fmt.Errorf("local provider %q received unsupported style %q", name, cfg.Style)
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
		drugs:  drugs,
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

// Complete builds a reply for the latest user message. History, system prompt
// and sampling settings do not affect the answer.
func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error) {
	if strings.TrimSpace(req.UserText) == "" {
		return nil, provider.ErrEmptyPrompt
	}

	symptoms := catalog.DetectSymptoms(req.UserText)
	matches, err := p.drugs.LookupByKeywords(ctx, req.UserText)
	if err != nil {
		return nil, provider.Unavailable(p.name, fmt.Errorf("drug lookup: %w", err))
	}

	text := compose(strings.ToLower(req.UserText), symptoms, matches)

	trace := replyTrace{Symptoms: symptoms, Drugs: make([]string, 0, len(matches))}
	for _, d := range matches {
		trace.Drugs = append(trace.Drugs, d.Name)
	}
	raw, err := json.Marshal(trace)
	if err != nil {
		return nil, fmt.Errorf("encode reply trace: %w", err)
	}

	return &models.CompletionResponse{Text: text, Raw: raw}, nil
}

func compose(lower string, symptoms []string, matches []models.DrugRecord) string {
	if len(symptoms) == 0 {
		switch {
		case len(matches) > 0:
			return describeDrugs(matches)
		case containsAny(lower, greetings):
			return greetingReply
		case containsAny(lower, drugQueries):
			return drugQueryReply
		default:
			return fallbackReply
		}
	}

	parts := make([]string, 0, len(symptoms)+1)
	for _, s := range symptoms {
		if advice, ok := symptomAdvice[s]; ok {
			parts = append(parts, advice)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, generalAdvice)
	}
	if len(matches) > 0 {
		parts = append(parts, fmt.Sprintf(foundFormat, len(matches)))
	}
	return strings.Join(parts, "\n\n")
}

func describeDrugs(drugs []models.DrugRecord) string {
	parts := make([]string, 0, len(drugs)+1)
	for _, d := range drugs {
		var b strings.Builder
		b.WriteString(d.Name)
		if d.GenericName != "" && !strings.EqualFold(d.GenericName, d.Name) {
			fmt.Fprintf(&b, " (%s)", d.GenericName)
		}
		if d.Description != "" {
			fmt.Fprintf(&b, ": %s.", d.Description)
		}
		if d.Dosage != "" {
			fmt.Fprintf(&b, " Typical dosage: %s.", d.Dosage)
		}
		if len(d.Precautions) > 0 {
			fmt.Fprintf(&b, " Precautions: %s.", strings.Join(d.Precautions, "; "))
		}
		parts = append(parts, b.String())
	}
	parts = append(parts, generalAdvice)
	return strings.Join(parts, "\n\n")
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
