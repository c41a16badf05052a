package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mediaid-gateway/internal/models"
)

// ErrUnknownModel indicates the requested model is not registered.
var ErrUnknownModel = errors.New("unknown model")

// ErrDuplicateModel indicates an attempt to register the same model twice.
var ErrDuplicateModel = errors.New("model already registered")

// ErrEmptyPrompt indicates a completion request without user text.
var ErrEmptyPrompt = errors.New("user text must not be empty")

// Provider performs one chat completion against an upstream LLM API.
type Provider interface {
	Name() string
	ListModels(ctx context.Context) ([]models.Model, error)
	Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error)
}

type modelEntry struct {
	model    models.Model
	provider Provider
}

// Registry maintains a mapping of model IDs to providers.
type Registry struct {
	mu     sync.RWMutex
	models map[string]modelEntry
	byName map[string]Provider
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]modelEntry),
		byName: make(map[string]Provider),
	}
}

// RegisterProvider adds the provider, its models and optional aliases. Every
// entry is checked before any is stored, so a failed call leaves the registry unchanged.
func (r *Registry) RegisterProvider(ctx context.Context, p Provider, aliases map[string]string) error {
	if p == nil {
		return errors.New("provider must not be nil")
	}

	modelsList, err := p.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models for provider %q: %w", p.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("provider %q already registered", p.Name())
	}

	staged := make(map[string]modelEntry, len(modelsList)+len(aliases))
	for _, model := range modelsList {
		if r.known(staged, model.ID) {
			return fmt.Errorf("%w: %s", ErrDuplicateModel, model.ID)
		}
		staged[model.ID] = modelEntry{model: model, provider: p}
	}

	resolved := make(map[string]modelEntry, len(aliases))
	for alias, target := range aliases {
		if r.known(staged, alias) {
			return fmt.Errorf("alias %q conflicts with existing model", alias)
		}
		entry, ok := staged[target]
		if !ok {
			entry, ok = r.models[target]
		}
		if !ok {
			return fmt.Errorf("alias %q references unknown model %q", alias, target)
		}
		resolved[alias] = entry
	}

	r.byName[p.Name()] = p
	for id, entry := range staged {
		r.models[id] = entry
	}
	for alias, entry := range resolved {
		r.models[alias] = entry
	}
	return nil
}

func (r *Registry) known(staged map[string]modelEntry, id string) bool {
	if _, ok := staged[id]; ok {
		return true
	}
	_, ok := r.models[id]
	return ok
}

// LookupModel returns the provider and metadata for a given model ID or alias.
func (r *Registry) LookupModel(modelID string) (models.Model, Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.models[modelID]
	if !ok {
		return models.Model{}, nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return entry.model, entry.provider, nil
}
