package router

import (
	"context"
	"errors"
	"fmt"

	"mediaid-gateway/internal/models"
	"mediaid-gateway/internal/provider"
)

// Router dispatches completion requests to the provider that serves the model.
type Router struct {
	registry *provider.Registry
}

// New constructs a router backed by the provided registry.
func New(registry *provider.Registry) *Router {
	return &Router{
		registry: registry,
	}
}

// Complete routes a completion request to the configured provider. Every failure
// reported by the provider itself matches provider.ErrUnavailable.
func (r *Router) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, models.Model, error) {
	modelInfo, providerImpl, err := r.registry.LookupModel(req.Model)
	if err != nil {
		return nil, models.Model{}, err
	}

	sanitisedReq := req
	sanitisedReq.Model = modelInfo.ID
	sanitisedReq.History = cloneHistory(req.History)

	resp, err := providerImpl.Complete(ctx, sanitisedReq)
	if err != nil {
		if !errors.Is(err, provider.ErrUnavailable) && !errors.Is(err, provider.ErrEmptyPrompt) {
			err = provider.Unavailable(providerImpl.Name(), err)
		}
		return nil, models.Model{}, fmt.Errorf("provider %s completion request: %w", providerImpl.Name(), err)
	}
	if resp == nil {
		return nil, models.Model{}, provider.Unavailable(providerImpl.Name(), errors.New("empty response"))
	}
	return resp, modelInfo, nil
}

// Resolve reports the model and provider that serve modelID.
func (r *Router) Resolve(modelID string) (models.Model, error) {
	modelInfo, _, err := r.registry.LookupModel(modelID)
	return modelInfo, err
}

func cloneHistory(history []models.Message) []models.Message {
	if len(history) == 0 {
		return nil
	}
	out := make([]models.Message, len(history))
	copy(out, history)
	return out
}
