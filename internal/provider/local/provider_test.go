package local

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediaid-gateway/internal/catalog"
	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/models"
	"mediaid-gateway/internal/provider"
)

type brokenCatalog struct {
	catalog.Catalog
}

func (brokenCatalog) LookupByKeywords(context.Context, string) ([]models.DrugRecord, error) {
	return nil, errors.New("database is locked")
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	seed, err := catalog.LoadSeed("")
	require.NoError(t, err)
	drugs, err := catalog.NewMemory(seed)
	require.NoError(t, err)

	p, err := New("local", config.ProviderConfig{
		Style:  config.StyleLocal,
		Models: []string{config.DefaultLocalModel},
	}, drugs)
	require.NoError(t, err)
	return p
}

func complete(t *testing.T, p *Provider, text string) *models.CompletionResponse {
	t.Helper()
	resp, err := p.Complete(context.Background(), models.CompletionRequest{Model: config.DefaultLocalModel, UserText: text})
	require.NoError(t, err)
	return resp
}

func TestCompleteWithoutSymptoms(t *testing.T) {
	p := newTestProvider(t)

	tests := []struct {
		text string
		want string
	}{
		{text: "Hello there", want: greetingReply},
		{text: "What is a good medicine?", want: drugQueryReply},
		{text: "Can you help?", want: fallbackReply},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, complete(t, p, tt.text).Text)
		})
	}
}

func TestCompleteSymptomAdvice(t *testing.T) {
	p := newTestProvider(t)

	resp := complete(t, p, "I have a fever")
	assert.Equal(t, symptomAdvice["fever"]+"\n\n"+fmt.Sprintf(foundFormat, 3), resp.Text)
	assert.JSONEq(t, `{"symptoms":["fever"],"drugs":["Paracetamol","Ibuprofen","Aspirin"]}`, string(resp.Raw))

	resp = complete(t, p, "I have diarrhea and a cough")
	assert.Equal(t, symptomAdvice["cough"]+"\n\n"+symptomAdvice["diarrhea"]+"\n\n"+fmt.Sprintf(foundFormat, 2), resp.Text)
}

func TestCompleteSymptomWithoutAdviceUsesGeneral(t *testing.T) {
	p := newTestProvider(t)

	resp := complete(t, p, "My muscles are stiff")
	assert.Equal(t, generalAdvice+"\n\n"+fmt.Sprintf(foundFormat, 2), resp.Text)
}

func TestCompleteDescribesNamedDrug(t *testing.T) {
	p := newTestProvider(t)

	resp := complete(t, p, "Tell me about Loperamide")
	assert.Contains(t, resp.Text, "Loperamide: Anti-diarrheal medication.")
	assert.Contains(t, resp.Text, "Typical dosage: 2mg after each loose stool, max 16mg/day.")
	assert.Contains(t, resp.Text, generalAdvice)
	assert.NotContains(t, resp.Text, "(Loperamide)")
}

func TestCompleteErrors(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.Complete(context.Background(), models.CompletionRequest{UserText: "  "})
	assert.ErrorIs(t, err, provider.ErrEmptyPrompt)

	broken, err := New("local", config.ProviderConfig{Style: config.StyleLocal}, brokenCatalog{})
	require.NoError(t, err)
	_, err = broken.Complete(context.Background(), models.CompletionRequest{UserText: "I have a fever"})
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestNewValidates(t *testing.T) {
	_, err := New("local", config.ProviderConfig{Style: config.StyleLocal}, nil)
	assert.Error(t, err)

	p := newTestProvider(t)
	_, err = New("local", config.ProviderConfig{Style: config.StyleGroqREST}, p.drugs)
	assert.Error(t, err)

	list, err := p.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Model{{ID: config.DefaultLocalModel, Provider: "local", Style: config.StyleLocal}}, list)
}
