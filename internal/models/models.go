package models

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidInput marks caller mistakes such as an empty message or query.
var ErrInvalidInput = errors.New("invalid input")

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single entry in a session's history.
type Turn struct {
	Role Role
	Text string
	At   time.Time
}

// DrugRecord describes one catalog medication. Records are immutable once loaded.
type DrugRecord struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	GenericName string   `yaml:"generic_name"`
	Description string   `yaml:"description"`
	Uses        []string `yaml:"uses"`
	Dosage      string   `yaml:"dosage"`
	SideEffects []string `yaml:"side_effects"`
	Precautions []string `yaml:"precautions"`
	Symptoms    []string `yaml:"symptoms"`
}

// Clone returns a copy that shares no slices with the receiver.
func (d DrugRecord) Clone() DrugRecord {
	out := d
	out.Uses = cloneStrings(d.Uses)
	out.SideEffects = cloneStrings(d.SideEffects)
	out.Precautions = cloneStrings(d.Precautions)
	out.Symptoms = cloneStrings(d.Symptoms)
	return out
}

// ChatTurnResult is the outcome of one chat exchange.
type ChatTurnResult struct {
	ReplyText       string
	DrugSuggestions []DrugRecord
}

// Message is one prior exchange replayed to a provider.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is the provider-neutral shape of a single completion call.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	History      []Message
	UserText     string
	Temperature  *float64
	MaxTokens    *int
}

// CompletionResponse carries the extracted reply text and the raw upstream payload.
// Text is empty when the provider answered without usable content.
type CompletionResponse struct {
	Text string
	Raw  json.RawMessage
}

// Model identifies a known model with provider metadata.
type Model struct {
	ID       string
	Provider string
	Style    string
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
