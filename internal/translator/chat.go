package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediaid-gateway/internal/models"
	"mediaid-gateway/internal/session"
)

var (
	errMissingSessionID = errors.New("session_id is required")
	errMissingMessage   = errors.New("message is required")
)

// ChatRequest models the POST /api/chat payload.
type ChatRequest struct {
	SessionID string
	Message   string
}

// UnmarshalJSON requires both fields to be present. Whether the message has
// content is decided by the chat gateway.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		SessionID *string `json:"session_id"`
		Message   *string `json:"message"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode chat request: %w", err)
	}
	if raw.SessionID == nil {
		return errMissingSessionID
	}
	if raw.Message == nil {
		return errMissingMessage
	}

	r.SessionID = strings.TrimSpace(*raw.SessionID)
	r.Message = *raw.Message
	return nil
}

// ChatResponse is returned for every successful chat turn.
type ChatResponse struct {
	Response        string     `json:"response"`
	DrugSuggestions []DrugView `json:"drug_suggestions"`
}

// FromChatTurn converts a chat turn result to its wire form.
func FromChatTurn(result models.ChatTurnResult) ChatResponse {
	return ChatResponse{
		Response:        result.ReplyText,
		DrugSuggestions: FromDrugs(result.DrugSuggestions),
	}
}

// HistoryMessage is one turn in a chat history response.
type HistoryMessage struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryResponse models GET /api/chat/history/:session_id.
type HistoryResponse struct {
	SessionID       string           `json:"session_id"`
	Messages        []HistoryMessage `json:"messages"`
	DrugSuggestions []DrugView       `json:"drug_suggestions"`
}

// FromSnapshot converts a session snapshot. A zero snapshot yields empty lists.
func FromSnapshot(sessionID string, snap session.Snapshot) HistoryResponse {
	messages := make([]HistoryMessage, 0, len(snap.History))
	for _, turn := range snap.History {
		messages = append(messages, HistoryMessage{
			Role:      string(turn.Role),
			Text:      turn.Text,
			Timestamp: turn.At.UTC(),
		})
	}
	return HistoryResponse{
		SessionID:       sessionID,
		Messages:        messages,
		DrugSuggestions: FromDrugs(snap.LastSuggestions),
	}
}
