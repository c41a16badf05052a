package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mediaid-gateway/internal/catalog"
	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/logging"
	"mediaid-gateway/internal/models"
	"mediaid-gateway/internal/session"
)

// Reply texts used when the provider cannot supply one.
const (
	ApologyReply  = "Sorry, I encountered an error. Please try again."
	NoAnswerReply = "Sorry, I didn't understand that. Could you rephrase?"
)

// Completer performs one completion call against the configured provider.
type Completer interface {
	Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, models.Model, error)
}

// Gateway runs chat turns: it records the exchange in the session store, asks
// the provider for a reply and attaches drug suggestions from the catalog.
type Gateway struct {
	completer Completer
	sessions  *session.Store
	drugs     catalog.Catalog
	chat      config.ChatConfig
}

// New constructs a chat gateway.
func New(completer Completer, sessions *session.Store, drugs catalog.Catalog, chat config.ChatConfig) (*Gateway, error) {
	if completer == nil {
		return nil, errors.New("completer must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("session store must not be nil")
	}
	if drugs == nil {
		return nil, errors.New("catalog must not be nil")
	}
	return &Gateway{
		completer: completer,
		sessions:  sessions,
		drugs:     drugs,
		chat:      chat,
	}, nil
}

// HandleChatTurn processes one user message. Provider failures do not fail the
// turn: the reply falls back to ApologyReply. Only invalid input is returned as an error.
func (g *Gateway) HandleChatTurn(ctx context.Context, sessionID, userMessage string) (models.ChatTurnResult, error) {
	if strings.TrimSpace(userMessage) == "" {
		return models.ChatTurnResult{}, fmt.Errorf("%w: message must not be empty", models.ErrInvalidInput)
	}
	if strings.TrimSpace(sessionID) == "" {
		return models.ChatTurnResult{}, fmt.Errorf("%w: session_id must not be empty", models.ErrInvalidInput)
	}

	ctx = logging.WithSessionID(ctx, sessionID)
	logger := logging.WithCtx(ctx)

	snapshot, err := g.sessions.GetOrCreate(sessionID)
	if err != nil {
		return models.ChatTurnResult{}, err
	}
	history := session.RecentExchanges(snapshot.History, g.chat.ReplayTurns)

	if err := g.sessions.AppendTurn(sessionID, models.RoleUser, userMessage); err != nil {
		return models.ChatTurnResult{}, fmt.Errorf("record user turn: %w", err)
	}

	reply := g.reply(ctx, logger, userMessage, history)

	suggestions, err := g.drugs.LookupByKeywords(ctx, userMessage+"\n"+reply)
	if err != nil {
		logger.Warn("drug lookup failed", zap.Error(err))
		suggestions = []models.DrugRecord{}
	}

	if err := g.sessions.AppendTurn(sessionID, models.RoleAssistant, reply); err != nil {
		return models.ChatTurnResult{}, fmt.Errorf("record assistant turn: %w", err)
	}
	if err := g.sessions.SetSuggestions(sessionID, suggestions); err != nil {
		return models.ChatTurnResult{}, fmt.Errorf("record suggestions: %w", err)
	}

	logger.Debug("chat turn complete",
		zap.Int("reply_chars", len(reply)),
		zap.Int("suggestions", len(suggestions)),
	)

	return models.ChatTurnResult{
		ReplyText:       reply,
		DrugSuggestions: suggestions,
	}, nil
}

func (g *Gateway) reply(ctx context.Context, logger *zap.Logger, userMessage string, history []models.Message) string {
	resp, modelInfo, err := g.completer.Complete(ctx, models.CompletionRequest{
		Model:        g.chat.Model,
		SystemPrompt: g.chat.SystemPrompt,
		History:      history,
		UserText:     userMessage,
		Temperature:  g.chat.Temperature,
		MaxTokens:    g.chat.MaxTokens,
	})
	if err != nil {
		logger.Error("provider request failed", zap.String("model", g.chat.Model), zap.Error(err))
		return ApologyReply
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		logger.Warn("provider returned no usable text",
			zap.String("provider", modelInfo.Provider),
			zap.ByteString("raw", resp.Raw),
		)
		return NoAnswerReply
	}
	return text
}
