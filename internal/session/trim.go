package session

import "mediaid-gateway/internal/models"

// RecentExchanges converts the tail of history into provider messages. It keeps
// the last maxUserTurns user turns together with the replies that follow them.
// A non-positive maxUserTurns yields nothing.
func RecentExchanges(history []models.Turn, maxUserTurns int) []models.Message {
	if maxUserTurns <= 0 || len(history) == 0 {
		return nil
	}

	usersSeen := 0
	start := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			usersSeen++
			if usersSeen == maxUserTurns {
				start = i
				break
			}
		}
	}

	out := make([]models.Message, 0, len(history)-start)
	for _, turn := range history[start:] {
		out = append(out, models.Message{Role: turn.Role, Content: turn.Text})
	}
	return out
}
