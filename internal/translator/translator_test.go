package translator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediaid-gateway/internal/models"
	"mediaid-gateway/internal/session"
)

func TestChatRequestUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    ChatRequest
		wantErr error
	}{
		{name: "valid", body: `{"session_id":" session_1 ","message":"I have a headache"}`, want: ChatRequest{SessionID: "session_1", Message: "I have a headache"}},
		{name: "blank message kept", body: `{"session_id":"s","message":"  "}`, want: ChatRequest{SessionID: "s", Message: "  "}},
		{name: "missing session", body: `{"message":"hi"}`, wantErr: errMissingSessionID},
		{name: "missing message", body: `{"session_id":"s"}`, wantErr: errMissingMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ChatRequest
			err := json.Unmarshal([]byte(tt.body), &got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	var bad ChatRequest
	assert.Error(t, json.Unmarshal([]byte(`{"session_id":42,"message":"hi"}`), &bad))
}

func TestChatResponseWireShape(t *testing.T) {
	resp := FromChatTurn(models.ChatTurnResult{ReplyText: "Try paracetamol"})

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"Try paracetamol","drug_suggestions":[]}`, string(data))
}

func TestFromDrugUsesSnakeCase(t *testing.T) {
	data, err := json.Marshal(FromDrug(models.DrugRecord{
		ID:          "1",
		Name:        "Paracetamol",
		GenericName: "Acetaminophen",
		SideEffects: []string{"Nausea"},
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id":"1","name":"Paracetamol","generic_name":"Acetaminophen","description":"",
		"uses":[],"dosage":"","side_effects":["Nausea"],"precautions":[],"symptoms":[]
	}`, string(data))
}

func TestFromSnapshot(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("WAT", 3600))
	resp := FromSnapshot("session_1", session.Snapshot{
		History: []models.Turn{
			{Role: models.RoleUser, Text: "hi", At: at},
			{Role: models.RoleAssistant, Text: "hello", At: at},
		},
		LastSuggestions: []models.DrugRecord{{ID: "1", Name: "Ibuprofen"}},
	})

	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user", resp.Messages[0].Role)
	assert.Equal(t, time.UTC, resp.Messages[0].Timestamp.Location())
	assert.Equal(t, "Ibuprofen", resp.DrugSuggestions[0].Name)

	empty := FromSnapshot("nobody", session.Snapshot{})
	assert.NotNil(t, empty.Messages)
	assert.NotNil(t, empty.DrugSuggestions)
}
