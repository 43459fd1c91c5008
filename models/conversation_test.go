package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationIDFor(t *testing.T) {
	t.Run("deterministic: same user always maps to same conversation", func(t *testing.T) {
		a := ConversationIDFor("user-1")
		b := ConversationIDFor("user-1")
		assert.Equal(t, a, b)
	})

	t.Run("distinct users map to distinct conversations", func(t *testing.T) {
		a := ConversationIDFor("user-1")
		b := ConversationIDFor("user-2")
		assert.NotEqual(t, a, b)
	})

	t.Run("result is a valid uuid", func(t *testing.T) {
		id := ConversationIDFor("user-1")
		_, err := uuid.Parse(id)
		require.NoError(t, err)
	})
}

func TestSendMessageRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid body", "hello there", false},
		{"empty body", "", true},
		{"whitespace only", "   \t\n  ", true},
		{"exactly max length", repeatRune('a', 2000), false},
		{"over max length", repeatRune('a', 2001), true},
		{"unicode counted as runes not bytes", repeatRune('ğ', 2000), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := SendMessageRequest{Body: tt.body}
			err := req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSendMessageRequestValidateTrims(t *testing.T) {
	req := SendMessageRequest{Body: "  hello  "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "hello", req.Body)
}

func repeatRune(r rune, n int) string {
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = r
	}
	return string(runes)
}
