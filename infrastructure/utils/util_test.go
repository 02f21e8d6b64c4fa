package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocab-bot/infrastructure/utils"
)

func TestChatToken_RoundTrip(t *testing.T) {
	token, err := utils.GenerateChatToken(42, time.Hour, "secret")
	require.NoError(t, err)

	chatID, err := utils.ParseChatToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(42), chatID)

	_, err = utils.ParseChatToken(token, "other")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestChatToken_Expired(t *testing.T) {
	token, err := utils.GenerateChatToken(42, -time.Minute, "secret")
	require.NoError(t, err)

	_, err = utils.ParseChatToken(token, "secret")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestChatToken_MissingClaim(t *testing.T) {
	token, err := utils.GenerateToken(map[string]interface{}{"sub": "x"}, "secret")
	require.NoError(t, err)

	_, err = utils.ParseChatToken(token, "secret")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"PT1M30S", 90 * time.Second},
		{"PT45S", 45 * time.Second},
		{"PT1H2M", time.Hour + 2*time.Minute},
		{"", 0},
	}
	for _, tt := range tests {
		got, err := utils.ParseISODuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := utils.ParseISODuration("ninety seconds")
	assert.Error(t, err)
}
