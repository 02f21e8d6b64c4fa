package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"vocab-bot/infrastructure/logger"
)

// ChatIDClaim carries the chat a bearer token was issued for.
const ChatIDClaim = "chat_id"

var ErrInvalidToken = errors.New("invalid token")

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

func GenerateToken(payload map[string]interface{}, secretKey string) (string, error) {
	var claims jwt.MapClaims = payload
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return tokenString, nil
}

// GenerateChatToken issues a token for chatID that expires after ttl.
func GenerateChatToken(chatID int64, ttl time.Duration, secretKey string) (string, error) {
	return GenerateToken(map[string]interface{}{
		ChatIDClaim: chatID,
		"exp":       GetCurrentTime().Add(ttl).Unix(),
	}, secretKey)
}

// ParseChatToken validates an HS256 token and returns its chat id.
func ParseChatToken(tokenString, secretKey string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	// JSON numbers decode as float64
	raw, ok := claims[ChatIDClaim].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: missing %s claim", ErrInvalidToken, ChatIDClaim)
	}
	return int64(raw), nil
}
