package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"vocab-bot/domain/dto"
	"vocab-bot/infrastructure/logger"
	"vocab-bot/infrastructure/utils"
)

// ChatIDKey is the gin context key holding the authenticated chat id.
const ChatIDKey = "chat_id"

// Auth accepts "Authorization: Bearer <jwt>" signed with secretKey and
// carrying a chat_id claim.
func Auth(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

		token, ok := strings.CutPrefix(ctx.Request.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		chatID, err := utils.ParseChatToken(token, secretKey)
		if err != nil {
			res.ResponseMessage = reason(err)
			logger.GetLogger().WithField("error", err).Warn("Rejected bearer token")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		ctx.Set(ChatIDKey, chatID)
		ctx.Next()
	}
}

func reason(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		switch {
		case ve.Errors&jwt.ValidationErrorMalformed != 0:
			return "That's not even a token"
		case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
			return "Timing is everything"
		}
	}
	return "Unauthorized"
}
