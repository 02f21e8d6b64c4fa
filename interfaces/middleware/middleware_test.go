package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocab-bot/infrastructure/utils"
	"vocab-bot/interfaces/middleware"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/me", middleware.Auth("secret"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"chat_id": c.GetInt64(middleware.ChatIDKey)})
	})
	return r
}

func TestAuth(t *testing.T) {
	valid, err := utils.GenerateChatToken(99, time.Hour, "secret")
	require.NoError(t, err)
	expired, err := utils.GenerateChatToken(99, -time.Hour, "secret")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, `{"chat_id":99}`},
		{"missing", "", http.StatusUnauthorized, "Unauthorized"},
		{"malformed", "Bearer nope", http.StatusUnauthorized, "not even a token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Timing is everything"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestRequestID(t *testing.T) {
	r := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Len(t, w.Header().Get(middleware.RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(middleware.RequestIDHeader))
}
