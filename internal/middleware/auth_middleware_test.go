package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/polimarket-api/internal/utils"
)

// newProtectedApp возвращает приложение с защищенным /me и счетчик вызовов обработчика
func newProtectedApp(jwtService *utils.JWTService) (*fiber.App, *atomic.Int32) {
	var reached atomic.Int32
	app := fiber.New()
	// В fiber v3 middleware передаются после обработчика и выполняются до него
	app.Get("/me", func(c fiber.Ctx) error {
		reached.Add(1)
		userID, ok := UserID(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"user_id": userID})
	}, AuthMiddleware(jwtService))
	return app, &reached
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := utils.NewJWTService("secret", time.Hour)
	app, reached := newProtectedApp(jwtService)

	token, err := jwtService.GenerateToken(5)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			UserID int64 `json:"user_id"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, int64(5), body.UserID)
		assert.Equal(t, int32(1), reached.Load())
	})

	for name, header := range map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic " + token,
		"bad token":      "Bearer nope",
		"extra parts":    "Bearer " + token + " more",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}

	// Отклоненные запросы не доходят до обработчика
	assert.Equal(t, int32(1), reached.Load())
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = BearerToken("abc")
	assert.False(t, ok)
}
