package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/polimarket-api/internal/config"
	"github.com/rajivgeraev/polimarket-api/internal/db/sqlite"
	"github.com/rajivgeraev/polimarket-api/internal/utils"
)

func newTestApp(t *testing.T, cfg *config.Config) *fiber.App {
	t.Helper()
	store, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(store.Close)

	app := fiber.New()
	NewAuthService(cfg, store, utils.NewJWTService("secret", time.Hour)).SetupRoutes(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestRegisterLoginMe(t *testing.T) {
	app := newTestApp(t, &config.Config{})

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/register",
		map[string]string{"name": "Ana", "email": "Ana@Espol.edu.ec", "password": "pw"}, "")
	require.Equal(t, http.StatusCreated, status)
	assert.NotZero(t, body["id"])

	status, _ = doJSON(t, app, http.MethodPost, "/api/auth/register",
		map[string]string{"name": "Ana 2", "email": "ana@espol.edu.ec", "password": "pw"}, "")
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ana@espol.edu.ec", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "nobody@espol.edu.ec", "password": "pw"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ana@espol.edu.ec", "password": "pw"}, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bearer", body["token_type"])
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)

	status, body = doJSON(t, app, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Ana", body["name"])
	assert.Equal(t, "ana@espol.edu.ec", body["email"])
	assert.NotContains(t, body, "password_hash")

	status, _ = doJSON(t, app, http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t, &config.Config{AllowedEmailDomain: "espol.edu.ec"})

	cases := map[string]map[string]string{
		"foreign domain":   {"name": "Bob", "email": "bob@gmail.com", "password": "pw"},
		"lookalike domain": {"name": "Bob", "email": "bob@notespol.edu.ec", "password": "pw"},
		"bad email":        {"name": "Bob", "email": "bob", "password": "pw"},
		"missing name":     {"name": " ", "email": "bob@espol.edu.ec", "password": "pw"},
		"missing password": {"name": "Bob", "email": "bob@espol.edu.ec", "password": ""},
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodPost, "/api/auth/register", payload, "")
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
		})
	}

	status, _ := doJSON(t, app, http.MethodPost, "/api/auth/register",
		map[string]string{"name": "Bob", "email": "bob@espol.edu.ec", "password": "pw"}, "")
	assert.Equal(t, http.StatusCreated, status)
}

func TestTelegramLoginDisabled(t *testing.T) {
	app := newTestApp(t, &config.Config{})

	status, _ := doJSON(t, app, http.MethodPost, "/api/auth/telegram", map[string]string{"init_data": "x"}, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTelegramLoginRejectsForgedData(t *testing.T) {
	app := newTestApp(t, &config.Config{TelegramBotToken: "bot-token"})

	status, _ := doJSON(t, app, http.MethodPost, "/api/auth/telegram",
		map[string]string{"init_data": "user=%7B%22id%22%3A1%7D&auth_date=1&hash=deadbeef"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}
