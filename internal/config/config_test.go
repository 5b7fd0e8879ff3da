package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PGHOST", "db.local")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "8081", cfg.WSPort)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Contains(t, cfg.DatabaseURL, "@db.local:5432/")
	assert.False(t, cfg.CloudinaryConfig.Enabled())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("ALLOWED_EMAIL_DOMAIN", "@ESPOL.edu.ec")
	t.Setenv("WS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "@espol.edu.ec", cfg.AllowedEmailDomain)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.WSAllowedOrigins)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("bad ttl", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("TOKEN_TTL", "soon")
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DB_DRIVER", "mysql")
		_, err := LoadConfig()
		require.Error(t, err)
	})
}
