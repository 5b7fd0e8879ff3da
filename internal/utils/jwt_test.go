package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/polimarket-api/internal/models"
)

func TestJWTServiceRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 0)

	token, err := svc.GenerateToken(42)
	require.NoError(t, err)

	userID, err := svc.ExtractUserID(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestJWTServiceRejects(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	valid, err := svc.GenerateToken(7)
	require.NoError(t, err)

	forged, err := svc.GenerateToken(8)
	require.NoError(t, err)
	validParts := strings.Split(valid, ".")
	forgedParts := strings.Split(forged, ".")
	tampered := validParts[0] + "." + forgedParts[1] + "." + validParts[2]

	expiredIssuer := NewJWTService("secret", DefaultTokenTTL)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }
	expired, err := expiredIssuer.GenerateToken(7)
	require.NoError(t, err)

	otherSecret, err := NewJWTService("other", time.Hour).GenerateToken(7)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "7"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"expired":      expired,
		"wrong secret": otherSecret,
		"tampered":     tampered,
		"malformed":    "not-a-token",
		"empty":        "",
		"missing exp":  noExp,
		"bad subject":  badSubject,
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ExtractUserID(token)
			require.ErrorIs(t, err, models.ErrInvalidToken)
		})
	}
}

func TestJWTServiceTokenLifetime(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewJWTService("secret", DefaultTokenTTL)
	svc.now = func() time.Time { return issued }

	token, err := svc.GenerateToken(1)
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(23 * time.Hour) }
	_, err = svc.ExtractUserID(token)
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(24*time.Hour + time.Second) }
	_, err = svc.ExtractUserID(token)
	require.ErrorIs(t, err, models.ErrInvalidToken)
}
