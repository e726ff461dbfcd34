package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "certifai/pkg/domain-errors"
)

func TestGenerateAndValidateRoundTrip(t *testing.T) {
	svc := NewService("test-signing-key", "certifai")

	signed, err := svc.Generate("user-1", "frontend", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "frontend", claims.ClientID)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-signing-key", "certifai")

	signed, err := svc.Generate("user-1", "", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateRejectsWrongKey(t *testing.T) {
	signed, err := NewService("key-a", "certifai").Generate("user-1", "", time.Hour)
	require.NoError(t, err)

	_, err = NewService("key-b", "certifai").ValidateToken(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := NewService("key", "certifai").ValidateToken("not.a.jwt")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
