package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvJWTSigningKey(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")
	// no silent development fallback: an unset key must surface as empty so
	// serve can refuse to wire authentication around a known constant
	assert.Empty(t, FromEnv().JWTSigningKey)

	t.Setenv("JWT_SIGNING_KEY", "super-secret")
	assert.Equal(t, "super-secret", FromEnv().JWTSigningKey)
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("CERTIFAI_ADDR", "")
	t.Setenv("RATE_LIMIT_PER_MIN", "")
	t.Setenv("KAFKA_AUDIT_TOPIC", "")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 60, cfg.RateLimitPerMin)
	assert.Equal(t, "certifai.verification.audit", cfg.Kafka.Topic)
	assert.Equal(t, ResultCacheTTL, cfg.ResultCacheTTL)
	assert.Equal(t, AuditLogTTL, cfg.AuditLogTTL)
}
