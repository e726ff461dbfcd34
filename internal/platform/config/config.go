package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults for workflow-level retention. These are fixed by the verification
// contract: cached outcomes live for 24 hours, audit entries for 7 days.
var (
	ResultCacheTTL  = 24 * time.Hour
	AuditLogTTL     = 7 * 24 * time.Hour
	AnalysisTimeout = 60 * time.Second
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	Redis RedisConfig
	Kafka KafkaConfig

	Analysis AnalysisConfig

	ResultCacheTTL  time.Duration
	AuditLogTTL     time.Duration
	RateLimitPerMin int
}

// RedisConfig holds Redis connection configuration. An empty URL disables
// Redis; the service then runs on in-memory cache and audit stores.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the audit-event fanout configuration. Empty brokers
// disable the Kafka publisher; audit entries then stay in the key-value store.
type KafkaConfig struct {
	Brokers string
	Topic   string
}

// AnalysisConfig holds the external document-analysis service configuration.
type AnalysisConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CERTIFAI_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	analysisTimeout := AnalysisTimeout
	if v := os.Getenv("ANALYSIS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			analysisTimeout = d
		}
	}

	cacheTTL := ResultCacheTTL
	if v := os.Getenv("RESULT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cacheTTL = d
		}
	}

	rateLimit := 60
	if v := os.Getenv("RATE_LIMIT_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rateLimit = n
		}
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "certifai.verification.audit"
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			Topic:   topic,
		},
		Analysis: AnalysisConfig{
			Endpoint: os.Getenv("ANALYSIS_ENDPOINT"),
			APIKey:   os.Getenv("ANALYSIS_API_KEY"),
			Timeout:  analysisTimeout,
		},
		ResultCacheTTL:  cacheTTL,
		AuditLogTTL:     AuditLogTTL,
		RateLimitPerMin: rateLimit,
	}
}
