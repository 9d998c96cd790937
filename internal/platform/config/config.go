package config

import (
	"os"
	"strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	// FeeRecipient is the platform account credited with issuance fees.
	FeeRecipient string
	// RedisURL, PostgresDSN and KafkaBrokers select optional audit sinks.
	// When none is set, audit events stay in the in-memory store.
	RedisURL     string
	PostgresDSN  string
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("RIGHTSLEDGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("RIGHTSLEDGER_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("RIGHTSLEDGER_KAFKA_TOPIC")
	if topic == "" {
		topic = "rightsledger.audit"
	}

	var brokers []string
	if raw := os.Getenv("RIGHTSLEDGER_KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		FeeRecipient:  os.Getenv("RIGHTSLEDGER_FEE_RECIPIENT"),
		RedisURL:      os.Getenv("RIGHTSLEDGER_REDIS_URL"),
		PostgresDSN:   os.Getenv("RIGHTSLEDGER_POSTGRES_DSN"),
		KafkaBrokers:  brokers,
		KafkaTopic:    topic,
	}
}
