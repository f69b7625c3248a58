package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds application configuration for both services.
type Config struct {
	Port          string
	ProcessorPort string
	DBConn        string
	LogLevel      string
	JWTSecret     string

	// ServiceToken authenticates the processor-to-gateway transition
	// and pending-list calls. Empty disables the service-token path.
	ServiceToken string

	// GatewayURL is the base URL of the record-keeping API, as seen
	// from the processor.
	GatewayURL string

	// DecisionPolicy selects the authorization policy: "threshold"
	// (deterministic last-four rule) or "random" (weighted).
	DecisionPolicy string

	ProcessingDelay time.Duration
	HTTPTimeout     time.Duration

	// SweepSchedule is a cron spec for the pending-settlement sweep;
	// SweepOlderThan is the minimum age of swept transactions.
	SweepSchedule  string
	SweepOlderThan time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8000"),
		ProcessorPort:   getEnv("PROCESSOR_PORT", "8001"),
		DBConn:          getEnv("DB_CONN", "host=localhost port=5432 user=payments password=payments dbname=payments sslmode=disable"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		ServiceToken:    getEnv("SERVICE_TOKEN", ""),
		GatewayURL:      getEnv("GATEWAY_URL", "http://localhost:8000/api"),
		DecisionPolicy:  getEnv("DECISION_POLICY", "threshold"),
		ProcessingDelay: getDuration("PROCESSING_DELAY", time.Second),
		HTTPTimeout:     getDuration("HTTP_TIMEOUT", 10*time.Second),
		SweepSchedule:   getEnv("SWEEP_SCHEDULE", "@every 5m"),
		SweepOlderThan:  getDuration("SWEEP_OLDER_THAN", 10*time.Minute),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnv("SMTP_PORT", "587"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SenderEmail:     getEnv("SENDER_EMAIL", "no-reply@payment-gateway.local"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DecisionPolicy != "threshold" && cfg.DecisionPolicy != "random" {
		return nil, fmt.Errorf("DECISION_POLICY must be \"threshold\" or \"random\", got %q", cfg.DecisionPolicy)
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
