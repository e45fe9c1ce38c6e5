package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`
	ProviderURL string `env:"PROVIDER_URL,required=true"`

	DBMaxOpenConns int `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBMaxIdleConns int `env:"DB_MAX_IDLE_CONNS,default=5"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	WorkerName                string `env:"WORKER_NAME,default=campaign-worker-1"`
	HeartbeatThresholdSeconds int    `env:"HEARTBEAT_THRESHOLD_SECONDS,default=10"`

	SendRatePerSec     int `env:"SEND_RATE_PER_SEC,default=10"`
	SendTimeoutSeconds int `env:"SEND_TIMEOUT_SECONDS,default=10"`
	PersistRetries     int `env:"PERSIST_RETRIES,default=3"`

	// QuotaResetTZ is the IANA timezone whose midnight resets daily account
	// quotas. The original deployment targeted a single country; multi-region
	// tenants should set this per environment.
	QuotaResetTZ string `env:"QUOTA_RESET_TZ,default=UTC"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := time.LoadLocation(cfg.QuotaResetTZ); err != nil {
		return nil, fmt.Errorf("invalid QUOTA_RESET_TZ %q: %w", cfg.QuotaResetTZ, err)
	}
	return &cfg, nil
}

// QuotaLocation resolves the configured quota-reset timezone.
func (c *Config) QuotaLocation() *time.Location {
	loc, err := time.LoadLocation(c.QuotaResetTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HeartbeatThreshold returns the liveness threshold as a duration.
func (c *Config) HeartbeatThreshold() time.Duration {
	return time.Duration(c.HeartbeatThresholdSeconds) * time.Second
}

// SendTimeout bounds one provider send call.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}
