package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                 int    `env:"PORT" envDefault:"7343"`
	APIBaseURL           string `env:"API_BASE_URL,required"`
	StateDBPath          string `env:"STATE_DB_PATH" envDefault:"tvlink.db"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
	AuthWaitMS           int    `env:"AUTH_WAIT_MS" envDefault:"5000"`
	CastReadyTimeoutMS   int    `env:"CAST_READY_TIMEOUT_MS" envDefault:"8000"`
	CastCloseDelayMS     int    `env:"CAST_CLOSE_DELAY_MS" envDefault:"1500"`
	SendRetrySettleMS    int    `env:"SEND_RETRY_SETTLE_MS" envDefault:"1000"`
	UnlinkTimeoutMS      int    `env:"UNLINK_TIMEOUT_MS" envDefault:"8000"`
	RevalidateIntervalMS int    `env:"REVALIDATE_INTERVAL_MS" envDefault:"300000"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

func (c *Config) AuthWait() time.Duration {
	return time.Duration(c.AuthWaitMS) * time.Millisecond
}

func (c *Config) CastReadyTimeout() time.Duration {
	return time.Duration(c.CastReadyTimeoutMS) * time.Millisecond
}

func (c *Config) CastCloseDelay() time.Duration {
	return time.Duration(c.CastCloseDelayMS) * time.Millisecond
}

func (c *Config) SendRetrySettle() time.Duration {
	return time.Duration(c.SendRetrySettleMS) * time.Millisecond
}

func (c *Config) UnlinkTimeout() time.Duration {
	return time.Duration(c.UnlinkTimeoutMS) * time.Millisecond
}

func (c *Config) RevalidateInterval() time.Duration {
	return time.Duration(c.RevalidateIntervalMS) * time.Millisecond
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute http(s) URL, got %q", c.APIBaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL scheme must be http or https, got %q", u.Scheme)
	}
	if c.CastReadyTimeoutMS <= 0 {
		return fmt.Errorf("CAST_READY_TIMEOUT_MS must be positive")
	}
	if c.AuthWaitMS <= 0 {
		return fmt.Errorf("AUTH_WAIT_MS must be positive")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
