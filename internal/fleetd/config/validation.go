package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if (c.Server.TLSCert != "") != (c.Server.TLSKey != "") {
		return fmt.Errorf("both TLS cert and key must be provided")
	}
	if c.Database.Enabled() {
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.MaxOpenConns < 1 {
			return fmt.Errorf("invalid max open connections: %d", c.Database.MaxOpenConns)
		}
		if c.Database.MaxIdleConns < 1 {
			return fmt.Errorf("invalid max idle connections: %d", c.Database.MaxIdleConns)
		}
	}
	if c.Redis.Addr != "" && c.Redis.EventsChannel == "" {
		return fmt.Errorf("redis events channel is required")
	}
	if c.Health.PollInterval < time.Second {
		return fmt.Errorf("health poll interval must be at least 1s")
	}
	if c.Health.DefaultHeartbeatInterval < 1 {
		return fmt.Errorf("default heartbeat interval must be positive: %d", c.Health.DefaultHeartbeatInterval)
	}
	if c.Commands.SweepTimeout <= 0 {
		return fmt.Errorf("command sweep timeout must be positive")
	}
	switch c.RateLimit.Store {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis rate limit store requires redis.addr")
		}
	default:
		return fmt.Errorf("unknown rate limit store: %q", c.RateLimit.Store)
	}
	if c.RateLimit.DeviceRate < 1 || c.RateLimit.DevicePeriod <= 0 {
		return fmt.Errorf("device rate limit needs a positive rate and period")
	}
	if c.RateLimit.DeviceBurst < 0 {
		return fmt.Errorf("device burst must not be negative")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q", c.Log.Format)
	}
	return nil
}
