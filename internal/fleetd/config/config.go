// Package config provides configuration management for the fleet controller
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds all configuration for the server
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Health    HealthConfig    `yaml:"health"`
	Commands  CommandsConfig  `yaml:"commands"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	TLSCert         string        `yaml:"tlsCert"`
	TLSKey          string        `yaml:"tlsKey"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database connection settings. An empty Host keeps
// all state in memory.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	AutoMigrate     bool          `yaml:"autoMigrate"`
}

// Enabled reports whether a PostgreSQL server is configured
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN builds a lib/pq connection URL
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisConfig holds the event bus and shared rate limit store settings.
// An empty Addr disables both.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	EventsChannel string `yaml:"eventsChannel"`
}

// MQTTConfig holds broker settings for command delivery. An empty Broker
// leaves devices to poll or use the websocket channel.
type MQTTConfig struct {
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"clientId"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	TopicPrefix    string        `yaml:"topicPrefix"`
	PublishTimeout time.Duration `yaml:"publishTimeout"`
}

// HealthConfig holds health monitor settings
type HealthConfig struct {
	PollInterval             time.Duration `yaml:"pollInterval"`
	DefaultHeartbeatInterval int           `yaml:"defaultHeartbeatInterval"`
}

// CommandsConfig holds command dispatcher settings
type CommandsConfig struct {
	// SweepTimeout is the default age for an operator-triggered sweep
	SweepTimeout time.Duration `yaml:"sweepTimeout"`
}

// RateLimitConfig holds device route limits
type RateLimitConfig struct {
	// Store selects "memory" or "redis"
	Store        string        `yaml:"store"`
	DeviceRate   int           `yaml:"deviceRate"`
	DevicePeriod time.Duration `yaml:"devicePeriod"`
	DeviceBurst  int           `yaml:"deviceBurst"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration suitable for local development
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Port:            5432,
			Name:            "fleet",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			EventsChannel: "fleet:events",
		},
		MQTT: MQTTConfig{
			ClientID:       "fleetd",
			TopicPrefix:    "fleet",
			PublishTimeout: 2 * time.Second,
		},
		Health: HealthConfig{
			PollInterval:             15 * time.Second,
			DefaultHeartbeatInterval: 60,
		},
		Commands: CommandsConfig{
			SweepTimeout: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Store:        "memory",
			DeviceRate:   60,
			DevicePeriod: time.Minute,
			DeviceBurst:  10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// overlayEnv overlays environment variables on top of file-based config
func (c *Config) overlayEnv() {
	// Server config
	if host := getEnv("FLEET_SERVER_HOST", ""); host != "" {
		c.Server.Host = host
	}
	if port := getEnvAsIntMulti([]string{"FLEET_SERVER_PORT", "PORT"}, 0); port != 0 {
		c.Server.Port = port
	}
	if readTimeout := getEnvAsDuration("FLEET_SERVER_READ_TIMEOUT", 0); readTimeout != 0 {
		c.Server.ReadTimeout = readTimeout
	}
	if writeTimeout := getEnvAsDuration("FLEET_SERVER_WRITE_TIMEOUT", 0); writeTimeout != 0 {
		c.Server.WriteTimeout = writeTimeout
	}
	if idleTimeout := getEnvAsDuration("FLEET_SERVER_IDLE_TIMEOUT", 0); idleTimeout != 0 {
		c.Server.IdleTimeout = idleTimeout
	}
	if shutdown := getEnvAsDuration("FLEET_SERVER_SHUTDOWN_TIMEOUT", 0); shutdown != 0 {
		c.Server.ShutdownTimeout = shutdown
	}
	if tlsCert := getEnv("FLEET_TLS_CERT", ""); tlsCert != "" {
		c.Server.TLSCert = tlsCert
	}
	if tlsKey := getEnv("FLEET_TLS_KEY", ""); tlsKey != "" {
		c.Server.TLSKey = tlsKey
	}

	// Database config - check multiple env var names
	if host := getEnvMulti([]string{"FLEET_DB_HOST", "DB_HOST", "POSTGRES_HOST"}, ""); host != "" {
		c.Database.Host = host
	}
	if port := getEnvAsIntMulti([]string{"FLEET_DB_PORT", "DB_PORT", "POSTGRES_PORT"}, 0); port != 0 {
		c.Database.Port = port
	}
	if name := getEnvMulti([]string{"FLEET_DB_NAME", "DB_NAME", "POSTGRES_DB"}, ""); name != "" {
		c.Database.Name = name
	}
	if user := getEnvMulti([]string{"FLEET_DB_USER", "DB_USER", "POSTGRES_USER"}, ""); user != "" {
		c.Database.User = user
	}
	if password := getEnvMulti([]string{"FLEET_DB_PASSWORD", "DB_PASSWORD", "POSTGRES_PASSWORD"}, ""); password != "" {
		c.Database.Password = password
	}
	if sslmode := getEnv("FLEET_DB_SSLMODE", ""); sslmode != "" {
		c.Database.SSLMode = sslmode
	}
	if maxOpenConns := getEnvAsInt("FLEET_DB_MAX_OPEN_CONNS", 0); maxOpenConns != 0 {
		c.Database.MaxOpenConns = maxOpenConns
	}
	if maxIdleConns := getEnvAsInt("FLEET_DB_MAX_IDLE_CONNS", 0); maxIdleConns != 0 {
		c.Database.MaxIdleConns = maxIdleConns
	}
	if connMaxLifetime := getEnvAsDuration("FLEET_DB_CONN_MAX_LIFETIME", 0); connMaxLifetime != 0 {
		c.Database.ConnMaxLifetime = connMaxLifetime
	}
	if migrate, ok := getEnvAsBool("FLEET_DB_AUTO_MIGRATE"); ok {
		c.Database.AutoMigrate = migrate
	}

	// Redis config
	if addr := getEnvMulti([]string{"FLEET_REDIS_ADDR", "REDIS_ADDR"}, ""); addr != "" {
		c.Redis.Addr = addr
	}
	if password := getEnv("FLEET_REDIS_PASSWORD", ""); password != "" {
		c.Redis.Password = password
	}
	if db := getEnvAsInt("FLEET_REDIS_DB", 0); db != 0 {
		c.Redis.DB = db
	}
	if channel := getEnv("FLEET_REDIS_EVENTS_CHANNEL", ""); channel != "" {
		c.Redis.EventsChannel = channel
	}

	// MQTT config
	if broker := getEnvMulti([]string{"FLEET_MQTT_BROKER", "MQTT_BROKER"}, ""); broker != "" {
		c.MQTT.Broker = broker
	}
	if clientID := getEnv("FLEET_MQTT_CLIENT_ID", ""); clientID != "" {
		c.MQTT.ClientID = clientID
	}
	if user := getEnv("FLEET_MQTT_USERNAME", ""); user != "" {
		c.MQTT.Username = user
	}
	if password := getEnv("FLEET_MQTT_PASSWORD", ""); password != "" {
		c.MQTT.Password = password
	}
	if prefix := getEnv("FLEET_MQTT_TOPIC_PREFIX", ""); prefix != "" {
		c.MQTT.TopicPrefix = prefix
	}

	// Health and commands
	if interval := getEnvAsDuration("FLEET_HEALTH_POLL_INTERVAL", 0); interval != 0 {
		c.Health.PollInterval = interval
	}
	if hb := getEnvAsInt("FLEET_HEALTH_HEARTBEAT_INTERVAL", 0); hb != 0 {
		c.Health.DefaultHeartbeatInterval = hb
	}
	if sweep := getEnvAsDuration("FLEET_COMMANDS_SWEEP_TIMEOUT", 0); sweep != 0 {
		c.Commands.SweepTimeout = sweep
	}

	// Rate limits
	if store := getEnv("FLEET_RATE_LIMIT_STORE", ""); store != "" {
		c.RateLimit.Store = store
	}
	if rate := getEnvAsInt("FLEET_RATE_LIMIT_DEVICE_RATE", 0); rate != 0 {
		c.RateLimit.DeviceRate = rate
	}
	if period := getEnvAsDuration("FLEET_RATE_LIMIT_DEVICE_PERIOD", 0); period != 0 {
		c.RateLimit.DevicePeriod = period
	}
	if burst := getEnvAsInt("FLEET_RATE_LIMIT_DEVICE_BURST", 0); burst != 0 {
		c.RateLimit.DeviceBurst = burst
	}

	// Logging
	if level := getEnvMulti([]string{"FLEET_LOG_LEVEL", "LOG_LEVEL"}, ""); level != "" {
		c.Log.Level = level
	}
	if format := getEnv("FLEET_LOG_FORMAT", ""); format != "" {
		c.Log.Format = format
	}
}
