// Package config provides configuration management for the fleet CLI
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/viper"
)

// Environment overrides for the active context
const (
	EnvConfig = "FLEETCTL_CONFIG"
	EnvServer = "FLEET_API_URL"
	EnvToken  = "FLEET_AUTH_TOKEN"
)

// Config holds the CLI configuration
type Config struct {
	// CurrentContext is the name of the active context
	CurrentContext string `mapstructure:"current-context"`
	// Contexts holds the available server contexts
	Contexts map[string]*Context `mapstructure:"contexts"`

	path string
	v    *viper.Viper
}

// Context represents a server configuration context
type Context struct {
	// Name is the context identifier
	Name string `mapstructure:"name"`
	// Server is the API server URL
	Server string `mapstructure:"server"`
	// Token is sent as a bearer token
	Token string `mapstructure:"token"`
	// InsecureSkipVerify disables TLS verification
	InsecureSkipVerify bool `mapstructure:"insecure-skip-verify"`
}

// DefaultPath returns the default config file path
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".fleetctl", "config.yaml")
	}
	return filepath.Join(home, ".fleetctl", "config.yaml")
}

// Load reads the configuration at path, or the default path when empty.
// A missing file yields an empty configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("current-context", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := &Config{path: path, v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		if ctx == nil {
			delete(cfg.Contexts, name)
			continue
		}
		ctx.Name = name
	}
	return cfg, nil
}

// Path returns the file the configuration is read from and saved to
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration to disk
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	contexts := make(map[string]map[string]interface{}, len(c.Contexts))
	for name, ctx := range c.Contexts {
		contexts[name] = map[string]interface{}{
			"server":               ctx.Server,
			"token":                ctx.Token,
			"insecure-skip-verify": ctx.InsecureSkipVerify,
		}
	}
	c.v.Set("current-context", c.CurrentContext)
	c.v.Set("contexts", contexts)

	if err := c.v.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return os.Chmod(c.path, 0o600)
}

// GetCurrentContext returns the active context configuration
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}
	ctx, ok := c.Contexts[c.CurrentContext]
	if !ok {
		return nil, fmt.Errorf("current context %q not found", c.CurrentContext)
	}
	return ctx, nil
}

// AddContext adds or updates a context
func (c *Config) AddContext(name string, context *Context) {
	if c.Contexts == nil {
		c.Contexts = make(map[string]*Context)
	}
	context.Name = name
	c.Contexts[name] = context
}

// SetCurrentContext sets the active context
func (c *Config) SetCurrentContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return nil
}

// RemoveContext removes a context; removing the active one clears it
func (c *Config) RemoveContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return nil
}

// Names returns the context names in sorted order
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the effective connection settings. Flags win over the
// environment, which wins over the current context.
func (c *Config) Resolve(server, token string) (Context, error) {
	var out Context
	if ctx, err := c.GetCurrentContext(); err == nil {
		out = *ctx
	}
	if v := os.Getenv(EnvServer); v != "" {
		out.Server = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		out.Token = v
	}
	if server != "" {
		out.Server = server
	}
	if token != "" {
		out.Token = token
	}
	if out.Server == "" {
		return Context{}, fmt.Errorf("no API server configured: set %s, pass --server or run 'fleetctl config set-context'", EnvServer)
	}
	return out, nil
}
