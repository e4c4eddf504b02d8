package util

import (
	"crypto/tls"
	"fmt"

	"github.com/piragazh/feasto-signage/internal/fleetctl/client"
	"github.com/piragazh/feasto-signage/internal/fleetctl/config"
)

// GetClient creates an API client from the config file at path, the
// environment and the flag overrides
func GetClient(path, server, token string) (*client.Client, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	ctx, err := cfg.Resolve(server, token)
	if err != nil {
		return nil, err
	}

	opts := []client.Option{}
	if ctx.InsecureSkipVerify {
		opts = append(opts, client.WithTLSConfig(&tls.Config{InsecureSkipVerify: true})) //nolint:gosec
	}
	if ctx.Token != "" {
		opts = append(opts, client.WithToken(ctx.Token))
	}

	c, err := client.New(ctx.Server, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return c, nil
}
