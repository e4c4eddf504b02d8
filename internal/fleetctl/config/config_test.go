package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.CurrentContext)
	assert.Empty(t, cfg.Contexts)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.AddContext("prod", &Context{Server: "https://fleet.example.com", Token: "abc123"})
	cfg.AddContext("dev", &Context{Server: "http://localhost:8080", InsecureSkipVerify: true})
	require.NoError(t, cfg.SetCurrentContext("dev"))
	require.NoError(t, cfg.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dev", reloaded.CurrentContext)
	assert.Equal(t, []string{"dev", "prod"}, reloaded.Names())

	prod := reloaded.Contexts["prod"]
	require.NotNil(t, prod)
	assert.Equal(t, "prod", prod.Name)
	assert.Equal(t, "abc123", prod.Token)
	assert.True(t, reloaded.Contexts["dev"].InsecureSkipVerify)
}

func TestContextManagement(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Error(t, cfg.SetCurrentContext("missing"))
	_, err = cfg.GetCurrentContext()
	assert.Error(t, err)

	cfg.AddContext("a", &Context{Server: "http://a"})
	require.NoError(t, cfg.SetCurrentContext("a"))
	ctx, err := cfg.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "http://a", ctx.Server)

	require.NoError(t, cfg.RemoveContext("a"))
	assert.Empty(t, cfg.CurrentContext)
	assert.Error(t, cfg.RemoveContext("a"))
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv(EnvServer, "")
	t.Setenv(EnvToken, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	_, err = cfg.Resolve("", "")
	assert.Error(t, err, "no server anywhere")

	cfg.AddContext("dev", &Context{Server: "http://ctx", Token: "ctx-token"})
	require.NoError(t, cfg.SetCurrentContext("dev"))

	got, err := cfg.Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, "http://ctx", got.Server)
	assert.Equal(t, "ctx-token", got.Token)

	t.Setenv(EnvServer, "http://env")
	got, err = cfg.Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, "http://env", got.Server)
	assert.Equal(t, "ctx-token", got.Token)

	got, err = cfg.Resolve("http://flag", "flag-token")
	require.NoError(t, err)
	assert.Equal(t, "http://flag", got.Server)
	assert.Equal(t, "flag-token", got.Token)
}
