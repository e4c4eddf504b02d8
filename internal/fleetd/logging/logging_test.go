package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("warn", "json", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("component", "test").Msg("shown")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "test", line["component"])
	assert.Equal(t, "warn", line["level"])
}

func TestSetupConsoleFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("nonsense", "console", &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "{")
}
