package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/natsconn/config"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := SetupWriter(config.LoggingConfig{Level: "warn"}, &buf)
	require.NoError(t, err)
	defer cleanup()

	logger.Info().Msg("dropped")
	logger.Warn().Str("server", "nats://a:4222").Msg("kept")

	require.Equal(t, zerolog.WarnLevel, logger.GetLevel())
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "kept", entry["message"])
	require.Equal(t, "nats://a:4222", entry["server"])
}

func TestSetupText(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := SetupWriter(config.LoggingConfig{Format: "text"}, &buf)
	require.NoError(t, err)
	defer cleanup()

	logger.Info().Msg("hello")
	require.Contains(t, buf.String(), "hello")
	require.Contains(t, buf.String(), "INF")
}

func TestSetupRejectsBadLevel(t *testing.T) {
	_, _, err := Setup(config.LoggingConfig{Level: "loud"})
	require.Error(t, err)
}

func TestSetupRequiresLokiURL(t *testing.T) {
	_, _, err := Setup(config.LoggingConfig{Loki: config.LokiConfig{Enabled: true}})
	require.ErrorContains(t, err, "loki url is required")
}

func TestLokiLabels(t *testing.T) {
	labels, err := lokiLabels(map[string]string{"team": "platform"})
	require.NoError(t, err)
	require.Equal(t, "natsconn", string(labels["app"]))
	require.Equal(t, "platform", string(labels["team"]))

	labels, err = lokiLabels(map[string]string{"app": "orders"})
	require.NoError(t, err)
	require.Equal(t, "orders", string(labels["app"]))

	_, err = lokiLabels(map[string]string{"bad-name": "x"})
	require.Error(t, err)
}
