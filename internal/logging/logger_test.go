package logging

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-service/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestNewWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(config.LoggerConfig{
		Level:     "INFO",
		Format:    "json",
		Directory: dir,
		Rotation:  config.LogRotationConfig{MaxSize: 1, MaxBackups: 1, MaxAge: 1},
	}, "collab-service")
	require.NoError(t, err)

	logger.Info("edge created", "user_id", "a")

	data, err := os.ReadFile(filepath.Join(dir, "collab-service.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"edge created"`)
	assert.Contains(t, string(data), `"service":"collab-service"`)
}

func TestNewRoutesStdlibLogThroughHandler(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		log.SetOutput(os.Stderr)
	})

	dir := t.TempDir()
	_, err := New(config.LoggerConfig{Level: "INFO", Format: "json", Directory: dir}, "collab-service")
	require.NoError(t, err)

	log.Printf("amqp reconnecting")

	data, err := os.ReadFile(filepath.Join(dir, "collab-service.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"amqp reconnecting"`)
	assert.Contains(t, string(data), `"service":"collab-service"`)
}
