package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":    LevelDebug,
		"INFO":     LevelInfo,
		"warning":  LevelWarning,
		"warn":     LevelWarning,
		"error":    LevelError,
		"critical": LevelCritical,
	}
	for s, want := range cases {
		got, err := ParseLevel(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("nonsense")
	assert.Error(t, err)
}

func TestSetupWritesToSinkFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.log")

	logger, closer, err := Setup(LevelCritical, []Sink{{Level: LevelWarning, Path: path}})
	require.NoError(t, err)

	logger.Warn("rate limit approaching")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rate limit approaching")
}

func TestFanoutHandlerRespectsPerChildLevel(t *testing.T) {
	var quiet, verbose bytes.Buffer
	h := multiHandler([]slog.Handler{
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&verbose, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
	logger := slog.New(h)

	logger.Info("heartbeat")
	assert.Empty(t, quiet.String())
	assert.Contains(t, verbose.String(), "heartbeat")
}
