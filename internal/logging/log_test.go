package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNamedLoggersChainNames(t *testing.T) {
	t.Parallel()

	log := NewTestLogger().Named("tui").Named("dashboard")
	require.Equal(t, "tui.dashboard", log.GetName())
	require.Equal(t, "tui.dashboard", log.With(zap.String("k", "v")).GetName())
}

func TestNewLoggerFromConfigWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	log, err := NewLoggerFromConfig(Config{Environment: "prod", Level: "info", File: path})
	require.NoError(t, err)
	log.Named("sync").Info("block", zap.Int64("height", 42))
	log.Debug("hidden")
	log.AtExit()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	require.Contains(t, out, `"message":"block"`)
	require.Contains(t, out, `"height":42`)
	require.Contains(t, out, `"logger":"sync"`)
	require.False(t, strings.Contains(out, "hidden"))
}

func TestNewLoggerFromConfigRejectsBadLevel(t *testing.T) {
	t.Parallel()

	_, err := NewLoggerFromConfig(Config{Level: "loud"})
	require.Error(t, err)
}
