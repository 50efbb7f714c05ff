package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cas-gradtrack/gradtrack/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ConsoleLogger(t *testing.T) {
	log, err := New(&config.LoggerSettings{LogLevel: config.LogLevelDebug, LogType: config.LogTypeConsole})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNew_FileLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "gradtrack.log")

	log, err := New(&config.LoggerSettings{
		LogLevel:   config.LogLevelInfo,
		LogType:    config.LogTypeFile,
		FilePath:   logPath,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})
	require.NoError(t, err)

	log.Info("info message")
	log.Warn("warn message")
	log.Debug("debug message")

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)

	output := string(content)
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.NotContains(t, output, "debug message")
	assert.Contains(t, output, `"level":"warning"`)
}

func TestNew_InvalidSettings(t *testing.T) {
	_, err := New(&config.LoggerSettings{LogLevel: config.LogLevelInfo, LogType: "syslog"})
	assert.Error(t, err)
}

func TestL_FallsBackToStandardLogger(t *testing.T) {
	if loggerInstance == nil {
		assert.Same(t, logrus.StandardLogger(), L())
	}
}
