package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-very-long-test-secret"

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("GRADTRACK_AUTH_JWT_SECRET", testSecret)
	t.Setenv("GRADTRACK_SERVER_PORT", "8081")
	t.Setenv("GRADTRACK_AUTH_RESET_CODE_TTL", "10m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 10*time.Minute, cfg.Auth.ResetCodeTTL)
	assert.Equal(t, SqliteDbType, cfg.Database.Type)
	assert.Equal(t, StorageProviderLocal, cfg.Storage.Provider)
	assert.Equal(t, MailProviderLog, cfg.Mail.Provider)
}

func TestLoad_LegacyVariables(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Auth.ResetCodeTTL)
	assert.Equal(t, 5, cfg.Auth.ResetMaxAttempts)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gradtrack.yaml")

	content := []byte(`
server:
  port: "4000"
  mode: debug
auth:
  jwt_secret: ` + testSecret + `
  site_url: https://tracker.example.edu
storage:
  provider: local
  local_dir: ` + dir + `
health:
  checks:
    - name: registrar
      type: http
      url: https://registrar.example.edu/health
      expected_status: 200
`)
	require.NoError(t, os.WriteFile(path, content, 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "https://tracker.example.edu", cfg.Auth.SiteURL)
	require.Len(t, cfg.Health.Checks, 1)
	assert.Equal(t, "registrar", cfg.Health.Checks[0].Name)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("GRADTRACK_AUTH_JWT_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoggerSettingsValidation(t *testing.T) {
	tests := []struct {
		name          string
		settings      *LoggerSettings
		expectedError bool
	}{
		{
			name:          "valid console logger",
			settings:      &LoggerSettings{LogLevel: LogLevelInfo, LogType: LogTypeConsole},
			expectedError: false,
		},
		{
			name: "valid file logger with rotation",
			settings: &LoggerSettings{
				LogLevel:   LogLevelDebug,
				LogType:    LogTypeFile,
				FilePath:   "/var/log/gradtrack.log",
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
			expectedError: false,
		},
		{
			name:          "invalid log type",
			settings:      &LoggerSettings{LogLevel: LogLevelInfo, LogType: "syslog"},
			expectedError: true,
		},
		{
			name:          "file logger missing file path",
			settings:      &LoggerSettings{LogLevel: LogLevelInfo, LogType: LogTypeFile, MaxSize: 10, MaxBackups: 3, MaxAge: 28},
			expectedError: true,
		},
		{
			name:          "file logger invalid max size",
			settings:      &LoggerSettings{LogLevel: LogLevelInfo, LogType: LogTypeFile, FilePath: "x.log", MaxSize: 101, MaxBackups: 3, MaxAge: 28},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStorageAndMailValidation(t *testing.T) {
	assert.Error(t, (&StorageSettings{Provider: StorageProviderAzure, MaxUploadBytes: 1}).Validate())
	assert.NoError(t, (&StorageSettings{Provider: StorageProviderAzure, ConnectionString: "UseDevelopmentStorage=true", Container: "pics", MaxUploadBytes: 1}).Validate())
	assert.Error(t, (&StorageSettings{Provider: StorageProviderLocal, MaxUploadBytes: 1}).Validate())

	assert.Error(t, (&MailSettings{Provider: MailProviderSMTP, From: "registrar@example.edu"}).Validate())
	assert.NoError(t, (&MailSettings{Provider: MailProviderSMTP, From: "registrar@example.edu", Host: "smtp.example.edu", Port: 587}).Validate())
	assert.Error(t, (&MailSettings{Provider: MailProviderLog, From: "not-an-email"}).Validate())
}

func TestDatabaseSettingsValidation(t *testing.T) {
	assert.NoError(t, (&DatabaseSettings{Type: SqliteDbType}).Validate())
	assert.Error(t, (&DatabaseSettings{Type: PostgresDbType}).Validate())
	assert.Error(t, (&DatabaseSettings{Type: "oracle", DSN: "x"}).Validate())
}
