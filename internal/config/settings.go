package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ServerSettings holds the HTTP and gRPC listener configuration.
type ServerSettings struct {
	Port           string   `mapstructure:"port" validate:"required,numeric"`
	GRPCPort       string   `mapstructure:"grpc_port" validate:"omitempty,numeric"`
	Domain         string   `mapstructure:"domain"`
	Mode           string   `mapstructure:"mode" validate:"required,oneof=debug release test"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseSettings selects the gorm driver and its DSN.
type DatabaseSettings struct {
	Type string `mapstructure:"type" validate:"required,oneof=postgres sqlite"`
	DSN  string `mapstructure:"dsn"`
}

// AuthSettings holds token and password reset settings.
type AuthSettings struct {
	JWTSecret        string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenTTL         time.Duration `mapstructure:"token_ttl" validate:"required"`
	ResetCodeTTL     time.Duration `mapstructure:"reset_code_ttl" validate:"required"`
	ResetMaxAttempts int           `mapstructure:"reset_max_attempts" validate:"required,min=1"`
	ExposeResetCode  bool          `mapstructure:"expose_reset_code"`
	CheckEmailDomain bool          `mapstructure:"check_email_domain"`
	SiteURL          string        `mapstructure:"site_url" validate:"required,url"`
}

// LoggerSettings holds configuration settings for logging, including log level, type and file path
type LoggerSettings struct {
	LogLevel   string `mapstructure:"log_level" validate:"required,oneof=info debug error warning"`
	LogType    string `mapstructure:"log_type" validate:"required,oneof=console file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// StorageSettings configures where profile pictures are written.
type StorageSettings struct {
	Provider         string `mapstructure:"provider" validate:"required,oneof=local azure"`
	LocalDir         string `mapstructure:"local_dir"`
	PublicBaseURL    string `mapstructure:"public_base_url"`
	ConnectionString string `mapstructure:"connection_string"`
	Container        string `mapstructure:"container"`
	MaxUploadBytes   int64  `mapstructure:"max_upload_bytes" validate:"gt=0"`
}

// MailSettings configures outgoing mail.
type MailSettings struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=log smtp"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from" validate:"required,email"`
}

// EventSettings configures the AMQP event publisher. An empty URL disables it.
type EventSettings struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

// WebhookSettings holds optional admin alert webhooks.
type WebhookSettings struct {
	DiscordURL string `mapstructure:"discord_url" validate:"omitempty,url"`
	SlackURL   string `mapstructure:"slack_url" validate:"omitempty,url"`
}

// DependencyCheck describes one external dependency reported by /api/health.
type DependencyCheck struct {
	Name           string `mapstructure:"name" validate:"required"`
	Type           string `mapstructure:"type" validate:"required,oneof=database http"`
	Driver         string `mapstructure:"driver"`
	DSN            string `mapstructure:"dsn"`
	URL            string `mapstructure:"url"`
	ExpectedStatus int    `mapstructure:"expected_status"`
	Timeout        int    `mapstructure:"timeout"`
}

// HealthSettings lists extra dependency checks.
type HealthSettings struct {
	Checks []DependencyCheck `mapstructure:"checks" validate:"dive"`
}

// Validate checks that all fields in LoggerSettings are valid
func (s *LoggerSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for LoggerSettings: %w", err)
	}

	if s.LogType == LogTypeFile {
		if s.FilePath == "" {
			return errors.New("file path is required for file logger")
		}
		if s.MaxSize < 1 || s.MaxSize > 100 {
			return errors.New("max size must be between 1 and 100 MB")
		}
		if s.MaxBackups < 1 || s.MaxBackups > 10 {
			return errors.New("max backups must be between 1 and 10")
		}
		if s.MaxAge < 1 || s.MaxAge > 365 {
			return errors.New("max age must be between 1 and 365 days")
		}
	}

	return nil
}

// Validate checks the database settings.
func (s *DatabaseSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for DatabaseSettings: %w", err)
	}

	if s.Type == PostgresDbType && s.DSN == "" {
		return errors.New("dsn is required for postgres")
	}

	return nil
}

// Validate checks the storage settings for the selected provider.
func (s *StorageSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for StorageSettings: %w", err)
	}

	switch s.Provider {
	case StorageProviderLocal:
		if s.LocalDir == "" {
			return errors.New("local_dir is required for local storage")
		}
	case StorageProviderAzure:
		if s.ConnectionString == "" || s.Container == "" {
			return errors.New("connection_string and container are required for azure storage")
		}
	}

	return nil
}

// Validate checks the mail settings for the selected provider.
func (s *MailSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for MailSettings: %w", err)
	}

	if s.Provider == MailProviderSMTP && (s.Host == "" || s.Port == 0) {
		return errors.New("host and port are required for smtp mail")
	}

	return nil
}

// Validate checks every dependency check definition.
func (s *HealthSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for HealthSettings: %w", err)
	}

	for _, check := range s.Checks {
		switch check.Type {
		case CheckTypeDatabase:
			if check.Driver == "" || check.DSN == "" {
				return fmt.Errorf("check %s: driver and dsn are required", check.Name)
			}
		case CheckTypeHTTP:
			if check.URL == "" {
				return fmt.Errorf("check %s: url is required", check.Name)
			}
		}
	}

	return nil
}
