package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerSettings   `mapstructure:"server"`
	Database DatabaseSettings `mapstructure:"database"`
	Auth     AuthSettings     `mapstructure:"auth"`
	Logger   LoggerSettings   `mapstructure:"logger"`
	Storage  StorageSettings  `mapstructure:"storage"`
	Mail     MailSettings     `mapstructure:"mail"`
	Events   EventSettings    `mapstructure:"events"`
	Webhooks WebhookSettings  `mapstructure:"webhooks"`
	Health   HealthSettings   `mapstructure:"health"`
}

// Load reads the .env file (if any), the optional YAML file at path and
// GRADTRACK_* environment variables, then validates the result.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GRADTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Plain names kept for deployments that predate the prefix.
	_ = v.BindEnv("server.port", "GRADTRACK_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.domain", "GRADTRACK_SERVER_DOMAIN", "DOMAIN")
	_ = v.BindEnv("database.dsn", "GRADTRACK_DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("auth.jwt_secret", "GRADTRACK_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("auth.site_url", "GRADTRACK_AUTH_SITE_URL", "SITE_URL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs the validation of every settings block.
func (c *Config) Validate() error {
	if err := validate.Struct(&c.Server); err != nil {
		return fmt.Errorf("validation failed for ServerSettings: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(&c.Auth); err != nil {
		return fmt.Errorf("validation failed for AuthSettings: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Mail.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(&c.Webhooks); err != nil {
		return fmt.Errorf("validation failed for WebhookSettings: %w", err)
	}
	if c.Events.AMQPURL != "" && c.Events.Exchange == "" {
		return fmt.Errorf("events exchange is required when amqp_url is set")
	}
	return c.Health.Validate()
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{port: %s, db: %s, storage: %s, mail: %s, auth: *** (masked) ***}",
		c.Server.Port, c.Database.Type, c.Storage.Provider, c.Mail.Provider)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.grpc_port", "")
	v.SetDefault("server.domain", "")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("database.type", SqliteDbType)
	v.SetDefault("database.dsn", "gradtrack.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 168*time.Hour)
	v.SetDefault("auth.reset_code_ttl", 15*time.Minute)
	v.SetDefault("auth.reset_max_attempts", 5)
	v.SetDefault("auth.expose_reset_code", false)
	v.SetDefault("auth.check_email_domain", false)
	v.SetDefault("auth.site_url", "http://localhost:5173")

	v.SetDefault("logger.log_level", LogLevelInfo)
	v.SetDefault("logger.log_type", LogTypeConsole)
	v.SetDefault("logger.file_path", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)

	v.SetDefault("storage.provider", StorageProviderLocal)
	v.SetDefault("storage.local_dir", "uploads")
	v.SetDefault("storage.public_base_url", "/uploads")
	v.SetDefault("storage.connection_string", "")
	v.SetDefault("storage.container", "profile-pictures")
	v.SetDefault("storage.max_upload_bytes", 5<<20)

	v.SetDefault("mail.provider", MailProviderLog)
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@gradtrack.example.com")

	v.SetDefault("events.amqp_url", "")
	v.SetDefault("events.exchange", "gradtrack.events")

	v.SetDefault("webhooks.discord_url", "")
	v.SetDefault("webhooks.slack_url", "")
}
