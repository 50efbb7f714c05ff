package config

// Database types
const (
	PostgresDbType = "postgres"
	SqliteDbType   = "sqlite"
)

// Log level constants
const (
	LogLevelInfo    = "info"
	LogLevelDebug   = "debug"
	LogLevelError   = "error"
	LogLevelWarning = "warning"
)

// Log type constants
const (
	LogTypeConsole = "console"
	LogTypeFile    = "file"
)

// Storage providers
const (
	StorageProviderLocal = "local"
	StorageProviderAzure = "azure"
)

// Mail providers
const (
	MailProviderLog  = "log"
	MailProviderSMTP = "smtp"
)

// Dependency check types
const (
	CheckTypeDatabase = "database"
	CheckTypeHTTP     = "http"
)
