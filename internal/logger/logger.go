package logger

import (
	"fmt"
	"os"
	"sync"

	"github.com/cas-gradtrack/gradtrack/internal/config"
	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

var (
	loggerInstance *logrus.Logger
	loggerErr      error
	loggerOnce     sync.Once
)

// Init initializes the singleton logger.
func Init(settings *config.LoggerSettings) error {
	loggerOnce.Do(func() {
		loggerInstance, loggerErr = New(settings)
	})
	return loggerErr
}

// L returns the initialized logger, or the logrus standard logger before Init.
func L() *logrus.Logger {
	if loggerInstance == nil {
		return logrus.StandardLogger()
	}
	return loggerInstance
}

// New builds a logger from settings without touching the singleton.
func New(settings *config.LoggerSettings) (*logrus.Logger, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logrus.New()
	log.SetLevel(parseLevel(settings.LogLevel))

	switch settings.LogType {
	case config.LogTypeConsole:
		log.SetOutput(os.Stdout)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case config.LogTypeFile:
		log.SetOutput(&lumberjack.Logger{
			Filename:   settings.FilePath,
			MaxSize:    settings.MaxSize,
			MaxBackups: settings.MaxBackups,
			MaxAge:     settings.MaxAge,
			Compress:   true,
		})
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log type: %s", settings.LogType)
	}

	return log, nil
}

func parseLevel(level string) logrus.Level {
	switch level {
	case config.LogLevelDebug:
		return logrus.DebugLevel
	case config.LogLevelWarning:
		return logrus.WarnLevel
	case config.LogLevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func LogError(msg string, err error) {
	L().Errorf("%s: %v", msg, err)
}

func LogFatal(msg string, err error) {
	L().Fatalf("%s: %v", msg, err)
}

func LogWarn(msg string) {
	L().Warn(msg)
}

func LogInfo(msg string) {
	L().Info(msg)
}
