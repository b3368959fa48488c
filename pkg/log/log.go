package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Component names for the packages that call WithComponent. Naming
// them here keeps the tag a caller passes in sync with what every
// other caller uses for the same package.
const (
	ComponentReconciler       = "reconciler"
	ComponentSupervisor       = "supervisor"
	ComponentSupervisorWorker = "supervisor.worker"
	ComponentEngine           = "engine"
	ComponentMasterClient     = "masterclient"
)

// Init initializes the global logger
func Init(cfg Config) {
	// Set log level
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with component field, scoped
// off the global Logger. Called once per collaborator at construction
// time (reconciler.New, supervisor.New, engine.New, masterclient.New).
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithServiceID scopes an existing logger to one service_id, for the
// reconciler and engine adapter's per-service log lines (a failed
// pull, a rejected create, an unresolved container IP).
func WithServiceID(logger zerolog.Logger, serviceID string) zerolog.Logger {
	return logger.With().Str("service_id", serviceID).Logger()
}

// WithInstanceID scopes an existing logger to the instance_id assigned
// at registration, so every masterclient log line after Bind already
// carries it instead of repeating it at each call site.
func WithInstanceID(logger zerolog.Logger, instanceID string) zerolog.Logger {
	return logger.With().Str("instance_id", instanceID).Logger()
}
