package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/cuemby/halti-agent/pkg/log"
)

// Config is every environment-driven setting the core or its
// collaborators consult.
type Config struct {
	PortBindIP         string
	MasterURL          string
	AllowInsecRegistry bool
	LogLevel           log.Level
	StatePath          string
	ContainerdSocket   string
}

const (
	defaultPortBindIP       = "127.0.0.1"
	defaultStatePath        = "/var/lib/halti-agent/state.json"
	defaultContainerdSocket = "/run/containerd/containerd.sock"
)

// Load reads Config from the process environment. HALTI_SERVER is
// required; every other field has a documented default.
func Load() (Config, error) {
	masterURL := os.Getenv("HALTI_SERVER")
	if masterURL == "" {
		return Config{}, fmt.Errorf("HALTI_SERVER is required")
	}

	allowInsecure, err := parseBool(os.Getenv("ALLOW_INSEC_REGISTRY"))
	if err != nil {
		return Config{}, fmt.Errorf("ALLOW_INSEC_REGISTRY: %w", err)
	}

	bindIP := os.Getenv("PORT_BIND_IP")
	if bindIP == "" {
		bindIP = defaultPortBindIP
	}

	return Config{
		PortBindIP:         bindIP,
		MasterURL:          masterURL,
		AllowInsecRegistry: allowInsecure,
		LogLevel:           logLevel(os.Getenv("LOG_LEVEL")),
		StatePath:          envOrDefault("HALTI_STATE_PATH", defaultStatePath),
		ContainerdSocket:   envOrDefault("HALTI_CONTAINERD_SOCKET", defaultContainerdSocket),
	}, nil
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", raw)
	}
	return v, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// logLevel maps the DEBUG|INFO|WARNING|ERROR vocabulary onto the
// package's own log.Level constants.
func logLevel(raw string) log.Level {
	switch raw {
	case "DEBUG":
		return log.DebugLevel
	case "WARNING":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
