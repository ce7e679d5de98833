package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAddr is the default TCP address the rpc server listens on.
	DefaultAddr = ":43127"
	// AllowedOrigins has no default: an unset MCS_ALLOWED_ORIGINS leaves it
	// nil. No handler consults it.

	// DefaultScheduleInterval is the planner's fixed tick period.
	DefaultScheduleInterval = 2 * time.Second
	// DefaultOnlineUpdateTimeout is how long a vehicle may go unpolled before
	// being forced Offline.
	DefaultOnlineUpdateTimeout = 5 * time.Minute
	// DefaultToolWarnLevel is the tool wear fraction below which a warning is logged.
	DefaultToolWarnLevel = 0.15

	// DefaultTaskStorePath is the SQLite database file backing the task store.
	DefaultTaskStorePath = "mcs-tasks.db"
	// DefaultAuditLogPath is the append-only snappy-compressed completion log.
	DefaultAuditLogPath = "mcs-audit.log"
	// DefaultSweepInterval controls how often orphaned processing tasks are
	// reconciled against newly-offline vehicles.
	DefaultSweepInterval = 30 * time.Second

	// DefaultLogLevel controls verbosity for service logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "mcs.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true

	// DefaultMetricsAddr is the default for Config.MetricsAddr. cmd/mcsd opens
	// no listener on it; /metrics is served on Address with the RPC routes.
	DefaultMetricsAddr = ":9090"
)

// Config captures all runtime tunables for the material control service.
type Config struct {
	Address        string
	AllowedOrigins []string
	AdminToken     string

	ScheduleInterval    time.Duration
	OnlineUpdateTimeout time.Duration
	ToolWarnLevel       float64

	TaskStorePath string
	AuditLogPath  string
	SweepInterval time.Duration

	// GraphPath, when set, is a JSON deployment file loaded at startup via
	// graph.LoadFromFile. Empty means the caller builds the graph in code.
	GraphPath string

	Logging LoggingConfig

	MetricsAddr string
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the service configuration from environment variables, applying
// sane defaults and returning descriptive errors for invalid overrides.
func Load() (*Config, error) {
	cfg := &Config{
		Address:             getString("MCS_ADDR", DefaultAddr),
		AllowedOrigins:      parseList(os.Getenv("MCS_ALLOWED_ORIGINS")),
		AdminToken:          strings.TrimSpace(os.Getenv("MCS_ADMIN_TOKEN")),
		ScheduleInterval:    DefaultScheduleInterval,
		OnlineUpdateTimeout: DefaultOnlineUpdateTimeout,
		ToolWarnLevel:       DefaultToolWarnLevel,
		TaskStorePath:       getString("MCS_TASKSTORE_PATH", DefaultTaskStorePath),
		AuditLogPath:        getString("MCS_AUDIT_LOG_PATH", DefaultAuditLogPath),
		SweepInterval:       DefaultSweepInterval,
		GraphPath:           strings.TrimSpace(os.Getenv("MCS_GRAPH_PATH")),
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("MCS_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("MCS_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
		MetricsAddr: getString("MCS_METRICS_ADDR", DefaultMetricsAddr),
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("VEHICLE_SCHEDULE_TIME")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("VEHICLE_SCHEDULE_TIME must be a positive duration, got %q", raw))
		} else {
			cfg.ScheduleInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("VEHICLE_ONLINE_UPDATE_TIMEOUT")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("VEHICLE_ONLINE_UPDATE_TIMEOUT must be a positive duration, got %q", raw))
		} else {
			cfg.OnlineUpdateTimeout = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("VEHICLE_TOOL_WARN_LEVEL")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value < 0 || value > 1 {
			problems = append(problems, fmt.Sprintf("VEHICLE_TOOL_WARN_LEVEL must be a fraction between 0 and 1, got %q", raw))
		} else {
			cfg.ToolWarnLevel = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("MCS_SWEEP_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("MCS_SWEEP_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.SweepInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("MCS_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("MCS_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("MCS_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("MCS_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("MCS_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("MCS_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("MCS_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("MCS_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf(strings.Join(problems, "; "))
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			values = append(values, item)
		}
	}
	return values
}
