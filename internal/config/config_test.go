package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MCS_ADDR", "")
	t.Setenv("MCS_ALLOWED_ORIGINS", "")
	t.Setenv("MCS_ADMIN_TOKEN", "")
	t.Setenv("VEHICLE_SCHEDULE_TIME", "")
	t.Setenv("VEHICLE_ONLINE_UPDATE_TIMEOUT", "")
	t.Setenv("VEHICLE_TOOL_WARN_LEVEL", "")
	t.Setenv("MCS_TASKSTORE_PATH", "")
	t.Setenv("MCS_AUDIT_LOG_PATH", "")
	t.Setenv("MCS_SWEEP_INTERVAL", "")
	t.Setenv("MCS_LOG_LEVEL", "")
	t.Setenv("MCS_LOG_PATH", "")
	t.Setenv("MCS_LOG_MAX_SIZE_MB", "")
	t.Setenv("MCS_LOG_MAX_BACKUPS", "")
	t.Setenv("MCS_LOG_MAX_AGE_DAYS", "")
	t.Setenv("MCS_LOG_COMPRESS", "")
	t.Setenv("MCS_METRICS_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Address != DefaultAddr {
		t.Fatalf("expected default addr %q, got %q", DefaultAddr, cfg.Address)
	}
	if cfg.AllowedOrigins != nil {
		t.Fatalf("expected no allowed origins, got %#v", cfg.AllowedOrigins)
	}
	if cfg.AdminToken != "" {
		t.Fatalf("expected admin token to be empty by default")
	}
	if cfg.ScheduleInterval != DefaultScheduleInterval {
		t.Fatalf("expected default schedule interval %v, got %v", DefaultScheduleInterval, cfg.ScheduleInterval)
	}
	if cfg.OnlineUpdateTimeout != DefaultOnlineUpdateTimeout {
		t.Fatalf("expected default online update timeout %v, got %v", DefaultOnlineUpdateTimeout, cfg.OnlineUpdateTimeout)
	}
	if cfg.ToolWarnLevel != DefaultToolWarnLevel {
		t.Fatalf("expected default tool warn level %v, got %v", DefaultToolWarnLevel, cfg.ToolWarnLevel)
	}
	if cfg.TaskStorePath != DefaultTaskStorePath {
		t.Fatalf("expected default task store path %q, got %q", DefaultTaskStorePath, cfg.TaskStorePath)
	}
	if cfg.AuditLogPath != DefaultAuditLogPath {
		t.Fatalf("expected default audit log path %q, got %q", DefaultAuditLogPath, cfg.AuditLogPath)
	}
	if cfg.SweepInterval != DefaultSweepInterval {
		t.Fatalf("expected default sweep interval %v, got %v", DefaultSweepInterval, cfg.SweepInterval)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.Logging.Level)
	}
	if cfg.Logging.Path != DefaultLogPath {
		t.Fatalf("expected default log path %q, got %q", DefaultLogPath, cfg.Logging.Path)
	}
	if cfg.Logging.MaxSizeMB != DefaultLogMaxSizeMB {
		t.Fatalf("expected default log max size %d, got %d", DefaultLogMaxSizeMB, cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != DefaultLogMaxBackups {
		t.Fatalf("expected default log max backups %d, got %d", DefaultLogMaxBackups, cfg.Logging.MaxBackups)
	}
	if cfg.Logging.MaxAgeDays != DefaultLogMaxAgeDays {
		t.Fatalf("expected default log max age %d, got %d", DefaultLogMaxAgeDays, cfg.Logging.MaxAgeDays)
	}
	if cfg.Logging.Compress != DefaultLogCompress {
		t.Fatalf("expected default log compress %t, got %t", DefaultLogCompress, cfg.Logging.Compress)
	}
	if cfg.MetricsAddr != DefaultMetricsAddr {
		t.Fatalf("expected default metrics addr %q, got %q", DefaultMetricsAddr, cfg.MetricsAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MCS_ADDR", "127.0.0.1:9000")
	t.Setenv("MCS_ALLOWED_ORIGINS", "https://example.com, https://demo.local")
	t.Setenv("MCS_ADMIN_TOKEN", "s3cret")
	t.Setenv("VEHICLE_SCHEDULE_TIME", "500ms")
	t.Setenv("VEHICLE_ONLINE_UPDATE_TIMEOUT", "90s")
	t.Setenv("VEHICLE_TOOL_WARN_LEVEL", "0.3")
	t.Setenv("MCS_TASKSTORE_PATH", "/var/run/mcs/tasks.db")
	t.Setenv("MCS_AUDIT_LOG_PATH", "/var/run/mcs/audit.log")
	t.Setenv("MCS_SWEEP_INTERVAL", "10s")
	t.Setenv("MCS_LOG_LEVEL", "debug")
	t.Setenv("MCS_LOG_PATH", "/var/log/mcs.log")
	t.Setenv("MCS_LOG_MAX_SIZE_MB", "512")
	t.Setenv("MCS_LOG_MAX_BACKUPS", "4")
	t.Setenv("MCS_LOG_MAX_AGE_DAYS", "2")
	t.Setenv("MCS_LOG_COMPRESS", "false")
	t.Setenv("MCS_METRICS_ADDR", ":9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Address != "127.0.0.1:9000" {
		t.Fatalf("unexpected address: %q", cfg.Address)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://example.com" || cfg.AllowedOrigins[1] != "https://demo.local" {
		t.Fatalf("unexpected allowed origins: %#v", cfg.AllowedOrigins)
	}
	if cfg.AdminToken != "s3cret" {
		t.Fatalf("expected overridden admin token, got %q", cfg.AdminToken)
	}
	if cfg.ScheduleInterval != 500*time.Millisecond {
		t.Fatalf("expected schedule interval 500ms, got %v", cfg.ScheduleInterval)
	}
	if cfg.OnlineUpdateTimeout != 90*time.Second {
		t.Fatalf("expected online update timeout 90s, got %v", cfg.OnlineUpdateTimeout)
	}
	if cfg.ToolWarnLevel != 0.3 {
		t.Fatalf("expected tool warn level 0.3, got %v", cfg.ToolWarnLevel)
	}
	if cfg.TaskStorePath != "/var/run/mcs/tasks.db" {
		t.Fatalf("unexpected task store path %q", cfg.TaskStorePath)
	}
	if cfg.AuditLogPath != "/var/run/mcs/audit.log" {
		t.Fatalf("unexpected audit log path %q", cfg.AuditLogPath)
	}
	if cfg.SweepInterval != 10*time.Second {
		t.Fatalf("expected sweep interval 10s, got %v", cfg.SweepInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected overridden log level debug, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Path != "/var/log/mcs.log" {
		t.Fatalf("unexpected log path %q", cfg.Logging.Path)
	}
	if cfg.Logging.MaxSizeMB != 512 {
		t.Fatalf("expected log max size 512, got %d", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != 4 {
		t.Fatalf("expected log max backups 4, got %d", cfg.Logging.MaxBackups)
	}
	if cfg.Logging.MaxAgeDays != 2 {
		t.Fatalf("expected log max age 2, got %d", cfg.Logging.MaxAgeDays)
	}
	if cfg.Logging.Compress {
		t.Fatalf("expected log compression disabled")
	}
	if cfg.MetricsAddr != ":9999" {
		t.Fatalf("unexpected metrics addr %q", cfg.MetricsAddr)
	}
}

func TestLoadReturnsValidationErrors(t *testing.T) {
	t.Setenv("VEHICLE_SCHEDULE_TIME", "abc")
	t.Setenv("VEHICLE_ONLINE_UPDATE_TIMEOUT", "-1s")
	t.Setenv("VEHICLE_TOOL_WARN_LEVEL", "1.5")
	t.Setenv("MCS_SWEEP_INTERVAL", "0s")
	t.Setenv("MCS_LOG_MAX_SIZE_MB", "-1")
	t.Setenv("MCS_LOG_MAX_BACKUPS", "-2")
	t.Setenv("MCS_LOG_MAX_AGE_DAYS", "-3")
	t.Setenv("MCS_LOG_COMPRESS", "notabool")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error from invalid configuration, got nil")
	}

	for _, want := range []string{
		"VEHICLE_SCHEDULE_TIME",
		"VEHICLE_ONLINE_UPDATE_TIMEOUT",
		"VEHICLE_TOOL_WARN_LEVEL",
		"MCS_SWEEP_INTERVAL",
		"MCS_LOG_MAX_SIZE_MB",
		"MCS_LOG_MAX_BACKUPS",
		"MCS_LOG_MAX_AGE_DAYS",
		"MCS_LOG_COMPRESS",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %q", want, err.Error())
		}
	}
}

func TestLoadIgnoresEmptyAllowedOrigins(t *testing.T) {
	t.Setenv("MCS_ALLOWED_ORIGINS", " , ,https://ok.example, ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://ok.example" {
		t.Fatalf("expected single cleaned origin, got %#v", cfg.AllowedOrigins)
	}
}
