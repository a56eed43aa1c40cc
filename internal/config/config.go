package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Environment variables read by Load.
const (
	EnvProjectDir  = "CLAUDE_PROJECT_DIR"
	EnvGateTimeout = "TASKGATE_GATE_TIMEOUT"
	EnvLockTimeout = "TASKGATE_LOCK_TIMEOUT"
	EnvLogLevel    = "TASKGATE_LOG_LEVEL"
)

// Defaults applied when the environment leaves a setting unset.
const (
	DefaultGateTimeout = 60 * time.Second
	DefaultLockTimeout = 10 * time.Second
	DefaultLogLevel    = "warn"
)

// Config holds the resolved settings for one hook or CLI invocation.
type Config struct {
	// ProjectDir is the absolute project root every path is resolved against.
	ProjectDir string

	// BmadDir is the .bmad/ workflow state directory inside ProjectDir.
	BmadDir string

	// GateTimeout bounds each quality gate command.
	GateTimeout time.Duration

	// LockTimeout bounds how long a completion commit waits for the queue lock.
	LockTimeout time.Duration

	// Warnings lists environment settings that were invalid and replaced by
	// their default.
	Warnings []string
}

// Options carries explicit overrides that take precedence over the environment.
type Options struct {
	// ProjectDir comes from --project-dir.
	ProjectDir string
	// EventCwd is the cwd field of the hook payload, if any.
	EventCwd string
}

// Load resolves the project root and reads tuning knobs from the environment.
//
// Project root precedence: explicit override, CLAUDE_PROJECT_DIR, the event's
// cwd, then the process working directory.
func Load(opts Options) (*Config, error) {
	projectDir, err := resolveProjectDir(opts)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ProjectDir: projectDir,
		BmadDir:    filepath.Join(projectDir, ".bmad"),
	}
	cfg.GateTimeout = cfg.envDuration(EnvGateTimeout, DefaultGateTimeout)
	cfg.LockTimeout = cfg.envDuration(EnvLockTimeout, DefaultLockTimeout)
	return cfg, nil
}

// envDuration reads a positive duration, falling back to the default and
// recording a warning when the value does not parse.
func (c *Config) envDuration(key string, fallback time.Duration) time.Duration {
	d, err := envDuration(key, fallback)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%v; using %s", err, fallback))
		return fallback
	}
	return d
}

// QueuePath is the sprint task-queue document.
func (c *Config) QueuePath() string {
	return filepath.Join(c.BmadDir, "task-queue.yaml")
}

// LockPath guards read-modify-write of the queue document.
func (c *Config) LockPath() string {
	return filepath.Join(c.BmadDir, "task-queue.yaml.lock")
}

// SessionMarkerPath exists while an autonomous task-execution session runs.
func (c *Config) SessionMarkerPath() string {
	return filepath.Join(c.BmadDir, "ralph-in-progress")
}

// ValidationMarkerPath exists between sprint completion and manual validation.
func (c *Config) ValidationMarkerPath() string {
	return filepath.Join(c.BmadDir, "sprint-validation-pending")
}

// HistoryDir holds archived sprints.
func (c *Config) HistoryDir() string {
	return filepath.Join(c.BmadDir, "history")
}

// SessionActive reports whether the session marker is present.
func (c *Config) SessionActive() bool {
	return fileExists(c.SessionMarkerPath())
}

// ValidationPending reports whether the validation marker is present.
func (c *Config) ValidationPending() bool {
	return fileExists(c.ValidationMarkerPath())
}

// LogLevel returns the level named by TASKGATE_LOG_LEVEL. An unknown name
// yields the default level together with the parse error.
func LogLevel() (slog.Level, error) {
	level, err := ParseLogLevel(envStr(EnvLogLevel, DefaultLogLevel))
	if err != nil {
		fallback, _ := ParseLogLevel(DefaultLogLevel)
		return fallback, err
	}
	return level, nil
}

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", EnvLogLevel, s, err)
	}
	return level, nil
}

func resolveProjectDir(opts Options) (string, error) {
	dir := opts.ProjectDir
	if dir == "" {
		dir = os.Getenv(EnvProjectDir)
	}
	if dir == "" {
		dir = opts.EventCwd
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory %s: %w", dir, err)
	}
	return abs, nil
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
