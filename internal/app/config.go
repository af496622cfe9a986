// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Notes   NotesConfig   `mapstructure:"notes"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
	Logging LoggingConfig `mapstructure:"logging"`
	CORS    CORSConfig    `mapstructure:"cors"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DebugLogging    bool          `mapstructure:"debug_logging"`
}

// NotesConfig holds notes storage configuration.
type NotesConfig struct {
	// Dir is the notes root directory. Everything the server touches
	// lives under it: notes, images, settings, the git metadata.
	Dir string `mapstructure:"dir"`
}

// SyncConfig holds git synchronization configuration.
type SyncConfig struct {
	// Mode selects the backend: "local" shells out to the git CLI against
	// a real working tree, "github" drives the GitHub REST API with no
	// local git metadata.
	Mode string `mapstructure:"mode"`

	// RemoteURL is the HTTPS remote for the local backend.
	RemoteURL string `mapstructure:"remote_url"`

	// Token authenticates network operations. Held in memory only; it is
	// never written to configuration on disk by the server.
	Token string `mapstructure:"token"`

	// Owner and Repo identify the GitHub repository for the github backend.
	Owner string `mapstructure:"owner"`
	Repo  string `mapstructure:"repo"`

	// Branch to sync against (github backend; default branch when empty).
	Branch string `mapstructure:"branch"`

	// Hostname overrides the hostname used in conflict branch names.
	Hostname string `mapstructure:"hostname"`
}

// CleanupConfig holds the orphaned-image cleanup job configuration.
type CleanupConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`

	// Levels holds per-component level overrides keyed by component name
	// (e.g. "http", "autosync").
	Levels map[string]string `mapstructure:"levels"`
	File   struct {
		Path       string `mapstructure:"path"`
		MaxSize    int64  `mapstructure:"max_size"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age"`
		Compress   bool   `mapstructure:"compress"`
	} `mapstructure:"file"`
}

// CORSConfig holds cross-origin configuration for the HTTP API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoadConfig loads configuration from file and environment.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	// Config file settings
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/notesd")
		v.AddConfigPath("$HOME/.notesd")
		v.AddConfigPath(".")
	}

	// Environment variables
	v.SetEnvPrefix("NOTESD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Dual-binding: NOTESD_ prefixed (canonical) + the bare names the
	// container images historically used. BindEnv picks the first set.
	_ = v.BindEnv("notes.dir", "NOTESD_NOTES_DIR", "NOTES_DIR")
	_ = v.BindEnv("sync.token", "NOTESD_SYNC_TOKEN", "GIT_TOKEN")
	_ = v.BindEnv("sync.remote_url", "NOTESD_SYNC_REMOTE_URL", "GIT_REMOTE_URL")
	_ = v.BindEnv("sync.mode", "NOTESD_SYNC_MODE", "GIT_SYNC_MODE")
	_ = v.BindEnv("sync.owner", "NOTESD_SYNC_OWNER", "GITHUB_OWNER")
	_ = v.BindEnv("sync.repo", "NOTESD_SYNC_REPO", "GITHUB_REPO")
	_ = v.BindEnv("sync.branch", "NOTESD_SYNC_BRANCH", "GITHUB_BRANCH")

	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, proceed with env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.debug_logging", false)

	// Notes
	v.SetDefault("notes.dir", "/data/notes")

	// Sync
	v.SetDefault("sync.mode", "local")

	// Cleanup: orphaned images are swept daily at 03:00 UTC
	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.schedule", "0 3 * * *")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file.max_size", 100*1024*1024)
	v.SetDefault("logging.file.max_backups", 5)
	v.SetDefault("logging.file.max_age", 30)
	v.SetDefault("logging.file.compress", true)

	// CORS
	v.SetDefault("cors.allowed_origins", []string{})
}

// Validate validates the configuration.
// Collects all errors so the operator can fix them in one pass.
func (c *Config) Validate() error {
	var errs []error

	if c.Notes.Dir == "" {
		errs = append(errs, fmt.Errorf("notes.dir is required"))
	}

	switch c.Sync.Mode {
	case "local":
		// RemoteURL and token are optional: without them the backend still
		// commits locally and reports no_upstream.
	case "github":
		if c.Sync.Owner == "" || c.Sync.Repo == "" {
			errs = append(errs, fmt.Errorf("sync.owner and sync.repo are required for github mode"))
		}
		if c.Sync.Token == "" {
			errs = append(errs, fmt.Errorf("sync.token is required for github mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid sync.mode: %s (must be local or github)", c.Sync.Mode))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d is not a valid port (1-65535)", c.Server.Port))
	}

	checkPositive := func(name string, d time.Duration) {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must be non-negative, got %s", name, d))
		}
	}
	checkPositive("server.read_timeout", c.Server.ReadTimeout)
	checkPositive("server.write_timeout", c.Server.WriteTimeout)
	checkPositive("server.idle_timeout", c.Server.IdleTimeout)
	checkPositive("server.request_timeout", c.Server.RequestTimeout)
	checkPositive("server.shutdown_timeout", c.Server.ShutdownTimeout)

	if c.Logging.Level != "" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errs = append(errs, fmt.Errorf("logging.level: %q is not valid (debug, info, warn, error)", c.Logging.Level))
		}
	}
	if c.Logging.Format != "" {
		validFormats := map[string]bool{"json": true, "text": true, "console": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errs = append(errs, fmt.Errorf("logging.format: %q is not valid (json, text, console)", c.Logging.Format))
		}
	}
	if c.Logging.Output != "" {
		validOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true}
		if !validOutputs[strings.ToLower(c.Logging.Output)] {
			errs = append(errs, fmt.Errorf("logging.output: %q is not valid (stdout, stderr, file)", c.Logging.Output))
		}
		if strings.ToLower(c.Logging.Output) == "file" && c.Logging.File.Path == "" {
			errs = append(errs, fmt.Errorf("logging.file.path is required when logging.output is file"))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	// Join all errors with newlines for readable operator output
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("config validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// PrintMasked prints configuration with sensitive values masked.
func (c *Config) PrintMasked() {
	fmt.Printf("Server: %s:%d\n", c.Server.Host, c.Server.Port)
	fmt.Printf("Notes Dir: %s\n", c.Notes.Dir)
	fmt.Printf("Sync Mode: %s\n", c.Sync.Mode)
	if c.Sync.Mode == "local" {
		fmt.Printf("Remote URL: %s\n", valueOrUnset(c.Sync.RemoteURL))
	} else {
		fmt.Printf("Repository: %s/%s\n", c.Sync.Owner, c.Sync.Repo)
		fmt.Printf("Branch: %s\n", valueOrUnset(c.Sync.Branch))
	}
	fmt.Printf("Token: %s\n", maskToken(c.Sync.Token))
	fmt.Printf("Cleanup Enabled: %v\n", c.Cleanup.Enabled)
	if c.Cleanup.Enabled {
		fmt.Printf("Cleanup Schedule: %s\n", c.Cleanup.Schedule)
	}
	fmt.Printf("Log Level: %s\n", c.Logging.Level)
	fmt.Printf("Log Format: %s\n", c.Logging.Format)
}

// maskToken hides the token entirely; even a prefix can narrow a search.
func maskToken(token string) string {
	if token == "" {
		return "<not set>"
	}
	return "****"
}

func valueOrUnset(s string) string {
	if s == "" {
		return "<not set>"
	}
	return s
}
