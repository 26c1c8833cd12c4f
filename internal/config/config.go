// Package config handles configuration loading for aide. It supports XDG
// config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Config holds all configuration for aide.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Models    ModelsConfig    `mapstructure:"models"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Limits    LimitsConfig    `mapstructure:"limits"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// UseBedrock routes requests through AWS Bedrock instead of the
	// direct API.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// ModelsConfig names the two backend tiers the selection policy chooses
// between.
type ModelsConfig struct {
	// Cheap is the fast, inexpensive model for routine turns.
	Cheap string `mapstructure:"cheap"`
	// Capable is the expensive model for planning, vision, and synthesis.
	Capable string `mapstructure:"capable"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	// DataDir holds the task list files, attachments, and the audit db.
	DataDir string `mapstructure:"data_dir"`
	// WorkspaceRoot is where per-agent scratch directories are created.
	WorkspaceRoot string `mapstructure:"workspace_root"`
	// DebugLog, when set, receives orchestrator debug output.
	DebugLog string `mapstructure:"debug_log"`
}

// ToolsConfig holds the permission policy.
type ToolsConfig struct {
	// Permissions maps tool name to "auto" or "approve". Tools absent
	// from the map require approval.
	Permissions map[string]string `mapstructure:"permissions"`
}

// LimitsConfig holds loop bounds.
type LimitsConfig struct {
	// MaxTurns caps model calls per resume of an agent's turn loop.
	MaxTurns int `mapstructure:"max_turns"`
}

// Load loads configuration with the following precedence (highest first):
// environment variables (ANTHROPIC_API_KEY), project config (.aide.yaml in
// the current directory or a parent), user config
// (~/.config/aide/config.yaml), built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(UserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		pv := viper.New()
		pv.SetConfigFile(projectConfig)
		if err := pv.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// PermissionsProvider returns a function that re-reads the permission map
// from configuration on every call, so the gate sees edits between turns
// without a restart. The last successfully loaded map is kept when a
// reload fails. Every agent's turn loop consults the provider
// concurrently, so the fallback state is mutex-guarded.
func PermissionsProvider() func() map[string]string {
	var mu sync.Mutex
	var last map[string]string
	return func() map[string]string {
		mu.Lock()
		defer mu.Unlock()
		cfg, err := Load()
		if err != nil {
			return last
		}
		last = cfg.Tools.Permissions
		return last
	}
}

// StaticPermissions wraps a fixed permission map in provider form (for
// tests and for callers that loaded config once).
func StaticPermissions(perms map[string]string) func() map[string]string {
	return func() map[string]string { return perms }
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("models.cheap", "claude-3-5-haiku-20241022")
	v.SetDefault("models.capable", "claude-sonnet-4-20250514")

	v.SetDefault("paths.data_dir", defaultDataDir())
	v.SetDefault("paths.workspace_root", filepath.Join(defaultDataDir(), "workspaces"))

	v.SetDefault("tools.permissions", map[string]string{
		"read_file":        "auto",
		"write_file":       "auto",
		"list_files":       "auto",
		"view_image":       "auto",
		"ask_user":         "auto",
		"mark_complete":    "auto",
		"get_task":         "auto",
		"list_tasks":       "auto",
		"list_attachments": "auto",
		"fetch_url":        "approve",
		"create_task":      "approve",
		"update_task":      "approve",
		"mark_task_done":   "approve",
		"move_task":        "approve",
		"attach_file":      "approve",
	})

	v.SetDefault("limits.max_turns", 50)
}

// UserConfigDir returns the XDG config directory for aide.
func UserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "aide")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "aide")
	}
	return filepath.Join(home, ".config", "aide")
}

// defaultDataDir returns the XDG data directory for aide.
func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "aide")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "aide")
	}
	return filepath.Join(home, ".local", "share", "aide")
}

// findProjectConfig searches for .aide.yaml in the current directory and
// parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(cwd, ".aide.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return ""
		}
		cwd = parent
	}
}
