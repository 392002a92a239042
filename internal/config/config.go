// Package config loads and saves agsync settings.
//
// Settings live in config.toml under the user's XDG config directory
// (~/.config/agsync on Linux). Every key can be overridden from the
// environment with an AGSYNC_ prefix, e.g. AGSYNC_GITHUB_TOKEN.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// AppName names the config directory and the environment prefix.
const AppName = "agsync"

// FileName is the config file inside the config directory.
const FileName = "config.toml"

// Config holds every agsync setting.
type Config struct {
	GitHubToken string `mapstructure:"github_token" yaml:"github_token"`
	GitUsername string `mapstructure:"git_username" yaml:"git_username"`
	GitEmail    string `mapstructure:"git_email" yaml:"git_email"`

	Branch        string `mapstructure:"branch" yaml:"branch"`
	Remote        string `mapstructure:"remote" yaml:"remote"`
	RemoteHost    string `mapstructure:"remote_host" yaml:"remote_host"`
	RemoteURL     string `mapstructure:"remote_url" yaml:"remote_url,omitempty"`
	APIURL        string `mapstructure:"api_url" yaml:"api_url"`
	CommitMessage string `mapstructure:"commit_message" yaml:"commit_message"`

	SyncInterval     time.Duration `mapstructure:"sync_interval" yaml:"sync_interval"`
	Debounce         time.Duration `mapstructure:"debounce" yaml:"debounce"`
	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	FlushTimeout     time.Duration `mapstructure:"flush_timeout" yaml:"flush_timeout"`
	RenameArmTimeout time.Duration `mapstructure:"rename_arm_timeout" yaml:"rename_arm_timeout"`

	LogMaxSizeMB  int `mapstructure:"log_max_size_mb" yaml:"log_max_size_mb"`
	DashboardPort int `mapstructure:"dashboard_port" yaml:"dashboard_port"`
}

// Default returns the built-in settings. Credentials are left empty.
func Default() *Config {
	return &Config{
		Branch:           "main",
		Remote:           "origin",
		RemoteHost:       "github.com",
		APIURL:           "https://api.github.com",
		CommitMessage:    "Auto-sync update",
		SyncInterval:     2 * time.Second,
		Debounce:         2 * time.Second,
		PollInterval:     100 * time.Millisecond,
		FlushTimeout:     10 * time.Second,
		RenameArmTimeout: 30 * time.Second,
		LogMaxSizeMB:     10,
	}
}

// Dir returns the agsync config directory.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), FileName)
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("github_token", d.GitHubToken)
	v.SetDefault("git_username", d.GitUsername)
	v.SetDefault("git_email", d.GitEmail)
	v.SetDefault("branch", d.Branch)
	v.SetDefault("remote", d.Remote)
	v.SetDefault("remote_host", d.RemoteHost)
	v.SetDefault("remote_url", d.RemoteURL)
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("commit_message", d.CommitMessage)
	v.SetDefault("sync_interval", d.SyncInterval)
	v.SetDefault("debounce", d.Debounce)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("flush_timeout", d.FlushTimeout)
	v.SetDefault("rename_arm_timeout", d.RenameArmTimeout)
	v.SetDefault("log_max_size_mb", d.LogMaxSizeMB)
	v.SetDefault("dashboard_port", d.DashboardPort)
}

// Load reads path (Path() when empty) and applies environment overrides.
// A missing file is not an error: defaults and environment still apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(AppName)
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return cfg, nil
}

// fileConfig is the on-disk shape; durations are written as strings
// such as "2s" so the file stays hand-editable.
type fileConfig struct {
	GitHubToken      string `toml:"github_token"`
	GitUsername      string `toml:"git_username"`
	GitEmail         string `toml:"git_email"`
	Branch           string `toml:"branch"`
	Remote           string `toml:"remote"`
	RemoteHost       string `toml:"remote_host"`
	RemoteURL        string `toml:"remote_url,omitempty"`
	APIURL           string `toml:"api_url"`
	CommitMessage    string `toml:"commit_message"`
	SyncInterval     string `toml:"sync_interval"`
	Debounce         string `toml:"debounce"`
	PollInterval     string `toml:"poll_interval"`
	FlushTimeout     string `toml:"flush_timeout"`
	RenameArmTimeout string `toml:"rename_arm_timeout"`
	LogMaxSizeMB     int    `toml:"log_max_size_mb"`
	DashboardPort    int    `toml:"dashboard_port"`
}

// Save writes cfg to path (Path() when empty). The file holds a token, so
// it is only readable by the owner.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	fc := fileConfig{
		GitHubToken:      cfg.GitHubToken,
		GitUsername:      cfg.GitUsername,
		GitEmail:         cfg.GitEmail,
		Branch:           cfg.Branch,
		Remote:           cfg.Remote,
		RemoteHost:       cfg.RemoteHost,
		RemoteURL:        cfg.RemoteURL,
		APIURL:           cfg.APIURL,
		CommitMessage:    cfg.CommitMessage,
		SyncInterval:     cfg.SyncInterval.String(),
		Debounce:         cfg.Debounce.String(),
		PollInterval:     cfg.PollInterval.String(),
		FlushTimeout:     cfg.FlushTimeout.String(),
		RenameArmTimeout: cfg.RenameArmTimeout.String(),
		LogMaxSizeMB:     cfg.LogMaxSizeMB,
		DashboardPort:    cfg.DashboardPort,
	}

	if err := toml.NewEncoder(f).Encode(fc); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	// O_CREATE keeps the mode of an existing file; tighten it
	return os.Chmod(path, 0600)
}

// EnsureExample writes a config with placeholder credentials if path does
// not exist yet. It reports whether a file was written.
func EnsureExample(path string) (bool, error) {
	if path == "" {
		path = Path()
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	example := Default()
	example.GitHubToken = "your_github_token_here"
	example.GitUsername = "your_github_username"
	example.GitEmail = "your_email@example.com"

	if err := Save(path, example); err != nil {
		return false, err
	}
	return true, nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if len(out.GitHubToken) > 8 {
		out.GitHubToken = out.GitHubToken[:4] + "…" + out.GitHubToken[len(out.GitHubToken)-4:]
	} else if out.GitHubToken != "" {
		out.GitHubToken = "***"
	}
	return &out
}
