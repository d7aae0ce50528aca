package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// GeneralConfig holds process-wide defaults applied to new user settings.
type GeneralConfig struct {
	Theme    string `mapstructure:"theme" yaml:"theme"`
	Language string `mapstructure:"language" yaml:"language"`
}

// NotificationConfig controls the background reminder worker.
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ReminderLeadMinutes is how far before a due date a reminder fires.
	ReminderLeadMinutes int `mapstructure:"reminder_lead_minutes" yaml:"reminder_lead_minutes"`

	// PollIntervalSec is how often the reminder worker scans for due tasks.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// DisplayConfig holds default list preferences for users without a
// settings record.
type DisplayConfig struct {
	DefaultView        string `mapstructure:"default_view" yaml:"default_view"`
	DefaultSort        string `mapstructure:"default_sort" yaml:"default_sort"`
	DefaultFilter      string `mapstructure:"default_filter" yaml:"default_filter"`
	ShowCompletedTasks bool   `mapstructure:"show_completed_tasks" yaml:"show_completed_tasks"`
}

// StorageConfig controls the data directory and scheduled backups.
type StorageConfig struct {
	// DataDir is where the database, backups, and avatar uploads live.
	// Empty means ~/.local/share/taskdesk.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	AutoBackup         bool `mapstructure:"auto_backup" yaml:"auto_backup"`
	BackupIntervalDays int  `mapstructure:"backup_interval_days" yaml:"backup_interval_days"`
	MaxBackupCount     int  `mapstructure:"max_backup_count" yaml:"max_backup_count"`
}

// SecurityConfig holds password policy settings.
type SecurityConfig struct {
	MinPasswordLength int `mapstructure:"min_password_length" yaml:"min_password_length"`
	BcryptCost        int `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// LoggingConfig selects the zap profile.
type LoggingConfig struct {
	Development bool `mapstructure:"development" yaml:"development"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	General       GeneralConfig      `mapstructure:"general" yaml:"general"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Display       DisplayConfig      `mapstructure:"display" yaml:"display"`
	Storage       StorageConfig      `mapstructure:"storage" yaml:"storage"`
	Security      SecurityConfig     `mapstructure:"security" yaml:"security"`
	Logging       LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskdesk/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskdesk", "config.yaml")
}

// DefaultDataDir returns the default data directory,
// ~/.local/share/taskdesk.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "taskdesk-data")
	}
	return filepath.Join(home, ".local", "share", "taskdesk")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		General: GeneralConfig{
			Theme:    "light",
			Language: "en",
		},
		Notifications: NotificationConfig{
			Enabled:             true,
			ReminderLeadMinutes: 30,
			PollIntervalSec:     60,
		},
		Display: DisplayConfig{
			DefaultView:        ViewList,
			DefaultSort:        "due_date",
			DefaultFilter:      "",
			ShowCompletedTasks: true,
		},
		Storage: StorageConfig{
			AutoBackup:         true,
			BackupIntervalDays: 7,
			MaxBackupCount:     5,
		},
		Security: SecurityConfig{
			MinPasswordLength: 8,
			BcryptCost:        10,
		},
		Logging: LoggingConfig{},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("general.theme", "light")
	v.SetDefault("general.language", "en")
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.reminder_lead_minutes", 30)
	v.SetDefault("notifications.poll_interval_sec", 60)
	v.SetDefault("display.default_view", ViewList)
	v.SetDefault("display.default_sort", "due_date")
	v.SetDefault("display.show_completed_tasks", true)
	v.SetDefault("storage.auto_backup", true)
	v.SetDefault("storage.backup_interval_days", 7)
	v.SetDefault("storage.max_backup_count", 5)
	v.SetDefault("security.min_password_length", 8)
	v.SetDefault("security.bcrypt_cost", 10)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return DefaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("general", cfg.General)
	v.Set("notifications", cfg.Notifications)
	v.Set("display", cfg.Display)
	v.Set("storage", cfg.Storage)
	v.Set("security", cfg.Security)
	v.Set("logging", cfg.Logging)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
