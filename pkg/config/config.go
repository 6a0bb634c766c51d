// Package config provides configuration management for userdeck
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// RemoteConfig configures the remote record store client
type RemoteConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url" mapstructure:"base_url" validate:"required,url"`
	APIToken   string        `yaml:"api_token,omitempty" json:"api_token,omitempty" mapstructure:"api_token"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
	RetryCount int           `yaml:"retry_count" json:"retry_count" mapstructure:"retry_count" validate:"min=0,max=10"`
}

// CacheConfig configures the working-set cache
type CacheConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval" mapstructure:"refresh_interval"`
}

// BulkDeleteConfig configures the bulk deletion coordinator
type BulkDeleteConfig struct {
	UndoWindow    time.Duration `yaml:"undo_window" json:"undo_window" mapstructure:"undo_window"`
	TickInterval  time.Duration `yaml:"tick_interval" json:"tick_interval" mapstructure:"tick_interval"`
	ThrottleDelay time.Duration `yaml:"throttle_delay" json:"throttle_delay" mapstructure:"throttle_delay"`
}

// SessionConfig configures the durable session slot
type SessionConfig struct {
	Backend   string `yaml:"backend" json:"backend" mapstructure:"backend" validate:"oneof=file sqlite redis"`
	Path      string `yaml:"path,omitempty" json:"path,omitempty" mapstructure:"path"`
	RedisAddr string `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisDB   int    `yaml:"redis_db,omitempty" json:"redis_db,omitempty" mapstructure:"redis_db"`
	RedisKey  string `yaml:"redis_key,omitempty" json:"redis_key,omitempty" mapstructure:"redis_key"`
}

// EventsConfig configures the settlement event publisher
type EventsConfig struct {
	Backend string   `yaml:"backend" json:"backend" mapstructure:"backend" validate:"oneof=memory nats"`
	URLs    []string `yaml:"urls,omitempty" json:"urls,omitempty" mapstructure:"urls"`
	Subject string   `yaml:"subject,omitempty" json:"subject,omitempty" mapstructure:"subject"`
}

// APIConfig configures the HTTP facade
type APIConfig struct {
	Port          int           `yaml:"port" json:"port" mapstructure:"port" validate:"min=1,max=65535"`
	JWTSecret     string        `yaml:"jwt_secret" json:"jwt_secret" mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenExpiry   time.Duration `yaml:"token_expiry" json:"token_expiry" mapstructure:"token_expiry"`
	OperatorUser  string        `yaml:"operator_user" json:"operator_user" mapstructure:"operator_user" validate:"required"`
	OperatorBcrypt string       `yaml:"operator_bcrypt" json:"operator_bcrypt" mapstructure:"operator_bcrypt" validate:"required"`
}

// Config is the root userdeck configuration
type Config struct {
	LogLevel   string           `yaml:"log_level" json:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`
	StateDir   string           `yaml:"state_dir" json:"state_dir" mapstructure:"state_dir" validate:"required"`
	Theme      string           `yaml:"theme" json:"theme" mapstructure:"theme" validate:"oneof=light dark"`
	Remote     RemoteConfig     `yaml:"remote" json:"remote" mapstructure:"remote"`
	Cache      CacheConfig      `yaml:"cache" json:"cache" mapstructure:"cache"`
	BulkDelete BulkDeleteConfig `yaml:"bulk_delete" json:"bulk_delete" mapstructure:"bulk_delete"`
	Session    SessionConfig    `yaml:"session" json:"session" mapstructure:"session"`
	Events     EventsConfig     `yaml:"events" json:"events" mapstructure:"events"`
	API        APIConfig        `yaml:"api" json:"api" mapstructure:"api"`

	mu        sync.RWMutex
	validator *validator.Validate
	watcher   *fsnotify.Watcher
}

// NewConfig returns a configuration populated with defaults
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		StateDir: defaultStateDir(),
		Theme:    "light",
		Remote: RemoteConfig{
			Timeout:    15 * time.Second,
			RetryCount: 3,
		},
		Cache: CacheConfig{
			RefreshInterval: 30 * time.Second,
		},
		BulkDelete: BulkDeleteConfig{
			UndoWindow:    5 * time.Second,
			TickInterval:  250 * time.Millisecond,
			ThrottleDelay: 100 * time.Millisecond,
		},
		Session: SessionConfig{
			Backend:  "file",
			RedisKey: "userdeck:pending_deletion",
		},
		Events: EventsConfig{
			Backend: "memory",
			Subject: "userdeck.settlement",
		},
		API: APIConfig{
			Port:        8080,
			TokenExpiry: 12 * time.Hour,
		},
		validator: validator.New(),
	}
}

// Load reads configuration from the given YAML or JSON file, layered over the
// defaults and UD_* environment variables.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	v := viper.New()
	setDefaults(v, cfg)
	v.SetEnvPrefix("UD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Session.Path == "" {
		cfg.Session.Path = filepath.Join(cfg.StateDir, "pending_deletion.json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.validator == nil {
		c.validator = validator.New()
	}
	if err := c.validator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.BulkDelete.UndoWindow <= 0 {
		return fmt.Errorf("invalid configuration: undo window must be positive")
	}
	if c.BulkDelete.TickInterval <= 0 || c.BulkDelete.TickInterval > c.BulkDelete.UndoWindow {
		return fmt.Errorf("invalid configuration: tick interval must be positive and shorter than the undo window")
	}
	return nil
}

// SaveTo writes the configuration to a YAML file
func (c *Config) SaveTo(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Watch watches the config file for changes and invokes the callback with a
// freshly loaded configuration on every valid rewrite. Invalid rewrites are
// skipped so a half-saved file cannot take down a running console.
func (c *Config) Watch(path string, callback func(*Config)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watcher != nil {
		return fmt.Errorf("config watcher already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	c.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				fresh, err := Load(path)
				if err != nil {
					continue
				}
				callback(fresh)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher.Add(path)
}

// StopWatch stops the config file watcher
func (c *Config) StopWatch() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("theme", cfg.Theme)
	v.SetDefault("remote.timeout", cfg.Remote.Timeout)
	v.SetDefault("remote.retry_count", cfg.Remote.RetryCount)
	v.SetDefault("cache.refresh_interval", cfg.Cache.RefreshInterval)
	v.SetDefault("bulk_delete.undo_window", cfg.BulkDelete.UndoWindow)
	v.SetDefault("bulk_delete.tick_interval", cfg.BulkDelete.TickInterval)
	v.SetDefault("bulk_delete.throttle_delay", cfg.BulkDelete.ThrottleDelay)
	v.SetDefault("session.backend", cfg.Session.Backend)
	v.SetDefault("session.redis_key", cfg.Session.RedisKey)
	v.SetDefault("events.backend", cfg.Events.Backend)
	v.SetDefault("events.subject", cfg.Events.Subject)
	v.SetDefault("api.port", cfg.API.Port)
	v.SetDefault("api.token_expiry", cfg.API.TokenExpiry)
}

func defaultStateDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "userdeck")
	}
	return filepath.Join(os.TempDir(), "userdeck")
}
