// Package config provides YAML-based configuration loading for lineside.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the top-level lineside configuration, loaded from lineside.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Scan     ScanConfig     `yaml:"scan"`
	Steps    []string       `yaml:"steps"`
	Notify   NotifyConfig   `yaml:"notify"`
	Digest   DigestConfig   `yaml:"digest"`
}

// ServerConfig holds web server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig selects and configures the backing store. Driver is
// "sqlite" (default, file path) or "mysql" (host/port/name/user/password).
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ScanConfig controls the scan flow.
type ScanConfig struct {
	// AutoCreateFirstStation lets the station matching the first active
	// step create unknown units on scan. Defaults to true.
	AutoCreateFirstStation *bool `yaml:"auto_create_first_station"`
}

// NotifyConfig configures outbound chat notifications. Empty targets
// disable the corresponding adapter.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DigestConfig schedules the shift digest.
type DigestConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// AutoCreate reports whether first-station auto-creation is enabled.
func (c *Config) AutoCreate() bool {
	if c.Scan.AutoCreateFirstStation == nil {
		return true
	}
	return *c.Scan.AutoCreateFirstStation
}

// Enabled reports whether at least one notification target is configured.
func (n *NotifyConfig) Enabled() bool {
	return n.Slack.WebhookURL != "" || (n.Discord.BotToken != "" && n.Discord.ChannelID != "")
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// cronParser accepts standard 5-field cron expressions (minute, hour, dom,
// month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "lineside.sqlite3"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 6 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Database.Driver == "mysql" && c.Database.Name == "" {
		errs = append(errs, "database.name is required for the mysql driver")
	}
	for i, name := range c.Steps {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Sprintf("steps[%d] is empty", i))
		}
	}
	if c.Digest.Enabled {
		if _, err := cronParser.Parse(c.Digest.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("digest.schedule %q is not a valid cron expression", c.Digest.Schedule))
		}
		if !c.Notify.Enabled() {
			errs = append(errs, "digest.enabled requires a notify target (slack or discord)")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
