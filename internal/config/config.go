// Package config loads YAML configuration with environment overrides.
package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "ALFRED_CONFIG"
	dbPathEnv        = "ALFRED_DB"
	serverAddrEnv    = "ALFRED_ADDR"
	geminiAPIKeyEnv  = "GEMINI_API_KEY"
	geminiModelEnv   = "GEMINI_MODEL"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
)

// #region types

// Config holds high-level settings required across the agent.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Generation GenerationConfig `yaml:"generation"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

// DatabaseConfig locates the agent SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SchedulerConfig tunes the periodic evaluation sweep.
type SchedulerConfig struct {
	IntervalMinutes int `yaml:"intervalMinutes"`
	Parallelism     int `yaml:"parallelism"`
}

// Interval resolves the sweep interval as a duration.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalMinutes < 1 {
		return 15 * time.Minute
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// GenerationConfig defines how to contact the generative service.
type GenerationConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// TelegramConfig wires delivery credentials.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
}

// #endregion types

// #region load

// Load reads YAML configuration (if present) and applies environment
// overrides on top of defaults.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dbPathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Generation.APIKey = v
	}
	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Generation.Model = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}
	if override.Server.Addr != "" {
		base.Server = override.Server
	}
	if override.Scheduler.IntervalMinutes > 0 {
		base.Scheduler.IntervalMinutes = override.Scheduler.IntervalMinutes
	}
	if override.Scheduler.Parallelism > 0 {
		base.Scheduler.Parallelism = override.Scheduler.Parallelism
	}
	if override.Generation.APIKey != "" {
		base.Generation.APIKey = override.Generation.APIKey
	}
	if override.Generation.Model != "" {
		base.Generation.Model = override.Generation.Model
	}
	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Database:  DatabaseConfig{Path: "alfred.db"},
		Server:    ServerConfig{Addr: ":8080"},
		Scheduler: SchedulerConfig{IntervalMinutes: 15, Parallelism: 4},
		Generation: GenerationConfig{
			Model: "gemini-2.5-flash",
		},
	}
}

// #endregion load
