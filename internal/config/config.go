// Package config loads the bot's immutable configuration.
//
// The file is YAML, decoded strictly (unknown keys are rejected so typos are
// caught at startup). Config is parsed once and passed down by value; there
// is no hot reload.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Timezone string         `yaml:"timezone"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Calendar CalendarConfig `yaml:"calendar"`
	Health   HealthConfig   `yaml:"health"`
}

type TelegramConfig struct {
	// Token falls back to the TELEGRAM_BOT_TOKEN env var when empty, so the
	// secret can stay out of the config file.
	Token string `yaml:"token"`
	// GroupChatID is the fixed destination of calendar broadcasts; falls
	// back to TELEGRAM_GROUP_CHAT_ID.
	GroupChatID string `yaml:"group_chat_id"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `yaml:"poll_timeout"`
	// RatePerSec caps outgoing sends (Telegram throttles around 30/s).
	RatePerSec int `yaml:"rate_per_sec"`
}

type LoggingConfig struct {
	Level   string      `yaml:"level"`
	Console bool        `yaml:"console"`
	File    LoggingFile `yaml:"file"`
}

type LoggingFile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `yaml:"busy_timeout"`
}

type SweepConfig struct {
	// Interval is a Go duration string; the due-check polling cadence.
	Interval string `yaml:"interval"`
}

type CalendarConfig struct {
	// At is the HH:MM trigger time of the daily broadcast check.
	At string `yaml:"at"`
	// Entries maps day-of-month to the announcement text.
	Entries map[int]string `yaml:"entries"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads, strictly decodes, defaults and validates the config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		c.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if strings.TrimSpace(c.Telegram.GroupChatID) == "" {
		c.Telegram.GroupChatID = os.Getenv("TELEGRAM_GROUP_CHAT_ID")
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = "Asia/Kolkata"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "./remindbot.db"
	}
	if strings.TrimSpace(c.Sweep.Interval) == "" {
		c.Sweep.Interval = "60s"
	}
	if strings.TrimSpace(c.Calendar.At) == "" {
		c.Calendar.At = "08:00"
	}
	if strings.TrimSpace(c.Health.Addr) == "" {
		c.Health.Addr = "127.0.0.1:8081"
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required (or set TELEGRAM_BOT_TOKEN)")
	}
	if len(c.Calendar.Entries) > 0 && strings.TrimSpace(c.Telegram.GroupChatID) == "" {
		return errors.New("telegram.group_chat_id is required when calendar entries are configured")
	}
	for day := range c.Calendar.Entries {
		if day < 1 || day > 31 {
			return fmt.Errorf("calendar.entries: day %d out of range 1..31", day)
		}
	}
	if _, err := ParseDurationField("sweep.interval", c.Sweep.Interval); err != nil {
		return err
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	return nil
}
