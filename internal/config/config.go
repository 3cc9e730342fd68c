// Package config loads service configuration with viper. Hierarchy, highest
// priority first: RATESYNC_* environment variables, the yaml config file,
// built-in defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port   string `mapstructure:"port"`
	DBPath string `mapstructure:"db_path"`

	// Timezone for cron schedules; the sources publish on this clock.
	Timezone string `mapstructure:"timezone"`

	// Quantity caps the days one reconciliation pass walks.
	Quantity int `mapstructure:"quantity"`

	Schedules ScheduleConfig `mapstructure:"schedules"`
	Sources   SourceConfig   `mapstructure:"sources"`
	Smtp      SmtpConfig     `mapstructure:"smtp"`
}

type ScheduleConfig struct {
	Scrape  string `mapstructure:"scrape"`
	Detect  string `mapstructure:"detect"`
	Scan    string `mapstructure:"scan"`
	Resolve string `mapstructure:"resolve"`
}

type SourceConfig struct {
	CentralBankURL string `mapstructure:"central_bank_url"`
	StateBankURL   string `mapstructure:"state_bank_url"`
}

type SmtpConfig struct {
	Server     string   `mapstructure:"server"`
	Port       int      `mapstructure:"port"`
	Address    string   `mapstructure:"address"`
	Password   string   `mapstructure:"password"`
	Recipients []string `mapstructure:"recipients"`
}

// Load reads the config file at path (optional, "" skips it) and overlays
// environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "ratesync.db")
	v.SetDefault("timezone", "America/Argentina/Buenos_Aires")
	v.SetDefault("quantity", 30)
	v.SetDefault("schedules.scrape", "0 7 * * *")
	v.SetDefault("schedules.detect", "30 7 * * *")
	v.SetDefault("schedules.scan", "45 7 * * *")
	v.SetDefault("schedules.resolve", "0 8 * * *")

	v.SetEnvPrefix("RATESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
