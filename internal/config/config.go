package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL            string `yaml:"url"`
		MigrationsPath string `yaml:"migrations_path"`
	} `yaml:"database"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Evidence struct {
		ReportsDir     string `yaml:"reports_dir"`
		ScreenshotsDir string `yaml:"screenshots_dir"`
	} `yaml:"evidence"`
	Notifications struct {
		Enabled          bool   `yaml:"enabled"`
		TelegramBotToken string `yaml:"telegram_bot_token"`
		TelegramChatID   int64  `yaml:"telegram_chat_id"`
	} `yaml:"notifications"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if config.Database.MigrationsPath == "" {
		config.Database.MigrationsPath = "migrations"
	}
	if config.Evidence.ReportsDir == "" {
		config.Evidence.ReportsDir = "reports"
	}
	if config.Evidence.ScreenshotsDir == "" {
		config.Evidence.ScreenshotsDir = "reports/screenshots"
	}

	return config, nil
}
