package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/regbot/core/config"
	coredatabase "github.com/m3rciful/regbot/core/database"
)

// BotConfig carries registration-specific settings.
type BotConfig struct {
	// Districts restricts the district step when non-empty and builds
	// the selection keyboard.
	Districts []string `yaml:"districts"`
	// GuidePath points at the document sent after a completed
	// registration.
	GuidePath string `yaml:"guide_path" envconfig:"BOT_GUIDE_PATH"`
	// UsersPageSize bounds the /users listing page length.
	UsersPageSize int `yaml:"users_page_size" envconfig:"BOT_USERS_PAGE_SIZE"`
	// HealthListen enables the status HTTP endpoint when non-empty,
	// e.g. ":8080".
	HealthListen string `yaml:"health_listen" envconfig:"BOT_HEALTH_LISTEN"`
}

// Config aggregates core, database, and bot settings.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Bot      BotConfig           `yaml:"bot"`
}

// CoreConfig exposes the embedded core configuration for the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// LoadConfig reads YAML then environment overrides, and validates.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := normalizeBot(&cfg.Bot); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalizeBot(cfg *BotConfig) error {
	seen := make(map[string]struct{}, len(cfg.Districts))
	cleaned := cfg.Districts[:0]
	for _, d := range cfg.Districts {
		d = strings.TrimSpace(d)
		if d == "" {
			return fmt.Errorf("bot.districts contains an empty entry")
		}
		key := strings.ToLower(d)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, d)
	}
	cfg.Districts = cleaned

	if cfg.UsersPageSize < 0 {
		return fmt.Errorf("bot.users_page_size must be >= 0")
	}
	return nil
}
