package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Data      DataConfig      `json:"data"`
	Providers ProvidersConfig `json:"providers"`
	Channels  ChannelsConfig  `json:"channels"`
	Engage    EngageConfig    `json:"engagement"`
}

type DataConfig struct {
	Dir           string `env:"TRUEFRIEND_DATA_DIR"       json:"dir"`
	EncryptionKey string `env:"TRUEFRIEND_ENCRYPTION_KEY" json:"encryption_key"` // base64, 32 bytes
}

// DBPath returns the sqlite database location inside the data directory.
func (d DataConfig) DBPath() string {
	return filepath.Join(expandHome(d.Dir), "truefriend.db")
}

// QRDir returns the directory where generated QR images are written.
func (d DataConfig) QRDir() string {
	return filepath.Join(expandHome(d.Dir), "qr")
}

type ProvidersConfig struct {
	Anthropic ProviderConfig `json:"anthropic"`
	OpenAI    ProviderConfig `json:"openai"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	APIBase string `json:"api_base,omitempty"`
	Model   string `json:"model,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig       `json:"telegram"`
	WhatsApp WhatsAppBridgeConfig `json:"whatsapp"`
}

type TelegramConfig struct {
	Enabled      bool     `json:"enabled"`
	Token        string   `env:"TRUEFRIEND_TELEGRAM_TOKEN" json:"token"`
	AllowedUsers []string `json:"allowed_users,omitempty"`
}

// WhatsAppBridgeConfig configures the websocket endpoint the WhatsApp
// sidecar pairs with.
type WhatsAppBridgeConfig struct {
	Enabled      bool     `json:"enabled"`
	Listen       string   `env:"TRUEFRIEND_WHATSAPP_LISTEN" json:"listen"`
	Secret       string   `env:"TRUEFRIEND_WHATSAPP_SECRET" json:"secret"`
	AllowedUsers []string `json:"allowed_users,omitempty"`
}

type EngageConfig struct {
	Enabled       bool   `json:"enabled"`
	Cron          string `json:"cron"`
	InactiveHours int    `json:"inactive_hours"`
}

func (c *Config) EnvOverrides() error {
	return env.Parse(c)
}

func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir: "~/.truefriend",
		},
		Providers: ProvidersConfig{
			Anthropic: ProviderConfig{Model: "claude-sonnet-4.6"},
			OpenAI:    ProviderConfig{Model: "gpt-4.1-mini"},
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{Enabled: true},
			WhatsApp: WhatsAppBridgeConfig{Enabled: true, Listen: "127.0.0.1:8790"},
		},
		Engage: EngageConfig{
			Enabled:       false,
			Cron:          "0 * * * *",
			InactiveHours: 24,
		},
	}
}

// LoadConfig reads the JSON config at path, then applies environment
// variable overrides. A missing file yields the default config so first
// runs work with env-only setups.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := cfg.EnvOverrides(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.EnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
