package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tinyland-inc/truefriend/pkg/config"
	"github.com/tinyland-inc/truefriend/pkg/vault"
)

const Logo = "💬"

var (
	version   = "dev"
	gitCommit string
)

func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".truefriend", "config.json")
}

// LoadConfig reads the config and makes sure an encryption key exists,
// generating and persisting one on first run so message logs are sealed
// from the start.
func LoadConfig() (*config.Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom is LoadConfig with an explicit config path; an empty
// path means the default location.
func LoadConfigFrom(path string) (*config.Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if cfg.Data.EncryptionKey == "" {
		key, err := vault.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generating encryption key: %w", err)
		}
		cfg.Data.EncryptionKey = key
		if err := config.SaveConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("persisting encryption key: %w", err)
		}
	}

	return cfg, nil
}

func GetVersion() string {
	return version
}

func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}
