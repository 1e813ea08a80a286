package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration, resolved from an optional
// config file under the data directory and READTRACK_* environment
// variables.
type Config struct {
	DataDir           string
	DatabasePath      string
	PrefsPath         string
	ListenAddr        string
	GoogleBooksAPIKey string
}

// Load resolves configuration. dataDir overrides the default location
// when non-empty; every path setting defaults to living under it.
func Load(dataDir string) (*Config, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".readtrack")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)
	v.SetEnvPrefix("READTRACK")
	v.AutomaticEnv()

	v.SetDefault("database_path", filepath.Join(dataDir, "books.db"))
	v.SetDefault("prefs_path", filepath.Join(dataDir, "prefs"))
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("google_books_api_key", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		DataDir:           dataDir,
		DatabasePath:      v.GetString("database_path"),
		PrefsPath:         v.GetString("prefs_path"),
		ListenAddr:        v.GetString("listen_addr"),
		GoogleBooksAPIKey: v.GetString("google_books_api_key"),
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return cfg, nil
}
