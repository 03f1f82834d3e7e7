package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		Port string
	}
	Data struct {
		Dir string
	}
}

// Load reads configuration from the environment, optionally seeded from
// a .env file at path.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = os.Getenv("APP_PORT")
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	cfg.Data.Dir = os.Getenv("DATA_DIR")
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "./data"
	}

	return cfg, nil
}
