package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console or json
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL           string `yaml:"ttl"`
		LookupTimeout string `yaml:"lookupTimeout"`
	} `yaml:"quiz"`
	Game struct {
		Countdown    string `yaml:"countdown"`
		QuestionTime string `yaml:"questionTime"`
		RevealDelay  string `yaml:"revealDelay"`
	} `yaml:"game"`
	WS struct {
		// CommandsPerSecond and Burst size the per-connection token bucket.
		CommandsPerSecond float64  `yaml:"commandsPerSecond"`
		Burst             int      `yaml:"burst"`
		AllowedOrigins    []string `yaml:"allowedOrigins"`
	} `yaml:"ws"`
}

// Load reads YAML config from path. A missing file yields the zero config so the
// service can run on defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
