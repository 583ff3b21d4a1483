package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the deployment's Apps Script endpoint.
const DefaultBaseURL = "https://script.google.com/macros/s/AKfycbw0Jry0N4CJbvJCEXmnD6wH_hOLxfv1wpMruNuT6jl3HYONPwzvM9nKogwLMt2G_ttviA/exec"

type Config struct {
	API struct {
		BaseURL   string  `yaml:"base_url"`
		Timeout   string  `yaml:"timeout"`
		RateLimit float64 `yaml:"rate_limit"`
		Burst     int     `yaml:"burst"`
	} `yaml:"api"`
	Cache struct {
		Backend   string `yaml:"backend"`
		Freshness string `yaml:"freshness"`
		Dir       string `yaml:"dir"`
		TTL       string `yaml:"ttl"`
	} `yaml:"cache"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Quiz struct {
		CountOptions []int  `yaml:"count_options"`
		DefaultCount int    `yaml:"default_count"`
		Tick         string `yaml:"tick"`
	} `yaml:"quiz"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.API.BaseURL = DefaultBaseURL
	cfg.API.Timeout = "15s"
	cfg.API.RateLimit = 5
	cfg.API.Burst = 5
	cfg.Cache.Backend = "file"
	cfg.Cache.Freshness = "60m"
	cfg.Cache.Dir = ".math-physical"
	cfg.Server.Port = "8080"
	cfg.Quiz.CountOptions = []int{5, 10, 20}
	cfg.Quiz.DefaultCount = 10
	cfg.Quiz.Tick = "1s"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
