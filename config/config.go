package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Model struct {
		Type  string `yaml:"type"`
		Path  string `yaml:"path"`
		Watch bool   `yaml:"watch"`
	} `yaml:"model"`
	Input struct {
		Default float64 `yaml:"default"`
		Step    float64 `yaml:"step"`
	} `yaml:"input"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
}

func Default() *Config {
	var c Config
	c.Http.Port = 8501
	c.Http.Timeout = 30 * time.Second
	c.Http.MaxBodyBytes = 1 << 16
	c.Http.AllowedOrigins = []string{"*"}
	c.Model.Type = "linear_regression"
	c.Model.Path = "car_mileage_lr_model.json"
	c.Model.Watch = true
	c.Input.Default = 3.0
	c.Input.Step = 0.1
	c.Cache.Size = 256
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 50
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	return &c
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	if c.Input.Default < 0.5 || c.Input.Default > 10.0 {
		return fmt.Errorf("input.default must be within [0.5, 10.0], got %v", c.Input.Default)
	}
	if c.Input.Step <= 0 {
		return errors.New("input.step must be positive")
	}
	if c.Cache.Size < 0 {
		return errors.New("cache.size must not be negative")
	}
	return nil
}
