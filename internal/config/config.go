// Package config loads server settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Storage  StorageConfig `yaml:"storage"`
	Log      LogConfig     `yaml:"log"`
	SeedFile string        `yaml:"seed_file"`
}

type ServerConfig struct {
	Addr              string `yaml:"addr" validate:"required"`
	APIKey            string `yaml:"api_key"`
	CORSAllowedOrigin string `yaml:"cors_allowed_origin" validate:"required"`
	Mode              string `yaml:"mode" validate:"omitempty,oneof=debug release test"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=memory sqlite badger postgres"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn" validate:"required_if=Driver postgres"`
}

type LogConfig struct {
	Mode string `yaml:"mode" validate:"required,oneof=development production"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			CORSAllowedOrigin: "*",
		},
		Storage: StorageConfig{Driver: "memory"},
		Log:     LogConfig{Mode: "production"},
	}
}

// Load starts from Default, applies the YAML file at path when path is not
// empty, then the environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("TAXONOMY_ADDR", c.Server.Addr)
	c.Server.APIKey = getEnv("TAXONOMY_API_KEY", c.Server.APIKey)
	c.Server.CORSAllowedOrigin = getEnv("CORS_ALLOWED_ORIGIN", c.Server.CORSAllowedOrigin)
	c.Server.Mode = getEnv("GIN_MODE", c.Server.Mode)
	c.Storage.Driver = getEnv("TAXONOMY_STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.Path = getEnv("TAXONOMY_STORAGE_PATH", c.Storage.Path)
	c.Storage.DSN = getEnv("TAXONOMY_DATABASE_URL", c.Storage.DSN)
	c.Log.Mode = getEnv("TAXONOMY_LOG_MODE", c.Log.Mode)
	c.SeedFile = getEnv("TAXONOMY_SEED_FILE", c.SeedFile)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

var validate = validator.New()

// Validate reports the first invalid setting by its YAML name.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid config: %s failed '%s' (value %q)", fe.Namespace(), fe.Tag(), fmt.Sprint(fe.Value()))
	}
	return fmt.Errorf("invalid config: %w", err)
}
