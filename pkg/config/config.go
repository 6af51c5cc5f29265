package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"limedb/pkg/manifest"
	"limedb/pkg/wal"
)

// Config is the root application config, read from YAML.
type Config struct {
	Logger LoggerConfig `yaml:"logger" validate:"required"`
	Server ServerConfig `yaml:"http-server" validate:"required"`
	DB     DB           `yaml:"db"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"required,min=1,max=65535"`
}

type DB struct {
	// Path is the store directory. Empty keeps the manifest in memory.
	Path     string           `yaml:"path"`
	Manifest manifest.Options `yaml:"manifest"`
	Wal      WalConfig        `yaml:"wal"`
}

type WalConfig struct {
	// Comparator is "ascend" or "descend".
	Comparator string `yaml:"comparator" validate:"comparator"`
	// RotateThresholdBytes seals the active generation once it holds this
	// many bytes. Zero disables automatic rotation.
	RotateThresholdBytes int `yaml:"rotate_threshold" validate:"min=0"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "DEBUG",
			JSON:  false,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		DB: DB{
			Path:     "./data",
			Manifest: manifest.DefaultOptions(),
			Wal: WalConfig{
				Comparator:           "ascend",
				RotateThresholdBytes: 4 * 1024 * 1024,
			},
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails on an empty tag or a nil func
	_ = v.RegisterValidation("comparator", func(fl validator.FieldLevel) bool {
		_, ok := wal.ComparatorByName(fl.Field().String())
		return ok
	})
	return v
}

// Validate checks the struct tags of the whole config tree.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}
