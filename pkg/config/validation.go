package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for errors.
//
// Struct tags cover value ranges and enumerations; the cross-field rules
// viper's tags cannot express are checked explicitly afterwards.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			return fmt.Errorf("invalid configuration: %w", errs)
		}
		return err
	}

	if cfg.Metacache.Type == "badger" && cfg.Metacache.Badger.Path == "" {
		return fmt.Errorf("metacache.badger.path is required when metacache.type is badger")
	}
	if cfg.Mount.Burst > 0 && cfg.Mount.RequestsPerSecond == 0 {
		return fmt.Errorf("mount.burst has no effect without mount.requests_per_second")
	}
	return nil
}
