package config

import "fmt"

// Validate checks the fields every process needs regardless of role
// and fills in cross-field defaults, mirroring
// References/orion-prototipe/internal/config/validator.go's shape.
func Validate(cfg *Config) error {
	if cfg.Address == "" && len(cfg.Sources) == 0 {
		return fmt.Errorf("address or sources is required")
	}
	if cfg.RateHz <= 0 {
		return fmt.Errorf("rate_hz must be > 0")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 128
	}
	switch cfg.Driver {
	case "synthetic", "file", "":
	default:
		return fmt.Errorf("driver must be \"synthetic\" or \"file\", got %q", cfg.Driver)
	}
	if cfg.Driver == "file" && cfg.Dir == "" {
		return fmt.Errorf("dir is required when driver is \"file\"")
	}
	return nil
}
