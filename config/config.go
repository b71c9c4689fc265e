// Package config loads the TOML configuration consumed by every
// cmd/* binary via `-c <config-file> -k <config-key>`, shaped
// after References/orion-prototipe/internal/config/config.go's
// Load/Validate pair but keyed by table name instead of being a
// single-document-per-process format: one TOML file can hold the
// settings for several oatbus processes sharing a host, each under
// its own top-level table.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the settings any one oatbus process needs. Not every
// field applies to every binary; each cmd/* reads only the fields its
// role uses and ignores the rest.
type Config struct {
	// Address is the shared-memory segment address this process binds
	// or connects to. Producers (sinks) treat it as their own
	// segment; filters and consumers may set both Address and Sink.
	Address string `toml:"address"`
	// Sink is the downstream address a filter posts to, distinct from
	// Address (its upstream source) only for oat-positionfilter.
	Sink string `toml:"sink"`
	// Sources lists upstream addresses for processes that attach to
	// more than one. oat-recorder takes its sources from repeated
	// -frame-source/-position-source flags and does not read this field.
	Sources []string `toml:"sources"`

	RateHz float64 `toml:"rate_hz"`
	Width  int     `toml:"width"`
	Height int     `toml:"height"`
	Format string  `toml:"format"`

	// Driver selects oat-frameserver's frame source: "synthetic" or
	// "file". Dir is the directory FileReader reads from.
	Driver string `toml:"driver"`
	Dir    string `toml:"dir"`

	// Broker and Topic configure oat-positionsocket's MQTT publisher.
	Broker string `toml:"broker"`
	Topic  string `toml:"topic"`

	// OutputDir and QueueSize configure oat-recorder.
	OutputDir string `toml:"output_dir"`
	QueueSize int     `toml:"queue_size"`

	Debug bool `toml:"debug"`
}

// Default returns a Config pre-populated with the defaults every
// binary falls back to when a field is absent from its table.
func Default() Config {
	return Config{
		RateHz:    30,
		Width:     640,
		Height:    480,
		Format:    "gray8",
		Driver:    "synthetic",
		QueueSize: 128,
	}
}

// Load reads path, selects the top-level table named key, and decodes
// it over Default(). Returns an error wrapping the underlying parse
// or validation failure so callers can fmt.Errorf("%w") it again at
// their own boundary without losing context.
func Load(path, key string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var root map[string]any
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	section, ok := root[key]
	if !ok {
		return nil, fmt.Errorf("config: %s has no [%s] table", path, key)
	}

	sectionBytes, err := toml.Marshal(section)
	if err != nil {
		return nil, fmt.Errorf("config: re-encode [%s]: %w", key, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(sectionBytes, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode [%s]: %w", key, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid [%s]: %w", key, err)
	}
	return &cfg, nil
}
