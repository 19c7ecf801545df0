// Package transmit renders catalogue protocols and sends them to a LIRC
// device.
package transmit

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const DefaultDevice = "/dev/lirc0"

type Config struct {
	Device    string `yaml:"device"`
	Catalogue string `yaml:"catalogue"`
	// TransmitterMask selects the emitters; zero leaves the driver setting
	// alone.
	TransmitterMask uint32 `yaml:"transmitter_mask"`
	// Repeats is the number of extra passes over repeating streams.
	Repeats int `yaml:"repeats"`
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unexpected yaml: %w", err)
	}
	if cfg.Device == "" {
		cfg.Device = DefaultDevice
	}
	if cfg.Catalogue == "" {
		return Config{}, fmt.Errorf("no catalogue given")
	}
	if cfg.Repeats < 0 {
		return Config{}, fmt.Errorf("repeats must not be negative, got %d", cfg.Repeats)
	}
	return cfg, nil
}
