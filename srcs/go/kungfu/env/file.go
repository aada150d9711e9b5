package env

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and validates a YAML peer config, unknown fields are rejected.
func LoadFile(filename string) (*Config, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(bs)
}

func Parse(bs []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg in the format read by LoadFile.
func (c *Config) Save(filename string) error {
	bs, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, bs, 0644)
}
