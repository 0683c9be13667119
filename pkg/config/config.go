// Package config loads the matching tables from YAML.
//
// Every table has a built-in default. A config file only needs the keys it
// changes; anything it omits keeps the default.
//
//	canon:
//	  transliterations:
//	    - {from: "ph", to: "f"}
//	alternate_names:
//	  margin: 4
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/theoremgap/pkg/altname"
	"github.com/codeGROOVE-dev/theoremgap/pkg/canon"
	"github.com/codeGROOVE-dev/theoremgap/pkg/catalog"
)

// maxFileSize bounds a config file.
const maxFileSize = 1 << 20

// Config holds the tunable matching data.
type Config struct {
	Canon          canon.Options   `yaml:"canon"`
	AlternateNames altname.Options `yaml:"alternate_names"`
	Catalog        []catalog.Rule  `yaml:"catalog"`
	// MinLength is the length a name must exceed to enter the match corpus.
	MinLength int `yaml:"min_length"`
}

// Default returns the built-in tables.
func Default() *Config {
	return &Config{
		Canon:          canon.DefaultOptions(),
		AlternateNames: altname.DefaultOptions(),
		Catalog:        catalog.DefaultRules(),
		MinLength:      3,
	}
}

// Load reads a config file and merges it over the defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse merges YAML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("config exceeds %d bytes", maxFileSize)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every inconsistency in c.
func (c *Config) Validate() error {
	var errs []error
	if c.MinLength < 0 {
		errs = append(errs, fmt.Errorf("min_length must not be negative, got %d", c.MinLength))
	}
	if c.AlternateNames.Margin < 0 {
		errs = append(errs, fmt.Errorf("alternate_names.margin must not be negative, got %d", c.AlternateNames.Margin))
	}
	if len(c.AlternateNames.Keywords) == 0 {
		errs = append(errs, errors.New("alternate_names.keywords must not be empty"))
	}
	for i, r := range c.Canon.Transliterations {
		if r.From == "" || len(r.To) >= len(r.From) {
			errs = append(errs, fmt.Errorf("canon.transliterations[%d]: %q -> %q must shorten the text", i, r.From, r.To))
		}
	}
	for i, r := range c.Catalog {
		if r.Keyword == "" {
			errs = append(errs, fmt.Errorf("catalog[%d]: keyword is required", i))
		}
	}
	return errors.Join(errs...)
}

// Canonicalizer builds a canonicalizer from the canon tables.
func (c *Config) Canonicalizer() *canon.Canonicalizer {
	return canon.New(c.Canon)
}

// Miner builds an alternate-name miner that canonicalizes with cz.
func (c *Config) Miner(cz *canon.Canonicalizer) *altname.Miner {
	return altname.New(cz, c.AlternateNames)
}
