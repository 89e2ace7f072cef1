// Package config loads the optional installer defaults file. Flags always
// win over file values; the file only changes the baseline.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures the defaults an operator can persist between runs.
type Config struct {
	InstallDir string `yaml:"install_dir"`
	Filename   string `yaml:"filename"`
	Version    string `yaml:"version"`
	Unstable   bool   `yaml:"unstable"`
	CAFile     string `yaml:"cafile"`
	Insecure   bool   `yaml:"insecure"`
	Quiet      bool   `yaml:"quiet"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{}
}

// Load reads the YAML defaults file if it exists, otherwise returns the
// default configuration. Unknown keys are rejected so a typoed field never
// silently falls back to its zero value.
func Load(path string) (Config, error) {
	return load(path, false)
}

// LoadRequired is Load for a path the user named explicitly: a missing file
// is an error instead of falling back to defaults.
func LoadRequired(path string) (Config, error) {
	return load(path, true)
}

func load(path string, required bool) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(contents))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// An empty file decodes to io.EOF; treat it as all defaults.
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values that would otherwise surface late in a run.
func (c Config) Validate() error {
	if strings.ContainsRune(c.Filename, os.PathSeparator) {
		return fmt.Errorf("filename %q must not contain path separators", c.Filename)
	}
	if c.Version != "" && c.Unstable {
		return errors.New("version and unstable are mutually exclusive")
	}
	return nil
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}
