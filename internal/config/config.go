// Package config handles DeskWork configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./deskwork.yaml, ~/.config/deskwork/deskwork.yaml, /etc/deskwork/deskwork.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"deskwork.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "deskwork", "deskwork.yaml"))
	}

	paths = append(paths, "/etc/deskwork/deskwork.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all DeskWork configuration.
type Config struct {
	Listen    ListenConfig   `yaml:"listen"`
	Provider  ProviderConfig `yaml:"provider"`
	Workspace string         `yaml:"workspace"`
	DataDir   string         `yaml:"data_dir"`
	ReadOnly  bool           `yaml:"read_only"`
	LogLevel  string         `yaml:"log_level"`
}

// ListenConfig defines the observer API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ProviderConfig defines the chat-completion backend settings.
type ProviderConfig struct {
	Name    string `yaml:"name"`     // only "openai" is supported
	BaseURL string `yaml:"base_url"` // override for compatible backends
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Provider: ProviderConfig{
			Name:  "openai",
			Model: "gpt-4o",
		},
	}
}

// DataPath resolves a file name inside the data directory, creating the
// directory if needed. Falls back to the current directory when DataDir
// is unset.
func (c *Config) DataPath(name string) string {
	dir := c.DataDir
	if dir == "" {
		dir = "."
	}
	_ = os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, name)
}
