// Package config handles reading and writing ~/.cowork/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for config.yaml.
type Config struct {
	Version  int            `yaml:"version"`
	Provider ProviderConfig `yaml:"provider"`
	Agent    AgentConfig    `yaml:"agent"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// ProviderConfig holds the model credentials handed to the agent runtime.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// AgentConfig controls how the agent runtime is spawned.
type AgentConfig struct {
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args"`
	MaxTurns       int      `yaml:"max_turns"`
	TimeoutSeconds int      `yaml:"timeout_seconds"` // 0 disables the timeout
	AllowedTools   []string `yaml:"allowed_tools"`
	SystemPrompt   string   `yaml:"system_prompt"` // empty uses the built-in prompt
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	DBPath string `yaml:"db_path"` // empty means <config dir>/cowork.db
}

// LogConfig toggles the JSONL event log.
type LogConfig struct {
	Enabled bool `yaml:"enabled"`
}

const (
	configDirName = ".cowork"
	configFile    = "config.yaml"
	dbFile        = "cowork.db"
)

// Environment variables that override the file.
const (
	EnvAPIKey       = "COWORK_API_KEY"
	EnvModel        = "COWORK_MODEL"
	EnvAgentCommand = "COWORK_AGENT_COMMAND"
	EnvConfigDir    = "COWORK_CONFIG_DIR"
)

// DefaultDir returns the configuration directory: $COWORK_CONFIG_DIR if set,
// otherwise ~/.cowork.
func DefaultDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// ReadConfig reads config.yaml from dir.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// WriteConfig writes cfg to config.yaml in dir.
// Creates dir if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	// The file may carry an API key.
	path := filepath.Join(dir, configFile)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Load reads the config in dir, falling back to defaults when the file does
// not exist, then applies environment overrides and fills unset fields.
func Load(dir string) (*Config, error) {
	cfg, err := ReadConfig(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = DefaultConfig()
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Provider: ProviderConfig{
			Model: "claude-sonnet-4",
		},
		Agent: AgentConfig{
			Command:  "cowork-agent",
			MaxTurns: 100,
			AllowedTools: []string{
				"read_file", "write_file", "edit_file", "bash", "glob", "grep",
				"list_dir", "docker_run", "docker_list", "docker_images",
			},
		},
		Log: LogConfig{
			Enabled: true,
		},
	}
}

// applyDefaults fills fields an older or hand-written file left empty.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.Provider.Model == "" {
		c.Provider.Model = def.Provider.Model
	}
	if c.Agent.Command == "" {
		c.Agent.Command = def.Agent.Command
	}
	if c.Agent.MaxTurns <= 0 {
		c.Agent.MaxTurns = def.Agent.MaxTurns
	}
	if c.Agent.AllowedTools == nil {
		c.Agent.AllowedTools = def.Agent.AllowedTools
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv(EnvAgentCommand); v != "" {
		c.Agent.Command = v
	}
}

// IsConfigured reports whether credentials are present. Sessions are not
// offered until it returns true.
func (c *Config) IsConfigured() bool {
	return strings.TrimSpace(c.Provider.APIKey) != ""
}

// DBPath returns the SQLite database path, relative to dir unless absolute.
func (c *Config) DBPath(dir string) string {
	p := c.Storage.DBPath
	if p == "" {
		return filepath.Join(dir, dbFile)
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	out.Agent.Args = append([]string(nil), c.Agent.Args...)
	out.Agent.AllowedTools = append([]string(nil), c.Agent.AllowedTools...)
	if k := c.Provider.APIKey; k != "" {
		if len(k) > 8 {
			out.Provider.APIKey = k[:4] + "..." + k[len(k)-4:]
		} else {
			out.Provider.APIKey = "****"
		}
	}
	return &out
}
