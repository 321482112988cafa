package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Config holds user-configurable defaults: where the kernel's controller
// lives and how the connection table is presented.
type Config struct {
	Controller string   `json:"controller"`
	Secret     string   `json:"secret"`
	RuleSet    string   `json:"default_rule_set"`
	Columns    []string `json:"columns"`
	SortKey    string   `json:"sort_key"`
	SortDesc   bool     `json:"sort_desc"`
	LogFile    string   `json:"log_file"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		Controller: "http://127.0.0.1:9090",
		RuleSet:    "custom",
		Columns: []string{
			"host", "network", "type", "chains", "rule",
			"dlspeed", "ulspeed", "dl", "ul", "start",
		},
		SortKey:  "start",
		SortDesc: true,
	}
}

// Path returns ~/.config/conntop/config.json (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "conntop", "config.json")
}

// Load loads config from disk; returns defaults on error.
func Load() Config {
	cfg := Default()
	p := Path()
	if p == "" {
		return cfg
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Warn("config parse error, using defaults", "path", p, "err", err)
	}
	return cfg
}

// Save writes the config to disk.
func Save(cfg Config) error {
	path := Path()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
