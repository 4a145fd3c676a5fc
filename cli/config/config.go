package config

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/pithecene-io/flagkit/log"
)

// Config represents a flagkit.yaml configuration file.
// All values are optional.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Plugins  []PluginEntry `yaml:"plugins"`
	Builtin  BuiltinConfig `yaml:"builtin"`
}

// PluginEntry references a declarative plugin manifest.
// Relative manifest paths are resolved against the config file's directory
// by Load.
type PluginEntry struct {
	Name     string `yaml:"name"`
	Manifest string `yaml:"manifest"`
	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty"`
}

// BuiltinConfig controls the plugins compiled into the binary.
type BuiltinConfig struct {
	// Disable lists builtin plugin names to skip.
	Disable []string `yaml:"disable"`
	// CwdCommands lists the commands that receive the --cwd flag.
	// Empty means the binary's default set.
	CwdCommands []string `yaml:"cwd_commands"`
}

// IsEnabled reports whether the entry should be loaded.
func (p PluginEntry) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// EnabledPlugins returns the enabled manifest entries in file order.
func (c *Config) EnabledPlugins() []PluginEntry {
	var out []PluginEntry
	for _, p := range c.Plugins {
		if p.IsEnabled() {
			out = append(out, p)
		}
	}
	return out
}

// BuiltinEnabled reports whether the named builtin plugin is not disabled.
func (c *Config) BuiltinEnabled(name string) bool {
	for _, d := range c.Builtin.Disable {
		if d == name {
			return false
		}
	}
	return true
}

// Validate reports every problem in the config at once.
func (c *Config) Validate() error {
	var err error
	if _, lerr := log.ParseLevel(c.LogLevel); lerr != nil {
		err = multierr.Append(err, lerr)
	}

	seen := make(map[string]int, len(c.Plugins))
	for i, p := range c.Plugins {
		if p.Name == "" {
			err = multierr.Append(err, fmt.Errorf("plugins[%d]: name is required", i))
		} else if prev, dup := seen[p.Name]; dup {
			err = multierr.Append(err, fmt.Errorf("plugins[%d]: name %q already used by plugins[%d]", i, p.Name, prev))
		} else {
			seen[p.Name] = i
		}
		if p.Manifest == "" {
			err = multierr.Append(err, fmt.Errorf("plugins[%d]: manifest path is required", i))
		}
	}

	for i, cmd := range c.Builtin.CwdCommands {
		if cmd == "" {
			err = multierr.Append(err, fmt.Errorf("builtin.cwd_commands[%d]: command name is empty", i))
		}
	}
	return err
}
