// Package plugin loads plugins and lets them contribute flags to commands.
//
// Plugins are initialised one at a time, in the order given to Load. Each
// plugin receives a Registrar bound to its own name, so it cannot register
// flags on behalf of another plugin. The first failure aborts loading; the
// caller should treat it as fatal to startup.
package plugin

import (
	"errors"

	"github.com/pithecene-io/flagkit/flagreg"
	"github.com/pithecene-io/flagkit/log"
	"github.com/pithecene-io/flagkit/metrics"
)

// Plugin is an independently loaded unit of CLI functionality.
type Plugin interface {
	// Name identifies the plugin. It must be unique within a Loader.
	Name() string
	// Init contributes the plugin's flags through r.
	Init(r Registrar) error
}

// Registrar is handed to Plugin.Init. The plugin name is implicit.
type Registrar interface {
	Register(command string, flags map[string]flagreg.FlagSpec, verify flagreg.VerifyFunc) error
}

// Registry is the backend the Loader registers into.
// *flagreg.Registry satisfies it.
type Registry interface {
	Register(command, plugin string, flags map[string]flagreg.FlagSpec, verify flagreg.VerifyFunc) error
}

// Func adapts a name and an init function into a Plugin.
type Func struct {
	PluginName string
	InitFunc   func(r Registrar) error
}

// Name returns the plugin name.
func (f Func) Name() string { return f.PluginName }

// Init calls InitFunc.
func (f Func) Init(r Registrar) error { return f.InitFunc(r) }

// Loader initialises plugins against a registry.
type Loader struct {
	registry  Registry
	logger    *log.Logger
	collector *metrics.Collector
	loaded    []string
	names     map[string]bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader's logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// WithCollector records load and registration outcomes in c.
func WithCollector(c *metrics.Collector) Option {
	return func(ld *Loader) { ld.collector = c }
}

// NewLoader creates a Loader registering into reg.
func NewLoader(reg Registry, opts ...Option) *Loader {
	ld := &Loader{
		registry: reg,
		logger:   log.Nop(),
		names:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load initialises plugins in order and stops at the first failure,
// returning it as a *LoadError. Plugins already loaded stay registered.
// The registry has no removal, so a plugin whose Init fails part way
// keeps the registrations it made before the failing call.
func (ld *Loader) Load(plugins ...Plugin) error {
	for _, p := range plugins {
		if err := ld.load(p); err != nil {
			ld.collector.IncPluginFailed()
			ld.logger.Error("plugin failed to load", map[string]any{
				"plugin": p.Name(),
				"error":  err.Error(),
			})
			return err
		}
		ld.collector.IncPluginLoaded()
	}
	return nil
}

func (ld *Loader) load(p Plugin) error {
	name := p.Name()
	if name == "" {
		return &LoadError{Plugin: name, Op: "init", Err: errors.New("plugin name is empty")}
	}
	if ld.names[name] {
		return &LoadError{Plugin: name, Op: "init", Err: ErrPluginAlreadyLoaded}
	}

	r := &boundRegistrar{loader: ld, plugin: name}
	if err := p.Init(r); err != nil {
		return &LoadError{Plugin: name, Op: "init", Err: err}
	}

	ld.names[name] = true
	ld.loaded = append(ld.loaded, name)
	ld.logger.Info("plugin loaded", map[string]any{
		"plugin":   name,
		"commands": r.commands,
	})
	return nil
}

// Loaded returns plugin names in load order.
func (ld *Loader) Loaded() []string {
	return append([]string(nil), ld.loaded...)
}

// boundRegistrar forwards registrations under a fixed plugin name and
// records their outcome.
type boundRegistrar struct {
	loader   *Loader
	plugin   string
	commands []string
}

func (b *boundRegistrar) Register(command string, flags map[string]flagreg.FlagSpec, verify flagreg.VerifyFunc) error {
	ld := b.loader
	err := ld.registry.Register(command, b.plugin, flags, verify)
	if err != nil {
		var conflictErr *flagreg.ConflictError
		if errors.As(err, &conflictErr) {
			ld.collector.RecordRegistrationRejected(
				conflictErr.Count(flagreg.ErrFlagNameConflict),
				conflictErr.Count(flagreg.ErrAliasConflict),
			)
		} else {
			ld.collector.RecordRegistrationRejected(0, 0)
		}
		return err
	}

	ld.collector.IncRegistrationAccepted()
	b.commands = append(b.commands, command)
	ld.logger.Debug("flags registered", map[string]any{
		"plugin":  b.plugin,
		"command": command,
		"flags":   len(flags),
	})
	return nil
}
