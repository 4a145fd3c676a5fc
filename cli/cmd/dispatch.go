package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/flagkit/flagreg"
	"github.com/pithecene-io/flagkit/log"
	"github.com/pithecene-io/flagkit/metrics"
)

// Resolver is the part of the flag registry the dispatcher needs.
// *flagreg.Registry satisfies it.
type Resolver interface {
	Resolve(command string) map[string]flagreg.FlagSpec
	Verify(command string, values flagreg.Values) error
}

// ActionFunc runs a dispatched command. values holds the final value of
// every plugin-contributed flag.
type ActionFunc func(c *cli.Context, values flagreg.Values) error

// CommandDef describes a command before plugin flags are merged in.
type CommandDef struct {
	Name        string
	Usage       string
	Description string
	ArgsUsage   string
	// Flags are the command's own flags. Plugins may not redefine them,
	// nor the help flag unless HideHelp is set.
	Flags    []cli.Flag
	HideHelp bool
	Action   ActionFunc
}

// Dispatcher builds urfave/cli commands from the registry.
// It must be used after plugin loading has finished.
type Dispatcher struct {
	registry  Resolver
	logger    *log.Logger
	collector *metrics.Collector
}

// NewDispatcher creates a Dispatcher. logger and collector may be nil.
func NewDispatcher(reg Resolver, logger *log.Logger, collector *metrics.Collector) *Dispatcher {
	if logger == nil {
		logger = log.Nop()
	}
	return &Dispatcher{registry: reg, logger: logger, collector: collector}
}

// Command merges def's own flags with the flags contributed for def.Name
// and wires post-parse verification into the command's Before hook.
//
// A validation failure from a plugin becomes a usage exit (code 2); any
// other verify error is returned as is.
func (d *Dispatcher) Command(def CommandDef) (*cli.Command, error) {
	specs := d.registry.Resolve(def.Name)

	reserved := append([]cli.Flag(nil), def.Flags...)
	if !def.HideHelp && cli.HelpFlag != nil {
		reserved = append(reserved, cli.HelpFlag)
	}
	ownNames := make(map[string]bool)
	ownAliases := make(map[string]bool)
	for _, f := range reserved {
		for i, n := range f.Names() {
			if i == 0 {
				ownNames[n] = true
			} else {
				ownAliases[n] = true
			}
		}
	}

	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	flags := append([]cli.Flag(nil), def.Flags...)
	for _, name := range names {
		spec := specs[name]
		switch {
		case ownNames[name]:
			return nil, fmt.Errorf("command %q: %w: contributed flag %q collides with a built-in flag", def.Name, flagreg.ErrFlagNameConflict, name)
		case ownAliases[name]:
			return nil, fmt.Errorf("command %q: %w: contributed flag %q collides with a built-in alias", def.Name, flagreg.ErrAliasConflict, name)
		case spec.Alias != "" && (ownNames[spec.Alias] || ownAliases[spec.Alias]):
			return nil, fmt.Errorf("command %q: %w: alias %q of contributed flag %q collides with a built-in flag", def.Name, flagreg.ErrAliasConflict, spec.Alias, name)
		}
		f, err := ToCLIFlag(spec)
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", def.Name, err)
		}
		flags = append(flags, f)
	}

	command := def.Name
	return &cli.Command{
		Name:        def.Name,
		Usage:       def.Usage,
		Description: def.Description,
		ArgsUsage:   def.ArgsUsage,
		HideHelp:    def.HideHelp,
		Flags:       flags,
		Before: func(c *cli.Context) error {
			return d.verify(c, command, specs)
		},
		Action: func(c *cli.Context) error {
			if def.Action == nil {
				return nil
			}
			return def.Action(c, valuesFromContext(c, specs))
		},
	}, nil
}

// Commands builds every def, stopping at the first error.
func (d *Dispatcher) Commands(defs ...CommandDef) ([]*cli.Command, error) {
	out := make([]*cli.Command, 0, len(defs))
	for _, def := range defs {
		c, err := d.Command(def)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (d *Dispatcher) verify(c *cli.Context, command string, specs map[string]flagreg.FlagSpec) error {
	values := valuesFromContext(c, specs)
	err := d.registry.Verify(command, values)
	if err == nil {
		d.collector.IncVerifyPassed()
		return nil
	}

	d.collector.IncVerifyFailed(command)
	d.logger.Debug("flag verification failed", map[string]any{
		"command": command,
		"error":   err.Error(),
	})
	if errors.Is(err, flagreg.ErrValidation) {
		return cli.Exit(err.Error(), exitUsageError)
	}
	return err
}
