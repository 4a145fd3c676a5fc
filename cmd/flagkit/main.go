// Package main provides the flagkit CLI entrypoint.
//
// Plugins listed in the config file contribute flags to commands through
// the flag registry. All plugins are loaded before the command tree is
// built, so a conflicting plugin stops startup.
//
// Usage:
//
//	flagkit [--config flagkit.yaml] <command> [options]
//
// Exit codes:
//   - 0: success
//   - 1: plugin load or runtime error
//   - 2: usage error, including rejected flag values
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/flagkit/cli/cmd"
	"github.com/pithecene-io/flagkit/cli/config"
	"github.com/pithecene-io/flagkit/flagreg"
	"github.com/pithecene-io/flagkit/log"
	"github.com/pithecene-io/flagkit/metrics"
	"github.com/pithecene-io/flagkit/plugin"
	"github.com/pithecene-io/flagkit/plugin/builtin"
	"github.com/pithecene-io/flagkit/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

// configEnv overrides the default config path.
const configEnv = "FLAGKIT_CONFIG"

func main() {
	app, err := newApp(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// newApp loads the config and every plugin, then builds the command tree.
// Logs go to logw.
func newApp(args []string, logw io.Writer) (*cli.App, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(logw, level, map[string]string{
		"component":     types.AppName,
		"invocation_id": uuid.NewString(),
	})
	collector := metrics.NewCollector(types.AppName)
	reg := flagreg.New()

	plugins, err := configuredPlugins(cfg)
	if err != nil {
		return nil, err
	}
	loader := plugin.NewLoader(reg, plugin.WithLogger(logger), plugin.WithCollector(collector))
	if err := loader.Load(plugins...); err != nil {
		return nil, err
	}
	logger.Debug("registry ready", map[string]any{"registry": reg.String()})

	dispatcher := cmd.NewDispatcher(reg, logger, collector)
	commands, err := dispatcher.Commands(cmd.RunCommandDef())
	if err != nil {
		return nil, err
	}
	commands = append(commands,
		cmd.FlagsCommand(reg, collector),
		cmd.SchemaCommand(),
		cmd.VersionCommand(commit),
	)

	return &cli.App{
		Name:    types.AppName,
		Usage:   "Plugin-extensible command flags",
		Version: fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the flagkit config file",
				EnvVars: []string{configEnv},
				Value:   config.DefaultPath,
			},
		},
		ExitErrHandler: exitErrHandler,
		Commands:       commands,
		After: func(*cli.Context) error {
			_ = logger.Sync()
			return nil
		},
	}, nil
}

// loadConfig loads the config named on the command line or in the
// environment, which must exist, or the default path if present.
func loadConfig(args []string) (*config.Config, error) {
	if path := configPath(args); path != "" {
		return config.Load(path)
	}
	if path := os.Getenv(configEnv); path != "" {
		return config.Load(path)
	}
	return config.LoadOptional(config.DefaultPath)
}

// configPath returns the --config value from the global arguments, which
// end at the first non-flag argument.
func configPath(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" || !strings.HasPrefix(a, "-") {
			return ""
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
		return ""
	}
	return ""
}

// configuredPlugins returns the enabled builtin plugins followed by the
// enabled manifest plugins in config order. Manifests are read
// concurrently; when several fail, any one of the errors is returned.
func configuredPlugins(cfg *config.Config) ([]plugin.Plugin, error) {
	var plugins []plugin.Plugin
	if cfg.BuiltinEnabled(builtin.CwdName) {
		commands := cfg.Builtin.CwdCommands
		if len(commands) == 0 {
			commands = []string{cmd.RunCommandName}
		}
		plugins = append(plugins, builtin.NewCwd(commands...))
	}

	entries := cfg.EnabledPlugins()
	manifests := make([]*plugin.Manifest, len(entries))
	var g errgroup.Group
	for i, entry := range entries {
		g.Go(func() error {
			m, err := plugin.LoadManifest(entry.Manifest)
			if err != nil {
				return &plugin.LoadError{Plugin: entry.Name, Op: "manifest", Err: err}
			}
			if m.Name != entry.Name {
				return &plugin.LoadError{
					Plugin: entry.Name,
					Op:     "manifest",
					Err:    fmt.Errorf("%w: manifest declares name %q", plugin.ErrInvalidManifest, m.Name),
				}
			}
			manifests[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, m := range manifests {
		plugins = append(plugins, m.Plugin())
	}
	return plugins, nil
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	// Check for ExitCoder (from cli.Exit), handles wrapped errors
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N", so skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
