package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/flagkit/cli/render"
	"github.com/pithecene-io/flagkit/flagreg"
	"github.com/pithecene-io/flagkit/metrics"
)

// Inspector is the read-only registry view used by the flags command.
// *flagreg.Registry satisfies it.
type Inspector interface {
	Commands() []string
	Contributions(command string) []flagreg.ContributionInfo
}

// FlagRow is one contributed flag in the flags command output.
type FlagRow struct {
	Command string   `json:"command" yaml:"command"`
	Flag    string   `json:"flag" yaml:"flag"`
	Alias   string   `json:"alias" yaml:"alias"`
	Type    string   `json:"type" yaml:"type"`
	Default string   `json:"default" yaml:"default"`
	Env     []string `json:"env" yaml:"env"`
	Plugin  string   `json:"plugin" yaml:"plugin"`
	Verify  bool     `json:"verify" yaml:"verify"`
	Usage   string   `json:"usage" yaml:"usage"`
}

// FlagsCommand returns the flags command, which lists contributed flags
// per command and plugin, or the load/verify counters with --stats.
func FlagsCommand(reg Inspector, collector *metrics.Collector) *cli.Command {
	return &cli.Command{
		Name:      "flags",
		Usage:     "List plugin-contributed flags",
		ArgsUsage: "[command]",
		Flags: append(ReadOnlyFlags(), &cli.BoolFlag{
			Name:  "stats",
			Usage: "Show plugin load and verification counters instead",
		}),
		Action: func(c *cli.Context) error {
			r, err := render.NewRenderer(c)
			if err != nil {
				return cli.Exit(err.Error(), exitUsageError)
			}
			if c.Bool("stats") {
				return r.Render(collector.Snapshot())
			}
			if c.NArg() > 1 {
				return cli.Exit("flags accepts at most one command", exitUsageError)
			}
			return r.Render(FlagRows(reg, c.Args().First()))
		},
	}
}

// FlagRows lists contributed flags in command, registration and name
// order. An empty command selects every command.
func FlagRows(reg Inspector, command string) []FlagRow {
	commands := reg.Commands()
	if command != "" {
		commands = []string{command}
	}

	rows := []FlagRow{}
	for _, cmdName := range commands {
		for _, info := range reg.Contributions(cmdName) {
			for _, spec := range info.Flags {
				meta, _ := spec.Metadata.Normalize()
				row := FlagRow{
					Command: cmdName,
					Flag:    spec.Name,
					Alias:   spec.Alias,
					Type:    string(meta.Type),
					Env:     meta.EnvVars,
					Plugin:  info.Plugin,
					Verify:  info.HasVerify,
					Usage:   meta.Usage,
				}
				if meta.Default != nil {
					row.Default = fmt.Sprint(meta.Default)
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}
