package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/flagkit/plugin"
)

// SchemaCommand returns the schema command, which prints the JSON Schema of
// the plugin manifest format for editors and CI linting.
func SchemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON Schema for plugin manifests",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "compact",
				Aliases: []string{"c"},
				Usage:   "Compact JSON output (no indentation)",
			},
		},
		Action: func(c *cli.Context) error {
			enc := json.NewEncoder(c.App.Writer)
			if !c.Bool("compact") {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(plugin.Schema()); err != nil {
				return cli.Exit(fmt.Sprintf("failed to encode schema: %v", err), exitRuntimeError)
			}
			return nil
		},
	}
}
