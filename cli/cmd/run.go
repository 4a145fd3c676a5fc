package cmd

import (
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/flagkit/cli/render"
	"github.com/pithecene-io/flagkit/flagreg"
)

// RunCommandName is the command plugins extend by default.
const RunCommandName = "run"

// ValueRow is one resolved flag value in the run command output.
type ValueRow struct {
	Flag  string `json:"flag" yaml:"flag"`
	Value any    `json:"value" yaml:"value"`
}

// RunCommandDef returns the run command definition. It reports the final,
// verified value of every contributed flag along with its positional args.
func RunCommandDef() CommandDef {
	return CommandDef{
		Name:      RunCommandName,
		Usage:     "Resolve and verify plugin flags, then print their final values",
		ArgsUsage: "[args...]",
		Flags:     ReadOnlyFlags(),
		Action: func(c *cli.Context, values flagreg.Values) error {
			r, err := render.NewRenderer(c)
			if err != nil {
				return cli.Exit(err.Error(), exitUsageError)
			}
			return r.Render(ValueRows(values))
		},
	}
}

// ValueRows returns values sorted by flag name.
func ValueRows(values flagreg.Values) []ValueRow {
	rows := make([]ValueRow, 0, len(values))
	for name, v := range values {
		rows = append(rows, ValueRow{Flag: name, Value: v})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Flag < rows[j].Flag })
	return rows
}
