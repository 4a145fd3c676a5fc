package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/flagkit/flagreg"
)

// ToCLIFlag converts a contributed flag into a urfave/cli flag.
// The metadata default must match the flag type after normalisation.
func ToCLIFlag(spec flagreg.FlagSpec) (cli.Flag, error) {
	meta, err := spec.Metadata.Normalize()
	if err != nil {
		return nil, fmt.Errorf("flag %q: %w", spec.Name, err)
	}

	var aliases []string
	if spec.Alias != "" {
		aliases = []string{spec.Alias}
	}

	switch meta.Type {
	case flagreg.FlagTypeString:
		f := &cli.StringFlag{
			Name: spec.Name, Aliases: aliases, Usage: meta.Usage, EnvVars: meta.EnvVars,
			Required: meta.Required, Hidden: meta.Hidden, Category: meta.Category,
		}
		if def, ok := meta.Default.(string); ok {
			f.Value = def
		}
		return f, nil
	case flagreg.FlagTypeBool:
		f := &cli.BoolFlag{
			Name: spec.Name, Aliases: aliases, Usage: meta.Usage, EnvVars: meta.EnvVars,
			Required: meta.Required, Hidden: meta.Hidden, Category: meta.Category,
		}
		if def, ok := meta.Default.(bool); ok {
			f.Value = def
		}
		return f, nil
	case flagreg.FlagTypeInt:
		f := &cli.IntFlag{
			Name: spec.Name, Aliases: aliases, Usage: meta.Usage, EnvVars: meta.EnvVars,
			Required: meta.Required, Hidden: meta.Hidden, Category: meta.Category,
		}
		if def, ok := meta.Default.(int); ok {
			f.Value = def
		}
		return f, nil
	case flagreg.FlagTypeInt64:
		f := &cli.Int64Flag{
			Name: spec.Name, Aliases: aliases, Usage: meta.Usage, EnvVars: meta.EnvVars,
			Required: meta.Required, Hidden: meta.Hidden, Category: meta.Category,
		}
		if def, ok := meta.Default.(int64); ok {
			f.Value = def
		}
		return f, nil
	case flagreg.FlagTypeFloat64:
		f := &cli.Float64Flag{
			Name: spec.Name, Aliases: aliases, Usage: meta.Usage, EnvVars: meta.EnvVars,
			Required: meta.Required, Hidden: meta.Hidden, Category: meta.Category,
		}
		if def, ok := meta.Default.(float64); ok {
			f.Value = def
		}
		return f, nil
	case flagreg.FlagTypeDuration:
		f := &cli.DurationFlag{
			Name: spec.Name, Aliases: aliases, Usage: meta.Usage, EnvVars: meta.EnvVars,
			Required: meta.Required, Hidden: meta.Hidden, Category: meta.Category,
		}
		if def, ok := meta.Default.(time.Duration); ok {
			f.Value = def
		}
		return f, nil
	case flagreg.FlagTypeStringSlice:
		f := &cli.StringSliceFlag{
			Name: spec.Name, Aliases: aliases, Usage: meta.Usage, EnvVars: meta.EnvVars,
			Required: meta.Required, Hidden: meta.Hidden, Category: meta.Category,
		}
		if def, ok := meta.Default.([]string); ok {
			f.Value = cli.NewStringSlice(def...)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("flag %q: unsupported type %q", spec.Name, meta.Type)
	}
}

// valuesFromContext reads the final value of every contributed flag,
// after env-var and default resolution by the parser.
func valuesFromContext(c *cli.Context, specs map[string]flagreg.FlagSpec) flagreg.Values {
	values := make(flagreg.Values, len(specs))
	for name, spec := range specs {
		t, err := flagreg.ParseFlagType(string(spec.Metadata.Type))
		if err != nil {
			continue
		}
		switch t {
		case flagreg.FlagTypeString:
			values[name] = c.String(name)
		case flagreg.FlagTypeBool:
			values[name] = c.Bool(name)
		case flagreg.FlagTypeInt:
			values[name] = c.Int(name)
		case flagreg.FlagTypeInt64:
			values[name] = c.Int64(name)
		case flagreg.FlagTypeFloat64:
			values[name] = c.Float64(name)
		case flagreg.FlagTypeDuration:
			values[name] = c.Duration(name)
		case flagreg.FlagTypeStringSlice:
			values[name] = c.StringSlice(name)
		}
	}
	return values
}
