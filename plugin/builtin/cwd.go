// Package builtin holds plugins compiled into the flagkit binary.
package builtin

import (
	"os"

	"github.com/pithecene-io/flagkit/flagreg"
	"github.com/pithecene-io/flagkit/plugin"
)

// CwdName is the builtin working-directory plugin's name.
const CwdName = "cwd"

// CwdFlag is the name of the flag contributed by the cwd plugin.
const CwdFlag = "cwd"

// Cwd contributes --cwd to each of its commands and verifies that the
// final value is an existing directory.
type Cwd struct {
	Commands []string
}

// NewCwd returns the cwd plugin for commands.
func NewCwd(commands ...string) *Cwd {
	return &Cwd{Commands: commands}
}

// Name returns CwdName.
func (p *Cwd) Name() string { return CwdName }

// Init registers --cwd for every configured command.
func (p *Cwd) Init(r plugin.Registrar) error {
	for _, command := range p.Commands {
		flags := map[string]flagreg.FlagSpec{
			CwdFlag: {
				Name:  CwdFlag,
				Alias: "C",
				Metadata: flagreg.Metadata{
					Type:    flagreg.FlagTypeString,
					Usage:   "Working directory for the command",
					Default: ".",
					EnvVars: []string{"FLAGKIT_CWD"},
				},
			},
		}
		if err := r.Register(command, flags, verifyCwd); err != nil {
			return err
		}
	}
	return nil
}

func verifyCwd(values flagreg.Values) error {
	dir := values.String(CwdFlag)
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return flagreg.NewValidationError(CwdName, CwdFlag, "directory %q does not exist", dir)
	}
	if !info.IsDir() {
		return flagreg.NewValidationError(CwdName, CwdFlag, "%q is not a directory", dir)
	}
	return nil
}
