package plugin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/flagkit/cli/config"
	"github.com/pithecene-io/flagkit/flagreg"
)

// Manifest is a declarative plugin read from YAML or TOML.
type Manifest struct {
	Name        string                     `yaml:"name" toml:"name"`
	Description string                     `yaml:"description,omitempty" toml:"description,omitempty"`
	Commands    map[string]CommandManifest `yaml:"commands,omitempty" toml:"commands,omitempty"`
}

// CommandManifest is the flags and rules a manifest contributes to one command.
type CommandManifest struct {
	Flags map[string]FlagManifest `yaml:"flags,omitempty" toml:"flags,omitempty"`
	Rules Rules                   `yaml:"rules,omitempty" toml:"rules,omitempty"`
}

// FlagManifest is the file shape of one flag.
type FlagManifest struct {
	Alias    string   `yaml:"alias,omitempty" toml:"alias,omitempty"`
	Type     string   `yaml:"type,omitempty" toml:"type,omitempty" jsonschema:"enum=string,enum=bool,enum=int,enum=int64,enum=float64,enum=duration,enum=string-slice"`
	Usage    string   `yaml:"usage,omitempty" toml:"usage,omitempty"`
	Default  any      `yaml:"default,omitempty" toml:"default,omitempty"`
	Env      []string `yaml:"env,omitempty" toml:"env,omitempty"`
	Required bool     `yaml:"required,omitempty" toml:"required,omitempty"`
	Hidden   bool     `yaml:"hidden,omitempty" toml:"hidden,omitempty"`
	Category string   `yaml:"category,omitempty" toml:"category,omitempty"`
}

// Rules are checks run against final flag values. They may name flags
// contributed by other plugins for the same command.
type Rules struct {
	// Required flags must hold a non-zero value.
	Required []string `yaml:"required,omitempty" toml:"required,omitempty"`
	// Exclusive groups allow at most one set flag each.
	Exclusive [][]string `yaml:"exclusive,omitempty" toml:"exclusive,omitempty"`
	// Choices restricts string flags to a fixed set.
	Choices map[string][]string `yaml:"choices,omitempty" toml:"choices,omitempty"`
	// Exists flags hold paths that must exist when set.
	Exists []string `yaml:"exists,omitempty" toml:"exists,omitempty"`
}

func (r Rules) empty() bool {
	return len(r.Required) == 0 && len(r.Exclusive) == 0 && len(r.Choices) == 0 && len(r.Exists) == 0
}

// LoadManifest reads a manifest file, expanding ${VAR} references first.
// Files ending in .toml are decoded as TOML, anything else as YAML.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest %q: %w", path, err)
	}

	parse := ParseManifest
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		parse = ParseManifestTOML
	}
	m, err := parse([]byte(config.ExpandEnv(string(data))))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes and validates manifest YAML. Unknown keys and
// unknown flag types are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidManifest)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseManifestTOML is ParseManifest for TOML documents.
func ParseManifestTOML(data []byte) (*Manifest, error) {
	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Schema returns the JSON Schema of the manifest format. Property names
// follow the YAML keys.
func Schema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		FieldNameTag:              "yaml",
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&Manifest{})
	schema.Title = "flagkit plugin manifest"
	schema.Description = "Flags and verification rules a plugin contributes to commands"
	return schema
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidManifest)
	}
	for _, command := range sortedNames(m.Commands) {
		cm := m.Commands[command]
		if command == "" {
			return fmt.Errorf("%w: empty command name", ErrInvalidManifest)
		}
		for _, name := range sortedNames(cm.Flags) {
			if _, err := cm.Flags[name].metadata(); err != nil {
				return fmt.Errorf("%w: command %q flag %q: %v", ErrInvalidManifest, command, name, err)
			}
		}
		for i, group := range cm.Rules.Exclusive {
			if len(group) < 2 {
				return fmt.Errorf("%w: command %q exclusive[%d] needs at least two flags", ErrInvalidManifest, command, i)
			}
		}
		for _, flag := range sortedNames(cm.Rules.Choices) {
			if len(cm.Rules.Choices[flag]) == 0 {
				return fmt.Errorf("%w: command %q choices for %q are empty", ErrInvalidManifest, command, flag)
			}
		}
		for _, flag := range cm.Rules.Exists {
			fm, ok := cm.Flags[flag]
			if !ok {
				continue // contributed by another plugin
			}
			switch t, _ := flagreg.ParseFlagType(fm.Type); t {
			case flagreg.FlagTypeString, flagreg.FlagTypeStringSlice:
			default:
				return fmt.Errorf("%w: command %q exists rule on %s flag %q", ErrInvalidManifest, command, t, flag)
			}
		}
	}
	return nil
}

func (f FlagManifest) metadata() (flagreg.Metadata, error) {
	return flagreg.Metadata{
		Type:     flagreg.FlagType(f.Type),
		Usage:    f.Usage,
		Default:  f.Default,
		EnvVars:  f.Env,
		Required: f.Required,
		Hidden:   f.Hidden,
		Category: f.Category,
	}.Normalize()
}

// Plugin returns a Plugin that registers the manifest's flags and rules.
func (m *Manifest) Plugin() Plugin {
	return &manifestPlugin{m: m}
}

type manifestPlugin struct {
	m *Manifest
}

func (p *manifestPlugin) Name() string { return p.m.Name }

func (p *manifestPlugin) Init(r Registrar) error {
	for _, command := range sortedNames(p.m.Commands) {
		cm := p.m.Commands[command]

		flags := make(map[string]flagreg.FlagSpec, len(cm.Flags))
		for name, fm := range cm.Flags {
			meta, err := fm.metadata()
			if err != nil {
				return fmt.Errorf("command %q flag %q: %w", command, name, err)
			}
			flags[name] = flagreg.FlagSpec{Name: name, Alias: fm.Alias, Metadata: meta}
		}

		var verify flagreg.VerifyFunc
		if !cm.Rules.empty() {
			verify = cm.Rules.verifier(p.m.Name)
		}
		if err := r.Register(command, flags, verify); err != nil {
			return err
		}
	}
	return nil
}

// verifier compiles the rules into a verify callback. Rules are checked in
// the order required, exclusive, choices, exists.
func (r Rules) verifier(plugin string) flagreg.VerifyFunc {
	return func(values flagreg.Values) error {
		for _, name := range r.Required {
			if !values.IsSet(name) {
				return flagreg.NewValidationError(plugin, name, "is required")
			}
		}

		for _, group := range r.Exclusive {
			var set []string
			for _, name := range group {
				if values.IsSet(name) {
					set = append(set, "--"+name)
				}
			}
			if len(set) > 1 {
				return flagreg.NewValidationError(plugin, "", "%s cannot be used together", strings.Join(set, " and "))
			}
		}

		for _, name := range sortedNames(r.Choices) {
			if !values.IsSet(name) {
				continue
			}
			for _, v := range valueStrings(values[name]) {
				if !slices.Contains(r.Choices[name], v) {
					return flagreg.NewValidationError(plugin, name, "%q is not one of %s", v, strings.Join(r.Choices[name], ", "))
				}
			}
		}

		for _, name := range r.Exists {
			if !values.IsSet(name) {
				continue
			}
			var paths []string
			switch v := values[name].(type) {
			case string:
				paths = []string{v}
			case []string:
				paths = v
			default:
				return flagreg.NewValidationError(plugin, name, "holds %T, not a path", v)
			}
			for _, path := range paths {
				if _, err := os.Stat(path); err != nil {
					return flagreg.NewValidationError(plugin, name, "path %q does not exist", path)
				}
			}
		}
		return nil
	}
}

// valueStrings renders a flag value for comparison with choices. Slice
// values yield one entry per element.
func valueStrings(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	default:
		return []string{fmt.Sprint(val)}
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
