package flagreg

import (
	"fmt"
	"slices"
	"strconv"
	"time"
)

// FlagType names the host parser type of a flag.
type FlagType string

// Flag types understood by the cli dispatcher.
const (
	FlagTypeString      FlagType = "string"
	FlagTypeBool        FlagType = "bool"
	FlagTypeInt         FlagType = "int"
	FlagTypeInt64       FlagType = "int64"
	FlagTypeFloat64     FlagType = "float64"
	FlagTypeDuration    FlagType = "duration"
	FlagTypeStringSlice FlagType = "string-slice"
)

// FlagSpec describes one flag contributed by a plugin.
// The registry only looks at Name and Alias; Metadata is carried through
// untouched for the host framework.
type FlagSpec struct {
	Name string `json:"name" yaml:"name"`
	// Alias is an optional single-token shorthand, e.g. "v".
	Alias    string   `json:"alias,omitempty" yaml:"alias,omitempty"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

// Metadata is the host-framework payload of a flag.
type Metadata struct {
	// Type defaults to FlagTypeString when empty.
	Type     FlagType `json:"type,omitempty" yaml:"type,omitempty"`
	Usage    string   `json:"usage,omitempty" yaml:"usage,omitempty"`
	Default  any      `json:"default,omitempty" yaml:"default,omitempty"`
	EnvVars  []string `json:"env,omitempty" yaml:"env,omitempty"`
	Required bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Hidden   bool     `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Category string   `json:"category,omitempty" yaml:"category,omitempty"`
}

// Clone returns a copy of s sharing no mutable state with it.
func (s FlagSpec) Clone() FlagSpec {
	out := s
	out.Metadata.EnvVars = slices.Clone(s.Metadata.EnvVars)
	out.Metadata.Default = cloneValue(s.Metadata.Default)
	return out
}

// cloneValue deep-copies the slice and map shapes produced by Go literals
// and by YAML or JSON decoding. Other values are returned as is.
func cloneValue(v any) any {
	switch val := v.(type) {
	case []string:
		return slices.Clone(val)
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		if val == nil {
			return val
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case map[string]string:
		if val == nil {
			return val
		}
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out
	default:
		return v
	}
}

// VerifyFunc checks final parsed flag values for a command. It should
// return a *ValidationError when the values are rejected.
type VerifyFunc func(values Values) error

// Values maps flag names to their final parsed values.
type Values map[string]any

// String returns the string value of name, or "" if unset or not a string.
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// Bool returns the bool value of name.
func (v Values) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

// Int returns the int value of name.
func (v Values) Int(name string) int {
	switch n := v[name].(type) {
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

// Duration returns the duration value of name.
func (v Values) Duration(name string) time.Duration {
	d, _ := v[name].(time.Duration)
	return d
}

// StringSlice returns the string-slice value of name.
func (v Values) StringSlice(name string) []string {
	s, _ := v[name].([]string)
	return s
}

// IsSet reports whether name holds a non-zero value.
func (v Values) IsSet(name string) bool {
	switch val := v[name].(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case time.Duration:
		return val != 0
	case []string:
		return len(val) > 0
	default:
		return true
	}
}

// ParseFlagType validates a type name. An empty name is FlagTypeString.
func ParseFlagType(s string) (FlagType, error) {
	switch t := FlagType(s); t {
	case "":
		return FlagTypeString, nil
	case FlagTypeString, FlagTypeBool, FlagTypeInt, FlagTypeInt64,
		FlagTypeFloat64, FlagTypeDuration, FlagTypeStringSlice:
		return t, nil
	default:
		return "", fmt.Errorf("unknown flag type %q", s)
	}
}

// Normalize returns m with Type defaulted and Default converted to the Go
// type matching Type: string, bool, int, int64, float64, time.Duration or
// []string. Defaults decoded from YAML or JSON (numbers, duration strings,
// []any) are accepted.
func (m Metadata) Normalize() (Metadata, error) {
	t, err := ParseFlagType(string(m.Type))
	if err != nil {
		return m, err
	}
	m.Type = t
	if m.Default == nil {
		return m, nil
	}

	def, err := coerce(t, m.Default)
	if err != nil {
		return m, fmt.Errorf("default for %s flag: %w", t, err)
	}
	m.Default = def
	return m, nil
}

func coerce(t FlagType, v any) (any, error) {
	switch t {
	case FlagTypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case FlagTypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return strconv.ParseBool(b)
		}
	case FlagTypeInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n == float64(int(n)) {
				return int(n), nil
			}
		case string:
			return strconv.Atoi(n)
		}
	case FlagTypeInt64:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == float64(int64(n)) {
				return int64(n), nil
			}
		case string:
			return strconv.ParseInt(n, 10, 64)
		}
	case FlagTypeFloat64:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case string:
			return strconv.ParseFloat(n, 64)
		}
	case FlagTypeDuration:
		switch d := v.(type) {
		case time.Duration:
			return d, nil
		case string:
			return time.ParseDuration(d)
		}
	case FlagTypeStringSlice:
		switch s := v.(type) {
		case []string:
			return slices.Clone(s), nil
		case string:
			return []string{s}, nil
		case []any:
			out := make([]string, 0, len(s))
			for _, item := range s {
				out = append(out, fmt.Sprint(item))
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("cannot use %v (%T)", v, v)
}
