// Package config handles flagkit.yaml loading and the ${VAR} expansion
// shared with plugin manifests.
package config

import (
	"os"
	"regexp"
)

// envRef matches ${VAR} and ${VAR:-fallback}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// ExpandEnv substitutes ${VAR} and ${VAR:-fallback} references in input.
//
// A variable that is unset or empty takes its fallback, or the empty string
// when there is none. Missing values surface later, e.g. through a manifest
// rule that requires the flag.
func ExpandEnv(input string) string {
	return envRef.ReplaceAllStringFunc(input, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if v := os.Getenv(m[1]); v != "" {
			return v
		}
		return m[3]
	})
}
