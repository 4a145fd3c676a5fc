// Package types holds identifiers shared across flagkit packages.
package types //nolint:revive // types is a valid package name

// Version is the canonical flagkit version.
const Version = "0.3.0"

// AppName is the binary and metrics name.
const AppName = "flagkit"
