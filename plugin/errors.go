package plugin

import (
	"errors"
	"fmt"
)

// Sentinel errors for plugin loading.
var (
	// ErrPluginAlreadyLoaded indicates two plugins with the same name.
	ErrPluginAlreadyLoaded = errors.New("plugin already loaded")

	// ErrInvalidManifest indicates a manifest that cannot become a plugin.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)

// LoadError reports a plugin that failed during loading.
// The underlying error stays in the chain, so registry sentinels such as
// flagreg.ErrFlagNameConflict still match with errors.Is.
type LoadError struct {
	Plugin string
	// Op is the failing step, e.g. "init" or "manifest".
	Op  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("plugin %q: %s: %v", e.Plugin, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *LoadError) Unwrap() error {
	return e.Err
}
