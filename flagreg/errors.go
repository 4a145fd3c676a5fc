package flagreg

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for registry failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrInvalidArgument indicates a malformed Register call.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicatePlugin indicates a plugin registered twice for one command.
	ErrDuplicatePlugin = errors.New("duplicate plugin")

	// ErrFlagNameConflict indicates two plugins define the same flag name.
	ErrFlagNameConflict = errors.New("flag name conflict")

	// ErrAliasConflict indicates two flags share a shorthand alias.
	ErrAliasConflict = errors.New("alias conflict")

	// ErrValidation indicates a verify callback rejected parsed flag values.
	ErrValidation = errors.New("validation failed")
)

// RegistrationError reports a Register call rejected before conflict checking.
type RegistrationError struct {
	// Kind is ErrInvalidArgument or ErrDuplicatePlugin.
	Kind    error
	Command string
	Plugin  string
	Reason  string
}

func (e *RegistrationError) Error() string {
	var b strings.Builder
	b.WriteString("register")
	if e.Command != "" {
		fmt.Fprintf(&b, " command %q", e.Command)
	}
	if e.Plugin != "" {
		fmt.Fprintf(&b, " plugin %q", e.Plugin)
	}
	fmt.Fprintf(&b, ": %v", e.Kind)
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

// Is reports whether the error matches the target sentinel.
func (e *RegistrationError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func invalidArgument(command, plugin, format string, args ...any) *RegistrationError {
	return &RegistrationError{
		Kind:    ErrInvalidArgument,
		Command: command,
		Plugin:  plugin,
		Reason:  fmt.Sprintf(format, args...),
	}
}

// Conflict is one colliding pair found while registering a contribution.
type Conflict struct {
	// Kind is ErrFlagNameConflict or ErrAliasConflict.
	Kind error
	// Value is the colliding flag name or alias.
	Value string
	// Flag is the requesting flag.
	Flag string
	// OwnerPlugin and OwnerFlag identify the flag already holding Value.
	// OwnerPlugin equals the requesting plugin for same-call collisions.
	OwnerPlugin string
	OwnerFlag   string
}

func (c Conflict) String() string {
	if errors.Is(c.Kind, ErrFlagNameConflict) {
		return fmt.Sprintf("flag %q is already defined by plugin %q", c.Value, c.OwnerPlugin)
	}
	return fmt.Sprintf("alias %q of flag %q is already used by flag %q of plugin %q",
		c.Value, c.Flag, c.OwnerFlag, c.OwnerPlugin)
}

// ConflictError aggregates every name and alias collision of one rejected
// Register call.
type ConflictError struct {
	Command   string
	Plugin    string
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "register command %q plugin %q: %d flag conflict(s)", e.Command, e.Plugin, len(e.Conflicts))
	for _, c := range e.Conflicts {
		b.WriteString("\n  - ")
		b.WriteString(c.String())
	}
	return b.String()
}

// Is reports whether any collected conflict matches the target sentinel.
func (e *ConflictError) Is(target error) bool {
	for _, c := range e.Conflicts {
		if errors.Is(c.Kind, target) {
			return true
		}
	}
	return false
}

// Count returns the number of conflicts of the given kind.
func (e *ConflictError) Count(kind error) int {
	n := 0
	for _, c := range e.Conflicts {
		if errors.Is(c.Kind, kind) {
			n++
		}
	}
	return n
}

// ValidationError is returned by verify callbacks when final flag values
// are semantically invalid.
type ValidationError struct {
	Plugin string
	// Flag is the offending flag, if a single one is responsible.
	Flag   string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Plugin != "" && e.Flag != "":
		return fmt.Sprintf("%s: --%s: %s", e.Plugin, e.Flag, e.Reason)
	case e.Flag != "":
		return fmt.Sprintf("--%s: %s", e.Flag, e.Reason)
	case e.Plugin != "":
		return fmt.Sprintf("%s: %s", e.Plugin, e.Reason)
	default:
		return e.Reason
	}
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a validation error for plugin's flag.
func NewValidationError(plugin, flag, format string, args ...any) *ValidationError {
	return &ValidationError{
		Plugin: plugin,
		Flag:   flag,
		Reason: fmt.Sprintf(format, args...),
	}
}
