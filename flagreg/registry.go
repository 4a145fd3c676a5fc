// Package flagreg provides the flag conflict registry.
//
// Plugins contribute flags to shared commands with Register. The registry
// rejects any contribution that would make two flags of one command share a
// name or a shorthand alias, so the merged flag set returned by Resolve is
// always unambiguous. After parsing, Verify runs every plugin's verify
// callback against the final values.
//
// Registration is expected to finish during a single-threaded plugin loading
// phase before any command runs. The registry is nevertheless safe for
// concurrent use: Register serialises on a write lock and the queries take
// a read lock.
//
// The registry never logs, prints or exits. Every failure is returned to the
// caller, which decides how to present it.
package flagreg

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds flag contributions per command and plugin.
// Construct one with New and pass it to the plugin loader and dispatcher.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*commandEntry
}

// commandEntry holds all contributions for one command.
type commandEntry struct {
	order    []string // plugin names in registration order
	byPlugin map[string]*contribution
	names    map[string]string    // flag name -> owning plugin
	aliases  map[string]flagOwner // alias -> owning flag
}

type contribution struct {
	plugin string
	flags  map[string]FlagSpec
	verify VerifyFunc
}

type flagOwner struct {
	plugin string
	flag   string
}

// ContributionInfo is a read-only view of one plugin's contribution.
type ContributionInfo struct {
	Plugin string `json:"plugin"`
	// Flags is sorted by name.
	Flags     []FlagSpec `json:"flags"`
	HasVerify bool       `json:"has_verify"`
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{commands: make(map[string]*commandEntry)}
}

// Register stores plugin's flags for command.
//
// flags may be nil. A spec with an empty Name takes its map key. verify is
// optional. The call either succeeds completely or leaves the registry
// unchanged; a rejected call returns a *RegistrationError (invalid argument,
// duplicate plugin) or a *ConflictError listing every name and alias
// collision.
func (r *Registry) Register(command, plugin string, flags map[string]FlagSpec, verify VerifyFunc) error {
	if command == "" {
		return invalidArgument("", plugin, "command name is empty")
	}
	if plugin == "" {
		return invalidArgument(command, "", "plugin name is empty")
	}

	c, err := newContribution(command, plugin, flags, verify)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.commands[command]
	if entry == nil {
		entry = &commandEntry{
			byPlugin: make(map[string]*contribution),
			names:    make(map[string]string),
			aliases:  make(map[string]flagOwner),
		}
	} else if _, exists := entry.byPlugin[plugin]; exists {
		return &RegistrationError{
			Kind:    ErrDuplicatePlugin,
			Command: command,
			Plugin:  plugin,
			Reason:  "plugin already registered flags for this command",
		}
	}

	if conflicts := entry.conflicts(c); len(conflicts) > 0 {
		return &ConflictError{Command: command, Plugin: plugin, Conflicts: conflicts}
	}

	entry.add(c)
	r.commands[command] = entry
	return nil
}

// newContribution validates flags and copies them into a contribution.
func newContribution(command, plugin string, flags map[string]FlagSpec, verify VerifyFunc) (*contribution, error) {
	c := &contribution{
		plugin: plugin,
		flags:  make(map[string]FlagSpec, len(flags)),
		verify: verify,
	}
	for _, key := range sortedKeys(flags) {
		spec := flags[key]
		if key == "" {
			return nil, invalidArgument(command, plugin, "flag with empty name")
		}
		if spec.Name == "" {
			spec.Name = key
		} else if spec.Name != key {
			return nil, invalidArgument(command, plugin, "flag key %q does not match name %q", key, spec.Name)
		}
		if strings.HasPrefix(key, "-") || strings.ContainsAny(key, " \t\n=") {
			return nil, invalidArgument(command, plugin, "flag name %q is not a valid token", key)
		}
		if spec.Alias != "" && (strings.HasPrefix(spec.Alias, "-") || strings.ContainsAny(spec.Alias, " \t\n=")) {
			return nil, invalidArgument(command, plugin, "alias %q of flag %q is not a single token", spec.Alias, key)
		}
		c.flags[key] = spec.Clone()
	}
	return c, nil
}

// conflicts returns every collision between c and the entry, including
// aliases shared inside c itself. e may be nil.
func (e *commandEntry) conflicts(c *contribution) []Conflict {
	var out []Conflict
	names := sortedKeys(c.flags)

	for _, name := range names {
		if e == nil {
			break
		}
		if owner, ok := e.names[name]; ok {
			out = append(out, Conflict{
				Kind:        ErrFlagNameConflict,
				Value:       name,
				Flag:        name,
				OwnerPlugin: owner,
				OwnerFlag:   name,
			})
		}
		if owner, ok := e.aliases[name]; ok {
			out = append(out, Conflict{
				Kind:        ErrAliasConflict,
				Value:       name,
				Flag:        name,
				OwnerPlugin: owner.plugin,
				OwnerFlag:   owner.flag,
			})
		}
	}

	seen := make(map[string]string, len(names)) // alias -> flag within c
	for _, name := range names {
		alias := c.flags[name].Alias
		if alias == "" {
			continue
		}
		if e != nil {
			if owner, ok := e.aliases[alias]; ok {
				out = append(out, aliasConflict(alias, name, owner.plugin, owner.flag))
			}
			if owner, ok := e.names[alias]; ok {
				out = append(out, aliasConflict(alias, name, owner, alias))
			}
		}
		if prev, ok := seen[alias]; ok {
			out = append(out, aliasConflict(alias, name, c.plugin, prev))
		} else {
			seen[alias] = name
		}
		if _, ok := c.flags[alias]; ok {
			out = append(out, aliasConflict(alias, name, c.plugin, alias))
		}
	}
	return out
}

func aliasConflict(alias, flag, ownerPlugin, ownerFlag string) Conflict {
	return Conflict{
		Kind:        ErrAliasConflict,
		Value:       alias,
		Flag:        flag,
		OwnerPlugin: ownerPlugin,
		OwnerFlag:   ownerFlag,
	}
}

func (e *commandEntry) add(c *contribution) {
	e.order = append(e.order, c.plugin)
	e.byPlugin[c.plugin] = c
	for name, spec := range c.flags {
		e.names[name] = c.plugin
		if spec.Alias != "" {
			e.aliases[spec.Alias] = flagOwner{plugin: c.plugin, flag: name}
		}
	}
}

// Resolve returns the merged flags of every contribution for command.
// An unknown command yields an empty map. The result is a copy.
func (r *Registry) Resolve(command string) map[string]FlagSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]FlagSpec)
	entry := r.commands[command]
	if entry == nil {
		return out
	}
	for _, c := range entry.byPlugin {
		for name, spec := range c.flags {
			out[name] = spec.Clone()
		}
	}
	return out
}

// Verify runs every verify callback registered for command, in registration
// order, against values. The first callback error stops the pass and is
// returned unchanged.
//
// Callbacks run outside the registry lock and may query the registry.
func (r *Registry) Verify(command string, values Values) error {
	r.mu.RLock()
	var callbacks []VerifyFunc
	if entry := r.commands[command]; entry != nil {
		for _, plugin := range entry.order {
			if fn := entry.byPlugin[plugin].verify; fn != nil {
				callbacks = append(callbacks, fn)
			}
		}
	}
	r.mu.RUnlock()

	for _, fn := range callbacks {
		if err := fn(values); err != nil {
			return err
		}
	}
	return nil
}

// Commands returns the sorted names of commands with at least one contribution.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.commands)
}

// Contributions returns the contributions for command in registration order.
func (r *Registry) Contributions(command string) []ContributionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.commands[command]
	if entry == nil {
		return nil
	}
	out := make([]ContributionInfo, 0, len(entry.order))
	for _, plugin := range entry.order {
		c := entry.byPlugin[plugin]
		info := ContributionInfo{
			Plugin:    plugin,
			Flags:     make([]FlagSpec, 0, len(c.flags)),
			HasVerify: c.verify != nil,
		}
		for _, name := range sortedKeys(c.flags) {
			info.Flags = append(info.Flags, c.flags[name].Clone())
		}
		out = append(out, info)
	}
	return out
}

// Owner returns the plugin that contributed flag to command.
func (r *Registry) Owner(command, flag string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.commands[command]
	if entry == nil {
		return "", false
	}
	plugin, ok := entry.names[flag]
	return plugin, ok
}

// String summarises the registry for debugging.
func (r *Registry) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for i, command := range sortedKeys(r.commands) {
		if i > 0 {
			b.WriteString("; ")
		}
		entry := r.commands[command]
		fmt.Fprintf(&b, "%s: %d plugin(s), %d flag(s)", command, len(entry.order), len(entry.names))
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
