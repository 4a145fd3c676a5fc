// Package metrics counts plugin loading, flag registration and verification
// outcomes for one process.
//
// The Collector is a leaf package with no internal dependencies. Conflict
// counts are passed in by the caller rather than derived from error types,
// so this package does not import flagreg.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Plugin lifecycle
	PluginsLoaded int64 `json:"plugins_loaded"`
	PluginsFailed int64 `json:"plugins_failed"`

	// Registration
	RegistrationsAccepted int64 `json:"registrations_accepted"`
	RegistrationsRejected int64 `json:"registrations_rejected"`
	NameConflicts         int64 `json:"name_conflicts"`
	AliasConflicts        int64 `json:"alias_conflicts"`

	// Verification
	VerifyPassed int64 `json:"verify_passed"`
	VerifyFailed int64 `json:"verify_failed"`

	// FailedByCommand counts verification failures per command.
	FailedByCommand map[string]int64 `json:"failed_by_command"`

	// Dimensions
	App string `json:"app"`
}

// Collector accumulates counters.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	pluginsLoaded int64
	pluginsFailed int64

	registrationsAccepted int64
	registrationsRejected int64
	nameConflicts         int64
	aliasConflicts        int64

	verifyPassed    int64
	verifyFailed    int64
	failedByCommand map[string]int64

	app string
}

// NewCollector creates a Collector labelled with the application name.
func NewCollector(app string) *Collector {
	return &Collector{
		failedByCommand: make(map[string]int64),
		app:             app,
	}
}

// --- Plugin lifecycle ---

// IncPluginLoaded records a plugin whose Init succeeded.
func (c *Collector) IncPluginLoaded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.pluginsLoaded++
	c.mu.Unlock()
}

// IncPluginFailed records a plugin whose Init failed.
func (c *Collector) IncPluginFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.pluginsFailed++
	c.mu.Unlock()
}

// --- Registration ---

// IncRegistrationAccepted records a successful Register call.
func (c *Collector) IncRegistrationAccepted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.registrationsAccepted++
	c.mu.Unlock()
}

// RecordRegistrationRejected records a rejected Register call along with
// the number of name and alias conflicts it carried.
func (c *Collector) RecordRegistrationRejected(nameConflicts, aliasConflicts int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.registrationsRejected++
	c.nameConflicts += int64(nameConflicts)
	c.aliasConflicts += int64(aliasConflicts)
	c.mu.Unlock()
}

// --- Verification ---

// IncVerifyPassed records a verification pass with no error.
func (c *Collector) IncVerifyPassed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.verifyPassed++
	c.mu.Unlock()
}

// IncVerifyFailed records a failed verification pass for command.
func (c *Collector) IncVerifyFailed(command string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.verifyFailed++
	c.failedByCommand[command]++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	failed := make(map[string]int64, len(c.failedByCommand))
	for k, v := range c.failedByCommand {
		failed[k] = v
	}

	return Snapshot{
		PluginsLoaded: c.pluginsLoaded,
		PluginsFailed: c.pluginsFailed,

		RegistrationsAccepted: c.registrationsAccepted,
		RegistrationsRejected: c.registrationsRejected,
		NameConflicts:         c.nameConflicts,
		AliasConflicts:        c.aliasConflicts,

		VerifyPassed:    c.verifyPassed,
		VerifyFailed:    c.verifyFailed,
		FailedByCommand: failed,

		App: c.app,
	}
}
