package plugin

import (
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pithecene-io/flagkit/flagreg"
	"github.com/pithecene-io/flagkit/log"
	"github.com/pithecene-io/flagkit/metrics"
)

func flagsPlugin(name, command string, flags map[string]flagreg.FlagSpec) Plugin {
	return Func{
		PluginName: name,
		InitFunc: func(r Registrar) error {
			return r.Register(command, flags, nil)
		},
	}
}

func TestLoader_LoadsInOrder(t *testing.T) {
	reg := flagreg.New()
	ld := NewLoader(reg)

	err := ld.Load(
		flagsPlugin("A", "run", map[string]flagreg.FlagSpec{"cwd": {}, "verbose": {Alias: "v"}}),
		flagsPlugin("B", "run", map[string]flagreg.FlagSpec{"output": {}}),
	)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := ld.Loaded(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("Loaded() = %v", got)
	}
	if len(reg.Resolve("run")) != 3 {
		t.Errorf("expected 3 flags, got %d", len(reg.Resolve("run")))
	}
}

func TestLoader_BindsPluginName(t *testing.T) {
	reg := flagreg.New()
	if err := NewLoader(reg).Load(flagsPlugin("owner", "run", map[string]flagreg.FlagSpec{"x": {}})); err != nil {
		t.Fatal(err)
	}
	if owner, _ := reg.Owner("run", "x"); owner != "owner" {
		t.Errorf("owner = %q, want owner", owner)
	}
}

func TestLoader_StopsAtFirstFailure(t *testing.T) {
	reg := flagreg.New()
	collector := metrics.NewCollector("test")
	ld := NewLoader(reg, WithCollector(collector))

	initCalled := false
	err := ld.Load(
		flagsPlugin("A", "run", map[string]flagreg.FlagSpec{"output": {Alias: "o"}}),
		flagsPlugin("B", "run", map[string]flagreg.FlagSpec{"output": {}, "other": {Alias: "o"}}),
		Func{PluginName: "C", InitFunc: func(Registrar) error {
			initCalled = true
			return nil
		}},
	)

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
	if loadErr.Plugin != "B" || loadErr.Op != "init" {
		t.Errorf("unexpected load error: %+v", loadErr)
	}
	if !errors.Is(err, flagreg.ErrFlagNameConflict) || !errors.Is(err, flagreg.ErrAliasConflict) {
		t.Errorf("conflict sentinels should survive wrapping: %v", err)
	}
	if initCalled {
		t.Error("plugins after a failure must not be initialised")
	}
	if got := ld.Loaded(); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("Loaded() = %v, want [A]", got)
	}

	s := collector.Snapshot()
	if s.PluginsLoaded != 1 || s.PluginsFailed != 1 {
		t.Errorf("plugins loaded/failed = %d/%d, want 1/1", s.PluginsLoaded, s.PluginsFailed)
	}
	if s.RegistrationsAccepted != 1 || s.RegistrationsRejected != 1 {
		t.Errorf("registrations accepted/rejected = %d/%d", s.RegistrationsAccepted, s.RegistrationsRejected)
	}
	if s.NameConflicts != 1 || s.AliasConflicts != 1 {
		t.Errorf("conflicts name/alias = %d/%d, want 1/1", s.NameConflicts, s.AliasConflicts)
	}
}

func TestLoader_PartialInitKeepsEarlierRegistrations(t *testing.T) {
	reg := flagreg.New()
	ld := NewLoader(reg)
	if err := ld.Load(flagsPlugin("A", "run", map[string]flagreg.FlagSpec{"output": {}})); err != nil {
		t.Fatal(err)
	}

	partial := Func{
		PluginName: "B",
		InitFunc: func(r Registrar) error {
			if err := r.Register("build", map[string]flagreg.FlagSpec{"target": {}}, nil); err != nil {
				return err
			}
			return r.Register("run", map[string]flagreg.FlagSpec{"output": {}}, nil)
		},
	}
	err := ld.Load(partial)
	if !errors.Is(err, flagreg.ErrFlagNameConflict) {
		t.Fatalf("expected ErrFlagNameConflict, got %v", err)
	}

	if owner, ok := reg.Owner("build", "target"); !ok || owner != "B" {
		t.Errorf("build/target owner = %q, %v; want B, true", owner, ok)
	}
	if got := ld.Loaded(); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("Loaded() = %v, want [A]", got)
	}
}

func TestLoader_DuplicatePluginName(t *testing.T) {
	ld := NewLoader(flagreg.New())
	err := ld.Load(
		flagsPlugin("A", "run", nil),
		flagsPlugin("A", "build", nil),
	)
	if !errors.Is(err, ErrPluginAlreadyLoaded) {
		t.Fatalf("expected ErrPluginAlreadyLoaded, got %v", err)
	}
}

func TestLoader_EmptyPluginName(t *testing.T) {
	err := NewLoader(flagreg.New()).Load(flagsPlugin("", "run", nil))
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
}

func TestLoader_RegistryErrorsPassThrough(t *testing.T) {
	reg := flagreg.New()
	p := Func{PluginName: "twice", InitFunc: func(r Registrar) error {
		if err := r.Register("run", nil, nil); err != nil {
			return err
		}
		return r.Register("run", nil, nil)
	}}

	err := NewLoader(reg).Load(p)
	if !errors.Is(err, flagreg.ErrDuplicatePlugin) {
		t.Fatalf("expected ErrDuplicatePlugin, got %v", err)
	}
}

func TestLoader_Logs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ld := NewLoader(flagreg.New(), WithLogger(log.FromZap(zap.New(core))))

	_ = ld.Load(
		flagsPlugin("A", "run", map[string]flagreg.FlagSpec{"x": {}}),
		flagsPlugin("B", "run", map[string]flagreg.FlagSpec{"x": {}}),
	)

	if n := logs.FilterMessage("plugin loaded").Len(); n != 1 {
		t.Errorf("expected 1 'plugin loaded' entry, got %d", n)
	}
	if n := logs.FilterMessage("flags registered").Len(); n != 1 {
		t.Errorf("expected 1 'flags registered' entry, got %d", n)
	}
	failed := logs.FilterMessage("plugin failed to load").All()
	if len(failed) != 1 {
		t.Fatalf("expected 1 failure entry, got %d", len(failed))
	}
	if failed[0].Level != zapcore.ErrorLevel {
		t.Errorf("failure level = %v, want error", failed[0].Level)
	}
}

func TestLoadError_Message(t *testing.T) {
	err := &LoadError{Plugin: "p", Op: "manifest", Err: errors.New("boom")}
	if got := err.Error(); got != `plugin "p": manifest: boom` {
		t.Errorf("Error() = %q", got)
	}
}
