package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `log_level: debug

plugins:
  - name: deploy-extras
    manifest: plugins/deploy.yaml
  - name: lint
    manifest: /etc/flagkit/lint.yaml
    enabled: false

builtin:
  disable: [cwd]
  cwd_commands: [run, build]
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "log_level", cfg.LogLevel, "debug")
	if len(cfg.Plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(cfg.Plugins))
	}
	assertEqual(t, "plugins[0].name", cfg.Plugins[0].Name, "deploy-extras")
	assertEqual(t, "plugins[0].manifest", cfg.Plugins[0].Manifest, filepath.Join(filepath.Dir(path), "plugins/deploy.yaml"))
	assertEqual(t, "plugins[1].manifest", cfg.Plugins[1].Manifest, "/etc/flagkit/lint.yaml")

	if !cfg.Plugins[0].IsEnabled() {
		t.Error("plugins[0] should default to enabled")
	}
	if cfg.Plugins[1].IsEnabled() {
		t.Error("plugins[1] should be disabled")
	}
	if enabled := cfg.EnabledPlugins(); len(enabled) != 1 || enabled[0].Name != "deploy-extras" {
		t.Errorf("EnabledPlugins() = %+v", enabled)
	}

	if cfg.BuiltinEnabled("cwd") {
		t.Error("cwd builtin should be disabled")
	}
	if !cfg.BuiltinEnabled("other") {
		t.Error("other builtin should be enabled")
	}
	if strings.Join(cfg.Builtin.CwdCommands, ",") != "run,build" {
		t.Errorf("cwd_commands = %v", cfg.Builtin.CwdCommands)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	for _, content := range []string{"", "   \n  \n", "# only a comment\n"} {
		path := writeTemp(t, content)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q) failed: %v", content, err)
		}
		if cfg.LogLevel != "" || len(cfg.Plugins) != 0 {
			t.Errorf("expected zero config for %q, got %+v", content, cfg)
		}
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/flagkit.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadOptional_Missing(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "flagkit.yaml"))
	if err != nil {
		t.Fatalf("LoadOptional failed: %v", err)
	}
	if cfg == nil || len(cfg.Plugins) != 0 {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeTemp(t, "log_level: info\nbogus_key: should_fail\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("FK_LOG_LEVEL", "warn")

	path := writeTemp(t, "log_level: ${FK_LOG_LEVEL}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "log_level", cfg.LogLevel, "warn")
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := &Config{
		LogLevel: "shouty",
		Plugins: []PluginEntry{
			{Name: "", Manifest: "a.yaml"},
			{Name: "dup", Manifest: "b.yaml"},
			{Name: "dup", Manifest: ""},
		},
		Builtin: BuiltinConfig{CwdCommands: []string{""}},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	errs := multierr.Errors(err)
	if len(errs) != 5 {
		t.Fatalf("expected 5 problems, got %d: %v", len(errs), err)
	}
	for _, want := range []string{"shouty", "plugins[0]: name is required", `"dup" already used`, "plugins[2]: manifest path is required", "cwd_commands[0]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "flagkit.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
