package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/torosent/loadsweep/internal/config"
)

func TestParseFlagsDefaults(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != config.DefaultTarget {
		t.Errorf("TargetURL = %q, want %q", cfg.TargetURL, config.DefaultTarget)
	}
	if !reflect.DeepEqual(cfg.Levels, []int{10, 20, 30, 40, 50}) {
		t.Errorf("Levels = %v, want [10 20 30 40 50]", cfg.Levels)
	}
	if cfg.Repetitions != 5 {
		t.Errorf("Repetitions = %d, want 5", cfg.Repetitions)
	}
	if cfg.OutputPath != "loading_times.csv" {
		t.Errorf("OutputPath = %q, want loading_times.csv", cfg.OutputPath)
	}
	if cfg.NavigationTimeout != 30*time.Second {
		t.Errorf("NavigationTimeout = %s, want 30s", cfg.NavigationTimeout)
	}
	if cfg.Engine != config.EngineChrome {
		t.Errorf("Engine = %q, want chrome", cfg.Engine)
	}
	if !cfg.Browser.Headless {
		t.Error("Browser.Headless = false, want true")
	}
	if cfg.JSONOutput {
		t.Errorf("JSONOutput = true, want false")
	}
	if cfg.Progress != nil {
		t.Errorf("Progress = %v, want nil (auto)", *cfg.Progress)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestDefaultsAreNotShared(t *testing.T) {
	a := config.Defaults()
	a.Levels[0] = 99
	b := config.Defaults()
	if b.Levels[0] != 10 {
		t.Fatalf("Defaults() leaked mutation: %v", b.Levels)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"target": "https://example.com/login",
		"levels": [1, 2, 3, 4, 5],
		"repetitions": 3,
		"output": "results.csv",
		"navigation_timeout": "10s",
		"engine": "http",
		"json_output": true,
		"log_level": "debug"
	}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "https://example.com/login" {
		t.Errorf("TargetURL = %q", cfg.TargetURL)
	}
	if !reflect.DeepEqual(cfg.Levels, []int{1, 2, 3, 4, 5}) {
		t.Errorf("Levels = %v", cfg.Levels)
	}
	if cfg.Repetitions != 3 {
		t.Errorf("Repetitions = %d, want 3", cfg.Repetitions)
	}
	if cfg.OutputPath != "results.csv" {
		t.Errorf("OutputPath = %q", cfg.OutputPath)
	}
	if cfg.NavigationTimeout != 10*time.Second {
		t.Errorf("NavigationTimeout = %s", cfg.NavigationTimeout)
	}
	if cfg.Engine != config.EngineHTTP {
		t.Errorf("Engine = %q", cfg.Engine)
	}
	if !cfg.JSONOutput {
		t.Error("JSONOutput = false, want true")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
}

func TestLoadConfigFileYAMLWithFlagOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
target: https://example.org
levels: [10, 20]
repetitions: 4
browser:
  headless: false
  wait_selector: "main h1"
tracing:
  endpoint: localhost:4317
  insecure: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path, "--repetitions", "1"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Levels, []int{10, 20}) {
		t.Errorf("Levels = %v", cfg.Levels)
	}
	if cfg.Repetitions != 1 {
		t.Errorf("Repetitions = %d, want flag override 1", cfg.Repetitions)
	}
	if cfg.Browser.Headless {
		t.Error("Browser.Headless = true, want false")
	}
	if cfg.Browser.WaitSelector != "main h1" {
		t.Errorf("Browser.WaitSelector = %q", cfg.Browser.WaitSelector)
	}
	if !cfg.Tracing.Insecure || cfg.Tracing.Endpoint != "localhost:4317" {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadHelp(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--help"})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load(--help) error = %v, want ErrHelpRequested", err)
	}
}

func TestValidateReportsAllIssues(t *testing.T) {
	cfg := config.Defaults()
	cfg.TargetURL = "not a url"
	cfg.Levels = []int{1, 0, -3}
	cfg.Repetitions = 0
	cfg.OutputPath = " "
	cfg.NavigationTimeout = 0
	cfg.Engine = "firefox"
	cfg.Tracing.SampleRate = 2

	err := cfg.Validate()
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}

	issues := strings.Join(verr.Issues(), "\n")
	for _, want := range []string{
		"absolute URL",
		"levels[1]",
		"levels[2]",
		"repetitions must be >= 1",
		"output path is required",
		"navigation timeout must be > 0",
		"engine must be",
		"sample_rate",
	} {
		if !strings.Contains(issues, want) {
			t.Errorf("issues missing %q:\n%s", want, issues)
		}
	}
}

func TestValidateEmptyLevels(t *testing.T) {
	cfg := config.Defaults()
	cfg.Levels = nil
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "at least one") {
		t.Fatalf("Validate() error = %v, want empty levels issue", err)
	}
}

func TestValidateRemoteURLRequiresChrome(t *testing.T) {
	cfg := config.Defaults()
	cfg.Engine = config.EngineHTTP
	cfg.Browser.RemoteURL = "http://localhost:9222"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected remote_url with http engine to fail validation")
	}
}

func TestValidateWaitSelectorRequiresChrome(t *testing.T) {
	cfg := config.Defaults()
	cfg.Engine = config.EngineHTTP
	cfg.Browser.WaitSelector = "#app"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "wait_selector") {
		t.Fatalf("Validate() error = %v, want wait_selector issue", err)
	}
}

func TestTracingEnabledFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	tc := config.TracingConfig{}
	if tc.Enabled() {
		t.Fatal("Enabled() = true without endpoint")
	}
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	if !tc.Enabled() || !tc.ShouldPropagate() {
		t.Fatal("expected tracing enabled from environment")
	}
}
