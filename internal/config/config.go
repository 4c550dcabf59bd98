package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Engine selects how a simulated client loads the target page.
type Engine string

const (
	EngineChrome Engine = "chrome"
	EngineHTTP   Engine = "http"
)

const (
	DefaultTarget            = "https://google.com"
	DefaultRepetitions       = 5
	DefaultOutput            = "loading_times.csv"
	DefaultNavigationTimeout = 30 * time.Second
)

// DefaultLevels is the concurrency sweep used when none is configured.
var DefaultLevels = []int{10, 20, 30, 40, 50}

type Config struct {
	TargetURL         string        `mapstructure:"target" yaml:"target"`
	Levels            []int         `mapstructure:"levels" yaml:"levels"`
	Repetitions       int           `mapstructure:"repetitions" yaml:"repetitions"`
	OutputPath        string        `mapstructure:"output" yaml:"output"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Engine            Engine        `mapstructure:"engine" yaml:"engine"`
	Browser           BrowserConfig `mapstructure:"browser" yaml:"browser"`
	JSONOutput        bool          `mapstructure:"json_output" yaml:"json_output"`
	LogErrors         bool          `mapstructure:"log_errors" yaml:"log_errors"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	Progress          *bool         `mapstructure:"progress" yaml:"progress,omitempty"`
	Tracing           TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	ConfigFile        string        `mapstructure:"-" yaml:"-"`
	PrintConfig       bool          `mapstructure:"-" yaml:"-"`
}

type BrowserConfig struct {
	Headless  bool   `mapstructure:"headless" yaml:"headless"`
	ExecPath  string `mapstructure:"exec_path" yaml:"exec_path,omitempty"`
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url,omitempty"`
	// WaitSelector, when set, must become ready after the load event before
	// the navigation counts as complete.
	WaitSelector string `mapstructure:"wait_selector" yaml:"wait_selector,omitempty"`
}

// TracingConfig configures OpenTelemetry export. Tracing is off unless an
// endpoint is set here or through OTEL_EXPORTER_OTLP_ENDPOINT.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Protocol    string  `mapstructure:"protocol" yaml:"protocol,omitempty"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure,omitempty"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name,omitempty"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate,omitempty"`
	Propagate   *bool   `mapstructure:"propagate" yaml:"propagate,omitempty"`
}

// Enabled reports whether an exporter endpoint is available.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether trace context should be injected into
// outgoing page requests. It defaults to true when tracing is enabled.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// Defaults returns a Config populated with the built-in sweep settings.
func Defaults() *Config {
	return &Config{
		TargetURL:         DefaultTarget,
		Levels:            append([]int(nil), DefaultLevels...),
		Repetitions:       DefaultRepetitions,
		OutputPath:        DefaultOutput,
		NavigationTimeout: DefaultNavigationTimeout,
		Engine:            EngineChrome,
		Browser: BrowserConfig{
			Headless: true,
		},
		LogErrors: true,
		LogLevel:  "info",
		LogFormat: "text",
		Tracing:   TracingConfig{SampleRate: 1.0},
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.TargetURL)
	if target == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	} else if u, err := url.Parse(target); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, fmt.Sprintf("target %q must be an absolute URL", target))
	}

	if len(c.Levels) == 0 {
		issues = append(issues, "levels must list at least one concurrency level")
	}
	for idx, level := range c.Levels {
		if level < 1 {
			issues = append(issues, fmt.Sprintf("levels[%d]: concurrency must be >= 1, got %d", idx, level))
		}
	}
	if c.Repetitions < 1 {
		issues = append(issues, "repetitions must be >= 1")
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		issues = append(issues, "output path is required")
	}
	if c.NavigationTimeout <= 0 {
		issues = append(issues, "navigation timeout must be > 0")
	}

	switch c.Engine {
	case EngineChrome, EngineHTTP:
	default:
		issues = append(issues, fmt.Sprintf("engine must be 'chrome' or 'http', got %q", c.Engine))
	}

	if c.Engine == EngineHTTP && strings.TrimSpace(c.Browser.WaitSelector) != "" {
		issues = append(issues, "browser: wait_selector requires the chrome engine")
	}
	if c.Engine == EngineHTTP && strings.TrimSpace(c.Browser.RemoteURL) != "" {
		issues = append(issues, "browser: remote_url requires the chrome engine")
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("log format must be 'text' or 'json', got %q", c.LogFormat))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}
	switch strings.ToLower(c.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", c.Tracing.Protocol))
	}

	// Large sweeps launch one browser per simulated user.
	for _, level := range c.Levels {
		if c.Engine == EngineChrome && level > 200 {
			fmt.Fprintf(os.Stderr, "WARNING: level %d launches %d concurrent browsers. Ensure the host has the resources and you are authorized to load the target.\n", level, level)
			break
		}
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
