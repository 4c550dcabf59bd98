package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "loadsweep",
		Short:         "Measure average page load time across a sweep of concurrent users",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Sweep flags
	flags.String("target", DefaultTarget, "URL every simulated user navigates to")
	flags.IntSliceP("levels", "l", DefaultLevels, "Ordered concurrency levels to sweep (e.g. 1,2,3)")
	flags.IntP("repetitions", "n", DefaultRepetitions, "Rounds of concurrent navigations per level")
	flags.StringP("output", "o", DefaultOutput, "CSV file the per-level averages are appended to")
	flags.Duration("navigation-timeout", DefaultNavigationTimeout, "Per-navigation timeout; a timeout counts as a failed navigation")

	// Engine flags
	flags.String("engine", string(EngineChrome), "Page loading engine: 'chrome' or 'http'")
	flags.Bool("headless", true, "Run Chrome in headless mode")
	flags.String("chrome-path", "", "Path to the Chrome/Chromium executable")
	flags.String("browser-url", "", "Attach to a running Chrome via its DevTools URL (http://host:9222 or ws://...)")
	flags.String("wait-selector", "", "CSS selector that must be ready before a navigation counts as loaded")

	// Output flags
	flags.Bool("json-output", false, "Emit a JSON summary of the sweep on stdout")
	flags.Bool("log-errors", true, "Log each failed navigation to stderr")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format: 'text' or 'json'")
	flags.Bool("progress", false, "Show live progress on stderr (default: on when stderr is a terminal)")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
	flags.Bool("print-config", false, "Print the resolved configuration as YAML and exit")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (host:port)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.String("tracing-service-name", "", "service.name resource attribute (default loadsweep)")
	flags.Float64("tracing-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\n%s\n\nFlags:\n", cmd.UseLine(), cmd.Short)
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("levels") {
		val, err := fs.GetIntSlice("levels")
		if err != nil {
			return err
		}
		cfg.Levels = val
	}
	if fs.Changed("repetitions") {
		val, err := fs.GetInt("repetitions")
		if err != nil {
			return err
		}
		cfg.Repetitions = val
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.OutputPath = strings.TrimSpace(val)
	}
	if fs.Changed("navigation-timeout") {
		val, err := fs.GetDuration("navigation-timeout")
		if err != nil {
			return err
		}
		cfg.NavigationTimeout = val
	}
	if fs.Changed("engine") {
		val, err := fs.GetString("engine")
		if err != nil {
			return err
		}
		cfg.Engine = Engine(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("headless") {
		val, err := fs.GetBool("headless")
		if err != nil {
			return err
		}
		cfg.Browser.Headless = val
	}
	if fs.Changed("chrome-path") {
		val, err := fs.GetString("chrome-path")
		if err != nil {
			return err
		}
		cfg.Browser.ExecPath = strings.TrimSpace(val)
	}
	if fs.Changed("browser-url") {
		val, err := fs.GetString("browser-url")
		if err != nil {
			return err
		}
		cfg.Browser.RemoteURL = strings.TrimSpace(val)
	}
	if fs.Changed("wait-selector") {
		val, err := fs.GetString("wait-selector")
		if err != nil {
			return err
		}
		cfg.Browser.WaitSelector = strings.TrimSpace(val)
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = strings.TrimSpace(val)
	}
	if fs.Changed("log-format") {
		val, err := fs.GetString("log-format")
		if err != nil {
			return err
		}
		cfg.LogFormat = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("progress") {
		val, err := fs.GetBool("progress")
		if err != nil {
			return err
		}
		cfg.Progress = &val
	}
	if fs.Changed("print-config") {
		val, err := fs.GetBool("print-config")
		if err != nil {
			return err
		}
		cfg.PrintConfig = val
	}

	return applyTracingFlags(&cfg.Tracing, fs)
}

func applyTracingFlags(tc *TracingConfig, fs *pflag.FlagSet) error {
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		tc.Insecure = val
	}
	if fs.Changed("tracing-service-name") {
		val, err := fs.GetString("tracing-service-name")
		if err != nil {
			return err
		}
		tc.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		tc.SampleRate = val
	}
	return nil
}
