package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/datasmiths/tabinspect/pkg/check"
	"github.com/datasmiths/tabinspect/pkg/sample"
)

// DatasetRef names one dataset of the suite.
type DatasetRef struct {
	Label string `koanf:"label"` // defaults to the path's base name
	Path  string `koanf:"path"`  // CSV file
}

// InspectorSpec configures one inspector of the suite.
type InspectorSpec struct {
	Name   string         `koanf:"name"`
	Check  string         `koanf:"check"`
	Params map[string]any `koanf:"params"`

	// SampleSize overrides the suite-wide sample size for this inspector.
	// nil inherits; 0 or negative disables sampling.
	SampleSize *int `koanf:"sample_size"`
}

// SampleConfig is the suite-wide fail-sampling policy.
type SampleConfig struct {
	Size     int    `koanf:"size"`     // <= 0 disables sampling
	Strategy string `koanf:"strategy"` // first_n|last_n|random (head/tail accepted)
	Seed     int64  `koanf:"seed"`     // 0 = unseeded
}

// ConsoleSink enables the terminal status-line sink.
type ConsoleSink struct {
	Enabled bool `koanf:"enabled"`
}

// LogFileSink appends structured report events to a file. Empty path
// disables it.
type LogFileSink struct {
	Path string `koanf:"path"`
}

// SampleDirSink writes failing-record CSV samples into a directory. Empty
// path disables it.
type SampleDirSink struct {
	Path string `koanf:"path"`
}

// ChatSink posts alerts to a Slack-compatible webhook. Empty webhook_url
// disables it.
type ChatSink struct {
	WebhookURL   string        `koanf:"webhook_url"`
	Channel      string        `koanf:"channel"`
	Cooldown     time.Duration `koanf:"cooldown"` // 0 disables suppression
	NotifyOnPass bool          `koanf:"notify_on_pass"`
	RatePerMin   int           `koanf:"rate_per_min"` // <= 0 unlimited
}

// Sinks groups the per-sink configuration.
type Sinks struct {
	Console   ConsoleSink   `koanf:"console"`
	LogFile   LogFileSink   `koanf:"logfile"`
	SampleDir SampleDirSink `koanf:"sampledir"`
	Chat      ChatSink      `koanf:"chat"`
}

// Config holds all runtime configuration.
type Config struct {
	LogLevel    string        `koanf:"log_level"`
	LogFormat   string        `koanf:"log_format"`
	DataDir     string        `koanf:"data_dir"`     // suppression db lives here
	MetricsAddr string        `koanf:"metrics_addr"` // watch mode; "" = disabled
	Interval    time.Duration `koanf:"interval"`     // watch mode re-run period
	WatchFiles  bool          `koanf:"watch_files"`  // re-run on dataset changes
	Parallel    int           `koanf:"parallel"`     // 0/1 = sequential

	Sample     SampleConfig    `koanf:"sample"`
	Sinks      Sinks           `koanf:"sinks"`
	Datasets   []DatasetRef    `koanf:"datasets"`
	Inspectors []InspectorSpec `koanf:"inspectors"`
}

// defaults is the lowest-priority layer.
var defaults = map[string]any{
	"log_level":             "info",
	"log_format":            "text",
	"data_dir":              "/var/lib/tabinspect",
	"metrics_addr":          "",
	"interval":              10 * time.Minute,
	"watch_files":           true,
	"parallel":              1,
	"sample.size":           10,
	"sample.strategy":       "first_n",
	"sample.seed":           int64(0),
	"sinks.console.enabled": true,
}

// Load reads configuration from (lowest → highest priority):
//  1. Built-in defaults
//  2. YAML suite file at path
//  3. TABINSPECT_* environment variables
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults.
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	// Layer 2: the suite file. Unlike most daemons the file is not optional;
	// inspectors and datasets can only come from here.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: load file %s: %w", path, err)
	}

	// Layer 3: environment variables.
	// Transform: "TABINSPECT_LOG_LEVEL" → "log_level".
	if err := k.Load(env.Provider("TABINSPECT_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.normalise()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "TABINSPECT_"))
	switch key {
	case "config":
		return "" // consumed by the CLI flag layer, not the config tree
	case "chat_webhook":
		return "sinks.chat.webhook_url"
	}
	return key
}

func (c *Config) normalise() {
	c.LogLevel = strings.TrimSpace(strings.ToLower(c.LogLevel))
	c.LogFormat = strings.TrimSpace(strings.ToLower(c.LogFormat))

	// Default dataset labels to the file's base name.
	for i := range c.Datasets {
		if c.Datasets[i].Label == "" && c.Datasets[i].Path != "" {
			base := filepath.Base(c.Datasets[i].Path)
			c.Datasets[i].Label = strings.TrimSuffix(base, filepath.Ext(base))
		}
	}
}

func (c *Config) validate() error {
	var errs []string

	if len(c.Inspectors) == 0 {
		errs = append(errs, "at least one inspector is required")
	}
	known := make(map[string]bool)
	for _, n := range check.Names() {
		known[n] = true
	}
	seen := make(map[string]bool)
	for i, ins := range c.Inspectors {
		switch {
		case ins.Name == "":
			errs = append(errs, fmt.Sprintf("inspectors[%d]: name is required", i))
		case seen[ins.Name]:
			errs = append(errs, fmt.Sprintf("inspectors[%d]: duplicate name %q", i, ins.Name))
		default:
			seen[ins.Name] = true
		}
		if !known[ins.Check] {
			errs = append(errs, fmt.Sprintf("inspectors[%d]: unknown check %q (known: %s)",
				i, ins.Check, strings.Join(check.Names(), ", ")))
		}
	}

	if len(c.Datasets) == 0 {
		errs = append(errs, "at least one dataset is required")
	}
	dupLabels := make(map[string]bool)
	for i, d := range c.Datasets {
		if d.Path == "" {
			errs = append(errs, fmt.Sprintf("datasets[%d]: path is required", i))
		}
		if d.Label != "" && dupLabels[d.Label] {
			errs = append(errs, fmt.Sprintf("datasets[%d]: duplicate label %q", i, d.Label))
		}
		dupLabels[d.Label] = true
	}

	if _, err := sample.ParseStrategy(c.Sample.Strategy); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Interval < 10*time.Second {
		errs = append(errs, "interval must be at least 10s")
	}
	if c.Parallel < 0 {
		errs = append(errs, "parallel must be >= 0")
	}

	if c.Sinks.Chat.WebhookURL != "" {
		u, err := url.Parse(c.Sinks.Chat.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, "chat webhook_url must be an http(s) URL")
		}
	}
	if c.Sinks.Chat.Cooldown < 0 {
		errs = append(errs, "chat cooldown must be >= 0")
	}

	// DataDir path sanitisation: reject traversal sequences and null bytes.
	if strings.Contains(c.DataDir, "..") {
		errs = append(errs, `data_dir must not contain ".." (directory traversal)`)
	}
	if strings.ContainsRune(c.DataDir, 0) {
		errs = append(errs, "data_dir must not contain null bytes")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d configuration error(s):\n  - %s", len(errs), strings.Join(errs, "\n  - "))
	}
	return nil
}

// ChatEnabled reports whether the chat sink should be built.
func (c *Config) ChatEnabled() bool { return c.Sinks.Chat.WebhookURL != "" }

// DatasetPaths returns the configured dataset file paths, for file watching.
func (c *Config) DatasetPaths() []string {
	paths := make([]string, 0, len(c.Datasets))
	for _, d := range c.Datasets {
		if d.Path != "" {
			paths = append(paths, d.Path)
		}
	}
	return paths
}

// ConfigPath resolves the suite file path: explicit flag value if non-empty,
// else the TABINSPECT_CONFIG variable, else "tabinspect.yaml".
func ConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("TABINSPECT_CONFIG"); env != "" {
		return env
	}
	return "tabinspect.yaml"
}
