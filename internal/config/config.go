package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/voicebridge/internal/model"
)

// Practice defaults.
const (
	DefaultMode       = model.ModeAdult
	DefaultType       = model.TypeFreePractice
	DefaultPrompts    = 10
	DefaultWeakTop    = 5
	DefaultWeakFactor = 2.0
	DefaultWeakWindow = 20
)

// Analyzer defaults.
const (
	DefaultAnalyzerURL     = "http://localhost:8000"
	DefaultAnalyzerTimeout = 30 * time.Second
	DefaultParallel        = 4
)

// Config is the layered application configuration.
type Config struct {
	Practice Practice `koanf:"practice"`
	Analyzer Analyzer `koanf:"analyzer"`
	Log      Log      `koanf:"log"`
	Metrics  Metrics  `koanf:"metrics"`
}

// Practice maps practice-related settings.
type Practice struct {
	Mode       string  `koanf:"mode"`
	Type       string  `koanf:"type"`
	Scenario   string  `koanf:"scenario"`
	Prompts    int     `koanf:"prompts"`
	Phrases    string  `koanf:"phrases"`
	FocusWeak  bool    `koanf:"focus-weak"`
	WeakTop    int     `koanf:"weak-top"`
	WeakFactor float64 `koanf:"weak-factor"`
	WeakWindow int     `koanf:"weak-window"`
}

// Analyzer configures the speech analysis service client.
type Analyzer struct {
	URL      string        `koanf:"url"`
	Timeout  time.Duration `koanf:"timeout"`
	Parallel int           `koanf:"parallel"`
}

// Log configures structured logging.
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// Metrics configures the Prometheus textfile written on exit.
type Metrics struct {
	Textfile string `koanf:"textfile"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		Practice: Practice{
			Mode:       string(DefaultMode),
			Type:       string(DefaultType),
			Prompts:    DefaultPrompts,
			WeakTop:    DefaultWeakTop,
			WeakFactor: DefaultWeakFactor,
			WeakWindow: DefaultWeakWindow,
		},
		Analyzer: Analyzer{
			URL:      DefaultAnalyzerURL,
			Timeout:  DefaultAnalyzerTimeout,
			Parallel: DefaultParallel,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
			File:   DefaultLogPath(),
		},
	}
}

// PracticeConfig converts practice settings into the model form.
func (c *Config) PracticeConfig() (model.Config, error) {
	mode, err := model.ParseMode(c.Practice.Mode)
	if err != nil {
		return model.Config{}, fmt.Errorf("%w: practice.mode: %w", ErrInvalidConfig, err)
	}
	typ, err := model.ParseSessionType(c.Practice.Type)
	if err != nil {
		return model.Config{}, fmt.Errorf("%w: practice.type: %w", ErrInvalidConfig, err)
	}
	scenario, err := model.ParseScenario(c.Practice.Scenario)
	if err != nil {
		return model.Config{}, fmt.Errorf("%w: practice.scenario: %w", ErrInvalidConfig, err)
	}
	return model.Config{
		Mode:       mode,
		Type:       typ,
		Scenario:   scenario,
		Prompts:    c.Practice.Prompts,
		FocusWeak:  c.Practice.FocusWeak,
		WeakTop:    c.Practice.WeakTop,
		WeakFactor: c.Practice.WeakFactor,
		WeakWindow: c.Practice.WeakWindow,
	}, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := c.PracticeConfig(); err != nil {
		return err
	}
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.Practice.Prompts > 0, "practice.prompts must be > 0"},
		{c.Practice.WeakTop >= 0, "practice.weak-top must be >= 0"},
		{c.Practice.WeakFactor >= 0, "practice.weak-factor must be >= 0"},
		{c.Practice.WeakWindow >= 0, "practice.weak-window must be >= 0"},
		{strings.TrimSpace(c.Analyzer.URL) != "", "analyzer.url must not be empty"},
		{c.Analyzer.Timeout >= 0, "analyzer.timeout must be >= 0"},
		{c.Analyzer.Parallel > 0, "analyzer.parallel must be > 0"},
		{c.Log.Format == "json" || c.Log.Format == "console", "log.format must be json or console"},
	}
	for _, ch := range checks {
		if !ch.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, ch.msg)
		}
	}
	return nil
}

// Template returns a commented TOML config file.
func Template() string {
	return fmt.Sprintf(`# voicebridge configuration
# Uncomment a value to enable it. CLI flags and VOICEBRIDGE_* environment
# variables (e.g. VOICEBRIDGE_ANALYZER_URL) override config values.

[practice]
# mode = %q          # adult or child
# type = %q  # scenario, free_practice, exercise, pronunciation
# scenario = ""            # e.g. ordering_food, phone_call, animals
# prompts = %d             # Prompts per session
# phrases = ""             # Custom phrase list file (one phrase per line)
# focus-weak = false       # Bias prompts toward weak phonemes
# weak-top = %d             # Number of weak phonemes to focus on
# weak-factor = %.1f       # Weight factor for weak phonemes
# weak-window = %d         # Number of recent sessions to compute weak phonemes

[analyzer]
# url = %q
# timeout = %q
# parallel = %d

[log]
# level = "info"           # debug, info, warn, error
# format = "json"          # json or console
# file = %q

[metrics]
# textfile = ""            # Write Prometheus metrics here on exit
`,
		DefaultMode,
		DefaultType,
		DefaultPrompts,
		DefaultWeakTop,
		DefaultWeakFactor,
		DefaultWeakWindow,
		DefaultAnalyzerURL,
		DefaultAnalyzerTimeout.String(),
		DefaultParallel,
		DefaultLogPath(),
	)
}
