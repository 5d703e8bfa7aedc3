// Package main provides the CLI entrypoint for voicebridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/voicebridge/internal/analyzer"
	"github.com/verte-zerg/voicebridge/internal/config"
	"github.com/verte-zerg/voicebridge/internal/generator"
	"github.com/verte-zerg/voicebridge/internal/history"
	"github.com/verte-zerg/voicebridge/internal/logging"
	"github.com/verte-zerg/voicebridge/internal/model"
	"github.com/verte-zerg/voicebridge/internal/observe"
	"github.com/verte-zerg/voicebridge/internal/phrases"
	"github.com/verte-zerg/voicebridge/internal/profile"
	"github.com/verte-zerg/voicebridge/internal/session"
	"github.com/verte-zerg/voicebridge/internal/stats"
	"github.com/verte-zerg/voicebridge/internal/store"
	"github.com/verte-zerg/voicebridge/internal/tui"
)

var (
	configPath string

	practiceMode       string
	practiceType       string
	practiceScenario   string
	practicePrompts    int
	practicePhrases    string
	practiceFocusWeak  bool
	practiceWeakTop    int
	practiceWeakFactor float64
	practiceWeakWindow int
	analyzerURL        string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "voicebridge",
		Short:         "Speech practice with analyzer feedback",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/voicebridge/config.toml)")
	rootCmd.PersistentFlags().StringVar(&analyzerURL, "analyzer-url", config.DefaultAnalyzerURL, "speech analysis service base URL")
	addPracticeFlags(rootCmd)

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newNotesCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newClearCmd())

	return rootCmd
}

func addPracticeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&practiceMode, "mode", string(config.DefaultMode), "practice mode: child or adult")
	cmd.Flags().StringVar(&practiceType, "type", string(config.DefaultType), "session type: scenario, free_practice, exercise, pronunciation")
	cmd.Flags().StringVar(&practiceScenario, "scenario", "", "scenario, e.g. ordering_food or animals")
	cmd.Flags().IntVar(&practicePrompts, "prompts", config.DefaultPrompts, "prompts per session")
	cmd.Flags().StringVar(&practicePhrases, "phrases", "", "custom phrase list file")
	cmd.Flags().BoolVar(&practiceFocusWeak, "focus-weak", false, "bias prompts toward weak phonemes")
	cmd.Flags().IntVar(&practiceWeakTop, "weak-top", config.DefaultWeakTop, "number of weak phonemes to focus on")
	cmd.Flags().Float64Var(&practiceWeakFactor, "weak-factor", config.DefaultWeakFactor, "weight factor for weak phonemes")
	cmd.Flags().IntVar(&practiceWeakWindow, "weak-window", config.DefaultWeakWindow, "number of recent sessions to compute weak phonemes")
}

// app holds the collaborators shared by every command.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	logCloser io.Closer
	metrics   *observe.Recorder
	store     *store.Store
	profile   *profile.Store
	history   *history.Service
}

func openApp(cmd *cobra.Command) (*app, error) {
	path := configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "analyzer-url", &analyzerURL, cfg.Analyzer.URL)
	cfg.Analyzer.URL = analyzerURL

	log, logCloser, err := logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, err
	}

	dbPath := config.DefaultDBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		closeQuietly(logCloser)
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		closeQuietly(logCloser)
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	prof, err := profile.Open(context.Background(), st,
		profile.WithLogger(logging.Component(log, "profile")))
	if err != nil {
		closeQuietly(st)
		closeQuietly(logCloser)
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	metrics := observe.NewRecorder()
	mgr := session.NewManager(
		session.WithLogger(logging.Component(log, "session")),
		session.WithMetrics(metrics),
	)
	log.Debug().Str("config", path).Str("db", dbPath).Str("command", cmd.Name()).Msg("starting")

	return &app{
		cfg:       cfg,
		log:       log,
		logCloser: logCloser,
		metrics:   metrics,
		store:     st,
		profile:   prof,
		history: &history.Service{
			Sessions: mgr,
			Store:    st,
			Profile:  prof,
			Log:      logging.Component(log, "history"),
		},
	}, nil
}

func (a *app) analyzer() *analyzer.HTTPClient {
	return analyzer.NewHTTPClient(a.cfg.Analyzer.URL,
		analyzer.WithTimeout(a.cfg.Analyzer.Timeout),
		analyzer.WithLogger(logging.Component(a.log, "analyzer")),
		analyzer.WithMetrics(a.metrics),
	)
}

func (a *app) Close() {
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		logErrf("failed to write metrics: %v\n", err)
	}
	if err := a.store.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
	closeQuietly(a.logCloser)
}

// practiceConfig merges practice flags over the loaded config.
func (a *app) practiceConfig(cmd *cobra.Command) (model.Config, error) {
	p := &a.cfg.Practice
	applyStringConfig(cmd, "mode", &practiceMode, p.Mode)
	applyStringConfig(cmd, "type", &practiceType, p.Type)
	applyStringConfig(cmd, "scenario", &practiceScenario, p.Scenario)
	applyIntConfig(cmd, "prompts", &practicePrompts, p.Prompts)
	applyStringConfig(cmd, "phrases", &practicePhrases, p.Phrases)
	applyBoolConfig(cmd, "focus-weak", &practiceFocusWeak, p.FocusWeak)
	applyIntConfig(cmd, "weak-top", &practiceWeakTop, p.WeakTop)
	applyFloatConfig(cmd, "weak-factor", &practiceWeakFactor, p.WeakFactor)
	applyIntConfig(cmd, "weak-window", &practiceWeakWindow, p.WeakWindow)

	*p = config.Practice{
		Mode:       practiceMode,
		Type:       practiceType,
		Scenario:   practiceScenario,
		Prompts:    practicePrompts,
		Phrases:    practicePhrases,
		FocusWeak:  practiceFocusWeak,
		WeakTop:    practiceWeakTop,
		WeakFactor: practiceWeakFactor,
		WeakWindow: practiceWeakWindow,
	}
	if err := a.cfg.Validate(); err != nil {
		return model.Config{}, err
	}
	return a.cfg.PracticeConfig()
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.practiceConfig(cmd)
	if err != nil {
		return err
	}

	list, err := loadPhrases(cfg, practicePhrases)
	if err != nil {
		return err
	}

	weakSet := map[string]struct{}{}
	if cfg.FocusWeak {
		aggs, err := a.store.RecentPhonemeAggregates(context.Background(), cfg.WeakWindow, cfg.Mode)
		if err != nil {
			logErrf("failed to load weak phonemes: %v\n", err)
		} else {
			weakSet = stats.SelectWeakPhonemes(aggs, cfg.WeakTop)
			if len(weakSet) == 0 {
				logErrln("no stats available for weak-phoneme focus yet; using normal prompts")
			}
		}
	}

	m, err := tui.NewModel(tui.Deps{
		Service:  a.history,
		Analyzer: a.analyzer(),
		Reader:   a.store,
		Gen:      generator.New(),
		Log:      logging.Component(a.log, "tui"),
	}, cfg, list, weakSet)
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// loadPhrases reads a custom list when one is configured, then a
// per-scenario file in the data dir, then the built-in set.
func loadPhrases(cfg model.Config, custom string) ([]string, error) {
	path := strings.TrimSpace(custom)
	if path == "" && cfg.Scenario != model.ScenarioNone {
		candidate := filepath.Join(config.DefaultPhrasesDir(), string(cfg.Scenario)+".txt")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path == "" {
		list, err := phrases.ForScenario(cfg.Scenario, cfg.Mode)
		if err != nil {
			return nil, fmt.Errorf("failed to load phrases: %w", err)
		}
		return list, nil
	}
	list, err := phrases.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load phrases from %s: %w", path, err)
	}
	if filtered := phrases.Filter(list, phrases.FilterForMode(cfg.Mode)); len(filtered) > 0 {
		list = filtered
	}
	return list, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		path = config.ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target *string, value string) {
	if flagChanged(cmd, name) {
		return
	}
	*target = value
}

func applyIntConfig(cmd *cobra.Command, name string, target *int, value int) {
	if flagChanged(cmd, name) {
		return
	}
	*target = value
}

func applyFloatConfig(cmd *cobra.Command, name string, target *float64, value float64) {
	if flagChanged(cmd, name) {
		return
	}
	*target = value
}

func applyBoolConfig(cmd *cobra.Command, name string, target *bool, value bool) {
	if flagChanged(cmd, name) {
		return
	}
	*target = value
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Changed
	}
	return false
}

func closeQuietly(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		// Best-effort close.
		_ = err
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
