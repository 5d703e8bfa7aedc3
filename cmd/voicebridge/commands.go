package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/voicebridge/internal/analyzer"
	"github.com/verte-zerg/voicebridge/internal/export"
	"github.com/verte-zerg/voicebridge/internal/model"
	"github.com/verte-zerg/voicebridge/internal/profile"
	"github.com/verte-zerg/voicebridge/internal/stats"
	"github.com/verte-zerg/voicebridge/internal/statsui"
)

const defaultCurveWindow = 10

var (
	analyzeExpected string
	analyzeParallel int

	statsMode        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool

	exportOut     string
	exportSession string
	exportMode    string

	resetYes bool
	clearYes bool
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Run one session from recorded clips",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAnalyzeCmd,
	}
	addPracticeFlags(cmd)
	cmd.Flags().StringVar(&analyzeExpected, "expected", "", "expected text for every clip")
	cmd.Flags().IntVar(&analyzeParallel, "parallel", 0, "concurrent analyzer requests (default from config)")
	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.practiceConfig(cmd)
	if err != nil {
		return err
	}
	parallel := analyzeParallel
	if parallel <= 0 {
		parallel = a.cfg.Analyzer.Parallel
	}

	reqs := make([]analyzer.Request, len(args))
	for i, path := range args {
		reqs[i] = analyzer.Request{AudioPath: path, ExpectedText: analyzeExpected}
	}
	closed, reward, err := a.history.Batch(cmd.Context(), a.analyzer(), cfg, reqs, parallel)
	if err != nil && closed.ID == "" {
		return err
	}

	out := cmd.OutOrStdout()
	if werr := writeSessionReport(out, closed, reward); werr != nil {
		return werr
	}
	return err
}

func writeSessionReport(w io.Writer, s model.PracticeSession, reward profile.Reward) error {
	if _, err := fmt.Fprintf(w, "Session %s (%d readings)\n", s.ID, len(s.MetricsHistory)); err != nil {
		return err
	}
	if s.FinalMetrics != nil {
		if err := stats.RenderMetrics(w, "Final", *s.FinalMetrics); err != nil {
			return err
		}
	}
	if s.Transcript != "" {
		if _, err := fmt.Fprintf(w, "Transcript: %s\n", s.Transcript); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "+%d stars, +%d xp", reward.Stars, reward.Experience); err != nil {
		return err
	}
	if reward.LeveledUp() {
		if _, err := fmt.Fprintf(w, ", level %d -> %d", reward.LevelBefore, reward.LevelAfter); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	for _, b := range reward.NewBadges {
		if _, err := fmt.Fprintf(w, "New badge: %s - %s\n", b.Name, b.Description); err != nil {
			return err
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsMode, "mode", "", "mode filter: child or adult")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print stats instead of opening the TUI")
	return cmd
}

func statsConfig(mode, since string, last, window int) (model.StatsConfig, error) {
	cfg := model.StatsConfig{Last: last, CurveWindow: window}
	if mode != "" {
		parsed, err := model.ParseMode(mode)
		if err != nil {
			return cfg, fmt.Errorf("invalid --mode value: %w", err)
		}
		cfg.Mode = parsed
	}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	return cfg, nil
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfig(statsMode, statsSince, statsLast, statsCurveWindow)
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if statsPlain {
		return writePlainStats(cmd.Context(), cmd.OutOrStdout(), a, cfg)
	}
	m := statsui.NewModel(a.store, a.profile, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func writePlainStats(ctx context.Context, w io.Writer, a *app, cfg model.StatsConfig) error {
	report, err := stats.BuildReport(ctx, a.store, cfg)
	if err != nil {
		return err
	}
	if err := stats.RenderSummary(w, report.Sessions); err != nil {
		return err
	}
	if err := stats.RenderCurves(w, report.Sessions, cfg.CurveWindow); err != nil {
		return err
	}
	return stats.RenderPhonemeTable(w, report.PhonemesAll)
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show profile and progress",
		Args:  cobra.NoArgs,
		RunE:  runProfileCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "name NAME",
		Short: "Set the display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				return a.profile.SetName(cmd.Context(), args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "mode MODE",
		Short: "Set the default practice mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := model.ParseMode(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				return a.profile.SetMode(cmd.Context(), mode)
			})
		},
	})
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset counters, keeping name and mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !resetYes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return withApp(cmd, func(a *app) error {
				return a.profile.Reset(cmd.Context())
			})
		},
	}
	reset.Flags().BoolVar(&resetYes, "yes", false, "confirm reset")
	cmd.AddCommand(reset)
	return cmd
}

func runProfileCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app) error {
		p := a.profile.Profile()
		progress := a.profile.Progress()
		name := p.Name
		if name == "" {
			name = "(unset)"
		}
		lines := []string{
			fmt.Sprintf("Name:      %s", name),
			fmt.Sprintf("Mode:      %s", p.Mode),
			fmt.Sprintf("Sessions:  %d (%d min)", p.TotalSessions, p.TotalMinutes),
			fmt.Sprintf("Streak:    %d days (best %d)", p.CurrentStreak, p.LongestStreak),
			fmt.Sprintf("Level:     %d (%d xp, %d to next)", progress.Level, progress.Experience, progress.ExperienceToNextLevel),
			fmt.Sprintf("Stars:     %d", progress.Stars),
		}
		for _, id := range progress.Badges {
			label := id
			if b, ok := profile.AllBadges[profile.BadgeID(id)]; ok {
				label = b.Name
			}
			lines = append(lines, fmt.Sprintf("Badge:     %s", label))
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
		return err
	})
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export sessions as JSON",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&exportSession, "session", "", "export one session by id")
	cmd.Flags().StringVar(&exportMode, "mode", "", "mode filter: child or adult")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfig(exportMode, "", 0, 0)
	if err != nil {
		return err
	}
	return withApp(cmd, func(a *app) error {
		ctx := cmd.Context()
		w := cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOut, err)
			}
			defer closeQuietly(f)
			w = f
		}
		now := time.Now()
		if exportSession != "" {
			s, err := a.history.Get(ctx, exportSession)
			if err != nil {
				if isNotFound(err) {
					return fmt.Errorf("no session %s", exportSession)
				}
				return err
			}
			return export.WriteSessions(w, []model.PracticeSession{s}, now)
		}
		sessions, err := export.Collect(ctx, a.store, cfg)
		if err != nil {
			return err
		}
		return export.WriteBundle(w, export.NewBundle(a.profile.Profile(), a.profile.Progress(), sessions, now))
	})
}

func newNotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Edit session notes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add ID TEXT",
		Short: "Append a note to a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				return a.history.AddNote(cmd.Context(), args[0], strings.Join(args[1:], " "))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set ID [NOTE...]",
		Short: "Replace the notes of a session; no notes clears them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				return a.history.UpdateNotes(cmd.Context(), args[0], args[1:])
			})
		},
	})
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				return a.history.Delete(cmd.Context(), args[0])
			})
		},
	}
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !clearYes {
				return fmt.Errorf("refusing to clear history without --yes")
			}
			return withApp(cmd, func(a *app) error {
				n, err := a.history.Clear(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d sessions\n", n)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deletion")
	return cmd
}

func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
