// Package main provides the CLI entrypoint for recall.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/recall/internal/config"
	"github.com/verte-zerg/recall/internal/generator"
	"github.com/verte-zerg/recall/internal/logging"
	"github.com/verte-zerg/recall/internal/model"
	"github.com/verte-zerg/recall/internal/round"
	"github.com/verte-zerg/recall/internal/stats"
	"github.com/verte-zerg/recall/internal/statsui"
	"github.com/verte-zerg/recall/internal/store"
	"github.com/verte-zerg/recall/internal/tui"
)

const (
	defaultChunk      = 3
	defaultPerDigitMs = 650
	defaultMinShowMs  = 1200
	defaultMaxShowMs  = 6000
	defaultLogLevel   = "info"
	defaultWindow     = 5
)

var (
	playSeed       int64
	playChunk      int
	playPerDigitMs int
	playMinShowMs  int
	playMaxShowMs  int
	playLogLevel   string

	statsSince  string
	statsLast   int
	statsWindow int
	statsPlain  bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "recall",
		Short:         "Digit span memory trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.Flags().Int64Var(&playSeed, "seed", 0, "seed for reproducible sequences")
	rootCmd.Flags().IntVar(&playChunk, "chunk", defaultChunk, "digits per display group")
	rootCmd.Flags().IntVar(&playPerDigitMs, "per-digit-ms", defaultPerDigitMs, "display time per digit (ms)")
	rootCmd.Flags().IntVar(&playMinShowMs, "min-show-ms", defaultMinShowMs, "minimum display time (ms)")
	rootCmd.Flags().IntVar(&playMaxShowMs, "max-show-ms", defaultMaxShowMs, "maximum display time (ms)")
	rootCmd.Flags().StringVar(&playLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newResetCmd())

	return rootCmd
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := resolvePlayConfig(cmd, fileCfg)
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger, logCloser, err := logging.OpenFile(config.DefaultLogPath(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logCloser.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	gen := generator.New()
	if cfg.HasSeed {
		gen = generator.NewSeeded(cfg.Seed)
	}

	sessionID := uuid.NewString()
	logger = logger.With().Str("session", sessionID).Logger()
	logger.Info().
		Int("chunk", cfg.Chunk).
		Int("per_digit_ms", cfg.PerDigitMs).
		Int("min_show_ms", cfg.MinShowMs).
		Int("max_show_ms", cfg.MaxShowMs).
		Bool("seeded", cfg.HasSeed).
		Msg("session started")

	events, notify := tui.Notifier()
	ctrl := round.NewController(round.Deps{
		Gen:       gen,
		Store:     st,
		Recorder:  st,
		Timing:    timingFromConfig(cfg),
		Chunk:     cfg.Chunk,
		SessionID: sessionID,
		Logger:    &logger,
		Notify:    notify,
	})
	defer ctrl.Close()

	program := tea.NewProgram(tui.NewModel(ctrl, events, cfg.Chunk), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	logger.Info().Int("best", ctrl.Snapshot().Best).Msg("session ended")
	return nil
}

func resolvePlayConfig(cmd *cobra.Command, fileCfg config.FileConfig) model.Config {
	applyIntConfig(cmd, "chunk", &playChunk, fileCfg.Game.Chunk)
	applyIntConfig(cmd, "per-digit-ms", &playPerDigitMs, fileCfg.Game.PerDigitMs)
	applyIntConfig(cmd, "min-show-ms", &playMinShowMs, fileCfg.Game.MinShowMs)
	applyIntConfig(cmd, "max-show-ms", &playMaxShowMs, fileCfg.Game.MaxShowMs)
	applyStringConfig(cmd, "log-level", &playLogLevel, fileCfg.Log.Level)
	hasSeed := cmd.Flags().Changed("seed")
	if !hasSeed && fileCfg.Game.Seed != nil {
		playSeed = *fileCfg.Game.Seed
		hasSeed = true
	}

	return model.Config{
		Chunk:      playChunk,
		PerDigitMs: playPerDigitMs,
		MinShowMs:  playMinShowMs,
		MaxShowMs:  playMaxShowMs,
		Seed:       playSeed,
		HasSeed:    hasSeed,
		LogLevel:   playLogLevel,
	}
}

func timingFromConfig(cfg model.Config) round.Timing {
	return round.Timing{
		PerDigit: time.Duration(cfg.PerDigitMs) * time.Millisecond,
		Min:      time.Duration(cfg.MinShowMs) * time.Millisecond,
		Max:      time.Duration(cfg.MaxShowMs) * time.Millisecond,
	}
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
	path := config.DefaultConfigPath()
	if err := writeConfigTemplate(path); err != nil {
		return err
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

// writeConfigTemplate creates the config file unless it already exists.
func writeConfigTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
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
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N rounds")
	cmd.Flags().IntVar(&statsWindow, "window", defaultWindow, "moving average window over session peaks")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a plain-text report")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStatsConfig(statsSince, statsLast, statsWindow)
	if err != nil {
		return err
	}

	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	chunk := defaultChunk
	if fileCfg.Game.Chunk != nil && *fileCfg.Game.Chunk > 0 {
		chunk = *fileCfg.Game.Chunk
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return writePlainStats(cmd.Context(), cmd.OutOrStdout(), st, cfg, chunk)
	}

	program := tea.NewProgram(statsui.NewModel(st, cfg, chunk), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func buildStatsConfig(since string, last, window int) (model.StatsConfig, error) {
	var sinceTime *time.Time
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if window < 1 {
		return model.StatsConfig{}, fmt.Errorf("--window must be >= 1")
	}
	return model.StatsConfig{
		Since:  sinceTime,
		Last:   last,
		Window: window,
	}, nil
}

func writePlainStats(ctx context.Context, w io.Writer, src stats.Source, cfg model.StatsConfig, chunk int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := stats.BuildReport(ctx, src, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := stats.WriteReport(w, report, chunk); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the best streak",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if err := st.DeleteKey(context.Background(), round.BestStreakKey); err != nil {
		return fmt.Errorf("failed to reset best streak: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), "Best streak reset."); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# recall configuration
# Uncomment a value to enable it. CLI flags override config values.

[game]
# chunk = %d              # Digits per display group
# per-digit-ms = %d      # Display time per digit (ms)
# min-show-ms = %d      # Minimum display time (ms)
# max-show-ms = %d      # Maximum display time (ms)
# seed = 42               # Fixed seed for reproducible sequences

[log]
# level = %q          # debug, info, warn or error
`,
		defaultChunk,
		defaultPerDigitMs,
		defaultMinShowMs,
		defaultMaxShowMs,
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Chunk <= 0 {
		return fmt.Errorf("--chunk must be > 0")
	}
	if cfg.PerDigitMs <= 0 {
		return fmt.Errorf("--per-digit-ms must be > 0")
	}
	if cfg.MinShowMs <= 0 {
		return fmt.Errorf("--min-show-ms must be > 0")
	}
	if cfg.MaxShowMs < cfg.MinShowMs {
		return fmt.Errorf("--max-show-ms must be >= --min-show-ms")
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
