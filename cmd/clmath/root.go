package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/comroid-git/clmath/pkg/config"
	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/evaluator"
	"github.com/comroid-git/clmath/pkg/render"
	"github.com/comroid-git/clmath/pkg/runtime"
	"github.com/comroid-git/clmath/pkg/store"
	"github.com/comroid-git/clmath/pkg/units"
)

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool
	latex      bool
	angleFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "clmath",
	Short: "Command-line calculator with units and an equation solver",
	Long: `clmath evaluates math expressions with SI prefixes and physical units,
rearranges equations for a single variable and renders them as text or LaTeX.

Without a subcommand an interactive session starts.

Examples:
  clmath eval "230[V]*16[A]"
  clmath solve "frac(b+c)(2)*d = a" --for d
  clmath render --latex "sqrt(a^2+b^2)"`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		return exitCode(err)
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $CLMATH_CONFIG or ~/.config/clmath/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug records to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print diagnostics and listings as JSON")
	rootCmd.PersistentFlags().BoolVar(&latex, "latex", false, "render expressions as LaTeX")
	rootCmd.PersistentFlags().StringVar(&angleFlag, "angle", "", "angle mode for this run: deg, rad or grad")
}

// session bundles everything a command needs.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.SQLiteStore
	rt     *runtime.Runtime
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadFromEnv()
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, _ := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openSession loads the config, the unit catalogs and the store, and builds a runtime.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, os.Stderr)

	registry := units.NewRegistry(units.WithLogger(logger))
	if err := units.LoadDefaults(registry); err != nil {
		return nil, fmt.Errorf("load default catalogs: %w", err)
	}
	if err := units.LoadDir(registry, cfg.Units.Dir); err != nil {
		return nil, fmt.Errorf("load catalogs from %s: %w", cfg.Units.Dir, err)
	}

	st, err := store.NewSQLiteStore(store.Config{Path: cfg.Store.Path})
	if err != nil {
		return nil, err
	}
	constants := evaluator.NewConstants()
	if err := st.LoadConstants(ctx, constants); err != nil {
		st.Close()
		return nil, err
	}
	if stats, err := st.Statistics(ctx); err == nil {
		logger.Debug("store opened", "path", cfg.Store.Path, "functions", stats["functions"], "constants", stats["constants"])
	}

	mode := cfg.AngleMode()
	if angleFlag != "" {
		if mode, err = evaluator.ParseAngleMode(angleFlag); err != nil {
			st.Close()
			return nil, err
		}
	}

	var enabled []string
	for _, name := range cfg.Units.Enabled {
		if registry.HasCatalog(name) {
			enabled = append(enabled, name)
			continue
		}
		logger.Warn("configured catalog not found", "catalog", name)
	}

	rt, err := runtime.New(
		runtime.WithRegistry(registry),
		runtime.WithFunctions(st),
		runtime.WithConstants(constants),
		runtime.WithAngleMode(mode),
		runtime.WithMaxDepth(cfg.Engine.MaxDepth),
		runtime.WithCatalogs(enabled...),
		runtime.WithLogger(logger),
	)
	if err != nil {
		st.Close()
		return nil, err
	}
	logger.Debug("session opened", "config", cfg.Path(), "store", cfg.Store.Path, "catalogs", enabled)
	return &session{cfg: cfg, logger: logger, store: st, rt: rt}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// outputMode is the configured render mode unless --latex overrides it.
func (s *session) outputMode() render.Mode {
	if latex {
		return render.LaTeX
	}
	return s.cfg.OutputMode()
}

// saveCatalog writes catalog as a YAML bundle into the configured units directory.
func (s *session) saveCatalog(catalog string) error {
	bundle, err := s.rt.Registry().ExportBundle(catalog)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode catalog %s: %w", catalog, err)
	}
	if err := os.MkdirAll(s.cfg.Units.Dir, 0o755); err != nil {
		return fmt.Errorf("create units directory: %w", err)
	}
	path := filepath.Join(s.cfg.Units.Dir, catalog+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog %s: %w", catalog, err)
	}
	s.logger.Debug("catalog saved", "catalog", catalog, "path", path)
	return nil
}

// adapt turns a session helper into a cobra RunE.
func adapt(fn func(context.Context, *session, io.Writer, []string) error) func(*cobra.Command, []string) error {
	return withSession(func(s *session, cmd *cobra.Command, args []string) error {
		return fn(cmd.Context(), s, cmd.OutOrStdout(), args)
	})
}

// withSession opens a session around fn.
func withSession(fn func(*session, *cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(s, cmd, args)
	}
}

func printError(err error) {
	writeError(os.Stderr, isTerminal(os.Stderr), err)
}

// writeError prints err as diagnostics, colored only when color is set.
func writeError(w io.Writer, color bool, err error) {
	diags := runtime.Diagnose(err)
	if jsonOutput {
		fmt.Fprintln(w, diagnostics.FormatDiagnostics(diags, false))
		return
	}
	text := diagnostics.FormatDiagnostics(diags, true)
	if color {
		text = errorStyle.Render(text)
	}
	fmt.Fprintln(w, text)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var de *runtime.DiagnosticError
	if errors.As(err, &de) {
		return 2
	}
	return exitCodeForDiag(diagnostics.CodeOf(err))
}

func exitCodeForDiag(code string) int {
	switch code {
	case "":
		return 1
	case diagnostics.ELex, diagnostics.EParse:
		return 2
	case diagnostics.ETargetMissing, diagnostics.ETargetAmbiguous:
		return 3
	case diagnostics.EIO, diagnostics.EConfig, diagnostics.EStore:
		return 5
	default:
		return 4
	}
}
