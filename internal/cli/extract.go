package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/parishscope/internal/model"
	"github.com/ppiankov/parishscope/internal/pipeline"
)

var (
	outputPath string
	runTimeout time.Duration
	showStats  bool
)

var directoryCmd = &cobra.Command{
	Use:   "directory <url>",
	Short: "Extract parish records from a diocese directory page",
	Long: `Classifies the directory page layout and runs the matching extraction
strategy. Records are printed as JSON and persisted when --store is set.

Example:
  parishscope directory https://diocese.example.org/parishes
  parishscope directory https://diocese.example.org/parishes --browser --store parishes.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithEngine(cmd, func(ctx context.Context, e *pipeline.Engine) (any, error) {
			return e.ProcessDirectory(ctx, args[0])
		})
	},
}

var factsCmd = &cobra.Command{
	Use:   "facts <url>",
	Short: "Crawl a parish website for schedule facts",
	Long: `Runs a budgeted, keyword-prioritized crawl of a parish website and
resolves one fact per category (mass, confession, adoration, office hours).

Example:
  parishscope facts https://stmary.example.org
  parishscope facts https://stmary.example.org --rules rules.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithEngine(cmd, func(ctx context.Context, e *pipeline.Engine) (any, error) {
			facts, err := e.ProcessParishFacts(ctx, args[0])
			if err == nil && facts == nil {
				fmt.Fprintf(os.Stderr, "⚠ %s is not an owned parish website, skipped\n", args[0])
			}
			return facts, err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{directoryCmd, factsCmd} {
		c.Flags().StringVarP(&outputPath, "output", "o", "", "write JSON to file instead of stdout")
		c.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "overall timeout (0 = none)")
		c.Flags().BoolVar(&showStats, "stats", false, "print engine counters to stderr")
		rootCmd.AddCommand(c)
	}
}

func runWithEngine(cmd *cobra.Command, run func(context.Context, *pipeline.Engine) (any, error)) (err error) {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rt, err := pipeline.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			logger.Warn("shutdown", zap.Error(closeErr))
		}
	}()

	ctx, cancel := commandContext(runTimeout)
	defer cancel()

	result, err := run(ctx, rt.Engine)
	if err != nil {
		var sf *model.SiteFailure
		if errors.As(err, &sf) {
			return fmt.Errorf("site unreachable after %d failures: %w", sf.Failures, err)
		}
		return err
	}

	if showStats {
		_ = writeJSON(os.Stderr, rt.Engine.Stats())
	}
	return emit(cmd.OutOrStdout(), result)
}

// emit writes v as JSON to --output or w
func emit(w io.Writer, v any) (err error) {
	if outputPath == "" {
		return writeJSON(w, v)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output: %w", closeErr)
		}
	}()
	if err := writeJSON(f, v); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", outputPath)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}
