package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/parishscope/internal/pipeline"
	"github.com/ppiankov/parishscope/internal/worker"
)

var (
	batchMode    string
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Process many directory or parish URLs from a file in parallel",
	Long: `Batch processes URLs concurrently:
- Read URLs from input file (one per line, # comments allowed)
- Run directory extraction or fact crawling per URL
- Write one JSON file per URL when --output-dir is set

Example:
  parishscope batch dioceses.txt --mode directory --store parishes.db
  parishscope batch parishes.txt --mode facts --concurrency 4 --output-dir ./facts`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchMode, "mode", string(worker.ModeDirectory), "what each URL is (directory, facts)")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (0 = config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "write one JSON file per URL to this directory")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 0, "total timeout for batch processing (0 = none)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	mode, err := worker.ParseMode(batchMode)
	if err != nil {
		return err
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	rt, err := pipeline.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			logger.Warn("shutdown", zap.Error(closeErr))
		}
	}()

	ctx, cancel := commandContext(batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n%s\n  Parishscope Batch Processing\n%s\n\n", rule, rule)
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Mode:         %s\n", mode)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	if cfg.Store.Path != "" {
		fmt.Fprintf(os.Stderr, "  Store:        %s\n", cfg.Store.Path)
	}
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(rt.Engine, cfg.Concurrency.Workers, cfg.Concurrency.QueueSize)
	processor.OnResult(func(r *worker.BatchResult) {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.URL, r.Error)
			return
		}
		switch r.Mode {
		case worker.ModeFacts:
			fmt.Fprintf(os.Stderr, "✓ %s (%d facts, %s)\n", r.URL, len(r.Facts), r.Duration.Round(time.Millisecond))
		default:
			fmt.Fprintf(os.Stderr, "✓ %s (%d parishes, %s)\n", r.URL, len(r.Parishes), r.Duration.Round(time.Millisecond))
		}
	})

	results, err := processor.ProcessFile(ctx, file, mode)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	success, failures := 0, 0
	for _, r := range results {
		if r.Error != nil {
			failures++
			continue
		}
		success++
		if outputDir == "" {
			continue
		}
		path := filepath.Join(outputDir, fmt.Sprintf("%04d-%s.json", r.Index, sanitizeFilename(r.URL)))
		if err := writeResultFile(path, r); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", r.URL, err)
		}
	}

	stats := rt.Engine.Stats()
	fmt.Fprintf(os.Stderr, "\n%s\n  Batch Complete\n%s\n\n", rule, rule)
	fmt.Fprintf(os.Stderr, "  Total:     %d URLs\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", success)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failures)
	fmt.Fprintf(os.Stderr, "  Records:   %d (rejected %d)\n", stats.Records, stats.Rejected)
	fmt.Fprintf(os.Stderr, "  Facts:     %d\n", stats.Facts)
	if outputDir != "" {
		fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

func writeResultFile(path string, r *worker.BatchResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if r.Mode == worker.ModeFacts {
		return writeJSON(f, r.Facts)
	}
	return writeJSON(f, r.Parishes)
}

// sanitizeFilename turns a URL into a safe file stem
func sanitizeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) > 100 {
		out = out[:100]
	}
	return string(out)
}
