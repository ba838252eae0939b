package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/parishscope/internal/model"
	"github.com/ppiankov/parishscope/internal/store"
)

var parishesCmd = &cobra.Command{
	Use:   "parishes <directory-url>",
	Short: "List stored parish records extracted from a directory page",
	Long: `Reads back the records persisted for one directory page, without fetching.

Example:
  parishscope parishes https://diocese.example.org/parishes --store parishes.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		records, err := storedParishes(cmd.Context(), cfg.Store.Path, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%d records from %s\n", len(records), args[0])
		return emit(cmd.OutOrStdout(), records)
	},
}

func init() {
	parishesCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write JSON to file instead of stdout")
	rootCmd.AddCommand(parishesCmd)
}

func storedParishes(ctx context.Context, path, sourceURL string) (records []model.ParishRecord, err error) {
	if path == "" {
		return nil, fmt.Errorf("no store configured (use --store)")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return st.ListParishes(ctx, sourceURL)
}
