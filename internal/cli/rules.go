package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/parishscope/internal/model"
	"github.com/ppiankov/parishscope/internal/score"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective relevance rules",
	Long: `Prints the keyword rules used to prioritize crawl links and score pages.
The output is a valid rules file: save it, edit weights, and pass it back
with --rules.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		lex, err := score.Load(cfg.Lexicon.RulesFile)
		if err != nil {
			return err
		}
		if cfg.Lexicon.RulesFile != "" {
			fmt.Fprintf(os.Stderr, "Rules file: %s\n", cfg.Lexicon.RulesFile)
		}
		return writeYAML(cmd.OutOrStdout(), struct {
			Rules []model.RelevanceRule `yaml:"rules"`
		}{Rules: lex.Rules()})
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
