package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/parishscope/internal/logging"
	"github.com/ppiankov/parishscope/internal/model"
)

// Version is stamped at build time
var Version = "v0.3.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "parishscope",
	Short: "Parishscope - parish directory and Mass schedule extraction",
	Long: `Parishscope turns diocese directory pages into parish records and
crawls parish websites for liturgical schedule facts (Mass, confession,
adoration, office hours).

Directory pages are classified by layout (table, cards, search widget,
map, iframe, hover menu) and handed to a matching extraction strategy.
Parish sites are explored with a budgeted, keyword-prioritized crawl.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "parishscope %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.parishscope/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("store", "", "SQLite database path (empty = do not persist)")
	pf.String("rules", "", "relevance rules YAML file (empty = built-in lexicon)")
	pf.Bool("browser", false, "render pages in Chrome")
	pf.String("browser-url", "", "WebSocket URL of a remote Chrome")
	pf.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	pf.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	pf.Bool("no-cache", false, "disable the page cache")
	pf.String("classifier", "", "content classifier provider (openai, anthropic, ollama)")
	pf.String("classifier-model", "", "content classifier model")

	bindFlag("verbose", "verbose")
	bindFlag("logging.level", "log-level")
	bindFlag("store.path", "store")
	bindFlag("lexicon.rules_file", "rules")
	bindFlag("browser.enabled", "browser")
	bindFlag("browser.remote_url", "browser-url")
	bindFlag("http.http_proxy", "http-proxy")
	bindFlag("http.https_proxy", "https-proxy")
	bindFlag("classifier.provider", "classifier")
	bindFlag("classifier.model", "classifier-model")
	bindFlag("no-cache", "no-cache")

	rootCmd.AddCommand(versionCmd)
}

func bindFlag(key, flag string) {
	_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".parishscope"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// PARISHSCOPE_HTTP_TIMEOUT overrides http.timeout
	viper.SetEnvPrefix("PARISHSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("classifier.api_key")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults teaches viper every config key so env overrides apply
// even when no config file sets them
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return err
	}
	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok && len(sub) > 0 {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig resolves the effective configuration
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if v.GetBool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if v.GetBool("verbose") {
		cfg.Logging.Level = "debug"
	}

	if cfg.Classifier.APIKey == "" {
		switch strings.ToLower(cfg.Classifier.Provider) {
		case "openai":
			cfg.Classifier.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.Classifier.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.Classifier.BaseURL == "" && strings.EqualFold(cfg.Classifier.Provider, "ollama") {
		cfg.Classifier.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if cfg.Concurrency.Workers <= 0 && cfg.Browser.Enabled {
		cfg.Concurrency.Workers = cfg.Browser.MaxSessions
	}

	return cfg, nil
}

// setup loads configuration and builds the logger for a command run
func setup() (*model.Config, *zap.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// commandContext is cancelled by SIGINT/SIGTERM or after timeout (0 = none)
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}
