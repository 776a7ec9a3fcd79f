package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/facultyscope/internal/model"
	"github.com/ppiankov/facultyscope/internal/observability"
)

// Version is set at build time
var Version = "v0.3.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "facultyscope",
	Short: "facultyscope - faculty and publication harvester",
	Long: `facultyscope harvests faculty profiles from university college directories,
folds duplicate records of the same person into one, and then searches the
library discovery service for the articles each member wrote.

A harvest runs in two stages:
  1. faculty: collect every configured college and merge the records
  2. papers:  search the library for each member and keep the articles
              whose text matches the member's research subject

Both stages write JSONL files that can be consumed independently.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("facultyscope %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.facultyscope/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("db", "", "SQLite run store path")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(configDir(home))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// envKeys are the scalar settings that can be overridden with FACULTYSCOPE_*
// variables, e.g. FACULTYSCOPE_LIBRARY_INSTITUTION
var envKeys = []string{
	"http.timeout", "http.user_agent", "http.max_attempts", "http.respect_robots",
	"http.insecure_tls", "http.http_proxy", "http.https_proxy", "http.no_proxy",
	"rate_limiting.requests_per_second", "rate_limiting.burst_size",
	"concurrency.member_fetches", "concurrency.paper_searches", "concurrency.score_workers",
	"cache.enabled", "cache.dir",
	"library.base_url", "library.institution", "library.limit", "library.max_attempts",
	"relevance.scheme", "relevance.threshold", "relevance.model", "relevance.base_url",
	"dedup.source_order",
	"output.faculty_path", "output.papers_path",
	"logging.level", "logging.format", "logging.output",
	"store.path", "metrics.addr",
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("FACULTYSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("relevance.api_key", "FACULTYSCOPE_RELEVANCE_API_KEY", "OPENAI_API_KEY")
}

// loadConfig overlays the settings known to v on the defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	// Configured lists replace the built-in ones instead of merging into them.
	if v.IsSet("colleges") {
		cfg.Colleges = nil
	}
	if v.IsSet("rate_limiting.hosts") {
		cfg.RateLimiting.Hosts = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Output.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *model.Config) zerolog.Logger {
	return observability.NewLogger(cfg.Logging)
}

func configDir(home string) string {
	return filepath.Join(home, ".facultyscope")
}
