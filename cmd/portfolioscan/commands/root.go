// Package commands implements the CLI commands for portfolioscan.
package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/portfolioscan/internal/logger"
	"github.com/jmylchreest/portfolioscan/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "portfolioscan",
	Short: "Find companies that recur across VC portfolios",
	Long: `Portfolioscan scrapes venture capital portfolio pages, optionally asks a
vision model which companies are AI companies, and reports the names that
appear in more than one portfolio.

Examples:
  # Recurring AI companies across two portfolios
  portfolioscan analyze -u https://a16z.com/portfolio/ \
      -u https://www.sequoiacap.com/our-companies/

  # Every recurring company, ranked, as a table
  portfolioscan analyze --filter none --ranked --top 20 --format text \
      -u https://a16z.com/portfolio/ -u https://www.accel.com/companies

  # Use Anthropic instead of the auto-detected provider
  portfolioscan analyze -p anthropic -u https://a16z.com/portfolio/ \
      -u https://www.sequoiacap.com/our-companies/

  # Serve the HTTP API on :5000
  portfolioscan serve`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log_json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default ./.portfolioscan.yaml or $HOME/.portfolioscan.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file with API keys (ignored when missing)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("env_file", rootCmd.PersistentFlags().Lookup("env-file"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	// API keys from .env, without overriding the real environment.
	if err := godotenv.Load(viper.GetString("env_file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logError("load env file: %v", err)
	}

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// ./.portfolioscan.yaml, ~/.portfolioscan.yaml, then
		// $XDG_CONFIG_HOME/portfolioscan/.portfolioscan.yaml.
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, version.Name))
		viper.SetConfigName(".portfolioscan")
		viper.SetConfigType("yaml")
	}

	// Environment variables: PORTFOLIOSCAN_SERVER_ADDR sets server.addr.
	viper.SetEnvPrefix("PORTFOLIOSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Provider-specific keys (GEMINI_API_KEY etc.) are resolved per provider.
	_ = viper.BindEnv("api_key", "PORTFOLIOSCAN_API_KEY")

	// Read config file (ignore error if not found)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && viper.GetString("config") != "" {
			logError("read config: %v", err)
		}
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
