// Package commands implements the pppscrape CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/pppscrape/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "pppscrape",
	Short: "Extract PPP loan records from disclosure pages",
	Long: `pppscrape turns a PPP loan disclosure page into a normalized record:
loan and forgiveness amounts for each draw, approval dates, the lender and
notes describing how each value was found.

ProPublica and SBA pages are read with source-specific layouts; any other
page falls back to a best-effort scan of the dollar figures on it.

Examples:
  # Scrape a ProPublica loan page
  pppscrape scrape -u "https://projects.propublica.org/coronavirus/bailouts/loans/..." \
      -b "Acme Widgets LLC"

  # Render the page in headless Chrome with anti-bot evasion
  pppscrape scrape -u "https://data.sba.gov/..." -b "Acme Widgets LLC" --dynamic --stealth

  # Re-run extraction over a saved page
  pppscrape scrape -u "https://example.com/acme" -b "Acme Widgets LLC" --html page.html`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log_json"),
			File:  viper.GetString("log_file"),
		})
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Close()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.pppscrape.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.Bool("log-json", false, "log as JSON")
	flags.String("log-file", "", "also log to this file, rotated by size")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("log_json", flags.Lookup("log-json"))
	_ = viper.BindPFlag("log_file", flags.Lookup("log-file"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".pppscrape")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PPPSCRAPE")
	viper.AutomaticEnv()

	_ = viper.BindEnv("mongo_uri", "PPPSCRAPE_MONGO_URI", "MONGODB_URI")

	// A missing config file is fine.
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logInfo prints a progress message to stderr unless quiet.
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
