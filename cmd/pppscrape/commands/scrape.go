package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/pppscrape/internal/browser"
	"github.com/jmylchreest/pppscrape/internal/logger"
	"github.com/jmylchreest/pppscrape/internal/output"
	"github.com/jmylchreest/pppscrape/internal/refine"
	"github.com/jmylchreest/pppscrape/internal/store"
	"github.com/jmylchreest/pppscrape/pkg/fetcher"
	"github.com/jmylchreest/pppscrape/pkg/pppscrape"
)

// errScrapeFailed makes the process exit non-zero after the error record
// has been written.
var errScrapeFailed = errors.New("scrape failed")

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract the PPP loan record for one business",
	Long: `Scrape one loan page and print the record.

The output always has the same keys; values that could not be found are
null and the notes field explains what was tried. When the page itself
cannot be loaded an error record is written instead and the command exits
non-zero.

Examples:
  pppscrape scrape -u "https://projects.propublica.org/coronavirus/bailouts/loans/..." \
      -b "Acme Widgets LLC" -o acme.json

  # Fill missing fields with an LLM and store the result on a submission
  pppscrape scrape -u "https://example.com/acme" -b "Acme Widgets LLC" \
      --refine --submission-id 42 --mongo-uri mongodb://localhost:27017`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()

	// Inputs
	flags.StringP("url", "u", "", "loan page URL (required)")
	flags.StringP("business-name", "b", "", "business name the page is about (required)")
	flags.String("html", "", "read the page from this saved HTML file instead of fetching it")

	// Fetch settings
	flags.Bool("dynamic", false, "render the page in headless Chrome")
	flags.Duration("timeout", 60*time.Second, "page load timeout")
	flags.String("user-agent", fetcher.DefaultUserAgent, "user agent")
	flags.Bool("stealth", false, "enable anti-bot detection evasion")
	flags.String("flaresolverr-url", "", "FlareSolverr API URL for Cloudflare bypass (e.g., http://localhost:8191/v1)")
	flags.String("wait-for", "", "CSS selector to wait for before capturing (dynamic)")
	flags.Duration("settle", 2*time.Second, "time to let the page settle after load (dynamic)")
	flags.Bool("dismiss-overlays", true, "close popups and modals before capturing (dynamic)")
	flags.String("debug-dir", "", "save debug HTML and screenshots to this directory")

	// Refinement
	flags.Bool("refine", false, "ask an LLM for fields the page layout did not yield")
	flags.StringP("provider", "p", "", "LLM provider: anthropic, openai, openrouter (auto-detects from env vars)")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")
	flags.String("base-url", "", "custom API base URL")

	// Output
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml")

	// Submission store
	flags.String("submission-id", "", "store the record as pppData on this submission")
	flags.String("mongo-uri", "", "MongoDB connection URI (or MONGODB_URI)")
	flags.String("mongo-database", store.DefaultDatabase, "MongoDB database")
	flags.String("mongo-collection", store.DefaultCollection, "MongoDB submissions collection")

	_ = scrapeCmd.MarkFlagRequired("url")
	_ = scrapeCmd.MarkFlagRequired("business-name")

	for key, flag := range map[string]string{
		"stealth":          "stealth",
		"flaresolverr_url": "flaresolverr-url",
		"debug_dir":        "debug-dir",
		"provider":         "provider",
		"model":            "model",
		"api_key":          "api-key",
		"base_url":         "base-url",
		"format":           "format",
		"mongo_uri":        "mongo-uri",
		"mongo_database":   "mongo-database",
		"mongo_collection": "mongo-collection",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func runScrape(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flags := cmd.Flags()
	url, _ := flags.GetString("url")
	businessName, _ := flags.GetString("business-name")
	timeout, _ := flags.GetDuration("timeout")
	userAgent, _ := flags.GetString("user-agent")
	waitFor, _ := flags.GetString("wait-for")

	format, err := output.ParseFormat(viper.GetString("format"))
	if err != nil {
		return err
	}
	outPath, _ := flags.GetString("output")
	if outPath != "" && !flags.Changed("format") {
		format = output.FormatForPath(outPath, format)
	}

	f := newFetcher(cmd, timeout, userAgent)

	opts := []pppscrape.Option{
		pppscrape.WithFetcher(f),
		pppscrape.WithUserAgent(userAgent),
		pppscrape.WithTimeout(timeout),
		pppscrape.WithWaitFor(waitFor, 0),
		pppscrape.WithDebugDir(viper.GetString("debug_dir")),
	}
	if refineOn, _ := flags.GetBool("refine"); refineOn {
		if r := newRefiner(); r != nil {
			opts = append(opts, pppscrape.WithRefiner(r))
		}
	}

	scraper, err := pppscrape.New(opts...)
	if err != nil {
		_ = f.Close()
		return err
	}
	defer func() { _ = scraper.Close() }()

	logInfo("Scraping %s (%s)", url, f.Type())
	res, err := scraper.Scrape(ctx, pppscrape.Request{URL: url, BusinessName: businessName})
	if err != nil {
		return err
	}

	if err := writeResult(res, outPath, format); err != nil {
		return err
	}

	if id, _ := flags.GetString("submission-id"); id != "" {
		// The record is already written; a store failure is reported but
		// does not change it.
		if err := saveSubmission(ctx, id, res); err != nil {
			logger.Error("failed to store submission", "submission_id", id, "error", err)
		}
	}

	if res.Failed() {
		logger.Error("no page obtained", "url", url, "error", res.Failure.Err)
		return errScrapeFailed
	}
	logInfo("Done: %s", url)
	return nil
}

func newFetcher(cmd *cobra.Command, timeout time.Duration, userAgent string) fetcher.Fetcher {
	flags := cmd.Flags()
	if path, _ := flags.GetString("html"); path != "" {
		return fetcher.NewFile(afero.NewOsFs(), path)
	}

	dynamic, _ := flags.GetBool("dynamic")
	if !dynamic {
		return fetcher.NewStatic(fetcher.StaticConfig{
			UserAgent: userAgent,
			Timeout:   timeout,
			Stealth:   viper.GetBool("stealth"),
		})
	}

	settle, _ := flags.GetDuration("settle")
	dismiss, _ := flags.GetBool("dismiss-overlays")
	return browser.New(browser.Config{
		UserAgent:       userAgent,
		Timeout:         timeout,
		Stealth:         viper.GetBool("stealth"),
		FlareSolverrURL: viper.GetString("flaresolverr_url"),
		SettleWait:      settle,
		DismissOverlays: dismiss,
	})
}

// newRefiner returns nil, after a warning, when no provider can be set up:
// refinement is optional and the record is still produced without it.
func newRefiner() *refine.Refiner {
	name := viper.GetString("provider")
	apiKey := viper.GetString("api_key")
	if name == "" {
		detected, key, err := refine.DetectProvider()
		if err != nil {
			logger.Warn("refinement disabled", "error", err)
			return nil
		}
		name = detected
		if apiKey == "" {
			apiKey = key
		}
	}
	if apiKey == "" {
		apiKey = providerKeyFromEnv(name)
	}

	p, err := refine.NewProvider(name, refine.ProviderConfig{
		APIKey:  apiKey,
		BaseURL: viper.GetString("base_url"),
		Model:   viper.GetString("model"),
	})
	if err != nil {
		logger.Warn("refinement disabled", "error", err)
		return nil
	}
	logger.Debug("refinement enabled", "provider", name)
	return refine.New(p)
}

func providerKeyFromEnv(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	}
	return ""
}

func writeResult(res *pppscrape.Result, path string, format output.Format) error {
	var dst io.Writer = os.Stdout
	if path != "" {
		file, err := output.Create(afero.NewOsFs(), path, format)
		if err != nil {
			return err
		}
		defer file.Close()
		dst = file
	}

	w, err := output.NewWriter(dst, format)
	if err != nil {
		return err
	}
	if err := w.Write(res.Document()); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if path != "" {
		logInfo("Wrote %s", path)
	}
	return nil
}

func saveSubmission(ctx context.Context, id string, res *pppscrape.Result) error {
	uri := viper.GetString("mongo_uri")
	if uri == "" {
		return fmt.Errorf("--submission-id needs --mongo-uri or MONGODB_URI")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	client, err := store.Connect(connectCtx, uri)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	subs := store.NewSubmissions(
		store.NewMongoProvider(client, viper.GetString("mongo_database")),
		viper.GetString("mongo_collection"),
	)
	if res.Failed() {
		return subs.SaveError(ctx, id, res.Failure)
	}
	return subs.SaveRecord(ctx, id, res.Record)
}
