package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/portfolioscan/internal/logger"
	"github.com/jmylchreest/portfolioscan/internal/output"
	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
	"github.com/jmylchreest/portfolioscan/pkg/portfolioscan"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url...]",
	Short: "Report companies that recur across portfolio pages",
	Long: `Fetch each portfolio page, extract its companies, filter them and print
the names found on more than one page.

Filters:
  ai      keep companies a vision model classifies as AI (default)
  none    keep every company
  public  keep companies listed as publicly traded

Examples:
  portfolioscan analyze https://a16z.com/portfolio/ https://www.sequoiacap.com/our-companies/

  # Saved pages, no model needed
  portfolioscan analyze --filter none -f a16z.html -f sequoia.html

  # Top 20 ranked with listing status
  portfolioscan analyze --ranked --top 20 --format text \
      --public-company Databricks -u https://a16z.com/portfolio/ -u https://www.accel.com/companies`,
	PreRunE: bindScanFlags,
	RunE:    runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	flags := analyzeCmd.Flags()

	// Inputs
	flags.StringSliceP("url", "u", nil, "portfolio page URL (can be repeated)")
	flags.StringSliceP("file", "f", nil, "saved HTML page (can be repeated)")
	flags.String("filter", portfolioscan.FilterAI, "company filter: ai, none, public")

	// Output settings
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml, text, markdown")
	flags.Bool("report", false, "write the full report with per-page results and stats")
	flags.Bool("ranked", false, "write a ranked summary with listing status")
	flags.Int("top", 20, "rows in the ranked summary (0=all)")

	addScanFlags(flags)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sources, err := collectSources(cmd, args)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return cmd.Help()
	}

	filterName, _ := cmd.Flags().GetString("filter")
	logger.Debug("analyze command starting", "sources", len(sources), "filter", filterName)

	p, err := newPipeline(needsModel(filterName))
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = p.Close() }()

	scanner, err := p.scanner(filterName)
	if err != nil {
		logger.Error("failed to create scanner", "error", err)
		return err
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	logger.Info("starting analysis",
		"pages", len(sources),
		"filter", scanner.Filter().Name(),
		"extractor", scanner.Extractor().Name(),
		"concurrency", viper.GetInt("concurrency"))

	report, err := scanner.Analyze(ctx, sources)
	if err != nil {
		logger.Error("analysis aborted", "error", err)
		return err
	}

	if report.Stats.PagesFailed > 0 {
		logInfo("%d of %d pages failed; run with --debug for details",
			report.Stats.PagesFailed, report.Stats.PagesTotal)
	}

	var result any = report.Result()
	switch {
	case mustBool(cmd, "report"):
		result = report
	case mustBool(cmd, "ranked"):
		top, _ := cmd.Flags().GetInt("top")
		result = report.Summarize(ctx, p.lookup, top)
	}

	outFile := os.Stdout
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logger.Error("failed to create output file", "path", outPath, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		outFile = f
	}

	writer, err := output.NewWriter(outFile, format)
	if err != nil {
		logger.Error("failed to create output writer", "format", format, "error", err)
		return err
	}
	if err := writer.Write(result); err != nil {
		logger.Error("failed to write output", "error", err)
		return err
	}
	return writer.Close()
}

// collectSources merges positional URLs, --url values and saved pages,
// keeping their order.
func collectSources(cmd *cobra.Command, args []string) ([]portfolio.Source, error) {
	urls, _ := cmd.Flags().GetStringSlice("url")
	files, _ := cmd.Flags().GetStringSlice("file")

	sources := make([]portfolio.Source, 0, len(args)+len(urls)+len(files))
	for _, u := range append(append([]string{}, args...), urls...) {
		if u = strings.TrimSpace(u); u != "" {
			sources = append(sources, portfolio.Source{URL: u})
		}
	}
	for _, path := range files {
		src, err := readPage(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// readPage loads a saved page. A "path=url" value sets the URL that
// relative logo references resolve against.
func readPage(arg string) (portfolio.Source, error) {
	path, pageURL, _ := strings.Cut(arg, "=")
	data, err := os.ReadFile(path) //#nosec G304 -- user-specified input file
	if err != nil {
		return portfolio.Source{}, fmt.Errorf("read page: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return portfolio.Source{}, fmt.Errorf("read page: %s is empty", path)
	}
	return portfolio.Source{URL: pageURL, HTML: string(data)}, nil
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
