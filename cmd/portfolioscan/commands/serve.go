package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/portfolioscan/internal/logger"
	"github.com/jmylchreest/portfolioscan/internal/server"
	"github.com/jmylchreest/portfolioscan/pkg/portfolioscan"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis over HTTP",
	Long: `Start an HTTP server exposing the analysis.

Endpoints:
  POST /analyze         {"urls": [...]} -> {"recurring_ai_companies": {...}}
  POST /analyze/report  same body, returns per-page results and stats
  GET  /health

The request may set "filter" to ai, none or public.

Examples:
  portfolioscan serve
  portfolioscan serve --addr 127.0.0.1:8080 -p openai --allow-origin https://app.example.com`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindScanFlags(cmd, args); err != nil {
			return err
		}
		for name, key := range map[string]string{
			"addr":            "server.addr",
			"default-filter":  "server.default_filter",
			"request-timeout": "server.request_timeout",
			"max-urls":        "server.max_urls",
			"allow-origin":    "server.allow_origins",
		} {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return err
			}
		}
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	def := server.DefaultConfig()
	flags := serveCmd.Flags()
	flags.String("addr", def.Addr, "listen address")
	flags.String("default-filter", def.DefaultFilter, "filter used when a request names none")
	flags.Duration("request-timeout", def.RequestTimeout, "deadline for one analysis")
	flags.Int("max-urls", def.MaxURLs, "max pages per request (0=unlimited)")
	flags.StringSlice("allow-origin", def.AllowOrigins, "CORS allowed origin (can be repeated)")

	addScanFlags(flags)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := newPipeline(true)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = p.Close() }()

	analyzers := make(map[string]server.Analyzer, 3)
	for _, name := range []string{portfolioscan.FilterAI, portfolioscan.FilterNone, portfolioscan.FilterPublic} {
		s, err := p.scanner(name)
		if err != nil {
			logger.Error("failed to create scanner", "filter", name, "error", err)
			return err
		}
		analyzers[name] = s
	}

	cfg := server.DefaultConfig()
	cfg.Addr = viper.GetString("server.addr")
	cfg.DefaultFilter = viper.GetString("server.default_filter")
	cfg.MaxURLs = viper.GetInt("server.max_urls")
	cfg.AllowOrigins = viper.GetStringSlice("server.allow_origins")
	cfg.RequestTimeout = viper.GetDuration("server.request_timeout")

	srv, err := server.New(cfg, analyzers)
	if err != nil {
		return err
	}

	logInfo("portfolioscan listening on %s", cfg.Addr)
	return srv.ListenAndServe(ctx)
}
