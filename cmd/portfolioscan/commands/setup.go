package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/portfolioscan/internal/logger"
	"github.com/jmylchreest/portfolioscan/pkg/classifier"
	"github.com/jmylchreest/portfolioscan/pkg/extractor"
	"github.com/jmylchreest/portfolioscan/pkg/fetcher"
	"github.com/jmylchreest/portfolioscan/pkg/llm"
	"github.com/jmylchreest/portfolioscan/pkg/market"
	"github.com/jmylchreest/portfolioscan/pkg/portfolioscan"
)

// scanFlagKeys maps the flags shared by analyze and serve to viper keys.
var scanFlagKeys = map[string]string{
	"provider":       "provider",
	"model":          "model",
	"api-key":        "api_key",
	"base-url":       "base_url",
	"extractor":      "extractor",
	"sites":          "sites",
	"fetch-mode":     "fetch_mode",
	"user-agent":     "user_agent",
	"timeout":        "timeout",
	"max-body-size":  "max_body_size",
	"concurrency":    "concurrency",
	"public-company": "market.public_companies",
}

// addScanFlags registers the fetch, extraction and model flags.
func addScanFlags(flags *pflag.FlagSet) {
	// LLM settings
	flags.StringP("provider", "p", "", "LLM provider: "+strings.Join(llm.AvailableProviders(), ", ")+" (auto-detects from env vars)")
	flags.StringP("model", "m", "", "vision model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")
	flags.String("base-url", "", "custom API base URL")

	// Extraction settings
	flags.String("extractor", "cards", "page extractor: cards, mentions, auto")
	flags.String("sites", "", "YAML file with per-site CSS selectors")

	// Fetch settings
	flags.String("fetch-mode", "static", "fetch mode: static, dynamic, auto")
	flags.String("user-agent", "", "User-Agent header for page and logo requests")
	flags.Duration("timeout", 30*time.Second, "request timeout")
	flags.String("max-body-size", "10MB", "max response size per request (e.g., 512KB, 10MB)")
	flags.IntP("concurrency", "c", 4, "pages processed in parallel")

	// Public filter
	flags.StringSlice("public-company", nil, "company treated as publicly traded (can be repeated)")
}

// bindScanFlags binds the shared flags of cmd. Binding happens at run time
// because analyze and serve register flags under the same keys.
func bindScanFlags(cmd *cobra.Command, _ []string) error {
	for name, key := range scanFlagKeys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// newFetcher builds the page fetcher selected by fetch_mode.
func newFetcher() (fetcher.Fetcher, error) {
	cfg, err := staticConfig()
	if err != nil {
		return nil, err
	}

	switch mode := viper.GetString("fetch_mode"); mode {
	case "static", "":
		return fetcher.NewStatic(cfg), nil
	case "dynamic":
		return fetcher.NewDynamic(cfg)
	case "auto":
		return fetcher.NewAuto(cfg)
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s (use 'static', 'dynamic' or 'auto')", mode)
	}
}

func staticConfig() (fetcher.StaticConfig, error) {
	cfg := fetcher.StaticConfig{
		UserAgent: viper.GetString("user_agent"),
		Timeout:   viper.GetDuration("timeout"),
	}
	if s := strings.TrimSpace(viper.GetString("max_body_size")); s != "" && s != "0" {
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return cfg, fmt.Errorf("invalid max-body-size %q: %w", s, err)
		}
		cfg.MaxBodySize = int(n)
	}
	return cfg, nil
}

// newExtractor builds the named extractor, routed through site adapters
// when a sites file is configured.
func newExtractor() (extractor.Extractor, error) {
	ext, err := extractor.New(viper.GetString("extractor"))
	if err != nil {
		return nil, err
	}

	path := viper.GetString("sites")
	if path == "" {
		return ext, nil
	}
	sites, err := extractor.LoadSites(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("site adapters loaded", "path", path, "sites", len(sites))
	return extractor.NewRouter(ext, sites...), nil
}

// newProvider resolves the model provider from flags, config and the
// environment. Without any API key it falls back to a local Ollama.
func newProvider() (llm.Provider, error) {
	name := viper.GetString("provider")
	apiKey := viper.GetString("api_key")
	if name == "" {
		detected, key := llm.DetectProvider()
		name = detected
		if apiKey == "" {
			apiKey = key
		}
		if name == "ollama" {
			logger.Warn("no provider API key found, using local ollama")
		}
	} else if apiKey == "" {
		apiKey = llm.APIKeyFromEnv(name)
	}

	cfg := llm.DefaultProviderConfig()
	cfg.APIKey = apiKey
	cfg.Model = viper.GetString("model")
	cfg.BaseURL = viper.GetString("base_url")
	if viper.IsSet("llm.max_retries") {
		cfg.MaxRetries = viper.GetInt("llm.max_retries")
	}
	if viper.IsSet("llm.timeout") {
		cfg.Timeout = viper.GetDuration("llm.timeout")
	}

	p, err := llm.NewProvider(name, cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("provider ready", "provider", p.Name(), "model", p.Model())
	return llm.Observe(p, llm.ObserverFunc(logCall)), nil
}

// logCall reports every model call at debug level.
func logCall(ctx context.Context, e llm.CallEvent) {
	log := logger.Component("llm")
	if e.Error != nil {
		log.DebugContext(ctx, "model call failed",
			"provider", e.Provider,
			"model", e.Model,
			"images", e.Images,
			"duration", e.Duration,
			"error", e.Error)
		return
	}
	log.DebugContext(ctx, "model call",
		"provider", e.Provider,
		"model", e.Model,
		"images", e.Images,
		"answer", e.Response.Content,
		"input_tokens", e.Response.Usage.InputTokens,
		"output_tokens", e.Response.Usage.OutputTokens,
		"duration", e.Duration)
}

// newLookup returns the listing-status lookup: a static list when public
// companies are configured, the always-private stub otherwise.
func newLookup() market.Lookup {
	names := viper.GetStringSlice("market.public_companies")
	if len(names) == 0 {
		return market.Stub{}
	}
	l := market.NewStatic(names...)
	logger.Debug("public company list loaded", "companies", l.Len())
	return l
}

// pipeline holds the components shared by every scanner of a run.
type pipeline struct {
	fetcher   fetcher.Fetcher
	images    *fetcher.ImageLoader
	extractor extractor.Extractor
	provider  llm.Provider
	lookup    market.Lookup
}

// newPipeline builds the shared components. The provider is only created
// when withModel is set.
func newPipeline(withModel bool) (*pipeline, error) {
	f, err := newFetcher()
	if err != nil {
		return nil, err
	}

	p := &pipeline{fetcher: f, lookup: newLookup()}
	if p.extractor, err = newExtractor(); err != nil {
		_ = f.Close()
		return nil, err
	}

	// Logos are plain HTTP downloads even when pages need a browser.
	cfg, _ := staticConfig()
	p.images = fetcher.NewImageLoader(fetcher.NewStatic(cfg), fetcher.Options{})

	if withModel {
		if p.provider, err = newProvider(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return p, nil
}

// classifier returns the model-backed classifier, or nil without a provider.
func (p *pipeline) classifier() classifier.Classifier {
	if p.provider == nil {
		return nil
	}
	var opts []classifier.Option
	if viper.IsSet("classifier.max_tokens") {
		opts = append(opts, classifier.WithMaxTokens(viper.GetInt("classifier.max_tokens")))
	}
	if viper.IsSet("classifier.temperature") {
		opts = append(opts, classifier.WithTemperature(viper.GetFloat64("classifier.temperature")))
	}
	return classifier.NewModel(p.provider, p.images, opts...)
}

// scanner builds a scanner applying the named filter.
func (p *pipeline) scanner(filterName string) (*portfolioscan.Scanner, error) {
	filter, err := portfolioscan.FilterByName(filterName, p.classifier(), p.lookup)
	if err != nil {
		return nil, err
	}
	return portfolioscan.New(
		portfolioscan.WithFetcher(p.fetcher),
		portfolioscan.WithExtractor(p.extractor),
		portfolioscan.WithFilter(filter),
		portfolioscan.WithConcurrency(viper.GetInt("concurrency")),
	)
}

// Close releases the page fetcher. Scanners built from p share it.
func (p *pipeline) Close() error {
	if p.fetcher == nil {
		return nil
	}
	err := p.fetcher.Close()
	p.fetcher = nil
	return err
}

// needsModel reports whether filterName classifies with a model.
func needsModel(filterName string) bool {
	name := strings.ToLower(strings.TrimSpace(filterName))
	return name == portfolioscan.FilterAI || name == ""
}
