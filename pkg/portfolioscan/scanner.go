package portfolioscan

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/portfolioscan/internal/logger"
	"github.com/jmylchreest/portfolioscan/pkg/aggregate"
	"github.com/jmylchreest/portfolioscan/pkg/extractor"
	"github.com/jmylchreest/portfolioscan/pkg/fetcher"
	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
)

// Scanner runs the extract, filter and count pipeline over portfolio pages.
type Scanner struct {
	fetcher   fetcher.Fetcher
	extractor extractor.Extractor
	filter    Filter
	config    Config
}

// New creates a new Scanner.
func New(opts ...Option) (*Scanner, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
	}

	f := cfg.Fetcher
	if f == nil {
		f = fetcher.NewStatic(fetcher.StaticConfig{
			UserAgent:   cfg.UserAgent,
			Timeout:     cfg.Timeout,
			MaxBodySize: cfg.MaxBodySize,
		})
	}

	ext := cfg.Extractor
	if ext == nil {
		ext = extractor.NewHeuristic(extractor.CardsConfig())
	}

	filter := cfg.Filter
	if filter == nil {
		filter = NoFilter{}
	}

	return &Scanner{
		fetcher:   f,
		extractor: ext,
		filter:    filter,
		config:    cfg,
	}, nil
}

// Filter returns the configured filter.
func (s *Scanner) Filter() Filter {
	return s.filter
}

// Extractor returns the configured extractor.
func (s *Scanner) Extractor() extractor.Extractor {
	return s.extractor
}

// AnalyzeURLs fetches and analyzes each URL.
func (s *Scanner) AnalyzeURLs(ctx context.Context, urls []string) (*Report, error) {
	sources := make([]portfolio.Source, len(urls))
	for i, u := range urls {
		sources[i] = portfolio.Source{URL: u}
	}
	return s.Analyze(ctx, sources)
}

// Analyze extracts items from every source, keeps those accepted by the
// filter, and counts names that recur. Sources with inline HTML are not
// fetched.
//
// Failing pages are logged, counted in the report and skipped. The only
// error returned is the context's, when it is cancelled mid-run.
func (s *Scanner) Analyze(ctx context.Context, sources []portfolio.Source) (*Report, error) {
	start := time.Now()
	log := logger.Component("scanner")
	log.Info("analyzing portfolios",
		"pages", len(sources),
		"extractor", s.extractor.Name(),
		"filter", s.filter.Name(),
		"concurrency", s.config.Concurrency)

	pages := make([]PageResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pages[i] = s.scanPage(gctx, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Pages are merged in input order so the counting order is stable
	// regardless of which page finished first.
	table := aggregate.NewFrequencyTable()
	stats := Stats{PagesTotal: len(sources)}
	for i := range pages {
		p := &pages[i]
		for _, name := range p.mentions {
			table.Add(name)
		}
		stats.merge(p)
	}
	stats.UniqueCompanies = table.Len()

	report := &Report{
		Filter:    s.filter.Name(),
		Key:       ResultKey(s.filter.Name()),
		Recurring: table.Recurring(),
		Pages:     pages,
		Stats:     stats,
		table:     table,
	}
	report.Stats.RecurringCompanies = len(report.Recurring)
	report.Stats.Duration = time.Since(start)

	log.Info("analysis complete", report.Stats.logAttrs()...)
	return report, nil
}

// scanPage runs one page through fetch, extract and filter. Errors are
// recorded on the result and never returned.
func (s *Scanner) scanPage(ctx context.Context, src portfolio.Source) PageResult {
	log := logger.Component("scanner").With("url", src.Label())
	result := PageResult{URL: src.URL}

	if src.HTML == "" {
		if src.URL == "" {
			result.fail(fmt.Errorf("source has neither url nor html"))
			log.Warn("skipping page", "error", result.Error)
			return result
		}
		content, err := s.fetcher.Fetch(ctx, src.URL, fetcher.Options{
			UserAgent: s.config.UserAgent,
			Timeout:   s.config.Timeout,
		})
		if err != nil {
			result.fail(fmt.Errorf("fetch: %w", err))
			log.Warn("skipping page", "error", result.Error)
			return result
		}
		src.HTML = content.HTML
		if src.HTML == "" {
			// Some hosts serve portfolio markup as text/plain.
			if !fetcher.IsText(content.ContentType) {
				result.fail(fmt.Errorf("non-HTML response: %s", content.ContentType))
				log.Warn("skipping page", "error", result.Error)
				return result
			}
			log.Debug("parsing non-HTML text response", "content_type", content.ContentType)
			src.HTML = string(content.Body)
		}
		if content.FinalURL != "" {
			src.URL = content.FinalURL
		}
	}

	items, err := s.extractor.Extract(ctx, src)
	if err != nil {
		result.fail(fmt.Errorf("extract: %w", err))
		log.Warn("skipping page", "error", result.Error)
		return result
	}
	result.Items = len(items)
	log.Debug("extracted items", "items", len(items), "extractor", s.extractor.Name())

	j, explains := s.filter.(judger)
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		var keep bool
		if explains {
			judgment := j.Judge(ctx, item)
			result.count(judgment.Outcome)
			keep = judgment.Positive()
		} else {
			keep = s.filter.Keep(ctx, item)
		}
		if keep {
			result.Kept++
			result.mentions = append(result.mentions, item.Name)
		}
	}
	return result
}

// Close releases all resources.
func (s *Scanner) Close() error {
	if s.fetcher != nil {
		return s.fetcher.Close()
	}
	return nil
}
