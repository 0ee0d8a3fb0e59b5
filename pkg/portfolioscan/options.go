// Package portfolioscan provides the public API for finding companies that
// recur across venture capital portfolio pages.
package portfolioscan

import (
	"time"

	"github.com/jmylchreest/portfolioscan/pkg/extractor"
	"github.com/jmylchreest/portfolioscan/pkg/fetcher"
)

// Config holds all Scanner configuration.
type Config struct {
	// Pipeline components. Nil values are replaced with defaults.
	Fetcher   fetcher.Fetcher
	Extractor extractor.Extractor
	Filter    Filter

	// Fetch settings, used when Fetcher is nil
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int

	// Concurrency is the number of pages processed at once.
	Concurrency int
}

// Chrome user agent for better compatibility with bot-protected sites
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultConfig returns sensible defaults: sequential processing, the
// cards heuristic and no filtering.
func DefaultConfig() Config {
	return Config{
		UserAgent:   defaultUserAgent,
		Timeout:     30 * time.Second,
		MaxBodySize: fetcher.DefaultMaxBodySize,
		Concurrency: 1,
	}
}

// Option configures a Scanner.
type Option func(*Config)

// WithFetcher injects the fetcher used for pages without inline HTML.
// The scanner closes it on Close.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithExtractor sets the portfolio item extractor.
func WithExtractor(e extractor.Extractor) Option {
	return func(c *Config) {
		c.Extractor = e
	}
}

// WithFilter sets the item filter applied before counting.
func WithFilter(f Filter) Option {
	return func(c *Config) {
		c.Filter = f
	}
}

// WithConcurrency sets how many pages are processed at once.
func WithConcurrency(n int) Option {
	return func(c *Config) {
		c.Concurrency = n
	}
}

// WithTimeout sets the per-request fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithUserAgent sets the HTTP user agent.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithMaxBodySize caps the size of fetched pages in bytes.
func WithMaxBodySize(n int) Option {
	return func(c *Config) {
		c.MaxBodySize = n
	}
}
