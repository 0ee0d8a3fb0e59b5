package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
)

// ErrNoExtractorAvailable is returned when a fallback chain is empty.
var ErrNoExtractorAvailable = errors.New("no extractor available")

// FallbackExtractor tries each extractor in order until one finds items.
// This is useful when a page layout is unknown (e.g., try cards, fall
// back to mentions).
type FallbackExtractor struct {
	extractors []Extractor
}

// NewFallback creates a fallback chain from the given extractors.
func NewFallback(extractors ...Extractor) *FallbackExtractor {
	return &FallbackExtractor{
		extractors: extractors,
	}
}

// Extract returns the first non-empty result. An extractor that errors is
// skipped; the last error is returned only if no extractor produced items
// and none succeeded.
func (f *FallbackExtractor) Extract(ctx context.Context, src portfolio.Source) ([]portfolio.Item, error) {
	if len(f.extractors) == 0 {
		return nil, ErrNoExtractorAvailable
	}

	var (
		lastErr   error
		succeeded bool
		tried     []string
	)
	for _, ext := range f.extractors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tried = append(tried, ext.Name())
		items, err := ext.Extract(ctx, src)
		if err != nil {
			lastErr = err
			continue
		}
		succeeded = true
		if len(items) > 0 {
			return items, nil
		}
	}

	if succeeded {
		return []portfolio.Item{}, nil
	}
	return nil, fmt.Errorf("all extractors failed (tried: %s): %w", strings.Join(tried, ", "), lastErr)
}

// Name returns the fallback chain name.
func (f *FallbackExtractor) Name() string {
	names := make([]string, 0, len(f.extractors))
	for _, ext := range f.extractors {
		names = append(names, ext.Name())
	}
	return "fallback(" + strings.Join(names, "->") + ")"
}

var _ Extractor = (*FallbackExtractor)(nil)
