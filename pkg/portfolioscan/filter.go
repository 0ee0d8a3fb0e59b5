package portfolioscan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/portfolioscan/pkg/classifier"
	"github.com/jmylchreest/portfolioscan/pkg/market"
	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
)

// Filter names accepted by FilterByName.
const (
	FilterNone   = "none"
	FilterAI     = "ai"
	FilterPublic = "public"
)

// ErrUnknownFilter is returned by FilterByName for unsupported names.
var ErrUnknownFilter = errors.New("unknown filter")

// Filter decides which extracted items are counted.
type Filter interface {
	Name() string
	Keep(ctx context.Context, item portfolio.Item) bool
}

// judger is implemented by filters that can explain their decision.
type judger interface {
	Judge(ctx context.Context, item portfolio.Item) classifier.Judgment
}

// NoFilter keeps every item.
type NoFilter struct{}

// Name implements Filter.
func (NoFilter) Name() string { return FilterNone }

// Keep implements Filter.
func (NoFilter) Keep(context.Context, portfolio.Item) bool { return true }

// AIFilter keeps items the classifier judges to be AI companies.
type AIFilter struct {
	Classifier classifier.Classifier
}

// Name implements Filter.
func (AIFilter) Name() string { return FilterAI }

// Keep implements Filter.
func (f AIFilter) Keep(ctx context.Context, item portfolio.Item) bool {
	return f.Judge(ctx, item).Positive()
}

// Judge returns the classifier's detailed judgment when it offers one.
func (f AIFilter) Judge(ctx context.Context, item portfolio.Item) classifier.Judgment {
	if j, ok := f.Classifier.(judger); ok {
		return j.Judge(ctx, item)
	}
	if f.Classifier.Classify(ctx, item) {
		return classifier.Judgment{Outcome: classifier.OutcomeYes}
	}
	return classifier.Judgment{Outcome: classifier.OutcomeNo}
}

// PublicFilter keeps items whose company is publicly traded.
type PublicFilter struct {
	Lookup market.Lookup
}

// Name implements Filter.
func (PublicFilter) Name() string { return FilterPublic }

// Keep implements Filter.
func (f PublicFilter) Keep(ctx context.Context, item portfolio.Item) bool {
	return f.Lookup.IsPublic(ctx, item.Name)
}

// FilterByName builds a filter from its name. An empty name selects the
// AI filter. c and l may be nil when the named filter does not need them.
func FilterByName(name string, c classifier.Classifier, l market.Lookup) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FilterNone:
		return NoFilter{}, nil
	case FilterAI, "":
		if c == nil {
			return nil, fmt.Errorf("filter %q requires a classifier", FilterAI)
		}
		return AIFilter{Classifier: c}, nil
	case FilterPublic:
		if l == nil {
			l = market.Stub{}
		}
		return PublicFilter{Lookup: l}, nil
	default:
		return nil, fmt.Errorf("%w: %q (use %s, %s or %s)", ErrUnknownFilter, name, FilterAI, FilterNone, FilterPublic)
	}
}

// ResultKey returns the response key used for a filter's results.
func ResultKey(filterName string) string {
	switch filterName {
	case FilterNone, "":
		return "recurring_companies"
	case FilterAI:
		return "recurring_ai_companies"
	case FilterPublic:
		return "recurring_public_companies"
	default:
		return "recurring_" + filterName + "_companies"
	}
}

var (
	_ Filter = NoFilter{}
	_ Filter = AIFilter{}
	_ Filter = PublicFilter{}
)
