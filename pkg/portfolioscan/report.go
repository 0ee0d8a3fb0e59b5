package portfolioscan

import (
	"context"
	"time"

	"github.com/jmylchreest/portfolioscan/pkg/aggregate"
	"github.com/jmylchreest/portfolioscan/pkg/classifier"
	"github.com/jmylchreest/portfolioscan/pkg/market"
	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
)

// PageResult describes what happened to one source.
type PageResult struct {
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Items int    `json:"items" yaml:"items"`
	Kept  int    `json:"kept" yaml:"kept"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	mentions []string
	failed   bool

	classifierPositives int
	classifierNegatives int
	classifierSkipped   int
	classifierFailures  int
}

func (p *PageResult) fail(err error) {
	p.failed = true
	p.Error = err.Error()
}

// count records a classifier outcome.
func (p *PageResult) count(o classifier.Outcome) {
	switch o {
	case classifier.OutcomeYes:
		p.classifierPositives++
	case classifier.OutcomeNo:
		p.classifierNegatives++
	case classifier.OutcomeSkipped:
		p.classifierSkipped++
	case classifier.OutcomeFailed:
		p.classifierFailures++
	}
}

// Stats summarises a run. Classifier counters stay zero for filters that
// do not classify.
type Stats struct {
	PagesTotal          int           `json:"pages_total" yaml:"pages_total"`
	PagesFailed         int           `json:"pages_failed" yaml:"pages_failed"`
	Items               int           `json:"items" yaml:"items"`
	Kept                int           `json:"kept" yaml:"kept"`
	UniqueCompanies     int           `json:"unique_companies" yaml:"unique_companies"`
	RecurringCompanies  int           `json:"recurring_companies" yaml:"recurring_companies"`
	ClassifierPositives int           `json:"classifier_positives" yaml:"classifier_positives"`
	ClassifierNegatives int           `json:"classifier_negatives" yaml:"classifier_negatives"`
	ClassifierSkipped   int           `json:"classifier_skipped" yaml:"classifier_skipped"`
	ClassifierFailures  int           `json:"classifier_failures" yaml:"classifier_failures"`
	Duration            time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

func (s *Stats) merge(p *PageResult) {
	if p.failed {
		s.PagesFailed++
	}
	s.Items += p.Items
	s.Kept += p.Kept
	s.ClassifierPositives += p.classifierPositives
	s.ClassifierNegatives += p.classifierNegatives
	s.ClassifierSkipped += p.classifierSkipped
	s.ClassifierFailures += p.classifierFailures
}

func (s Stats) logAttrs() []any {
	return []any{
		"pages", s.PagesTotal,
		"pages_failed", s.PagesFailed,
		"items", s.Items,
		"kept", s.Kept,
		"unique", s.UniqueCompanies,
		"recurring", s.RecurringCompanies,
		"classifier_positives", s.ClassifierPositives,
		"classifier_negatives", s.ClassifierNegatives,
		"classifier_skipped", s.ClassifierSkipped,
		"classifier_failures", s.ClassifierFailures,
		"duration", s.Duration,
	}
}

// Report is the outcome of Analyze.
type Report struct {
	Filter    string            `json:"filter" yaml:"filter"`
	Key       string            `json:"key" yaml:"key"`
	Recurring []portfolio.Entry `json:"recurring" yaml:"recurring"`
	Pages     []PageResult      `json:"pages" yaml:"pages"`
	Stats     Stats             `json:"stats" yaml:"stats"`

	table *aggregate.FrequencyTable
}

// Map returns the recurring companies as name to count.
func (r *Report) Map() map[string]int {
	return aggregate.ToMap(r.Recurring)
}

// Result returns the response body shape: the filter's result key mapped
// to the recurring companies.
func (r *Report) Result() map[string]map[string]int {
	return map[string]map[string]int{r.Key: r.Map()}
}

// Ranked returns the recurring companies by count, most frequent first.
func (r *Report) Ranked() []portfolio.Entry {
	if r.table == nil {
		return aggregate.NewFrequencyTable().Ranked()
	}
	return r.table.Ranked()
}

// Top returns at most n ranked entries. n <= 0 returns all of them.
func (r *Report) Top(n int) []portfolio.Entry {
	ranked := r.Ranked()
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Summary is one row of the ranked summary table.
type Summary struct {
	Company              string `json:"company" yaml:"company"`
	PortfolioAppearances int    `json:"portfolio_appearances" yaml:"portfolio_appearances"`
	PublicStatus         string `json:"public_status" yaml:"public_status"`
}

// Summarize returns the top n ranked companies annotated with their
// listing status. A nil lookup reports every company as private.
func (r *Report) Summarize(ctx context.Context, lookup market.Lookup, n int) []Summary {
	if lookup == nil {
		lookup = market.Stub{}
	}
	top := r.Top(n)
	rows := make([]Summary, 0, len(top))
	for _, e := range top {
		status := "Private"
		if lookup.IsPublic(ctx, e.Company) {
			status = "Public"
		}
		rows = append(rows, Summary{
			Company:              e.Company,
			PortfolioAppearances: e.Count,
			PublicStatus:         status,
		})
	}
	return rows
}
