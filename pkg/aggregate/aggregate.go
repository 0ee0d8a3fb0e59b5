// Package aggregate counts company mentions across portfolio pages.
package aggregate

import (
	"sort"
	"strings"

	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
)

// MinRecurring is the smallest count reported as recurring.
const MinRecurring = 2

// FrequencyTable maps company names to mention counts and remembers the
// order in which each name was first seen.
type FrequencyTable struct {
	order  []string
	counts map[string]int
}

// NewFrequencyTable returns an empty table.
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{counts: make(map[string]int)}
}

// Count builds a table from a list of mentions. Blank names are ignored.
func Count(mentions []string) *FrequencyTable {
	t := NewFrequencyTable()
	for _, m := range mentions {
		t.Add(m)
	}
	return t
}

// Add records one mention of name.
func (t *FrequencyTable) Add(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if _, seen := t.counts[name]; !seen {
		t.order = append(t.order, name)
	}
	t.counts[name]++
}

// Get returns the count for name.
func (t *FrequencyTable) Get(name string) int {
	return t.counts[name]
}

// Len returns the number of distinct names.
func (t *FrequencyTable) Len() int {
	return len(t.order)
}

// Entries returns every entry in first-seen order.
func (t *FrequencyTable) Entries() []portfolio.Entry {
	out := make([]portfolio.Entry, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, portfolio.Entry{Company: name, Count: t.counts[name]})
	}
	return out
}

// Recurring returns entries with a count of at least MinRecurring,
// in first-seen order.
func (t *FrequencyTable) Recurring() []portfolio.Entry {
	out := make([]portfolio.Entry, 0)
	for _, name := range t.order {
		if c := t.counts[name]; c >= MinRecurring {
			out = append(out, portfolio.Entry{Company: name, Count: c})
		}
	}
	return out
}

// Ranked returns the recurring entries sorted by count, highest first.
// Equal counts keep their first-seen order.
func (t *FrequencyTable) Ranked() []portfolio.Entry {
	out := t.Recurring()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Recurring is shorthand for Count(mentions).Recurring().
func Recurring(mentions []string) []portfolio.Entry {
	return Count(mentions).Recurring()
}

// ToMap converts entries to a name->count map.
func ToMap(entries []portfolio.Entry) map[string]int {
	m := make(map[string]int, len(entries))
	for _, e := range entries {
		m[e.Company] = e.Count
	}
	return m
}
