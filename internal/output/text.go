package output

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
	"github.com/jmylchreest/portfolioscan/pkg/portfolioscan"
)

// TextWriter renders results as aligned columns for terminals.
type TextWriter struct {
	tw *tabwriter.Writer
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

// Write renders one result.
func (w *TextWriter) Write(data any) error {
	switch v := data.(type) {
	case *portfolioscan.Report:
		return w.writeReport(v)
	case []portfolioscan.Summary:
		return w.writeSummary(v)
	case []portfolio.Entry:
		return w.writeEntries(v)
	case map[string]map[string]int:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w.tw, "%s\n", k)
			if err := w.writeEntries(entriesFromMap(v[k])); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintf(w.tw, "%v\n", v)
		return err
	}
}

func (w *TextWriter) writeEntries(entries []portfolio.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w.tw, "  (no recurring companies)")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w.tw, "  %s\tfound in %d portfolios\n", e.Company, e.Count); err != nil {
			return err
		}
	}
	return nil
}

func (w *TextWriter) writeSummary(rows []portfolioscan.Summary) error {
	fmt.Fprintln(w.tw, "COMPANY\tPORTFOLIO APPEARANCES\tPUBLIC STATUS")
	for _, r := range rows {
		if _, err := fmt.Fprintf(w.tw, "%s\t%d\t%s\n", r.Company, r.PortfolioAppearances, r.PublicStatus); err != nil {
			return err
		}
	}
	return nil
}

func (w *TextWriter) writeReport(r *portfolioscan.Report) error {
	fmt.Fprintf(w.tw, "%s\n", r.Key)
	if err := w.writeEntries(r.Recurring); err != nil {
		return err
	}
	fmt.Fprintln(w.tw)
	for _, p := range r.Pages {
		status := fmt.Sprintf("%d items, %d kept", p.Items, p.Kept)
		if p.Error != "" {
			status = "failed: " + p.Error
		}
		fmt.Fprintf(w.tw, "  %s\t%s\n", label(p.URL), status)
	}
	s := r.Stats
	_, err := fmt.Fprintf(w.tw, "\n%s of %s pages failed, %s items, %s kept, %d recurring (%s)\n",
		humanize.Comma(int64(s.PagesFailed)), humanize.Comma(int64(s.PagesTotal)),
		humanize.Comma(int64(s.Items)), humanize.Comma(int64(s.Kept)),
		s.RecurringCompanies, s.Duration.Round(time.Millisecond))
	return err
}

// Flush writes buffered columns.
func (w *TextWriter) Flush() error {
	return w.tw.Flush()
}

// Close flushes the writer.
func (w *TextWriter) Close() error {
	return w.Flush()
}

func label(url string) string {
	if url == "" {
		return "(inline)"
	}
	return url
}

// entriesFromMap orders a result map by count, then name.
func entriesFromMap(m map[string]int) []portfolio.Entry {
	entries := make([]portfolio.Entry, 0, len(m))
	for name, count := range m {
		entries = append(entries, portfolio.Entry{Company: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Company < entries[j].Company
	})
	return entries
}

// lines expands slice results into one value per JSONL line.
func lines(data any) []any {
	switch v := data.(type) {
	case []portfolio.Entry:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []portfolioscan.Summary:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case map[string]map[string]int:
		var out []any
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, e := range entriesFromMap(v[k]) {
				out = append(out, e)
			}
		}
		return out
	default:
		return []any{data}
	}
}
