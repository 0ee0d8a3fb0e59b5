package output

import (
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"

	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
	"github.com/jmylchreest/portfolioscan/pkg/portfolioscan"
)

// MarkdownWriter renders results as GitHub-flavored markdown tables.
type MarkdownWriter struct {
	w io.Writer
}

// NewMarkdownWriter creates a markdown writer.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{w: w}
}

// Write renders one result.
func (w *MarkdownWriter) Write(data any) error {
	md := markdown.NewMarkdown(w.w)

	switch v := data.(type) {
	case *portfolioscan.Report:
		writeReportMarkdown(md, v)
	case []portfolioscan.Summary:
		md.H2("Most Frequent Portfolio Companies")
		md.PlainText("")
		writeSummaryTable(md, v)
	case []portfolio.Entry:
		writeEntryTable(md, v)
	case map[string]map[string]int:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			md.H2(k)
			md.PlainText("")
			writeEntryTable(md, entriesFromMap(v[k]))
		}
	default:
		md.PlainTextf("%v", v)
	}
	return md.Build()
}

func writeReportMarkdown(md *markdown.Markdown, r *portfolioscan.Report) {
	s := r.Stats
	md.H1("Portfolio Scan")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Filter", r.Filter},
			{"Pages", humanize.Comma(int64(s.PagesTotal))},
			{"Failed pages", humanize.Comma(int64(s.PagesFailed))},
			{"Companies extracted", humanize.Comma(int64(s.Items))},
			{"Companies kept", humanize.Comma(int64(s.Kept))},
			{"Recurring", strconv.Itoa(s.RecurringCompanies)},
			{"Duration", s.Duration.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	if s.ClassifierFailures > 0 {
		md.Warningf("%d of %d classifications failed and were counted as no.",
			s.ClassifierFailures, s.ClassifierPositives+s.ClassifierNegatives+s.ClassifierSkipped+s.ClassifierFailures)
		md.PlainText("")
	}

	md.H2(r.Key)
	md.PlainText("")
	writeEntryTable(md, r.Recurring)

	md.H2("Pages")
	md.PlainText("")
	rows := make([][]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		status := "ok"
		if p.Error != "" {
			status = p.Error
		}
		rows = append(rows, []string{label(p.URL), strconv.Itoa(p.Items), strconv.Itoa(p.Kept), status})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Companies", "Kept", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeEntryTable(md *markdown.Markdown, entries []portfolio.Entry) {
	if len(entries) == 0 {
		md.PlainText("No recurring companies.")
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Company, strconv.Itoa(e.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Company", "Portfolios"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeSummaryTable(md *markdown.Markdown, summary []portfolioscan.Summary) {
	rows := make([][]string, 0, len(summary))
	for _, s := range summary {
		rows = append(rows, []string{s.Company, strconv.Itoa(s.PortfolioAppearances), s.PublicStatus})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Company", "Portfolio Appearances", "Public Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// Flush is a no-op; every Write is rendered immediately.
func (w *MarkdownWriter) Flush() error {
	return nil
}

// Close is a no-op.
func (w *MarkdownWriter) Close() error {
	return nil
}
