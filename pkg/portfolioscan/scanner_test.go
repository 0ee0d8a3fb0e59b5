package portfolioscan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/jmylchreest/portfolioscan/pkg/classifier"
	"github.com/jmylchreest/portfolioscan/pkg/fetcher"
	"github.com/jmylchreest/portfolioscan/pkg/llm"
	"github.com/jmylchreest/portfolioscan/pkg/market"
	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
)

// Page workers must all have exited when Analyze returns. The genai client
// pulls in opencensus, whose stats worker runs for the life of the process.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

const acmeCard = `<div class="portfolio-item"><h3>Acme Corp</h3></div>`

// mapFetcher serves pages from memory. Unknown URLs fail with a 404.
type mapFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	images map[string][]byte
	calls  []string
	closed bool
}

func (m *mapFetcher) Fetch(_ context.Context, url string, _ fetcher.Options) (fetcher.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, url)
	if html, ok := m.pages[url]; ok {
		return fetcher.Content{URL: url, Body: []byte(html), HTML: html, StatusCode: 200, ContentType: "text/html"}, nil
	}
	if img, ok := m.images[url]; ok {
		return fetcher.Content{URL: url, Body: img, StatusCode: 200, ContentType: "image/png"}, nil
	}
	return fetcher.Content{}, fmt.Errorf("%w: 404", fetcher.ErrHTTPStatus)
}

func (m *mapFetcher) Close() error {
	m.closed = true
	return nil
}

func (m *mapFetcher) Type() string { return "map" }

// scriptedProvider answers by company name found in the prompt.
type scriptedProvider struct {
	answers map[string]string
	fail    map[string]bool
	calls   atomic.Int32
}

func (p *scriptedProvider) Execute(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.calls.Add(1)
	prompt := req.Messages[0].Content
	for name := range p.fail {
		if strings.Contains(prompt, "Name: "+name+"\n") {
			return nil, errors.New("quota exceeded")
		}
	}
	for name, answer := range p.answers {
		if strings.Contains(prompt, "Name: "+name+"\n") {
			return &llm.Response{Content: answer}, nil
		}
	}
	return &llm.Response{Content: "no"}, nil
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-1" }

var pngLogo = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func card(name, logo string) string {
	return fmt.Sprintf(`<div class="portfolio-card"><img src="%s"><h3>%s</h3><p class="description">%s does things.</p></div>`, logo, name, name)
}

func newScanner(t *testing.T, opts ...Option) *Scanner {
	t.Helper()
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAnalyze_TwoPagesUnfiltered(t *testing.T) {
	s := newScanner(t, WithFetcher(&mapFetcher{}))

	report, err := s.Analyze(context.Background(), []portfolio.Source{
		{URL: "https://vc1.example/portfolio", HTML: acmeCard},
		{URL: "https://vc2.example/portfolio", HTML: acmeCard},
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	want := map[string]map[string]int{"recurring_companies": {"Acme Corp": 2}}
	if diff := cmp.Diff(want, report.Result()); diff != "" {
		t.Errorf("Result() mismatch (-want +got):\n%s", diff)
	}
	if report.Stats.Items != 2 || report.Stats.PagesFailed != 0 || report.Stats.UniqueCompanies != 1 {
		t.Errorf("Stats = %+v", report.Stats)
	}
}

func TestAnalyze_FetchesURLsAndSkipsFailures(t *testing.T) {
	f := &mapFetcher{pages: map[string]string{
		"https://vc1.example/": acmeCard,
		"https://vc2.example/": acmeCard + `<div class="company"><h3>Beta</h3></div>`,
	}}
	s := newScanner(t, WithFetcher(f))

	report, err := s.AnalyzeURLs(context.Background(), []string{
		"https://vc1.example/",
		"https://down.example/",
		"https://vc2.example/",
	})
	if err != nil {
		t.Fatalf("AnalyzeURLs() error = %v", err)
	}

	if diff := cmp.Diff(map[string]int{"Acme Corp": 2}, report.Map()); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}
	if report.Stats.PagesTotal != 3 || report.Stats.PagesFailed != 1 {
		t.Errorf("Stats = %+v", report.Stats)
	}
	if report.Pages[1].Error == "" || !strings.Contains(report.Pages[1].Error, "fetch") {
		t.Errorf("expected fetch error on second page, got %+v", report.Pages[1])
	}
	if report.Pages[2].Items != 2 {
		t.Errorf("third page items = %d, want 2", report.Pages[2].Items)
	}
}

func TestAnalyze_TextPlainPagesAreParsed(t *testing.T) {
	mux := http.NewServeMux()
	for _, path := range []string{"/vc1", "/vc2"} {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(acmeCard))
		})
	}
	mux.HandleFunc("/logo.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngLogo)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newScanner(t, WithFetcher(fetcher.NewStatic(fetcher.DefaultStaticConfig())))
	report, err := s.AnalyzeURLs(context.Background(), []string{
		srv.URL + "/vc1",
		srv.URL + "/vc2",
		srv.URL + "/logo.png",
	})
	if err != nil {
		t.Fatalf("AnalyzeURLs() error = %v", err)
	}

	if diff := cmp.Diff(map[string]int{"Acme Corp": 2}, report.Map()); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}
	if report.Stats.Items != 2 || report.Stats.PagesFailed != 1 {
		t.Errorf("Stats = %+v", report.Stats)
	}
	if !strings.Contains(report.Pages[2].Error, "non-HTML response") {
		t.Errorf("image page error = %q, want non-HTML response", report.Pages[2].Error)
	}
}

func TestAnalyze_AllPagesFailStillReturnsEmptyResult(t *testing.T) {
	s := newScanner(t, WithFetcher(&mapFetcher{}))

	report, err := s.AnalyzeURLs(context.Background(), []string{"https://a.example/", "https://b.example/"})
	if err != nil {
		t.Fatalf("AnalyzeURLs() error = %v", err)
	}
	if got := report.Map(); got == nil || len(got) != 0 {
		t.Errorf("Map() = %#v, want empty non-nil map", got)
	}
	if report.Stats.PagesFailed != 2 {
		t.Errorf("PagesFailed = %d", report.Stats.PagesFailed)
	}
}

func TestAnalyze_AIFilter(t *testing.T) {
	f := &mapFetcher{images: map[string][]byte{
		"https://cdn.example/acme.png":  pngLogo,
		"https://cdn.example/gamma.png": pngLogo,
		"https://cdn.example/delta.png": pngLogo,
	}}
	provider := &scriptedProvider{
		answers: map[string]string{"Acme Corp": "Yes", "Gamma AI": " yes \n"},
		fail:    map[string]bool{"Delta": true},
	}
	model := classifier.NewModel(provider, fetcher.NewImageLoader(f, fetcher.Options{}))

	page := card("Acme Corp", "https://cdn.example/acme.png") +
		card("Gamma AI", "https://cdn.example/gamma.png") +
		card("Delta", "https://cdn.example/delta.png") +
		card("Beta", "https://cdn.example/missing.png") +
		`<div class="portfolio-card"><h3>Epsilon</h3></div>`

	s := newScanner(t, WithFetcher(f), WithFilter(AIFilter{Classifier: model}))
	report, err := s.Analyze(context.Background(), []portfolio.Source{{HTML: page}, {HTML: page}})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	want := map[string]map[string]int{"recurring_ai_companies": {"Acme Corp": 2, "Gamma AI": 2}}
	if diff := cmp.Diff(want, report.Result()); diff != "" {
		t.Errorf("Result() mismatch (-want +got):\n%s", diff)
	}

	st := report.Stats
	if st.ClassifierPositives != 4 || st.ClassifierFailures != 4 || st.ClassifierSkipped != 2 || st.ClassifierNegatives != 0 {
		t.Errorf("classifier stats = %+v", st)
	}
	if st.PagesFailed != 0 {
		t.Errorf("classifier failures must not fail pages: %+v", st)
	}
	// Epsilon has no logo and Beta's logo is missing, so only three companies
	// per page reach the model.
	if got := provider.calls.Load(); got != 6 {
		t.Errorf("model calls = %d, want 6", got)
	}
}

func TestAnalyze_AIFilterWithPlainClassifier(t *testing.T) {
	c := classifier.Func(func(_ context.Context, item portfolio.Item) bool { return item.Name == "Acme Corp" })
	s := newScanner(t, WithFetcher(&mapFetcher{}), WithFilter(AIFilter{Classifier: c}))

	page := acmeCard + `<div class="portfolio-item"><h3>Beta</h3></div>`
	report, err := s.Analyze(context.Background(), []portfolio.Source{{HTML: page}, {HTML: page}})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if diff := cmp.Diff(map[string]int{"Acme Corp": 2}, report.Map()); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}
	if report.Stats.ClassifierPositives != 2 || report.Stats.ClassifierNegatives != 2 {
		t.Errorf("Stats = %+v", report.Stats)
	}
}

func TestAnalyze_PublicFilter(t *testing.T) {
	page := acmeCard + `<div class="portfolio-item"><h3>Alphabet</h3></div>`
	sources := []portfolio.Source{{HTML: page}, {HTML: page}}

	stub := newScanner(t, WithFetcher(&mapFetcher{}), WithFilter(PublicFilter{Lookup: market.Stub{}}))
	report, err := stub.Analyze(context.Background(), sources)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(report.Map()) != 0 || report.Key != "recurring_public_companies" {
		t.Errorf("stub lookup should keep nothing: %v", report.Result())
	}

	static := newScanner(t, WithFetcher(&mapFetcher{}), WithFilter(PublicFilter{Lookup: market.NewStatic("alphabet")}))
	report, err = static.Analyze(context.Background(), sources)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if diff := cmp.Diff(map[string]int{"Alphabet": 2}, report.Map()); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze_ConcurrencyKeepsInputOrder(t *testing.T) {
	pages := make(map[string]string)
	var urls []string
	for i := 0; i < 12; i++ {
		u := fmt.Sprintf("https://vc%d.example/", i)
		urls = append(urls, u)
		// Each page repeats a shared pair so every name recurs.
		pages[u] = fmt.Sprintf(`<div class="company"><h3>Co%d</h3></div><div class="company"><h3>Co%d</h3></div>`, i, i)
	}
	s := newScanner(t, WithFetcher(&mapFetcher{pages: pages}), WithConcurrency(4))

	report, err := s.AnalyzeURLs(context.Background(), urls)
	if err != nil {
		t.Fatalf("AnalyzeURLs() error = %v", err)
	}
	if len(report.Recurring) != 12 {
		t.Fatalf("recurring = %d, want 12", len(report.Recurring))
	}
	for i, e := range report.Recurring {
		if want := fmt.Sprintf("Co%d", i); e.Company != want || e.Count != 2 {
			t.Errorf("Recurring[%d] = %+v, want %s x2", i, e, want)
		}
	}
}

func TestAnalyze_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newScanner(t, WithFetcher(&mapFetcher{}))
	if _, err := s.Analyze(ctx, []portfolio.Source{{HTML: acmeCard}}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNew_InvalidConcurrency(t *testing.T) {
	if _, err := New(WithConcurrency(0)); err == nil {
		t.Error("expected error for zero concurrency")
	}
}

func TestClose_ClosesFetcher(t *testing.T) {
	f := &mapFetcher{}
	s, err := New(WithFetcher(f))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !f.closed {
		t.Error("expected fetcher to be closed")
	}
}

func TestReport_TopAndSummarize(t *testing.T) {
	s := newScanner(t, WithFetcher(&mapFetcher{}))

	mk := func(names ...string) portfolio.Source {
		var b strings.Builder
		for _, n := range names {
			fmt.Fprintf(&b, `<div class="company"><h3>%s</h3></div>`, n)
		}
		return portfolio.Source{HTML: b.String()}
	}
	report, err := s.Analyze(context.Background(), []portfolio.Source{
		mk("Beta", "Acme", "Solo"),
		mk("Acme", "Beta"),
		mk("Acme"),
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	wantRanked := []portfolio.Entry{{Company: "Acme", Count: 3}, {Company: "Beta", Count: 2}}
	if diff := cmp.Diff(wantRanked, report.Ranked()); diff != "" {
		t.Errorf("Ranked() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantRanked[:1], report.Top(1)); diff != "" {
		t.Errorf("Top(1) mismatch (-want +got):\n%s", diff)
	}
	if got := report.Top(0); len(got) != 2 {
		t.Errorf("Top(0) = %v", got)
	}

	rows := report.Summarize(context.Background(), market.NewStatic("Beta"), 20)
	wantRows := []Summary{
		{Company: "Acme", PortfolioAppearances: 3, PublicStatus: "Private"},
		{Company: "Beta", PortfolioAppearances: 2, PublicStatus: "Public"},
	}
	if diff := cmp.Diff(wantRows, rows); diff != "" {
		t.Errorf("Summarize() mismatch (-want +got):\n%s", diff)
	}
}
