package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/portfolioscan/pkg/extractor"
	"github.com/jmylchreest/portfolioscan/pkg/market"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringSliceP("url", "u", nil, "")
	cmd.Flags().StringSliceP("file", "f", nil, "")
	addScanFlags(cmd.Flags())
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	t.Cleanup(viper.Reset)
	if err := bindScanFlags(cmd, nil); err != nil {
		t.Fatalf("bindScanFlags() error = %v", err)
	}
	return cmd
}

func TestCollectSources(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "a16z.html")
	if err := os.WriteFile(page, []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := newTestCommand(t, "-u", "https://b.vc", "-f", page+"=https://a16z.com/portfolio/", "-u", " ")
	sources, err := collectSources(cmd, []string{"https://a.vc"})
	if err != nil {
		t.Fatalf("collectSources() error = %v", err)
	}

	if len(sources) != 3 {
		t.Fatalf("got %d sources, want 3: %+v", len(sources), sources)
	}
	if sources[0].URL != "https://a.vc" || sources[1].URL != "https://b.vc" {
		t.Errorf("URL order = %q, %q", sources[0].URL, sources[1].URL)
	}
	if sources[2].URL != "https://a16z.com/portfolio/" || sources[2].HTML != "<html></html>" {
		t.Errorf("saved page = %+v", sources[2])
	}
}

func TestCollectSources_MissingFile(t *testing.T) {
	cmd := newTestCommand(t, "-f", filepath.Join(t.TempDir(), "missing.html"))
	if _, err := collectSources(cmd, nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCollectSources_EmptyFile(t *testing.T) {
	page := filepath.Join(t.TempDir(), "empty.html")
	if err := os.WriteFile(page, []byte(" \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := newTestCommand(t, "-f", page+"=https://a16z.com/portfolio/")
	_, err := collectSources(cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Errorf("collectSources() error = %v, want empty file error", err)
	}
}

func TestNewFetcher(t *testing.T) {
	newTestCommand(t, "--max-body-size", "2MB")
	f, err := newFetcher()
	if err != nil {
		t.Fatalf("newFetcher() error = %v", err)
	}
	defer func() { _ = f.Close() }()
	if f.Type() != "static" {
		t.Errorf("Type() = %q, want static", f.Type())
	}

	viper.Set("fetch_mode", "carrier-pigeon")
	if _, err := newFetcher(); err == nil {
		t.Error("expected error for unknown fetch mode")
	}

	viper.Set("fetch_mode", "static")
	viper.Set("max_body_size", "lots")
	if _, err := newFetcher(); err == nil {
		t.Error("expected error for invalid size")
	}
}

func TestNewExtractor_Sites(t *testing.T) {
	sites := filepath.Join(t.TempDir(), "sites.yaml")
	data := "sites:\n  - host: a16z.com\n    item: .company\n    name: h3\n"
	if err := os.WriteFile(sites, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	newTestCommand(t, "--extractor", "auto", "--sites", sites)
	ext, err := newExtractor()
	if err != nil {
		t.Fatalf("newExtractor() error = %v", err)
	}
	if _, ok := ext.(*extractor.Router); !ok {
		t.Errorf("newExtractor() = %T, want *extractor.Router", ext)
	}

	viper.Set("extractor", "magic")
	if _, err := newExtractor(); err == nil {
		t.Error("expected error for unknown extractor")
	}
}

func TestNewProvider(t *testing.T) {
	for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(env, "")
	}

	newTestCommand(t)
	p, err := newProvider()
	if err != nil {
		t.Fatalf("newProvider() error = %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Name() = %q, want ollama fallback", p.Name())
	}

	viper.Set("provider", "anthropic")
	if _, err := newProvider(); err == nil {
		t.Error("expected missing API key error")
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	p, err = newProvider()
	if err != nil {
		t.Fatalf("newProvider() error = %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("Name() = %q, want anthropic", p.Name())
	}
}

func TestNewLookup(t *testing.T) {
	newTestCommand(t, "--public-company", "Databricks", "--public-company", "Stripe")
	l := newLookup()
	if _, ok := l.(*market.Static); !ok {
		t.Fatalf("newLookup() = %T, want *market.Static", l)
	}
	if !l.IsPublic(t.Context(), "databricks") {
		t.Error("expected Databricks to be public")
	}

	viper.Reset()
	if _, ok := newLookup().(market.Stub); !ok {
		t.Error("expected the stub without a public company list")
	}
}

func TestPipelineScanner(t *testing.T) {
	newTestCommand(t, "--concurrency", "2")
	p, err := newPipeline(false)
	if err != nil {
		t.Fatalf("newPipeline() error = %v", err)
	}
	defer func() { _ = p.Close() }()

	s, err := p.scanner("none")
	if err != nil {
		t.Fatalf("scanner(none) error = %v", err)
	}
	if s.Filter().Name() != "none" {
		t.Errorf("Filter() = %q", s.Filter().Name())
	}
	if _, err := p.scanner("ai"); err == nil {
		t.Error("ai filter without a provider should fail")
	}
	if _, err := p.scanner("unlisted"); err == nil {
		t.Error("expected error for unknown filter")
	}
}

func TestNeedsModel(t *testing.T) {
	tests := map[string]bool{"ai": true, "": true, " AI ": true, "none": false, "public": false}
	for name, want := range tests {
		if got := needsModel(name); got != want {
			t.Errorf("needsModel(%q) = %v, want %v", name, got, want)
		}
	}
}
