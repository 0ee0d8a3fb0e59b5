package fetcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/portfolioscan/internal/logger"
)

// AutoFetcher fetches statically and falls back to a browser when the
// static response fails or looks like a client-rendered shell.
type AutoFetcher struct {
	static   Fetcher
	fallback Fetcher
}

// NewAuto creates a fetcher pairing a static fetcher with a dynamic one.
func NewAuto(cfg StaticConfig) (*AutoFetcher, error) {
	dynamic, err := NewDynamic(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic fetcher: %w", err)
	}
	return &AutoFetcher{static: NewStatic(cfg), fallback: dynamic}, nil
}

// Fetch tries the static fetcher first.
func (f *AutoFetcher) Fetch(ctx context.Context, url string, opts Options) (Content, error) {
	log := logger.Component("fetcher")

	content, err := f.static.Fetch(ctx, url, opts)
	if err != nil {
		if ctx.Err() != nil {
			return content, err
		}
		log.Debug("static fetch failed, retrying in browser", "url", url, "error", err)
		return f.fallback.Fetch(ctx, url, opts)
	}

	if content.HTML != "" && NeedsJavaScript(content.HTML) {
		log.Debug("page needs javascript, retrying in browser", "url", url)
		return f.fallback.Fetch(ctx, url, opts)
	}
	return content, nil
}

// Close releases both fetchers.
func (f *AutoFetcher) Close() error {
	serr := f.static.Close()
	if err := f.fallback.Close(); err != nil {
		return err
	}
	return serr
}

// Type returns "auto".
func (f *AutoFetcher) Type() string {
	return "auto"
}

// Mount points left empty by single-page app frameworks until scripts run.
var appRoots = []string{
	"#root", "#app", "#__next", "#__nuxt", "#___gatsby", "app-root",
}

// minVisibleText is the body text length below which a page counts as empty.
const minVisibleText = 200

// NeedsJavaScript reports whether html looks like a page whose content is
// rendered client-side: an empty framework mount point, or almost no
// visible text alongside a noscript warning.
func NeedsJavaScript(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	doc.Find("script, style, template").Remove()

	for _, sel := range appRoots {
		root := doc.Find(sel).First()
		if root.Length() > 0 && strings.TrimSpace(root.Text()) == "" && root.Children().Length() == 0 {
			return true
		}
	}

	noscript := strings.ToLower(doc.Find("noscript").Text())
	doc.Find("noscript").Remove()
	if len(strings.TrimSpace(doc.Find("body").Text())) >= minVisibleText {
		return false
	}
	for _, hint := range []string{"javascript", "enable js", "browser"} {
		if strings.Contains(noscript, hint) {
			return true
		}
	}
	return false
}
