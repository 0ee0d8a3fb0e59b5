// Package extractor turns portfolio page markup into company records.
//
// Extraction strategies are interchangeable: the heuristic extractor matches
// class-name fragments, site adapters use per-host CSS selectors, and the
// router picks between them by URL.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
)

// Extractor returns candidate company records for one page.
type Extractor interface {
	// Extract parses src.HTML. A page without matching elements yields an
	// empty slice and no error; an error means the page could not be parsed.
	Extract(ctx context.Context, src portfolio.Source) ([]portfolio.Item, error)

	// Name returns the extractor identifier.
	Name() string
}

// New returns the named extraction strategy: "cards" (default), "mentions",
// or "auto", which tries cards and falls back to mentions.
func New(name string) (Extractor, error) {
	if strings.EqualFold(name, "auto") {
		return NewFallback(NewHeuristic(CardsConfig()), NewHeuristic(MentionsConfig())), nil
	}
	cfg, ok := Preset(name)
	if !ok {
		return nil, fmt.Errorf("unknown extractor %q (use cards, mentions or auto)", name)
	}
	return NewHeuristic(cfg), nil
}

// parseDocument decodes the page to UTF-8 and builds a goquery document.
func parseDocument(ctx context.Context, src portfolio.Source) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := []byte(src.HTML)
	if !utf8.Valid(data) {
		enc, name, _ := charset.DetermineEncoding(data, "")
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		data = decoded
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// cleanText trims s and collapses inner whitespace runs.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveURL makes ref absolute against base when possible; otherwise ref
// is returned unchanged.
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == "" {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil || refURL.IsAbs() {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// imageSource returns the first usable image reference of an <img>.
// Lazy-loading pages keep the real URL in data-src.
func imageSource(img *goquery.Selection, attrs ...string) string {
	if len(attrs) == 0 {
		attrs = []string{"src"}
	}
	for _, attr := range attrs {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}
