package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
)

// ErrNoSites is returned when an adapter file defines no sites.
var ErrNoSites = errors.New("no site adapters defined")

// SiteAdapter holds the CSS selectors for one VC's portfolio page.
type SiteAdapter struct {
	Host        string `yaml:"host" validate:"required,hostname_rfc1123"`
	Item        string `yaml:"item" validate:"required,css"`
	Name        string `yaml:"name" validate:"required,css"`
	Image       string `yaml:"image,omitempty" validate:"omitempty,css"`
	ImageAttr   string `yaml:"image_attr,omitempty"`
	Description string `yaml:"description,omitempty" validate:"omitempty,css"`
}

// SiteFile is the on-disk layout of a site adapter file.
type SiteFile struct {
	Sites []SiteAdapter `yaml:"sites" validate:"dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("css", func(fl validator.FieldLevel) bool {
		_, err := cascadia.Compile(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(fmt.Sprintf("extractor: register css validation: %v", err))
	}
	return v
}

// LoadSites reads and validates a YAML site adapter file.
func LoadSites(path string) ([]SiteAdapter, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided adapter file
	if err != nil {
		return nil, fmt.Errorf("read site adapters: %w", err)
	}
	return ParseSites(data)
}

// ParseSites decodes and validates YAML site adapters.
func ParseSites(data []byte) ([]SiteAdapter, error) {
	var f SiteFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse site adapters: %w", err)
	}
	if len(f.Sites) == 0 {
		return nil, ErrNoSites
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid site adapters: %w", err)
	}
	for i := range f.Sites {
		f.Sites[i].Host = strings.ToLower(f.Sites[i].Host)
	}
	return f.Sites, nil
}

// Selector extracts cards with a site adapter's CSS selectors.
type Selector struct {
	site SiteAdapter
}

// NewSelector creates an extractor for one site.
func NewSelector(site SiteAdapter) *Selector {
	return &Selector{site: site}
}

// Name returns the extractor identifier.
func (s *Selector) Name() string {
	return "selector(" + s.site.Host + ")"
}

// Extract returns one item per element matching the adapter's item selector.
func (s *Selector) Extract(ctx context.Context, src portfolio.Source) ([]portfolio.Item, error) {
	doc, err := parseDocument(ctx, src)
	if err != nil {
		return nil, err
	}

	cards := doc.Find(s.site.Item)
	items := make([]portfolio.Item, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		item := portfolio.Item{
			Name: cleanText(card.Find(s.site.Name).First().Text()),
		}
		imgSel := s.site.Image
		if imgSel == "" {
			imgSel = "img"
		}
		if img := card.Find(imgSel).First(); img.Length() > 0 {
			attrs := []string{"src"}
			if s.site.ImageAttr != "" {
				attrs = []string{s.site.ImageAttr, "src"}
			}
			item.ImageURL = resolveURL(src.URL, imageSource(img, attrs...))
		}
		if s.site.Description != "" {
			item.Description = cleanText(card.Find(s.site.Description).First().Text())
		}
		items = append(items, item)
	})
	return items, nil
}

// Router sends each page to the adapter registered for its host and
// falls back to a default extractor for unknown hosts.
type Router struct {
	sites    map[string]*Selector
	fallback Extractor
}

// NewRouter creates a router over the given adapters.
func NewRouter(fallback Extractor, sites ...SiteAdapter) *Router {
	r := &Router{
		sites:    make(map[string]*Selector, len(sites)),
		fallback: fallback,
	}
	for _, site := range sites {
		r.sites[strings.ToLower(site.Host)] = NewSelector(site)
	}
	return r
}

// Name returns the extractor identifier.
func (r *Router) Name() string {
	return fmt.Sprintf("router(%d sites, fallback=%s)", len(r.sites), r.fallback.Name())
}

// Extract dispatches src by host. "www." prefixes are ignored.
func (r *Router) Extract(ctx context.Context, src portfolio.Source) ([]portfolio.Item, error) {
	return r.For(src).Extract(ctx, src)
}

// For returns the extractor that would handle src.
func (r *Router) For(src portfolio.Source) Extractor {
	u, err := url.Parse(src.URL)
	if err != nil {
		return r.fallback
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if sel, ok := r.sites[host]; ok {
		return sel
	}
	if sel, ok := r.sites["www."+host]; ok {
		return sel
	}
	return r.fallback
}

var (
	_ Extractor = (*Selector)(nil)
	_ Extractor = (*Router)(nil)
)
