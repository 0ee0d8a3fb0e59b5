package extractor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
)

// HeuristicConfig describes which elements count as company cards.
type HeuristicConfig struct {
	// Tags are the element names a card may use.
	Tags []string `mapstructure:"tags" yaml:"tags"`

	// ClassMarkers are substrings searched for in the class attribute.
	ClassMarkers []string `mapstructure:"class_markers" yaml:"class_markers"`

	// CaseInsensitive compares class markers ignoring case.
	CaseInsensitive bool `mapstructure:"case_insensitive" yaml:"case_insensitive"`

	// NameTags are searched, in document order, for the company name.
	NameTags []string `mapstructure:"name_tags" yaml:"name_tags"`

	// NameFromText takes the card's own text as the name instead of a
	// nested heading. Cards with a blank name are dropped in this mode.
	NameFromText bool `mapstructure:"name_from_text" yaml:"name_from_text"`

	// DescriptionTags and DescriptionMarker locate the description: the first
	// descendant with one of these tags whose class contains the marker.
	DescriptionTags   []string `mapstructure:"description_tags" yaml:"description_tags"`
	DescriptionMarker string   `mapstructure:"description_marker" yaml:"description_marker"`

	// ImageAttrs are tried in order on the first <img>.
	ImageAttrs []string `mapstructure:"image_attrs" yaml:"image_attrs"`

	// LeafOnly drops cards that contain another matching card, so grid
	// wrappers such as "portfolio-grid" do not double count their children.
	LeafOnly bool `mapstructure:"leaf_only" yaml:"leaf_only"`
}

// CardsConfig matches <div>/<article> cards whose class mentions
// "portfolio" or "company" and reads name, logo and description from
// nested elements.
func CardsConfig() HeuristicConfig {
	return HeuristicConfig{
		Tags:              []string{"div", "article"},
		ClassMarkers:      []string{"portfolio", "company"},
		NameTags:          []string{"h2", "h3", "h4"},
		DescriptionTags:   []string{"p", "div"},
		DescriptionMarker: "description",
		ImageAttrs:        []string{"src"},
	}
}

// MentionsConfig matches headings and divs whose class mentions a company,
// portfolio or startup (any case) and uses their text as the name.
func MentionsConfig() HeuristicConfig {
	return HeuristicConfig{
		Tags:            []string{"h1", "h2", "h3", "div"},
		ClassMarkers:    []string{"company", "portfolio", "startup"},
		CaseInsensitive: true,
		NameFromText:    true,
	}
}

// Preset returns the named heuristic configuration ("cards" or "mentions").
func Preset(name string) (HeuristicConfig, bool) {
	switch strings.ToLower(name) {
	case "", "cards":
		return CardsConfig(), true
	case "mentions":
		return MentionsConfig(), true
	default:
		return HeuristicConfig{}, false
	}
}

// Heuristic finds company cards by class-name fragments.
type Heuristic struct {
	cfg     HeuristicConfig
	tagSel  string
	nameSel string
	descSel string
}

// NewHeuristic creates a heuristic extractor. Empty fields of cfg are
// filled from CardsConfig.
func NewHeuristic(cfg HeuristicConfig) *Heuristic {
	def := CardsConfig()
	if len(cfg.Tags) == 0 {
		cfg.Tags = def.Tags
	}
	if len(cfg.ClassMarkers) == 0 {
		cfg.ClassMarkers = def.ClassMarkers
	}
	if len(cfg.NameTags) == 0 {
		cfg.NameTags = def.NameTags
	}
	if len(cfg.DescriptionTags) == 0 {
		cfg.DescriptionTags = def.DescriptionTags
	}
	if cfg.DescriptionMarker == "" {
		cfg.DescriptionMarker = def.DescriptionMarker
	}
	if len(cfg.ImageAttrs) == 0 {
		cfg.ImageAttrs = def.ImageAttrs
	}
	return &Heuristic{
		cfg:     cfg,
		tagSel:  strings.Join(cfg.Tags, ","),
		nameSel: strings.Join(cfg.NameTags, ","),
		descSel: strings.Join(cfg.DescriptionTags, ","),
	}
}

// Name returns the extractor identifier.
func (h *Heuristic) Name() string {
	if h.cfg.NameFromText {
		return "heuristic(mentions)"
	}
	return "heuristic(cards)"
}

// Extract returns one item per matching card, in document order.
func (h *Heuristic) Extract(ctx context.Context, src portfolio.Source) ([]portfolio.Item, error) {
	doc, err := parseDocument(ctx, src)
	if err != nil {
		return nil, err
	}

	cards := doc.Find(h.tagSel).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return h.classMatches(s, h.cfg.ClassMarkers...)
	})
	if h.cfg.LeafOnly {
		cards = cards.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Find(h.tagSel).FilterFunction(func(_ int, inner *goquery.Selection) bool {
				return h.classMatches(inner, h.cfg.ClassMarkers...)
			}).Length() == 0
		})
	}

	items := make([]portfolio.Item, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		if h.cfg.NameFromText {
			if name := cleanText(card.Text()); name != "" {
				items = append(items, portfolio.Item{Name: name})
			}
			return
		}
		items = append(items, h.readCard(card, src.URL))
	})
	return items, nil
}

// readCard pulls the name, logo and description out of a card. Missing
// parts are left blank.
func (h *Heuristic) readCard(card *goquery.Selection, baseURL string) portfolio.Item {
	var item portfolio.Item

	if name := card.Find(h.nameSel).First(); name.Length() > 0 {
		item.Name = cleanText(name.Text())
	}
	if img := card.Find("img").First(); img.Length() > 0 {
		item.ImageURL = resolveURL(baseURL, imageSource(img, h.cfg.ImageAttrs...))
	}
	desc := card.Find(h.descSel).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return h.classMatches(s, h.cfg.DescriptionMarker)
	}).First()
	if desc.Length() > 0 {
		item.Description = cleanText(desc.Text())
	}
	return item
}

// classMatches reports whether the class attribute of s contains any marker.
// Elements without a class attribute never match.
func (h *Heuristic) classMatches(s *goquery.Selection, markers ...string) bool {
	class, ok := s.Attr("class")
	if !ok || class == "" {
		return false
	}
	if h.cfg.CaseInsensitive {
		class = strings.ToLower(class)
	}
	for _, m := range markers {
		if h.cfg.CaseInsensitive {
			m = strings.ToLower(m)
		}
		if m != "" && strings.Contains(class, m) {
			return true
		}
	}
	return false
}

var _ Extractor = (*Heuristic)(nil)
