// Package portfolio defines the records that flow through a portfolio scan.
package portfolio

// Item is a single company card scraped from a portfolio listing page.
// Fields that could not be found are empty strings, never absent.
type Item struct {
	Name        string `json:"name" yaml:"name"`
	ImageURL    string `json:"image_url" yaml:"image_url"`
	Description string `json:"description" yaml:"description"`
}

// Source is one input page. When HTML is empty the page is fetched from URL;
// otherwise URL only serves as the base for relative image references.
type Source struct {
	URL  string `json:"url" yaml:"url"`
	HTML string `json:"html_content,omitempty" yaml:"html_content,omitempty"`
}

// Label returns a short identifier for logging.
func (s Source) Label() string {
	if s.URL != "" {
		return s.URL
	}
	return "(inline)"
}

// Entry is a company name with the number of times it was mentioned.
type Entry struct {
	Company string `json:"company" yaml:"company"`
	Count   int    `json:"count" yaml:"count"`
}
