// Package fetcher defines how portfolio pages and company logos are retrieved.
// Implement the Fetcher interface to plug in authentication, proxies, or
// other site-specific requirements.
package fetcher

import (
	"context"
	"errors"
	"mime"
	"strings"
	"time"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves the resource at url.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static", "dynamic").
	Type() string
}

// Options controls fetching behavior for a single request.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	WaitForSelector string        // CSS selector to wait for (dynamic fetchers)
	WaitDuration    time.Duration // Additional wait after load (dynamic fetchers)
	Headers         map[string]string
}

// Content is a fetched resource.
type Content struct {
	URL         string // Requested URL
	FinalURL    string // URL after redirects
	Body        []byte // Raw response body
	HTML        string // Body as text, only set for HTML responses
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

var (
	// ErrHTTPStatus is returned when the server answers with a non-success status.
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrEmptyBody is returned when the response carries no data.
	ErrEmptyBody = errors.New("empty response body")
)

// IsHTML reports whether contentType describes an HTML document.
// An empty content type is treated as HTML since many servers omit it.
func IsHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// IsText reports whether contentType describes a textual body that may
// still hold markup, such as text/plain or XML.
func IsText(contentType string) bool {
	if IsHTML(contentType) {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") || strings.HasSuffix(mediaType, "xml")
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
