package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotImage is returned when a logo URL does not serve image data.
var ErrNotImage = errors.New("response is not an image")

// ImageLoader downloads company logos through a Fetcher.
type ImageLoader struct {
	fetcher Fetcher
	opts    Options
}

// NewImageLoader wraps f for image downloads.
func NewImageLoader(f Fetcher, opts Options) *ImageLoader {
	return &ImageLoader{fetcher: f, opts: opts}
}

// LoadImage fetches url and returns the image bytes with their MIME type.
// The type is sniffed from the bytes since servers often mislabel logos.
func (l *ImageLoader) LoadImage(ctx context.Context, url string) ([]byte, string, error) {
	content, err := l.fetcher.Fetch(ctx, url, l.opts)
	if err != nil {
		return nil, "", fmt.Errorf("image fetch: %w", err)
	}

	mimeType := http.DetectContentType(content.Body)
	if !strings.HasPrefix(mimeType, "image/") {
		// DetectContentType has no SVG signature; trust the server for those.
		if strings.HasPrefix(content.ContentType, "image/svg") {
			return content.Body, "image/svg+xml", nil
		}
		return nil, "", fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}
	return content.Body, mimeType, nil
}
