// Package classifier decides whether a portfolio company is an AI company
// by asking a multimodal model about its name, description and logo.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmylchreest/portfolioscan/internal/logger"
	"github.com/jmylchreest/portfolioscan/pkg/llm"
	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
)

// Classifier answers a yes/no question about a portfolio item. It never
// fails: any problem is reported as false.
type Classifier interface {
	Classify(ctx context.Context, item portfolio.Item) bool
}

// ImageLoader downloads logo bytes and reports their MIME type.
type ImageLoader interface {
	LoadImage(ctx context.Context, url string) ([]byte, string, error)
}

// Outcome is the internal result of one classification.
type Outcome int

const (
	// OutcomeNo means the model answered something other than "yes".
	OutcomeNo Outcome = iota
	// OutcomeYes means the model answered "yes".
	OutcomeYes
	// OutcomeSkipped means the item had no image reference.
	OutcomeSkipped
	// OutcomeFailed means the image or model call failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeYes:
		return "yes"
	case OutcomeNo:
		return "no"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Judgment is the detailed result behind Classify.
type Judgment struct {
	Outcome  Outcome
	Answer   string // raw model text
	Err      error  // set when Outcome is OutcomeFailed
	Duration time.Duration
}

// Positive reports whether the judgment counts as an AI company.
func (j Judgment) Positive() bool {
	return j.Outcome == OutcomeYes
}

// ErrPanic wraps a recovered panic from the image loader or provider.
var ErrPanic = errors.New("classifier panic")

// Model classifies items with a multimodal llm.Provider.
type Model struct {
	provider    llm.Provider
	images      ImageLoader
	maxTokens   int
	temperature float64
}

// Option configures a Model classifier.
type Option func(*Model)

// WithMaxTokens caps the model answer length.
func WithMaxTokens(n int) Option {
	return func(m *Model) {
		m.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(m *Model) {
		m.temperature = t
	}
}

// NewModel creates a classifier backed by provider. images is used to
// download logos.
func NewModel(provider llm.Provider, images ImageLoader, opts ...Option) *Model {
	m := &Model{
		provider:  provider,
		images:    images,
		maxTokens: 16,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Classify implements Classifier.
func (m *Model) Classify(ctx context.Context, item portfolio.Item) bool {
	return m.Judge(ctx, item).Positive()
}

// Judge classifies item and reports why it got its answer.
func (m *Model) Judge(ctx context.Context, item portfolio.Item) (j Judgment) {
	start := time.Now()
	log := logger.Component("classifier")

	defer func() {
		if r := recover(); r != nil {
			j = Judgment{Outcome: OutcomeFailed, Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
		j.Duration = time.Since(start)
		switch j.Outcome {
		case OutcomeFailed:
			log.Warn("classification failed", "company", item.Name, "image_url", item.ImageURL, "error", j.Err)
		default:
			log.Debug("classified company", "company", item.Name, "outcome", j.Outcome.String(), "answer", j.Answer, "duration", j.Duration)
		}
	}()

	if item.ImageURL == "" {
		return Judgment{Outcome: OutcomeSkipped}
	}

	data, mimeType, err := m.images.LoadImage(ctx, item.ImageURL)
	if err != nil {
		return Judgment{Outcome: OutcomeFailed, Err: err}
	}
	if len(data) == 0 {
		return Judgment{Outcome: OutcomeFailed, Err: errors.New("empty image")}
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return Judgment{Outcome: OutcomeFailed, Err: fmt.Errorf("not an image: %s", mimeType)}
	}

	resp, err := m.provider.Execute(ctx, llm.Request{
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: BuildPrompt(item),
			Images:  []llm.Image{{Data: data, MIMEType: mimeType}},
		}},
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
	})
	if err != nil {
		return Judgment{Outcome: OutcomeFailed, Err: fmt.Errorf("%s: %w", m.provider.Name(), err)}
	}

	if IsAffirmative(resp.Content) {
		return Judgment{Outcome: OutcomeYes, Answer: resp.Content}
	}
	return Judgment{Outcome: OutcomeNo, Answer: resp.Content}
}

// Func adapts a function to the Classifier interface.
type Func func(ctx context.Context, item portfolio.Item) bool

// Classify implements Classifier.
func (f Func) Classify(ctx context.Context, item portfolio.Item) bool {
	return f(ctx, item)
}

var (
	_ Classifier = (*Model)(nil)
	_ Classifier = Func(nil)
)
