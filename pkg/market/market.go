// Package market answers whether a company is publicly traded.
package market

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/jmylchreest/portfolioscan/internal/logger"
)

// Lookup reports a company's listing status. Implementations never fail;
// anything they cannot answer is reported as false.
type Lookup interface {
	IsPublic(ctx context.Context, company string) bool
}

// Stub is the default lookup. It reports every company as private.
type Stub struct{}

// IsPublic implements Lookup.
func (Stub) IsPublic(context.Context, string) bool {
	return false
}

// Static answers from a fixed list of public company names.
// Matching ignores case and surrounding whitespace.
type Static struct {
	names map[string]struct{}
}

// NewStatic creates a lookup over names.
func NewStatic(names ...string) *Static {
	s := &Static{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if key := normalize(n); key != "" {
			s.names[key] = struct{}{}
		}
	}
	return s
}

// IsPublic implements Lookup.
func (s *Static) IsPublic(_ context.Context, company string) bool {
	_, ok := s.names[normalize(company)]
	return ok
}

// Len returns the number of configured names.
func (s *Static) Len() int {
	return len(s.names)
}

// normalize folds case and collapses whitespace, so "OPENAI" and
// " OpenAI " match. Unicode compatibility forms are unified first.
func normalize(name string) string {
	name = norm.NFKC.String(name)
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// Func adapts a caller-supplied function. A panic inside fn is reported
// as false.
type Func func(ctx context.Context, company string) bool

// IsPublic implements Lookup.
func (f Func) IsPublic(ctx context.Context, company string) (public bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Component("market").Warn("status lookup panicked", "company", company, "panic", r)
			public = false
		}
	}()
	return f(ctx, company)
}

var (
	_ Lookup = Stub{}
	_ Lookup = (*Static)(nil)
	_ Lookup = Func(nil)
)
