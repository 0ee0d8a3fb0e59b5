package classifier

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jmylchreest/portfolioscan/pkg/llm"
	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

// fakeProvider returns a canned answer and records the last request.
type fakeProvider struct {
	answer string
	err    error
	panics bool
	calls  atomic.Int32
	last   llm.Request
}

func (f *fakeProvider) Execute(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.calls.Add(1)
	f.last = req
	if f.panics {
		panic("provider exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.answer}, nil
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

// fakeLoader serves fixed bytes and counts calls.
type fakeLoader struct {
	data  []byte
	mime  string
	err   error
	calls atomic.Int32
}

func (f *fakeLoader) LoadImage(context.Context, string) ([]byte, string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, f.mime, nil
}

func acme() portfolio.Item {
	return portfolio.Item{Name: "Acme Corp", ImageURL: "https://example.vc/acme.png", Description: "Robots"}
}

func TestModel_Answers(t *testing.T) {
	tests := []struct {
		answer string
		want   Outcome
	}{
		{"yes", OutcomeYes},
		{"YES ", OutcomeYes},
		{"\n Yes\t", OutcomeYes},
		{"no", OutcomeNo},
		{"yes.", OutcomeNo},
		{"Yes, it is an AI company", OutcomeNo},
		{"maybe", OutcomeNo},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			p := &fakeProvider{answer: tt.answer}
			m := NewModel(p, &fakeLoader{data: pngBytes, mime: "image/png"})

			j := m.Judge(context.Background(), acme())
			if j.Outcome != tt.want {
				t.Errorf("Judge() outcome = %v, want %v", j.Outcome, tt.want)
			}
			if got := m.Classify(context.Background(), acme()); got != (tt.want == OutcomeYes) {
				t.Errorf("Classify() = %v", got)
			}
		})
	}
}

func TestModel_RequestShape(t *testing.T) {
	p := &fakeProvider{answer: "yes"}
	m := NewModel(p, &fakeLoader{data: pngBytes, mime: "image/png"}, WithMaxTokens(4), WithTemperature(0.2))

	m.Classify(context.Background(), acme())

	if len(p.last.Messages) != 1 {
		t.Fatalf("expected a single message, got %d", len(p.last.Messages))
	}
	msg := p.last.Messages[0]
	if msg.Role != llm.RoleUser {
		t.Errorf("role = %q", msg.Role)
	}
	for _, want := range []string{"Name: Acme Corp", "Description: Robots", "Image: [attached]", "Return only 'yes' or 'no'."} {
		if !strings.Contains(msg.Content, want) {
			t.Errorf("prompt missing %q:\n%s", want, msg.Content)
		}
	}
	if len(msg.Images) != 1 || msg.Images[0].MIMEType != "image/png" {
		t.Errorf("images = %+v", msg.Images)
	}
	if p.last.MaxTokens != 4 || p.last.Temperature != 0.2 {
		t.Errorf("options not applied: %+v", p.last)
	}
}

func TestModel_NoImageSkipsFetch(t *testing.T) {
	p := &fakeProvider{answer: "yes"}
	loader := &fakeLoader{data: pngBytes, mime: "image/png"}
	m := NewModel(p, loader)

	item := portfolio.Item{Name: "Acme Corp", Description: "Robots"}
	j := m.Judge(context.Background(), item)

	if j.Outcome != OutcomeSkipped || j.Positive() {
		t.Errorf("Judge() = %+v, want skipped", j)
	}
	if loader.calls.Load() != 0 || p.calls.Load() != 0 {
		t.Errorf("expected no fetch and no model call, got %d fetches and %d calls", loader.calls.Load(), p.calls.Load())
	}
}

func TestModel_Failures(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		loader   *fakeLoader
		wantErr  error
	}{
		{"image fetch error", &fakeProvider{answer: "yes"}, &fakeLoader{err: errors.New("404")}, nil},
		{"empty image", &fakeProvider{answer: "yes"}, &fakeLoader{data: nil, mime: "image/png"}, nil},
		{"not an image", &fakeProvider{answer: "yes"}, &fakeLoader{data: []byte("<html></html>")}, nil},
		{"model error", &fakeProvider{err: llm.ErrNoContent}, &fakeLoader{data: pngBytes, mime: "image/png"}, llm.ErrNoContent},
		{"model panic", &fakeProvider{panics: true}, &fakeLoader{data: pngBytes, mime: "image/png"}, ErrPanic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(tt.provider, tt.loader)

			j := m.Judge(context.Background(), acme())
			if j.Outcome != OutcomeFailed {
				t.Fatalf("outcome = %v, want failed", j.Outcome)
			}
			if j.Err == nil {
				t.Error("expected error on failed judgment")
			}
			if tt.wantErr != nil && !errors.Is(j.Err, tt.wantErr) {
				t.Errorf("err = %v, want %v", j.Err, tt.wantErr)
			}
			if m.Classify(context.Background(), acme()) {
				t.Error("failed classification must be negative")
			}
		})
	}
}

func TestModel_SniffsMissingMIMEType(t *testing.T) {
	p := &fakeProvider{answer: "yes"}
	m := NewModel(p, &fakeLoader{data: pngBytes})

	if !m.Classify(context.Background(), acme()) {
		t.Fatal("expected positive classification")
	}
	if got := p.last.Messages[0].Images[0].MIMEType; got != "image/png" {
		t.Errorf("MIMEType = %q, want image/png", got)
	}
}

func TestOutcome_String(t *testing.T) {
	for o, want := range map[Outcome]string{OutcomeYes: "yes", OutcomeNo: "no", OutcomeSkipped: "skipped", OutcomeFailed: "failed", Outcome(9): "outcome(9)"} {
		if got := o.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestFunc(t *testing.T) {
	c := Func(func(_ context.Context, item portfolio.Item) bool { return item.Name == "Acme Corp" })
	if !c.Classify(context.Background(), acme()) {
		t.Error("expected true")
	}
}
