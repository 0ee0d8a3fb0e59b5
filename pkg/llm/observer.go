package llm

import (
	"context"
	"time"
)

// Observer receives notifications about model calls.
// Implementations must be safe for concurrent use.
type Observer interface {
	OnCall(ctx context.Context, event CallEvent)
}

// CallEvent describes one completed model call.
type CallEvent struct {
	Provider  string
	Model     string
	Images    int
	Response  *Response // nil when Error is set
	Error     error
	Duration  time.Duration
	StartedAt time.Time
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event CallEvent)

// OnCall implements Observer.
func (f ObserverFunc) OnCall(ctx context.Context, event CallEvent) {
	f(ctx, event)
}

// Observe wraps p so that every call is reported to obs.
func Observe(p Provider, obs Observer) Provider {
	if obs == nil {
		return p
	}
	return &observedProvider{Provider: p, obs: obs}
}

type observedProvider struct {
	Provider
	obs Observer
}

func (o *observedProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := o.Provider.Execute(ctx, req)

	images := 0
	for _, m := range req.Messages {
		images += len(m.Images)
	}
	ev := CallEvent{
		Provider:  o.Provider.Name(),
		Model:     o.Provider.Model(),
		Images:    images,
		Error:     err,
		Duration:  time.Since(start),
		StartedAt: start,
	}
	if err == nil {
		ev.Response = resp
		if resp.Model != "" {
			ev.Model = resp.Model
		}
	}
	o.obs.OnCall(ctx, ev)
	return resp, err
}
