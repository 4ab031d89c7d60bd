// Package prompttest provides a scripted prompt.Renderer for tests.
package prompttest

import (
	"context"
	"errors"
	"sync"

	"github.com/prayagsingh/bookings/internal/prompt"
)

// Step is one scripted answer to Fire.
type Step struct {
	Reply *prompt.Reply
	Err   error

	// NoHooks skips the lifecycle hooks, as if the modal never opened.
	NoHooks bool
}

// Renderer records everything it is asked to draw. Fire answers with queued
// steps in order and blocks until ctx is done when the queue is empty.
type Renderer struct {
	mu    sync.Mutex
	shown []prompt.Options
	fired []prompt.Options
	steps []Step

	// ShowErr is returned from every Show call.
	ShowErr error

	firing chan struct{}
}

// New returns a Renderer answering with steps.
func New(steps ...Step) *Renderer {
	return &Renderer{steps: steps, firing: make(chan struct{}, 64)}
}

// Queue appends steps to the script.
func (r *Renderer) Queue(steps ...Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, steps...)
}

func (r *Renderer) Show(opts prompt.Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, opts)
	return r.ShowErr
}

func (r *Renderer) Fire(ctx context.Context, opts prompt.Options, hooks prompt.Hooks) (*prompt.Reply, error) {
	r.mu.Lock()
	r.fired = append(r.fired, opts)
	var (
		step Step
		ok   bool
	)
	if len(r.steps) > 0 {
		step, r.steps, ok = r.steps[0], r.steps[1:], true
	}
	r.mu.Unlock()

	select {
	case r.firing <- struct{}{}:
	default:
	}

	if !ok {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if !step.NoHooks {
		if hooks.WillOpen != nil {
			hooks.WillOpen()
		}
		if hooks.DidOpen != nil {
			hooks.DidOpen()
		}
	}
	return step.Reply, step.Err
}

// Firing receives a value each time Fire is entered.
func (r *Renderer) Firing() <-chan struct{} {
	return r.firing
}

// Shown returns the options of every Show call so far.
func (r *Renderer) Shown() []prompt.Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]prompt.Options(nil), r.shown...)
}

// Fired returns the options of every Fire call so far.
func (r *Renderer) Fired() []prompt.Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]prompt.Options(nil), r.fired...)
}

// Confirm answers a modal as confirmed with values keyed by field id.
func Confirm(values map[string]string) Step {
	return Step{Reply: &prompt.Reply{IsConfirmed: true, Values: values}}
}

// Cancel answers a modal as dismissed through its cancel control.
func Cancel() Step {
	return Dismiss(prompt.DismissCancel)
}

// Dismiss answers a modal as dismissed for reason.
func Dismiss(reason prompt.DismissReason) Step {
	return Step{Reply: &prompt.Reply{IsDismissed: true, Dismiss: reason}}
}

// Vanish answers a modal with no reply at all.
func Vanish() Step {
	return Step{NoHooks: true}
}

// ErrClosed is a stand-in transport failure.
var ErrClosed = errors.New("prompttest: renderer closed")

// Fail answers a modal with err.
func Fail(err error) Step {
	return Step{Err: err, NoHooks: true}
}
