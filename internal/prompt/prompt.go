package prompt

import (
	"context"
	"log/slog"
)

// Prompt is the single entry point for pop-ups. It is safe for concurrent use
// as long as its Renderer is.
type Prompt struct {
	renderer Renderer
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures a Prompt.
type Option func(*Prompt)

// WithLogger sets the logger renderer failures are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(p *Prompt) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the collectors dialogs are counted on.
func WithMetrics(m *Metrics) Option {
	return func(p *Prompt) {
		p.metrics = m
	}
}

// New returns a Prompt drawing through r.
func New(r Renderer, opts ...Option) *Prompt {
	p := &Prompt{renderer: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Toast shows a transient notification. The timer pauses while the pointer
// is over the toast.
func (p *Prompt) Toast(req ToastRequest) {
	p.show("toast", req.Options())
}

// Notice shows an informational modal.
func (p *Prompt) Notice(req NoticeRequest) {
	p.show("notice", req.Options())
}

// Error shows an error modal titled ErrorTitle.
func (p *Prompt) Error(req ErrorRequest) {
	p.show("error", req.Options())
}

func (p *Prompt) show(kind string, opts Options) {
	p.metrics.dialog(kind)
	if err := p.renderer.Show(opts); err != nil {
		p.logger.Warn("prompt: show failed", "kind", kind, "error", err)
	}
}

// Custom opens a modal with input fields and returns immediately. The
// returned Pending resolves exactly once: when the guest answers, when the
// renderer gives up, or when ctx is done.
func (p *Prompt) Custom(ctx context.Context, req CustomRequest) *Pending {
	pending := newPending(req.Callback, p.metrics)
	opts := req.Options()
	hooks := req.hooks()
	p.metrics.dialog("custom")

	go func() {
		reply, err := p.renderer.Fire(ctx, opts, hooks)
		if err != nil {
			p.logger.Debug("prompt: custom dialog ended without reply", "title", opts.Title, "error", err)
		}
		pending.settle(resolve(opts.Inputs, reply, err))
	}()

	go func() {
		select {
		case <-ctx.Done():
			pending.settle(Result{}, outcomeUnresolved)
		case <-pending.Done():
		}
	}()

	return pending
}
