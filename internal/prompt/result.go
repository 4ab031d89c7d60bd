package prompt

import (
	"context"
	"sync"
)

// Result is the outcome of a custom dialog. OK is false when the guest
// cancelled, dismissed the dialog, confirmed with an empty first field, or the
// dialog ended without a reply.
type Result struct {
	OK     bool
	Values map[string]string // keyed by Field.Role

	roles []string
}

// Get returns the value reported for role.
func (r Result) Get(role string) string {
	return r.Values[role]
}

// Pair returns the first two values in field order.
func (r Result) Pair() (string, string) {
	var a, b string
	if len(r.roles) > 0 {
		a = r.Values[r.roles[0]]
	}
	if len(r.roles) > 1 {
		b = r.Values[r.roles[1]]
	}
	return a, b
}

type outcome string

const (
	outcomeConfirmed  outcome = "confirmed"
	outcomeCancelled  outcome = "cancelled"
	outcomeEmpty      outcome = "empty"
	outcomeUnresolved outcome = "unresolved"
)

func resolve(fields []Field, reply *Reply, err error) (Result, outcome) {
	switch {
	case err != nil, reply == nil:
		return Result{}, outcomeUnresolved
	case reply.IsDismissed && reply.Dismiss == DismissCancel:
		return Result{}, outcomeCancelled
	case len(fields) == 0 || reply.Values[fields[0].ID] == "":
		return Result{}, outcomeEmpty
	}

	res := Result{
		OK:     true,
		Values: make(map[string]string, len(fields)),
		roles:  make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		res.Values[f.Role] = reply.Values[f.ID]
		res.roles = append(res.roles, f.Role)
	}
	return res, outcomeConfirmed
}

// Pending is a custom dialog that has not necessarily been answered yet.
type Pending struct {
	done     chan struct{}
	once     sync.Once
	result   Result
	callback func(Result)
	metrics  *Metrics
}

func newPending(callback func(Result), m *Metrics) *Pending {
	return &Pending{done: make(chan struct{}), callback: callback, metrics: m}
}

// settle records r unless the dialog already resolved. The callback runs
// after done is closed so it may use the Pending itself.
func (p *Pending) settle(r Result, o outcome) {
	won := false
	p.once.Do(func() {
		p.result = r
		p.metrics.outcome(o)
		close(p.done)
		won = true
	})
	if won && p.callback != nil {
		p.callback(r)
	}
}

// Done is closed once the dialog resolves.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the dialog resolves or ctx is done.
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns the outcome if the dialog has resolved.
func (p *Pending) Result() (Result, bool) {
	select {
	case <-p.done:
		return p.result, true
	default:
		return Result{}, false
	}
}
