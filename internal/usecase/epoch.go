package usecase

import (
	"context"
	"sync"
	"sync/atomic"
)

// Epoch hands out generation tickets. Starting a new generation makes every
// older ticket stale, so a slow response can be recognized and dropped.
type Epoch struct {
	gen atomic.Uint64
}

// Ticket identifies one generation of an Epoch
type Ticket struct {
	epoch *Epoch
	gen   uint64
}

// Next starts a new generation and returns its ticket
func (e *Epoch) Next() Ticket {
	return Ticket{epoch: e, gen: e.gen.Add(1)}
}

// Current reports whether no newer generation has started since the ticket was issued.
// The zero Ticket is always current.
func (t Ticket) Current() bool {
	return t.epoch == nil || t.epoch.gen.Load() == t.gen
}

type ticketKey struct{}

// WithTicket attaches a generation ticket to ctx
func WithTicket(ctx context.Context, t Ticket) context.Context {
	return context.WithValue(ctx, ticketKey{}, t)
}

// TicketFrom returns the ticket attached to ctx, if any
func TicketFrom(ctx context.Context) (Ticket, bool) {
	t, ok := ctx.Value(ticketKey{}).(Ticket)
	return t, ok
}

// stale reports whether ctx carries a ticket that has been superseded
func stale(ctx context.Context) bool {
	t, ok := TicketFrom(ctx)
	return ok && !t.Current()
}

const defaultMaxSessions = 10000

// SearchSessions keeps one Epoch per client session so that a newer search
// from the same session supersedes an older one still in flight
type SearchSessions struct {
	mu     sync.Mutex
	epochs map[string]*Epoch
	max    int
}

// NewSearchSessions creates a session registry holding at most max sessions
func NewSearchSessions(max int) *SearchSessions {
	if max <= 0 {
		max = defaultMaxSessions
	}
	return &SearchSessions{epochs: make(map[string]*Epoch), max: max}
}

// Begin starts a new generation for session and returns a context carrying its ticket.
// An empty session id leaves ctx untouched.
func (s *SearchSessions) Begin(ctx context.Context, session string) context.Context {
	if session == "" {
		return ctx
	}
	s.mu.Lock()
	e, ok := s.epochs[session]
	if !ok {
		if len(s.epochs) >= s.max {
			for k := range s.epochs {
				delete(s.epochs, k)
				break
			}
		}
		e = &Epoch{}
		s.epochs[session] = e
	}
	s.mu.Unlock()
	return WithTicket(ctx, e.Next())
}

// Len returns the number of tracked sessions
func (s *SearchSessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.epochs)
}
