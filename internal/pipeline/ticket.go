package pipeline

import (
	"marquee/internal/queue"
	"marquee/internal/resolver"
)

// Transition is one observed state change for a submitted query. Selection
// is set only on the awaiting-selection transition; Err only on failure.
type Transition struct {
	QueryID    string
	Status     queue.Status
	Selection  *resolver.Selection
	ChannelRef string
	Err        error
}

// Ticket is the caller's subscription to a submitted query's progress. The
// channel is closed after the terminal transition. Slow consumers never
// block the pipeline: transitions beyond the buffer are dropped, and the
// queue store remains the authoritative history.
type Ticket struct {
	QueryID     string
	Transitions <-chan Transition
}

const transitionBuffer = 16

type ticketSink struct {
	queryID string
	ch      chan Transition
}

func newTicketSink(queryID string) *ticketSink {
	return &ticketSink{queryID: queryID, ch: make(chan Transition, transitionBuffer)}
}

func (t *ticketSink) ticket() *Ticket {
	return &Ticket{QueryID: t.queryID, Transitions: t.ch}
}

func (t *ticketSink) emit(tr Transition) {
	tr.QueryID = t.queryID
	select {
	case t.ch <- tr:
	default:
	}
}

func (t *ticketSink) close() {
	close(t.ch)
}
