package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline query.
type Status string

const (
	StatusReceived          Status = "received"
	StatusNormalizing       Status = "normalizing"
	StatusResolving         Status = "resolving"
	StatusAwaitingSelection Status = "awaiting_selection"
	StatusResolved          Status = "resolved"
	StatusRendering         Status = "rendering"
	StatusPublishing        Status = "publishing"
	StatusDone              Status = "done"
	StatusFailed            Status = "failed"
)

var allStatuses = []Status{
	StatusReceived,
	StatusNormalizing,
	StatusResolving,
	StatusAwaitingSelection,
	StatusResolved,
	StatusRendering,
	StatusPublishing,
	StatusDone,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// inFlightStatuses are the states a crashed daemon can leave behind; items
// in them are reset to received on startup. Awaiting a selection counts as
// in-flight because the suspension lives in coordinator memory.
var inFlightStatuses = []Status{
	StatusNormalizing,
	StatusResolving,
	StatusAwaitingSelection,
	StatusResolved,
	StatusRendering,
	StatusPublishing,
}

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether the status ends the pipeline for a query.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// ParseStatus converts user input into a Status.
func ParseStatus(raw string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// Item represents one submitted query persisted in SQLite.
type Item struct {
	ID              int64
	QueryID         string
	Raw             string
	Source          string
	YearHint        int
	NormalizedTitle string
	NormalizedYear  int
	MovieID         int64
	MovieTitle      string
	MovieVersion    string
	Status          Status
	ErrorMessage    string
	ChannelRef      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Label returns a human-friendly identifier for logs and status output.
func (i *Item) Label() string {
	if i == nil {
		return ""
	}
	if i.MovieTitle != "" {
		return i.MovieTitle
	}
	if i.NormalizedTitle != "" {
		return i.NormalizedTitle
	}
	return strings.TrimSpace(i.Raw)
}

// HealthSummary describes aggregated queue counts per key lifecycle state.
type HealthSummary struct {
	Total     int
	Received  int
	InFlight  int
	Suspended int
	Done      int
	Failed    int
}
