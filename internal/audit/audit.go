// Package audit keeps a log of completed Pokémon lookups: what was searched,
// how it ended and how long the upstream took.
package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"pokedex/internal/lookup"
)

// Outcomes of a lookup.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	// OutcomeStale marks an answer that arrived after its term was
	// superseded and was never shown.
	OutcomeStale = "stale"
)

// Sources of a lookup.
const (
	SourceSearch = "search"
	SourceDetail = "detail"
	SourceAPI    = "api"
)

// LookupEvent is one completed upstream lookup.
type LookupEvent struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Term       string    `json:"term"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Source     string    `json:"source"`
	PageID     string    `json:"page_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

// ListOptions filters and pages List results. Results are newest first.
type ListOptions struct {
	Limit  int
	Offset int
	// Outcome matches exactly.
	Outcome string
	// Term matches case-insensitively.
	Term  string
	Since *time.Time
	Until *time.Time
}

// Pagination bounds for List.
const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

func (o *ListOptions) normalize() {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// LookupLogger stores lookup events.
type LookupLogger interface {
	// Log records an event, assigning its ID and timestamp when unset.
	Log(ctx context.Context, event *LookupEvent) error
	// List returns a page of matching events and the total number of matches.
	List(ctx context.Context, opts ListOptions) ([]*LookupEvent, int, error)
	Close() error
}

// ErrInvalidOutcome is returned by Log for an unknown outcome.
var ErrInvalidOutcome = errors.New("invalid lookup outcome")

// ValidOutcome reports whether s is one of the known outcomes.
func ValidOutcome(s string) bool {
	switch s {
	case OutcomeFound, OutcomeNotFound, OutcomeError, OutcomeStale:
		return true
	}
	return false
}

// OutcomeOf classifies a controller outcome.
func OutcomeOf(o lookup.Outcome) string {
	switch {
	case o.Stale:
		return OutcomeStale
	case o.Err != nil:
		return OutcomeError
	case o.Status.Record == nil:
		return OutcomeNotFound
	default:
		return OutcomeFound
	}
}

// NewEvent builds the event for a controller outcome.
func NewEvent(o lookup.Outcome, source, pageID string) *LookupEvent {
	e := &LookupEvent{
		Term:       o.Term,
		Outcome:    OutcomeOf(o),
		DurationMS: o.Duration.Milliseconds(),
		Source:     source,
		PageID:     pageID,
	}
	if o.Err != nil {
		e.Message = o.Err.Error()
	}
	return e
}

func matches(e *LookupEvent, opts ListOptions) bool {
	if opts.Outcome != "" && e.Outcome != opts.Outcome {
		return false
	}
	if opts.Term != "" && !strings.EqualFold(e.Term, opts.Term) {
		return false
	}
	if opts.Since != nil && e.Timestamp.Before(*opts.Since) {
		return false
	}
	if opts.Until != nil && e.Timestamp.After(*opts.Until) {
		return false
	}
	return true
}
