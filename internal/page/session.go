// Package page keeps one server-side session per open browser page. A
// session owns the search box state, the page URL and the fetch controller,
// and tells waiting clients when anything visible changes.
package page

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"pokedex/internal/lookup"
	"pokedex/internal/present"
	"pokedex/internal/search"
)

// Session errors.
var (
	ErrSessionNotFound = errors.New("page session not found")
	ErrSessionExpired  = errors.New("page session expired")
	ErrUnknownEvent    = errors.New("unknown event type")
)

// EventType is one of the three things a page can do to its search state.
type EventType string

// Event types.
const (
	// EventEdit carries the new text of the search box.
	EventEdit EventType = "edit"
	// EventSubmit carries the text of the search box at submission.
	EventSubmit EventType = "submit"
	// EventNavigate carries the URL the browser moved to (back/forward).
	EventNavigate EventType = "navigate"
)

// Event is a UI trigger sent by the browser.
type Event struct {
	Type  EventType `json:"type"`
	Value string    `json:"value"`
}

// Snapshot is everything a page needs to redraw itself.
type Snapshot struct {
	ID        string       `json:"id"`
	URL       string       `json:"url"`
	Version   uint64       `json:"version"`
	Live      string       `json:"live"`
	Submitted string       `json:"submitted"`
	View      present.View `json:"view"`
}

// Session is the server side of one browser page. All state changes go
// through Apply and are serialized.
type Session struct {
	ID        string
	CreatedAt time.Time

	// events serializes a state change together with the fetch it triggers,
	// so the controller always works on the submitted term.
	events sync.Mutex
	ctrl   *lookup.Controller

	mu       sync.Mutex
	state    search.State
	router   *search.URLRouter
	version  uint64
	changed  chan struct{}
	lastSeen time.Time
	closed   bool
}

// NewSession creates a session for the page at rawURL and starts the lookup
// its name parameter asks for, as on any external navigation.
func NewSession(id, rawURL string, src lookup.Source, opts ...lookup.Option) (*Session, error) {
	router, err := search.NewURLRouter(rawURL)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		router:    router,
		changed:   make(chan struct{}),
		lastSeen:  now,
	}
	onChange := lookup.WithOnChange(func(lookup.Status) { s.bump() })
	s.ctrl = lookup.New(src, slices.Concat(opts, []lookup.Option{onChange})...)

	s.events.Lock()
	defer s.events.Unlock()
	s.mu.Lock()
	term := s.state.Sync(s.router)
	s.mu.Unlock()
	s.ctrl.Fetch(term)
	return s, nil
}

// Apply runs one UI event and returns the resulting snapshot.
func (s *Session) Apply(ev Event) (Snapshot, error) {
	s.events.Lock()
	defer s.events.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionExpired
	}
	prev := s.state.Submitted
	var (
		term  string
		fetch bool
	)
	switch ev.Type {
	case EventEdit:
		s.state.Edit(ev.Value)
	case EventSubmit:
		s.state.Edit(ev.Value)
		term, fetch = s.state.Submit(s.router), true
	case EventNavigate:
		if err := s.router.Navigate(ev.Value); err != nil {
			s.mu.Unlock()
			return Snapshot{}, fmt.Errorf("navigate: %w", err)
		}
		term, fetch = s.state.Sync(s.router), true
	default:
		s.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	s.bumpLocked()
	s.mu.Unlock()

	if fetch && !s.current(prev, term) {
		s.ctrl.Fetch(term)
	}
	return s.snapshotLocked(), nil
}

// current reports whether the controller already has, or is getting, the
// answer for term. Resubmitting such a term changes nothing but the URL;
// resubmitting after an error retries.
func (s *Session) current(prev, term string) bool {
	if term == "" || term != prev {
		return false
	}
	st := s.ctrl.Status()
	return st.Term == term && (st.Kind == lookup.KindLoading || st.Kind == lookup.KindSettled)
}

// Snapshot returns the current state of the page.
func (s *Session) Snapshot() Snapshot {
	s.events.Lock()
	defer s.events.Unlock()
	return s.snapshotLocked()
}

// snapshotLocked reads the version before the controller status, so a
// snapshot is never older than the version it reports. s.events must be held.
func (s *Session) snapshotLocked() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		ID:        s.ID,
		URL:       s.router.URL(),
		Version:   s.version,
		Live:      s.state.Live,
		Submitted: s.state.Submitted,
	}
	s.mu.Unlock()
	snap.View = present.Present(s.ctrl.Status(), snap.Submitted)
	return snap
}

// WaitVersion blocks until the session version exceeds after or ctx ends,
// then returns the current snapshot. Running out of time is not an error.
func (s *Session) WaitVersion(ctx context.Context, after uint64) (Snapshot, error) {
	for {
		s.mu.Lock()
		closed, version, ch := s.closed, s.version, s.changed
		s.mu.Unlock()
		if closed {
			return Snapshot{}, ErrSessionExpired
		}
		if version > after {
			return s.Snapshot(), nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return s.Snapshot(), nil
		}
	}
}

// WaitSettled blocks while a lookup is in flight or until ctx ends, then
// returns the current snapshot.
func (s *Session) WaitSettled(ctx context.Context) Snapshot {
	_, _ = s.ctrl.Wait(ctx)
	return s.Snapshot()
}

// Close stops the session's controller and wakes any waiters.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.bumpLocked()
	s.mu.Unlock()
	s.ctrl.Close()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) bump() {
	s.mu.Lock()
	s.bumpLocked()
	s.mu.Unlock()
}

func (s *Session) bumpLocked() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}
