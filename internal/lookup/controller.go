package lookup

import (
	"context"
	"strings"
	"sync"
	"time"

	"pokedex/internal/observability"
)

// Outcome describes a completed upstream call. Stale outcomes belong to a term
// that was superseded before the call returned; they never reach the status.
type Outcome struct {
	Term     string
	Seq      uint64
	Status   Status
	Err      error
	Duration time.Duration
	Stale    bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithOnChange registers a callback invoked after every accepted status
// transition. It runs outside the controller lock and may call Status.
func WithOnChange(fn func(Status)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithOnSettle registers a callback invoked after every upstream call returns,
// including stale ones.
func WithOnSettle(fn func(Outcome)) Option {
	return func(c *Controller) { c.onSettle = fn }
}

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller issues at most one effective lookup at a time: every Fetch is
// tagged with a sequence number and a completion whose sequence is no longer
// the latest is dropped. Superseded calls are not cancelled.
type Controller struct {
	src    Source
	logger observability.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	seq     uint64
	status  Status
	changed chan struct{}
	closed  bool

	onChange func(Status)
	onSettle func(Outcome)
}

// New creates an idle controller backed by src.
func New(src Source, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		src:     src,
		logger:  observability.NewLogger(observability.DefaultConfig()),
		ctx:     ctx,
		cancel:  cancel,
		status:  Status{Kind: KindIdle},
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("lookup")
	return c
}

// Fetch starts a lookup for term and returns the immediate status. An empty
// term (after trimming) makes the controller idle without a network call and
// clears any displayed record. Otherwise the status is loading until the
// upstream answers.
func (c *Controller) Fetch(term string) Status {
	term = strings.TrimSpace(term)

	c.mu.Lock()
	if c.closed {
		st := c.status
		c.mu.Unlock()
		return st
	}
	c.seq++
	seq := c.seq
	var st Status
	if term == "" {
		st = Status{Kind: KindIdle, Seq: seq}
	} else {
		st = Status{Kind: KindLoading, Term: term, Seq: seq}
		c.wg.Add(1)
	}
	c.setLocked(st)
	ctx := c.ctx
	c.mu.Unlock()

	c.changedTo(st)
	if st.Kind == KindLoading {
		go c.run(ctx, seq, term)
	}
	return st
}

// Status returns the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Wait blocks while the current status is loading. It returns the first
// non-loading status, or the current status together with ctx.Err() when ctx
// ends first. There is no built-in timeout: a hung upstream keeps Wait
// blocked until ctx is done.
func (c *Controller) Wait(ctx context.Context) (Status, error) {
	for {
		c.mu.Lock()
		st, ch := c.status, c.changed
		c.mu.Unlock()
		if st.Kind != KindLoading {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return c.Status(), ctx.Err()
		}
	}
}

// Close stops accepting fetches, cancels in-flight calls and waits for their
// goroutines. Results arriving after Close are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) run(ctx context.Context, seq uint64, term string) {
	defer c.wg.Done()

	start := time.Now()
	rec, err := c.src.PokemonByName(ctx, term)
	out := Outcome{Term: term, Seq: seq, Err: err, Duration: time.Since(start)}
	if err != nil {
		out.Status = Status{Kind: KindError, Term: term, Seq: seq, Message: err.Error()}
	} else {
		out.Status = Status{Kind: KindSettled, Term: term, Seq: seq, Record: rec}
	}

	c.mu.Lock()
	if seq != c.seq || c.closed {
		c.mu.Unlock()
		out.Stale = true
		c.logger.Debug("dropping stale lookup result", "term", term, "seq", seq)
		c.settled(out)
		return
	}
	c.setLocked(out.Status)
	c.mu.Unlock()

	c.changedTo(out.Status)
	c.settled(out)
}

// setLocked swaps the status and wakes every Wait. c.mu must be held.
func (c *Controller) setLocked(st Status) {
	c.status = st
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Controller) changedTo(st Status) {
	if c.onChange != nil {
		c.onChange(st)
	}
}

func (c *Controller) settled(out Outcome) {
	if c.onSettle != nil {
		c.onSettle(out)
	}
}
