package paginate

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by operations on a closed controller
var ErrClosed = errors.New("paginate: controller closed")

// DefaultLimit is the page size used when Options.Limit is unset
const DefaultLimit = 20

// State is the lifecycle position of a controller
type State int

const (
	// Idle means no page is loaded; the initial load has not run or failed.
	Idle State = iota
	// Loading means exactly one fetch is in flight.
	Loading
	// Ready means at least one page is loaded and more may follow.
	Ready
	// Exhausted is terminal until the query changes.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Page is one response of a paginated endpoint
type Page[T any] struct {
	Items   []T
	HasMore bool
}

// FetchFunc retrieves limit items starting at offset for query
type FetchFunc[Q comparable, T any] func(ctx context.Context, limit, offset int, query Q) (Page[T], error)

// KeyFunc returns the identity used to de-duplicate items
type KeyFunc[T any] func(T) string

// ScrollKeeper is the view whose scroll position is held steady across appends
type ScrollKeeper interface {
	ScrollOffset() int
	RestoreScroll(offset int)
}

// Snapshot is a point-in-time copy of controller state
type Snapshot[T any] struct {
	Items   []T
	Offset  int
	HasMore bool
	State   State
	// Err is the error of the most recent failed fetch, cleared by the next success.
	Err error
}

// Loading reports whether a fetch is in flight
func (s Snapshot[T]) Loading() bool {
	return s.State == Loading
}

// Options configures a Controller
type Options[T any] struct {
	Limit    int
	Logger   zerolog.Logger
	OnChange func(Snapshot[T])
	Scroll   ScrollKeeper
}

// Controller drives incremental loading of one list.
//
// At most one fetch is in flight at a time; LoadMore while loading is a
// no-op. Items are append-only and de-duplicated by key. The offset sent
// with each request is the number of items received so far for the current
// query. A query change discards everything, including any response still
// in flight.
type Controller[Q comparable, T any] struct {
	fetch    FetchFunc[Q, T]
	key      KeyFunc[T]
	limit    int
	logger   zerolog.Logger
	onChange func(Snapshot[T])
	scroll   ScrollKeeper

	mu       sync.Mutex
	query    Q
	hasQuery bool
	items    []T
	seen     map[string]struct{}
	offset   int
	hasMore  bool
	state    State
	lastErr  error
	gen      uint64
	cancel   context.CancelFunc
	closed   bool
}

// New creates a controller in the Idle state
func New[Q comparable, T any](fetch FetchFunc[Q, T], key KeyFunc[T], opts Options[T]) *Controller[Q, T] {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Controller[Q, T]{
		fetch:    fetch,
		key:      key,
		limit:    limit,
		logger:   opts.Logger,
		onChange: opts.OnChange,
		scroll:   opts.Scroll,
		seen:     make(map[string]struct{}),
		hasMore:  true,
	}
}

// Limit returns the page size
func (c *Controller[Q, T]) Limit() int {
	return c.limit
}

// Query returns the active query key
func (c *Controller[Q, T]) Query() Q {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// SetQuery switches to a new query key. A different key resets the list and
// loads the first page; the same key is a no-op.
func (c *Controller[Q, T]) SetQuery(ctx context.Context, q Q) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.hasQuery && c.query == q {
		c.mu.Unlock()
		return nil
	}
	c.query = q
	c.hasQuery = true
	c.resetLocked()
	c.mu.Unlock()

	c.notify()
	return c.LoadInitial(ctx)
}

// Reset clears the list for the current query and loads the first page again
func (c *Controller[Q, T]) Reset(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.resetLocked()
	c.mu.Unlock()

	c.notify()
	return c.LoadInitial(ctx)
}

func (c *Controller[Q, T]) resetLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.items = nil
	c.seen = make(map[string]struct{})
	c.offset = 0
	c.hasMore = true
	c.state = Idle
	c.lastErr = nil
}

// begin moves to Loading and returns what the fetch needs. ok is false when
// the controller is closed or already loading.
func (c *Controller[Q, T]) begin(ctx context.Context) (fetchCtx context.Context, gen uint64, q Q, offset int, ok bool) {
	if c.closed || c.state == Loading {
		return nil, 0, q, 0, false
	}
	c.state = Loading
	fetchCtx, c.cancel = context.WithCancel(ctx)
	return fetchCtx, c.gen, c.query, c.offset, true
}

// current reports whether a completed fetch still belongs to the live list
func (c *Controller[Q, T]) current(gen uint64) bool {
	return !c.closed && gen == c.gen
}

func (c *Controller[Q, T]) finishLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// LoadInitial fetches the first page and replaces the items wholesale.
// On failure the list stays empty and Idle so the load can be retried.
func (c *Controller[Q, T]) LoadInitial(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	fetchCtx, gen, q, _, ok := c.begin(ctx)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	c.notify()

	c.logger.Debug().Int("limit", c.limit).Int("offset", 0).Msg("Loading first page")
	page, err := c.fetch(fetchCtx, c.limit, 0, q)

	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		c.logger.Debug().Msg("Discarding stale first page")
		return nil
	}
	c.finishLocked()

	c.items = nil
	c.seen = make(map[string]struct{})
	c.offset = 0

	if err != nil {
		c.hasMore = true
		c.state = Idle
		c.lastErr = err
		c.mu.Unlock()

		c.logger.Error().Err(err).Msg("Failed to load first page")
		c.notify()
		return err
	}

	c.applyLocked(page)
	c.mu.Unlock()

	c.notify()
	return nil
}

// LoadMore appends the next page. It reports whether a fetch was issued;
// it is a no-op while loading or once exhausted. Before any page has loaded
// it performs the initial load. A failed append exhausts the list and keeps
// the items already loaded.
func (c *Controller[Q, T]) LoadMore(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	switch c.state {
	case Idle:
		c.mu.Unlock()
		return true, c.LoadInitial(ctx)
	case Loading, Exhausted:
		c.mu.Unlock()
		return false, nil
	}

	fetchCtx, gen, q, offset, ok := c.begin(ctx)
	preserve := ok && c.scroll != nil && len(c.items) > 0
	c.mu.Unlock()
	if !ok {
		return false, nil
	}

	scrollOffset := 0
	if preserve {
		scrollOffset = c.scroll.ScrollOffset()
	}
	c.notify()

	c.logger.Debug().Int("limit", c.limit).Int("offset", offset).Msg("Loading next page")
	page, err := c.fetch(fetchCtx, c.limit, offset, q)

	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		c.logger.Debug().Int("offset", offset).Msg("Discarding stale page")
		return true, nil
	}
	c.finishLocked()

	if err != nil {
		c.hasMore = false
		c.state = Exhausted
		c.lastErr = err
		c.mu.Unlock()

		c.logger.Error().Err(err).Int("offset", offset).Msg("Failed to load next page")
		c.notify()
		return true, err
	}

	c.applyLocked(page)
	c.mu.Unlock()

	c.notify()
	if preserve {
		c.scroll.RestoreScroll(scrollOffset)
	}
	return true, nil
}

// applyLocked appends a successful page. An empty page always exhausts.
func (c *Controller[Q, T]) applyLocked(page Page[T]) {
	c.lastErr = nil
	if len(page.Items) == 0 {
		c.hasMore = false
		c.state = Exhausted
		return
	}

	for _, item := range page.Items {
		k := c.key(item)
		if _, dup := c.seen[k]; dup {
			continue
		}
		c.seen[k] = struct{}{}
		c.items = append(c.items, item)
	}
	c.offset += len(page.Items)
	c.hasMore = page.HasMore

	if c.hasMore {
		c.state = Ready
	} else {
		c.state = Exhausted
	}
}

// State returns the current state
func (c *Controller[Q, T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Items returns a copy of the loaded items
func (c *Controller[Q, T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// Snapshot returns a copy of the controller state
func (c *Controller[Q, T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller[Q, T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Items:   append([]T(nil), c.items...),
		Offset:  c.offset,
		HasMore: c.hasMore,
		State:   c.state,
		Err:     c.lastErr,
	}
}

func (c *Controller[Q, T]) notify() {
	if c.onChange == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.onChange(snap)
}

// Close marks the controller dead. An in-flight fetch is cancelled and its
// result ignored. Close is idempotent.
func (c *Controller[Q, T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Closed reports whether Close has been called
func (c *Controller[Q, T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
