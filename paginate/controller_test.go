package paginate

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    int
	Query string
}

func itemKey(i item) string { return strconv.Itoa(i.ID) }

// fakeSource serves a fixed number of items per query and records requests
type fakeSource struct {
	mu      sync.Mutex
	totals  map[string]int
	offsets []int
	failAt  map[int]error
	calls   atomic.Int32
}

func newFakeSource(totals map[string]int) *fakeSource {
	return &fakeSource{totals: totals, failAt: make(map[int]error)}
}

func (f *fakeSource) fetch(ctx context.Context, limit, offset int, q string) (Page[item], error) {
	f.calls.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)

	if err, ok := f.failAt[offset]; ok {
		delete(f.failAt, offset)
		return Page[item]{}, err
	}

	total := f.totals[q]
	var items []item
	for i := offset; i < total && i < offset+limit; i++ {
		items = append(items, item{ID: i + 1, Query: q})
	}
	return Page[item]{Items: items, HasMore: offset+len(items) < total}, nil
}

func (f *fakeSource) requested() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offsets...)
}

func newController(src *fakeSource, opts Options[item]) *Controller[string, item] {
	opts.Logger = zerolog.Nop()
	return New(src.fetch, itemKey, opts)
}

func TestTwentyThenFifteen(t *testing.T) {
	src := newFakeSource(map[string]int{"": 35})
	c := newController(src, Options[item]{Limit: 20})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	snap := c.Snapshot()
	assert.Len(t, snap.Items, 20)
	assert.Equal(t, 20, snap.Offset)
	assert.True(t, snap.HasMore)
	assert.Equal(t, Ready, snap.State)

	fetched, err := c.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, fetched)

	snap = c.Snapshot()
	assert.Len(t, snap.Items, 35)
	assert.Equal(t, Exhausted, snap.State)
	assert.False(t, snap.HasMore)

	fetched, err = c.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, fetched)
	assert.Equal(t, []int{0, 20}, src.requested())
}

func TestLoadMoreNeverDuplicates(t *testing.T) {
	pages := []Page[item]{
		{Items: []item{{ID: 1}, {ID: 2}, {ID: 3}}, HasMore: true},
		{Items: []item{{ID: 3}, {ID: 4}}, HasMore: true},
		{Items: []item{{ID: 5}, {ID: 1}, {ID: 6}}, HasMore: false},
	}
	var offsets []int
	fetch := func(ctx context.Context, limit, offset int, q struct{}) (Page[item], error) {
		offsets = append(offsets, offset)
		p := pages[0]
		pages = pages[1:]
		return p, nil
	}

	c := New(fetch, itemKey, Options[item]{Limit: 3, Logger: zerolog.Nop()})
	ctx := context.Background()
	require.NoError(t, c.LoadInitial(ctx))
	for c.State() == Ready {
		_, err := c.LoadMore(ctx)
		require.NoError(t, err)
	}

	ids := make([]int, 0)
	for _, it := range c.Items() {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, ids)
	// offset follows items received, duplicates included
	assert.Equal(t, []int{0, 3, 5}, offsets)
	assert.Equal(t, 8, c.Snapshot().Offset)
}

func TestShortPagesAdvanceByReceived(t *testing.T) {
	var offsets []int
	fetch := func(ctx context.Context, limit, offset int, q struct{}) (Page[item], error) {
		offsets = append(offsets, offset)
		if offset >= 12 {
			return Page[item]{HasMore: false}, nil
		}
		// server caps pages at 4 regardless of limit
		items := make([]item, 0, 4)
		for i := range 4 {
			items = append(items, item{ID: offset + i})
		}
		return Page[item]{Items: items, HasMore: true}, nil
	}

	c := New(fetch, itemKey, Options[item]{Limit: 10, Logger: zerolog.Nop()})
	ctx := context.Background()
	require.NoError(t, c.LoadInitial(ctx))
	for c.State() == Ready {
		_, err := c.LoadMore(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{0, 4, 8, 12}, offsets)
	assert.Len(t, c.Items(), 12)
	assert.Equal(t, Exhausted, c.State())
}

func TestEmptyPageExhaustsDespiteHasMore(t *testing.T) {
	var calls int
	fetch := func(ctx context.Context, limit, offset int, q struct{}) (Page[item], error) {
		calls++
		if offset == 0 {
			return Page[item]{Items: []item{{ID: 1}}, HasMore: true}, nil
		}
		return Page[item]{HasMore: true}, nil
	}

	c := New(fetch, itemKey, Options[item]{Logger: zerolog.Nop()})
	ctx := context.Background()
	require.NoError(t, c.LoadInitial(ctx))

	fetched, err := c.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Equal(t, Exhausted, c.State())
	assert.False(t, c.Snapshot().HasMore)

	fetched, _ = c.LoadMore(ctx)
	assert.False(t, fetched)
	assert.Equal(t, 2, calls)
}

func TestEmptyFirstPageExhausts(t *testing.T) {
	src := newFakeSource(map[string]int{"": 0})
	c := newController(src, Options[item]{})

	require.NoError(t, c.LoadInitial(context.Background()))
	assert.Equal(t, Exhausted, c.State())
	assert.Empty(t, c.Items())

	fetched, err := c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.False(t, fetched)
}

func TestLoadMoreFailureExhaustsAndKeepsItems(t *testing.T) {
	src := newFakeSource(map[string]int{"": 100})
	boom := errors.New("boom")
	src.failAt[10] = boom

	c := newController(src, Options[item]{Limit: 10})
	ctx := context.Background()
	require.NoError(t, c.LoadInitial(ctx))

	fetched, err := c.LoadMore(ctx)
	assert.True(t, fetched)
	assert.ErrorIs(t, err, boom)

	snap := c.Snapshot()
	assert.Equal(t, Exhausted, snap.State)
	assert.Len(t, snap.Items, 10)
	assert.ErrorIs(t, snap.Err, boom)

	fetched, err = c.LoadMore(ctx)
	assert.False(t, fetched)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestInitialFailureIsRetryable(t *testing.T) {
	src := newFakeSource(map[string]int{"": 5})
	boom := errors.New("offline")
	src.failAt[0] = boom

	c := newController(src, Options[item]{})
	ctx := context.Background()

	err := c.LoadInitial(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Idle, c.State())
	assert.Empty(t, c.Items())

	// LoadMore from Idle performs the initial load
	fetched, err := c.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Len(t, c.Items(), 5)
	assert.Equal(t, Exhausted, c.State())
	assert.NoError(t, c.Snapshot().Err)
}

func TestSetQueryResets(t *testing.T) {
	src := newFakeSource(map[string]int{"alice": 30, "bob": 3})

	var snaps []Snapshot[item]
	c := newController(src, Options[item]{
		Limit:    10,
		OnChange: func(s Snapshot[item]) { snaps = append(snaps, s) },
	})
	ctx := context.Background()

	require.NoError(t, c.SetQuery(ctx, "alice"))
	_, err := c.LoadMore(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Items(), 20)

	snaps = nil
	require.NoError(t, c.SetQuery(ctx, "bob"))

	// the list is empty at offset 0 before bob's first fetch
	require.NotEmpty(t, snaps)
	assert.Empty(t, snaps[0].Items)
	assert.Equal(t, 0, snaps[0].Offset)
	assert.True(t, snaps[0].HasMore)

	for _, it := range c.Items() {
		assert.Equal(t, "bob", it.Query)
	}
	assert.Len(t, c.Items(), 3)
	assert.Equal(t, []int{0, 10, 0}, src.requested())

	// same key again is a no-op
	require.NoError(t, c.SetQuery(ctx, "bob"))
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestResetRefetchesFromZero(t *testing.T) {
	src := newFakeSource(map[string]int{"": 25})
	c := newController(src, Options[item]{Limit: 10})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	_, err := c.LoadMore(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Reset(ctx))
	assert.Len(t, c.Items(), 10)
	assert.Equal(t, 10, c.Snapshot().Offset)
	assert.Equal(t, []int{0, 10, 0}, src.requested())
}

// gatedSource blocks each fetch until released
type gatedSource struct {
	started  chan string
	release  chan struct{}
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newGatedSource() *gatedSource {
	return &gatedSource{started: make(chan string, 16), release: make(chan struct{})}
}

func (g *gatedSource) fetch(ctx context.Context, limit, offset int, q string) (Page[item], error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		prev := g.maxSeen.Load()
		if n <= prev || g.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}

	g.started <- q
	<-g.release

	items := make([]item, 0, limit)
	for i := range limit {
		items = append(items, item{ID: offset + i, Query: q})
	}
	return Page[item]{Items: items, HasMore: true}, nil
}

func TestSingleFetchInFlight(t *testing.T) {
	src := newGatedSource()
	c := New(src.fetch, itemKey, Options[item]{Limit: 5, Logger: zerolog.Nop()})
	ctx := context.Background()

	go func() { close(src.release) }()
	require.NoError(t, c.LoadInitial(ctx))
	<-src.started

	// re-arm the gate for the append
	src.release = make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.LoadMore(ctx)
	}()
	<-src.started
	assert.Equal(t, Loading, c.State())
	assert.True(t, c.Snapshot().Loading())

	for range 10 {
		fetched, err := c.LoadMore(ctx)
		assert.False(t, fetched)
		assert.NoError(t, err)
	}
	require.NoError(t, c.LoadInitial(ctx))

	close(src.release)
	<-done

	assert.Equal(t, int32(1), src.maxSeen.Load())
	assert.Len(t, c.Items(), 10)
	assert.Equal(t, Ready, c.State())
}

func TestStaleResponseDiscardedAfterQueryChange(t *testing.T) {
	release := map[string]chan struct{}{
		"alice": make(chan struct{}),
		"bob":   make(chan struct{}),
	}
	started := make(chan string, 4)
	fetch := func(ctx context.Context, limit, offset int, q string) (Page[item], error) {
		started <- q
		<-release[q]
		return Page[item]{Items: []item{{ID: 1, Query: q}, {ID: 2, Query: q}}, HasMore: false}, nil
	}

	c := New(fetch, itemKey, Options[item]{Logger: zerolog.Nop()})
	ctx := context.Background()

	aliceDone := make(chan error, 1)
	go func() { aliceDone <- c.SetQuery(ctx, "alice") }()
	require.Equal(t, "alice", <-started)

	bobDone := make(chan error, 1)
	go func() { bobDone <- c.SetQuery(ctx, "bob") }()
	require.Equal(t, "bob", <-started)

	close(release["bob"])
	require.NoError(t, <-bobDone)

	// alice's late response must not overwrite bob's list
	close(release["alice"])
	require.NoError(t, <-aliceDone)

	items := c.Items()
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, "bob", it.Query)
	}
	assert.Equal(t, Exhausted, c.State())
}

func TestCloseIgnoresLateResponse(t *testing.T) {
	src := newGatedSource()
	var changes atomic.Int32
	c := New(src.fetch, itemKey, Options[item]{
		Limit:    3,
		Logger:   zerolog.Nop(),
		OnChange: func(Snapshot[item]) { changes.Add(1) },
	})

	done := make(chan error, 1)
	go func() { done <- c.LoadInitial(context.Background()) }()
	<-src.started

	c.Close()
	c.Close()
	before := changes.Load()

	close(src.release)
	require.NoError(t, <-done)

	assert.True(t, c.Closed())
	assert.Empty(t, c.Items())
	assert.Equal(t, before, changes.Load())

	_, err := c.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.SetQuery(context.Background(), "x"), ErrClosed)
	assert.ErrorIs(t, c.Reset(context.Background()), ErrClosed)
}

func TestCloseCancelsFetchContext(t *testing.T) {
	started := make(chan struct{})
	fetch := func(ctx context.Context, limit, offset int, q struct{}) (Page[item], error) {
		close(started)
		<-ctx.Done()
		return Page[item]{}, ctx.Err()
	}

	c := New(fetch, itemKey, Options[item]{Logger: zerolog.Nop()})
	done := make(chan error, 1)
	go func() { done <- c.LoadInitial(context.Background()) }()
	<-started

	c.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was not cancelled")
	}
}

type recordingScroll struct {
	mu       sync.Mutex
	offset   int
	restored []int
	events   *[]string
}

func (r *recordingScroll) ScrollOffset() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.events = append(*r.events, "capture")
	return r.offset
}

func (r *recordingScroll) RestoreScroll(offset int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.events = append(*r.events, "restore")
	r.restored = append(r.restored, offset)
	r.offset = offset
}

func TestScrollPreservedAcrossAppend(t *testing.T) {
	var events []string
	scroll := &recordingScroll{events: &events}
	src := newFakeSource(map[string]int{"": 30})

	c := newController(src, Options[item]{
		Limit:  10,
		Scroll: scroll,
		OnChange: func(s Snapshot[item]) {
			if s.State != Loading {
				events = append(events, "render")
				// rendering new rows displaces the viewport
				scroll.mu.Lock()
				scroll.offset += len(s.Items)
				scroll.mu.Unlock()
			}
		},
	})
	ctx := context.Background()

	require.NoError(t, c.LoadInitial(ctx))
	assert.Empty(t, scroll.restored, "initial load must not touch scroll")

	scroll.mu.Lock()
	scroll.offset = 7
	scroll.mu.Unlock()
	events = nil

	_, err := c.LoadMore(ctx)
	require.NoError(t, err)

	assert.Equal(t, []int{7}, scroll.restored)
	assert.Equal(t, 7, scroll.offset)
	assert.Equal(t, []string{"capture", "render", "restore"}, events)
}

func TestScrollNotCapturedForInitialLoad(t *testing.T) {
	var events []string
	scroll := &recordingScroll{events: &events}
	src := newFakeSource(map[string]int{"": 30})

	c := newController(src, Options[item]{Limit: 10, Scroll: scroll})

	// LoadMore from Idle is an initial load
	fetched, err := c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Len(t, c.Items(), 10)
	assert.Empty(t, events)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "exhausted", Exhausted.String())
	assert.Equal(t, "unknown", State(42).String())
}
