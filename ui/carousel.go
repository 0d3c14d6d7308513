package ui

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultCarouselInterval is how long each slide is shown
const DefaultCarouselInterval = 4 * time.Second

// Carousel cycles through a fixed list of items, wrapping at both ends.
// Manual navigation does not reset or stop the auto-advance timer.
type Carousel[T any] struct {
	mu       sync.Mutex
	items    []T
	index    int
	interval time.Duration
	onChange func(index int, item T)

	stop    chan struct{}
	stopped bool
	running bool
}

// NewCarousel creates a carousel. A non-positive interval uses the default.
func NewCarousel[T any](items []T, interval time.Duration, onChange func(index int, item T)) *Carousel[T] {
	if interval <= 0 {
		interval = DefaultCarouselInterval
	}
	return &Carousel[T]{
		items:    append([]T(nil), items...),
		interval: interval,
		onChange: onChange,
		stop:     make(chan struct{}),
	}
}

// Start begins auto-advancing. It does nothing for an empty carousel or one
// that is already running or stopped.
func (c *Carousel[T]) Start(ctx context.Context) {
	c.mu.Lock()
	if len(c.items) == 0 || c.running || c.stopped {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	go c.run(ctx)
}

func (c *Carousel[T]) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.Next()
		}
	}
}

// Stop halts auto-advance permanently. It is safe to call more than once.
func (c *Carousel[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	c.running = false
	close(c.stop)
}

// Running reports whether the auto-advance timer is active
func (c *Carousel[T]) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Len returns the number of items
func (c *Carousel[T]) Len() int {
	return len(c.items)
}

// Index returns the current position
func (c *Carousel[T]) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Current returns the item at the current position
func (c *Carousel[T]) Current() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if len(c.items) == 0 {
		return zero, false
	}
	return c.items[c.index], true
}

// Next moves forward one item, wrapping to the first
func (c *Carousel[T]) Next() {
	c.move(func(i, n int) int { return (i + 1) % n })
}

// Prev moves back one item, wrapping to the last
func (c *Carousel[T]) Prev() {
	c.move(func(i, n int) int { return (i - 1 + n) % n })
}

// Select jumps to index
func (c *Carousel[T]) Select(index int) error {
	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("slide %d out of range [0, %d)", index, len(c.items))
	}
	c.move(func(int, int) int { return index })
	return nil
}

func (c *Carousel[T]) move(next func(index, n int) int) {
	c.mu.Lock()
	n := len(c.items)
	if n == 0 {
		c.mu.Unlock()
		return
	}
	c.index = next(c.index, n)
	index, item := c.index, c.items[c.index]
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(index, item)
	}
}
