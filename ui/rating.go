package ui

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultMaxStars is the size of the rating scale users rate on
const DefaultMaxStars = 5

// StarRating is a 1..Max rating widget. Value is the committed rating;
// hover is a transient preview that takes precedence while set. It is
// safe for concurrent use; Max and ReadOnly are fixed once created.
type StarRating struct {
	Max      int
	ReadOnly bool

	mu       sync.Mutex
	value    int
	hover    int
	onChange func(int)
}

// NewStarRating creates a widget showing value. onChange receives clicks.
func NewStarRating(value int, readOnly bool, onChange func(int)) *StarRating {
	return &StarRating{
		Max:      DefaultMaxStars,
		ReadOnly: readOnly,
		value:    value,
		onChange: onChange,
	}
}

// Value returns the committed rating, 0 when unrated
func (r *StarRating) Value() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// SetValue commits a rating, typically after the server accepted it
func (r *StarRating) SetValue(v int) {
	r.mu.Lock()
	r.value = v
	r.mu.Unlock()
}

// Hover previews n stars
func (r *StarRating) Hover(n int) {
	if r.ReadOnly || n < 0 || n > r.Max {
		return
	}
	r.mu.Lock()
	r.hover = n
	r.mu.Unlock()
}

// Leave clears the preview
func (r *StarRating) Leave() {
	if r.ReadOnly {
		return
	}
	r.mu.Lock()
	r.hover = 0
	r.mu.Unlock()
}

// Click reports n to the change callback. The committed value is not
// changed here; the owner calls SetValue once the rating is saved. The
// callback runs without the widget lock held, so it may call SetValue.
func (r *StarRating) Click(n int) bool {
	if r.ReadOnly || r.onChange == nil || n < 1 || n > r.Max {
		return false
	}
	r.onChange(n)
	return true
}

// Display is the number of stars drawn filled
func (r *StarRating) Display() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.displayLocked()
}

func (r *StarRating) displayLocked() int {
	if r.hover > 0 {
		return r.hover
	}
	return r.value
}

// Render draws the widget, e.g. "Your Rating: ★★★★☆ 4/5"
func (r *StarRating) Render() string {
	r.mu.Lock()
	shown, value := r.displayLocked(), r.value
	r.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("Your Rating: ")

	for i := 1; i <= r.Max; i++ {
		if i <= shown {
			sb.WriteString("★")
		} else {
			sb.WriteString("☆")
		}
	}
	if value > 0 {
		fmt.Fprintf(&sb, " %d/%d", value, r.Max)
	}
	return sb.String()
}
