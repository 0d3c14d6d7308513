package ui

import "sync"

// Viewport tracks which rows of a growing list are on screen. It satisfies
// paginate.ScrollKeeper and supplies the proximity check for polling.
type Viewport struct {
	mu     sync.Mutex
	height int
	offset int
	total  int
}

// NewViewport creates a viewport showing height rows
func NewViewport(height int) *Viewport {
	if height <= 0 {
		height = 10
	}
	return &Viewport{height: height}
}

// SetTotal records the number of rows in the list
func (v *Viewport) SetTotal(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.total = n
	v.offset = v.clamp(v.offset)
}

// Scroll moves by delta rows
func (v *Viewport) Scroll(delta int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = v.clamp(v.offset + delta)
}

// ScrollOffset returns the first visible row
func (v *Viewport) ScrollOffset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset
}

// RestoreScroll moves back to a previously captured offset
func (v *Viewport) RestoreScroll(offset int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = v.clamp(offset)
}

// Visible returns the half-open row range on screen
func (v *Viewport) Visible() (start, end int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset, min(v.offset+v.height, v.total)
}

// NearEnd reports whether the last row is within threshold rows of the screen
func (v *Viewport) NearEnd(threshold int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset+v.height+threshold >= v.total
}

func (v *Viewport) clamp(offset int) int {
	maxOffset := max(v.total-v.height, 0)
	return min(max(offset, 0), maxOffset)
}
