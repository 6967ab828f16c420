// Package carousel implements the slide navigation state machine used by
// the dashboard: a circular set of panels with step navigation, direct
// jumps, and drag gestures. It does no I/O and knows nothing about
// rendering; callers feed it events and read back the current position.
package carousel

// DragThreshold is the horizontal distance a drag must travel before a
// release commits a slide change. Shorter drags snap back.
const DragThreshold = 100

// Carousel tracks the current slide and any in-progress drag.
type Carousel struct {
	count      int
	current    int
	dragging   bool
	startX     float64
	translateX float64
}

// New returns a carousel with n slides, positioned on the first.
func New(n int) *Carousel {
	c := &Carousel{}
	c.SetSlideCount(n)
	return c
}

// SetSlideCount updates the number of slides. The current index is kept
// while still in range, clamped to the last slide when the set shrank past
// it, and reset to 0 when no slides remain.
func (c *Carousel) SetSlideCount(n int) {
	if n < 0 {
		n = 0
	}
	c.count = n
	switch {
	case n == 0:
		c.current = 0
	case c.current >= n:
		c.current = n - 1
	}
}

// SlideCount returns the number of slides.
func (c *Carousel) SlideCount() int { return c.count }

// Current returns the index of the active slide.
func (c *Carousel) Current() int { return c.current }

// Dragging reports whether a drag is in progress.
func (c *Carousel) Dragging() bool { return c.dragging }

// Offset returns the signed distance of the in-progress drag, 0 when not
// dragging.
func (c *Carousel) Offset() float64 { return c.translateX }

// Next advances one slide, wrapping from the last to the first. It is a
// no-op with fewer than two slides.
func (c *Carousel) Next() {
	if c.count < 2 {
		return
	}
	c.current = (c.current + 1) % c.count
}

// Prev steps back one slide, wrapping from the first to the last. It is a
// no-op with fewer than two slides.
func (c *Carousel) Prev() {
	if c.count < 2 {
		return
	}
	c.current = (c.current - 1 + c.count) % c.count
}

// GoTo jumps directly to slide i. Out-of-range targets are ignored.
func (c *Carousel) GoTo(i int) {
	if i < 0 || i >= c.count {
		return
	}
	c.current = i
}

// DragStart begins a drag gesture at horizontal position x.
func (c *Carousel) DragStart(x float64) {
	c.dragging = true
	c.startX = x
	c.translateX = 0
}

// DragMove updates the drag offset. Ignored when no drag is in progress.
func (c *Carousel) DragMove(x float64) {
	if !c.dragging {
		return
	}
	c.translateX = x - c.startX
}

// DragEnd releases the drag. A pull beyond the threshold commits exactly
// one step: rightward (positive) to the previous slide, leftward to the
// next. Anything shorter snaps back. Pointer leave is treated as a
// release.
func (c *Carousel) DragEnd() {
	if !c.dragging {
		return
	}
	offset := c.translateX
	c.dragging = false
	c.translateX = 0

	switch {
	case offset > DragThreshold:
		c.Prev()
	case offset < -DragThreshold:
		c.Next()
	}
}

// VisiblePanels returns the indexes of the three panels in the loop
// layout: the slide to the left, the active slide, and the slide to the
// right. With a single slide all three are that slide.
func (c *Carousel) VisiblePanels() (prev, cur, next int) {
	if c.count == 0 {
		return 0, 0, 0
	}
	prev = (c.current - 1 + c.count) % c.count
	next = (c.current + 1) % c.count
	return prev, c.current, next
}
