package carousel

import "testing"

func TestNextPrevWrap(t *testing.T) {
	c := New(3)

	c.Next()
	c.Next()
	if c.Current() != 2 {
		t.Fatalf("after two Next, current = %d, want 2", c.Current())
	}
	c.Next()
	if c.Current() != 0 {
		t.Errorf("Next from last = %d, want wrap to 0", c.Current())
	}
	c.Prev()
	if c.Current() != 2 {
		t.Errorf("Prev from first = %d, want wrap to 2", c.Current())
	}
}

func TestSingleSlideNavigationSuppressed(t *testing.T) {
	c := New(1)
	c.Next()
	c.Prev()
	if c.Current() != 0 {
		t.Errorf("single slide moved to %d", c.Current())
	}
}

func TestZeroSlides(t *testing.T) {
	c := New(0)
	c.Next()
	c.Prev()
	c.GoTo(0)
	if c.Current() != 0 || c.SlideCount() != 0 {
		t.Errorf("zero-slide carousel = current %d count %d", c.Current(), c.SlideCount())
	}
}

func TestGoToBounds(t *testing.T) {
	c := New(3)
	c.GoTo(2)
	if c.Current() != 2 {
		t.Errorf("GoTo(2) = %d", c.Current())
	}
	c.GoTo(3)
	c.GoTo(-1)
	if c.Current() != 2 {
		t.Errorf("out-of-range GoTo moved current to %d", c.Current())
	}
}

func TestSetSlideCountClamp(t *testing.T) {
	c := New(5)
	c.GoTo(4)

	// Still in range: untouched.
	c.SetSlideCount(5)
	if c.Current() != 4 {
		t.Errorf("same count moved current to %d", c.Current())
	}

	// Shrink past current: clamp to last.
	c.SetSlideCount(3)
	if c.Current() != 2 {
		t.Errorf("shrink clamp = %d, want 2", c.Current())
	}

	// Shrink but current still valid: untouched.
	c.GoTo(1)
	c.SetSlideCount(2)
	if c.Current() != 1 {
		t.Errorf("in-range shrink moved current to %d", c.Current())
	}

	// Empty: reset.
	c.SetSlideCount(0)
	if c.Current() != 0 {
		t.Errorf("empty reset = %d", c.Current())
	}
}

func TestCurrentAlwaysInRange(t *testing.T) {
	c := New(4)
	ops := []func(){
		c.Next, c.Next, c.Prev, func() { c.GoTo(3) },
		func() { c.SetSlideCount(2) }, c.Next, c.Prev,
		func() { c.SetSlideCount(7) }, func() { c.GoTo(6) },
		func() { c.SetSlideCount(1) }, c.Next,
	}
	for i, op := range ops {
		op()
		if n := c.SlideCount(); n > 0 && (c.Current() < 0 || c.Current() >= n) {
			t.Fatalf("op %d: current %d out of range [0,%d)", i, c.Current(), n)
		}
	}
}

func TestDragCommit(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
		want  int // expected slide starting from 1 of 3
	}{
		{"short right snaps back", 100, 1},
		{"short left snaps back", -100, 1},
		{"long right commits prev", 150, 0},
		{"long left commits next", -150, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(3)
			c.GoTo(1)
			c.DragStart(200)
			c.DragMove(200 + tt.delta)
			c.DragEnd()
			if c.Current() != tt.want {
				t.Errorf("current = %d, want %d", c.Current(), tt.want)
			}
			if c.Dragging() || c.Offset() != 0 {
				t.Error("drag state not reset after release")
			}
		})
	}
}

func TestDragMoveWithoutStart(t *testing.T) {
	c := New(3)
	c.DragMove(500)
	c.DragEnd()
	if c.Current() != 0 || c.Offset() != 0 {
		t.Errorf("unstarted drag changed state: current %d offset %v", c.Current(), c.Offset())
	}
}

func TestDragCommitsExactlyOneStep(t *testing.T) {
	c := New(3)
	c.DragStart(0)
	c.DragMove(-900) // far past the threshold
	c.DragEnd()
	if c.Current() != 1 {
		t.Errorf("current = %d, want exactly one step", c.Current())
	}
}

func TestVisiblePanels(t *testing.T) {
	c := New(3)
	prev, cur, next := c.VisiblePanels()
	if prev != 2 || cur != 0 || next != 1 {
		t.Errorf("VisiblePanels = %d,%d,%d, want 2,0,1", prev, cur, next)
	}

	c.Next()
	prev, cur, next = c.VisiblePanels()
	if prev != 0 || cur != 1 || next != 2 {
		t.Errorf("VisiblePanels = %d,%d,%d, want 0,1,2", prev, cur, next)
	}

	single := New(1)
	prev, cur, next = single.VisiblePanels()
	if prev != 0 || cur != 0 || next != 0 {
		t.Errorf("single VisiblePanels = %d,%d,%d", prev, cur, next)
	}
}
