package smoother

import "testing"

func approxEqual(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}

func TestPushBeforeWindowFullAveragesAvailableEntries(t *testing.T) {
	s := New()
	if got := s.Push(1.0); !approxEqual(got, 1.0) {
		t.Errorf("after 1 push: got %f, want 1.0", got)
	}
	if got := s.Push(0.0); !approxEqual(got, 0.5) {
		t.Errorf("after 2 pushes: got %f, want 0.5", got)
	}
}

func TestPushDropsOldestBeyondWindowSize(t *testing.T) {
	s := New()
	for i := 0; i < WindowSize; i++ {
		s.Push(1.0)
	}
	// Window is now full of 1.0s; push a zero, which should replace the
	// oldest 1.0, giving mean = 4/5.
	got := s.Push(0.0)
	want := float32(4.0 / 5.0)
	if !approxEqual(got, want) {
		t.Errorf("got %f, want %f", got, want)
	}
}

func TestPushSlidingWindowMatchesManualMean(t *testing.T) {
	s := New()
	values := []float32{0.1, 0.9, 0.2, 0.8, 0.3, 0.05, 0.95}
	for i, v := range values {
		got := s.Push(v)
		start := i - WindowSize + 1
		if start < 0 {
			start = 0
		}
		var sum float32
		for _, x := range values[start : i+1] {
			sum += x
		}
		want := sum / float32(i+1-start)
		if !approxEqual(got, want) {
			t.Errorf("push %d: got %f, want %f", i, got, want)
		}
	}
}

func TestReset(t *testing.T) {
	s := New()
	s.Push(1.0)
	s.Push(1.0)
	s.Reset()
	got := s.Push(0.0)
	if !approxEqual(got, 0.0) {
		t.Errorf("expected window to be empty after Reset, got %f", got)
	}
}
