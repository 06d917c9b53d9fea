package audio

import "testing"

func seq(start, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(start + i)
	}
	return out
}

func TestTryTakeWindowNotEnoughSamples(t *testing.T) {
	b := NewSampleBuffer(100)
	b.Push(seq(0, 5))

	if _, ok := b.TryTakeWindow(6); ok {
		t.Error("Expected no window with only 5 buffered samples")
	}
	if b.Len() != 5 {
		t.Errorf("Expected 5 buffered samples, got %d", b.Len())
	}
}

func TestWindowsDrainInOrder(t *testing.T) {
	b := NewSampleBuffer(100)
	b.Push(seq(0, 5))

	window, ok := b.TryTakeWindow(3)
	if !ok {
		t.Fatal("Expected a window")
	}
	for i, v := range window {
		if v != float64(i) {
			t.Errorf("First window[%d] = %f, want %d", i, v, i)
		}
	}

	// Taking drains: the next window continues where the first ended,
	// never re-reading samples.
	b.Push(seq(5, 4))
	window, ok = b.TryTakeWindow(3)
	if !ok {
		t.Fatal("Expected a second window")
	}
	for i, v := range window {
		if v != float64(3+i) {
			t.Errorf("Second window[%d] = %f, want %d", i, v, 3+i)
		}
	}
	if b.Len() != 3 {
		t.Errorf("Expected 3 buffered samples, got %d", b.Len())
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	b := NewSampleBuffer(4)
	b.Push(seq(0, 3))
	b.Push(seq(3, 3))

	if b.Dropped() != 2 {
		t.Errorf("Expected 2 dropped samples, got %d", b.Dropped())
	}
	window, ok := b.TryTakeWindow(4)
	if !ok {
		t.Fatal("Expected a full window")
	}
	for i, v := range window {
		if v != float64(2+i) {
			t.Errorf("window[%d] = %f, want %d", i, v, 2+i)
		}
	}
}

func TestOversizedPushKeepsTail(t *testing.T) {
	b := NewSampleBuffer(4)
	b.Push(seq(0, 6))

	if b.Dropped() != 2 {
		t.Errorf("Expected 2 dropped samples, got %d", b.Dropped())
	}
	window, ok := b.TryTakeWindow(4)
	if !ok {
		t.Fatal("Expected a full window")
	}
	for i, v := range window {
		if v != float64(2+i) {
			t.Errorf("window[%d] = %f, want %d", i, v, 2+i)
		}
	}
}

func TestWrapAround(t *testing.T) {
	b := NewSampleBuffer(5)
	b.Push(seq(0, 4))

	if _, ok := b.TryTakeWindow(2); !ok {
		t.Fatal("Expected a window")
	}

	// The ring is now offset; the next push wraps.
	b.Push(seq(4, 3))
	window, ok := b.TryTakeWindow(5)
	if !ok {
		t.Fatal("Expected a full window")
	}
	for i, v := range window {
		if v != float64(2+i) {
			t.Errorf("window[%d] = %f, want %d", i, v, 2+i)
		}
	}
	if b.Len() != 0 {
		t.Errorf("Expected empty buffer, got %d", b.Len())
	}
	if b.Dropped() != 0 {
		t.Errorf("Expected no drops, got %d", b.Dropped())
	}
}
