package audio

// SampleBuffer accumulates incoming PCM samples into a bounded ring and
// hands out fixed-size analysis windows from the front (FIFO). Windows are
// non-overlapping: taking a window drains exactly that many samples, so no
// sample is ever analyzed twice.
//
// When the producer outpaces the consumer and the ring fills up, the oldest
// samples are dropped and counted rather than growing without bound.
//
// SampleBuffer is not safe for concurrent use; each connection owns one.
type SampleBuffer struct {
	buf     []float64
	head    int
	length  int
	dropped uint64
}

// NewSampleBuffer creates a buffer holding at most capacity samples.
func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &SampleBuffer{buf: make([]float64, capacity)}
}

// Push appends samples in arrival order, dropping the oldest buffered
// samples if the ring would overflow.
func (b *SampleBuffer) Push(samples []float64) {
	ringCap := len(b.buf)

	// A single push larger than the whole ring keeps only its tail.
	if len(samples) >= ringCap {
		b.dropped += uint64(b.length + len(samples) - ringCap)
		copy(b.buf, samples[len(samples)-ringCap:])
		b.head = 0
		b.length = ringCap
		return
	}

	if overflow := b.length + len(samples) - ringCap; overflow > 0 {
		b.head = (b.head + overflow) % ringCap
		b.length -= overflow
		b.dropped += uint64(overflow)
	}

	tail := (b.head + b.length) % ringCap
	n := copy(b.buf[tail:], samples)
	copy(b.buf, samples[n:])
	b.length += len(samples)
}

// TryTakeWindow returns a window of exactly size samples and removes them
// from the front of the buffer. Returns nil, false until enough samples
// have accumulated.
func (b *SampleBuffer) TryTakeWindow(size int) ([]float64, bool) {
	if size <= 0 || b.length < size {
		return nil, false
	}

	window := make([]float64, size)
	n := copy(window, b.buf[b.head:min(b.head+size, len(b.buf))])
	copy(window[n:], b.buf)

	b.head = (b.head + size) % len(b.buf)
	b.length -= size
	return window, true
}

// Len returns the number of buffered samples.
func (b *SampleBuffer) Len() int {
	return b.length
}

// Dropped returns the total number of samples discarded due to overflow,
// the backpressure signal for a consumer falling behind.
func (b *SampleBuffer) Dropped() uint64 {
	return b.dropped
}
