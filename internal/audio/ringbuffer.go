package audio

import (
	"encoding/binary"
	"sync"
)

// SampleRingBuffer keeps the most recent int16 samples for level display.
// One goroutine writes while any number read.
type SampleRingBuffer struct {
	mu      sync.RWMutex
	samples []int16
	head    int // next write position
	count   int // valid samples, up to capacity
}

// NewSampleRingBuffer creates a ring buffer with the given capacity.
func NewSampleRingBuffer(capacity int) *SampleRingBuffer {
	return &SampleRingBuffer{ //nolint:exhaustruct // mu, head, count start at zero
		samples: make([]int16, capacity),
	}
}

// Write appends samples, overwriting the oldest once full.
func (b *SampleRingBuffer) Write(samples []int16) {
	if len(samples) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.samples)

	// only the tail can survive a write longer than the buffer
	if len(samples) > capacity {
		samples = samples[len(samples)-capacity:]
	}

	for _, sample := range samples {
		b.samples[b.head] = sample
		b.head = (b.head + 1) % capacity
	}

	b.count = min(b.count+len(samples), capacity)
}

// ReadSamples returns up to n of the most recent samples, oldest first.
func (b *SampleRingBuffer) ReadSamples(n int) []int16 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 || n <= 0 {
		return nil
	}

	n = min(n, b.count)
	capacity := len(b.samples)
	start := (b.head - n + capacity) % capacity

	result := make([]int16, n)
	for i := range n {
		result[i] = b.samples[(start+i)%capacity]
	}

	return result
}

// Read implements uictl.Levels by returning the whole buffer.
func (b *SampleRingBuffer) Read() []int16 {
	return b.ReadSamples(len(b.samples))
}

// Count returns the number of valid samples in the buffer.
func (b *SampleRingBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.count
}

// Reset forgets every sample.
func (b *SampleRingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.head = 0
	b.count = 0
}

// BytesToInt16 converts S16LE bytes to samples. A trailing odd byte is ignored.
func BytesToInt16(data []byte) []int16 {
	numSamples := len(data) / bytesPerSample
	if numSamples == 0 {
		return nil
	}

	samples := make([]int16, numSamples)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*bytesPerSample:])) //nolint:gosec // reinterpreting sign bit
	}

	return samples
}

// Int16ToBytes converts samples to S16LE bytes, writing into out.
// out must hold len(samples)*2 bytes.
func Int16ToBytes(out []byte, samples []int16) {
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(sample)) //nolint:gosec // reinterpreting sign bit
	}
}
