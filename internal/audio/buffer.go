package audio

import "time"

// Buffer is a mono sample buffer.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// NewSilence returns n zero samples.
func NewSilence(n, sampleRate int) *Buffer {
	if n < 0 {
		n = 0
	}
	return &Buffer{Samples: make([]float64, n), SampleRate: sampleRate}
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Samples)
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	if b == nil {
		return nil
	}
	return &Buffer{Samples: append([]float64(nil), b.Samples...), SampleRate: b.SampleRate}
}

// SamplesFor converts a duration in milliseconds to a sample count.
func SamplesFor(ms, sampleRate int) int {
	return int(int64(ms) * int64(sampleRate) / 1000)
}
