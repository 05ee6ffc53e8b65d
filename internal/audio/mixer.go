package audio

import "math"

// Loudness returns the RMS level of buf in dBFS. Empty or silent buffers
// report -Inf.
func Loudness(buf *Buffer) float64 {
	if buf.Len() == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range buf.Samples {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(buf.Samples)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// Gain returns a copy of buf scaled by db decibels.
func Gain(buf *Buffer, db float64) *Buffer {
	out := buf.Clone()
	factor := math.Pow(10, db/20)
	for i := range out.Samples {
		out.Samples[i] *= factor
	}
	return out
}

// Normalize applies the uniform gain that brings buf's RMS loudness to
// targetDBFS. Silent buffers are returned unchanged.
func Normalize(buf *Buffer, targetDBFS float64) *Buffer {
	current := Loudness(buf)
	if math.IsInf(current, -1) {
		return buf.Clone()
	}
	return Gain(buf, targetDBFS-current)
}

// TrimSilence removes a run of samples quieter than thresholdDB at the very
// start and at the very end of buf when the run lasts at least minSilenceMs.
// Interior silence is kept. A buffer that is silent throughout is returned
// unchanged. Applying TrimSilence twice gives the same result as once.
func TrimSilence(buf *Buffer, thresholdDB float64, minSilenceMs int) *Buffer {
	n := buf.Len()
	if n == 0 {
		return buf.Clone()
	}
	minRun := SamplesFor(minSilenceMs, buf.SampleRate)
	if minRun < 1 {
		minRun = 1
	}
	limit := math.Pow(10, thresholdDB/20)

	lead := 0
	for lead < n && math.Abs(buf.Samples[lead]) < limit {
		lead++
	}
	if lead == n {
		return buf.Clone()
	}
	trail := 0
	for trail < n && math.Abs(buf.Samples[n-1-trail]) < limit {
		trail++
	}

	start, end := 0, n
	if lead >= minRun {
		start = lead
	}
	if trail >= minRun {
		end = n - trail
	}
	return &Buffer{Samples: append([]float64(nil), buf.Samples[start:end]...), SampleRate: buf.SampleRate}
}

// LoopToLength repeats buf end to start until it covers n samples and
// truncates the result to exactly n. An empty buf yields n samples of silence.
func LoopToLength(buf *Buffer, n int) *Buffer {
	if n <= 0 {
		return &Buffer{SampleRate: buf.SampleRate}
	}
	out := make([]float64, n)
	if buf.Len() == 0 {
		return &Buffer{Samples: out, SampleRate: buf.SampleRate}
	}
	for filled := 0; filled < n; {
		filled += copy(out[filled:], buf.Samples)
	}
	return &Buffer{Samples: out, SampleRate: buf.SampleRate}
}

// Overlay adds b into a starting at position samples. The result is extended
// when b runs past the end of a; a negative position is treated as zero.
func Overlay(a, b *Buffer, position int) *Buffer {
	if position < 0 {
		position = 0
	}
	length := a.Len()
	if end := position + b.Len(); end > length {
		length = end
	}
	out := make([]float64, length)
	copy(out, a.Samples)
	for i, s := range b.Samples {
		out[position+i] += s
	}
	return &Buffer{Samples: out, SampleRate: a.SampleRate}
}

// Concat joins buffers end to end. The sample rate of the first buffer wins.
func Concat(bufs ...*Buffer) *Buffer {
	total, rate := 0, 0
	for _, b := range bufs {
		if b == nil {
			continue
		}
		if rate == 0 {
			rate = b.SampleRate
		}
		total += b.Len()
	}
	out := make([]float64, 0, total)
	for _, b := range bufs {
		if b == nil {
			continue
		}
		out = append(out, b.Samples...)
	}
	return &Buffer{Samples: out, SampleRate: rate}
}
