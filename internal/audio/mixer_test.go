package audio

import (
	"math"
	"testing"
)

const testRate = 1000

func constant(n int, v float64) *Buffer {
	buf := NewSilence(n, testRate)
	for i := range buf.Samples {
		buf.Samples[i] = v
	}
	return buf
}

func ramp(n int) *Buffer {
	buf := NewSilence(n, testRate)
	for i := range buf.Samples {
		buf.Samples[i] = 0.1 + float64(i%10)/100
	}
	return buf
}

func TestNormalizeReachesTarget(t *testing.T) {
	in := constant(500, 0.5)
	out := Normalize(in, -16)
	if got := Loudness(out); math.Abs(got+16) > 1e-9 {
		t.Fatalf("expected -16 dBFS, got %f", got)
	}
	if in.Samples[0] != 0.5 {
		t.Fatalf("input modified: %f", in.Samples[0])
	}
}

func TestNormalizeSilentBufferUnchanged(t *testing.T) {
	in := NewSilence(100, testRate)
	out := Normalize(in, -16)
	if out.Len() != 100 {
		t.Fatalf("expected 100 samples, got %d", out.Len())
	}
	for _, s := range out.Samples {
		if s != 0 {
			t.Fatalf("expected silence to stay silent, got %f", s)
		}
	}
}

func TestGain(t *testing.T) {
	out := Gain(constant(10, 1), -20)
	if math.Abs(out.Samples[0]-0.1) > 1e-12 {
		t.Fatalf("expected -20 dB to scale by 0.1, got %f", out.Samples[0])
	}
}

func TestTrimSilence(t *testing.T) {
	tests := []struct {
		name       string
		lead, tail int
		wantLen    int
	}{
		{name: "long runs trimmed", lead: 600, tail: 700, wantLen: 1000},
		{name: "short lead kept", lead: 300, tail: 600, wantLen: 1300},
		{name: "short tail kept", lead: 600, tail: 100, wantLen: 1100},
		{name: "no silence", lead: 0, tail: 0, wantLen: 1000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := Concat(NewSilence(tc.lead, testRate), constant(1000, 0.3), NewSilence(tc.tail, testRate))
			got := TrimSilence(buf, -40, 500)
			if got.Len() != tc.wantLen {
				t.Fatalf("expected %d samples, got %d", tc.wantLen, got.Len())
			}
		})
	}
}

func TestTrimSilenceKeepsInteriorSilence(t *testing.T) {
	buf := Concat(constant(200, 0.3), NewSilence(800, testRate), constant(200, 0.3))
	if got := TrimSilence(buf, -40, 500); got.Len() != 1200 {
		t.Fatalf("expected interior silence kept, got %d samples", got.Len())
	}
}

func TestTrimSilenceIdempotent(t *testing.T) {
	buf := Concat(NewSilence(900, testRate), ramp(1500), NewSilence(200, testRate), NewSilence(650, testRate))
	once := TrimSilence(buf, -40, 500)
	twice := TrimSilence(once, -40, 500)
	if once.Len() != twice.Len() {
		t.Fatalf("expected idempotent trim, got %d then %d", once.Len(), twice.Len())
	}
	for i := range once.Samples {
		if once.Samples[i] != twice.Samples[i] {
			t.Fatalf("sample %d differs after second trim", i)
		}
	}
}

func TestTrimSilenceAllSilent(t *testing.T) {
	buf := NewSilence(2000, testRate)
	if got := TrimSilence(buf, -40, 500); got.Len() != 2000 {
		t.Fatalf("expected all-silent buffer unchanged, got %d samples", got.Len())
	}
}

func TestLoopToLength(t *testing.T) {
	bed := ramp(10_000)
	for _, n := range []int{0, 1, 9_999, 10_000, 30_000, 30_001} {
		got := LoopToLength(bed, n)
		if got.Len() != n {
			t.Fatalf("n=%d: expected %d samples, got %d", n, n, got.Len())
		}
		for i, s := range got.Samples {
			if s != bed.Samples[i%bed.Len()] {
				t.Fatalf("n=%d: sample %d is not a repeat of the source", n, i)
			}
		}
	}
}

func TestLoopToLengthEmptySource(t *testing.T) {
	got := LoopToLength(NewSilence(0, testRate), 50)
	if got.Len() != 50 {
		t.Fatalf("expected 50 samples of silence, got %d", got.Len())
	}
	if got := LoopToLength(ramp(10), -3); got.Len() != 0 {
		t.Fatalf("expected empty buffer for negative length, got %d", got.Len())
	}
}

func TestOverlay(t *testing.T) {
	a := constant(10, 0.1)
	b := constant(5, 0.2)

	mid := Overlay(a, b, 3)
	if mid.Len() != 10 {
		t.Fatalf("expected length 10, got %d", mid.Len())
	}
	if math.Abs(mid.Samples[3]-0.3) > 1e-12 || mid.Samples[2] != 0.1 || mid.Samples[8] != 0.1 {
		t.Fatalf("unexpected overlay samples: %v", mid.Samples)
	}

	past := Overlay(a, b, 8)
	if past.Len() != 13 {
		t.Fatalf("expected overlay to extend to 13, got %d", past.Len())
	}
	if past.Samples[12] != 0.2 {
		t.Fatalf("expected extended tail to carry overlay, got %f", past.Samples[12])
	}

	neg := Overlay(a, b, -4)
	if math.Abs(neg.Samples[0]-0.3) > 1e-12 {
		t.Fatalf("expected negative position to clamp to zero, got %f", neg.Samples[0])
	}
	if a.Len() != 10 || a.Samples[3] != 0.1 {
		t.Fatalf("overlay modified its input")
	}
}

func TestConcat(t *testing.T) {
	got := Concat(constant(3, 0.1), nil, constant(2, 0.2))
	if got.Len() != 5 || got.SampleRate != testRate {
		t.Fatalf("unexpected concat result: len=%d rate=%d", got.Len(), got.SampleRate)
	}
	if got.Samples[3] != 0.2 {
		t.Fatalf("expected second buffer after first, got %v", got.Samples)
	}
}
