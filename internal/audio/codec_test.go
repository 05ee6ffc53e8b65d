package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	in := &Buffer{Samples: []float64{0, 0.25, -0.5, 0.999, -1}, SampleRate: 24000}
	data, err := EncodeWAV(in)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	out, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if out.SampleRate != 24000 || out.Len() != in.Len() {
		t.Fatalf("unexpected decode: rate=%d len=%d", out.SampleRate, out.Len())
	}
	for i := range in.Samples {
		if math.Abs(out.Samples[i]-in.Samples[i]) > 1.0/16384 {
			t.Fatalf("sample %d: expected %f, got %f", i, in.Samples[i], out.Samples[i])
		}
	}
}

func TestEncodeWAVClips(t *testing.T) {
	data, err := EncodeWAV(&Buffer{Samples: []float64{3, -3}, SampleRate: 8000})
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	out, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if out.Samples[0] > 1 || out.Samples[1] < -1 {
		t.Fatalf("expected clipped samples, got %v", out.Samples)
	}
}

func TestFromPCM16MixesChannels(t *testing.T) {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint16(raw[0:], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(raw[2:], uint16(int16(0)))
	binary.LittleEndian.PutUint16(raw[4:], uint16(0x8000)) // -32768
	binary.LittleEndian.PutUint16(raw[6:], uint16(0x8000))

	buf := FromPCM16(append(raw, 0x01), 24000, 2)
	if buf.Len() != 2 {
		t.Fatalf("expected 2 frames, got %d", buf.Len())
	}
	if buf.Samples[0] != 0.25 || buf.Samples[1] != -1 {
		t.Fatalf("unexpected samples %v", buf.Samples)
	}
}

func TestPCM16ToWAV(t *testing.T) {
	raw := make([]byte, 2*480)
	for i := 0; i < 480; i++ {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(int16(i*10)))
	}
	data, err := PCM16ToWAV(raw, 24000)
	if err != nil {
		t.Fatalf("PCM16ToWAV: %v", err)
	}
	buf, err := Decode("segment.wav", data, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if buf.Len() != 480 || buf.Duration().Milliseconds() != 20 {
		t.Fatalf("unexpected decoded length %d (%s)", buf.Len(), buf.Duration())
	}
}

func TestDecodeRejectsUnknownFormat(t *testing.T) {
	if _, err := Decode("jingle.ogg", []byte("OggS"), 24000); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if _, err := Decode("jingle.wav", []byte("not a wav"), 24000); err == nil {
		t.Fatalf("expected error for invalid wav")
	}
}

func TestResample(t *testing.T) {
	in := &Buffer{Samples: []float64{0, 1, 0, -1}, SampleRate: 12000}
	out := Resample(in, 24000)
	if out.Len() != 8 || out.SampleRate != 24000 {
		t.Fatalf("unexpected resample: len=%d rate=%d", out.Len(), out.SampleRate)
	}
	if out.Samples[1] != 0.5 {
		t.Fatalf("expected interpolated sample 0.5, got %f", out.Samples[1])
	}
	if same := Resample(in, 12000); same != in {
		t.Fatalf("expected same-rate resample to return the input")
	}
}
