package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

const pcm16Scale = 32768.0

// Decode picks a decoder from the file extension of name and resamples the
// result to targetRate. A targetRate of zero keeps the source rate.
func Decode(name string, data []byte, targetRate int) (*Buffer, error) {
	var (
		buf *Buffer
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".wav":
		buf, err = DecodeWAV(data)
	case ".mp3":
		buf, err = DecodeMP3(data)
	default:
		return nil, fmt.Errorf("decode %s: unsupported audio format %q", name, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if targetRate > 0 {
		buf = Resample(buf, targetRate)
	}
	return buf, nil
}

// DecodeWAV reads a PCM WAV file into a mono buffer.
func DecodeWAV(data []byte) (*Buffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav samples: %w", err)
	}
	channels := int(d.NumChans)
	if pcm.Format != nil && pcm.Format.NumChannels > 0 {
		channels = pcm.Format.NumChannels
	}
	if channels < 1 {
		channels = 1
	}
	bitDepth := int(d.BitDepth)
	if bitDepth == 0 {
		bitDepth = pcm.SourceBitDepth
	}
	scale := math.Pow(2, float64(bitDepth-1))
	if bitDepth == 8 {
		// 8-bit WAV is unsigned.
		return mixDown(pcm.Data, channels, int(d.SampleRate), func(v int) float64 { return float64(v-128) / 128 }), nil
	}
	return mixDown(pcm.Data, channels, int(d.SampleRate), func(v int) float64 { return float64(v) / scale }), nil
}

// DecodeMP3 reads an MP3 stream. The decoder always yields 16-bit stereo.
func DecodeMP3(data []byte) (*Buffer, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3 stream: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3 stream: %w", err)
	}
	return FromPCM16(raw, d.SampleRate(), 2), nil
}

// FromPCM16 converts raw signed 16-bit little-endian PCM to a mono buffer.
// Trailing bytes that do not form a whole frame are dropped.
func FromPCM16(data []byte, sampleRate, channels int) *Buffer {
	if channels < 1 {
		channels = 1
	}
	ints := make([]int, len(data)/2)
	for i := range ints {
		ints[i] = int(int16(binary.LittleEndian.Uint16(data[2*i:])))
	}
	return mixDown(ints, channels, sampleRate, func(v int) float64 { return float64(v) / pcm16Scale })
}

func mixDown(data []int, channels, sampleRate int, conv func(int) float64) *Buffer {
	frames := len(data) / channels
	out := make([]float64, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += conv(data[f*channels+c])
		}
		out[f] = sum / float64(channels)
	}
	return &Buffer{Samples: out, SampleRate: sampleRate}
}

// PCM16ToWAV wraps raw mono PCM16 bytes in a WAV container.
func PCM16ToWAV(data []byte, sampleRate int) ([]byte, error) {
	return EncodeWAV(FromPCM16(data, sampleRate, 1))
}

// EncodeWAV writes buf as a 16-bit mono WAV file. Samples are clipped to
// full scale.
func EncodeWAV(buf *Buffer) ([]byte, error) {
	if buf == nil || buf.SampleRate <= 0 {
		return nil, fmt.Errorf("encode wav: missing sample rate")
	}
	// The encoder patches the header on Close so it needs a seekable target.
	tmp, err := os.CreateTemp("", "bookcast-*.wav")
	if err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	enc := wav.NewEncoder(tmp, buf.SampleRate, 16, 1, 1)
	ints := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		v := math.Round(s * pcm16Scale)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		ints[i] = int(v)
	}
	if len(ints) > 0 {
		pcm := &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: buf.SampleRate},
			Data:           ints,
			SourceBitDepth: 16,
		}
		if err := enc.Write(pcm); err != nil {
			return nil, fmt.Errorf("encode wav: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	return io.ReadAll(tmp)
}

// Resample converts buf to rate with linear interpolation.
func Resample(buf *Buffer, rate int) *Buffer {
	if buf.SampleRate == rate || buf.SampleRate <= 0 || rate <= 0 {
		return buf
	}
	n := int(int64(buf.Len()) * int64(rate) / int64(buf.SampleRate))
	out := make([]float64, n)
	ratio := float64(buf.SampleRate) / float64(rate)
	last := buf.Len() - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = buf.Samples[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = buf.Samples[j]*(1-frac) + buf.Samples[j+1]*frac
	}
	return &Buffer{Samples: out, SampleRate: rate}
}
