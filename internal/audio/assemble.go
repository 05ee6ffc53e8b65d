package audio

import (
	"errors"
	"fmt"
)

// ErrSampleRateMismatch is returned when buffers with different sample rates
// are mixed together.
var ErrSampleRateMismatch = errors.New("sample rate mismatch")

// MixConfig carries the levels and offsets used to assemble a chapter.
type MixConfig struct {
	TargetDBFS         float64
	SilenceThresholdDB float64
	MinSilenceMs       int
	OpeningCallAtMs    int
	BedAttenuationDB   float64
	SampleRate         int
}

// DefaultMixConfig returns the production mix levels.
func DefaultMixConfig() MixConfig {
	return MixConfig{
		TargetDBFS:         -16,
		SilenceThresholdDB: -40,
		MinSilenceMs:       500,
		OpeningCallAtMs:    8000,
		BedAttenuationDB:   -13,
		SampleRate:         24000,
	}
}

func (c MixConfig) prepare(buf *Buffer) *Buffer {
	return TrimSilence(Normalize(buf, c.TargetDBFS), c.SilenceThresholdDB, c.MinSilenceMs)
}

// BuildOpening normalizes and trims the jingle and the opening call, then
// lays the call over the jingle at OpeningCallAtMs. The opening is built once
// per run and shared by every chapter.
func BuildOpening(cfg MixConfig, jingle, openingCall *Buffer) (*Buffer, error) {
	if err := sameRate(jingle, openingCall); err != nil {
		return nil, fmt.Errorf("build opening: %w", err)
	}
	j := cfg.prepare(jingle)
	call := cfg.prepare(openingCall)
	return Overlay(j, call, SamplesFor(cfg.OpeningCallAtMs, j.SampleRate)), nil
}

// BackgroundBed loops bgm to exactly n samples and attenuates it.
func BackgroundBed(cfg MixConfig, bgm *Buffer, n int) *Buffer {
	return Gain(LoopToLength(bgm, n), cfg.BedAttenuationDB)
}

// AssembleChapter produces opening + (speech with the background bed laid
// under it). Segments are processed in the order given; each is normalized
// and trimmed before concatenation.
func AssembleChapter(cfg MixConfig, opening, bgm *Buffer, segments []*Buffer) (*Buffer, error) {
	all := append([]*Buffer{opening, bgm}, segments...)
	if err := sameRate(all...); err != nil {
		return nil, fmt.Errorf("assemble chapter: %w", err)
	}

	prepared := make([]*Buffer, 0, len(segments))
	for _, seg := range segments {
		prepared = append(prepared, cfg.prepare(seg))
	}
	speech := Concat(prepared...)
	if speech.SampleRate == 0 {
		speech.SampleRate = opening.SampleRate
	}

	bed := BackgroundBed(cfg, bgm, speech.Len())
	return Concat(opening, Overlay(speech, bed, 0)), nil
}

func sameRate(bufs ...*Buffer) error {
	rate := 0
	for _, b := range bufs {
		if b == nil {
			return errors.New("nil buffer")
		}
		if rate == 0 {
			rate = b.SampleRate
			continue
		}
		if b.SampleRate != rate {
			return fmt.Errorf("%w: %d Hz vs %d Hz", ErrSampleRateMismatch, rate, b.SampleRate)
		}
	}
	return nil
}
