package audio

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stemsplit/internal/services"
)

// Buffer holds decoded PCM as channel-major float32 samples in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	if b == nil {
		return 0
	}
	return len(b.Channels)
}

// Frames returns the per-channel sample count.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(b.Frames()) * int64(time.Second) / int64(b.SampleRate))
}

// toStereo duplicates mono and keeps the first two channels of wider layouts.
func (b *Buffer) toStereo() {
	switch len(b.Channels) {
	case 0, 2:
	case 1:
		dup := make([]float32, len(b.Channels[0]))
		copy(dup, b.Channels[0])
		b.Channels = [][]float32{b.Channels[0], dup}
	default:
		b.Channels = b.Channels[:2]
	}
}

func (b *Buffer) validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", b.SampleRate)
	}
	if len(b.Channels) == 0 || b.Frames() == 0 {
		return fmt.Errorf("no audio samples")
	}
	for i, ch := range b.Channels {
		if len(ch) != b.Frames() {
			return fmt.Errorf("channel %d has %d samples, expected %d", i, len(ch), b.Frames())
		}
	}
	return nil
}

// Stem names one separated source.
type Stem string

const (
	StemDrums  Stem = "drums"
	StemBass   Stem = "bass"
	StemOther  Stem = "other"
	StemVocals Stem = "vocals"
)

// StemOrder is the order stems are produced, written and reported.
var StemOrder = []Stem{StemDrums, StemBass, StemOther, StemVocals}

var titleCaser = cases.Title(language.English)

// Label returns the display name used in summaries.
func (s Stem) Label() string {
	return titleCaser.String(string(s))
}

// StemSet is the complete output of one separation. A StemSet returned by
// NewStemSet always holds all four stems with matching rate and length.
type StemSet struct {
	SampleRate int
	Frames     int
	stems      map[Stem]*Buffer
}

// NewStemSet validates and assembles a stem set.
func NewStemSet(stems map[Stem]*Buffer) (StemSet, error) {
	var set StemSet
	set.stems = make(map[Stem]*Buffer, len(StemOrder))
	for _, name := range StemOrder {
		buf, ok := stems[name]
		if !ok || buf == nil {
			return StemSet{}, services.Wrap(services.ErrSeparation, "separate", "collect stems", "missing stem "+string(name), nil)
		}
		if err := buf.validate(); err != nil {
			return StemSet{}, services.Wrap(services.ErrSeparation, "separate", "collect stems", string(name), err)
		}
		if set.SampleRate == 0 {
			set.SampleRate = buf.SampleRate
			set.Frames = buf.Frames()
		}
		if buf.SampleRate != set.SampleRate || buf.Frames() != set.Frames {
			return StemSet{}, services.Wrap(
				services.ErrSeparation,
				"separate",
				"collect stems",
				fmt.Sprintf("stem %s is %d samples at %d Hz, expected %d at %d Hz", name, buf.Frames(), buf.SampleRate, set.Frames, set.SampleRate),
				nil,
			)
		}
		set.stems[name] = buf
	}
	return set, nil
}

// Get returns the buffer for a stem.
func (s StemSet) Get(name Stem) (*Buffer, bool) {
	buf, ok := s.stems[name]
	return buf, ok
}

// Len returns the number of stems held.
func (s StemSet) Len() int {
	return len(s.stems)
}

// FitFrames trims or zero-pads every channel to exactly n samples.
func (b *Buffer) FitFrames(n int) {
	for c, ch := range b.Channels {
		switch {
		case len(ch) > n:
			b.Channels[c] = ch[:n]
		case len(ch) < n:
			padded := make([]float32, n)
			copy(padded, ch)
			b.Channels[c] = padded
		}
	}
}
