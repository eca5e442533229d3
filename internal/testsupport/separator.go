package testsupport

import (
	"context"
	"errors"
	"sync"

	"stemsplit/internal/audio"
	"stemsplit/internal/services"
)

// FakeSeparator returns copies of the input as every stem. Inputs whose
// sample count appears in FailFrames fail with ErrSeparation.
type FakeSeparator struct {
	mu         sync.Mutex
	LoadErr    error
	FailFrames map[int]bool
	Loads      int
	Calls      int
	// Block, when set, is waited on before each separation returns.
	Block chan struct{}
}

func (f *FakeSeparator) Load(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Loads++
	return f.LoadErr
}

func (f *FakeSeparator) Separate(ctx context.Context, buf *audio.Buffer) (audio.StemSet, error) {
	f.mu.Lock()
	f.Calls++
	block := f.Block
	fail := f.FailFrames[buf.Frames()]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return audio.StemSet{}, ctx.Err()
		}
	}
	if fail {
		return audio.StemSet{}, services.Wrap(services.ErrSeparation, "separate", "fake", "", errors.New("forced failure"))
	}
	stems := make(map[audio.Stem]*audio.Buffer, len(audio.StemOrder))
	for _, stem := range audio.StemOrder {
		channels := make([][]float32, len(buf.Channels))
		for c, ch := range buf.Channels {
			channels[c] = append([]float32(nil), ch...)
		}
		stems[stem] = &audio.Buffer{SampleRate: buf.SampleRate, Channels: channels}
	}
	return audio.NewStemSet(stems)
}

func (f *FakeSeparator) Model() string  { return "htdemucs" }
func (f *FakeSeparator) Device() string { return "cpu" }

// Counts returns the number of Load and Separate calls so far.
func (f *FakeSeparator) Counts() (loads, calls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Loads, f.Calls
}
