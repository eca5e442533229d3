package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
	fmtExtensibleSize   = 26
	outputBitDepth      = 24
	int24Max            = 8388607
)

var errNotPCM = errors.New("wav is not integer PCM")

// DecodeWAV reads an integer PCM WAV stream into a Buffer. Channel layout is
// preserved; callers normalize to stereo.
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	if err := checkIntegerPCM(r); err != nil {
		return nil, err
	}
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("invalid wav: %w", err)
		}
		return nil, errors.New("invalid wav header")
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav samples: %w", err)
	}
	if pcm == nil || pcm.Format == nil || pcm.Format.NumChannels <= 0 {
		return nil, errors.New("wav has no channel layout")
	}

	channels := pcm.Format.NumChannels
	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 {
		bitDepth = pcm.SourceBitDepth
	}
	frames := len(pcm.Data) / channels
	buf := &Buffer{
		SampleRate: pcm.Format.SampleRate,
		Channels:   make([][]float32, channels),
	}
	for c := range buf.Channels {
		buf.Channels[c] = make([]float32, frames)
	}

	scale, offset := intScale(bitDepth)
	for i := 0; i < frames*channels; i++ {
		buf.Channels[i%channels][i/channels] = float32(float64(pcm.Data[i]-offset) / scale)
	}
	return buf, nil
}

// extensibleFmt is the fmt chunk layout up to the first two bytes of the
// WAVE_FORMAT_EXTENSIBLE SubFormat GUID, which carry the sample format code.
type extensibleFmt struct {
	FormatTag      uint16
	NumChannels    uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	ExtensionSize  uint16
	ValidBits      uint16
	ChannelMask    uint32
	SubFormat      uint16
}

// checkIntegerPCM walks the RIFF chunks up to fmt and rejects any sample
// format other than integer PCM, including extensible files whose SubFormat
// is float. The reader is rewound before returning.
func checkIntegerPCM(r io.ReadSeeker) error {
	defer r.Seek(0, io.SeekStart)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("invalid wav: %w", err)
	}
	parser := riff.New(r)
	if err := parser.ParseHeaders(); err != nil {
		return fmt.Errorf("invalid wav: %w", err)
	}
	if parser.Format != riff.WavFormatID {
		return errors.New("invalid wav header")
	}
	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			return fmt.Errorf("invalid wav: %w", err)
		}
		if chunk.ID != riff.FmtID {
			chunk.Drain()
			continue
		}
		var hdr extensibleFmt
		switch {
		case chunk.Size >= fmtExtensibleSize:
			err = chunk.ReadLE(&hdr)
		default:
			err = chunk.ReadLE(&hdr.FormatTag)
		}
		if err != nil {
			return fmt.Errorf("invalid wav: %w", err)
		}
		switch hdr.FormatTag {
		case wavFormatPCM:
			return nil
		case wavFormatExtensible:
			if chunk.Size >= fmtExtensibleSize && hdr.SubFormat == wavFormatPCM {
				return nil
			}
			return fmt.Errorf("%w (extensible subformat %d)", errNotPCM, hdr.SubFormat)
		default:
			return fmt.Errorf("%w (format tag %d)", errNotPCM, hdr.FormatTag)
		}
	}
}

// intScale returns the divisor and zero offset for an integer sample depth.
// 8-bit WAV samples are unsigned.
func intScale(bitDepth int) (float64, int) {
	if bitDepth == 8 {
		return 128, 128
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return float64(int64(1) << (bitDepth - 1)), 0
}

// EncodeWAV24 writes buf as 24-bit integer PCM. Samples are clamped to [-1, 1].
func EncodeWAV24(w io.WriteSeeker, buf *Buffer) error {
	if buf == nil || buf.NumChannels() == 0 {
		return errors.New("encode wav: empty buffer")
	}
	channels := buf.NumChannels()
	frames := buf.Frames()
	data := make([]int, frames*channels)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			data[f*channels+c] = quantize24(buf.Channels[c][f])
		}
	}

	enc := wav.NewEncoder(w, buf.SampleRate, outputBitDepth, channels, wavFormatPCM)
	intBuf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: outputBitDepth,
	}
	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

func quantize24(sample float32) int {
	v := float64(sample)
	if math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int(math.Round(v * int24Max))
}

// ReadWAVFile decodes a WAV file from disk.
func ReadWAVFile(path string) (*Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return DecodeWAV(file)
}

// WriteWAVFile encodes buf as 24-bit PCM at path, replacing any existing file.
func WriteWAVFile(path string, buf *Buffer) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeWAV24(file, buf); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
