package resource

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/32bitkid/xnb/audio"
)

// waveFormatExSize is the length of a WAVEFORMATEX with its cbSize field.
const waveFormatExSize = 18

// SoundEffect is a PCM sound with its loop region.
type SoundEffect struct {
	Wave       *audio.Wave
	LoopStart  int32
	LoopLength int32
	Duration   time.Duration
}

func (*SoundEffect) Type() Type { return TypeSoundEffect }

// NewSoundEffect wraps a PCM wave, looping over the whole sample range.
func NewSoundEffect(w *audio.Wave) (*SoundEffect, error) {
	if err := w.Format.Validate(); err != nil {
		return nil, err
	}
	return &SoundEffect{
		Wave:       w,
		LoopStart:  0,
		LoopLength: int32(w.Frames()),
		Duration:   w.Duration(),
	}, nil
}

// sound effect layout
//
// u32 | format size, always 18
// ... | WAVEFORMATEX (16 bytes + u16 cbSize)
// u32 | sample byte length
// ... | samples
// i32 | loop start
// i32 | loop length
// i32 | duration in milliseconds
func readSoundEffect(d *decoder) (*SoundEffect, error) {
	formatSize, err := d.uint32("sound format size")
	if err != nil {
		return nil, err
	}
	if formatSize != waveFormatExSize {
		return nil, fmt.Errorf("%w: sound format size %d, expected %d", ErrFormat, formatSize, waveFormatExSize)
	}

	var format struct {
		audio.Format
		CbSize uint16
	}
	if err := d.read("sound format", &format); err != nil {
		return nil, err
	}
	if format.Tag != audio.TagPCM {
		return nil, fmt.Errorf("%w: sound codec %#x, must be PCM", ErrFormat, format.Tag)
	}

	size, err := d.uint32("sound data size")
	if err != nil {
		return nil, err
	}
	data, err := d.bytes("sound data", int(size))
	if err != nil {
		return nil, err
	}

	var tail struct {
		LoopStart  int32
		LoopLength int32
		Duration   int32
	}
	if err := d.read("sound loop region", &tail); err != nil {
		return nil, err
	}

	return &SoundEffect{
		Wave:       &audio.Wave{Format: format.Format, Data: data},
		LoopStart:  tail.LoopStart,
		LoopLength: tail.LoopLength,
		Duration:   time.Duration(tail.Duration) * time.Millisecond,
	}, nil
}

func appendSoundEffect(dst []byte, s *SoundEffect) []byte {
	le := binary.LittleEndian
	f := s.Wave.Format
	dst = le.AppendUint32(dst, waveFormatExSize)
	dst = le.AppendUint16(dst, f.Tag)
	dst = le.AppendUint16(dst, f.Channels)
	dst = le.AppendUint32(dst, f.SampleRate)
	dst = le.AppendUint32(dst, f.AvgBytesPerSec)
	dst = le.AppendUint16(dst, f.BlockAlign)
	dst = le.AppendUint16(dst, f.BitsPerSample)
	dst = le.AppendUint16(dst, 0)
	dst = le.AppendUint32(dst, uint32(len(s.Wave.Data)))
	dst = append(dst, s.Wave.Data...)
	dst = le.AppendUint32(dst, uint32(s.LoopStart))
	dst = le.AppendUint32(dst, uint32(s.LoopLength))
	return le.AppendUint32(dst, uint32(s.Duration/time.Millisecond))
}
