// Package audio reads and writes RIFF wave files and decodes the
// compressed sample formats found in XACT wave banks.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrFormat = errors.New("audio: invalid format")

const (
	TagPCM  uint16 = 0x0001
	TagWMA2 uint16 = 0x0161
)

var (
	labelRIFF = [4]byte{'R', 'I', 'F', 'F'}
	labelWAVE = [4]byte{'W', 'A', 'V', 'E'}
	labelXWMA = [4]byte{'X', 'W', 'M', 'A'}
	labelFmt  = [4]byte{'f', 'm', 't', ' '}
	labelData = [4]byte{'d', 'a', 't', 'a'}
	labelDpds = [4]byte{'d', 'p', 'd', 's'}
)

// Format mirrors the 16 byte PCM portion of WAVEFORMATEX.
type Format struct {
	Tag            uint16
	Channels       uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
}

func PCMFormat(channels, sampleRate, bitsPerSample int) Format {
	blockAlign := channels * (bitsPerSample / 8)
	return Format{
		Tag:            TagPCM,
		Channels:       uint16(channels),
		SampleRate:     uint32(sampleRate),
		AvgBytesPerSec: uint32(sampleRate * blockAlign),
		BlockAlign:     uint16(blockAlign),
		BitsPerSample:  uint16(bitsPerSample),
	}
}

// Validate checks that a PCM format is internally consistent.
func (f Format) Validate() error {
	if f.Tag != TagPCM {
		return fmt.Errorf("%w: unimplemented wave codec %#x, must be PCM", ErrFormat, f.Tag)
	}
	if f.Channels == 0 || f.BitsPerSample == 0 {
		return fmt.Errorf("%w: %d channels at %d bits", ErrFormat, f.Channels, f.BitsPerSample)
	}
	bytesPerSample := uint32(f.BitsPerSample / 8)
	if f.AvgBytesPerSec != f.SampleRate*uint32(f.Channels)*bytesPerSample {
		return fmt.Errorf("%w: average bytes per second %d incorrect", ErrFormat, f.AvgBytesPerSec)
	}
	if uint32(f.BlockAlign) != uint32(f.Channels)*bytesPerSample {
		return fmt.Errorf("%w: block align %d incorrect", ErrFormat, f.BlockAlign)
	}
	return nil
}

// Wave is a PCM sample buffer and its format.
type Wave struct {
	Format Format
	Data   []byte
}

// Frames is the number of sample frames, one sample per channel each.
func (w *Wave) Frames() int {
	if w.Format.BlockAlign == 0 {
		return 0
	}
	return len(w.Data) / int(w.Format.BlockAlign)
}

func (w *Wave) Duration() time.Duration {
	bitsPerSec := int64(w.Format.Channels) * int64(w.Format.BitsPerSample) * int64(w.Format.SampleRate)
	if bitsPerSec == 0 {
		return 0
	}
	return time.Duration(int64(len(w.Data)) * 8 * int64(time.Second) / bitsPerSec)
}

type chunkHeader struct {
	ID   [4]byte
	Size uint32
}

// ReadWave parses a RIFF WAVE file holding PCM samples. Chunks between the
// format and the sample data are skipped.
func ReadWave(r io.Reader) (*Wave, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	src := bytes.NewReader(raw)

	var riff struct {
		Header chunkHeader
		Kind   [4]byte
	}
	if err := binary.Read(src, binary.LittleEndian, &riff); err != nil {
		return nil, fmt.Errorf("%w: reading riff header: %v", ErrFormat, err)
	}
	if riff.Header.ID != labelRIFF {
		return nil, fmt.Errorf("%w: invalid file format %q", ErrFormat, riff.Header.ID[:])
	}
	if int(riff.Header.Size) != len(raw)-8 {
		return nil, fmt.Errorf("%w: file length mismatch: %d, should be %d", ErrFormat, riff.Header.Size, len(raw)-8)
	}
	if riff.Kind != labelWAVE {
		return nil, fmt.Errorf("%w: no WAVE tag (%q)", ErrFormat, riff.Kind[:])
	}

	var fmtHeader chunkHeader
	if err := binary.Read(src, binary.LittleEndian, &fmtHeader); err != nil {
		return nil, fmt.Errorf("%w: reading fmt chunk: %v", ErrFormat, err)
	}
	if fmtHeader.ID != labelFmt {
		return nil, fmt.Errorf("%w: no fmt tag (%q)", ErrFormat, fmtHeader.ID[:])
	}
	if fmtHeader.Size < 16 {
		return nil, fmt.Errorf("%w: incorrect format length %d", ErrFormat, fmtHeader.Size)
	}
	fmtEnd := len(raw) - src.Len() + int(fmtHeader.Size) + int(fmtHeader.Size&1)

	var format Format
	if err := binary.Read(src, binary.LittleEndian, &format); err != nil {
		return nil, fmt.Errorf("%w: reading format: %v", ErrFormat, err)
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	pos := fmtEnd
	for {
		if pos+8 > len(raw) {
			return nil, fmt.Errorf("%w: no data tag", ErrFormat)
		}
		var chunk chunkHeader
		_ = binary.Read(bytes.NewReader(raw[pos:pos+8]), binary.LittleEndian, &chunk)
		pos += 8
		if int(chunk.Size) > len(raw)-pos {
			return nil, fmt.Errorf("%w: chunk %q overruns file", ErrFormat, chunk.ID[:])
		}
		if chunk.ID == labelData {
			return &Wave{Format: format, Data: raw[pos : pos+int(chunk.Size)]}, nil
		}
		// odd sized chunks carry a pad byte
		pos += int(chunk.Size) + int(chunk.Size&1)
	}
}

// WriteTo writes a canonical 44 byte header followed by the samples.
func (w *Wave) WriteTo(wr io.Writer) (int64, error) {
	header := struct {
		RIFF   chunkHeader
		Kind   [4]byte
		Fmt    chunkHeader
		Format Format
		Data   chunkHeader
	}{
		RIFF:   chunkHeader{labelRIFF, uint32(len(w.Data) + 36)},
		Kind:   labelWAVE,
		Fmt:    chunkHeader{labelFmt, 16},
		Format: w.Format,
		Data:   chunkHeader{labelData, uint32(len(w.Data))},
	}

	if err := binary.Write(wr, binary.LittleEndian, &header); err != nil {
		return 0, err
	}
	n, err := wr.Write(w.Data)
	return int64(binary.Size(&header) + n), err
}
