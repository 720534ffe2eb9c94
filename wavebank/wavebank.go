// Package wavebank reads XACT wave banks (.xwb) and extracts their tracks as
// PCM wave files.
package wavebank

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/32bitkid/bitreader"
	"golang.org/x/exp/mmap"
)

var (
	ErrFormat  = errors.New("xwb: invalid format")
	ErrCompact = errors.New("xwb: compact wave banks are not supported")
	ErrCodec   = errors.New("xwb: unsupported codec")
)

const (
	bankVersion = 46
	flagCompact = 0x00020000

	segmentBankData = 0
	segmentEntries  = 1
	segmentPlay     = 4
)

var magic = [4]byte{'W', 'B', 'N', 'D'}

type Codec uint8

const (
	CodecPCM Codec = iota
	CodecXMA
	CodecADPCM
	CodecWMA
)

func (c Codec) String() string {
	switch c {
	case CodecPCM:
		return "PCM"
	case CodecXMA:
		return "XMA"
	case CodecADPCM:
		return "ADPCM"
	case CodecWMA:
		return "WMA"
	}
	return fmt.Sprintf("Codec(%d)", uint8(c))
}

// Format is the unpacked mini wave format of an entry.
type Format struct {
	Codec      Codec
	Channels   int
	SampleRate int
	// Align is the raw 8-bit block align field. Its meaning depends on the
	// codec.
	Align int
	// Wide is set for 16-bit PCM.
	Wide bool
}

// BitsPerSample is only meaningful for PCM entries.
func (f Format) BitsPerSample() int {
	if !f.Wide && f.Align == f.Channels {
		return 8
	}
	return 16
}

// wordReader splits a packed little-endian word into fields, most
// significant first.
type wordReader struct {
	bits bitreader.BitReader
	err  error
}

func newWordReader(word uint32) *wordReader {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], word)
	return &wordReader{bits: bitreader.NewReader(bytes.NewReader(buf[:]))}
}

func (r *wordReader) field(n uint) uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.bits.Read32(n)
	r.err = err
	return v
}

// parseFormat unpacks a mini wave format:
//
// bits  |
// 31    | bits per sample, 0 = 8, 1 = 16
// 23-30 | block align
// 5-22  | samples per second
// 2-4   | channels
// 0-1   | codec
func parseFormat(word uint32) (Format, error) {
	r := newWordReader(word)
	wide := r.field(1)
	align := r.field(8)
	rate := r.field(18)
	channels := r.field(3)
	codec := r.field(2)
	if r.err != nil {
		return Format{}, r.err
	}
	return Format{
		Codec:      Codec(codec),
		Channels:   int(channels),
		SampleRate: int(rate),
		Align:      int(align),
		Wide:       wide == 1,
	}, nil
}

// parseFlagsAndDuration unpacks the first entry word:
//
// bits |
// 4-31 | duration in samples
// 0-3  | entry flags
func parseFlagsAndDuration(word uint32) (uint8, uint32, error) {
	r := newWordReader(word)
	duration := r.field(28)
	flags := r.field(4)
	return uint8(flags), duration, r.err
}

type Entry struct {
	Flags      uint8
	Duration   uint32
	Format     Format
	PlayOffset uint32
	PlayLength uint32
	LoopOffset uint32
	LoopLength uint32
}

type segment struct {
	Offset uint32
	Length uint32
}

type Bank struct {
	Name    string
	Flags   uint32
	Entries []Entry

	src        io.ReaderAt
	size       int64
	playOffset int64
	closer     io.Closer
}

// Open maps a wave bank file into memory. The bank must be closed.
func Open(path string) (*Bank, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	b, err := NewBank(m, int64(m.Len()))
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	b.closer = m
	return b, nil
}

// Parse reads a wave bank held in memory.
func Parse(src []byte) (*Bank, error) {
	return NewBank(bytes.NewReader(src), int64(len(src)))
}

func (b *Bank) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// NewBank decodes the bank header and entry table. Sample data is read from
// src on demand.
func NewBank(src io.ReaderAt, size int64) (*Bank, error) {
	var header struct {
		Magic         [4]byte
		Version       uint32
		HeaderVersion uint32
		Segments      [5]segment
	}
	if err := binary.Read(io.NewSectionReader(src, 0, size), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrFormat, err)
	}
	if header.Magic != magic {
		return nil, fmt.Errorf("%w: not an XWB file (magic %q)", ErrFormat, header.Magic[:])
	}
	if header.Version != bankVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, header.Version)
	}

	var data struct {
		Flags           uint32
		EntryCount      uint32
		Name            [64]byte
		MetaElementSize uint32
		NameElementSize uint32
		Alignment       uint32
	}
	offset := int64(header.Segments[segmentBankData].Offset)
	if offset > size {
		return nil, fmt.Errorf("%w: bank data at %d past end of file", ErrFormat, offset)
	}
	if err := binary.Read(io.NewSectionReader(src, offset, size-offset), binary.LittleEndian, &data); err != nil {
		return nil, fmt.Errorf("%w: reading bank data: %v", ErrFormat, err)
	}
	if data.Flags&flagCompact != 0 {
		return nil, ErrCompact
	}

	b := &Bank{
		Name:       string(bytes.TrimRight(data.Name[:], "\x00")),
		Flags:      data.Flags,
		src:        src,
		size:       size,
		playOffset: int64(header.Segments[segmentPlay].Offset),
	}

	elemSize := int64(data.MetaElementSize)
	base := int64(header.Segments[segmentEntries].Offset)
	if int64(data.EntryCount)*elemSize > size {
		return nil, fmt.Errorf("%w: %d entries of %d bytes overrun file", ErrFormat, data.EntryCount, elemSize)
	}
	for i := int64(0); i < int64(data.EntryCount); i++ {
		e, err := b.readEntry(base+i*elemSize, elemSize)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		b.Entries = append(b.Entries, e)
	}
	return b, nil
}

// readEntry reads the fields present for the bank's metadata element size.
// Each 4 bytes of element size adds one field.
func (b *Bank) readEntry(offset, size int64) (Entry, error) {
	if offset < 0 || offset+size > b.size {
		return Entry{}, fmt.Errorf("%w: entry metadata at %d overruns file", ErrFormat, offset)
	}
	fields := make([]uint32, size/4)
	if err := binary.Read(io.NewSectionReader(b.src, offset, size), binary.LittleEndian, fields); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	var e Entry
	var err error
	for i, v := range fields {
		switch i {
		case 0:
			e.Flags, e.Duration, err = parseFlagsAndDuration(v)
		case 1:
			e.Format, err = parseFormat(v)
		case 2:
			e.PlayOffset = v
		case 3:
			e.PlayLength = v
		case 4:
			e.LoopOffset = v
		case 5:
			e.LoopLength = v
		}
		if err != nil {
			return Entry{}, err
		}
	}
	return e, nil
}

// Samples reads the raw play region of entry i.
func (b *Bank) Samples(i int) ([]byte, error) {
	e := b.Entries[i]
	start := b.playOffset + int64(e.PlayOffset)
	end := start + int64(e.PlayLength)
	if end > b.size {
		return nil, fmt.Errorf("%w: play region %d-%d past end of file", ErrFormat, start, end)
	}
	buf := make([]byte, e.PlayLength)
	if n, err := b.src.ReadAt(buf, start); n < len(buf) {
		return nil, fmt.Errorf("reading play region: %w", err)
	}
	return buf, nil
}
