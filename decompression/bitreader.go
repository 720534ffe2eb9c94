package decompression

import (
	"encoding/binary"
	"fmt"
)

// slack is how far the cursor may run past the end of a chunk. A huffman
// lookup always buffers 16 bits, even when the final symbol of a chunk is
// shorter than that.
const slack = 2

// bitReader is an LZX bit cursor. Bits are consumed most-significant first
// out of little-endian 16-bit words.
type bitReader struct {
	src       []byte
	pos       int
	end       int
	buffer    uint64
	remaining uint
}

func newBitReader(src []byte, start, end int) *bitReader {
	return &bitReader{
		src: src,
		pos: start,
		end: end,
	}
}

func (br *bitReader) byteAt(i int) byte {
	if i < len(br.src) {
		return br.src[i]
	}
	return 0
}

func (br *bitReader) fill() error {
	lo := br.byteAt(br.pos)
	hi := br.byteAt(br.pos + 1)
	br.pos += 2
	if br.pos > br.end+slack {
		return fmt.Errorf("%w: read %d bytes past end of chunk", ErrCorrupt, br.pos-br.end)
	}

	word := uint64(hi)<<8 | uint64(lo)
	br.buffer |= word << (64 - 16 - br.remaining)
	br.remaining += 16
	return nil
}

// ensure guarantees at least n (1-32) bits are buffered.
func (br *bitReader) ensure(n uint) error {
	if n > 32 {
		panic(fmt.Sprintf("decompression: ensure(%d) exceeds 32 bits", n))
	}
	for br.remaining < n {
		if err := br.fill(); err != nil {
			return err
		}
	}
	return nil
}

// peek returns the top n buffered bits. The caller must ensure them first.
func (br *bitReader) peek(n uint) uint32 {
	if n > br.remaining {
		panic(fmt.Sprintf("decompression: peek(%d) with only %d bits buffered", n, br.remaining))
	}
	if n == 0 {
		return 0
	}
	return uint32(br.buffer >> (64 - n))
}

func (br *bitReader) remove(n uint) {
	br.buffer <<= n
	br.remaining -= n
}

func (br *bitReader) read(n uint) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if err := br.ensure(n); err != nil {
		return 0, err
	}
	val := br.peek(n)
	br.remove(n)
	return val, nil
}

func (br *bitReader) reset() {
	br.buffer = 0
	br.remaining = 0
}

// align drops the padding in front of an uncompressed block so the cursor
// sits on the first raw byte. When already aligned the stream carries a
// whole 16-bit word of padding.
func (br *bitReader) align() error {
	if err := br.ensure(16); err != nil {
		return err
	}
	if br.remaining > 16 {
		br.pos -= 2
	}
	br.reset()
	return nil
}

func (br *bitReader) skipByte() {
	br.pos++
}

func (br *bitReader) readRaw(dst []byte) error {
	if br.pos+len(dst) > br.end || br.pos+len(dst) > len(br.src) {
		return fmt.Errorf("%w: raw run of %d bytes overruns chunk", ErrCorrupt, len(dst))
	}
	copy(dst, br.src[br.pos:])
	br.pos += len(dst)
	return nil
}

func (br *bitReader) readUint32() (uint32, error) {
	var raw [4]byte
	if err := br.readRaw(raw[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw[:]), nil
}

// overrun reports whether the cursor has consumed bytes beyond the chunk
// that cannot be accounted for by lookahead.
func (br *bitReader) overrun() bool {
	if br.pos <= br.end {
		return false
	}
	return br.pos > br.end+slack || br.remaining < 16
}
