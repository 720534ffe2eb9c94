package decompression

import (
	"context"
	"encoding/binary"
	"fmt"
)

const (
	minMatch            = 2
	numChars            = 256
	numPrimaryLengths   = 7
	numSecondaryLengths = 249

	pretreeElements = 20
	alignedElements = 8

	pretreeMaxSymbols = pretreeElements
	pretreeTableBits  = 6
	mainMaxSymbols    = numChars + 50*8
	mainTableBits     = 12
	lengthMaxSymbols  = numSecondaryLengths + 1
	lengthTableBits   = 12
	alignedMaxSymbols = alignedElements
	alignedTableBits  = 7

	windowBits = 16
	windowSize = 1 << windowBits
	windowFill = 0xDC

	defaultFrameSize = 0x8000
	maxIntelFrames   = 32768
)

var (
	extraBits    [52]uint
	positionBase [51]int
)

func init() {
	for i, j := 0, uint(0); i <= 50; i += 2 {
		extraBits[i] = j
		extraBits[i+1] = j
		if i != 0 && j < 17 {
			j++
		}
	}
	for i, j := 0, 0; i <= 50; i++ {
		positionBase[i] = j
		j += 1 << extraBits[i]
	}
}

type blockType uint8

const (
	blockInvalid blockType = iota
	blockVerbatim
	blockAligned
	blockUncompressed
)

func (t blockType) String() string {
	switch t {
	case blockVerbatim:
		return "verbatim"
	case blockAligned:
		return "aligned"
	case blockUncompressed:
		return "uncompressed"
	}
	return "invalid"
}

// LZX decodes the chunked LZX streams found in compressed XNB files. The
// window, repeated offsets and code lengths carry over from one chunk to the
// next, so a value must not be shared between streams that are decoding at
// the same time.
type LZX struct {
	r0, r1, r2 int

	window    []byte
	windowPos int

	mainElements   int
	block          blockType
	blockLength    int
	blockRemaining int

	headerRead    bool
	intelFileSize int32
	intelPos      int
	intelStarted  bool
	framesRead    int

	pretree *huffmanTable
	main    *huffmanTable
	length  *huffmanTable
	aligned *huffmanTable
}

func NewLZX() *LZX {
	d := &LZX{
		window:  make([]byte, windowSize),
		pretree: newHuffmanTable(pretreeMaxSymbols, pretreeTableBits),
		main:    newHuffmanTable(mainMaxSymbols, mainTableBits),
		length:  newHuffmanTable(lengthMaxSymbols, lengthTableBits),
		aligned: newHuffmanTable(alignedMaxSymbols, alignedTableBits),
	}
	d.Reset()
	return d
}

// Reset returns the decoder to the state expected at the start of a stream.
func (d *LZX) Reset() {
	d.r0, d.r1, d.r2 = 1, 1, 1
	for i := range d.window {
		d.window[i] = windowFill
	}
	d.windowPos = 0
	d.mainElements = numChars + (16 << 4)
	d.block = blockInvalid
	d.blockLength = 0
	d.blockRemaining = 0
	d.headerRead = false
	d.intelFileSize = 0
	d.intelPos = 0
	d.intelStarted = false
	d.framesRead = 0

	d.pretree.reset()
	d.main.reset()
	d.length.reset()
	d.aligned.reset()
}

// Decompress decodes a complete chunked stream. The result must be exactly
// decompressedSize bytes long.
func (d *LZX) Decompress(ctx context.Context, src []byte, decompressedSize int) ([]byte, error) {
	d.Reset()
	if decompressedSize < 0 {
		return nil, fmt.Errorf("%w: negative output size %d", ErrCorrupt, decompressedSize)
	}

	// A chunk costs at least two header bytes and yields at most 0xFFFF.
	out := make([]byte, 0, min(decompressedSize, len(src)/2*0xFFFF))
	pos := 0
	for pos < len(src) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if pos+2 > len(src) {
			return nil, fmt.Errorf("%w: truncated chunk header at %d", ErrCorrupt, pos)
		}
		hi, lo := int(src[pos]), int(src[pos+1])
		blockSize := hi<<8 | lo
		frameSize := defaultFrameSize
		if hi == 0xFF {
			if pos+5 > len(src) {
				return nil, fmt.Errorf("%w: truncated chunk header at %d", ErrCorrupt, pos)
			}
			frameSize = lo<<8 | int(src[pos+2])
			blockSize = int(src[pos+3])<<8 | int(src[pos+4])
			pos += 5
		} else {
			pos += 2
		}

		if blockSize == 0 || frameSize == 0 {
			break
		}
		if pos+blockSize > len(src) {
			return nil, fmt.Errorf("%w: chunk of %d bytes at %d overruns payload", ErrCorrupt, blockSize, pos)
		}

		frame, err := d.decodeFrame(src, pos, pos+blockSize, frameSize)
		if err != nil {
			return nil, err
		}
		out = append(out, frame...)
		pos += blockSize
	}

	if len(out) != decompressedSize {
		return nil, fmt.Errorf("%w: decoded %d bytes, expected %d", ErrCorrupt, len(out), decompressedSize)
	}
	return out, nil
}

func (d *LZX) decodeFrame(src []byte, start, end, frameSize int) ([]byte, error) {
	br := newBitReader(src, start, end)

	if !d.headerRead {
		intel, err := br.read(1)
		if err != nil {
			return nil, err
		}
		if intel == 1 {
			hi, err := br.read(16)
			if err != nil {
				return nil, err
			}
			lo, err := br.read(16)
			if err != nil {
				return nil, err
			}
			d.intelFileSize = int32(hi<<16 | lo)
		}
		d.headerRead = true
	}

	togo := frameSize
	for togo > 0 {
		if d.blockRemaining == 0 {
			if err := d.readBlockHeader(br); err != nil {
				return nil, err
			}
		}

		if br.overrun() {
			return nil, fmt.Errorf("%w: bitstream ran past end of chunk", ErrCorrupt)
		}

		for d.blockRemaining > 0 && togo > 0 {
			run := d.blockRemaining
			if run > togo {
				run = togo
			}
			togo -= run
			d.blockRemaining -= run

			d.windowPos &= windowSize - 1
			if d.windowPos+run > windowSize {
				return nil, fmt.Errorf("%w: run of %d straddles window end", ErrCorrupt, run)
			}

			switch d.block {
			case blockVerbatim, blockAligned:
				over, err := d.decodeRun(br, run)
				if err != nil {
					return nil, err
				}
				// run ends at a block or frame boundary and matches may
				// cross neither.
				if over > 0 {
					return nil, fmt.Errorf("%w: match runs %d bytes past its block or frame", ErrCorrupt, over)
				}
			case blockUncompressed:
				if err := br.readRaw(d.window[d.windowPos : d.windowPos+run]); err != nil {
					return nil, err
				}
				d.windowPos += run
			default:
				return nil, fmt.Errorf("%w: invalid block type %d", ErrCorrupt, d.block)
			}
		}
	}

	startPos := d.windowPos
	if startPos == 0 {
		startPos = windowSize
	}
	startPos -= frameSize
	if startPos < 0 {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds window", ErrCorrupt, frameSize)
	}
	frame := make([]byte, frameSize)
	copy(frame, d.window[startPos:])

	if d.framesRead < maxIntelFrames {
		d.framesRead++
		if d.intelFileSize != 0 && d.intelStarted && frameSize > 6 {
			decodeE8(frame, d.intelPos, d.intelFileSize)
		}
		d.intelPos += frameSize
	}
	return frame, nil
}

func (d *LZX) readBlockHeader(br *bitReader) error {
	if d.block == blockUncompressed {
		if d.blockLength&1 == 1 {
			br.skipByte()
		}
		br.reset()
	}

	kind, err := br.read(3)
	if err != nil {
		return err
	}
	if kind == uint32(blockInvalid) || kind > uint32(blockUncompressed) {
		return fmt.Errorf("%w: invalid block type %d", ErrCorrupt, kind)
	}
	d.block = blockType(kind)

	a, err := br.read(16)
	if err != nil {
		return err
	}
	b, err := br.read(8)
	if err != nil {
		return err
	}
	d.blockLength = int(a<<8 | b)
	d.blockRemaining = d.blockLength

	switch d.block {
	case blockAligned:
		for i := 0; i < alignedElements; i++ {
			n, err := br.read(3)
			if err != nil {
				return err
			}
			d.aligned.length[i] = byte(n)
		}
		if err := d.aligned.build(); err != nil {
			return fmt.Errorf("aligned tree: %w", err)
		}
		fallthrough
	case blockVerbatim:
		if err := d.readLengths(d.main.length, 0, numChars, br); err != nil {
			return err
		}
		if err := d.readLengths(d.main.length, numChars, d.mainElements, br); err != nil {
			return err
		}
		if err := d.main.build(); err != nil {
			return fmt.Errorf("main tree: %w", err)
		}
		if d.main.length[0xE8] != 0 {
			d.intelStarted = true
		}
		if err := d.readLengths(d.length.length, 0, numSecondaryLengths, br); err != nil {
			return err
		}
		if err := d.length.build(); err != nil {
			return fmt.Errorf("length tree: %w", err)
		}
	case blockUncompressed:
		d.intelStarted = true
		if err := br.align(); err != nil {
			return err
		}
		for _, r := range []*int{&d.r0, &d.r1, &d.r2} {
			v, err := br.readUint32()
			if err != nil {
				return err
			}
			*r = int(v)
		}
	}
	return nil
}

// readLengths decodes code lengths [first, last) as deltas against the
// lengths of the previous block, using a freshly transmitted pretree.
func (d *LZX) readLengths(lens []byte, first, last int, br *bitReader) error {
	for i := 0; i < pretreeElements; i++ {
		n, err := br.read(4)
		if err != nil {
			return err
		}
		d.pretree.length[i] = byte(n)
	}
	if err := d.pretree.build(); err != nil {
		return fmt.Errorf("pretree: %w", err)
	}

	fill := func(x, n int, v byte) (int, error) {
		if x+n > len(lens) {
			return x, fmt.Errorf("%w: code length run overflows table", ErrCorrupt)
		}
		for ; n > 0; n-- {
			lens[x] = v
			x++
		}
		return x, nil
	}

	for x := first; x < last; {
		z, err := d.pretree.decode(br)
		if err != nil {
			return err
		}
		switch z {
		case 17:
			n, err := br.read(4)
			if err != nil {
				return err
			}
			if x, err = fill(x, int(n)+4, 0); err != nil {
				return err
			}
		case 18:
			n, err := br.read(5)
			if err != nil {
				return err
			}
			if x, err = fill(x, int(n)+20, 0); err != nil {
				return err
			}
		case 19:
			n, err := br.read(1)
			if err != nil {
				return err
			}
			z, err := d.pretree.decode(br)
			if err != nil {
				return err
			}
			if z > 16 {
				return fmt.Errorf("%w: pretree symbol %d in repeat", ErrCorrupt, z)
			}
			if x >= len(lens) {
				return fmt.Errorf("%w: code length run overflows table", ErrCorrupt)
			}
			if x, err = fill(x, int(n)+4, deltaLength(lens[x], z)); err != nil {
				return err
			}
		default:
			lens[x] = deltaLength(lens[x], z)
			x++
		}
	}
	return nil
}

func deltaLength(prev byte, delta int) byte {
	return byte((int(prev) - delta + 17) % 17)
}

// decodeRun decodes run bytes of a verbatim or aligned block into the
// window. A trailing match may write past the run; the number of extra bytes
// is returned.
func (d *LZX) decodeRun(br *bitReader, run int) (int, error) {
	for run > 0 {
		sym, err := d.main.decode(br)
		if err != nil {
			return 0, err
		}
		if sym < numChars {
			d.window[d.windowPos] = byte(sym)
			d.windowPos++
			run--
			continue
		}

		sym -= numChars
		matchLength := sym & numPrimaryLengths
		if matchLength == numPrimaryLengths {
			footer, err := d.length.decode(br)
			if err != nil {
				return 0, err
			}
			matchLength += footer
		}
		matchLength += minMatch

		matchOffset, err := d.matchOffset(br, sym>>3)
		if err != nil {
			return 0, err
		}

		if err := d.copyMatch(matchOffset, matchLength); err != nil {
			return 0, err
		}
		run -= matchLength
	}
	return -run, nil
}

func (d *LZX) matchOffset(br *bitReader, slot int) (int, error) {
	switch slot {
	case 0:
		return d.r0, nil
	case 1:
		offset := d.r1
		d.r1 = d.r0
		d.r0 = offset
		return offset, nil
	case 2:
		offset := d.r2
		d.r2 = d.r0
		d.r0 = offset
		return offset, nil
	}

	if slot >= len(positionBase) {
		return 0, fmt.Errorf("%w: position slot %d", ErrCorrupt, slot)
	}

	extra := extraBits[slot]
	offset := positionBase[slot] - 2
	if d.block == blockAligned {
		switch {
		case extra > 3:
			verbatim, err := br.read(extra - 3)
			if err != nil {
				return 0, err
			}
			alignedBits, err := d.aligned.decode(br)
			if err != nil {
				return 0, err
			}
			offset += int(verbatim)<<3 + alignedBits
		case extra == 3:
			alignedBits, err := d.aligned.decode(br)
			if err != nil {
				return 0, err
			}
			offset += alignedBits
		case extra > 0:
			verbatim, err := br.read(extra)
			if err != nil {
				return 0, err
			}
			offset += int(verbatim)
		default:
			offset = 1
		}
	} else if slot == 3 {
		offset = 1
	} else {
		verbatim, err := br.read(extra)
		if err != nil {
			return 0, err
		}
		offset += int(verbatim)
	}

	d.r2 = d.r1
	d.r1 = d.r0
	d.r0 = offset
	return offset, nil
}

// copyMatch copies length bytes from offset bytes back in the window,
// reading from the end of the window when the source wraps around.
func (d *LZX) copyMatch(offset, length int) error {
	if offset <= 0 || offset > windowSize {
		return fmt.Errorf("%w: match offset %d", ErrCorrupt, offset)
	}
	if d.windowPos+length > windowSize {
		return fmt.Errorf("%w: match of %d bytes runs off window", ErrCorrupt, length)
	}

	dest := d.windowPos
	var src int
	if d.windowPos >= offset {
		src = dest - offset
	} else {
		src = dest + windowSize - offset
		if wrapped := offset - d.windowPos; wrapped < length {
			for i := 0; i < wrapped; i++ {
				d.window[dest] = d.window[src]
				dest++
				src++
			}
			length -= wrapped
			d.windowPos += wrapped
			src = 0
		}
	}
	d.windowPos += length

	// Byte at a time; source and destination may overlap.
	for ; length > 0; length-- {
		d.window[dest] = d.window[src]
		dest++
		src++
	}
	return nil
}

// decodeE8 undoes the x86 CALL translation applied by the compressor when
// the stream declares an intel file size.
func decodeE8(b []byte, off int, fileSize int32) {
	if len(b) < 10 {
		return
	}
	for i := 0; i < len(b)-10; i++ {
		if b[i] != 0xE8 {
			continue
		}
		current := int32(off + i)
		abs := int32(binary.LittleEndian.Uint32(b[i+1 : i+5]))
		if abs >= -current && abs < fileSize {
			var rel int32
			if abs >= 0 {
				rel = abs - current
			} else {
				rel = abs + fileSize
			}
			binary.LittleEndian.PutUint32(b[i+1:i+5], uint32(rel))
		}
		i += 4
	}
}
