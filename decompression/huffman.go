package decompression

import (
	"fmt"
)

// Huffman decoding

const (
	maxCodeLength = 16
	lengthSafety  = 64
)

// huffmanTable is a canonical huffman decoder. Codes no longer than
// tableBits resolve with a single lookup; longer codes continue through a
// binary tree whose nodes are allocated past the direct-mapped region.
type huffmanTable struct {
	maxSymbols int
	tableBits  uint

	table  []uint16
	length []byte
	empty  bool
}

func newHuffmanTable(maxSymbols int, tableBits uint) *huffmanTable {
	return &huffmanTable{
		maxSymbols: maxSymbols,
		tableBits:  tableBits,
		table:      make([]uint16, (1<<tableBits)+(maxSymbols<<1)),
		length:     make([]byte, maxSymbols+lengthSafety),
	}
}

func (h *huffmanTable) reset() {
	for i := range h.table {
		h.table[i] = 0
	}
	for i := range h.length {
		h.length[i] = 0
	}
	h.empty = false
}

// build rebuilds the decode table from the current code lengths.
func (h *huffmanTable) build() error {
	h.empty = false

	var (
		used      int
		lastSym   int
		tableBits = h.tableBits
		tableMask = 1 << tableBits
		bitMask   = tableMask >> 1
		pos       int
		bitNum    uint = 1
	)

	for sym := 0; sym < h.maxSymbols; sym++ {
		if h.length[sym] > maxCodeLength {
			return fmt.Errorf("%w: code length %d exceeds %d", ErrCorrupt, h.length[sym], maxCodeLength)
		}
		if h.length[sym] != 0 {
			used++
			lastSym = sym
		}
	}

	switch used {
	case 0:
		h.empty = true
		return nil
	case 1:
		// A lone symbol is a degenerate code; every bit pattern maps to it.
		for i := 0; i < tableMask; i++ {
			h.table[i] = uint16(lastSym)
		}
		return nil
	}

	// direct-mapped codes
	for ; bitNum <= tableBits; bitNum++ {
		for sym := 0; sym < h.maxSymbols; sym++ {
			if uint(h.length[sym]) != bitNum {
				continue
			}
			leaf := pos
			if pos += bitMask; pos > tableMask {
				return fmt.Errorf("%w: huffman table overrun", ErrCorrupt)
			}
			for fill := bitMask; fill > 0; fill-- {
				h.table[leaf] = uint16(sym)
				leaf++
			}
		}
		bitMask >>= 1
	}

	if pos == tableMask {
		return nil
	}

	// codes longer than tableBits
	for i := pos; i < tableMask; i++ {
		h.table[i] = 0
	}

	pos <<= 16
	tableMask <<= 16
	bitMask = 1 << 15
	nextSymbol := (1 << tableBits) >> 1

	for ; bitNum <= maxCodeLength; bitNum++ {
		for sym := 0; sym < h.maxSymbols; sym++ {
			if uint(h.length[sym]) != bitNum {
				continue
			}
			leaf := pos >> 16
			for fill := uint(0); fill < bitNum-tableBits; fill++ {
				if h.table[leaf] == 0 {
					node := nextSymbol << 1
					if node+1 >= len(h.table) {
						return fmt.Errorf("%w: huffman tree exhausted", ErrCorrupt)
					}
					h.table[node] = 0
					h.table[node+1] = 0
					h.table[leaf] = uint16(nextSymbol)
					nextSymbol++
				}
				leaf = int(h.table[leaf]) << 1
				if (pos>>(15-fill))&1 == 1 {
					leaf++
				}
			}
			h.table[leaf] = uint16(sym)

			if pos += bitMask; pos > tableMask {
				return fmt.Errorf("%w: huffman table overrun", ErrCorrupt)
			}
		}
		bitMask >>= 1
	}

	if pos != tableMask {
		return fmt.Errorf("%w: incomplete huffman code", ErrCorrupt)
	}
	return nil
}

// decode reads one symbol, consuming exactly its code length.
func (h *huffmanTable) decode(br *bitReader) (int, error) {
	if h.empty {
		return 0, fmt.Errorf("%w: lookup in empty huffman table", ErrCorrupt)
	}
	if err := br.ensure(maxCodeLength); err != nil {
		return 0, err
	}

	code := br.peek(maxCodeLength)
	sym := int(h.table[code>>(maxCodeLength-h.tableBits)])
	if sym >= h.maxSymbols {
		mask := uint32(1) << (maxCodeLength - h.tableBits)
		for sym >= h.maxSymbols {
			mask >>= 1
			if mask == 0 {
				return 0, fmt.Errorf("%w: huffman code longer than %d bits", ErrCorrupt, maxCodeLength)
			}
			sym <<= 1
			if code&mask != 0 {
				sym++
			}
			if sym >= len(h.table) {
				return 0, fmt.Errorf("%w: huffman tree index out of range", ErrCorrupt)
			}
			sym = int(h.table[sym])
		}
	}

	n := h.length[sym]
	if n == 0 {
		return 0, fmt.Errorf("%w: decoded unused symbol %d", ErrCorrupt, sym)
	}
	br.remove(uint(n))
	return sym, nil
}
