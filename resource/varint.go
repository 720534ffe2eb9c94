package resource

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

const maxVarintBytes = 5

// decoder reads little-endian XNB primitives from a decompressed body.
type decoder struct {
	r *bytes.Reader
}

func newDecoder(body []byte) *decoder {
	return &decoder{r: bytes.NewReader(body)}
}

func (d *decoder) offset() int64 {
	return d.r.Size() - int64(d.r.Len())
}

func (d *decoder) eof(what string, err error) error {
	return fmt.Errorf("%w: reading %s at offset %d: %v", ErrFormat, what, d.offset(), err)
}

func (d *decoder) read(what string, v interface{}) error {
	if err := binary.Read(d.r, binary.LittleEndian, v); err != nil {
		return d.eof(what, err)
	}
	return nil
}

func (d *decoder) int32(what string) (int32, error) {
	var v int32
	err := d.read(what, &v)
	return v, err
}

func (d *decoder) uint32(what string) (uint32, error) {
	var v uint32
	err := d.read(what, &v)
	return v, err
}

func (d *decoder) bytes(what string, n int) ([]byte, error) {
	if n < 0 || n > d.r.Len() {
		return nil, fmt.Errorf("%w: %s of %d bytes at offset %d overruns data", ErrFormat, what, n, d.offset())
	}
	buf := make([]byte, n)
	_, _ = io.ReadFull(d.r, buf)
	return buf, nil
}

func (d *decoder) skip(what string, n int64) error {
	if n < 0 || n > int64(d.r.Len()) {
		return fmt.Errorf("%w: skipping %s of %d bytes at offset %d overruns data", ErrFormat, what, n, d.offset())
	}
	_, err := d.r.Seek(n, io.SeekCurrent)
	return err
}

// varint reads a 7-bit encoded integer, low groups first.
func (d *decoder) varint(what string) (int, error) {
	var result uint32
	for i := 0; i < maxVarintBytes; i++ {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, d.eof(what, err)
		}
		result |= uint32(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return int(int32(result)), nil
		}
	}
	return 0, fmt.Errorf("%w: %s varint longer than %d bytes", ErrFormat, what, maxVarintBytes)
}

func (d *decoder) string(what string) (string, error) {
	n, err := d.varint(what)
	if err != nil {
		return "", err
	}
	b, err := d.bytes(what, n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrFormat, what)
	}
	return string(b), nil
}

// char reads a single UTF-8 encoded character.
func (d *decoder) char(what string) (rune, error) {
	lead, err := d.r.ReadByte()
	if err != nil {
		return 0, d.eof(what, err)
	}
	n := 1
	switch {
	case lead&0x80 == 0:
	case lead&0xe0 == 0xc0:
		n = 2
	case lead&0xf0 == 0xe0:
		n = 3
	case lead&0xf8 == 0xf0:
		n = 4
	default:
		return 0, fmt.Errorf("%w: invalid UTF-8 lead byte %#x in %s", ErrFormat, lead, what)
	}
	buf := make([]byte, n)
	buf[0] = lead
	if _, err := io.ReadFull(d.r, buf[1:]); err != nil {
		return 0, d.eof(what, err)
	}
	r, _ := utf8.DecodeRune(buf)
	return r, nil
}

// AppendVarint appends v as a 7-bit encoded integer.
func AppendVarint(dst []byte, v int) []byte {
	u := uint32(v)
	for u >= 0x80 {
		dst = append(dst, byte(u)|0x80)
		u >>= 7
	}
	return append(dst, byte(u))
}

func appendString(dst []byte, s string) []byte {
	dst = AppendVarint(dst, len(s))
	return append(dst, s...)
}
