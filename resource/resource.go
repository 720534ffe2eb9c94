// Package resource reads and writes XNB compiled asset containers.
package resource

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/32bitkid/xnb/decompression"
)

var ErrFormat = errors.New("xnb: invalid format")

// UnsupportedAssetError reports a well formed file whose primary asset has no
// codec. Callers treat it as a skip rather than a failure.
type UnsupportedAssetError struct {
	Reader string
}

func (e *UnsupportedAssetError) Error() string {
	return fmt.Sprintf("xnb: unsupported asset type: %s", e.Reader)
}

const (
	FlagHiDef      = 0x01
	FlagCompressed = 0x80

	formatVersion        = 5
	platformWindows      = 'w'
	headerSize           = 10
	compressedHeaderSize = 14
)

var magic = [3]byte{'X', 'N', 'B'}

type Header struct {
	Magic    [3]byte
	Platform byte
	Version  byte
	Flags    byte
	// Size is the length of the whole file, header included.
	Size uint32
	// DecompressedSize is only stored for compressed files; otherwise it is
	// derived from Size.
	DecompressedSize uint32
}

func (h Header) Compressed() bool { return h.Flags&FlagCompressed != 0 }
func (h Header) HiDef() bool      { return h.Flags&FlagHiDef != 0 }

func (h Header) Len() int {
	if h.Compressed() {
		return compressedHeaderSize
	}
	return headerSize
}

func (h Header) method() decompression.Method {
	if h.Compressed() {
		return decompression.MethodLZX
	}
	return decompression.MethodNone
}

// ReadHeader reads and validates the fixed XNB header.
func ReadHeader(r io.Reader) (Header, error) {
	var raw struct {
		Magic    [3]byte
		Platform byte
		Version  byte
		Flags    byte
		Size     uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return Header{}, fmt.Errorf("%w: reading header: %v", ErrFormat, err)
	}
	if raw.Magic != magic {
		return Header{}, fmt.Errorf("%w: not an XNB file (magic %q)", ErrFormat, raw.Magic[:])
	}
	if raw.Version != formatVersion {
		return Header{}, fmt.Errorf("%w: unsupported XNB version %d", ErrFormat, raw.Version)
	}

	h := Header{
		Magic:    raw.Magic,
		Platform: raw.Platform,
		Version:  raw.Version,
		Flags:    raw.Flags,
		Size:     raw.Size,
	}
	if h.Compressed() {
		if err := binary.Read(r, binary.LittleEndian, &h.DecompressedSize); err != nil {
			return Header{}, fmt.Errorf("%w: reading decompressed size: %v", ErrFormat, err)
		}
	}
	if int64(h.Size) < int64(h.Len()) {
		return Header{}, fmt.Errorf("%w: file size %d smaller than its header", ErrFormat, h.Size)
	}
	if !h.Compressed() {
		h.DecompressedSize = h.Size - uint32(h.Len())
	}
	return h, nil
}

type TypeReader struct {
	Name    string
	Version int32
}

// Content is a parsed XNB file: its header, type reader table and the
// decompressed primary asset bytes.
type Content struct {
	Header  Header
	Readers []TypeReader
	Type    Type

	body *decoder
}

// Reader is the unqualified name of the reader for the primary asset.
func (c *Content) Reader() string {
	if len(c.Readers) == 0 {
		return ""
	}
	return TrimAssembly(c.Readers[0].Name)
}

// ParseFrom reads an XNB file, decompressing the body with the method
// selected by the header.
func ParseFrom(ctx context.Context, r io.Reader, decomp decompression.LUT) (*Content, error) {
	src := bufio.NewReader(r)

	header, err := ReadHeader(src)
	if err != nil {
		return nil, err
	}

	decompressor, ok := decomp[header.method()]
	if !ok {
		return nil, fmt.Errorf("unhandled compression method: %s", header.method())
	}

	payloadSize := int(header.Size) - header.Len()
	// Sized by what the payload produces, not by the header.
	var body bytes.Buffer
	if err := decompressor(ctx, src, &body, payloadSize, int(header.DecompressedSize)); err != nil {
		return nil, err
	}
	if !header.Compressed() && body.Len() != payloadSize {
		return nil, fmt.Errorf("%w: file truncated, %d of %d bytes present", ErrFormat, body.Len(), payloadSize)
	}

	c := &Content{Header: header, body: newDecoder(body.Bytes())}
	if err := c.readManifest(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Content) readManifest() error {
	d := c.body
	count, err := d.varint("type reader count")
	if err != nil {
		return err
	}
	if count < 1 {
		return fmt.Errorf("%w: no type readers", ErrFormat)
	}
	for i := 0; i < count; i++ {
		name, err := d.string("type reader name")
		if err != nil {
			return err
		}
		version, err := d.int32("type reader version")
		if err != nil {
			return err
		}
		c.Readers = append(c.Readers, TypeReader{Name: name, Version: version})
	}
	c.Type = TypeOf(c.Readers[0].Name)

	shared, err := d.varint("shared resource count")
	if err != nil {
		return err
	}
	if shared != 0 {
		return fmt.Errorf("%w: shared resources are not supported (%d)", ErrFormat, shared)
	}

	object, err := d.varint("primary asset reader")
	if err != nil {
		return err
	}
	if object != 1 {
		return fmt.Errorf("%w: primary asset reader index %d, expected 1", ErrFormat, object)
	}
	return nil
}

// Asset is a decoded primary asset.
type Asset interface {
	Type() Type
}

// Asset decodes the primary asset. Assets without a codec return an
// *UnsupportedAssetError.
func (c *Content) Asset() (Asset, error) {
	var (
		asset Asset
		err   error
	)
	switch c.Type {
	case TypeTexture2D:
		asset, err = readTexture2D(c.body)
	case TypeSoundEffect:
		asset, err = readSoundEffect(c.body)
	case TypeSpriteFont:
		asset, err = readSpriteFont(c.body)
	case TypeDynamicSpriteFont:
		asset, err = readDynamicSpriteFont(c.body)
	default:
		return nil, &UnsupportedAssetError{Reader: c.Reader()}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Type, err)
	}
	return asset, nil
}
