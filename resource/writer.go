package resource

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrCompressorUnavailable is returned by a Compressor that has no native
// LZX encoder bound.
var ErrCompressorUnavailable = errors.New("xnb: LZX compressor unavailable")

// Compressor produces an LZX payload from an uncompressed XNB body.
type Compressor interface {
	Compress(raw []byte) ([]byte, error)
}

type WriteOptions struct {
	Compress   bool
	HiDef      bool
	Compressor Compressor
}

// Write encodes a Texture2D or SoundEffect as an XNB file. It reports whether
// the body was actually compressed: when compression is requested but no
// compressor is available the file is written uncompressed.
func Write(w io.Writer, asset Asset, opts WriteOptions) (bool, error) {
	var (
		reader string
		body   []byte
	)
	switch a := asset.(type) {
	case *Texture2D:
		if len(a.Pix) != a.Width*a.Height*4 {
			return false, fmt.Errorf("%w: %dx%d texture with %d pixel bytes", ErrFormat, a.Width, a.Height, len(a.Pix))
		}
		reader = qualifiedTexture2D
		body = appendTexture2D(appendManifest(nil, reader), a)
	case *SoundEffect:
		if err := a.Wave.Format.Validate(); err != nil {
			return false, err
		}
		reader = qualifiedSound
		body = appendSoundEffect(appendManifest(nil, reader), a)
	default:
		return false, &UnsupportedAssetError{Reader: fmt.Sprintf("%T", asset)}
	}

	flags := byte(0)
	if opts.HiDef {
		flags |= FlagHiDef
	}

	payload := body
	compressed := false
	if opts.Compress && opts.Compressor != nil {
		out, err := opts.Compressor.Compress(body)
		switch {
		case errors.Is(err, ErrCompressorUnavailable):
		case err != nil:
			return false, fmt.Errorf("compressing: %w", err)
		default:
			payload = out
			compressed = true
			flags |= FlagCompressed
		}
	}

	h := Header{Magic: magic, Platform: platformWindows, Version: formatVersion, Flags: flags}
	h.Size = uint32(h.Len() + len(payload))
	h.DecompressedSize = uint32(len(body))

	head := append([]byte(nil), h.Magic[:]...)
	head = append(head, h.Platform, h.Version, h.Flags)
	head = binary.LittleEndian.AppendUint32(head, h.Size)
	if compressed {
		head = binary.LittleEndian.AppendUint32(head, h.DecompressedSize)
	}
	if _, err := w.Write(head); err != nil {
		return false, err
	}
	if _, err := w.Write(payload); err != nil {
		return false, err
	}
	return compressed, nil
}

// appendManifest writes the single type reader, no shared resources and the
// primary asset reference.
func appendManifest(dst []byte, reader string) []byte {
	dst = AppendVarint(dst, 1)
	dst = appendString(dst, reader)
	dst = binary.LittleEndian.AppendUint32(dst, 0)
	dst = AppendVarint(dst, 0)
	return AppendVarint(dst, 1)
}
