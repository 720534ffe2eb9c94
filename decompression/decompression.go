package decompression

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrCorrupt reports a compressed stream that cannot be decoded.
var ErrCorrupt = errors.New("lzx: corrupt stream")

type Method uint8

const (
	MethodNone Method = iota
	MethodLZX
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodLZX:
		return "lzx"
	}
	return fmt.Sprintf("Method(%d)", uint8(m))
}

type Decompressor = func(ctx context.Context, src io.Reader, dst io.Writer, compressedSize, decompressedSize int) error

type LUT map[Method]Decompressor

func DecompressNone(_ context.Context, src io.Reader, dst io.Writer, compressedSize, _ int) error {
	lr := io.LimitReader(src, int64(compressedSize))
	_, err := io.Copy(dst, lr)
	return err
}

func DecompressLZX(ctx context.Context, src io.Reader, dst io.Writer, compressedSize, decompressedSize int) error {
	if compressedSize < 0 || decompressedSize < 0 {
		return fmt.Errorf("%w: negative payload size", ErrCorrupt)
	}
	payload, err := io.ReadAll(io.LimitReader(src, int64(compressedSize)))
	if err != nil {
		return fmt.Errorf("%w: reading payload: %v", ErrCorrupt, err)
	}
	if len(payload) < compressedSize {
		return fmt.Errorf("%w: payload truncated, %d of %d bytes present", ErrCorrupt, len(payload), compressedSize)
	}

	out, err := NewLZX().Decompress(ctx, payload, decompressedSize)
	if err != nil {
		return err
	}
	_, err = dst.Write(out)
	return err
}

// Decompressors keyed by the XNB header compression flag.
var Decompressors = LUT{
	MethodNone: DecompressNone,
	MethodLZX:  DecompressLZX,
}
