package resource

import (
	"encoding/binary"
	"fmt"
	"image"

	xnbimage "github.com/32bitkid/xnb/image"
)

// Texture2D is the top mip level of a texture, expanded to 32bpp RGBA.
type Texture2D struct {
	Format SurfaceFormat
	Width  int
	Height int
	Pix    []byte
}

func (*Texture2D) Type() Type { return TypeTexture2D }

// Image wraps the pixel buffer without copying.
func (t *Texture2D) Image() *image.NRGBA {
	return xnbimage.FromPixels(t.Width, t.Height, t.Pix)
}

// NewTexture2D packs an arbitrary image as an uncompressed Color surface.
func NewTexture2D(src image.Image, premultiply bool) *Texture2D {
	img := xnbimage.ToNRGBA(src)
	if premultiply {
		// ToNRGBA may hand back the caller's buffer
		if img == src {
			img = xnbimage.FromPixels(img.Rect.Dx(), img.Rect.Dy(), append([]byte(nil), img.Pix...))
		}
		xnbimage.Premultiply(img)
	}
	return &Texture2D{
		Format: SurfaceColor,
		Width:  img.Rect.Dx(),
		Height: img.Rect.Dy(),
		Pix:    img.Pix,
	}
}

// surface layout
//
// i32 | surface format
// i32 | width
// i32 | height
// i32 | mip count
// then per mip
// u32 | byte length
// ... | pixel data
type textureHeader struct {
	Format   SurfaceFormat
	Width    int32
	Height   int32
	MipCount int32
}

func readTexture2D(d *decoder) (*Texture2D, error) {
	var h textureHeader
	if err := d.read("texture header", &h); err != nil {
		return nil, err
	}
	if h.Width <= 0 || h.Height <= 0 {
		return nil, fmt.Errorf("%w: texture dimensions %dx%d", ErrFormat, h.Width, h.Height)
	}
	if h.MipCount < 1 {
		return nil, fmt.Errorf("%w: unexpected mip count %d", ErrFormat, h.MipCount)
	}

	size, err := d.uint32("mip size")
	if err != nil {
		return nil, err
	}
	src, err := d.bytes("mip data", int(size))
	if err != nil {
		return nil, err
	}

	w, ht := int(h.Width), int(h.Height)
	var pix []byte
	switch h.Format {
	case SurfaceColor:
		if int64(w)*int64(ht) > int64(len(src))/4 {
			return nil, fmt.Errorf("%w: Color surface of %dx%d needs more than the %d bytes present", ErrFormat, w, ht, len(src))
		}
		pix = src[:w*ht*4]
	case SurfaceDxt1, SurfaceDxt3, SurfaceDxt5:
		if pix, err = decodeDXT(h.Format, src, w, ht); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unexpected surface format %d", ErrFormat, int32(h.Format))
	}

	for i := int32(1); i < h.MipCount; i++ {
		size, err := d.uint32("mip size")
		if err != nil {
			return nil, err
		}
		if err := d.skip("mip data", int64(size)); err != nil {
			return nil, err
		}
	}

	return &Texture2D{Format: h.Format, Width: w, Height: ht, Pix: pix}, nil
}

func appendTexture2D(dst []byte, t *Texture2D) []byte {
	h := textureHeader{
		Format:   SurfaceColor,
		Width:    int32(t.Width),
		Height:   int32(t.Height),
		MipCount: 1,
	}
	dst = binary.LittleEndian.AppendUint32(dst, uint32(h.Format))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(h.Width))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(h.Height))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(h.MipCount))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(t.Pix)))
	return append(dst, t.Pix...)
}
