// Package image holds the pixel buffer helpers shared by texture extraction
// and conversion.
package image

import (
	"image"
	_ "image/jpeg"
	"image/png"
	"io"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// Decode reads any registered bitmap format: PNG, JPEG or BMP.
func Decode(r io.Reader) (image.Image, string, error) {
	return image.Decode(r)
}

// ToNRGBA normalises src to a tightly packed 32bpp buffer anchored at the
// origin.
func ToNRGBA(src image.Image) *image.NRGBA {
	if img, ok := src.(*image.NRGBA); ok && img.Rect.Min == (image.Point{}) && img.Stride == 4*img.Rect.Dx() {
		return img
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst
}

// FromPixels wraps w*h pixels of 4 bytes each, in R, G, B, A order.
func FromPixels(w, h int, pix []byte) *image.NRGBA {
	return &image.NRGBA{
		Pix:    pix,
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
}

func premultiplyChannel(c, a uint8) uint8 {
	return uint8((uint32(c)*uint32(a) + 127) / 255)
}

// Premultiply scales the colour channels by alpha in place. Textures are
// drawn with premultiplied blending, so straight-alpha sources need this
// before they are packed.
func Premultiply(img *image.NRGBA) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		if a == 0xff {
			continue
		}
		img.Pix[i+0] = premultiplyChannel(img.Pix[i+0], a)
		img.Pix[i+1] = premultiplyChannel(img.Pix[i+1], a)
		img.Pix[i+2] = premultiplyChannel(img.Pix[i+2], a)
	}
}

// EncodePNG writes img as a PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	return enc.Encode(w, img)
}
