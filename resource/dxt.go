package resource

import (
	"encoding/binary"
	"fmt"

	clr "github.com/lucasb-eyer/go-colorful"
)

// S3TC block decompression. Every 4x4 block stores two RGB565 endpoints and
// 2-bit palette indices; DXT3 adds explicit 4-bit alpha and DXT5 adds an
// interpolated 8-entry alpha palette.

func dxtBlockBytes(format SurfaceFormat) int {
	if format == SurfaceDxt1 {
		return 8
	}
	return 16
}

func dxtSize(format SurfaceFormat, width, height int) int64 {
	return ((int64(width) + 3) / 4) * ((int64(height) + 3) / 4) * int64(dxtBlockBytes(format))
}

func unpack565(c uint16) clr.Color {
	r := (c >> 11) & 0x1f
	g := (c >> 5) & 0x3f
	b := c & 0x1f
	return clr.Color{
		R: float64(r<<3|r>>2) / 255,
		G: float64(g<<2|g>>4) / 255,
		B: float64(b<<3|b>>2) / 255,
	}
}

type rgba [4]uint8

func opaque(c clr.Color) rgba {
	r, g, b := c.RGB255()
	return rgba{r, g, b, 0xff}
}

// colorPalette expands a colour block's endpoints. Only DXT1 may use the
// three colour mode with a transparent fourth entry.
func colorPalette(block []byte, dxt1 bool) [4]rgba {
	c0 := binary.LittleEndian.Uint16(block[0:])
	c1 := binary.LittleEndian.Uint16(block[2:])
	e0, e1 := unpack565(c0), unpack565(c1)

	var p [4]rgba
	p[0] = opaque(e0)
	p[1] = opaque(e1)
	if c0 > c1 || !dxt1 {
		p[2] = opaque(e0.BlendRgb(e1, 1.0/3.0))
		p[3] = opaque(e0.BlendRgb(e1, 2.0/3.0))
	} else {
		p[2] = opaque(e0.BlendRgb(e1, 0.5))
		p[3] = rgba{}
	}
	return p
}

func alphaPalette(a0, a1 uint8) [8]uint8 {
	p := [8]uint8{a0, a1}
	x0, x1 := int(a0), int(a1)
	if a0 > a1 {
		for i := 1; i <= 6; i++ {
			p[i+1] = uint8(((7-i)*x0 + i*x1) / 7)
		}
	} else {
		for i := 1; i <= 4; i++ {
			p[i+1] = uint8(((5-i)*x0 + i*x1) / 5)
		}
		p[6] = 0
		p[7] = 0xff
	}
	return p
}

// decodeDXT expands a DXT1, DXT3 or DXT5 surface to RGBA bytes.
func decodeDXT(format SurfaceFormat, src []byte, width, height int) ([]byte, error) {
	if need := dxtSize(format, width, height); int64(len(src)) < need {
		return nil, fmt.Errorf("%w: %s surface needs %d bytes, has %d", ErrFormat, format, need, len(src))
	}

	pix := make([]byte, width*height*4)
	blockBytes := dxtBlockBytes(format)
	blocksWide := (width + 3) / 4

	for by := 0; by < (height+3)/4; by++ {
		for bx := 0; bx < blocksWide; bx++ {
			block := src[(by*blocksWide+bx)*blockBytes:][:blockBytes]

			var alpha [16]uint8
			var colorBlock []byte
			switch format {
			case SurfaceDxt1:
				colorBlock = block
			case SurfaceDxt3:
				bits := binary.LittleEndian.Uint64(block)
				for i := range alpha {
					alpha[i] = uint8(bits>>(4*uint(i))&0xf) * 17
				}
				colorBlock = block[8:]
			case SurfaceDxt5:
				p := alphaPalette(block[0], block[1])
				var bits uint64
				for i := 7; i >= 2; i-- {
					bits = bits<<8 | uint64(block[i])
				}
				for i := range alpha {
					alpha[i] = p[bits>>(3*uint(i))&0x7]
				}
				colorBlock = block[8:]
			default:
				return nil, fmt.Errorf("%w: unexpected surface format %d", ErrFormat, int32(format))
			}

			palette := colorPalette(colorBlock, format == SurfaceDxt1)
			indices := binary.LittleEndian.Uint32(colorBlock[4:])

			for i := 0; i < 16; i++ {
				x, y := bx*4+i%4, by*4+i/4
				if x >= width || y >= height {
					continue
				}
				c := palette[indices>>(2*uint(i))&0x3]
				if format != SurfaceDxt1 {
					c[3] = alpha[i]
				}
				copy(pix[(y*width+x)*4:], c[:])
			}
		}
	}
	return pix, nil
}
