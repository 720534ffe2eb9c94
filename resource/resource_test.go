package resource

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"runtime"
	"testing"
	"time"

	"github.com/32bitkid/xnb/audio"
	"github.com/32bitkid/xnb/decompression"
)

func parse(t *testing.T, file []byte) *Content {
	t.Helper()
	c, err := ParseFrom(context.Background(), bytes.NewReader(file), decompression.Decompressors)
	if err != nil {
		t.Fatalf("ParseFrom: %v", err)
	}
	return c
}

func write(t *testing.T, asset Asset, opts WriteOptions) []byte {
	t.Helper()
	var buf bytes.Buffer
	if _, err := Write(&buf, asset, opts); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return buf.Bytes()
}

func TestReadHeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"bad magic", []byte{'X', 'N', 'A', 'w', 5, 0, 10, 0, 0, 0}},
		{"version 4", []byte{'X', 'N', 'B', 'w', 4, 0, 10, 0, 0, 0}},
		{"size below header", []byte{'X', 'N', 'B', 'w', 5, 0, 9, 0, 0, 0}},
		{"compressed size below header", []byte{'X', 'N', 'B', 'w', 5, 0x80, 12, 0, 0, 0, 0, 0, 0, 0}},
		{"short", []byte{'X', 'N', 'B'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHeader(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("expected ErrFormat, got %v", err)
			}
		})
	}
}

func TestReadHeader(t *testing.T) {
	h, err := ReadHeader(bytes.NewReader([]byte{'X', 'N', 'B', 'w', 5, 0x81, 30, 0, 0, 0, 64, 0, 0, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if !h.Compressed() || !h.HiDef() {
		t.Errorf("flags %#x not decoded", h.Flags)
	}
	if h.Len() != 14 || h.Size != 30 || h.DecompressedSize != 64 {
		t.Errorf("unexpected header %+v", h)
	}

	h, err = ReadHeader(bytes.NewReader([]byte{'X', 'N', 'B', 'x', 5, 0, 30, 0, 0, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if h.Compressed() || h.DecompressedSize != 20 {
		t.Errorf("unexpected header %+v", h)
	}
}

func TestVarint(t *testing.T) {
	tests := []struct {
		value   int
		encoded []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{0x3fff, []byte{0xff, 0x7f}},
		{0x4000, []byte{0x80, 0x80, 0x01}},
	}
	for _, tt := range tests {
		if got := AppendVarint(nil, tt.value); !bytes.Equal(got, tt.encoded) {
			t.Errorf("AppendVarint(%d) = %x, expected %x", tt.value, got, tt.encoded)
		}
		v, err := newDecoder(tt.encoded).varint("test")
		if err != nil || v != tt.value {
			t.Errorf("varint(%x) = %d, %v, expected %d", tt.encoded, v, err, tt.value)
		}
	}

	if _, err := newDecoder([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}).varint("test"); !errors.Is(err, ErrFormat) {
		t.Errorf("expected ErrFormat for overlong varint, got %v", err)
	}
	if _, err := newDecoder([]byte{0x80}).varint("test"); !errors.Is(err, ErrFormat) {
		t.Errorf("expected ErrFormat for truncated varint, got %v", err)
	}
}

func TestTrimAssembly(t *testing.T) {
	if got := TrimAssembly(qualifiedTexture2D); got != readerTexture2D {
		t.Errorf("got %q", got)
	}
	if got := TypeOf("ReLogic.Graphics.DynamicSpriteFontReader, ReLogic"); got != TypeDynamicSpriteFont {
		t.Errorf("got %s", got)
	}
	if got := TypeOf("Microsoft.Xna.Framework.Content.EffectReader"); got != TypeUnsupported {
		t.Errorf("got %s", got)
	}
}

func TestTextureRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.SetNRGBA(x, y, color.NRGBA{uint8(x * 40), uint8(y * 90), uint8(x + y), 0xff})
		}
	}
	tex := NewTexture2D(src, false)

	for _, hidef := range []bool{false, true} {
		file := write(t, tex, WriteOptions{HiDef: hidef})
		if int(binary.LittleEndian.Uint32(file[6:])) != len(file) {
			t.Fatalf("size field %d, file is %d bytes", binary.LittleEndian.Uint32(file[6:]), len(file))
		}

		c := parse(t, file)
		if c.Header.HiDef() != hidef {
			t.Errorf("HiDef flag = %v", c.Header.HiDef())
		}
		if c.Type != TypeTexture2D || c.Readers[0].Name != qualifiedTexture2D {
			t.Fatalf("unexpected reader %+v", c.Readers)
		}
		asset, err := c.Asset()
		if err != nil {
			t.Fatal(err)
		}
		got := asset.(*Texture2D)
		if got.Width != 3 || got.Height != 2 || !bytes.Equal(got.Pix, src.Pix) {
			t.Errorf("pixels differ: %v vs %v", got.Pix, src.Pix)
		}
	}
}

func TestTexturePremultiplyCopies(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{200, 100, 50, 128})
	tex := NewTexture2D(src, true)
	if want := []byte{100, 50, 25, 128}; !bytes.Equal(tex.Pix, want) {
		t.Errorf("got %v, expected %v", tex.Pix, want)
	}
	if src.Pix[0] != 200 {
		t.Errorf("source image modified")
	}
}

func textureBody(format SurfaceFormat, w, h int32, mips ...[]byte) []byte {
	body := appendManifest(nil, readerTexture2D)
	for _, v := range []int32{int32(format), w, h, int32(len(mips))} {
		body = binary.LittleEndian.AppendUint32(body, uint32(v))
	}
	for _, m := range mips {
		body = binary.LittleEndian.AppendUint32(body, uint32(len(m)))
		body = append(body, m...)
	}
	return body
}

func xnbFile(body []byte) []byte {
	file := []byte{'X', 'N', 'B', 'w', 5, 0}
	file = binary.LittleEndian.AppendUint32(file, uint32(10+len(body)))
	return append(file, body...)
}

func TestTextureSkipsMips(t *testing.T) {
	top := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	c := parse(t, xnbFile(textureBody(SurfaceColor, 2, 1, top, []byte{9, 9, 9, 9})))
	asset, err := c.Asset()
	if err != nil {
		t.Fatal(err)
	}
	if tex := asset.(*Texture2D); !bytes.Equal(tex.Pix, top) {
		t.Errorf("got %v", tex.Pix)
	}
}

func TestTextureErrors(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"no mips", textureBody(SurfaceColor, 1, 1)},
		{"short color", textureBody(SurfaceColor, 2, 2, make([]byte, 15))},
		{"short dxt", textureBody(SurfaceDxt1, 4, 4, make([]byte, 7))},
		{"unknown format", textureBody(SurfaceFormat(1), 1, 1, make([]byte, 2))},
		{"zero width", textureBody(SurfaceColor, 0, 1, nil)},
		{"huge color", textureBody(SurfaceColor, 0x7FFFFFFF, 0x7FFFFFFF, make([]byte, 16))},
		{"huge dxt", textureBody(SurfaceDxt5, 0x7FFFFFFF, 0x7FFFFFFF, make([]byte, 16))},
		{"truncated header", append(appendManifest(nil, readerTexture2D), 0, 0, 0, 0, 1, 0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := parse(t, xnbFile(tt.body))
			if _, err := c.Asset(); !errors.Is(err, ErrFormat) {
				t.Fatalf("expected ErrFormat, got %v", err)
			}
		})
	}
}

func TestDecodeDXT1(t *testing.T) {
	// white/black endpoints, each row indexes 0, 1, 2, 3
	fourColour := []byte{0xff, 0xff, 0x00, 0x00, 0xe4, 0xe4, 0xe4, 0xe4}
	pix, err := decodeDXT(SurfaceDxt1, fourColour, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	row := []byte{
		255, 255, 255, 255,
		0, 0, 0, 255,
		170, 170, 170, 255,
		85, 85, 85, 255,
	}
	for y := 0; y < 4; y++ {
		if got := pix[y*16 : y*16+16]; !bytes.Equal(got, row) {
			t.Errorf("row %d = %v, expected %v", y, got, row)
		}
	}

	threeColour := []byte{0x00, 0x00, 0xff, 0xff, 0xe4, 0xe4, 0xe4, 0xe4}
	pix, err = decodeDXT(SurfaceDxt1, threeColour, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0, 0, 0, 255, 255, 255, 255, 255,
		0, 0, 0, 255, 255, 255, 255, 255,
	}
	if !bytes.Equal(pix, want) {
		t.Errorf("clipped block = %v, expected %v", pix, want)
	}

	pix, err = decodeDXT(SurfaceDxt1, threeColour, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{128, 128, 128, 255, 0, 0, 0, 0}; !bytes.Equal(pix[8:], want) {
		t.Errorf("three colour entries = %v, expected %v", pix[8:], want)
	}
}

func TestDecodeDXT5Alpha(t *testing.T) {
	block := make([]byte, 16)
	block[0], block[1] = 255, 0
	block[2] = 0x01 | 0x02<<3
	copy(block[8:], []byte{0xff, 0xff, 0x00, 0x00, 0, 0, 0, 0})

	pix, err := decodeDXT(SurfaceDxt5, block, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	alphas := []byte{pix[3], pix[7], pix[11]}
	if want := []byte{0, 218, 255}; !bytes.Equal(alphas, want) {
		t.Errorf("alpha = %v, expected %v", alphas, want)
	}
}

func TestDecodeDXT3Alpha(t *testing.T) {
	block := make([]byte, 16)
	block[0] = 0x5f
	copy(block[8:], []byte{0xff, 0xff, 0x00, 0x00, 0, 0, 0, 0})

	pix, err := decodeDXT(SurfaceDxt3, block, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	alphas := []byte{pix[3], pix[7], pix[11]}
	if want := []byte{255, 85, 0}; !bytes.Equal(alphas, want) {
		t.Errorf("alpha = %v, expected %v", alphas, want)
	}
}

func TestSoundRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format audio.Format
		data   []byte
		ms     time.Duration
	}{
		{"mono", audio.PCMFormat(1, 8000, 16), make([]byte, 1600), 100 * time.Millisecond},
		{"stereo", audio.PCMFormat(2, 22050, 16), bytes.Repeat([]byte{1, 2, 3, 4}, 2205), 100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSoundEffect(&audio.Wave{Format: tt.format, Data: tt.data})
			if err != nil {
				t.Fatal(err)
			}
			c := parse(t, write(t, s, WriteOptions{}))
			if c.Readers[0].Name != readerSoundEffect {
				t.Errorf("reader %q", c.Readers[0].Name)
			}
			asset, err := c.Asset()
			if err != nil {
				t.Fatal(err)
			}
			got := asset.(*SoundEffect)
			if got.Wave.Format != tt.format || !bytes.Equal(got.Wave.Data, tt.data) {
				t.Errorf("wave differs: %+v", got.Wave.Format)
			}
			frames := len(tt.data) / int(tt.format.BlockAlign)
			if got.LoopStart != 0 || int(got.LoopLength) != frames {
				t.Errorf("loop %d+%d, expected 0+%d", got.LoopStart, got.LoopLength, frames)
			}
			if got.Duration != tt.ms {
				t.Errorf("duration %v, expected %v", got.Duration, tt.ms)
			}
		})
	}
}

func TestSoundErrors(t *testing.T) {
	s, _ := NewSoundEffect(&audio.Wave{Format: audio.PCMFormat(1, 8000, 16), Data: make([]byte, 4)})
	good := write(t, s, WriteOptions{})
	manifest := len(appendManifest(nil, qualifiedSound))

	badSize := append([]byte(nil), good...)
	badSize[10+manifest] = 16
	badTag := append([]byte(nil), good...)
	badTag[10+manifest+4] = 2

	for name, file := range map[string][]byte{"format size": badSize, "codec": badTag} {
		c := parse(t, file)
		if _, err := c.Asset(); !errors.Is(err, ErrFormat) {
			t.Errorf("%s: expected ErrFormat, got %v", name, err)
		}
	}
}

func TestUnsupportedAsset(t *testing.T) {
	body := appendManifest(nil, "Microsoft.Xna.Framework.Content.EffectReader, Microsoft.Xna.Framework.Graphics")
	c := parse(t, xnbFile(body))
	_, err := c.Asset()
	var unsupported *UnsupportedAssetError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedAssetError, got %v", err)
	}
	if unsupported.Reader != "Microsoft.Xna.Framework.Content.EffectReader" {
		t.Errorf("reader %q", unsupported.Reader)
	}
}

func TestManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"no readers", []byte{0x00}},
		{"shared resources", append(appendManifest(nil, readerTexture2D)[:len(appendManifest(nil, readerTexture2D))-2], 1, 1)},
		{"null asset", append(appendManifest(nil, readerTexture2D)[:len(appendManifest(nil, readerTexture2D))-1], 0)},
		{"truncated", appendManifest(nil, readerTexture2D)[:5]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrom(context.Background(), bytes.NewReader(xnbFile(tt.body)), decompression.Decompressors)
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("expected ErrFormat, got %v", err)
			}
		})
	}
}

func TestTruncatedFile(t *testing.T) {
	file := xnbFile(textureBody(SurfaceColor, 1, 1, make([]byte, 4)))
	_, err := ParseFrom(context.Background(), bytes.NewReader(file[:len(file)-3]), decompression.Decompressors)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestDeclaredSizeNotPreallocated(t *testing.T) {
	tests := []struct {
		name string
		file []byte
	}{
		{"compressed", []byte{'X', 'N', 'B', 'w', 5, FlagCompressed, 0xF0, 0xFF, 0xFF, 0xFF, 0xF0, 0xFF, 0xFF, 0xFF, 0, 0}},
		{"uncompressed", []byte{'X', 'N', 'B', 'w', 5, 0, 0xF0, 0xFF, 0xFF, 0xFF, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, err := ParseFrom(context.Background(), bytes.NewReader(tt.file), decompression.Decompressors)
			runtime.ReadMemStats(&after)
			if err == nil {
				t.Fatal("expected an error")
			}
			if n := after.TotalAlloc - before.TotalAlloc; n > 16<<20 {
				t.Fatalf("allocated %d bytes for a %d byte file", n, len(tt.file))
			}
		})
	}
}

type stubCompressor struct {
	out []byte
	err error
}

func (s stubCompressor) Compress([]byte) ([]byte, error) { return s.out, s.err }

func TestWriteCompression(t *testing.T) {
	tex := &Texture2D{Format: SurfaceColor, Width: 1, Height: 1, Pix: []byte{1, 2, 3, 4}}
	raw := write(t, tex, WriteOptions{})

	var buf bytes.Buffer
	compressed, err := Write(&buf, tex, WriteOptions{Compress: true, Compressor: stubCompressor{err: ErrCompressorUnavailable}})
	if err != nil || compressed {
		t.Fatalf("unavailable compressor: compressed=%v err=%v", compressed, err)
	}
	if !bytes.Equal(buf.Bytes(), raw) {
		t.Errorf("fallback output differs from uncompressed output")
	}

	buf.Reset()
	compressed, err = Write(&buf, tex, WriteOptions{Compress: true, Compressor: stubCompressor{out: []byte{0xaa, 0xbb}}})
	if err != nil || !compressed {
		t.Fatalf("compressor: compressed=%v err=%v", compressed, err)
	}
	file := buf.Bytes()
	if file[5] != FlagCompressed || len(file) != 16 {
		t.Fatalf("unexpected compressed file %x", file)
	}
	if binary.LittleEndian.Uint32(file[6:]) != 16 || int(binary.LittleEndian.Uint32(file[10:])) != len(raw)-10 {
		t.Errorf("size fields %x", file[6:14])
	}

	if _, err := Write(&buf, tex, WriteOptions{Compress: true, Compressor: stubCompressor{err: errors.New("boom")}}); err == nil {
		t.Errorf("expected compressor failure to propagate")
	}
}

func TestWriteFontUnsupported(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(&buf, &Font{Kind: TypeSpriteFont}, WriteOptions{})
	var unsupported *UnsupportedAssetError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedAssetError, got %v", err)
	}
}

func TestDynamicSpriteFont(t *testing.T) {
	body := appendManifest(nil, readerDynamicSpriteFont)
	body = binary.LittleEndian.AppendUint32(body, 0)  // spacing
	body = binary.LittleEndian.AppendUint32(body, 20) // line spacing
	body = append(body, '*')                          // default char
	body = binary.LittleEndian.AppendUint32(body, 2)  // pages
	for page := 0; page < 2; page++ {
		body = AppendVarint(body, 2)
		for _, v := range []uint32{0, 1, 1, 1, 4} {
			body = binary.LittleEndian.AppendUint32(body, v)
		}
		body = append(body, byte(page), 0, 0, 0xff)
		body = AppendVarint(body, 3)
		body = binary.LittleEndian.AppendUint32(body, 1)
		body = append(body, make([]byte, 16)...)
		body = AppendVarint(body, 3)
		body = binary.LittleEndian.AppendUint32(body, 0)
		body = AppendVarint(body, 4)
		body = binary.LittleEndian.AppendUint32(body, 2)
		body = append(body, 'a', 0xc3, 0xa9)
		body = AppendVarint(body, 5)
		body = binary.LittleEndian.AppendUint32(body, 1)
		body = append(body, make([]byte, 12)...)
	}

	c := parse(t, xnbFile(body))
	asset, err := c.Asset()
	if err != nil {
		t.Fatal(err)
	}
	f := asset.(*Font)
	if f.Type() != TypeDynamicSpriteFont || len(f.Pages) != 2 {
		t.Fatalf("got %s with %d pages", f.Type(), len(f.Pages))
	}
	if f.Pages[1].Pix[0] != 1 {
		t.Errorf("page order wrong: %v", f.Pages[1].Pix)
	}
}
