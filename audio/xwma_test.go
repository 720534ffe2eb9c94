package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"
)

func TestWriteXWMALayout(t *testing.T) {
	data := bytes.Repeat([]byte{0xaa}, 929*2)

	var buf bytes.Buffer
	if err := WriteXWMA(&buf, 2, 44100, 0, data); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()

	u16 := func(off int) uint16 { return binary.LittleEndian.Uint16(b[off:]) }
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }

	checks := []struct {
		name     string
		actual   uint32
		expected uint32
	}{
		{"fmt size", u32(16), 18},
		{"tag", uint32(u16(20)), uint32(TagWMA2)},
		{"channels", uint32(u16(22)), 2},
		{"rate", u32(24), 44100},
		{"avg bytes", u32(28), 12000},
		{"block align", uint32(u16(32)), 929},
		{"bits", uint32(u16(34)), 16},
		{"cb size", uint32(u16(36)), 0},
		{"dpds size", u32(42), 8},
		{"packet 0", u32(46), 2722 * 4096},
		{"packet 1", u32(50), 5444 * 4096},
		{"data size", u32(58), uint32(len(data))},
	}
	for _, c := range checks {
		if c.actual != c.expected {
			t.Errorf("%s: expected(%d) != actual(%d)", c.name, c.expected, c.actual)
		}
	}

	for off, label := range map[int]string{0: "RIFF", 8: "XWMA", 12: "fmt ", 38: "dpds", 54: "data"} {
		if got := string(b[off : off+4]); got != label {
			t.Errorf("offset %d: expected %q, got %q", off, label, got)
		}
	}
	if len(b) != 62+len(data) {
		t.Fatalf("expected %d bytes, got %d", 62+len(data), len(b))
	}
}

func TestWMAFormat(t *testing.T) {
	cases := []struct {
		align      int
		avgBytes   uint32
		blockAlign uint16
	}{
		{0, 12000, 929},
		{5, 20000, 8192},
		{15, 12000, 5462},
		{0x21, 24000, 1487},
		{0xaf, 20000, 5462},
		{0x30, 24000, 929}, // bit 4 belongs to neither field
	}

	for _, c := range cases {
		avg, block, err := wmaFormat(c.align)
		if err != nil {
			t.Fatalf("align %#x: %v", c.align, err)
		}
		if avg != c.avgBytes || block != c.blockAlign {
			t.Fatalf("align %#x: expected (%d, %d), got (%d, %d)", c.align, c.avgBytes, c.blockAlign, avg, block)
		}
	}

	if _, _, err := wmaFormat(0xff); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestFFmpegMissingBinary(t *testing.T) {
	dir := t.TempDir()
	f := FFmpeg{Path: filepath.Join(dir, "no-such-ffmpeg")}
	err := f.Transcode(context.Background(), filepath.Join(dir, "in.wma"), filepath.Join(dir, "out.wav"))
	if err == nil {
		t.Fatal("expected error")
	}
}
