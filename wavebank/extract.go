package wavebank

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/32bitkid/xnb/audio"
	"github.com/32bitkid/xnb/internal/atomicfile"
)

// DefaultTrackNames names the tracks of the stock music bank by index.
var DefaultTrackNames = []string{
	"01 Overworld Night",
	"02 Eerie",
	"03 Overworld Day",
	"04 Boss 1",
	"05 Title Screen",
	"06 Jungle",
	"07 Corruption",
	"08 Hallow",
	"09 Underground Corruption",
	"10 Underground Hallow",
	"11 Boss 2",
	"12 Underground",
	"13 Boss 3",
	"14 Snow",
	"15 Space",
	"16 Crimson",
	"17 Boss 4",
	"18 Alt Overworld Day",
	"19 Rain",
	"20 Underground Snow",
	"21 Desert",
	"22 Ocean",
	"23 Dungeon",
	"24 Plantera",
	"25 Boss 5",
	"26 Temple",
	"27 Eclipse",
	"28 Rain Ambience",
	"29 Mushrooms",
	"30 Pumpkin Moon",
	"31 Alt Underground",
	"32 Frost Moon",
	"33 Underground Crimson",
	"34 Lunar Event",
	"35 Pirate Invasion",
	"36 Hell",
	"37 Martian Madness",
	"38 Moon Lord",
	"39 Goblin Invasion",
	"40 Sandstorm",
	"41 Old One's Army",
}

// TrackName picks the display name for entry i, numbering from one when the
// list runs out.
func TrackName(names []string, i int) string {
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return strconv.Itoa(i+1) + " Unknown"
}

type Options struct {
	// TrackNames overrides DefaultTrackNames when non-nil.
	TrackNames []string
	// Transcoder decodes WMA entries. Banks without WMA entries need none.
	Transcoder audio.Transcoder
	// Progress, when set, is called before each track is written.
	Progress func(track string, index, count int)
}

// Extract writes every entry of the bank to outDir as "<track>.wav" and
// returns the paths written. Extraction stops at the first failing entry;
// the tracks written before it are still returned so the caller can remove
// them.
func (b *Bank) Extract(ctx context.Context, outDir string, opts Options) ([]string, error) {
	names := opts.TrackNames
	if names == nil {
		names = DefaultTrackNames
	}

	var outputs []string
	for i := range b.Entries {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}
		track := TrackName(names, i)
		if opts.Progress != nil {
			opts.Progress(track, i, len(b.Entries))
		}
		path := filepath.Join(outDir, track+".wav")
		if err := b.extractEntry(ctx, i, path, opts.Transcoder); err != nil {
			return outputs, fmt.Errorf("%s: %w", track, err)
		}
		outputs = append(outputs, path)
	}
	return outputs, nil
}

func (b *Bank) extractEntry(ctx context.Context, i int, path string, tc audio.Transcoder) error {
	e := b.Entries[i]
	data, err := b.Samples(i)
	if err != nil {
		return err
	}
	f := e.Format

	switch f.Codec {
	case CodecPCM:
		wave := &audio.Wave{
			Format: audio.PCMFormat(f.Channels, f.SampleRate, f.BitsPerSample()),
			Data:   data,
		}
		return writeWave(path, wave)

	case CodecADPCM:
		pcm, err := audio.DecodeMSADPCM(data, f.Channels, (f.Align+22)*f.Channels)
		if err != nil {
			return err
		}
		wave := &audio.Wave{
			Format: audio.PCMFormat(f.Channels, f.SampleRate, 16),
			Data:   pcm,
		}
		return writeWave(path, wave)

	case CodecWMA:
		return transcodeWMA(ctx, f, data, path, tc)
	}
	return fmt.Errorf("%w: %s", ErrCodec, f.Codec)
}

func writeWave(path string, wave *audio.Wave) error {
	return atomicfile.Write(path, func(w io.Writer) error {
		_, err := wave.WriteTo(w)
		return err
	})
}

// transcodeWMA hands the packets to the transcoder inside an XWMA container.
// The intermediate files live in a scratch directory beside the output and
// are removed whatever the outcome.
func transcodeWMA(ctx context.Context, f Format, data []byte, path string, tc audio.Transcoder) error {
	if tc == nil {
		return audio.ErrNoTranscoder
	}
	scratch, err := os.MkdirTemp(filepath.Dir(path), ".xwma-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	in := filepath.Join(scratch, "track.xwma")
	out := filepath.Join(scratch, "track.wav")

	src, err := os.Create(in)
	if err != nil {
		return err
	}
	if err := audio.WriteXWMA(src, f.Channels, f.SampleRate, f.Align, data); err != nil {
		_ = src.Close()
		return err
	}
	if err := src.Close(); err != nil {
		return err
	}

	if err := tc.Transcode(ctx, in, out); err != nil {
		return err
	}
	return atomicfile.Move(out, path)
}
