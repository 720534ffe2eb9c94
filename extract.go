package xnb

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/32bitkid/xnb/audio"
	"github.com/32bitkid/xnb/config"
	"github.com/32bitkid/xnb/decompression"
	xnbimage "github.com/32bitkid/xnb/image"
	"github.com/32bitkid/xnb/internal/atomicfile"
	"github.com/32bitkid/xnb/resource"
	"github.com/32bitkid/xnb/wavebank"
)

// Options are the collaborators and settings shared by every file.
type Options struct {
	Config config.Config
	// Decompressors defaults to decompression.Decompressors.
	Decompressors decompression.LUT
	// Compressor, when set, produces LZX payloads for converted files.
	Compressor resource.Compressor
	// Transcoder decodes WMA tracks and non-wave audio inputs.
	Transcoder audio.Transcoder
}

func (o Options) decompressors() decompression.LUT {
	if o.Decompressors == nil {
		return decompression.Decompressors
	}
	return o.Decompressors
}

// includes reports whether assets of type t are processed.
func (o Options) includes(t resource.Type) bool {
	switch t {
	case resource.TypeTexture2D:
		return o.Config.IncludeImages
	case resource.TypeSoundEffect:
		return o.Config.IncludeSounds
	case resource.TypeSpriteFont, resource.TypeDynamicSpriteFont:
		return o.Config.IncludeFonts
	}
	return true
}

// includesInput filters by input kind. XNB files are filtered once their
// asset type is known.
func (o Options) includesInput(in Input) bool {
	switch in {
	case InputImage:
		return o.Config.IncludeImages
	case InputWave, InputAudio, InputWaveBank:
		return o.Config.IncludeSounds
	}
	return true
}

func excluded(pair FilePair) Result {
	return newResult(pair, nil, fmt.Errorf("%w: %s", ErrExcluded, pair.Input))
}

// Extract unpacks an XNB file or wave bank into editable files.
func Extract(ctx context.Context, pair FilePair, opts Options) Result {
	if !opts.includesInput(InputOf(pair.Input)) {
		return excluded(pair)
	}
	var (
		outputs []string
		err     error
	)
	switch InputOf(pair.Input) {
	case InputXNB:
		outputs, err = extractXNB(ctx, pair, opts)
	case InputWaveBank:
		outputs, err = extractWaveBank(ctx, pair, opts)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedInput, pair.Input)
	}
	if err != nil {
		// A partly extracted input is not kept.
		for _, path := range outputs {
			_ = os.Remove(path)
		}
		outputs = nil
	}
	return newResult(pair, outputs, err)
}

func extractXNB(ctx context.Context, pair FilePair, opts Options) ([]string, error) {
	f, err := os.Open(pair.Input)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := resource.ParseFrom(ctx, f, opts.decompressors())
	if err != nil {
		return nil, err
	}
	if !opts.includes(content.Type) {
		return nil, fmt.Errorf("%w: %s", ErrExcluded, content.Type)
	}
	asset, err := content.Asset()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(pair.Output), 0o755); err != nil {
		return nil, err
	}

	switch a := asset.(type) {
	case *resource.Texture2D:
		path := pair.Output + ".png"
		if err := writePNG(path, a); err != nil {
			return nil, err
		}
		return []string{path}, nil
	case *resource.SoundEffect:
		path := pair.Output + ".wav"
		err := atomicfile.Write(path, func(w io.Writer) error {
			_, err := a.Wave.WriteTo(w)
			return err
		})
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case *resource.Font:
		var outputs []string
		for i, page := range a.Pages {
			path := pair.Output + ".png"
			if a.Kind == resource.TypeDynamicSpriteFont {
				path = fmt.Sprintf("%s_%d.png", pair.Output, i)
			}
			if err := writePNG(path, page); err != nil {
				return outputs, err
			}
			outputs = append(outputs, path)
		}
		return outputs, nil
	}
	return nil, &resource.UnsupportedAssetError{Reader: content.Reader()}
}

func writePNG(path string, tex *resource.Texture2D) error {
	return atomicfile.Write(path, func(w io.Writer) error {
		return xnbimage.EncodePNG(w, tex.Image())
	})
}

func extractWaveBank(ctx context.Context, pair FilePair, opts Options) ([]string, error) {
	bank, err := wavebank.Open(pair.Input)
	if err != nil {
		return nil, err
	}
	defer bank.Close()
	dir := filepath.Dir(pair.Output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return bank.Extract(ctx, dir, wavebank.Options{
		TrackNames: opts.Config.TrackNames,
		Transcoder: opts.Transcoder,
	})
}
