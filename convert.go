package xnb

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/32bitkid/xnb/audio"
	xnbimage "github.com/32bitkid/xnb/image"
	"github.com/32bitkid/xnb/internal/atomicfile"
	"github.com/32bitkid/xnb/resource"
)

const warnUncompressed = "LZX compressor unavailable, wrote uncompressed"

// Convert packs an image or audio file into an XNB asset.
func Convert(ctx context.Context, pair FilePair, opts Options) Result {
	if !opts.includesInput(InputOf(pair.Input)) {
		return excluded(pair)
	}
	var (
		asset resource.Asset
		err   error
	)
	switch InputOf(pair.Input) {
	case InputImage:
		asset, err = loadTexture(pair.Input, opts.Config.Premultiply)
	case InputWave:
		asset, err = loadSound(pair.Input)
	case InputAudio:
		asset, err = transcodeSound(ctx, pair, opts.Transcoder)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedInput, pair.Input)
	}
	if err != nil {
		return newResult(pair, nil, err)
	}
	if err := ctx.Err(); err != nil {
		return newResult(pair, nil, err)
	}

	compressed, err := writeXNB(pair.Output, asset, resource.WriteOptions{
		Compress:   opts.Config.Compress,
		HiDef:      opts.Config.HiDef,
		Compressor: opts.Compressor,
	})
	if err != nil {
		return newResult(pair, nil, err)
	}
	r := newResult(pair, []string{pair.Output}, nil)
	if opts.Config.Compress && !compressed {
		r.Warnings = append(r.Warnings, warnUncompressed)
	}
	return r
}

func writeXNB(path string, asset resource.Asset, opts resource.WriteOptions) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	var compressed bool
	err := atomicfile.Write(path, func(w io.Writer) error {
		var err error
		compressed, err = resource.Write(w, asset, opts)
		return err
	})
	return compressed, err
}

func loadTexture(path string, premultiply bool) (*resource.Texture2D, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := xnbimage.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", resource.ErrFormat, path, err)
	}
	return resource.NewTexture2D(img, premultiply), nil
}

func loadSound(path string) (*resource.SoundEffect, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wave, err := audio.ReadWave(f)
	if err != nil {
		return nil, err
	}
	return resource.NewSoundEffect(wave)
}

// transcodeSound decodes a compressed audio file to a scratch wave file
// beside the output and loads that.
func transcodeSound(ctx context.Context, pair FilePair, tc audio.Transcoder) (*resource.SoundEffect, error) {
	if tc == nil {
		return nil, audio.ErrNoTranscoder
	}
	if err := os.MkdirAll(filepath.Dir(pair.Output), 0o755); err != nil {
		return nil, err
	}
	scratch, err := os.MkdirTemp(filepath.Dir(pair.Output), ".transcode-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	wav := filepath.Join(scratch, "sound.wav")
	if err := tc.Transcode(ctx, pair.Input, wav); err != nil {
		return nil, err
	}
	return loadSound(wav)
}
