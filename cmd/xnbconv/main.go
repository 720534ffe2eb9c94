// Command xnbconv extracts XNB and XWB content to PNG and WAV files, or
// converts images and audio back into XNB files.
//
// Usage:
//
//	xnbconv [flags] extract <content dir or file> <output dir>
//	xnbconv [flags] convert <source dir or file> <output dir>
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/32bitkid/xnb"
	"github.com/32bitkid/xnb/audio"
	"github.com/32bitkid/xnb/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "JSON configuration file")
		workers    = flag.Int("workers", 0, "files converted at once (overrides config)")
		compress   = flag.Bool("compress", false, "request LZX compressed output")
		hidef      = flag.Bool("hidef", false, "mark output for the HiDef profile")
		noPremul   = flag.Bool("no-premultiply", false, "pack textures with straight alpha")
		ffmpeg     = flag.String("ffmpeg", "", "path to the ffmpeg executable")
		contentDir = flag.String("content", "", "game Content directory, used to find TrackList.txt")
		noImages   = flag.Bool("no-images", false, "skip textures and image inputs")
		noSounds   = flag.Bool("no-sounds", false, "skip sound effects, wave banks and audio inputs")
		noFonts    = flag.Bool("no-fonts", false, "skip sprite fonts")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] extract|convert <input> <output dir>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Workers = *workers
		case "compress":
			cfg.Compress = *compress
		case "hidef":
			cfg.HiDef = *hidef
		case "no-premultiply":
			cfg.Premultiply = !*noPremul
		case "ffmpeg":
			cfg.FFmpeg = *ffmpeg
		case "content":
			cfg.ContentDir = *contentDir
		case "no-images":
			cfg.IncludeImages = !*noImages
		case "no-sounds":
			cfg.IncludeSounds = !*noSounds
		case "no-fonts":
			cfg.IncludeFonts = !*noFonts
		}
	})
	if path := cfg.LoadTrackNames(); path != "" {
		log.Printf("Track names: %s", path)
	}

	var mode xnb.Mode
	switch flag.Arg(0) {
	case "extract":
		mode = xnb.ModeExtract
	case "convert":
		mode = xnb.ModeConvert
	default:
		flag.Usage()
		os.Exit(2)
	}
	input, outDir := flag.Arg(1), flag.Arg(2)

	root := xnb.NewRoot(input)
	info, err := os.Stat(input)
	if err != nil {
		log.Fatal(err)
	}
	if info.IsDir() {
		if err := root.LoadMapping(mode, outDir); err != nil {
			log.Fatal(err)
		}
	} else {
		pair, ok := xnb.NewFilePair(mode, input, filepath.Join(outDir, filepath.Base(input)))
		if !ok {
			log.Fatalf("%s: %v", input, xnb.ErrUnsupportedInput)
		}
		root.Mapping = append(root.Mapping, pair)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	batch := &xnb.Batch{
		Options: xnb.Options{
			Config:        cfg,
			Decompressors: root.Decompressors,
			Transcoder:    audio.FFmpeg{Path: cfg.FFmpeg},
		},
	}
	results := batch.Run(ctx, root.Mapping)

	counts := xnb.Tally(results)
	log.Printf("Done: %d succeeded, %d skipped, %d failed, %d canceled",
		counts[xnb.KindSuccess],
		counts[xnb.KindSkipped],
		counts[xnb.KindFormat]+counts[xnb.KindDecompression]+counts[xnb.KindIO],
		counts[xnb.KindCanceled],
	)
	if counts[xnb.KindSuccess]+counts[xnb.KindSkipped] != len(results) {
		os.Exit(1)
	}
}
