// Package config holds the settings shared by every conversion in a run.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/32bitkid/xnb/wavebank"
)

// TrackListFile is the name of the optional wave bank track list.
const TrackListFile = "TrackList.txt"

type Config struct {
	// ContentDir is the game's Content directory. It anchors one of the
	// track list search paths.
	ContentDir string `json:"contentDir"`
	// Compress requests LZX compressed XNB output when a compressor is
	// available.
	Compress bool `json:"compress"`
	// HiDef marks written XNB files for the HiDef graphics profile.
	HiDef bool `json:"hiDef"`
	// Premultiply scales colour by alpha before textures are packed.
	Premultiply bool `json:"premultiply"`
	// Workers bounds the number of files converted at once.
	Workers int `json:"workers"`
	// FFmpeg is the transcoder executable; empty searches $PATH.
	FFmpeg string `json:"ffmpeg"`
	// TrackListPaths replaces the default track list search order.
	TrackListPaths []string `json:"trackListPaths"`
	// TrackNames, when set, is used as is and no list is searched for.
	TrackNames []string `json:"trackNames"`

	// Include* select which asset types are processed. Wave banks count as
	// sounds. The rest are reported as skipped.
	IncludeImages bool `json:"includeImages"`
	IncludeSounds bool `json:"includeSounds"`
	IncludeFonts  bool `json:"includeFonts"`
}

func Default() Config {
	return Config{
		Premultiply:   true,
		Workers:       1,
		IncludeImages: true,
		IncludeSounds: true,
		IncludeFonts:  true,
	}
}

// Load reads a JSON configuration file over the defaults.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c, nil
}

// SearchPaths lists the places a track list is looked for, in order.
func (c *Config) SearchPaths() []string {
	if len(c.TrackListPaths) > 0 {
		return c.TrackListPaths
	}
	var paths []string
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), TrackListFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "Documents", "My Games", "Terraria", TrackListFile))
	}
	if c.ContentDir != "" {
		paths = append(paths, filepath.Join(filepath.Dir(filepath.Clean(c.ContentDir)), TrackListFile))
	}
	return paths
}

// LoadTrackNames fills TrackNames from the first readable track list, or the
// stock names when there is none. It returns the path used, if any.
func (c *Config) LoadTrackNames() string {
	if c.TrackNames != nil {
		return ""
	}
	for _, path := range c.SearchPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		c.TrackNames = ParseTrackList(data)
		return path
	}
	c.TrackNames = wavebank.DefaultTrackNames
	return ""
}

// ParseTrackList reads one name per non-empty line. Text that is not UTF-8
// is taken to be Windows-1252.
func ParseTrackList(data []byte) []string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		if decoded, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
			data = decoded
		}
	}

	names := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names
}
