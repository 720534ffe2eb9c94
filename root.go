// Package xnb converts between XNA compiled content and editable media.
//
// XNB files hold a single compiled asset, optionally LZX compressed. Textures
// extract to PNG, sound effects to WAV and sprite fonts to one PNG per glyph
// page. XACT wave banks (.xwb) extract to one WAV per track. In the other
// direction PNG, BMP and JPEG images convert to Texture2D assets and audio
// converts to SoundEffect assets.
package xnb

import (
	"io/fs"
	"path/filepath"

	"github.com/32bitkid/xnb/decompression"
)

// Root is a reference to a content directory tree.
type Root struct {
	Decompressors decompression.LUT
	Path          string
	Mapping       []FilePair
}

func NewRoot(path string) Root {
	return Root{
		Path:          path,
		Decompressors: decompression.Decompressors,
	}
}

// LoadMapping walks the tree and pairs every file the mode can handle with
// an output under outDir, mirroring the directory layout. Other files are
// ignored.
func (root *Root) LoadMapping(mode Mode, outDir string) error {
	return filepath.WalkDir(root.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root.Path, path)
		if err != nil {
			return err
		}
		if pair, ok := NewFilePair(mode, path, filepath.Join(outDir, rel)); ok {
			root.Mapping = append(root.Mapping, pair)
		}
		return nil
	})
}
