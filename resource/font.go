package resource

import (
	"fmt"
)

const (
	rectangleSize = 16
	vector3Size   = 12
)

// Font holds the glyph page textures of a sprite font. Glyph metrics are
// traversed but not kept.
type Font struct {
	Kind  Type
	Pages []*Texture2D
}

func (f *Font) Type() Type { return f.Kind }

// skipList steps over a List<T> of fixed size elements: a reader varint, an
// i32 count and the elements.
func (d *decoder) skipList(what string, elemSize int) error {
	if _, err := d.varint(what); err != nil {
		return err
	}
	count, err := d.int32(what + " count")
	if err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("%w: %s count %d", ErrFormat, what, count)
	}
	return d.skip(what, int64(count)*int64(elemSize))
}

func (d *decoder) skipCharList(what string) error {
	if _, err := d.varint(what); err != nil {
		return err
	}
	count, err := d.int32(what + " count")
	if err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("%w: %s count %d", ErrFormat, what, count)
	}
	for i := int32(0); i < count; i++ {
		if _, err := d.char(what); err != nil {
			return err
		}
	}
	return nil
}

func readSpriteFont(d *decoder) (*Font, error) {
	if _, err := d.varint("font texture reader"); err != nil {
		return nil, err
	}
	tex, err := readTexture2D(d)
	if err != nil {
		return nil, err
	}
	return &Font{Kind: TypeSpriteFont, Pages: []*Texture2D{tex}}, nil
}

// dynamic sprite font layout
//
// f32 | spacing
// i32 | line spacing
// ... | default character, UTF-8
// i32 | page count
// then per page
// var | texture reader
// ... | texture
// ... | List<Rectangle> glyphs
// ... | List<Rectangle> cropping
// ... | List<char> characters
// ... | List<Vector3> kerning
func readDynamicSpriteFont(d *decoder) (*Font, error) {
	var metrics struct {
		Spacing     float32
		LineSpacing int32
	}
	if err := d.read("font metrics", &metrics); err != nil {
		return nil, err
	}
	if _, err := d.char("font default character"); err != nil {
		return nil, err
	}
	pages, err := d.int32("font page count")
	if err != nil {
		return nil, err
	}
	if pages < 0 {
		return nil, fmt.Errorf("%w: font page count %d", ErrFormat, pages)
	}

	f := &Font{Kind: TypeDynamicSpriteFont}
	for i := int32(0); i < pages; i++ {
		if _, err := d.varint("font texture reader"); err != nil {
			return nil, err
		}
		tex, err := readTexture2D(d)
		if err != nil {
			return nil, fmt.Errorf("font page %d: %w", i, err)
		}
		if err := d.skipList("glyph bounds", rectangleSize); err != nil {
			return nil, err
		}
		if err := d.skipList("glyph cropping", rectangleSize); err != nil {
			return nil, err
		}
		if err := d.skipCharList("glyph characters"); err != nil {
			return nil, err
		}
		if err := d.skipList("glyph kerning", vector3Size); err != nil {
			return nil, err
		}
		f.Pages = append(f.Pages, tex)
	}
	return f, nil
}
