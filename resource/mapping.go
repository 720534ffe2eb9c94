package resource

import "strings"

const (
	readerTexture2D         = "Microsoft.Xna.Framework.Content.Texture2DReader"
	readerSoundEffect       = "Microsoft.Xna.Framework.Content.SoundEffectReader"
	readerSpriteFont        = "Microsoft.Xna.Framework.Content.SpriteFontReader"
	readerDynamicSpriteFont = "ReLogic.Graphics.DynamicSpriteFontReader"

	// written names
	qualifiedTexture2D = readerTexture2D + ", Microsoft.Xna.Framework.Graphics, Version=4.0.0.0, Culture=neutral, PublicKeyToken=842cf8be1de50553"
	qualifiedSound     = readerSoundEffect
)

var readerTypes = map[string]Type{
	readerTexture2D:         TypeTexture2D,
	readerSoundEffect:       TypeSoundEffect,
	readerSpriteFont:        TypeSpriteFont,
	readerDynamicSpriteFont: TypeDynamicSpriteFont,
}

// TrimAssembly drops the assembly qualification that follows the first comma
// of a type reader name.
func TrimAssembly(name string) string {
	if i := strings.IndexByte(name, ','); i >= 0 {
		return name[:i]
	}
	return name
}

// TypeOf maps a type reader name, qualified or not, to the asset it reads.
func TypeOf(readerName string) Type {
	return readerTypes[TrimAssembly(readerName)]
}
