package resource

// Type is the kind of primary asset stored in an XNB file, chosen by the
// first type reader.
type Type uint8

const (
	TypeUnsupported Type = iota
	TypeTexture2D
	TypeSoundEffect
	TypeSpriteFont
	TypeDynamicSpriteFont
)

func (t Type) String() string {
	switch t {
	case TypeUnsupported:
		return "Type(Unsupported)"
	case TypeTexture2D:
		return "Type(Texture2D)"
	case TypeSoundEffect:
		return "Type(SoundEffect)"
	case TypeSpriteFont:
		return "Type(SpriteFont)"
	case TypeDynamicSpriteFont:
		return "Type(DynamicSpriteFont)"
	}
	return "Type(UNKNOWN)"
}

// SurfaceFormat is the pixel layout of a Texture2D.
type SurfaceFormat int32

const (
	SurfaceColor SurfaceFormat = 0
	SurfaceDxt1  SurfaceFormat = 4
	SurfaceDxt3  SurfaceFormat = 5
	SurfaceDxt5  SurfaceFormat = 6
)

func (f SurfaceFormat) String() string {
	switch f {
	case SurfaceColor:
		return "Color"
	case SurfaceDxt1:
		return "Dxt1"
	case SurfaceDxt3:
		return "Dxt3"
	case SurfaceDxt5:
		return "Dxt5"
	}
	return "SurfaceFormat(UNKNOWN)"
}
