package metadata

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = 0x1
)

type TextureRepeat int

const (
	TextureRepeatRepeat         TextureRepeat = 0x1
	TextureRepeatMirroredRepeat TextureRepeat = 0x2
	TextureRepeatClampToEdge    TextureRepeat = 0x3
	TextureRepeatClampToBorder  TextureRepeat = 0x4
)

type SamplerDescriptor struct {
	MinFilter     TextureFilter
	MagFilter     TextureFilter
	MipFilter     TextureFilter
	RepeatU       TextureRepeat
	RepeatV       TextureRepeat
	RepeatW       TextureRepeat
	MaxAnisotropy float32
}

type Sampler interface {
	Resource
	Descriptor() SamplerDescriptor
}
