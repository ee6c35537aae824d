package metadata

/**
 * @brief Represents various types of textures.
 */
type TextureType int

const (
	TextureType1d TextureType = iota
	/** @brief A standard two-dimensional texture. */
	TextureType2d
	TextureType3d
	/** @brief A cube texture, used for cubemaps. */
	TextureTypeCube
	TextureType1dArray
	TextureType2dArray
	TextureTypeCubeArray
)

func (t TextureType) String() string {
	switch t {
	case TextureType1d:
		return "1D"
	case TextureType2d:
		return "2D"
	case TextureType3d:
		return "3D"
	case TextureTypeCube:
		return "Cube"
	case TextureType1dArray:
		return "1DArray"
	case TextureType2dArray:
		return "2DArray"
	case TextureTypeCubeArray:
		return "CubeArray"
	}
	return "Unknown"
}

/**
 * @brief Creation parameters of a texture.
 */
type TextureDescriptor struct {
	/** @brief The texture type. */
	Type TextureType
	/** @brief The texel format the texture was created with. */
	Format Format
	Width  uint32
	Height uint32
	Depth  uint32
	/** @brief Number of MIP levels. Zero is treated as one. */
	MipLevels uint32
	/** @brief Number of array layers. Cube textures count six layers per cube. */
	ArrayLayers uint32
	BindFlags   BindFlags
}

// NumMipLevels returns MipLevels with zero mapped to one.
func (d TextureDescriptor) NumMipLevels() uint32 {
	if d.MipLevels == 0 {
		return 1
	}
	return d.MipLevels
}

// NumArrayLayers returns ArrayLayers with zero mapped to one.
func (d TextureDescriptor) NumArrayLayers() uint32 {
	if d.ArrayLayers == 0 {
		return 1
	}
	return d.ArrayLayers
}

// FullSubresource covers every MIP level and array layer of the texture.
func (d TextureDescriptor) FullSubresource() TextureSubresource {
	return TextureSubresource{
		NumMipLevels:   d.NumMipLevels(),
		NumArrayLayers: d.NumArrayLayers(),
	}
}

/**
 * @brief Represents a texture created by a backend.
 */
type Texture interface {
	Resource
	Descriptor() TextureDescriptor
}

/** @brief A range of MIP levels and array layers. */
type TextureSubresource struct {
	BaseMipLevel   uint32
	NumMipLevels   uint32
	BaseArrayLayer uint32
	NumArrayLayers uint32
}

// Within reports whether the range lies inside a texture with the given counts.
func (s TextureSubresource) Within(mipLevels, arrayLayers uint32) bool {
	return uint64(s.BaseMipLevel)+uint64(s.NumMipLevels) <= uint64(mipLevels) &&
		uint64(s.BaseArrayLayer)+uint64(s.NumArrayLayers) <= uint64(arrayLayers)
}

type TextureSwizzle uint8

const (
	TextureSwizzleIdentity TextureSwizzle = iota
	TextureSwizzleZero
	TextureSwizzleOne
	TextureSwizzleRed
	TextureSwizzleGreen
	TextureSwizzleBlue
	TextureSwizzleAlpha
)

/** @brief Per-channel remapping of a texture view. The zero value is the identity. */
type TextureSwizzleRGBA struct {
	R TextureSwizzle
	G TextureSwizzle
	B TextureSwizzle
	A TextureSwizzle
}

/**
 * @brief Describes a reinterpreted subrange of a texture. The view is considered
 * absent, meaning the texture's default view is used, when Format is FormatUndefined or
 * the subresource range is empty.
 */
type TextureViewDescriptor struct {
	Type        TextureType
	Format      Format
	Subresource TextureSubresource
	Swizzle     TextureSwizzleRGBA
}

// IsEnabled reports whether the descriptor requests a dedicated view.
func (d TextureViewDescriptor) IsEnabled() bool {
	return d.Format != FormatUndefined &&
		d.Subresource.NumMipLevels != 0 &&
		d.Subresource.NumArrayLayers != 0
}

// DefaultTextureView describes the whole texture in its own format and type.
func DefaultTextureView(desc TextureDescriptor) TextureViewDescriptor {
	return TextureViewDescriptor{
		Type:        desc.Type,
		Format:      desc.Format,
		Subresource: desc.FullSubresource(),
	}
}
