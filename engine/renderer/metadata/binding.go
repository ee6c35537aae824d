package metadata

import "fmt"

/**
 * @brief The kind of hardware resource a binding slot expects, or a resource reports.
 */
type ResourceKind uint8

const (
	ResourceKindUndefined ResourceKind = iota
	/** @brief Constant, structured, storage or texel buffer. */
	ResourceKindBuffer
	/** @brief Sampled or storage texture. */
	ResourceKindTexture
	/** @brief Sampler state only. */
	ResourceKindSampler
	/** @brief Texture and sampler in a single slot. Only valid for bindings. */
	ResourceKindCombined
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindBuffer:
		return "buffer"
	case ResourceKindTexture:
		return "texture"
	case ResourceKindSampler:
		return "sampler"
	case ResourceKindCombined:
		return "combined"
	default:
		return "undefined"
	}
}

/** @brief Describes how a bound resource is accessed by the shader. */
type BindFlags uint32

const (
	/** @brief Read-only shader resource. */
	BindFlagSampled BindFlags = 1 << iota
	/** @brief Read-write shader resource (unordered access). */
	BindFlagStorage
	/** @brief Buffer bound as a constant/uniform block. */
	BindFlagConstantBuffer
	/** @brief Buffer read through a format, which needs a native buffer view. */
	BindFlagTyped
	/** @brief Buffer carries a hidden append/consume counter. */
	BindFlagCounter
)

type StageFlags uint32

const (
	StageVertex StageFlags = 1 << iota
	StageTessControl
	StageTessEvaluation
	StageGeometry
	StageFragment
	StageCompute

	StageAllGraphics = StageVertex | StageTessControl | StageTessEvaluation | StageGeometry | StageFragment
	StageAll         = StageAllGraphics | StageCompute
)

/**
 * @brief Backend-agnostic descriptor class of a binding. Backends map each value to
 * their native descriptor (range) type.
 */
type DescriptorType uint8

const (
	DescriptorTypeUndefined DescriptorType = iota
	DescriptorTypeSampler
	DescriptorTypeCombinedImageSampler
	DescriptorTypeSampledImage
	DescriptorTypeStorageImage
	DescriptorTypeUniformTexelBuffer
	DescriptorTypeStorageTexelBuffer
	DescriptorTypeUniformBuffer
	DescriptorTypeStorageBuffer

	DescriptorTypeCount
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorTypeSampler:
		return "Sampler"
	case DescriptorTypeCombinedImageSampler:
		return "CombinedImageSampler"
	case DescriptorTypeSampledImage:
		return "SampledImage"
	case DescriptorTypeStorageImage:
		return "StorageImage"
	case DescriptorTypeUniformTexelBuffer:
		return "UniformTexelBuffer"
	case DescriptorTypeStorageTexelBuffer:
		return "StorageTexelBuffer"
	case DescriptorTypeUniformBuffer:
		return "UniformBuffer"
	case DescriptorTypeStorageBuffer:
		return "StorageBuffer"
	default:
		return fmt.Sprintf("DescriptorType(%d)", uint8(t))
	}
}

// IsBuffer reports whether descriptors of this type reference buffer memory.
func (t DescriptorType) IsBuffer() bool {
	switch t {
	case DescriptorTypeUniformTexelBuffer, DescriptorTypeStorageTexelBuffer,
		DescriptorTypeUniformBuffer, DescriptorTypeStorageBuffer:
		return true
	}
	return false
}

// IsTexelBuffer reports whether the type is read through a native buffer view.
func (t DescriptorType) IsTexelBuffer() bool {
	return t == DescriptorTypeUniformTexelBuffer || t == DescriptorTypeStorageTexelBuffer
}

/**
 * @brief One declared resource slot of a pipeline layout.
 */
type Binding struct {
	/** @brief Optional name, used in diagnostics. */
	Name string
	/** @brief The resource kind the slot accepts. */
	Kind ResourceKind
	/** @brief Access flags: sampled, storage, constant buffer, typed, counter. */
	BindFlags BindFlags
	/** @brief Shader stages that see the binding. */
	Stages StageFlags
	/** @brief The native binding number. */
	Slot uint32
	/** @brief Number of array elements. 0 and 1 both mean a single descriptor. */
	ArraySize uint32
	/** @brief Whether writes through this binding must be synchronized with a barrier. */
	NeedsBarrier bool
	/** @brief Optional format override for a structured/append counter. FormatUndefined means none. */
	CounterFormat Format
	/** @brief Sampler paired with the texture of a combined binding. May be nil. */
	StaticSampler Sampler
}

// DescriptorCount is the number of array elements, at least one.
func (b Binding) DescriptorCount() uint32 {
	if b.ArraySize == 0 {
		return 1
	}
	return b.ArraySize
}

func (b Binding) DescriptorType() DescriptorType {
	switch b.Kind {
	case ResourceKindSampler:
		return DescriptorTypeSampler
	case ResourceKindCombined:
		return DescriptorTypeCombinedImageSampler
	case ResourceKindTexture:
		if b.BindFlags&BindFlagStorage != 0 {
			return DescriptorTypeStorageImage
		}
		return DescriptorTypeSampledImage
	case ResourceKindBuffer:
		switch {
		case b.BindFlags&BindFlagConstantBuffer != 0:
			return DescriptorTypeUniformBuffer
		case b.BindFlags&BindFlagTyped != 0 && b.BindFlags&BindFlagStorage != 0:
			return DescriptorTypeStorageTexelBuffer
		case b.BindFlags&BindFlagTyped != 0:
			return DescriptorTypeUniformTexelBuffer
		default:
			return DescriptorTypeStorageBuffer
		}
	}
	return DescriptorTypeUndefined
}

// CanOwnImageView reports whether a texture subresource view may be created for the slot.
func (b Binding) CanOwnImageView() bool {
	return b.Kind == ResourceKindTexture || b.Kind == ResourceKindCombined
}

// CanOwnBufferView reports whether the slot is bound through a native buffer view.
func (b Binding) CanOwnBufferView() bool {
	return b.DescriptorType().IsTexelBuffer()
}

// Accepts reports whether a resource of the given kind can be written into the slot.
func (b Binding) Accepts(kind ResourceKind) bool {
	switch b.Kind {
	case ResourceKindCombined:
		return kind == ResourceKindTexture
	case ResourceKindUndefined:
		return false
	default:
		return b.Kind == kind
	}
}

func (b Binding) String() string {
	name := b.Name
	if name == "" {
		name = fmt.Sprintf("slot%d", b.Slot)
	}
	return fmt.Sprintf("%s(%s, %s)", name, b.Kind, b.DescriptorType())
}
