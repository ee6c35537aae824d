package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

var vulkanFormats = map[metadata.Format]vk.Format{
	metadata.FormatUndefined:      vk.FormatUndefined,
	metadata.FormatR8UNorm:        vk.FormatR8Unorm,
	metadata.FormatRG8UNorm:       vk.FormatR8g8Unorm,
	metadata.FormatRGBA8UNorm:     vk.FormatR8g8b8a8Unorm,
	metadata.FormatRGBA8UNormSRGB: vk.FormatR8g8b8a8Srgb,
	metadata.FormatBGRA8UNorm:     vk.FormatB8g8r8a8Unorm,
	metadata.FormatBGRA8UNormSRGB: vk.FormatB8g8r8a8Srgb,
	metadata.FormatRGBA8UInt:      vk.FormatR8g8b8a8Uint,
	metadata.FormatR16Float:       vk.FormatR16Sfloat,
	metadata.FormatRG16Float:      vk.FormatR16g16Sfloat,
	metadata.FormatRGBA16Float:    vk.FormatR16g16b16a16Sfloat,
	metadata.FormatR32UInt:        vk.FormatR32Uint,
	metadata.FormatR32SInt:        vk.FormatR32Sint,
	metadata.FormatR32Float:       vk.FormatR32Sfloat,
	metadata.FormatRG32Float:      vk.FormatR32g32Sfloat,
	metadata.FormatRGBA32Float:    vk.FormatR32g32b32a32Sfloat,
	metadata.FormatD32Float:       vk.FormatD32Sfloat,
	metadata.FormatD24UNormS8UInt: vk.FormatD24UnormS8Uint,
}

func VulkanFormat(format metadata.Format) vk.Format {
	if f, ok := vulkanFormats[format]; ok {
		return f
	}
	return vk.FormatUndefined
}

func VulkanDescriptorType(t metadata.DescriptorType) vk.DescriptorType {
	switch t {
	case metadata.DescriptorTypeSampler:
		return vk.DescriptorTypeSampler
	case metadata.DescriptorTypeCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	case metadata.DescriptorTypeSampledImage:
		return vk.DescriptorTypeSampledImage
	case metadata.DescriptorTypeStorageImage:
		return vk.DescriptorTypeStorageImage
	case metadata.DescriptorTypeUniformTexelBuffer:
		return vk.DescriptorTypeUniformTexelBuffer
	case metadata.DescriptorTypeStorageTexelBuffer:
		return vk.DescriptorTypeStorageTexelBuffer
	case metadata.DescriptorTypeUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	default:
		return vk.DescriptorTypeStorageBuffer
	}
}

func VulkanImageViewType(t metadata.TextureType) vk.ImageViewType {
	switch t {
	case metadata.TextureType1d:
		return vk.ImageViewType1d
	case metadata.TextureType3d:
		return vk.ImageViewType3d
	case metadata.TextureTypeCube:
		return vk.ImageViewTypeCube
	case metadata.TextureType1dArray:
		return vk.ImageViewType1dArray
	case metadata.TextureType2dArray:
		return vk.ImageViewType2dArray
	case metadata.TextureTypeCubeArray:
		return vk.ImageViewTypeCubeArray
	default:
		return vk.ImageViewType2d
	}
}

func VulkanImageType(t metadata.TextureType) vk.ImageType {
	switch t {
	case metadata.TextureType1d, metadata.TextureType1dArray:
		return vk.ImageType1d
	case metadata.TextureType3d:
		return vk.ImageType3d
	default:
		return vk.ImageType2d
	}
}

func vulkanComponentSwizzle(s metadata.TextureSwizzle) vk.ComponentSwizzle {
	switch s {
	case metadata.TextureSwizzleZero:
		return vk.ComponentSwizzleZero
	case metadata.TextureSwizzleOne:
		return vk.ComponentSwizzleOne
	case metadata.TextureSwizzleRed:
		return vk.ComponentSwizzleR
	case metadata.TextureSwizzleGreen:
		return vk.ComponentSwizzleG
	case metadata.TextureSwizzleBlue:
		return vk.ComponentSwizzleB
	case metadata.TextureSwizzleAlpha:
		return vk.ComponentSwizzleA
	default:
		return vk.ComponentSwizzleIdentity
	}
}

func VulkanComponentMapping(s metadata.TextureSwizzleRGBA) vk.ComponentMapping {
	return vk.ComponentMapping{
		R: vulkanComponentSwizzle(s.R),
		G: vulkanComponentSwizzle(s.G),
		B: vulkanComponentSwizzle(s.B),
		A: vulkanComponentSwizzle(s.A),
	}
}

// VulkanImageAspect selects the aspects a view of the format can sample.
func VulkanImageAspect(format metadata.Format) vk.ImageAspectFlags {
	if format.IsDepthStencil() {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func VulkanShaderStageFlags(stages metadata.StageFlags) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlagBits
	if stages&metadata.StageVertex != 0 {
		flags |= vk.ShaderStageVertexBit
	}
	if stages&metadata.StageTessControl != 0 {
		flags |= vk.ShaderStageTessellationControlBit
	}
	if stages&metadata.StageTessEvaluation != 0 {
		flags |= vk.ShaderStageTessellationEvaluationBit
	}
	if stages&metadata.StageGeometry != 0 {
		flags |= vk.ShaderStageGeometryBit
	}
	if stages&metadata.StageFragment != 0 {
		flags |= vk.ShaderStageFragmentBit
	}
	if stages&metadata.StageCompute != 0 {
		flags |= vk.ShaderStageComputeBit
	}
	return vk.ShaderStageFlags(flags)
}

// VulkanPipelineStageFlags maps shader stages to the pipeline stages a barrier waits on.
// An empty mask waits on everything.
func VulkanPipelineStageFlags(stages metadata.StageFlags) vk.PipelineStageFlags {
	var flags vk.PipelineStageFlagBits
	if stages&metadata.StageVertex != 0 {
		flags |= vk.PipelineStageVertexShaderBit
	}
	if stages&metadata.StageTessControl != 0 {
		flags |= vk.PipelineStageTessellationControlShaderBit
	}
	if stages&metadata.StageTessEvaluation != 0 {
		flags |= vk.PipelineStageTessellationEvaluationShaderBit
	}
	if stages&metadata.StageGeometry != 0 {
		flags |= vk.PipelineStageGeometryShaderBit
	}
	if stages&metadata.StageFragment != 0 {
		flags |= vk.PipelineStageFragmentShaderBit
	}
	if stages&metadata.StageCompute != 0 {
		flags |= vk.PipelineStageComputeShaderBit
	}
	if flags == 0 {
		flags = vk.PipelineStageAllCommandsBit
	}
	return vk.PipelineStageFlags(flags)
}

func VulkanFilter(f metadata.TextureFilter) vk.Filter {
	if f == metadata.TextureFilterModeLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

func VulkanSamplerAddressMode(r metadata.TextureRepeat) vk.SamplerAddressMode {
	switch r {
	case metadata.TextureRepeatMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	case metadata.TextureRepeatClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case metadata.TextureRepeatClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	default:
		return vk.SamplerAddressModeRepeat
	}
}
