package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

/**
 * @brief A device local image. Subresource views onto it are owned by the resource
 * heaps that bind it.
 */
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	// View covers the whole image and is bound when a heap write asks for no view.
	View   vk.ImageView
	Width  uint32
	Height uint32

	name       string
	descriptor metadata.TextureDescriptor
}

func (vi *VulkanImage) ResourceKind() metadata.ResourceKind { return metadata.ResourceKindTexture }
func (vi *VulkanImage) Name() string                        { return vi.name }

func (vi *VulkanImage) Descriptor() metadata.TextureDescriptor { return vi.descriptor }

func vulkanImageUsage(flags metadata.BindFlags) vk.ImageUsageFlags {
	usage := vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit
	if flags&metadata.BindFlagStorage != 0 {
		usage |= vk.ImageUsageStorageBit
	}
	return vk.ImageUsageFlags(usage)
}

func ImageCreate(context *VulkanContext, name string, desc metadata.TextureDescriptor) (*VulkanImage, error) {
	if desc.Format == metadata.FormatUndefined || desc.Width == 0 {
		return nil, fmt.Errorf("texture %q needs a format and a width: %w", name, core.ErrConfiguration)
	}

	height, depth := max(desc.Height, 1), max(desc.Depth, 1)
	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: VulkanImageType(desc.Type),
		Format:    VulkanFormat(desc.Format),
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: height,
			Depth:  depth,
		},
		MipLevels:     desc.NumMipLevels(),
		ArrayLayers:   desc.NumArrayLayers(),
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vulkanImageUsage(desc.BindFlags),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	// heap views may reinterpret the format
	flags := vk.ImageCreateMutableFormatBit
	if desc.Type == metadata.TextureTypeCube || desc.Type == metadata.TextureTypeCubeArray {
		flags |= vk.ImageCreateCubeCompatibleBit
	}
	imageCreateInfo.Flags = vk.ImageCreateFlags(flags)

	image := &VulkanImage{
		Width:      desc.Width,
		Height:     height,
		name:       name,
		descriptor: desc,
	}

	err := context.LockPool.SafeCall(ImageManagement, func() error {
		var handle vk.Image
		if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &handle); res != vk.Success {
			return vulkanError("CreateImage", res)
		}
		image.Handle = handle

		var requirements vk.MemoryRequirements
		vk.GetImageMemoryRequirements(context.Device.LogicalDevice, handle, &requirements)
		memory, err := context.allocateMemory(requirements, vk.MemoryPropertyDeviceLocalBit)
		if err != nil {
			return err
		}
		image.Memory = memory

		if res := vk.BindImageMemory(context.Device.LogicalDevice, handle, memory, 0); res != vk.Success {
			return vulkanError("BindImageMemory", res)
		}

		view, err := imageViewCreate(context, image, metadata.DefaultTextureView(desc))
		if err != nil {
			return err
		}
		image.View = view
		return nil
	})
	if err != nil {
		core.LogError("failed to create texture %q: %s", name, err)
		image.Destroy(context)
		return nil, err
	}
	return image, nil
}

func (vi *VulkanImage) Destroy(context *VulkanContext) {
	if vi.View != vk.NullImageView {
		vk.DestroyImageView(context.Device.LogicalDevice, vi.View, context.Allocator)
		vi.View = vk.NullImageView
	}
	if vi.Handle != vk.NullImage {
		vk.DestroyImage(context.Device.LogicalDevice, vi.Handle, context.Allocator)
		vi.Handle = vk.NullImage
	}
	if vi.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vi.Memory, context.Allocator)
		vi.Memory = vk.NullDeviceMemory
	}
}

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory

	name       string
	descriptor metadata.BufferDescriptor
}

func (vb *VulkanBuffer) ResourceKind() metadata.ResourceKind   { return metadata.ResourceKindBuffer }
func (vb *VulkanBuffer) Name() string                          { return vb.name }
func (vb *VulkanBuffer) Descriptor() metadata.BufferDescriptor { return vb.descriptor }

func vulkanBufferUsage(flags metadata.BindFlags) vk.BufferUsageFlags {
	usage := vk.BufferUsageTransferDstBit | vk.BufferUsageTransferSrcBit
	if flags&metadata.BindFlagConstantBuffer != 0 {
		usage |= vk.BufferUsageUniformBufferBit
	}
	if flags&metadata.BindFlagTyped != 0 {
		usage |= vk.BufferUsageUniformTexelBufferBit
		if flags&metadata.BindFlagStorage != 0 {
			usage |= vk.BufferUsageStorageTexelBufferBit
		}
	}
	if flags&(metadata.BindFlagStorage|metadata.BindFlagSampled|metadata.BindFlagCounter) != 0 {
		usage |= vk.BufferUsageStorageBufferBit
	}
	return vk.BufferUsageFlags(usage)
}

func BufferCreate(context *VulkanContext, name string, desc metadata.BufferDescriptor) (*VulkanBuffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("buffer %q needs a size: %w", name, core.ErrConfiguration)
	}
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       vulkanBufferUsage(desc.BindFlags),
		SharingMode: vk.SharingModeExclusive,
	}

	buffer := &VulkanBuffer{name: name, descriptor: desc}
	err := context.LockPool.SafeCall(BufferManagement, func() error {
		var handle vk.Buffer
		if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &handle); res != vk.Success {
			return vulkanError("CreateBuffer", res)
		}
		buffer.Handle = handle

		var requirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, handle, &requirements)
		memory, err := context.allocateMemory(requirements, vk.MemoryPropertyDeviceLocalBit)
		if err != nil {
			return err
		}
		buffer.Memory = memory

		if res := vk.BindBufferMemory(context.Device.LogicalDevice, handle, memory, 0); res != vk.Success {
			return vulkanError("BindBufferMemory", res)
		}
		return nil
	})
	if err != nil {
		core.LogError("failed to create buffer %q: %s", name, err)
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = vk.NullBuffer
	}
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
}

type VulkanSampler struct {
	Handle vk.Sampler

	name       string
	descriptor metadata.SamplerDescriptor
}

func (vs *VulkanSampler) ResourceKind() metadata.ResourceKind    { return metadata.ResourceKindSampler }
func (vs *VulkanSampler) Name() string                           { return vs.name }
func (vs *VulkanSampler) Descriptor() metadata.SamplerDescriptor { return vs.descriptor }

func SamplerCreate(context *VulkanContext, name string, desc metadata.SamplerDescriptor) (*VulkanSampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MinFilter:               VulkanFilter(desc.MinFilter),
		MagFilter:               VulkanFilter(desc.MagFilter),
		AddressModeU:            VulkanSamplerAddressMode(desc.RepeatU),
		AddressModeV:            VulkanSamplerAddressMode(desc.RepeatV),
		AddressModeW:            VulkanSamplerAddressMode(desc.RepeatW),
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeNearest,
		MaxLod:                  vk.LodClampNone,
	}
	if desc.MipFilter == metadata.TextureFilterModeLinear {
		samplerInfo.MipmapMode = vk.SamplerMipmapModeLinear
	}
	if desc.MaxAnisotropy > 1 && context.Device.Features.SamplerAnisotropy == vk.True {
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = float32(desc.MaxAnisotropy)
	}

	sampler := &VulkanSampler{name: name, descriptor: desc}
	err := context.LockPool.SafeCall(SamplerManagement, func() error {
		var handle vk.Sampler
		if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &handle); res != vk.Success {
			return vulkanError("CreateSampler", res)
		}
		sampler.Handle = handle
		return nil
	})
	if err != nil {
		core.LogError("failed to create sampler %q: %s", name, err)
		return nil, err
	}
	return sampler, nil
}

func (vs *VulkanSampler) Destroy(context *VulkanContext) {
	if vs.Handle != nullSampler {
		vk.DestroySampler(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = nullSampler
	}
}
