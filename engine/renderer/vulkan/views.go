package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

type VulkanImageView struct {
	Handle  vk.ImageView
	texture *VulkanImage
}

type VulkanBufferView struct {
	Handle vk.BufferView
	buffer *VulkanBuffer
}

// VulkanImageViewCreateInfo fills the native create info for a view of image.
func VulkanImageViewCreateInfo(image vk.Image, desc metadata.TextureViewDescriptor) vk.ImageViewCreateInfo {
	return vk.ImageViewCreateInfo{
		SType:      vk.StructureTypeImageViewCreateInfo,
		Image:      image,
		ViewType:   VulkanImageViewType(desc.Type),
		Format:     VulkanFormat(desc.Format),
		Components: VulkanComponentMapping(desc.Swizzle),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     VulkanImageAspect(desc.Format),
			BaseMipLevel:   desc.Subresource.BaseMipLevel,
			LevelCount:     desc.Subresource.NumMipLevels,
			BaseArrayLayer: desc.Subresource.BaseArrayLayer,
			LayerCount:     desc.Subresource.NumArrayLayers,
		},
	}
}

func imageViewCreate(context *VulkanContext, image *VulkanImage, desc metadata.TextureViewDescriptor) (vk.ImageView, error) {
	texDesc := image.descriptor
	if !desc.Format.CompatibleWith(texDesc.Format) {
		return vk.NullImageView, fmt.Errorf("view format %s cannot reinterpret %s of %q: %w",
			desc.Format, texDesc.Format, image.name, core.ErrConfiguration)
	}
	if !desc.Subresource.Within(texDesc.NumMipLevels(), texDesc.NumArrayLayers()) {
		return vk.NullImageView, fmt.Errorf("view subresource %+v outside %q: %w", desc.Subresource, image.name, core.ErrConfiguration)
	}

	createInfo := VulkanImageViewCreateInfo(image.Handle, desc)
	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &createInfo, context.Allocator, &view); res != vk.Success {
		return vk.NullImageView, vulkanError("CreateImageView", res)
	}
	return view, nil
}

func bufferViewCreate(context *VulkanContext, buffer *VulkanBuffer, desc metadata.BufferViewDescriptor) (vk.BufferView, error) {
	offset, size, ok := desc.Resolve(buffer.descriptor.Size)
	if !ok || size == 0 {
		return nullBufferView, fmt.Errorf("buffer view [%d, +%d) outside %q: %w", desc.Offset, desc.Size, buffer.name, core.ErrConfiguration)
	}
	if desc.Format == metadata.FormatUndefined {
		return nullBufferView, fmt.Errorf("buffer view of %q needs a format: %w", buffer.name, core.ErrConfiguration)
	}

	createInfo := vk.BufferViewCreateInfo{
		SType:  vk.StructureTypeBufferViewCreateInfo,
		Buffer: buffer.Handle,
		Format: VulkanFormat(desc.Format),
		Offset: vk.DeviceSize(offset),
		Range:  vk.DeviceSize(size),
	}
	var view vk.BufferView
	if res := vk.CreateBufferView(context.Device.LogicalDevice, &createInfo, context.Allocator, &view); res != vk.Success {
		return nullBufferView, vulkanError("CreateBufferView", res)
	}
	return view, nil
}
