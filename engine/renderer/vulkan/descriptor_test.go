package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/heap"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

func heapDeviceWithLimits(defaultSampler *VulkanSampler) *VulkanHeapDevice {
	device := &VulkanDevice{}
	device.Properties.Limits.MinUniformBufferOffsetAlignment = 256
	device.Properties.Limits.MinStorageBufferOffsetAlignment = 64
	return NewVulkanHeapDevice(&VulkanContext{Device: device}, defaultSampler)
}

func TestVulkanValidateWrite(t *testing.T) {
	var set vk.DescriptorSet
	buffer := &VulkanBuffer{name: "frame", descriptor: metadata.BufferDescriptor{Size: 4096}}
	image := &VulkanImage{name: "albedo"}
	sampler := &VulkanSampler{name: "linear"}

	tests := []struct {
		name           string
		defaultSampler *VulkanSampler
		write          heap.DescriptorWrite
		wantErr        error
	}{
		{
			name:  "aligned uniform buffer",
			write: heap.DescriptorWrite{Set: set, Type: metadata.DescriptorTypeUniformBuffer, Resource: buffer, Offset: 512, Range: 256},
		},
		{
			name:    "misaligned uniform buffer",
			write:   heap.DescriptorWrite{Set: set, Type: metadata.DescriptorTypeUniformBuffer, Resource: buffer, Offset: 64, Range: 256},
			wantErr: core.ErrConfiguration,
		},
		{
			name:  "storage buffer uses its own alignment",
			write: heap.DescriptorWrite{Set: set, Type: metadata.DescriptorTypeStorageBuffer, Resource: buffer, Offset: 64, Range: 256},
		},
		{
			name:    "combined slot without any sampler",
			write:   heap.DescriptorWrite{Set: set, Type: metadata.DescriptorTypeCombinedImageSampler, Resource: image},
			wantErr: core.ErrConfiguration,
		},
		{
			name:           "combined slot falls back to the default sampler",
			defaultSampler: sampler,
			write:          heap.DescriptorWrite{Set: set, Type: metadata.DescriptorTypeCombinedImageSampler, Resource: image},
		},
		{
			name:  "combined slot with a static sampler",
			write: heap.DescriptorWrite{Set: set, Type: metadata.DescriptorTypeCombinedImageSampler, Resource: image, Sampler: sampler},
		},
		{
			name:    "texel buffer without a view",
			write:   heap.DescriptorWrite{Set: set, Type: metadata.DescriptorTypeUniformTexelBuffer, Resource: buffer},
			wantErr: core.ErrConfiguration,
		},
		{
			name:    "texture of another backend",
			write:   heap.DescriptorWrite{Set: set, Type: metadata.DescriptorTypeSampledImage, Resource: buffer},
			wantErr: core.ErrMismatch,
		},
		{
			name:    "foreign descriptor set",
			write:   heap.DescriptorWrite{Set: "set", Type: metadata.DescriptorTypeUniformBuffer, Resource: buffer},
			wantErr: core.ErrMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := heapDeviceWithLimits(tt.defaultSampler)
			err := d.ValidateWrite(tt.write)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateWrite: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateWrite error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
