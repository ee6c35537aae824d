package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

// VulkanPipelineBarrier accumulates the storage barriers of a bound heap set and
// flushes them as one vkCmdPipelineBarrier.
type VulkanPipelineBarrier struct {
	stages         vk.PipelineStageFlags
	bufferBarriers []vk.BufferMemoryBarrier
	imageBarriers  []vk.ImageMemoryBarrier
}

const storageAccess = vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit)

func (b *VulkanPipelineBarrier) InsertBufferBarrier(slot uint32, buffer metadata.Buffer, stages metadata.StageFlags) {
	vb, ok := buffer.(*VulkanBuffer)
	if !ok {
		core.LogWarn("barrier slot %d: buffer %q does not belong to the vulkan backend", slot, buffer.Name())
		return
	}
	b.stages |= VulkanPipelineStageFlags(stages)
	b.bufferBarriers = append(b.bufferBarriers, vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessShaderWriteBit),
		DstAccessMask:       storageAccess,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              vb.Handle,
		Offset:              0,
		Size:                vk.DeviceSize(vk.WholeSize),
	})
}

func (b *VulkanPipelineBarrier) InsertImageBarrier(slot uint32, texture metadata.Texture, stages metadata.StageFlags) {
	vi, ok := texture.(*VulkanImage)
	if !ok {
		core.LogWarn("barrier slot %d: texture %q does not belong to the vulkan backend", slot, texture.Name())
		return
	}
	desc := vi.descriptor
	b.stages |= VulkanPipelineStageFlags(stages)
	b.imageBarriers = append(b.imageBarriers, vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessShaderWriteBit),
		DstAccessMask:       storageAccess,
		OldLayout:           vk.ImageLayoutGeneral,
		NewLayout:           vk.ImageLayoutGeneral,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vi.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: VulkanImageAspect(desc.Format),
			LevelCount: desc.NumMipLevels(),
			LayerCount: desc.NumArrayLayers(),
		},
	})
}

func (b *VulkanPipelineBarrier) Len() int {
	return len(b.bufferBarriers) + len(b.imageBarriers)
}

// Flush records the accumulated barriers into cb and resets the accumulator. It
// records nothing when empty.
func (b *VulkanPipelineBarrier) Flush(cb *VulkanCommandBuffer) {
	if b.Len() == 0 {
		return
	}
	vk.CmdPipelineBarrier(
		cb.Handle,
		b.stages,
		b.stages,
		0,
		0, nil,
		uint32(len(b.bufferBarriers)), b.bufferBarriers,
		uint32(len(b.imageBarriers)), b.imageBarriers,
	)
	b.Reset()
}

func (b *VulkanPipelineBarrier) Reset() {
	b.stages = 0
	b.bufferBarriers = b.bufferBarriers[:0]
	b.imageBarriers = b.imageBarriers[:0]
}
