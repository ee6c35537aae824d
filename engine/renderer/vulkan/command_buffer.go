package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/heap"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState

	barrier VulkanPipelineBarrier
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	vCommandBuffer := &VulkanCommandBuffer{
		State: COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelPrimary
	if !isPrimary {
		level = vk.CommandBufferLevelSecondary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := context.LockPool.SafeCall(CommandBufferManagement, func() error {
		if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			return fmt.Errorf("failed to allocate command buffer: %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	vCommandBuffer.Handle = handles[0]
	vCommandBuffer.State = COMMAND_BUFFER_STATE_READY

	return vCommandBuffer, nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	context.LockPool.SafeCall(CommandBufferManagement, func() error {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
		return nil
	})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isSimultaneousUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		err := fmt.Errorf("failed to begin command buffer: %s", VulkanResultString(res, true))
		core.LogError("%s", err)
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	v.barrier.Reset()

	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		err := fmt.Errorf("failed to end command buffer: %s", VulkanResultString(res, true))
		core.LogError("%s", err)
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() {
	v.State = COMMAND_BUFFER_STATE_READY
}

/**
 * @brief Binds descriptor set `set` of the heap for the given bind point. The storage
 * barriers the set needs are recorded first.
 */
func (v *VulkanCommandBuffer) BindResourceHeap(h *heap.ResourceHeap, set uint32, bindPoint vk.PipelineBindPoint) error {
	if v.State != COMMAND_BUFFER_STATE_RECORDING {
		return fmt.Errorf("command buffer is not recording: %w", core.ErrConfiguration)
	}
	layout, ok := h.PipelineLayout().(*VulkanPipelineLayout)
	if !ok {
		return fmt.Errorf("heap %q was not created with a vulkan pipeline layout: %w", h.Name(), core.ErrMismatch)
	}
	ds, err := h.DescriptorSet(set)
	if err != nil {
		return err
	}
	handle, ok := ds.(vk.DescriptorSet)
	if !ok {
		return fmt.Errorf("heap %q holds no vulkan descriptor sets: %w", h.Name(), core.ErrMismatch)
	}

	if _, err := h.SetBarrierSlots(&v.barrier, set); err != nil {
		return err
	}
	v.barrier.Flush(v)

	vk.CmdBindDescriptorSets(v.Handle, bindPoint, layout.Handle, 0, 1, []vk.DescriptorSet{handle}, 0, nil)
	return nil
}
