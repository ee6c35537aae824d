package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-rhi/engine/core"
)

type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	// Serializes access to descriptor pools, views and the graphics queue.
	LockPool *VulkanLockPool

	// One command buffer per frame in flight, used to bind resource heaps.
	GraphicsCommandBuffers []*VulkanCommandBuffer
	InFlightFences         []*VulkanFence
	CurrentFrame           uint32
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// allocateMemory allocates and binds nothing; callers bind the returned memory to
// their image or buffer.
func (vc *VulkanContext) allocateMemory(requirements vk.MemoryRequirements, flags vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	requirements.Deref()
	memoryType := vc.FindMemoryIndex(requirements.MemoryTypeBits, uint32(flags))
	if memoryType == -1 {
		return nil, vulkanError("FindMemoryIndex", vk.ErrorOutOfDeviceMemory)
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(vc.Device.LogicalDevice, &allocateInfo, vc.Allocator, &memory); res != vk.Success {
		err := vulkanError("AllocateMemory", res)
		core.LogError("%s", err)
		return nil, err
	}
	return memory, nil
}
