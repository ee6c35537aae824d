package vulkan

import (
	"fmt"
	"sync"
)

type LockGroup string

const (
	SamplerManagement       LockGroup = "sampler_management"
	BufferManagement        LockGroup = "buffer_management"
	ImageManagement         LockGroup = "image_management"
	ViewManagement          LockGroup = "view_management"
	DescriptorManagement    LockGroup = "descriptor_management"
	PipelineManagement      LockGroup = "pipeline_management"
	CommandBufferManagement LockGroup = "command_buffer_management"
	MemoryManagement        LockGroup = "memory_management"
)

// VulkanLockPool serializes access to externally synchronized Vulkan objects. A
// descriptor pool, for instance, must not be used from two threads at once.
type VulkanLockPool struct {
	locks map[LockGroup]*sync.Mutex
	mu    sync.Mutex // Protects access to the maps

	queueMutexes map[uint32]*sync.Mutex // Queue family index as key
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

func (vs *VulkanLockPool) lock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	l, exists := vs.locks[group]
	if !exists {
		l = &sync.Mutex{}
		vs.locks[group] = l
	}
	vs.mu.Unlock()

	l.Lock()
	return l
}

func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := vs.lock(group)
	defer l.Unlock()

	return fn()
}

func (vs *VulkanLockPool) SetQueueFamily(index uint32) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, exists := vs.queueMutexes[index]; !exists {
		vs.queueMutexes[index] = &sync.Mutex{}
	}
}

func (vs *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	vs.mu.Lock()
	l, exists := vs.queueMutexes[queueFamilyIndex]
	vs.mu.Unlock()
	if !exists {
		return fmt.Errorf("queue family %d was never registered", queueFamilyIndex)
	}

	l.Lock()
	defer l.Unlock()

	return fn()
}
