package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/platform"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/heap"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

type VulkanRenderer struct {
	platform    *platform.Platform
	FrameNumber uint64
	context     *VulkanContext
	heapDevice  *VulkanHeapDevice

	defaultSampler *VulkanSampler
	framesInFlight uint32
	recording      bool

	debug bool
}

func New(p *platform.Platform) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		context: &VulkanContext{
			Allocator: nil,
			Device:    &VulkanDevice{GraphicsQueueIndex: -1, ComputeQueueIndex: -1},
			LockPool:  NewVulkanLockPool(),
		},
		debug: false,
	}
}

func (vr *VulkanRenderer) Initialize(appName string, cfg *core.Config) error {
	if err := vr.platform.Startup(); err != nil {
		return err
	}
	procAddr, err := vr.platform.GetVulkanGetInstanceProcAddress()
	if err != nil {
		core.LogError("%s", err)
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	vr.debug = cfg.Log.Level == "debug"
	vr.framesInFlight = cfg.Heap.FramesInFlight

	if err := vr.createInstance(appName); err != nil {
		return err
	}

	if err := DeviceCreate(vr.context); err != nil {
		return err
	}

	sampler, err := SamplerCreate(vr.context, "DefaultSampler", metadata.SamplerDescriptor{
		MinFilter: metadata.TextureFilterModeLinear,
		MagFilter: metadata.TextureFilterModeLinear,
		MipFilter: metadata.TextureFilterModeLinear,
		RepeatU:   metadata.TextureRepeatRepeat,
		RepeatV:   metadata.TextureRepeatRepeat,
		RepeatW:   metadata.TextureRepeatRepeat,
	})
	if err != nil {
		return err
	}
	vr.defaultSampler = sampler
	vr.heapDevice = NewVulkanHeapDevice(vr.context, sampler)

	if err := vr.createCommandBuffers(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Anima RHI"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	var requiredExtensions []string
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var requiredLayers []string
	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		if vr.validationLayerPresent("VK_LAYER_KHRONOS_validation") {
			requiredLayers = append(requiredLayers, "VK_LAYER_KHRONOS_validation")
		} else {
			core.LogWarn("validation layer VK_LAYER_KHRONOS_validation is missing, continuing without it")
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
		core.LogError("%s", err)
		return err
	}
	vr.context.Instance = instance
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError("%s", err)
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if vr.debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vr.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func (vr *VulkanRenderer) validationLayerPresent(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		end := FindFirstZeroInByteArray(layers[i].LayerName[:])
		if string(layers[i].LayerName[:end]) == name {
			return true
		}
	}
	return false
}

func (vr *VulkanRenderer) createCommandBuffers() error {
	vr.context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, vr.framesInFlight)
	vr.context.InFlightFences = make([]*VulkanFence, vr.framesInFlight)
	for i := range vr.context.GraphicsCommandBuffers {
		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vr.context.GraphicsCommandBuffers[i] = cb

		fence, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.context.InFlightFences[i] = fence
	}
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	if vr.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

		for i, cb := range vr.context.GraphicsCommandBuffers {
			if cb != nil {
				cb.Free(vr.context, vr.context.Device.GraphicsCommandPool)
			}
			if fence := vr.context.InFlightFences[i]; fence != nil {
				fence.FenceDestroy(vr.context)
			}
		}
		vr.context.GraphicsCommandBuffers = nil
		vr.context.InFlightFences = nil

		if vr.defaultSampler != nil {
			vr.defaultSampler.Destroy(vr.context)
			vr.defaultSampler = nil
		}
		DeviceDestroy(vr.context)
	}

	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = vk.NullDebugReportCallback
	}
	if vr.context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
	}
	return vr.platform.Shutdown()
}

func (vr *VulkanRenderer) currentCommandBuffer() (*VulkanCommandBuffer, *VulkanFence) {
	frame := vr.context.CurrentFrame
	return vr.context.GraphicsCommandBuffers[frame], vr.context.InFlightFences[frame]
}

// BeginFrame waits until the frame slot's previous submission retired and starts
// recording into its command buffer.
func (vr *VulkanRenderer) BeginFrame(frame uint64) error {
	vr.context.CurrentFrame = uint32(frame % uint64(vr.framesInFlight))
	cb, fence := vr.currentCommandBuffer()
	if !fence.FenceWait(vr.context, ^uint64(0)) {
		return fmt.Errorf("in-flight fence wait failed for frame %d", frame)
	}
	cb.Reset()
	if err := cb.Begin(true, false); err != nil {
		return err
	}
	vr.recording = true
	return nil
}

func (vr *VulkanRenderer) EndFrame(frame uint64) error {
	if !vr.recording {
		return nil
	}
	vr.recording = false

	cb, fence := vr.currentCommandBuffer()
	if err := cb.End(); err != nil {
		return err
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}
	err := vr.context.LockPool.SafeQueueCall(uint32(vr.context.Device.GraphicsQueueIndex), func() error {
		if err := fence.FenceReset(vr.context); err != nil {
			return err
		}
		if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); res != vk.Success {
			return fmt.Errorf("vkQueueSubmit failed with %s", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError("%s", err)
		return err
	}
	cb.UpdateSubmitted()
	vr.FrameNumber = frame + 1
	return nil
}

func (vr *VulkanRenderer) Device() heap.Device {
	return vr.heapDevice
}

func (vr *VulkanRenderer) PipelineLayoutCreate(name string, bindings []metadata.Binding) (metadata.PipelineLayout, error) {
	return PipelineLayoutCreate(vr.context, name, bindings)
}

func (vr *VulkanRenderer) PipelineLayoutDestroy(layout metadata.PipelineLayout) {
	if pl, ok := layout.(*VulkanPipelineLayout); ok {
		pl.Destroy(vr.context)
	}
}

func (vr *VulkanRenderer) TextureCreate(name string, desc metadata.TextureDescriptor) (metadata.Texture, error) {
	return ImageCreate(vr.context, name, desc)
}

func (vr *VulkanRenderer) BufferCreate(name string, desc metadata.BufferDescriptor) (metadata.Buffer, error) {
	return BufferCreate(vr.context, name, desc)
}

func (vr *VulkanRenderer) SamplerCreate(name string, desc metadata.SamplerDescriptor) (metadata.Sampler, error) {
	return SamplerCreate(vr.context, name, desc)
}

func (vr *VulkanRenderer) ResourceDestroy(resource metadata.Resource) {
	switch r := resource.(type) {
	case *VulkanImage:
		r.Destroy(vr.context)
	case *VulkanBuffer:
		r.Destroy(vr.context)
	case *VulkanSampler:
		r.Destroy(vr.context)
	}
}

// BindResourceHeap records the set's barriers and binds it for compute and graphics
// work of the current frame.
func (vr *VulkanRenderer) BindResourceHeap(h *heap.ResourceHeap, set uint32) error {
	if !vr.recording {
		return fmt.Errorf("BindResourceHeap outside BeginFrame/EndFrame: %w", core.ErrConfiguration)
	}
	cb, _ := vr.currentCommandBuffer()
	return cb.BindResourceHeap(h, set, vk.PipelineBindPointCompute)
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
