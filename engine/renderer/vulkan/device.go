package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-rhi/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueueIndex int32
	ComputeQueueIndex  int32

	GraphicsQueue vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics          bool
	Compute           bool
	SamplerAnisotropy bool
	DiscreteGPU       bool
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	ComputeFamilyIndex  int32
}

func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	if context.Device.Features.SamplerAnisotropy == vk.True {
		deviceFeatures.SamplerAnisotropy = vk.True
	}

	var extensionNames []string
	if runtime.GOOS == "darwin" {
		extensionNames = append(extensionNames, VulkanSafeString("VK_KHR_portability_subset"))
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: extensionNames,
	}

	var device vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device); res != vk.Success {
		err := fmt.Errorf("failed to create logical device: %s", VulkanResultString(res, true))
		core.LogError("%s", err)
		return err
	}
	context.Device.LogicalDevice = device
	core.LogInfo("Logical device created.")

	var queue vk.Queue
	vk.GetDeviceQueue(context.Device.LogicalDevice, uint32(context.Device.GraphicsQueueIndex), 0, &queue)
	context.Device.GraphicsQueue = queue
	context.LockPool.SetQueueFamily(uint32(context.Device.GraphicsQueueIndex))
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create graphics command pool: %s", VulkanResultString(res, true))
		core.LogError("%s", err)
		return err
	}
	context.Device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	context.Device.GraphicsQueue = nil

	core.LogInfo("Destroying command pools...")
	if context.Device.GraphicsCommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, context.Allocator)
		context.Device.GraphicsCommandPool = vk.NullCommandPool
	}

	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.GraphicsQueueIndex = -1
	context.Device.ComputeQueueIndex = -1
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return fmt.Errorf("failed to enumerate physical devices: %s", VulkanResultString(res, true))
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found: %w", core.ErrConfiguration)
		core.LogError("%s", err)
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return fmt.Errorf("failed to enumerate physical devices: %s", VulkanResultString(res, true))
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:    true,
		Compute:     true,
		DiscreteGPU: false,
	}

	for i := 0; i < int(physicalDeviceCount); i++ {
		properties := vk.PhysicalDeviceProperties{}
		vk.GetPhysicalDeviceProperties(physicalDevices[i], &properties)
		properties.Deref()
		properties.Limits.Deref()

		features := vk.PhysicalDeviceFeatures{}
		vk.GetPhysicalDeviceFeatures(physicalDevices[i], &features)
		features.Deref()

		memory := vk.PhysicalDeviceMemoryProperties{}
		vk.GetPhysicalDeviceMemoryProperties(physicalDevices[i], &memory)
		memory.Deref()

		queueInfo, ok := PhysicalDeviceMeetsRequirements(physicalDevices[i], &properties, &features, &requirements)
		if !ok {
			continue
		}

		name := string(properties.DeviceName[:FindFirstZeroInByteArray(properties.DeviceName[:])])
		core.LogInfo("Selected device: '%s'.", name)
		core.LogInfo(
			"Vulkan API version: %d.%d.%d",
			vk.Version(properties.ApiVersion).Major(),
			vk.Version(properties.ApiVersion).Minor(),
			vk.Version(properties.ApiVersion).Patch(),
		)

		context.Device.PhysicalDevice = physicalDevices[i]
		context.Device.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
		context.Device.ComputeQueueIndex = queueInfo.ComputeFamilyIndex
		context.Device.Properties = properties
		context.Device.Features = features
		context.Device.Memory = memory
		break
	}

	if context.Device.PhysicalDevice == nil {
		err := fmt.Errorf("no physical devices were found which meet the requirements: %w", core.ErrConfiguration)
		core.LogError("%s", err)
		return err
	}

	core.LogInfo("Physical device selected.")
	return nil
}

// PhysicalDeviceMeetsRequirements looks for queue families that can run the resource heap
// workloads. No surface is involved: heaps are usable without presenting.
func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, properties *vk.PhysicalDeviceProperties, features *vk.PhysicalDeviceFeatures, requirements *VulkanPhysicalDeviceRequirements) (VulkanPhysicalDeviceQueueFamilyInfo, bool) {
	info := VulkanPhysicalDeviceQueueFamilyInfo{GraphicsFamilyIndex: -1, ComputeFamilyIndex: -1}

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogInfo("Device is not a discrete GPU, and one is required. Skipping.")
		return info, false
	}
	if requirements.SamplerAnisotropy && features.SamplerAnisotropy != vk.True {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return info, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := range queueFamilies {
		queueFamilies[i].Deref()
		flags := vk.QueueFlagBits(queueFamilies[i].QueueFlags)
		if flags&vk.QueueGraphicsBit != 0 && info.GraphicsFamilyIndex == -1 {
			info.GraphicsFamilyIndex = int32(i)
		}
		if flags&vk.QueueComputeBit != 0 && info.ComputeFamilyIndex == -1 {
			info.ComputeFamilyIndex = int32(i)
		}
	}

	core.LogDebug("Graphics: %d | Compute: %d", info.GraphicsFamilyIndex, info.ComputeFamilyIndex)

	if requirements.Graphics && info.GraphicsFamilyIndex == -1 {
		return info, false
	}
	if requirements.Compute && info.ComputeFamilyIndex == -1 {
		return info, false
	}
	return info, true
}
