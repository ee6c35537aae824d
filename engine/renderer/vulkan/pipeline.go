package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

/**
 * @brief A pipeline layout with a single descriptor set layout holding every heap
 * binding. Resource heaps allocate their descriptor sets against SetLayout.
 */
type VulkanPipelineLayout struct {
	Handle    vk.PipelineLayout
	SetLayout vk.DescriptorSetLayout

	name     string
	bindings []metadata.Binding
}

func (pl *VulkanPipelineLayout) Name() string                     { return pl.name }
func (pl *VulkanPipelineLayout) HeapBindings() []metadata.Binding { return pl.bindings }

// VulkanSetLayoutBindings translates heap bindings into native set layout bindings.
// Combined bindings with a static sampler get it baked in as an immutable sampler.
func VulkanSetLayoutBindings(bindings []metadata.Binding) ([]vk.DescriptorSetLayoutBinding, error) {
	out := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	slots := make(map[uint32]struct{}, len(bindings))
	for i, b := range bindings {
		if b.Kind == metadata.ResourceKindUndefined {
			return nil, fmt.Errorf("binding %d has no resource kind: %w", i, core.ErrConfiguration)
		}
		if _, dup := slots[b.Slot]; dup {
			return nil, fmt.Errorf("binding slot %d declared twice: %w", b.Slot, core.ErrConfiguration)
		}
		slots[b.Slot] = struct{}{}

		stages := b.Stages
		if stages == 0 {
			stages = metadata.StageAll
		}
		out[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Slot,
			DescriptorType:  VulkanDescriptorType(b.DescriptorType()),
			DescriptorCount: b.DescriptorCount(),
			StageFlags:      VulkanShaderStageFlags(stages),
		}
		if b.Kind == metadata.ResourceKindCombined && b.StaticSampler != nil {
			if s, ok := b.StaticSampler.(*VulkanSampler); ok {
				immutable := make([]vk.Sampler, b.DescriptorCount())
				for j := range immutable {
					immutable[j] = s.Handle
				}
				out[i].PImmutableSamplers = immutable
			}
		}
	}
	return out, nil
}

func PipelineLayoutCreate(context *VulkanContext, name string, bindings []metadata.Binding) (*VulkanPipelineLayout, error) {
	layoutBindings, err := VulkanSetLayoutBindings(bindings)
	if err != nil {
		core.LogError("pipeline layout %q: %s", name, err)
		return nil, err
	}

	layout := &VulkanPipelineLayout{
		name:     name,
		bindings: append([]metadata.Binding(nil), bindings...),
	}

	setLayoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
	setLayoutInfo.Deref()

	if err := context.LockPool.SafeCall(PipelineManagement, func() error {
		var setLayout vk.DescriptorSetLayout
		if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &setLayoutInfo, context.Allocator, &setLayout); !VulkanResultIsSuccess(res) {
			return vulkanError("vkCreateDescriptorSetLayout", res)
		}
		layout.SetLayout = setLayout

		pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
			SType:          vk.StructureTypePipelineLayoutCreateInfo,
			SetLayoutCount: 1,
			PSetLayouts:    []vk.DescriptorSetLayout{setLayout},
		}
		pipelineLayoutCreateInfo.Deref()

		var pPipelineLayout vk.PipelineLayout
		if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutCreateInfo, context.Allocator, &pPipelineLayout); !VulkanResultIsSuccess(res) {
			return vulkanError("vkCreatePipelineLayout", res)
		}
		layout.Handle = pPipelineLayout
		return nil
	}); err != nil {
		core.LogError("pipeline layout %q: %s", name, err)
		layout.Destroy(context)
		return nil, err
	}

	core.LogDebug("Pipeline layout %q created with %d bindings", name, len(bindings))
	return layout, nil
}

func (pl *VulkanPipelineLayout) Destroy(context *VulkanContext) {
	context.LockPool.SafeCall(PipelineManagement, func() error {
		if pl.Handle != vk.NullPipelineLayout {
			vk.DestroyPipelineLayout(context.Device.LogicalDevice, pl.Handle, context.Allocator)
			pl.Handle = vk.NullPipelineLayout
		}
		if pl.SetLayout != nullDescriptorSetLayout {
			vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, pl.SetLayout, context.Allocator)
			pl.SetLayout = nullDescriptorSetLayout
		}
		return nil
	})
}
