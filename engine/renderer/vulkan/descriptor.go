package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/heap"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

type VulkanDescriptorPool struct {
	Handle  vk.DescriptorPool
	name    string
	maxSets uint32
}

/**
 * @brief Implements the device side of resource heaps: descriptor pools, descriptor
 * sets, the views heaps own and batched descriptor updates.
 */
type VulkanHeapDevice struct {
	context *VulkanContext
	// Bound to combined slots whose binding carries no static sampler.
	defaultSampler *VulkanSampler
}

func NewVulkanHeapDevice(context *VulkanContext, defaultSampler *VulkanSampler) *VulkanHeapDevice {
	return &VulkanHeapDevice{context: context, defaultSampler: defaultSampler}
}

func VulkanPoolSizes(sizes []heap.PoolSize) []vk.DescriptorPoolSize {
	out := make([]vk.DescriptorPoolSize, 0, len(sizes))
	for _, s := range sizes {
		if s.Count == 0 {
			continue
		}
		out = append(out, vk.DescriptorPoolSize{
			Type:            VulkanDescriptorType(s.Type),
			DescriptorCount: s.Count,
		})
	}
	return out
}

func (d *VulkanHeapDevice) CreateDescriptorPool(name string, sizes []heap.PoolSize, maxSets uint32) (heap.DescriptorPool, error) {
	poolSizes := VulkanPoolSizes(sizes)
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	pool := &VulkanDescriptorPool{name: name, maxSets: maxSets}
	err := d.context.LockPool.SafeCall(DescriptorManagement, func() error {
		var handle vk.DescriptorPool
		if res := vk.CreateDescriptorPool(d.context.Device.LogicalDevice, &poolInfo, d.context.Allocator, &handle); res != vk.Success {
			return vulkanError("CreateDescriptorPool", res)
		}
		pool.Handle = handle
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("descriptor pool %q: %w", name, err)
	}
	return pool, nil
}

func (d *VulkanHeapDevice) DestroyDescriptorPool(p heap.DescriptorPool) {
	pool, ok := p.(*VulkanDescriptorPool)
	if !ok || pool.Handle == nullDescriptorPool {
		return
	}
	d.context.LockPool.SafeCall(DescriptorManagement, func() error {
		// frees every set allocated from it
		vk.DestroyDescriptorPool(d.context.Device.LogicalDevice, pool.Handle, d.context.Allocator)
		pool.Handle = nullDescriptorPool
		return nil
	})
}

func (d *VulkanHeapDevice) AllocateDescriptorSets(p heap.DescriptorPool, layout metadata.PipelineLayout, count uint32) ([]heap.DescriptorSet, error) {
	pool, ok := p.(*VulkanDescriptorPool)
	if !ok {
		return nil, fmt.Errorf("descriptor pool %T does not belong to the vulkan backend: %w", p, core.ErrMismatch)
	}
	pipelineLayout, ok := layout.(*VulkanPipelineLayout)
	if !ok {
		return nil, fmt.Errorf("pipeline layout %q does not belong to the vulkan backend: %w", layout.Name(), core.ErrMismatch)
	}

	setLayouts := make([]vk.DescriptorSetLayout, count)
	for i := range setLayouts {
		setLayouts[i] = pipelineLayout.SetLayout
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool.Handle,
		DescriptorSetCount: count,
		PSetLayouts:        setLayouts,
	}

	sets := make([]vk.DescriptorSet, count)
	err := d.context.LockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.AllocateDescriptorSets(d.context.Device.LogicalDevice, &allocateInfo, &sets[0]); res != vk.Success {
			return vulkanError("AllocateDescriptorSets", res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("descriptor pool %q: %w", pool.name, err)
	}

	out := make([]heap.DescriptorSet, count)
	for i, s := range sets {
		out[i] = s
	}
	return out, nil
}

func (d *VulkanHeapDevice) CreateImageView(texture metadata.Texture, desc metadata.TextureViewDescriptor) (heap.ImageView, error) {
	image, ok := texture.(*VulkanImage)
	if !ok {
		return nil, fmt.Errorf("texture %q does not belong to the vulkan backend: %w", texture.Name(), core.ErrMismatch)
	}
	view := &VulkanImageView{texture: image}
	err := d.context.LockPool.SafeCall(ViewManagement, func() error {
		handle, err := imageViewCreate(d.context, image, desc)
		view.Handle = handle
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (d *VulkanHeapDevice) DestroyImageView(v heap.ImageView) {
	view, ok := v.(*VulkanImageView)
	if !ok || view.Handle == vk.NullImageView {
		return
	}
	d.context.LockPool.SafeCall(ViewManagement, func() error {
		vk.DestroyImageView(d.context.Device.LogicalDevice, view.Handle, d.context.Allocator)
		view.Handle = vk.NullImageView
		return nil
	})
}

func (d *VulkanHeapDevice) CreateBufferView(buffer metadata.Buffer, desc metadata.BufferViewDescriptor) (heap.BufferView, error) {
	vb, ok := buffer.(*VulkanBuffer)
	if !ok {
		return nil, fmt.Errorf("buffer %q does not belong to the vulkan backend: %w", buffer.Name(), core.ErrMismatch)
	}
	view := &VulkanBufferView{buffer: vb}
	err := d.context.LockPool.SafeCall(ViewManagement, func() error {
		handle, err := bufferViewCreate(d.context, vb, desc)
		view.Handle = handle
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (d *VulkanHeapDevice) DestroyBufferView(v heap.BufferView) {
	view, ok := v.(*VulkanBufferView)
	if !ok || view.Handle == nullBufferView {
		return
	}
	d.context.LockPool.SafeCall(ViewManagement, func() error {
		vk.DestroyBufferView(d.context.Device.LogicalDevice, view.Handle, d.context.Allocator)
		view.Handle = nullBufferView
		return nil
	})
}

// imageLayout is the layout a sampled or storage image is expected in while bound.
func imageLayout(t metadata.DescriptorType) vk.ImageLayout {
	if t == metadata.DescriptorTypeStorageImage {
		return vk.ImageLayoutGeneral
	}
	return vk.ImageLayoutShaderReadOnlyOptimal
}

// offsetAlignment is the device's minimum offset alignment for uniform or storage
// buffer descriptors.
func (d *VulkanHeapDevice) offsetAlignment(t metadata.DescriptorType) uint64 {
	limits := &d.context.Device.Properties.Limits
	if t == metadata.DescriptorTypeUniformBuffer {
		return uint64(limits.MinUniformBufferOffsetAlignment)
	}
	return uint64(limits.MinStorageBufferOffsetAlignment)
}

// ValidateWrite checks what the driver would reject for a single slot: resources of
// another backend, a combined slot without any sampler and a misaligned buffer offset.
func (d *VulkanHeapDevice) ValidateWrite(w heap.DescriptorWrite) error {
	if _, ok := w.Set.(vk.DescriptorSet); !ok {
		return fmt.Errorf("descriptor set %T does not belong to the vulkan backend: %w", w.Set, core.ErrMismatch)
	}

	switch w.Type {
	case metadata.DescriptorTypeSampler:
		if _, ok := w.Sampler.(*VulkanSampler); !ok {
			return fmt.Errorf("sampler %q does not belong to the vulkan backend: %w", w.Resource.Name(), core.ErrMismatch)
		}

	case metadata.DescriptorTypeCombinedImageSampler, metadata.DescriptorTypeSampledImage, metadata.DescriptorTypeStorageImage:
		image, ok := w.Resource.(*VulkanImage)
		if !ok {
			return fmt.Errorf("texture %q does not belong to the vulkan backend: %w", w.Resource.Name(), core.ErrMismatch)
		}
		if w.Type == metadata.DescriptorTypeCombinedImageSampler && d.combinedSampler(w) == nil {
			return fmt.Errorf("combined slot for %q has no sampler: %w", image.name, core.ErrConfiguration)
		}

	case metadata.DescriptorTypeUniformTexelBuffer, metadata.DescriptorTypeStorageTexelBuffer:
		if view, ok := w.BufferView.(*VulkanBufferView); !ok || view == nil {
			return fmt.Errorf("texel buffer slot %d has no view: %w", w.Binding, core.ErrConfiguration)
		}

	default:
		buffer, ok := w.Resource.(*VulkanBuffer)
		if !ok {
			return fmt.Errorf("buffer %q does not belong to the vulkan backend: %w", w.Resource.Name(), core.ErrMismatch)
		}
		if align := d.offsetAlignment(w.Type); !metadata.IsAligned(w.Offset, align) {
			return fmt.Errorf("offset %d of buffer %q is not aligned to %d: %w", w.Offset, buffer.name, align, core.ErrConfiguration)
		}
	}
	return nil
}

// combinedSampler is the binding's static sampler, else the device default.
func (d *VulkanHeapDevice) combinedSampler(w heap.DescriptorWrite) *VulkanSampler {
	if sampler, ok := w.Sampler.(*VulkanSampler); ok && sampler != nil {
		return sampler
	}
	return d.defaultSampler
}

// writeDescriptorSet converts one write that already passed ValidateWrite. Nothing is
// sent to the device here, so a failure leaves the batch untouched.
func (d *VulkanHeapDevice) writeDescriptorSet(w heap.DescriptorWrite) (vk.WriteDescriptorSet, error) {
	set, ok := w.Set.(vk.DescriptorSet)
	if !ok {
		return vk.WriteDescriptorSet{}, fmt.Errorf("descriptor set %T does not belong to the vulkan backend: %w", w.Set, core.ErrMismatch)
	}
	out := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      w.Binding,
		DstArrayElement: w.ArrayElement,
		DescriptorCount: 1,
		DescriptorType:  VulkanDescriptorType(w.Type),
	}

	switch w.Type {
	case metadata.DescriptorTypeSampler:
		sampler, ok := w.Sampler.(*VulkanSampler)
		if !ok {
			return vk.WriteDescriptorSet{}, fmt.Errorf("sampler %q does not belong to the vulkan backend: %w", w.Resource.Name(), core.ErrMismatch)
		}
		out.PImageInfo = []vk.DescriptorImageInfo{{Sampler: sampler.Handle}}

	case metadata.DescriptorTypeCombinedImageSampler, metadata.DescriptorTypeSampledImage, metadata.DescriptorTypeStorageImage:
		image, ok := w.Resource.(*VulkanImage)
		if !ok {
			return vk.WriteDescriptorSet{}, fmt.Errorf("texture %q does not belong to the vulkan backend: %w", w.Resource.Name(), core.ErrMismatch)
		}
		info := vk.DescriptorImageInfo{
			ImageView:   image.View,
			ImageLayout: imageLayout(w.Type),
		}
		if view, ok := w.ImageView.(*VulkanImageView); ok && view != nil {
			info.ImageView = view.Handle
		}
		if w.Type == metadata.DescriptorTypeCombinedImageSampler {
			if sampler := d.combinedSampler(w); sampler != nil {
				info.Sampler = sampler.Handle
			}
		}
		out.PImageInfo = []vk.DescriptorImageInfo{info}

	case metadata.DescriptorTypeUniformTexelBuffer, metadata.DescriptorTypeStorageTexelBuffer:
		view, ok := w.BufferView.(*VulkanBufferView)
		if !ok || view == nil {
			return vk.WriteDescriptorSet{}, fmt.Errorf("texel buffer slot %d has no view: %w", w.Binding, core.ErrConfiguration)
		}
		out.PTexelBufferView = []vk.BufferView{view.Handle}

	default:
		buffer, ok := w.Resource.(*VulkanBuffer)
		if !ok {
			return vk.WriteDescriptorSet{}, fmt.Errorf("buffer %q does not belong to the vulkan backend: %w", w.Resource.Name(), core.ErrMismatch)
		}
		out.PBufferInfo = []vk.DescriptorBufferInfo{{
			Buffer: buffer.Handle,
			Offset: vk.DeviceSize(w.Offset),
			Range:  vk.DeviceSize(w.Range),
		}}
	}
	return out, nil
}

func (d *VulkanHeapDevice) UpdateDescriptorSets(writes []heap.DescriptorWrite) error {
	if len(writes) == 0 {
		return nil
	}
	native := make([]vk.WriteDescriptorSet, len(writes))
	for i, w := range writes {
		out, err := d.writeDescriptorSet(w)
		if err != nil {
			return err
		}
		native[i] = out
	}
	return d.context.LockPool.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(d.context.Device.LogicalDevice, uint32(len(native)), native, 0, nil)
		return nil
	})
}
