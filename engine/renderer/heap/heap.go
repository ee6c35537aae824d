package heap

import (
	"fmt"

	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/math"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

// ResourceHeap is a set of descriptor sets replicated numSets times over the same
// layout. Heaps do no locking: the owner serializes writes against any use of the
// written sets.
type ResourceHeap struct {
	name     string
	device   Device
	layout   metadata.PipelineLayout
	info     LayoutInfo
	numSets  uint32
	pool     DescriptorPool
	sets     []DescriptorSet
	views    *ViewCache
	barriers *BarrierSlotTable

	destroyed bool
}

// slotWrite is a prepared descriptor write plus the barrier it installs once applied.
type slotWrite struct {
	descriptor  uint32
	binding     uint32
	write       DescriptorWrite
	barrierSlot OptionalIndex
	barrier     BarrierResource
	view        StagedView
}

// Create allocates the heap's pool and sets and applies the initial views. The number
// of views is desc.NumResourceViews, or len(initial) when that is zero, and must be a
// positive multiple of the layout's binding count. No heap is returned on failure.
func Create(device Device, desc metadata.ResourceHeapDescriptor, initial []metadata.ResourceViewDescriptor) (*ResourceHeap, error) {
	if device == nil {
		err := fmt.Errorf("resource heap %q has no device: %w", desc.DebugName, core.ErrConfiguration)
		core.LogError("%s", err)
		return nil, err
	}
	if desc.PipelineLayout == nil {
		err := fmt.Errorf("resource heap %q has no pipeline layout: %w", desc.DebugName, core.ErrConfiguration)
		core.LogError("%s", err)
		return nil, err
	}

	info := TranslateLayout(desc.PipelineLayout.HeapBindings())
	numBindings := info.NumBindings()
	if numBindings == 0 {
		err := fmt.Errorf("pipeline layout %q has no heap bindings: %w", desc.PipelineLayout.Name(), core.ErrConfiguration)
		core.LogError("%s", err)
		return nil, err
	}

	numViews := desc.NumResourceViews
	if numViews == 0 {
		numViews = uint32(len(initial))
	}
	if uint64(len(initial)) > uint64(numViews) {
		err := fmt.Errorf("%d initial resource views exceed the declared %d: %w", len(initial), numViews, core.ErrConfiguration)
		core.LogError("%s", err)
		return nil, err
	}
	if !math.IsPositiveMultiple(numViews, numBindings) {
		err := fmt.Errorf("%d resource views is not a positive multiple of %d bindings: %w", numViews, numBindings, core.ErrConfiguration)
		core.LogError("%s", err)
		return nil, err
	}
	numSets := numViews / numBindings

	sizes, err := PoolSizes(info.Bindings, numSets)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	core.LogDebug("resource heap %q: %d set(s) of %d binding(s), pool %v", desc.DebugName, numSets, numBindings, sizes)

	pool, err := device.CreateDescriptorPool(desc.DebugName, sizes, numSets)
	if err != nil {
		err = fmt.Errorf("failed to create descriptor pool for heap %q: %w", desc.DebugName, err)
		core.LogError("%s", err)
		return nil, err
	}
	sets, err := device.AllocateDescriptorSets(pool, desc.PipelineLayout, numSets)
	if err != nil {
		device.DestroyDescriptorPool(pool)
		err = fmt.Errorf("failed to allocate %d descriptor set(s) for heap %q: %w", numSets, desc.DebugName, err)
		core.LogError("%s", err)
		return nil, err
	}
	if uint32(len(sets)) != numSets {
		device.DestroyDescriptorPool(pool)
		err = fmt.Errorf("device returned %d descriptor set(s), expected %d: %w", len(sets), numSets, core.ErrAllocation)
		core.LogError("%s", err)
		return nil, err
	}
	core.MetricsCounters().SetsAllocated.Add(uint64(numSets))

	h := &ResourceHeap{
		name:     desc.DebugName,
		device:   device,
		layout:   desc.PipelineLayout,
		info:     info,
		numSets:  numSets,
		pool:     pool,
		sets:     sets,
		views:    NewViewCache(device, info, numSets),
		barriers: NewBarrierSlotTable(info, numSets),
	}

	if len(initial) > 0 {
		if _, err := h.WriteResourceViews(0, initial); err != nil {
			h.Destroy()
			err = fmt.Errorf("initial write of heap %q failed: %w", desc.DebugName, err)
			core.LogError("%s", err)
			return nil, err
		}
	}
	return h, nil
}

// WriteResourceViews writes views to the consecutive global descriptors starting at
// firstDescriptor, where descriptor i is binding i%B of set i/B. Views with a nil
// resource leave their slot untouched and are not counted. Slots that fail do not undo
// the others; they are reported in a *core.PartialWriteError.
func (h *ResourceHeap) WriteResourceViews(firstDescriptor uint32, views []metadata.ResourceViewDescriptor) (int, error) {
	if h.destroyed {
		return 0, core.ErrHeapDestroyed
	}
	if len(views) == 0 {
		return 0, nil
	}
	numBindings := h.info.NumBindings()
	total := uint64(h.numSets) * uint64(numBindings)
	if uint64(firstDescriptor)+uint64(len(views)) > total {
		return 0, fmt.Errorf("write of %d view(s) at descriptor %d exceeds heap %q of %d descriptor(s): %w",
			len(views), firstDescriptor, h.name, total, core.ErrConfiguration)
	}

	pending := make([]slotWrite, 0, len(views))
	var failed []core.SlotError
	skipped := 0
	for i := range views {
		index := firstDescriptor + uint32(i)
		set, binding := math.SplitIndex(index, numBindings)
		if views[i].IsNull() {
			skipped++
			continue
		}
		sw, err := h.prepareWrite(set, binding, &views[i])
		sw.descriptor, sw.binding = index, binding
		if err != nil {
			core.LogWarn("heap %q: descriptor %d (set %d, binding %d) not written: %s", h.name, index, set, binding, err)
			failed = append(failed, core.SlotError{Descriptor: index, Set: set, Binding: binding, Err: err})
			continue
		}
		pending = append(pending, sw)
	}
	core.MetricsCounters().DescriptorsSkipped.Add(uint64(skipped))

	if len(pending) > 0 {
		writes := make([]DescriptorWrite, len(pending))
		for i := range pending {
			writes[i] = pending[i].write
		}
		if err := h.device.UpdateDescriptorSets(writes); err != nil {
			// the batch is all or nothing, so every slot keeps its previous view
			for _, sw := range pending {
				h.views.Discard(sw.view)
				failed = append(failed, core.SlotError{Descriptor: sw.descriptor, Set: sw.write.SetIndex, Binding: sw.binding, Err: err})
			}
			pending = pending[:0]
		}
	}

	for _, sw := range pending {
		h.views.Commit(sw.view)
		if slot, ok := sw.barrierSlot.Get(); ok {
			h.barriers.Set(sw.write.SetIndex, slot, sw.barrier)
		}
	}

	written := len(pending)
	core.MetricsCounters().DescriptorsWritten.Add(uint64(written))
	if len(failed) > 0 {
		core.MetricsCounters().DescriptorsFailed.Add(uint64(len(failed)))
		return written, &core.PartialWriteError{Written: written, Failed: failed}
	}
	return written, nil
}

func (h *ResourceHeap) prepareWrite(set, binding uint32, view *metadata.ResourceViewDescriptor) (slotWrite, error) {
	hb := &h.info.Bindings[binding]
	resource := view.Resource
	kind := resource.ResourceKind()
	if !hb.Binding.Accepts(kind) {
		return slotWrite{}, fmt.Errorf("binding %s cannot take %s %q: %w", hb.Binding, kind, resource.Name(), core.ErrMismatch)
	}

	sw := slotWrite{
		write: DescriptorWrite{
			Set:          h.sets[set],
			SetIndex:     set,
			Binding:      hb.Binding.Slot,
			ArrayElement: hb.ArrayElement,
			Type:         hb.Type,
			Resource:     resource,
			InitialCount: view.InitialCount,
		},
		barrierSlot: hb.BarrierSlot,
	}

	switch hb.Type {
	case metadata.DescriptorTypeSampler:
		sampler, ok := resource.(metadata.Sampler)
		if !ok {
			return slotWrite{}, fmt.Errorf("%q is not a sampler: %w", resource.Name(), core.ErrMismatch)
		}
		sw.write.Sampler = sampler

	case metadata.DescriptorTypeCombinedImageSampler, metadata.DescriptorTypeSampledImage, metadata.DescriptorTypeStorageImage:
		texture, ok := resource.(metadata.Texture)
		if !ok {
			return slotWrite{}, fmt.Errorf("%q is not a texture: %w", resource.Name(), core.ErrMismatch)
		}
		if hb.Type == metadata.DescriptorTypeCombinedImageSampler {
			sw.write.Sampler = hb.Binding.StaticSampler
		}
		imageView, staged, err := h.views.ImageView(set, binding, texture, view.TextureView)
		if err != nil {
			return slotWrite{}, err
		}
		sw.write.ImageView, sw.view = imageView, staged
		sw.barrier = ImageBarrier(texture, hb.Binding.Stages)

	case metadata.DescriptorTypeUniformTexelBuffer, metadata.DescriptorTypeStorageTexelBuffer:
		buffer, ok := resource.(metadata.Buffer)
		if !ok {
			return slotWrite{}, fmt.Errorf("%q is not a buffer: %w", resource.Name(), core.ErrMismatch)
		}
		request, err := texelBufferView(buffer, view.BufferView, hb.Binding)
		if err != nil {
			return slotWrite{}, err
		}
		bufferView, staged, err := h.views.BufferView(set, binding, buffer, request)
		if err != nil {
			return slotWrite{}, err
		}
		sw.write.BufferView, sw.view = bufferView, staged
		sw.write.Offset, sw.write.Range = request.Offset, request.Size
		sw.barrier = BufferBarrier(buffer, hb.Binding.Stages)

	case metadata.DescriptorTypeUniformBuffer, metadata.DescriptorTypeStorageBuffer:
		buffer, ok := resource.(metadata.Buffer)
		if !ok {
			return slotWrite{}, fmt.Errorf("%q is not a buffer: %w", resource.Name(), core.ErrMismatch)
		}
		if view.BufferView.IsEnabled() && view.BufferView.Size == 0 {
			return slotWrite{}, fmt.Errorf("empty range of buffer %q: %w", buffer.Name(), core.ErrConfiguration)
		}
		offset, size, ok := view.BufferView.Resolve(buffer.Descriptor().Size)
		if !ok {
			return slotWrite{}, fmt.Errorf("range [%d, +%d) outside buffer %q of %d bytes: %w",
				view.BufferView.Offset, view.BufferView.Size, buffer.Name(), buffer.Descriptor().Size, core.ErrConfiguration)
		}
		sw.write.Offset, sw.write.Range = offset, size
		sw.barrier = BufferBarrier(buffer, hb.Binding.Stages)

	default:
		return slotWrite{}, fmt.Errorf("binding %s has no descriptor type: %w", hb.Binding, core.ErrConfiguration)
	}

	if err := h.device.ValidateWrite(sw.write); err != nil {
		h.views.Discard(sw.view)
		return slotWrite{}, err
	}
	return sw, nil
}

// texelBufferView fills in what a typed buffer binding leaves unspecified: the format
// falls back to the binding's counter format and then to the buffer's own, the range
// to the whole buffer.
func texelBufferView(buffer metadata.Buffer, requested metadata.BufferViewDescriptor, binding metadata.Binding) (metadata.BufferViewDescriptor, error) {
	bufDesc := buffer.Descriptor()
	if requested.IsEnabled() && requested.Size == 0 {
		return metadata.BufferViewDescriptor{}, fmt.Errorf("empty range of buffer %q: %w", buffer.Name(), core.ErrConfiguration)
	}
	offset, size, ok := requested.Resolve(bufDesc.Size)
	if !ok {
		return metadata.BufferViewDescriptor{}, fmt.Errorf("range [%d, +%d) outside buffer %q of %d bytes: %w",
			requested.Offset, requested.Size, buffer.Name(), bufDesc.Size, core.ErrConfiguration)
	}
	format := requested.Format
	if format == metadata.FormatUndefined {
		format = binding.CounterFormat
	}
	if format == metadata.FormatUndefined {
		format = bufDesc.Format
	}
	if format == metadata.FormatUndefined {
		return metadata.BufferViewDescriptor{}, fmt.Errorf("typed binding %s needs a format for buffer %q: %w", binding, buffer.Name(), core.ErrConfiguration)
	}
	return metadata.BufferViewDescriptor{Format: format, Offset: offset, Size: size}, nil
}

func (h *ResourceHeap) Name() string {
	return h.name
}

func (h *ResourceHeap) PipelineLayout() metadata.PipelineLayout {
	return h.layout
}

// Layout returns the translated layout shared by every set.
func (h *ResourceHeap) Layout() LayoutInfo {
	return h.info
}

func (h *ResourceHeap) NumDescriptorSets() uint32 {
	return h.numSets
}

// NumBindings is the number of descriptors per set.
func (h *ResourceHeap) NumBindings() uint32 {
	return h.info.NumBindings()
}

func (h *ResourceHeap) DescriptorPool() DescriptorPool {
	return h.pool
}

// DescriptorSets returns the native set handles in set order.
func (h *ResourceHeap) DescriptorSets() []DescriptorSet {
	out := make([]DescriptorSet, len(h.sets))
	copy(out, h.sets)
	return out
}

func (h *ResourceHeap) DescriptorSet(set uint32) (DescriptorSet, error) {
	if h.destroyed {
		return nil, core.ErrHeapDestroyed
	}
	if set >= h.numSets {
		return nil, fmt.Errorf("set %d of heap %q with %d set(s): %w", set, h.name, h.numSets, core.ErrConfiguration)
	}
	return h.sets[set], nil
}

func (h *ResourceHeap) NumBufferBarriers() uint32 {
	return h.barriers.NumBufferBarriers()
}

func (h *ResourceHeap) NumImageBarriers() uint32 {
	return h.barriers.NumImageBarriers()
}

// SetBarrierSlots exports the barriers of one set into acc. It does not modify the heap.
func (h *ResourceHeap) SetBarrierSlots(acc BarrierAccumulator, set uint32) (int, error) {
	if h.destroyed {
		return 0, core.ErrHeapDestroyed
	}
	if set >= h.numSets {
		return 0, fmt.Errorf("set %d of heap %q with %d set(s): %w", set, h.name, h.numSets, core.ErrConfiguration)
	}
	return h.barriers.Export(set, acc), nil
}

// LiveViews reports how many subresource views the heap currently owns.
func (h *ResourceHeap) LiveViews() (images, buffers int) {
	return h.views.Len()
}

// Destroy releases every cached view and the descriptor pool, which frees the sets.
func (h *ResourceHeap) Destroy() error {
	if h.destroyed {
		return core.ErrHeapDestroyed
	}
	h.views.Release()
	h.device.DestroyDescriptorPool(h.pool)
	h.pool = nil
	h.sets = nil
	h.destroyed = true
	core.LogDebug("resource heap %q destroyed", h.name)
	return nil
}
