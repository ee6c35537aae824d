package heap

import (
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

// HeapBinding is one descriptor slot of a heap set. A layout binding with an array size
// of n expands into n consecutive heap bindings, one per array element.
type HeapBinding struct {
	Binding      metadata.Binding
	ArrayElement uint32
	Type         metadata.DescriptorType

	// Index into the per-set image view array, when the slot can own a texture view.
	ImageViewIndex OptionalIndex
	// Index into the per-set buffer view array, when the slot is a texel buffer.
	BufferViewIndex OptionalIndex
	// Index into the per-set barrier slot array, when writes must be synchronized.
	BarrierSlot OptionalIndex
}

// LayoutInfo is the heap-side view of a pipeline layout: one set's worth of slots plus
// the per-set sizes of the view and barrier arrays.
type LayoutInfo struct {
	Bindings          []HeapBinding
	NumImageViews     uint32
	NumBufferViews    uint32
	NumBarrierSlots   uint32
	NumBufferBarriers uint32
	NumImageBarriers  uint32
}

// NumBindings is the stride of every descriptor set in the heap.
func (l LayoutInfo) NumBindings() uint32 {
	return uint32(len(l.Bindings))
}

// TranslateLayout assigns view and barrier indices in a single forward pass over the
// bindings in declaration order. The result only depends on the input.
func TranslateLayout(bindings []metadata.Binding) LayoutInfo {
	var info LayoutInfo
	for _, b := range bindings {
		descType := b.DescriptorType()
		for e := uint32(0); e < b.DescriptorCount(); e++ {
			hb := HeapBinding{
				Binding:         b,
				ArrayElement:    e,
				Type:            descType,
				ImageViewIndex:  NoIndex,
				BufferViewIndex: NoIndex,
				BarrierSlot:     NoIndex,
			}
			if b.CanOwnImageView() {
				hb.ImageViewIndex = IndexOf(info.NumImageViews)
				info.NumImageViews++
			}
			if b.CanOwnBufferView() {
				hb.BufferViewIndex = IndexOf(info.NumBufferViews)
				info.NumBufferViews++
			}
			if b.NeedsBarrier {
				switch b.Kind {
				case metadata.ResourceKindBuffer:
					hb.BarrierSlot = IndexOf(info.NumBarrierSlots)
					info.NumBarrierSlots++
					info.NumBufferBarriers++
				case metadata.ResourceKindTexture, metadata.ResourceKindCombined:
					hb.BarrierSlot = IndexOf(info.NumBarrierSlots)
					info.NumBarrierSlots++
					info.NumImageBarriers++
				}
			}
			info.Bindings = append(info.Bindings, hb)
		}
	}
	return info
}
