package headless

import (
	"fmt"

	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/heap"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

// BarrierRecord is one barrier emitted by a heap before a bind.
type BarrierRecord struct {
	Slot     uint32
	Kind     heap.BarrierKind
	Resource metadata.Resource
	Stages   metadata.StageFlags
}

// BoundSet is a snapshot of one heap set at the time it was bound.
type BoundSet struct {
	Heap     string
	Set      uint32
	Slots    []BoundSlot
	Barriers []BarrierRecord
}

// Resources lists the bound resource of every slot in heap binding order, nil for
// slots never written.
func (b BoundSet) Resources() []metadata.Resource {
	out := make([]metadata.Resource, len(b.Slots))
	for i, s := range b.Slots {
		out[i] = s.Resource
	}
	return out
}

// Recorder stands in for a command buffer. It collects heap barriers and records
// what every bound set references.
type Recorder struct {
	pending []BarrierRecord
	bound   []BoundSet
	draws   int
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) InsertBufferBarrier(slot uint32, buffer metadata.Buffer, stages metadata.StageFlags) {
	r.pending = append(r.pending, BarrierRecord{Slot: slot, Kind: heap.BarrierBuffer, Resource: buffer, Stages: stages})
}

func (r *Recorder) InsertImageBarrier(slot uint32, texture metadata.Texture, stages metadata.StageFlags) {
	r.pending = append(r.pending, BarrierRecord{Slot: slot, Kind: heap.BarrierImage, Resource: texture, Stages: stages})
}

// BindResourceHeap flushes the set's barriers and snapshots its descriptors.
func (r *Recorder) BindResourceHeap(h *heap.ResourceHeap, set uint32) (BoundSet, error) {
	r.pending = r.pending[:0]
	if _, err := h.SetBarrierSlots(r, set); err != nil {
		return BoundSet{}, err
	}
	native, err := h.DescriptorSet(set)
	if err != nil {
		return BoundSet{}, err
	}
	ds, ok := native.(*DescriptorSet)
	if !ok {
		return BoundSet{}, fmt.Errorf("heap %q was not created by a headless device: %w", h.Name(), core.ErrMismatch)
	}

	layout := h.Layout()
	bs := BoundSet{
		Heap:     h.Name(),
		Set:      set,
		Slots:    make([]BoundSlot, len(layout.Bindings)),
		Barriers: append([]BarrierRecord(nil), r.pending...),
	}
	for i, hb := range layout.Bindings {
		bs.Slots[i], _ = ds.Slot(hb.Binding.Slot, hb.ArrayElement)
	}
	r.bound = append(r.bound, bs)
	return bs, nil
}

func (r *Recorder) Draw() {
	r.draws++
}

func (r *Recorder) Bound() []BoundSet {
	return r.bound
}

func (r *Recorder) Draws() int {
	return r.draws
}

func (r *Recorder) Reset() {
	r.pending = r.pending[:0]
	r.bound = r.bound[:0]
	r.draws = 0
}
