package heap

import "github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"

type BarrierKind uint8

const (
	BarrierNone BarrierKind = iota
	BarrierBuffer
	BarrierImage
)

// BarrierResource is the resource tracked by one barrier slot: a buffer, an image or
// nothing yet. Only the accessor matching Kind returns a value.
type BarrierResource struct {
	kind    BarrierKind
	buffer  metadata.Buffer
	texture metadata.Texture
	stages  metadata.StageFlags
}

func BufferBarrier(buffer metadata.Buffer, stages metadata.StageFlags) BarrierResource {
	return BarrierResource{kind: BarrierBuffer, buffer: buffer, stages: stages}
}

func ImageBarrier(texture metadata.Texture, stages metadata.StageFlags) BarrierResource {
	return BarrierResource{kind: BarrierImage, texture: texture, stages: stages}
}

func (r BarrierResource) Kind() BarrierKind {
	return r.kind
}

func (r BarrierResource) Stages() metadata.StageFlags {
	return r.stages
}

func (r BarrierResource) Buffer() (metadata.Buffer, bool) {
	return r.buffer, r.kind == BarrierBuffer
}

func (r BarrierResource) Texture() (metadata.Texture, bool) {
	return r.texture, r.kind == BarrierImage
}

// BarrierAccumulator collects the barriers a command recorder must issue before a
// draw or dispatch.
type BarrierAccumulator interface {
	InsertBufferBarrier(slot uint32, buffer metadata.Buffer, stages metadata.StageFlags)
	InsertImageBarrier(slot uint32, texture metadata.Texture, stages metadata.StageFlags)
}

// BarrierSlotTable holds numSets rows of barrier slots. Its shape is fixed at creation.
type BarrierSlotTable struct {
	numSlots          uint32
	numBufferBarriers uint32
	numImageBarriers  uint32
	slots             []BarrierResource
}

func NewBarrierSlotTable(info LayoutInfo, numSets uint32) *BarrierSlotTable {
	return &BarrierSlotTable{
		numSlots:          info.NumBarrierSlots,
		numBufferBarriers: info.NumBufferBarriers,
		numImageBarriers:  info.NumImageBarriers,
		slots:             make([]BarrierResource, info.NumBarrierSlots*numSets),
	}
}

func (t *BarrierSlotTable) NumSlots() uint32 {
	return t.numSlots
}

func (t *BarrierSlotTable) NumBufferBarriers() uint32 {
	return t.numBufferBarriers
}

func (t *BarrierSlotTable) NumImageBarriers() uint32 {
	return t.numImageBarriers
}

func (t *BarrierSlotTable) Set(set, slot uint32, r BarrierResource) {
	t.slots[set*t.numSlots+slot] = r
}

func (t *BarrierSlotTable) Get(set, slot uint32) BarrierResource {
	return t.slots[set*t.numSlots+slot]
}

// Export hands every occupied slot of the set to acc and returns how many it emitted.
func (t *BarrierSlotTable) Export(set uint32, acc BarrierAccumulator) int {
	n := 0
	row := t.slots[set*t.numSlots : (set+1)*t.numSlots]
	for slot, r := range row {
		switch r.kind {
		case BarrierBuffer:
			acc.InsertBufferBarrier(uint32(slot), r.buffer, r.stages)
			n++
		case BarrierImage:
			acc.InsertImageBarrier(uint32(slot), r.texture, r.stages)
			n++
		}
	}
	return n
}
