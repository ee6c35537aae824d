package headless

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/heap"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

type DescriptorPool struct {
	name      string
	sizes     []heap.PoolSize
	maxSets   uint32
	sets      []*DescriptorSet
	destroyed bool
}

func (p *DescriptorPool) Name() string           { return p.name }
func (p *DescriptorPool) Sizes() []heap.PoolSize { return p.sizes }
func (p *DescriptorPool) MaxSets() uint32        { return p.maxSets }
func (p *DescriptorPool) Destroyed() bool        { return p.destroyed }

type slotKey struct {
	binding uint32
	element uint32
}

// BoundSlot is what one descriptor currently references.
type BoundSlot struct {
	Type         metadata.DescriptorType
	Resource     metadata.Resource
	ImageView    *ImageView
	BufferView   *BufferView
	Offset       uint64
	Range        uint64
	Sampler      metadata.Sampler
	InitialCount uint32
}

type DescriptorSet struct {
	id     uint64
	pool   *DescriptorPool
	layout metadata.PipelineLayout
	slots  map[slotKey]BoundSlot
}

func (s *DescriptorSet) ID() uint64 { return s.id }

// Slot returns the contents of one descriptor. ok is false for a slot never written.
func (s *DescriptorSet) Slot(binding, element uint32) (BoundSlot, bool) {
	b, ok := s.slots[slotKey{binding, element}]
	return b, ok
}

func (s *DescriptorSet) Freed() bool {
	return s.pool.destroyed
}

type ImageView struct {
	id        uint64
	texture   *Texture
	desc      metadata.TextureViewDescriptor
	destroyed bool
}

func (v *ImageView) Texture() *Texture                          { return v.texture }
func (v *ImageView) Descriptor() metadata.TextureViewDescriptor { return v.desc }
func (v *ImageView) Destroyed() bool                            { return v.destroyed }

type BufferView struct {
	id        uint64
	buffer    *Buffer
	desc      metadata.BufferViewDescriptor
	destroyed bool
}

func (v *BufferView) Buffer() *Buffer                           { return v.buffer }
func (v *BufferView) Descriptor() metadata.BufferViewDescriptor { return v.desc }
func (v *BufferView) Destroyed() bool                           { return v.destroyed }

// Device is an in-memory heap.Device. It enforces the configured limits and the view
// rules a real driver would, so heap behavior can be checked without a GPU.
type Device struct {
	limits core.LimitsConfig

	mutex           sync.Mutex
	nextID          uint64
	liveSets        uint32
	liveImageViews  uint32
	liveBufferViews uint32
	updateBatches   uint64
}

func NewDevice(limits core.LimitsConfig) *Device {
	return &Device{limits: limits}
}

func (d *Device) Limits() core.LimitsConfig {
	return d.limits
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// typeLimit returns the per-pool maximum for t, zero meaning unlimited.
func (d *Device) typeLimit(t metadata.DescriptorType) uint32 {
	switch t {
	case metadata.DescriptorTypeSampler:
		return d.limits.MaxSamplers
	case metadata.DescriptorTypeCombinedImageSampler:
		return d.limits.MaxCombinedImageSamplers
	case metadata.DescriptorTypeSampledImage:
		return d.limits.MaxSampledImages
	case metadata.DescriptorTypeStorageImage:
		return d.limits.MaxStorageImages
	case metadata.DescriptorTypeUniformBuffer:
		return d.limits.MaxUniformBuffers
	case metadata.DescriptorTypeStorageBuffer:
		return d.limits.MaxStorageBuffers
	case metadata.DescriptorTypeUniformTexelBuffer, metadata.DescriptorTypeStorageTexelBuffer:
		return d.limits.MaxTexelBuffers
	}
	return 0
}

func exceeds(n, limit uint32) bool {
	return limit != 0 && n > limit
}

func (d *Device) CreateDescriptorPool(name string, sizes []heap.PoolSize, maxSets uint32) (heap.DescriptorPool, error) {
	if maxSets == 0 {
		return nil, fmt.Errorf("descriptor pool %q with zero sets: %w", name, core.ErrAllocation)
	}
	if exceeds(maxSets, d.limits.MaxSets) {
		return nil, fmt.Errorf("descriptor pool %q: %d sets exceed the limit of %d: %w", name, maxSets, d.limits.MaxSets, core.ErrAllocation)
	}
	for _, s := range sizes {
		if limit := d.typeLimit(s.Type); exceeds(s.Count, limit) {
			return nil, fmt.Errorf("descriptor pool %q: %d %s descriptors exceed the limit of %d: %w", name, s.Count, s.Type, limit, core.ErrAllocation)
		}
	}
	owned := make([]heap.PoolSize, len(sizes))
	copy(owned, sizes)
	core.LogDebug("headless: descriptor pool %q created (%d sets, %v)", name, maxSets, owned)
	return &DescriptorPool{name: name, sizes: owned, maxSets: maxSets}, nil
}

func (d *Device) DestroyDescriptorPool(pool heap.DescriptorPool) {
	p, ok := pool.(*DescriptorPool)
	if !ok || p.destroyed {
		return
	}
	d.mutex.Lock()
	d.liveSets -= uint32(len(p.sets))
	d.mutex.Unlock()
	p.destroyed = true
}

func (d *Device) AllocateDescriptorSets(pool heap.DescriptorPool, layout metadata.PipelineLayout, count uint32) ([]heap.DescriptorSet, error) {
	p, ok := pool.(*DescriptorPool)
	if !ok || p.destroyed {
		return nil, fmt.Errorf("invalid descriptor pool: %w", core.ErrAllocation)
	}
	if uint64(len(p.sets))+uint64(count) > uint64(p.maxSets) {
		return nil, fmt.Errorf("descriptor pool %q exhausted: %d of %d sets in use, %d requested: %w", p.name, len(p.sets), p.maxSets, count, core.ErrAllocation)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	sets := make([]heap.DescriptorSet, count)
	for i := range sets {
		s := &DescriptorSet{id: d.id(), pool: p, layout: layout, slots: make(map[slotKey]BoundSlot)}
		p.sets = append(p.sets, s)
		sets[i] = s
	}
	d.liveSets += count
	return sets, nil
}

func (d *Device) CreateImageView(texture metadata.Texture, desc metadata.TextureViewDescriptor) (heap.ImageView, error) {
	t, ok := texture.(*Texture)
	if !ok {
		return nil, fmt.Errorf("%q is not a headless texture: %w", texture.Name(), core.ErrAllocation)
	}
	if !desc.Format.CompatibleWith(t.desc.Format) {
		return nil, fmt.Errorf("texture %q of format %s cannot be viewed as %s: %w", t.name, t.desc.Format, desc.Format, core.ErrAllocation)
	}
	if !desc.Subresource.Within(t.desc.NumMipLevels(), t.desc.NumArrayLayers()) {
		return nil, fmt.Errorf("subresource %+v outside texture %q: %w", desc.Subresource, t.name, core.ErrAllocation)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	if exceeds(d.liveImageViews+1, d.limits.MaxImageViews) {
		return nil, fmt.Errorf("image view limit of %d reached: %w", d.limits.MaxImageViews, core.ErrAllocation)
	}
	d.liveImageViews++
	return &ImageView{id: d.id(), texture: t, desc: desc}, nil
}

func (d *Device) DestroyImageView(view heap.ImageView) {
	v, ok := view.(*ImageView)
	if !ok || v.destroyed {
		return
	}
	d.mutex.Lock()
	d.liveImageViews--
	d.mutex.Unlock()
	v.destroyed = true
}

func (d *Device) CreateBufferView(buffer metadata.Buffer, desc metadata.BufferViewDescriptor) (heap.BufferView, error) {
	b, ok := buffer.(*Buffer)
	if !ok {
		return nil, fmt.Errorf("%q is not a headless buffer: %w", buffer.Name(), core.ErrAllocation)
	}
	if desc.Format == metadata.FormatUndefined {
		return nil, fmt.Errorf("buffer view of %q has no format: %w", b.name, core.ErrAllocation)
	}
	if _, _, ok := desc.Resolve(b.desc.Size); !ok || desc.Size == 0 {
		return nil, fmt.Errorf("range [%d, +%d) outside buffer %q: %w", desc.Offset, desc.Size, b.name, core.ErrAllocation)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	if exceeds(d.liveBufferViews+1, d.limits.MaxBufferViews) {
		return nil, fmt.Errorf("buffer view limit of %d reached: %w", d.limits.MaxBufferViews, core.ErrAllocation)
	}
	d.liveBufferViews++
	return &BufferView{id: d.id(), buffer: b, desc: desc}, nil
}

func (d *Device) DestroyBufferView(view heap.BufferView) {
	v, ok := view.(*BufferView)
	if !ok || v.destroyed {
		return
	}
	d.mutex.Lock()
	d.liveBufferViews--
	d.mutex.Unlock()
	v.destroyed = true
}

// ValidateWrite enforces the configured offset alignment of uniform and storage buffers.
func (d *Device) ValidateWrite(w heap.DescriptorWrite) error {
	switch w.Type {
	case metadata.DescriptorTypeUniformBuffer, metadata.DescriptorTypeStorageBuffer:
		if !metadata.IsAligned(w.Offset, d.limits.MinBufferOffsetAlignment) {
			return fmt.Errorf("offset %d of %s is not aligned to %d: %w",
				w.Offset, w.Type, d.limits.MinBufferOffsetAlignment, core.ErrConfiguration)
		}
	}
	return nil
}

// UpdateDescriptorSets validates the whole batch before applying any of it.
func (d *Device) UpdateDescriptorSets(writes []heap.DescriptorWrite) error {
	sets := make([]*DescriptorSet, len(writes))
	for i := range writes {
		w := &writes[i]
		s, ok := w.Set.(*DescriptorSet)
		if !ok || s.Freed() {
			return fmt.Errorf("write %d targets an invalid descriptor set: %w", i, core.ErrAllocation)
		}
		var image *ImageView
		if w.ImageView != nil {
			if image, ok = w.ImageView.(*ImageView); !ok || image.destroyed {
				return fmt.Errorf("write %d references a destroyed image view: %w", i, core.ErrAllocation)
			}
		}
		var buffer *BufferView
		if w.BufferView != nil {
			if buffer, ok = w.BufferView.(*BufferView); !ok || buffer.destroyed {
				return fmt.Errorf("write %d references a destroyed buffer view: %w", i, core.ErrAllocation)
			}
		}
		if w.Type.IsTexelBuffer() && buffer == nil {
			return fmt.Errorf("write %d: %s needs a buffer view: %w", i, w.Type, core.ErrAllocation)
		}
		sets[i] = s
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	for i := range writes {
		w := &writes[i]
		slot := BoundSlot{
			Type:         w.Type,
			Resource:     w.Resource,
			Offset:       w.Offset,
			Range:        w.Range,
			Sampler:      w.Sampler,
			InitialCount: w.InitialCount,
		}
		if w.ImageView != nil {
			slot.ImageView = w.ImageView.(*ImageView)
		}
		if w.BufferView != nil {
			slot.BufferView = w.BufferView.(*BufferView)
		}
		sets[i].slots[slotKey{w.Binding, w.ArrayElement}] = slot
	}
	d.updateBatches++
	return nil
}

// Stats reports live object counts and the number of applied update batches.
func (d *Device) Stats() (sets, imageViews, bufferViews uint32, batches uint64) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.liveSets, d.liveImageViews, d.liveBufferViews, d.updateBatches
}
