package heap

import "github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"

// Native handles are opaque to the heap. Each backend stores its own types in them and
// type-asserts them back.
type (
	DescriptorPool any
	DescriptorSet  any
	ImageView      any
	BufferView     any
)

// DescriptorWrite is one slot update handed to the device. Exactly one of the view or
// range fields applies, depending on Type.
type DescriptorWrite struct {
	Set          DescriptorSet
	SetIndex     uint32
	Binding      uint32
	ArrayElement uint32
	Type         metadata.DescriptorType

	Resource metadata.Resource
	// ImageView is nil when the texture's default view is bound.
	ImageView ImageView
	// BufferView is set for texel buffers only.
	BufferView BufferView
	// Offset and Range locate a plain buffer binding.
	Offset uint64
	Range  uint64
	// Sampler for sampler and combined bindings. May be nil for combined bindings.
	Sampler      metadata.Sampler
	InitialCount uint32
}

// Device is what a resource heap needs from a backend.
type Device interface {
	CreateDescriptorPool(name string, sizes []PoolSize, maxSets uint32) (DescriptorPool, error)
	DestroyDescriptorPool(pool DescriptorPool)
	// AllocateDescriptorSets returns count sets laid out after the layout's heap bindings.
	AllocateDescriptorSets(pool DescriptorPool, layout metadata.PipelineLayout, count uint32) ([]DescriptorSet, error)

	CreateImageView(texture metadata.Texture, desc metadata.TextureViewDescriptor) (ImageView, error)
	DestroyImageView(view ImageView)
	CreateBufferView(buffer metadata.Buffer, desc metadata.BufferViewDescriptor) (BufferView, error)
	DestroyBufferView(view BufferView)

	// ValidateWrite rejects a single write the device cannot take, such as a misaligned
	// buffer offset. It runs per slot before batching, so a rejected write never fails
	// the rest of the batch.
	ValidateWrite(write DescriptorWrite) error
	// UpdateDescriptorSets applies every write in one batch.
	UpdateDescriptorSets(writes []DescriptorWrite) error
}
