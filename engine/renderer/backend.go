package renderer

import (
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/heap"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

type RendererBackend interface {
	Initialize(appName string, cfg *core.Config) error
	Shutdown() error
	BeginFrame(frame uint64) error
	EndFrame(frame uint64) error
	// Device is what resource heaps are created on.
	Device() heap.Device
	PipelineLayoutCreate(name string, bindings []metadata.Binding) (metadata.PipelineLayout, error)
	PipelineLayoutDestroy(layout metadata.PipelineLayout)
	TextureCreate(name string, desc metadata.TextureDescriptor) (metadata.Texture, error)
	BufferCreate(name string, desc metadata.BufferDescriptor) (metadata.Buffer, error)
	SamplerCreate(name string, desc metadata.SamplerDescriptor) (metadata.Sampler, error)
	ResourceDestroy(resource metadata.Resource)
	// BindResourceHeap binds one descriptor set of the heap for the current frame after
	// recording the barriers it needs.
	BindResourceHeap(h *heap.ResourceHeap, set uint32) error
}
