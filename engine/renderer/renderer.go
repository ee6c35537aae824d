package renderer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/platform"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/headless"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/heap"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/vulkan"
)

type RendererType uint8

const (
	Headless RendererType = iota
	Vulkan
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	default:
		return "headless"
	}
}

func ParseRendererType(s string) (RendererType, error) {
	switch strings.ToLower(s) {
	case "headless", "":
		return Headless, nil
	case "vulkan":
		return Vulkan, nil
	}
	return Headless, fmt.Errorf("unknown renderer backend %q: %w", s, core.ErrConfiguration)
}

/**
 * @brief Front door of the render hardware interface. Owns the backend and every
 * resource heap created through it, so Shutdown can release whatever is left.
 */
type Renderer struct {
	backend    RendererBackend
	debugNames bool
	frame      uint64

	mutex   sync.Mutex
	heaps   map[*heap.ResourceHeap]struct{}
	layouts []metadata.PipelineLayout
}

func New(rendererType RendererType, p *platform.Platform) *Renderer {
	var backend RendererBackend
	switch rendererType {
	case Vulkan:
		backend = vulkan.New(p)
	default:
		backend = headless.New()
	}
	return NewWithBackend(backend)
}

// NewWithBackend wraps an already constructed backend.
func NewWithBackend(backend RendererBackend) *Renderer {
	return &Renderer{
		backend: backend,
		heaps:   make(map[*heap.ResourceHeap]struct{}),
	}
}

func (r *Renderer) Initialize(appName string, cfg *core.Config) error {
	r.debugNames = cfg.Heap.DebugNames
	if err := r.backend.Initialize(appName, cfg); err != nil {
		core.LogError("renderer backend failed to initialize: %s", err)
		return err
	}
	return nil
}

func (r *Renderer) Backend() RendererBackend {
	return r.backend
}

func (r *Renderer) Shutdown() error {
	r.mutex.Lock()
	heaps := make([]*heap.ResourceHeap, 0, len(r.heaps))
	for h := range r.heaps {
		heaps = append(heaps, h)
	}
	layouts := r.layouts
	r.heaps = make(map[*heap.ResourceHeap]struct{})
	r.layouts = nil
	r.mutex.Unlock()

	if len(heaps) > 0 {
		core.LogWarn("destroying %d resource heaps left alive at shutdown", len(heaps))
	}
	for _, h := range heaps {
		if err := h.Destroy(); err != nil {
			core.LogWarn("resource heap %q: %s", h.Name(), err)
		}
	}
	for _, l := range layouts {
		r.backend.PipelineLayoutDestroy(l)
	}
	return r.backend.Shutdown()
}

func (r *Renderer) BeginFrame() error {
	return r.backend.BeginFrame(r.frame)
}

func (r *Renderer) EndFrame() error {
	if err := r.backend.EndFrame(r.frame); err != nil {
		return err
	}
	r.frame++
	return nil
}

// FrameNumber is the number of frames ended so far.
func (r *Renderer) FrameNumber() uint64 {
	return r.frame
}

func (r *Renderer) PipelineLayoutCreate(name string, bindings []metadata.Binding) (metadata.PipelineLayout, error) {
	layout, err := r.backend.PipelineLayoutCreate(name, bindings)
	if err != nil {
		return nil, err
	}
	r.mutex.Lock()
	r.layouts = append(r.layouts, layout)
	r.mutex.Unlock()
	return layout, nil
}

func (r *Renderer) TextureCreate(name string, desc metadata.TextureDescriptor) (metadata.Texture, error) {
	return r.backend.TextureCreate(name, desc)
}

func (r *Renderer) BufferCreate(name string, desc metadata.BufferDescriptor) (metadata.Buffer, error) {
	return r.backend.BufferCreate(name, desc)
}

func (r *Renderer) SamplerCreate(name string, desc metadata.SamplerDescriptor) (metadata.Sampler, error) {
	return r.backend.SamplerCreate(name, desc)
}

// ResourceDestroy releases a texture, buffer or sampler. Heaps still referencing it
// must be rewritten or destroyed first.
func (r *Renderer) ResourceDestroy(resource metadata.Resource) {
	r.backend.ResourceDestroy(resource)
}

/**
 * @brief Creates a resource heap on the backend device. Heaps without a debug name get
 * a generated one when [heap].debug_names is set.
 */
func (r *Renderer) ResourceHeapCreate(desc metadata.ResourceHeapDescriptor, initial []metadata.ResourceViewDescriptor) (*heap.ResourceHeap, error) {
	if r.debugNames {
		desc.DebugName = core.IdentifierOrDefault(desc.DebugName, "ResourceHeap")
	}
	h, err := heap.Create(r.backend.Device(), desc, initial)
	if err != nil {
		return nil, err
	}
	r.mutex.Lock()
	r.heaps[h] = struct{}{}
	r.mutex.Unlock()
	return h, nil
}

func (r *Renderer) ResourceHeapWrite(h *heap.ResourceHeap, firstDescriptor uint32, views []metadata.ResourceViewDescriptor) (int, error) {
	return h.WriteResourceViews(firstDescriptor, views)
}

func (r *Renderer) ResourceHeapBind(h *heap.ResourceHeap, set uint32) error {
	return r.backend.BindResourceHeap(h, set)
}

func (r *Renderer) ResourceHeapDestroy(h *heap.ResourceHeap) error {
	r.mutex.Lock()
	delete(r.heaps, h)
	r.mutex.Unlock()
	return h.Destroy()
}

// LiveResourceHeaps is the number of heaps created and not yet destroyed.
func (r *Renderer) LiveResourceHeaps() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.heaps)
}
