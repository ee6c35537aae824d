package testbed

import (
	"errors"
	"fmt"
	"os"

	"github.com/spaghettifunk/anima-rhi/engine"
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/heap"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/webgpu"
)

// Binding order of the testbed layout. The heap addresses a slot as set*numBindings+binding.
const (
	bindingFrame uint32 = iota
	bindingAtlas
	bindingParticles
	bindingLUT
	bindingOutput

	numBindings
)

const (
	atlasLayers     = 4
	atlasMipLevels  = 5
	particleStride  = 32
	particlesPerSet = 1024
	// particle ranges are rewritten every particleInterval frames
	particleInterval = 4
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	framesInFlight uint32
	elapsed        float64

	layout    metadata.PipelineLayout
	heap      *heap.ResourceHeap
	sampler   metadata.Sampler
	atlas     metadata.Texture
	particles metadata.Buffer
	lut       metadata.Buffer
	constants []metadata.Buffer
	outputs   []metadata.Texture

	partialWrites int
}

func NewTestGame(appConfig *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: appConfig,
			State:             &gameState{},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed...")
	s := g.state()
	s.framesInFlight = g.Config.Heap.FramesInFlight
	r := g.Renderer

	var err error
	s.sampler, err = r.SamplerCreate("testbed.linear", metadata.SamplerDescriptor{
		MinFilter:     metadata.TextureFilterModeLinear,
		MagFilter:     metadata.TextureFilterModeLinear,
		MipFilter:     metadata.TextureFilterModeLinear,
		RepeatU:       metadata.TextureRepeatRepeat,
		RepeatV:       metadata.TextureRepeatRepeat,
		RepeatW:       metadata.TextureRepeatClampToEdge,
		MaxAnisotropy: 4,
	})
	if err != nil {
		return err
	}

	s.layout, err = r.PipelineLayoutCreate("testbed.layout", []metadata.Binding{
		{Name: "frame", Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagConstantBuffer,
			Slot: 0, Stages: metadata.StageVertex | metadata.StageFragment},
		{Name: "atlas", Kind: metadata.ResourceKindCombined, BindFlags: metadata.BindFlagSampled,
			Slot: 1, Stages: metadata.StageFragment, StaticSampler: s.sampler},
		{Name: "particles", Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagStorage,
			Slot: 2, Stages: metadata.StageCompute | metadata.StageVertex, NeedsBarrier: true},
		{Name: "lut", Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagTyped | metadata.BindFlagSampled,
			Slot: 3, Stages: metadata.StageCompute},
		{Name: "output", Kind: metadata.ResourceKindTexture, BindFlags: metadata.BindFlagStorage,
			Slot: 4, Stages: metadata.StageCompute, NeedsBarrier: true},
	})
	if err != nil {
		return err
	}

	if err := g.createResources(); err != nil {
		return err
	}

	initial := make([]metadata.ResourceViewDescriptor, 0, s.framesInFlight*numBindings)
	for set := uint32(0); set < s.framesInFlight; set++ {
		initial = append(initial,
			metadata.NewResourceView(s.constants[set]),
			metadata.NewTextureResourceView(s.atlas, atlasLayerView(set%atlasLayers, 0)),
			metadata.NewBufferResourceView(s.particles, particleRange(set, 0)),
			metadata.NewResourceView(s.lut),
			metadata.NewResourceView(s.outputs[set]),
		)
	}
	s.heap, err = r.ResourceHeapCreate(metadata.ResourceHeapDescriptor{
		DebugName:      "testbed.frames",
		PipelineLayout: s.layout,
	}, initial)
	if err != nil {
		return err
	}
	core.LogInfo("testbed heap %q: %d sets of %d bindings", s.heap.Name(), s.heap.NumDescriptorSets(), s.heap.NumBindings())
	return nil
}

func (g *TestGame) createResources() error {
	s := g.state()
	r := g.Renderer

	var err error
	s.atlas, err = r.TextureCreate("testbed.atlas", metadata.TextureDescriptor{
		Type:        metadata.TextureType2dArray,
		Format:      metadata.FormatRGBA8UNormSRGB,
		Width:       512,
		Height:      512,
		Depth:       1,
		MipLevels:   atlasMipLevels,
		ArrayLayers: atlasLayers,
		BindFlags:   metadata.BindFlagSampled,
	})
	if err != nil {
		return err
	}
	s.particles, err = r.BufferCreate("testbed.particles", metadata.BufferDescriptor{
		Size:      uint64(s.framesInFlight) * particlesPerSet * particleStride,
		Stride:    particleStride,
		BindFlags: metadata.BindFlagStorage,
	})
	if err != nil {
		return err
	}
	s.lut, err = r.BufferCreate("testbed.lut", metadata.BufferDescriptor{
		Size:      256 * 4,
		Format:    metadata.FormatR32Float,
		BindFlags: metadata.BindFlagTyped | metadata.BindFlagSampled,
	})
	if err != nil {
		return err
	}

	s.constants = make([]metadata.Buffer, s.framesInFlight)
	s.outputs = make([]metadata.Texture, s.framesInFlight)
	for i := range s.framesInFlight {
		s.constants[i], err = r.BufferCreate(fmt.Sprintf("testbed.frame[%d]", i), metadata.BufferDescriptor{
			Size:      256,
			BindFlags: metadata.BindFlagConstantBuffer,
		})
		if err != nil {
			return err
		}
		s.outputs[i], err = r.TextureCreate(fmt.Sprintf("testbed.output[%d]", i), metadata.TextureDescriptor{
			Type:      metadata.TextureType2d,
			Format:    metadata.FormatRGBA8UNorm,
			Width:     256,
			Height:    256,
			Depth:     1,
			BindFlags: metadata.BindFlagStorage | metadata.BindFlagSampled,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// atlasLayerView selects one layer of the atlas starting at mip, through the end of
// the mip chain.
func atlasLayerView(layer, mip uint32) metadata.TextureViewDescriptor {
	return metadata.TextureViewDescriptor{
		Type:   metadata.TextureType2d,
		Format: metadata.FormatRGBA8UNormSRGB,
		Subresource: metadata.TextureSubresource{
			BaseMipLevel:   mip,
			NumMipLevels:   atlasMipLevels - mip,
			BaseArrayLayer: layer,
			NumArrayLayers: 1,
		},
	}
}

// particleRange is the slice of the particle buffer owned by set. The window is split
// in two halves and generation alternates between them.
func particleRange(set uint32, generation uint64) metadata.BufferViewDescriptor {
	half := uint64(particlesPerSet/2) * particleStride
	return metadata.BufferViewDescriptor{
		Offset: uint64(set)*particlesPerSet*particleStride + (generation%2)*half,
		Size:   half,
	}
}

func (g *TestGame) Update(deltaTime float64) error {
	g.state().elapsed += deltaTime
	return nil
}

// Render rewrites the descriptors of the set owned by this frame and binds it. Only
// that set is touched, so the sets of frames still in flight stay valid.
func (g *TestGame) Render(frame uint64, deltaTime float64) error {
	s := g.state()
	set := uint32(frame % uint64(s.framesInFlight))
	base := set * numBindings

	layer := uint32(frame/uint64(s.framesInFlight)) % atlasLayers
	mip := uint32(frame % atlasMipLevels)
	if err := g.write(base+bindingAtlas, metadata.NewTextureResourceView(s.atlas, atlasLayerView(layer, mip))); err != nil {
		return err
	}

	if frame%particleInterval == 0 {
		// particles and lut in one call; the null lut entry keeps its current binding
		if err := g.write(base+bindingParticles,
			metadata.NewBufferResourceView(s.particles, particleRange(set, frame/particleInterval)),
			metadata.ResourceViewDescriptor{},
		); err != nil {
			return err
		}
	}
	return g.Renderer.ResourceHeapBind(s.heap, set)
}

// write applies views at a global descriptor index. Slot failures are logged and
// counted, anything else aborts the frame.
func (g *TestGame) write(first uint32, views ...metadata.ResourceViewDescriptor) error {
	s := g.state()
	_, err := g.Renderer.ResourceHeapWrite(s.heap, first, views)
	var partial *core.PartialWriteError
	if errors.As(err, &partial) {
		s.partialWrites++
		core.LogWarn("testbed: %s", partial)
		return nil
	}
	return err
}

// PartialWrites is the number of writes that left at least one slot unwritten.
func (g *TestGame) PartialWrites() int {
	return g.state().partialWrites
}

func (g *TestGame) Heap() *heap.ResourceHeap {
	return g.state().heap
}

// ExportWebGPU writes the testbed layout as WebGPU bind group entries to path.
func (g *TestGame) ExportWebGPU(path string) error {
	s := g.state()
	if s.layout == nil {
		return fmt.Errorf("testbed is not initialized: %w", core.ErrConfiguration)
	}
	bgl, err := webgpu.BindGroupLayoutEntries(s.layout, webgpu.ExportOptions{StorageTextureFormat: metadata.FormatRGBA8UNorm})
	if err != nil {
		return err
	}
	data, err := bgl.MarshalTOML(s.layout.Name())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	core.LogInfo("exported %d bind group entries of %q to %s", len(bgl.Entries), s.layout.Name(), path)
	return nil
}

func (g *TestGame) Shutdown() error {
	s := g.state()
	r := g.Renderer
	if s.heap != nil {
		if err := r.ResourceHeapDestroy(s.heap); err != nil {
			return err
		}
		s.heap = nil
	}
	resources := []metadata.Resource{s.atlas, s.particles, s.lut, s.sampler}
	for i := range s.constants {
		resources = append(resources, s.constants[i], s.outputs[i])
	}
	for _, res := range resources {
		if res != nil {
			r.ResourceDestroy(res)
		}
	}
	core.LogInfo("testbed ran %.2fs with %d partial writes", s.elapsed, s.partialWrites)
	return nil
}
