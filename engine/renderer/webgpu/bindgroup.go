package webgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/heap"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

// TextureFormat maps a heap format to its WebGPU equivalent. ok is false for formats
// WebGPU has no counterpart for.
func TextureFormat(f metadata.Format) (gputypes.TextureFormat, bool) {
	switch f {
	case metadata.FormatR8UNorm:
		return gputypes.TextureFormatR8Unorm, true
	case metadata.FormatRG8UNorm:
		return gputypes.TextureFormatRG8Unorm, true
	case metadata.FormatRGBA8UNorm:
		return gputypes.TextureFormatRGBA8Unorm, true
	case metadata.FormatRGBA8UNormSRGB:
		return gputypes.TextureFormatRGBA8UnormSrgb, true
	case metadata.FormatBGRA8UNorm:
		return gputypes.TextureFormatBGRA8Unorm, true
	case metadata.FormatBGRA8UNormSRGB:
		return gputypes.TextureFormatBGRA8UnormSrgb, true
	case metadata.FormatRGBA8UInt:
		return gputypes.TextureFormatRGBA8Uint, true
	case metadata.FormatR16Float:
		return gputypes.TextureFormatR16Float, true
	case metadata.FormatRG16Float:
		return gputypes.TextureFormatRG16Float, true
	case metadata.FormatRGBA16Float:
		return gputypes.TextureFormatRGBA16Float, true
	case metadata.FormatR32UInt:
		return gputypes.TextureFormatR32Uint, true
	case metadata.FormatR32SInt:
		return gputypes.TextureFormatR32Sint, true
	case metadata.FormatR32Float:
		return gputypes.TextureFormatR32Float, true
	case metadata.FormatRG32Float:
		return gputypes.TextureFormatRG32Float, true
	case metadata.FormatRGBA32Float:
		return gputypes.TextureFormatRGBA32Float, true
	case metadata.FormatD32Float:
		return gputypes.TextureFormatDepth32Float, true
	case metadata.FormatD24UNormS8UInt:
		return gputypes.TextureFormatDepth24PlusStencil8, true
	}
	return gputypes.TextureFormatUndefined, false
}

/**
 * @brief Where one heap slot lands in the exported bind group. WebGPU has neither
 * descriptor arrays nor combined image samplers, so every array element gets its own
 * binding number and a combined slot adds a second entry for its sampler.
 */
type BindGroupSlot struct {
	// Index into the heap layout's bindings, which is also the slot's offset inside a set.
	HeapIndex    uint32
	Name         string
	ArrayElement uint32
	Binding      uint32
	// SamplerBinding is set for combined slots only.
	SamplerBinding heap.OptionalIndex
}

type BindGroupLayout struct {
	Entries []gputypes.BindGroupLayoutEntry
	Slots   []BindGroupSlot
}

func samplerEntry(binding uint32, stages metadata.StageFlags) gputypes.BindGroupLayoutEntry {
	entry := gputypes.BindGroupLayoutEntry{
		Binding: binding,
		Sampler: &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
	}
	setVisibility(&entry, stages)
	return entry
}

func setVisibility(entry *gputypes.BindGroupLayoutEntry, stages metadata.StageFlags) {
	if stages == 0 {
		stages = metadata.StageAll
	}
	// WebGPU only knows vertex, fragment and compute; the other graphics stages run as
	// vertex work there.
	if stages&(metadata.StageVertex|metadata.StageTessControl|metadata.StageTessEvaluation|metadata.StageGeometry) != 0 {
		entry.Visibility |= gputypes.ShaderStageVertex
	}
	if stages&metadata.StageFragment != 0 {
		entry.Visibility |= gputypes.ShaderStageFragment
	}
	if stages&metadata.StageCompute != 0 {
		entry.Visibility |= gputypes.ShaderStageCompute
	}
}

func entryFor(hb heap.HeapBinding, binding uint32, storageFormat gputypes.TextureFormat) (gputypes.BindGroupLayoutEntry, error) {
	b := hb.Binding
	entry := gputypes.BindGroupLayoutEntry{Binding: binding}
	setVisibility(&entry, b.Stages)

	switch hb.Type {
	case metadata.DescriptorTypeSampler:
		entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}

	case metadata.DescriptorTypeSampledImage, metadata.DescriptorTypeCombinedImageSampler:
		entry.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}

	case metadata.DescriptorTypeStorageImage:
		entry.StorageTexture = &gputypes.StorageTextureBindingLayout{
			Access:        gputypes.StorageTextureAccessReadWrite,
			Format:        storageFormat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}

	case metadata.DescriptorTypeUniformBuffer:
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}

	case metadata.DescriptorTypeUniformTexelBuffer:
		// no texel buffers in WebGPU; typed reads go through a read-only storage buffer
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}

	case metadata.DescriptorTypeStorageBuffer, metadata.DescriptorTypeStorageTexelBuffer:
		if b.BindFlags&metadata.BindFlagStorage == 0 {
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
		} else {
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
		}

	default:
		return entry, fmt.Errorf("binding %s has no WebGPU equivalent: %w", b, core.ErrConfiguration)
	}
	return entry, nil
}

type ExportOptions struct {
	// StorageTextureFormat is declared for every storage texture, since heap bindings do
	// not carry one. Defaults to RGBA8UNorm.
	StorageTextureFormat metadata.Format
}

// BindGroupLayoutEntries flattens a heap layout into one WebGPU bind group layout.
// Binding numbers are assigned densely in heap order.
func BindGroupLayoutEntries(layout metadata.PipelineLayout, opts ExportOptions) (*BindGroupLayout, error) {
	if layout == nil {
		return nil, fmt.Errorf("pipeline layout is nil: %w", core.ErrConfiguration)
	}
	if opts.StorageTextureFormat == metadata.FormatUndefined {
		opts.StorageTextureFormat = metadata.FormatRGBA8UNorm
	}
	storageFormat, ok := TextureFormat(opts.StorageTextureFormat)
	if !ok || opts.StorageTextureFormat.IsDepthStencil() {
		return nil, fmt.Errorf("%s cannot back a WebGPU storage texture: %w", opts.StorageTextureFormat, core.ErrConfiguration)
	}
	info := heap.TranslateLayout(layout.HeapBindings())
	out := &BindGroupLayout{
		Entries: make([]gputypes.BindGroupLayoutEntry, 0, len(info.Bindings)),
		Slots:   make([]BindGroupSlot, 0, len(info.Bindings)),
	}

	next := uint32(0)
	for i, hb := range info.Bindings {
		entry, err := entryFor(hb, next, storageFormat)
		if err != nil {
			core.LogError("layout %q: %s", layout.Name(), err)
			return nil, err
		}
		slot := BindGroupSlot{
			HeapIndex:      uint32(i),
			Name:           hb.Binding.String(),
			ArrayElement:   hb.ArrayElement,
			Binding:        next,
			SamplerBinding: heap.NoIndex,
		}
		out.Entries = append(out.Entries, entry)
		next++

		if hb.Type == metadata.DescriptorTypeCombinedImageSampler {
			out.Entries = append(out.Entries, samplerEntry(next, hb.Binding.Stages))
			slot.SamplerBinding = heap.IndexOf(next)
			next++
		}
		out.Slots = append(out.Slots, slot)
	}
	return out, nil
}

type exportedEntry struct {
	Binding    uint32 `toml:"binding"`
	Slot       string `toml:"slot"`
	Element    uint32 `toml:"element"`
	Resource   string `toml:"resource"`
	Visibility uint32 `toml:"visibility"`
}

type exportedLayout struct {
	Layout  string          `toml:"layout"`
	Entries []exportedEntry `toml:"entry"`
}

func entryResource(e gputypes.BindGroupLayoutEntry) string {
	switch {
	case e.Buffer != nil:
		return "buffer"
	case e.Sampler != nil:
		return "sampler"
	case e.Texture != nil:
		return "texture"
	case e.StorageTexture != nil:
		return "storage_texture"
	}
	return "unknown"
}

// MarshalTOML renders the bind group layout so it can be diffed against shader
// reflection output.
func (l *BindGroupLayout) MarshalTOML(name string) ([]byte, error) {
	out := exportedLayout{Layout: name}
	slotOf := make(map[uint32]BindGroupSlot, len(l.Slots)*2)
	for _, s := range l.Slots {
		slotOf[s.Binding] = s
		if b, ok := s.SamplerBinding.Get(); ok {
			slotOf[b] = s
		}
	}
	for _, e := range l.Entries {
		s := slotOf[e.Binding]
		out.Entries = append(out.Entries, exportedEntry{
			Binding:    e.Binding,
			Slot:       s.Name,
			Element:    s.ArrayElement,
			Resource:   entryResource(e),
			Visibility: uint32(e.Visibility),
		})
	}
	return toml.Marshal(out)
}
