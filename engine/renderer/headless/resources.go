package headless

import (
	"fmt"

	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

type Texture struct {
	name string
	desc metadata.TextureDescriptor
}

func (t *Texture) ResourceKind() metadata.ResourceKind    { return metadata.ResourceKindTexture }
func (t *Texture) Name() string                           { return t.name }
func (t *Texture) Descriptor() metadata.TextureDescriptor { return t.desc }

type Buffer struct {
	name string
	desc metadata.BufferDescriptor
}

func (b *Buffer) ResourceKind() metadata.ResourceKind   { return metadata.ResourceKindBuffer }
func (b *Buffer) Name() string                          { return b.name }
func (b *Buffer) Descriptor() metadata.BufferDescriptor { return b.desc }

type Sampler struct {
	name string
	desc metadata.SamplerDescriptor
}

func (s *Sampler) ResourceKind() metadata.ResourceKind    { return metadata.ResourceKindSampler }
func (s *Sampler) Name() string                           { return s.name }
func (s *Sampler) Descriptor() metadata.SamplerDescriptor { return s.desc }

func TextureCreate(name string, desc metadata.TextureDescriptor) (*Texture, error) {
	if desc.Format == metadata.FormatUndefined {
		return nil, fmt.Errorf("texture %q has no format: %w", name, core.ErrConfiguration)
	}
	if desc.Width == 0 {
		return nil, fmt.Errorf("texture %q has zero width: %w", name, core.ErrConfiguration)
	}
	return &Texture{name: core.IdentifierOrDefault(name, "Texture"), desc: desc}, nil
}

func BufferCreate(name string, desc metadata.BufferDescriptor) (*Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("buffer %q has zero size: %w", name, core.ErrConfiguration)
	}
	return &Buffer{name: core.IdentifierOrDefault(name, "Buffer"), desc: desc}, nil
}

func SamplerCreate(name string, desc metadata.SamplerDescriptor) (*Sampler, error) {
	return &Sampler{name: core.IdentifierOrDefault(name, "Sampler"), desc: desc}, nil
}

// PipelineLayout is a finished list of heap bindings.
type PipelineLayout struct {
	name     string
	bindings []metadata.Binding
}

func (l *PipelineLayout) Name() string                     { return l.name }
func (l *PipelineLayout) HeapBindings() []metadata.Binding { return l.bindings }

// PipelineLayoutCreate rejects undefined binding kinds and slot numbers used twice.
func PipelineLayoutCreate(name string, bindings []metadata.Binding) (*PipelineLayout, error) {
	seen := make(map[uint32]string, len(bindings))
	for _, b := range bindings {
		if b.Kind == metadata.ResourceKindUndefined {
			return nil, fmt.Errorf("layout %q: binding %s has no kind: %w", name, b, core.ErrConfiguration)
		}
		if other, dup := seen[b.Slot]; dup {
			return nil, fmt.Errorf("layout %q: slot %d used by %s and %s: %w", name, b.Slot, other, b, core.ErrConfiguration)
		}
		seen[b.Slot] = b.String()
	}
	owned := make([]metadata.Binding, len(bindings))
	copy(owned, bindings)
	return &PipelineLayout{name: core.IdentifierOrDefault(name, "PipelineLayout"), bindings: owned}, nil
}
