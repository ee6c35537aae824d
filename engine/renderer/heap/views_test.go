package heap_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/headless"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/heap"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
)

// rejectingDevice fails whole update batches while reject is set.
type rejectingDevice struct {
	*headless.Device
	reject bool
}

func (d *rejectingDevice) UpdateDescriptorSets(writes []heap.DescriptorWrite) error {
	if d.reject {
		return fmt.Errorf("batch of %d write(s) rejected: %w", len(writes), core.ErrAllocation)
	}
	return d.Device.UpdateDescriptorSets(writes)
}

func texelLayout(t *testing.T) *headless.PipelineLayout {
	return mustLayout(t, metadata.Binding{Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagSampled | metadata.BindFlagTyped, Slot: 0})
}

func TestRejectedBatchKeepsImageView(t *testing.T) {
	layout := mustLayout(t, metadata.Binding{Kind: metadata.ResourceKindTexture, BindFlags: metadata.BindFlagSampled, Slot: 0})
	device := &rejectingDevice{Device: headless.NewDevice(core.LimitsConfig{})}
	h, err := heap.Create(device, metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	tex := mustTexture(t, "tex", metadata.FormatRGBA8UNorm)
	mip0 := metadata.TextureViewDescriptor{
		Type:        metadata.TextureType2d,
		Format:      metadata.FormatRGBA8UNorm,
		Subresource: metadata.TextureSubresource{NumMipLevels: 1, NumArrayLayers: 1},
	}
	mip1 := mip0
	mip1.Subresource.BaseMipLevel = 1

	if _, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{metadata.NewTextureResourceView(tex, mip0)}); err != nil {
		t.Fatal(err)
	}
	previous := bound(t, h, 0).Slots[0].ImageView

	tests := []struct {
		name string
		view metadata.ResourceViewDescriptor
	}{
		{"new range", metadata.NewTextureResourceView(tex, mip1)},
		{"default view", metadata.NewResourceView(tex)},
	}
	device.reject = true
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{tt.view})
			if n != 0 || !errors.Is(err, core.ErrAllocation) {
				t.Fatalf("WriteResourceViews() = %d, %v; want 0, ErrAllocation", n, err)
			}
			if got := bound(t, h, 0).Slots[0].ImageView; got != previous {
				t.Errorf("slot holds %p after a rejected batch, want %p", got, previous)
			}
			if previous.Destroyed() {
				t.Error("rejected batch destroyed the bound view")
			}
			if images, _ := h.LiveViews(); images != 1 {
				t.Errorf("heap owns %d image views, want 1", images)
			}
			if _, imageViews, _, _ := device.Stats(); imageViews != 1 {
				t.Errorf("device holds %d image views, want 1", imageViews)
			}
		})
	}

	device.reject = false
	before := core.MetricsSnapshot()
	if _, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{metadata.NewTextureResourceView(tex, mip1)}); err != nil {
		t.Fatal(err)
	}
	d := core.MetricsSnapshot().Sub(before)
	if d.ImageViewsCreated != 1 || d.ImageViewsReused != 0 || d.ImageViewsReleased != 1 {
		t.Errorf("retry metrics delta = %+v, want one view created and one released", d)
	}
	if got := bound(t, h, 0).Slots[0].ImageView; got == previous || got.Descriptor() != mip1 {
		t.Errorf("retry bound %+v, want a fresh mip 1 view", got.Descriptor())
	}
	if !previous.Destroyed() {
		t.Error("replaced view survived the retry")
	}
}

func TestTexelBufferViewCache(t *testing.T) {
	device := headless.NewDevice(core.LimitsConfig{})
	h, err := heap.Create(device, metadata.ResourceHeapDescriptor{PipelineLayout: texelLayout(t), NumResourceViews: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}

	texel := mustBuffer(t, "texel", metadata.FormatR32UInt)
	write := func(desc metadata.BufferViewDescriptor) *headless.BufferView {
		t.Helper()
		if _, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{metadata.NewBufferResourceView(texel, desc)}); err != nil {
			t.Fatal(err)
		}
		return bound(t, h, 0).Slots[0].BufferView
	}

	current := write(metadata.BufferViewDescriptor{Offset: 0, Size: 512})
	tests := []struct {
		name        string
		desc        metadata.BufferViewDescriptor
		wantReuse   bool
		wantFormat  metadata.Format
		wantCreated uint64
	}{
		{"identical range", metadata.BufferViewDescriptor{Offset: 0, Size: 512}, true, metadata.FormatR32UInt, 0},
		{"new range", metadata.BufferViewDescriptor{Offset: 512, Size: 512}, false, metadata.FormatR32UInt, 1},
		{"new format", metadata.BufferViewDescriptor{Format: metadata.FormatR32Float, Offset: 512, Size: 512}, false, metadata.FormatR32Float, 1},
		{"same format again", metadata.BufferViewDescriptor{Format: metadata.FormatR32Float, Offset: 512, Size: 512}, true, metadata.FormatR32Float, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := core.MetricsSnapshot()
			got := write(tt.desc)
			d := core.MetricsSnapshot().Sub(before)

			if reused := got == current; reused != tt.wantReuse {
				t.Fatalf("view reused = %v, want %v", reused, tt.wantReuse)
			}
			if d.BufferViewsCreated != tt.wantCreated {
				t.Errorf("BufferViewsCreated delta = %d, want %d", d.BufferViewsCreated, tt.wantCreated)
			}
			if tt.wantReuse {
				if d.BufferViewsReused != 1 || d.BufferViewsReleased != 0 {
					t.Errorf("metrics delta = %+v, want one reuse", d)
				}
			} else {
				if d.BufferViewsReleased != 1 || !current.Destroyed() {
					t.Errorf("replaced view destroyed = %v, released delta = %d", current.Destroyed(), d.BufferViewsReleased)
				}
			}
			if desc := got.Descriptor(); desc.Format != tt.wantFormat || desc.Offset != tt.desc.Offset || desc.Size != tt.desc.Size {
				t.Errorf("bound view = %+v", desc)
			}
			if _, buffers := h.LiveViews(); buffers != 1 {
				t.Errorf("heap owns %d buffer views, want 1", buffers)
			}
			current = got
		})
	}

	before := core.MetricsSnapshot()
	if err := h.Destroy(); err != nil {
		t.Fatal(err)
	}
	if d := core.MetricsSnapshot().Sub(before); d.BufferViewsReleased != 1 {
		t.Errorf("Destroy released %d buffer views, want 1", d.BufferViewsReleased)
	}
	if !current.Destroyed() {
		t.Error("cached buffer view survived Destroy")
	}
	if _, _, bufferViews, _ := device.Stats(); bufferViews != 0 {
		t.Errorf("device holds %d buffer views after Destroy", bufferViews)
	}
}

func TestRejectedBatchKeepsBufferView(t *testing.T) {
	device := &rejectingDevice{Device: headless.NewDevice(core.LimitsConfig{})}
	h, err := heap.Create(device, metadata.ResourceHeapDescriptor{PipelineLayout: texelLayout(t), NumResourceViews: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	texel := mustBuffer(t, "texel", metadata.FormatR32UInt)
	first := metadata.NewBufferResourceView(texel, metadata.BufferViewDescriptor{Size: 256})
	second := metadata.NewBufferResourceView(texel, metadata.BufferViewDescriptor{Offset: 256, Size: 256})
	if _, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{first}); err != nil {
		t.Fatal(err)
	}
	previous := bound(t, h, 0).Slots[0].BufferView

	device.reject = true
	before := core.MetricsSnapshot()
	if _, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{second}); !errors.Is(err, core.ErrAllocation) {
		t.Fatalf("error = %v, want ErrAllocation", err)
	}
	if d := core.MetricsSnapshot().Sub(before); d.BufferViewsCreated != 1 || d.BufferViewsReleased != 1 {
		t.Errorf("rejected batch metrics delta = %+v, want the staged view created and released", d)
	}
	if got := bound(t, h, 0).Slots[0].BufferView; got != previous || previous.Destroyed() {
		t.Error("rejected batch disturbed the bound buffer view")
	}
	if _, _, bufferViews, _ := device.Stats(); bufferViews != 1 {
		t.Errorf("device holds %d buffer views, want 1", bufferViews)
	}

	device.reject = false
	before = core.MetricsSnapshot()
	if _, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{second}); err != nil {
		t.Fatal(err)
	}
	if d := core.MetricsSnapshot().Sub(before); d.BufferViewsCreated != 1 || d.BufferViewsReused != 0 {
		t.Errorf("retry metrics delta = %+v, want a new view", d)
	}
	if !previous.Destroyed() {
		t.Error("replaced buffer view survived the retry")
	}
}

func TestValidateWriteFailsOnlyItsSlot(t *testing.T) {
	layout := mustLayout(t,
		metadata.Binding{Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagConstantBuffer, Slot: 0},
		metadata.Binding{Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagConstantBuffer, Slot: 1},
	)
	device := headless.NewDevice(core.LimitsConfig{MinBufferOffsetAlignment: 256})
	h, err := heap.Create(device, metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	cb := mustBuffer(t, "cb", metadata.FormatUndefined)
	n, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{
		metadata.NewBufferResourceView(cb, metadata.BufferViewDescriptor{Offset: 256, Size: 256}),
		metadata.NewBufferResourceView(cb, metadata.BufferViewDescriptor{Offset: 64, Size: 256}),
	})
	if n != 1 || !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("WriteResourceViews() = %d, %v; want 1, ErrConfiguration", n, err)
	}
	var partial *core.PartialWriteError
	if !errors.As(err, &partial) || len(partial.Failed) != 1 || partial.Failed[0].Descriptor != 1 {
		t.Fatalf("partial = %+v, want descriptor 1 failed", partial)
	}
	slots := bound(t, h, 0).Slots
	if slots[0].Resource != cb || slots[0].Offset != 256 {
		t.Errorf("aligned slot = %+v", slots[0])
	}
	if slots[1].Resource != nil {
		t.Errorf("misaligned slot was written: %+v", slots[1])
	}
}
