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

func mustTexture(t *testing.T, name string, format metadata.Format) *headless.Texture {
	t.Helper()
	tex, err := headless.TextureCreate(name, metadata.TextureDescriptor{
		Type:        metadata.TextureType2d,
		Format:      format,
		Width:       64,
		Height:      64,
		MipLevels:   4,
		ArrayLayers: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tex
}

func mustBuffer(t *testing.T, name string, format metadata.Format) *headless.Buffer {
	t.Helper()
	buf, err := headless.BufferCreate(name, metadata.BufferDescriptor{Size: 1024, Format: format})
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func mustLayout(t *testing.T, bindings ...metadata.Binding) *headless.PipelineLayout {
	t.Helper()
	layout, err := headless.PipelineLayoutCreate(t.Name(), bindings)
	if err != nil {
		t.Fatal(err)
	}
	return layout
}

// bufferTextureLayout is binding0 = constant buffer, binding1 = sampled texture.
func bufferTextureLayout(t *testing.T) *headless.PipelineLayout {
	return mustLayout(t,
		metadata.Binding{Name: "globals", Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagConstantBuffer, Stages: metadata.StageVertex, Slot: 0},
		metadata.Binding{Name: "albedo", Kind: metadata.ResourceKindTexture, BindFlags: metadata.BindFlagSampled, Stages: metadata.StageFragment, Slot: 1},
	)
}

func bound(t *testing.T, h *heap.ResourceHeap, set uint32) headless.BoundSet {
	t.Helper()
	bs, err := headless.NewRecorder().BindResourceHeap(h, set)
	if err != nil {
		t.Fatal(err)
	}
	return bs
}

func views(resources ...metadata.Resource) []metadata.ResourceViewDescriptor {
	out := make([]metadata.ResourceViewDescriptor, len(resources))
	for i, r := range resources {
		if r != nil {
			out[i] = metadata.NewResourceView(r)
		}
	}
	return out
}

func TestCreateSetCount(t *testing.T) {
	layout := bufferTextureLayout(t)
	for k := uint32(1); k <= 4; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			device := headless.NewDevice(core.LimitsConfig{})
			h, err := heap.Create(device, metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 2 * k}, nil)
			if err != nil {
				t.Fatal(err)
			}
			defer h.Destroy()
			if got := h.NumDescriptorSets(); got != k {
				t.Errorf("NumDescriptorSets() = %d, want %d", got, k)
			}
			if got := len(h.DescriptorSets()); got != int(k) {
				t.Errorf("len(DescriptorSets()) = %d, want %d", got, k)
			}
			if sets, _, _, _ := device.Stats(); sets != k {
				t.Errorf("device holds %d sets, want %d", sets, k)
			}
		})
	}
}

func TestCreateRejectsNonMultiples(t *testing.T) {
	threeBindings := mustLayout(t,
		metadata.Binding{Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagConstantBuffer, Slot: 0},
		metadata.Binding{Kind: metadata.ResourceKindTexture, BindFlags: metadata.BindFlagSampled, Slot: 1},
		metadata.Binding{Kind: metadata.ResourceKindSampler, Slot: 2},
	)
	for _, count := range []uint32{1, 2, 4, 5, 7, 8, 10} {
		t.Run(fmt.Sprintf("count=%d", count), func(t *testing.T) {
			device := headless.NewDevice(core.LimitsConfig{})
			h, err := heap.Create(device, metadata.ResourceHeapDescriptor{PipelineLayout: threeBindings, NumResourceViews: count}, nil)
			if !errors.Is(err, core.ErrConfiguration) {
				t.Fatalf("Create() error = %v, want ErrConfiguration", err)
			}
			if h != nil {
				t.Fatal("Create() returned a heap on failure")
			}
		})
	}
}

func TestCreateConfigurationErrors(t *testing.T) {
	layout := bufferTextureLayout(t)
	empty := mustLayout(t)
	buf := mustBuffer(t, "buf", metadata.FormatUndefined)
	tex := mustTexture(t, "tex", metadata.FormatRGBA8UNorm)

	tests := []struct {
		name    string
		device  heap.Device
		desc    metadata.ResourceHeapDescriptor
		initial []metadata.ResourceViewDescriptor
	}{
		{"nil layout", headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{NumResourceViews: 2}, nil},
		{"nil device", nil, metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 2}, nil},
		{"no bindings", headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: empty, NumResourceViews: 2}, nil},
		{"no count and no views", headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout}, nil},
		{"initial views not a multiple", headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout}, views(buf, tex, buf)},
		{"more views than declared", headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 2}, views(buf, tex, buf, tex)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := heap.Create(tt.device, tt.desc, tt.initial)
			if !errors.Is(err, core.ErrConfiguration) {
				t.Fatalf("Create() error = %v, want ErrConfiguration", err)
			}
			if h != nil {
				t.Fatal("Create() returned a heap on failure")
			}
		})
	}
}

func TestCreateCountFromInitialViews(t *testing.T) {
	layout := bufferTextureLayout(t)
	buf := mustBuffer(t, "buf", metadata.FormatUndefined)
	tex := mustTexture(t, "tex", metadata.FormatRGBA8UNorm)

	h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout}, views(buf, tex, buf, tex, buf, tex))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()
	if h.NumDescriptorSets() != 3 {
		t.Errorf("NumDescriptorSets() = %d, want 3", h.NumDescriptorSets())
	}
}

// Initial views may cover only the first sets when an explicit count is larger.
func TestCreatePartialInitialViews(t *testing.T) {
	layout := bufferTextureLayout(t)
	buf := mustBuffer(t, "buf", metadata.FormatUndefined)
	tex := mustTexture(t, "tex", metadata.FormatRGBA8UNorm)

	h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 4}, views(buf, tex))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()
	if got := bound(t, h, 1).Resources(); got[0] != nil || got[1] != nil {
		t.Errorf("set 1 = %v, want untouched", got)
	}
}

func TestTwoBindingExample(t *testing.T) {
	layout := bufferTextureLayout(t)
	bufA, bufB := mustBuffer(t, "bufA", metadata.FormatUndefined), mustBuffer(t, "bufB", metadata.FormatUndefined)
	texA, texB, texC := mustTexture(t, "texA", metadata.FormatRGBA8UNorm), mustTexture(t, "texB", metadata.FormatRGBA8UNorm), mustTexture(t, "texC", metadata.FormatRGBA8UNorm)

	h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 4}, views(bufA, texA, bufB, texB))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	assertSet := func(set uint32, want ...metadata.Resource) {
		t.Helper()
		got := bound(t, h, set).Resources()
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("set %d binding %d = %v, want %v", set, i, got[i], want[i])
			}
		}
	}
	assertSet(0, bufA, texA)
	assertSet(1, bufB, texB)

	n, err := h.WriteResourceViews(2, views(nil, texC))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("WriteResourceViews() = %d, want 1", n)
	}
	assertSet(0, bufA, texA)
	assertSet(1, bufB, texC)
}

func TestNullViewSkipIsIdempotent(t *testing.T) {
	layout := bufferTextureLayout(t)
	buf := mustBuffer(t, "buf", metadata.FormatUndefined)
	tex := mustTexture(t, "tex", metadata.FormatRGBA8UNorm)

	h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout}, views(buf, tex))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	before := bound(t, h, 0)
	for i := 0; i < 3; i++ {
		n, err := h.WriteResourceViews(0, views(nil, nil))
		if err != nil || n != 0 {
			t.Fatalf("WriteResourceViews(nulls) = %d, %v", n, err)
		}
	}
	after := bound(t, h, 0)
	for i := range before.Slots {
		if before.Slots[i] != after.Slots[i] {
			t.Errorf("slot %d changed: %+v -> %+v", i, before.Slots[i], after.Slots[i])
		}
	}
}

func TestSetBoundaryRouting(t *testing.T) {
	for b := 1; b <= 5; b++ {
		t.Run(fmt.Sprintf("B=%d", b), func(t *testing.T) {
			bindings := make([]metadata.Binding, b)
			for i := range bindings {
				bindings[i] = metadata.Binding{Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagStorage, Slot: uint32(i)}
			}
			layout := mustLayout(t, bindings...)
			h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: uint32(2 * b)}, nil)
			if err != nil {
				t.Fatal(err)
			}
			defer h.Destroy()

			last, first := mustBuffer(t, "last", metadata.FormatUndefined), mustBuffer(t, "first", metadata.FormatUndefined)
			if n, err := h.WriteResourceViews(uint32(b-1), views(last, first)); err != nil || n != 2 {
				t.Fatalf("WriteResourceViews() = %d, %v", n, err)
			}
			if got := bound(t, h, 0).Resources()[b-1]; got != last {
				t.Errorf("set 0 binding %d = %v, want %v", b-1, got, last)
			}
			if got := bound(t, h, 1).Resources()[0]; got != first {
				t.Errorf("set 1 binding 0 = %v, want %v", got, first)
			}
		})
	}
}

func TestRoundTripInitialViews(t *testing.T) {
	sampler, err := headless.SamplerCreate("linear", metadata.SamplerDescriptor{MinFilter: metadata.TextureFilterModeLinear})
	if err != nil {
		t.Fatal(err)
	}
	layout := mustLayout(t,
		metadata.Binding{Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagConstantBuffer, Slot: 0},
		metadata.Binding{Kind: metadata.ResourceKindTexture, BindFlags: metadata.BindFlagSampled, Slot: 1},
		metadata.Binding{Kind: metadata.ResourceKindSampler, Slot: 2},
		metadata.Binding{Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagSampled | metadata.BindFlagTyped, Slot: 3},
	)
	var initial []metadata.Resource
	for set := 0; set < 3; set++ {
		initial = append(initial,
			mustBuffer(t, fmt.Sprintf("cb%d", set), metadata.FormatUndefined),
			mustTexture(t, fmt.Sprintf("tex%d", set), metadata.FormatRGBA8UNorm),
			sampler,
			mustBuffer(t, fmt.Sprintf("texel%d", set), metadata.FormatR32Float),
		)
	}

	h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout}, views(initial...))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	var got []metadata.Resource
	for set := uint32(0); set < h.NumDescriptorSets(); set++ {
		got = append(got, bound(t, h, set).Resources()...)
	}
	if len(got) != len(initial) {
		t.Fatalf("read back %d resources, want %d", len(got), len(initial))
	}
	for i := range initial {
		if got[i] != initial[i] {
			t.Errorf("descriptor %d = %v, want %v", i, got[i], initial[i])
		}
	}
}

func TestImageViewReuseAndRelease(t *testing.T) {
	layout := mustLayout(t, metadata.Binding{Kind: metadata.ResourceKindTexture, BindFlags: metadata.BindFlagSampled, Slot: 0})
	device := headless.NewDevice(core.LimitsConfig{})
	tex := mustTexture(t, "tex", metadata.FormatRGBA8UNorm)

	h, err := heap.Create(device, metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	mip0 := metadata.TextureViewDescriptor{
		Type:        metadata.TextureType2d,
		Format:      metadata.FormatRGBA8UNormSRGB,
		Subresource: metadata.TextureSubresource{NumMipLevels: 1, NumArrayLayers: 1},
	}
	write := func(desc metadata.TextureViewDescriptor) *headless.ImageView {
		t.Helper()
		if _, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{metadata.NewTextureResourceView(tex, desc)}); err != nil {
			t.Fatal(err)
		}
		return bound(t, h, 0).Slots[0].ImageView
	}

	first := write(mip0)
	if first == nil {
		t.Fatal("ranged write bound no image view")
	}
	before := core.MetricsSnapshot()
	second := write(mip0)
	if second != first {
		t.Error("identical request created a new view")
	}
	if d := core.MetricsSnapshot().Sub(before); d.ImageViewsCreated != 0 || d.ImageViewsReused != 1 {
		t.Errorf("metrics delta = %+v", d)
	}

	mip1 := mip0
	mip1.Subresource.BaseMipLevel = 1
	third := write(mip1)
	if third == first {
		t.Fatal("different range reused the old view")
	}
	if !first.Destroyed() {
		t.Error("replaced view was not released")
	}
	if images, _ := h.LiveViews(); images != 1 {
		t.Errorf("heap owns %d image views, want 1", images)
	}

	// back to the default view drops the cached one
	if _, err := h.WriteResourceViews(0, views(tex)); err != nil {
		t.Fatal(err)
	}
	if !third.Destroyed() {
		t.Error("stale view survived a default-view write")
	}
	if _, imageViews, _, _ := device.Stats(); imageViews != 0 {
		t.Errorf("device holds %d image views, want 0", imageViews)
	}
}

func TestImageViewNewTextureSameRange(t *testing.T) {
	layout := mustLayout(t, metadata.Binding{Kind: metadata.ResourceKindTexture, BindFlags: metadata.BindFlagSampled, Slot: 0})
	h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	desc := metadata.TextureViewDescriptor{
		Type:        metadata.TextureType2d,
		Format:      metadata.FormatRGBA8UNorm,
		Subresource: metadata.TextureSubresource{NumMipLevels: 1, NumArrayLayers: 1},
	}
	texA, texB := mustTexture(t, "a", metadata.FormatRGBA8UNorm), mustTexture(t, "b", metadata.FormatRGBA8UNorm)
	if _, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{metadata.NewTextureResourceView(texA, desc)}); err != nil {
		t.Fatal(err)
	}
	viewA := bound(t, h, 0).Slots[0].ImageView
	if _, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{metadata.NewTextureResourceView(texB, desc)}); err != nil {
		t.Fatal(err)
	}
	viewB := bound(t, h, 0).Slots[0].ImageView
	if viewB == viewA || viewB.Texture() != texB || !viewA.Destroyed() {
		t.Errorf("view for a new texture: old %p (destroyed %v), new %p", viewA, viewA.Destroyed(), viewB)
	}
}

func TestFailedViewKeepsPreviousView(t *testing.T) {
	layout := mustLayout(t, metadata.Binding{Kind: metadata.ResourceKindTexture, BindFlags: metadata.BindFlagSampled, Slot: 0})
	h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	tex := mustTexture(t, "tex", metadata.FormatRGBA8UNorm)
	good := metadata.TextureViewDescriptor{
		Type:        metadata.TextureType2d,
		Format:      metadata.FormatRGBA8UNorm,
		Subresource: metadata.TextureSubresource{NumMipLevels: 1, NumArrayLayers: 1},
	}
	if _, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{metadata.NewTextureResourceView(tex, good)}); err != nil {
		t.Fatal(err)
	}
	previous := bound(t, h, 0).Slots[0].ImageView

	bad := good
	bad.Format = metadata.FormatRGBA16Float
	n, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{metadata.NewTextureResourceView(tex, bad)})
	if n != 0 || !errors.Is(err, core.ErrAllocation) {
		t.Fatalf("WriteResourceViews() = %d, %v; want 0, ErrAllocation", n, err)
	}
	if got := bound(t, h, 0).Slots[0].ImageView; got != previous || previous.Destroyed() {
		t.Error("failed view creation disturbed the previous view")
	}
}

func TestWriteMismatchIsPartial(t *testing.T) {
	layout := bufferTextureLayout(t)
	buf := mustBuffer(t, "buf", metadata.FormatUndefined)
	tex := mustTexture(t, "tex", metadata.FormatRGBA8UNorm)

	h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	// descriptor 1 is a texture slot and gets a buffer
	n, err := h.WriteResourceViews(0, views(buf, buf, buf, tex))
	if n != 3 {
		t.Errorf("WriteResourceViews() wrote %d, want 3", n)
	}
	if !errors.Is(err, core.ErrMismatch) {
		t.Fatalf("error = %v, want ErrMismatch", err)
	}
	var partial *core.PartialWriteError
	if !errors.As(err, &partial) {
		t.Fatalf("error %T is not a *PartialWriteError", err)
	}
	if partial.Written != 3 || len(partial.Failed) != 1 {
		t.Fatalf("partial = %+v", partial)
	}
	if f := partial.Failed[0]; f.Descriptor != 1 || f.Set != 0 || f.Binding != 1 {
		t.Errorf("failed slot = %+v, want descriptor 1 (set 0, binding 1)", f)
	}
	if got := bound(t, h, 1).Resources(); got[0] != buf || got[1] != tex {
		t.Errorf("set 1 = %v, want the successful writes", got)
	}
}

func TestWriteOutOfRange(t *testing.T) {
	layout := bufferTextureLayout(t)
	buf := mustBuffer(t, "buf", metadata.FormatUndefined)
	h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	n, err := h.WriteResourceViews(1, views(nil, buf))
	if n != 0 || !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("WriteResourceViews() = %d, %v; want 0, ErrConfiguration", n, err)
	}
}

func TestBufferRanges(t *testing.T) {
	layout := mustLayout(t,
		metadata.Binding{Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagConstantBuffer, Slot: 0},
		metadata.Binding{Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagStorage | metadata.BindFlagTyped, Slot: 1},
	)
	h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	cb := mustBuffer(t, "cb", metadata.FormatUndefined)
	texel := mustBuffer(t, "texel", metadata.FormatR32UInt)

	_, err = h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{
		metadata.NewBufferResourceView(cb, metadata.BufferViewDescriptor{Offset: 256, Size: 256}),
		metadata.NewResourceView(texel),
	})
	if err != nil {
		t.Fatal(err)
	}
	slots := bound(t, h, 0).Slots
	if slots[0].Offset != 256 || slots[0].Range != 256 || slots[0].BufferView != nil {
		t.Errorf("constant buffer slot = %+v", slots[0])
	}
	view := slots[1].BufferView
	if view == nil {
		t.Fatal("texel buffer bound without a view")
	}
	if d := view.Descriptor(); d.Format != metadata.FormatR32UInt || d.Offset != 0 || d.Size != 1024 {
		t.Errorf("texel view = %+v, want the whole buffer as R32UInt", d)
	}

	tests := []struct {
		name string
		desc metadata.BufferViewDescriptor
	}{
		{"empty range", metadata.BufferViewDescriptor{Offset: 16}},
		{"past the end", metadata.BufferViewDescriptor{Offset: 1000, Size: 64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{metadata.NewBufferResourceView(cb, tt.desc)})
			if !errors.Is(err, core.ErrConfiguration) {
				t.Errorf("error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestTypedBufferNeedsFormat(t *testing.T) {
	layout := mustLayout(t, metadata.Binding{Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagSampled | metadata.BindFlagTyped, Slot: 0})
	h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	raw := mustBuffer(t, "raw", metadata.FormatUndefined)
	if _, err := h.WriteResourceViews(0, views(raw)); !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
	ranged := metadata.NewBufferResourceView(raw, metadata.BufferViewDescriptor{Format: metadata.FormatRGBA32Float, Size: 512})
	if n, err := h.WriteResourceViews(0, []metadata.ResourceViewDescriptor{ranged}); n != 1 || err != nil {
		t.Fatalf("WriteResourceViews() = %d, %v", n, err)
	}
}

func TestBarrierSlots(t *testing.T) {
	layout := mustLayout(t,
		metadata.Binding{Kind: metadata.ResourceKindBuffer, BindFlags: metadata.BindFlagStorage, Stages: metadata.StageCompute, Slot: 0, NeedsBarrier: true},
		metadata.Binding{Kind: metadata.ResourceKindTexture, BindFlags: metadata.BindFlagSampled, Slot: 1},
		metadata.Binding{Kind: metadata.ResourceKindTexture, BindFlags: metadata.BindFlagStorage, Stages: metadata.StageCompute, Slot: 2, NeedsBarrier: true},
	)
	h, err := heap.Create(headless.NewDevice(core.LimitsConfig{}), metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 6}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()

	if h.NumBufferBarriers() != 1 || h.NumImageBarriers() != 1 {
		t.Fatalf("barrier counts = %d buffer, %d image", h.NumBufferBarriers(), h.NumImageBarriers())
	}

	buf := mustBuffer(t, "particles", metadata.FormatUndefined)
	sampled := mustTexture(t, "sampled", metadata.FormatRGBA8UNorm)
	storage := mustTexture(t, "storage", metadata.FormatRGBA8UNorm)
	if _, err := h.WriteResourceViews(3, views(buf, sampled, storage)); err != nil {
		t.Fatal(err)
	}

	if got := bound(t, h, 0).Barriers; len(got) != 0 {
		t.Errorf("set 0 exported %d barriers, want none", len(got))
	}
	got := bound(t, h, 1).Barriers
	want := []headless.BarrierRecord{
		{Slot: 0, Kind: heap.BarrierBuffer, Resource: buf, Stages: metadata.StageCompute},
		{Slot: 1, Kind: heap.BarrierImage, Resource: storage, Stages: metadata.StageCompute},
	}
	if len(got) != len(want) {
		t.Fatalf("set 1 barriers = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("barrier %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	// exporting does not consume the slots
	if again := bound(t, h, 1).Barriers; len(again) != len(want) {
		t.Errorf("second export returned %d barriers", len(again))
	}
	if _, err := h.SetBarrierSlots(headless.NewRecorder(), 2); !errors.Is(err, core.ErrConfiguration) {
		t.Errorf("SetBarrierSlots(out of range) error = %v", err)
	}
}

func TestPoolLimitFailsFast(t *testing.T) {
	layout := bufferTextureLayout(t)
	device := headless.NewDevice(core.LimitsConfig{MaxSampledImages: 3})
	h, err := heap.Create(device, metadata.ResourceHeapDescriptor{PipelineLayout: layout, NumResourceViews: 8}, nil)
	if !errors.Is(err, core.ErrAllocation) || h != nil {
		t.Fatalf("Create() = %v, %v; want nil, ErrAllocation", h, err)
	}
	if sets, _, _, _ := device.Stats(); sets != 0 {
		t.Errorf("device holds %d sets after a failed create", sets)
	}
}

func TestFailedInitialWriteReleasesHeap(t *testing.T) {
	layout := bufferTextureLayout(t)
	device := headless.NewDevice(core.LimitsConfig{})
	buf := mustBuffer(t, "buf", metadata.FormatUndefined)
	tex := mustTexture(t, "tex", metadata.FormatRGBA8UNorm)
	ranged := metadata.NewTextureResourceView(tex, metadata.TextureViewDescriptor{
		Format:      metadata.FormatRGBA8UNorm,
		Subresource: metadata.TextureSubresource{NumMipLevels: 1, NumArrayLayers: 1},
	})

	h, err := heap.Create(device, metadata.ResourceHeapDescriptor{PipelineLayout: layout}, []metadata.ResourceViewDescriptor{
		metadata.NewResourceView(buf), ranged,
		metadata.NewResourceView(tex), metadata.NewResourceView(tex),
	})
	if !errors.Is(err, core.ErrMismatch) || h != nil {
		t.Fatalf("Create() = %v, %v; want nil, ErrMismatch", h, err)
	}
	if sets, imageViews, _, _ := device.Stats(); sets != 0 || imageViews != 0 {
		t.Errorf("leaked %d sets and %d image views", sets, imageViews)
	}
}

func TestWritesAreBatched(t *testing.T) {
	layout := bufferTextureLayout(t)
	device := headless.NewDevice(core.LimitsConfig{})
	buf := mustBuffer(t, "buf", metadata.FormatUndefined)
	tex := mustTexture(t, "tex", metadata.FormatRGBA8UNorm)

	h, err := heap.Create(device, metadata.ResourceHeapDescriptor{PipelineLayout: layout}, views(buf, tex, buf, tex, buf, tex))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Destroy()
	if _, _, _, batches := device.Stats(); batches != 1 {
		t.Errorf("initial write took %d batches, want 1", batches)
	}
}

func TestDestroy(t *testing.T) {
	layout := bufferTextureLayout(t)
	device := headless.NewDevice(core.LimitsConfig{})
	tex := mustTexture(t, "tex", metadata.FormatRGBA8UNorm)
	h, err := heap.Create(device, metadata.ResourceHeapDescriptor{DebugName: "frame-heap", PipelineLayout: layout, NumResourceViews: 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ranged := metadata.NewTextureResourceView(tex, metadata.TextureViewDescriptor{
		Format:      metadata.FormatRGBA8UNorm,
		Subresource: metadata.TextureSubresource{NumMipLevels: 2, NumArrayLayers: 1},
	})
	if _, err := h.WriteResourceViews(1, []metadata.ResourceViewDescriptor{ranged, {}, ranged}); err != nil {
		t.Fatal(err)
	}
	pool := h.DescriptorPool().(*headless.DescriptorPool)
	if pool.MaxSets() != 2 {
		t.Errorf("pool max sets = %d, want 2", pool.MaxSets())
	}

	if err := h.Destroy(); err != nil {
		t.Fatal(err)
	}
	if !pool.Destroyed() {
		t.Error("pool survived Destroy")
	}
	if sets, imageViews, _, _ := device.Stats(); sets != 0 || imageViews != 0 {
		t.Errorf("after Destroy: %d sets, %d image views", sets, imageViews)
	}
	if err := h.Destroy(); !errors.Is(err, core.ErrHeapDestroyed) {
		t.Errorf("second Destroy() = %v", err)
	}
	if _, err := h.WriteResourceViews(0, views(tex)); !errors.Is(err, core.ErrHeapDestroyed) {
		t.Errorf("write after Destroy = %v", err)
	}
	if _, err := h.SetBarrierSlots(headless.NewRecorder(), 0); !errors.Is(err, core.ErrHeapDestroyed) {
		t.Errorf("SetBarrierSlots after Destroy = %v", err)
	}
}
