package metadata

import "testing"

type fakeTexture struct{ desc TextureDescriptor }

func (fakeTexture) ResourceKind() ResourceKind      { return ResourceKindTexture }
func (fakeTexture) Name() string                    { return "tex" }
func (t fakeTexture) Descriptor() TextureDescriptor { return t.desc }

type fakeBuffer struct{ desc BufferDescriptor }

func (fakeBuffer) ResourceKind() ResourceKind     { return ResourceKindBuffer }
func (fakeBuffer) Name() string                   { return "buf" }
func (b fakeBuffer) Descriptor() BufferDescriptor { return b.desc }

func TestTextureViewIsEnabled(t *testing.T) {
	full := TextureSubresource{NumMipLevels: 1, NumArrayLayers: 1}
	tests := []struct {
		name string
		desc TextureViewDescriptor
		want bool
	}{
		{"zero value", TextureViewDescriptor{}, false},
		{"undefined format", TextureViewDescriptor{Subresource: full}, false},
		{"no mips", TextureViewDescriptor{Format: FormatRGBA8UNorm, Subresource: TextureSubresource{NumArrayLayers: 1}}, false},
		{"no layers", TextureViewDescriptor{Format: FormatRGBA8UNorm, Subresource: TextureSubresource{NumMipLevels: 1}}, false},
		{"complete", TextureViewDescriptor{Format: FormatRGBA8UNorm, Subresource: full}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.desc.IsEnabled(); got != tt.want {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBufferViewIsEnabled(t *testing.T) {
	tests := []struct {
		name string
		desc BufferViewDescriptor
		want bool
	}{
		{"whole buffer", WholeBufferView(), false},
		{"zero value has zero size", BufferViewDescriptor{}, true},
		{"offset", BufferViewDescriptor{Offset: 256, Size: WholeSize}, true},
		{"format only", BufferViewDescriptor{Format: FormatR32Float, Size: WholeSize}, true},
		{"sized", BufferViewDescriptor{Size: 64}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.desc.IsEnabled(); got != tt.want {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBufferViewResolve(t *testing.T) {
	tests := []struct {
		name       string
		desc       BufferViewDescriptor
		size       uint64
		wantOffset uint64
		wantSize   uint64
		wantOK     bool
	}{
		{"whole", WholeBufferView(), 1024, 0, 1024, true},
		{"tail", BufferViewDescriptor{Offset: 256, Size: WholeSize}, 1024, 256, 768, true},
		{"exact", BufferViewDescriptor{Offset: 512, Size: 512}, 1024, 512, 512, true},
		{"overflow", BufferViewDescriptor{Offset: 512, Size: 1024}, 1024, 0, 0, false},
		{"offset past end", BufferViewDescriptor{Offset: 2048, Size: WholeSize}, 1024, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, size, ok := tt.desc.Resolve(tt.size)
			if ok != tt.wantOK || off != tt.wantOffset || size != tt.wantSize {
				t.Errorf("Resolve(%d) = (%d, %d, %v), want (%d, %d, %v)",
					tt.size, off, size, ok, tt.wantOffset, tt.wantSize, tt.wantOK)
			}
		})
	}
}

func TestResourceViewConstructors(t *testing.T) {
	tex := fakeTexture{desc: TextureDescriptor{Type: TextureType2d, Format: FormatRGBA8UNorm}}
	buf := fakeBuffer{desc: BufferDescriptor{Size: 128}}

	if v := NewResourceView(tex); v.TextureView.IsEnabled() || v.BufferView.IsEnabled() {
		t.Errorf("default resource view should request no sub-view: %+v", v)
	}
	texView := TextureViewDescriptor{
		Type:        TextureType2d,
		Format:      FormatRGBA8UNormSRGB,
		Subresource: TextureSubresource{NumMipLevels: 1, NumArrayLayers: 1},
	}
	if v := NewTextureResourceView(tex, texView); !v.TextureView.IsEnabled() || v.BufferView.IsEnabled() {
		t.Errorf("texture view constructor: %+v", v)
	}
	if v := NewBufferResourceView(buf, BufferViewDescriptor{Offset: 64, Size: 64}); v.TextureView.IsEnabled() || !v.BufferView.IsEnabled() {
		t.Errorf("buffer view constructor: %+v", v)
	}
	if !(ResourceViewDescriptor{}).IsNull() {
		t.Error("zero descriptor should be null")
	}
}

func TestBindingDescriptorType(t *testing.T) {
	tests := []struct {
		binding Binding
		want    DescriptorType
	}{
		{Binding{Kind: ResourceKindSampler}, DescriptorTypeSampler},
		{Binding{Kind: ResourceKindCombined}, DescriptorTypeCombinedImageSampler},
		{Binding{Kind: ResourceKindTexture, BindFlags: BindFlagSampled}, DescriptorTypeSampledImage},
		{Binding{Kind: ResourceKindTexture, BindFlags: BindFlagStorage}, DescriptorTypeStorageImage},
		{Binding{Kind: ResourceKindBuffer, BindFlags: BindFlagConstantBuffer}, DescriptorTypeUniformBuffer},
		{Binding{Kind: ResourceKindBuffer, BindFlags: BindFlagStorage}, DescriptorTypeStorageBuffer},
		{Binding{Kind: ResourceKindBuffer, BindFlags: BindFlagSampled | BindFlagTyped}, DescriptorTypeUniformTexelBuffer},
		{Binding{Kind: ResourceKindBuffer, BindFlags: BindFlagStorage | BindFlagTyped}, DescriptorTypeStorageTexelBuffer},
		{Binding{}, DescriptorTypeUndefined},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := tt.binding.DescriptorType(); got != tt.want {
				t.Errorf("DescriptorType() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBindingAccepts(t *testing.T) {
	combined := Binding{Kind: ResourceKindCombined}
	if !combined.Accepts(ResourceKindTexture) || combined.Accepts(ResourceKindSampler) {
		t.Error("combined binding should accept only textures")
	}
	buffer := Binding{Kind: ResourceKindBuffer}
	if !buffer.Accepts(ResourceKindBuffer) || buffer.Accepts(ResourceKindTexture) {
		t.Error("buffer binding should accept only buffers")
	}
	if (Binding{}).Accepts(ResourceKindBuffer) {
		t.Error("undefined binding accepted a buffer")
	}
}

func TestFormatCompatibleWith(t *testing.T) {
	tests := []struct {
		a, b Format
		want bool
	}{
		{FormatRGBA8UNorm, FormatRGBA8UNormSRGB, true},
		{FormatRGBA8UNorm, FormatR32Float, true},
		{FormatRGBA8UNorm, FormatRGBA16Float, false},
		{FormatD32Float, FormatR32Float, false},
		{FormatD32Float, FormatD32Float, true},
		{FormatUndefined, FormatUndefined, false},
	}
	for _, tt := range tests {
		if got := tt.a.CompatibleWith(tt.b); got != tt.want {
			t.Errorf("%s.CompatibleWith(%s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
