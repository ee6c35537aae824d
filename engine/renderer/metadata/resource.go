package metadata

/**
 * @brief Anything that can be written into a resource heap slot. Backends type-assert
 * to their own concrete types.
 */
type Resource interface {
	ResourceKind() ResourceKind
	Name() string
}

/**
 * @brief One entry of a resource heap write: the resource and, optionally, the view
 * used to bind it. A nil Resource leaves the slot untouched.
 */
type ResourceViewDescriptor struct {
	Resource Resource
	/** @brief Subresource view. Only read for textures. */
	TextureView TextureViewDescriptor
	/** @brief Subrange view. Only read for buffers. */
	BufferView BufferViewDescriptor
	/** @brief Initial value of a hidden append/consume counter. */
	InitialCount uint32
}

// NewResourceView binds r through its default view.
func NewResourceView(r Resource) ResourceViewDescriptor {
	return ResourceViewDescriptor{
		Resource:   r,
		BufferView: WholeBufferView(),
	}
}

// NewTextureResourceView binds a texture through a subresource view.
func NewTextureResourceView(t Texture, view TextureViewDescriptor) ResourceViewDescriptor {
	return ResourceViewDescriptor{
		Resource:    t,
		TextureView: view,
		BufferView:  WholeBufferView(),
	}
}

// NewBufferResourceView binds a buffer through a subrange view.
func NewBufferResourceView(b Buffer, view BufferViewDescriptor) ResourceViewDescriptor {
	return ResourceViewDescriptor{
		Resource:   b,
		BufferView: view,
	}
}

// IsNull reports whether the entry should be skipped.
func (d ResourceViewDescriptor) IsNull() bool {
	return d.Resource == nil
}
