package metadata

// WholeSize selects everything from the offset to the end of a buffer.
const WholeSize uint64 = ^uint64(0)

/**
 * @brief Creation parameters of a buffer.
 */
type BufferDescriptor struct {
	Size uint64
	/** @brief Element format for typed buffers. FormatUndefined for raw or structured buffers. */
	Format Format
	/** @brief Element stride for structured buffers. */
	Stride    uint32
	BindFlags BindFlags
}

type Buffer interface {
	Resource
	Descriptor() BufferDescriptor
}

/**
 * @brief Describes a subrange of a buffer. The view is absent, meaning the whole buffer
 * is bound, only when Format is FormatUndefined, Offset is zero and Size is WholeSize.
 */
type BufferViewDescriptor struct {
	Format Format
	Offset uint64
	Size   uint64
}

// IsEnabled reports whether the descriptor requests anything but the whole buffer.
func (d BufferViewDescriptor) IsEnabled() bool {
	return !(d.Format == FormatUndefined && d.Offset == 0 && d.Size == WholeSize)
}

// WholeBufferView is the absent buffer view.
func WholeBufferView() BufferViewDescriptor {
	return BufferViewDescriptor{Size: WholeSize}
}

// Resolve returns the effective byte range inside a buffer of the given size, mapping
// WholeSize to the remainder of the buffer. ok is false when the range does not fit.
func (d BufferViewDescriptor) Resolve(bufferSize uint64) (offset, size uint64, ok bool) {
	if d.Offset > bufferSize {
		return 0, 0, false
	}
	if d.Size == WholeSize {
		return d.Offset, bufferSize - d.Offset, true
	}
	if d.Size > bufferSize-d.Offset {
		return 0, 0, false
	}
	return d.Offset, d.Size, true
}
