package metadata

/**
 * @brief A pipeline layout as seen by a resource heap: the ordered list of heap bindings.
 */
type PipelineLayout interface {
	Name() string
	HeapBindings() []Binding
}

/**
 * @brief Construction parameters of a resource heap.
 */
type ResourceHeapDescriptor struct {
	/** @brief Optional label of the heap and its native objects. */
	DebugName string
	/** @brief Layout the heap's descriptor sets are allocated against. Required. */
	PipelineLayout PipelineLayout
	/**
	 * @brief Total number of resource views. Zero derives the count from the initial
	 * views. Must be a multiple of the layout's binding count.
	 */
	NumResourceViews uint32
}
