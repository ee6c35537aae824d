package heap

import (
	"fmt"
	"math"

	"github.com/spaghettifunk/anima-rhi/engine/core"
	"github.com/spaghettifunk/anima-rhi/engine/renderer/metadata"
	"golang.org/x/exp/slices"
)

// PoolSize is the number of descriptors of one type a pool must hold.
type PoolSize struct {
	Type  metadata.DescriptorType
	Count uint32
}

// PoolSizes builds the descriptor type histogram of one set and scales it by numSets.
// Empty buckets are omitted; buckets come out in descriptor type order.
func PoolSizes(bindings []HeapBinding, numSets uint32) ([]PoolSize, error) {
	var histogram [metadata.DescriptorTypeCount]uint64
	for _, b := range bindings {
		histogram[b.Type]++
	}

	sizes := make([]PoolSize, 0, len(histogram))
	for t, n := range histogram {
		if n == 0 || metadata.DescriptorType(t) == metadata.DescriptorTypeUndefined {
			continue
		}
		total := n * uint64(numSets)
		if total > math.MaxUint32 {
			return nil, fmt.Errorf("%d descriptors of type %s do not fit a pool: %w", total, metadata.DescriptorType(t), core.ErrAllocation)
		}
		sizes = append(sizes, PoolSize{Type: metadata.DescriptorType(t), Count: uint32(total)})
	}
	return sizes, nil
}

// PoolSizeCount returns the descriptor count for t, or zero.
func PoolSizeCount(sizes []PoolSize, t metadata.DescriptorType) uint32 {
	i := slices.IndexFunc(sizes, func(s PoolSize) bool { return s.Type == t })
	if i < 0 {
		return 0
	}
	return sizes[i].Count
}
