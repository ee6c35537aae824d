package metadata

// GetAligned rounds operand up to the next multiple of granularity, which must be a
// power of two.
func GetAligned(operand, granularity uint64) uint64 {
	val := (operand + (granularity - 1)) &^ (granularity - 1)
	return val
}

// IsAligned reports whether operand is a multiple of granularity. A zero granularity
// places no constraint.
func IsAligned(operand, granularity uint64) bool {
	return granularity == 0 || GetAligned(operand, granularity) == operand
}
