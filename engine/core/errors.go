package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration reports invalid construction or write arguments: a missing layout,
	// a view count that is not a multiple of the binding count, an out-of-range write.
	ErrConfiguration = errors.New("configuration error")
	// ErrAllocation reports that the device rejected a pool, set or view allocation.
	ErrAllocation = errors.New("allocation error")
	// ErrMismatch reports a resource whose kind does not match the declared binding.
	ErrMismatch = errors.New("resource kind mismatch")
	// ErrHeapDestroyed is returned by any operation on a destroyed heap.
	ErrHeapDestroyed = errors.New("resource heap destroyed")
	ErrUnknown       = errors.New("unknown")
)

// SlotError is the failure of one descriptor slot inside a multi-slot write.
type SlotError struct {
	// Descriptor is the global descriptor index (set * numBindings + binding).
	Descriptor uint32
	Set        uint32
	Binding    uint32
	Err        error
}

func (e SlotError) Error() string {
	return fmt.Sprintf("descriptor %d (set %d, binding %d): %s", e.Descriptor, e.Set, e.Binding, e.Err)
}

func (e SlotError) Unwrap() error {
	return e.Err
}

// PartialWriteError is returned when some slots of a write failed. Slots that were
// written successfully in the same call stay written.
type PartialWriteError struct {
	Written int
	Failed  []SlotError
}

func (e *PartialWriteError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "partial write: %d slot(s) written, %d failed", e.Written, len(e.Failed))
	for _, f := range e.Failed {
		sb.WriteString("; ")
		sb.WriteString(f.Error())
	}
	return sb.String()
}

// Unwrap exposes every slot failure so errors.Is matches ErrMismatch or ErrAllocation.
func (e *PartialWriteError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i := range e.Failed {
		errs[i] = e.Failed[i]
	}
	return errs
}
