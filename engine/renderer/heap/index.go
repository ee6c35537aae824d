package heap

import "strconv"

// OptionalIndex is a slot index that may be absent. NoIndex is the only absent value.
type OptionalIndex uint32

const NoIndex OptionalIndex = ^OptionalIndex(0)

func IndexOf(i uint32) OptionalIndex {
	return OptionalIndex(i)
}

func (i OptionalIndex) Valid() bool {
	return i != NoIndex
}

func (i OptionalIndex) Get() (uint32, bool) {
	return uint32(i), i.Valid()
}

func (i OptionalIndex) String() string {
	if !i.Valid() {
		return "none"
	}
	return strconv.FormatUint(uint64(i), 10)
}
