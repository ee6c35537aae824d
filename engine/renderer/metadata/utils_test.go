package metadata

import "testing"

func TestAlignment(t *testing.T) {
	tests := []struct {
		operand, granularity uint64
		aligned              uint64
		isAligned            bool
	}{
		{0, 256, 0, true},
		{1, 256, 256, false},
		{256, 256, 256, true},
		{300, 64, 320, false},
		{4096, 16, 4096, true},
	}
	for _, tt := range tests {
		if got := GetAligned(tt.operand, tt.granularity); got != tt.aligned {
			t.Errorf("GetAligned(%d, %d) = %d, want %d", tt.operand, tt.granularity, got, tt.aligned)
		}
		if got := IsAligned(tt.operand, tt.granularity); got != tt.isAligned {
			t.Errorf("IsAligned(%d, %d) = %v", tt.operand, tt.granularity, got)
		}
	}
	if !IsAligned(17, 0) {
		t.Error("zero granularity should accept any offset")
	}
}
