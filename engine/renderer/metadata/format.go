package metadata

import "fmt"

// Format is a texel format. FormatUndefined doubles as the "no override" sentinel of
// texture and buffer view descriptors.
type Format uint16

const (
	FormatUndefined Format = iota

	FormatR8UNorm
	FormatRG8UNorm
	FormatRGBA8UNorm
	FormatRGBA8UNormSRGB
	FormatBGRA8UNorm
	FormatBGRA8UNormSRGB
	FormatRGBA8UInt

	FormatR16Float
	FormatRG16Float
	FormatRGBA16Float

	FormatR32UInt
	FormatR32SInt
	FormatR32Float
	FormatRG32Float
	FormatRGBA32Float

	FormatD32Float
	FormatD24UNormS8UInt

	formatCount
)

type formatInfo struct {
	name         string
	bitsPerTexel uint32
	depthStencil bool
}

var formatInfos = [formatCount]formatInfo{
	FormatUndefined:      {"Undefined", 0, false},
	FormatR8UNorm:        {"R8UNorm", 8, false},
	FormatRG8UNorm:       {"RG8UNorm", 16, false},
	FormatRGBA8UNorm:     {"RGBA8UNorm", 32, false},
	FormatRGBA8UNormSRGB: {"RGBA8UNorm_sRGB", 32, false},
	FormatBGRA8UNorm:     {"BGRA8UNorm", 32, false},
	FormatBGRA8UNormSRGB: {"BGRA8UNorm_sRGB", 32, false},
	FormatRGBA8UInt:      {"RGBA8UInt", 32, false},
	FormatR16Float:       {"R16Float", 16, false},
	FormatRG16Float:      {"RG16Float", 32, false},
	FormatRGBA16Float:    {"RGBA16Float", 64, false},
	FormatR32UInt:        {"R32UInt", 32, false},
	FormatR32SInt:        {"R32SInt", 32, false},
	FormatR32Float:       {"R32Float", 32, false},
	FormatRG32Float:      {"RG32Float", 64, false},
	FormatRGBA32Float:    {"RGBA32Float", 128, false},
	FormatD32Float:       {"D32Float", 32, true},
	FormatD24UNormS8UInt: {"D24UNormS8UInt", 32, true},
}

func (f Format) valid() bool {
	return f < formatCount
}

func (f Format) String() string {
	if !f.valid() {
		return fmt.Sprintf("Format(%d)", uint16(f))
	}
	return formatInfos[f].name
}

// BitsPerTexel returns the size of one texel, or 0 for FormatUndefined and unknown values.
func (f Format) BitsPerTexel() uint32 {
	if !f.valid() {
		return 0
	}
	return formatInfos[f].bitsPerTexel
}

func (f Format) IsDepthStencil() bool {
	return f.valid() && formatInfos[f].depthStencil
}

// CompatibleWith reports whether a view of format f may reinterpret a resource created
// with format other. Color formats are compatible within the same texel size, depth
// formats only with themselves.
func (f Format) CompatibleWith(other Format) bool {
	if f == other {
		return f != FormatUndefined && f.valid()
	}
	if f.IsDepthStencil() || other.IsDepthStencil() {
		return false
	}
	bits := f.BitsPerTexel()
	return bits != 0 && bits == other.BitsPerTexel()
}
