// Package ktx2 provides a minimal parser for the fixed header of KTX2
// texture containers.
//
// It exists only as a last-resort fallback for when the KTX-Software
// command-line tools are unavailable: it classifies a file and extracts
// pixel data for exactly one trivial case (uncompressed R8G8B8A8, single
// level, single layer, single face). Everything else - Basis Universal
// transcoding, supercompression, mip chains, cubemaps - is deliberately
// rejected and left to the external tools.
package ktx2

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic is the fixed 12-byte KTX2 file identifier.
var Magic = [12]byte{0xAB, 0x4B, 0x54, 0x58, 0x20, 0x32, 0x30, 0xBB, 0x0D, 0x0A, 0x1A, 0x0A}

// Supercompression schemes defined by the KTX2 specification.
const (
	SupercompressionNone    = 0
	SupercompressionBasisLZ = 1
	SupercompressionZstd    = 2
	SupercompressionZLIB    = 3
)

// Vulkan format codes the parser knows by name. Only VK_FORMAT_R8G8B8A8_UNORM
// is actually supported for pixel extraction.
const (
	VkFormatUndefined     = 0
	VkFormatR8G8B8A8Unorm = 37
	VkFormatR8G8B8A8Srgb  = 43
)

const (
	// headerSize is the fixed portion of a KTX2 header, excluding the
	// level index that follows it.
	headerSize = 80

	// levelIndexEntrySize is the size of one level index entry.
	levelIndexEntrySize = 24

	// MinSize is the smallest input the parser will look at: the fixed
	// header plus the byteOffset/byteLength of the first level index entry.
	MinSize = headerSize + 16
)

// ErrNotKTX2 is returned when the magic signature does not match.
var ErrNotKTX2 = errors.New("not a KTX2 file")

// ErrUnsupported is returned when the file is a valid KTX2 container but
// outside the single trivial case this parser handles. Callers should fall
// back to the external tools.
var ErrUnsupported = errors.New("unsupported by fallback parser")

// Header holds the fixed-layout fields of a KTX2 file header plus the first
// level index entry. All fields are read-only after parsing.
type Header struct {
	VkFormat         uint32 // +0x0C: Vulkan format code
	TypeSize         uint32 // +0x10: Size of a single texel component
	PixelWidth       uint32 // +0x14: Width in pixels
	PixelHeight      uint32 // +0x18: Height in pixels (0 for 1D)
	PixelDepth       uint32 // +0x1C: Depth in pixels (0 for 2D)
	LayerCount       uint32 // +0x20: Array layers (0 for non-array)
	FaceCount        uint32 // +0x24: 6 for cubemaps, 1 otherwise
	LevelCount       uint32 // +0x28: Mip levels
	Supercompression uint32 // +0x2C: Supercompression scheme id

	DFDByteOffset uint32 // +0x30: Data format descriptor offset
	DFDByteLength uint32 // +0x34
	KVDByteOffset uint32 // +0x38: Key/value data offset
	KVDByteLength uint32 // +0x3C
	SGDByteOffset uint64 // +0x40: Supercompression global data offset
	SGDByteLength uint64 // +0x48

	Level0ByteOffset uint64 // +0x50: First level index entry
	Level0ByteLength uint64 // +0x58
}

// ParseHeader reads and classifies a KTX2 header from the full file contents.
//
// It returns ErrNotKTX2 for inputs that are not KTX2 at all, and a wrapped
// ErrUnsupported for valid KTX2 files the fallback cannot handle (any
// supercompression, any format other than uncompressed RGBA8, or a level
// payload whose size or offset is inconsistent with the header).
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < MinSize {
		return nil, fmt.Errorf("ktx2 data too short: need at least %d bytes, got %d", MinSize, len(data))
	}
	if [12]byte(data[:12]) != Magic {
		return nil, ErrNotKTX2
	}

	h := &Header{
		VkFormat:         binary.LittleEndian.Uint32(data[0x0C:0x10]),
		TypeSize:         binary.LittleEndian.Uint32(data[0x10:0x14]),
		PixelWidth:       binary.LittleEndian.Uint32(data[0x14:0x18]),
		PixelHeight:      binary.LittleEndian.Uint32(data[0x18:0x1C]),
		PixelDepth:       binary.LittleEndian.Uint32(data[0x1C:0x20]),
		LayerCount:       binary.LittleEndian.Uint32(data[0x20:0x24]),
		FaceCount:        binary.LittleEndian.Uint32(data[0x24:0x28]),
		LevelCount:       binary.LittleEndian.Uint32(data[0x28:0x2C]),
		Supercompression: binary.LittleEndian.Uint32(data[0x2C:0x30]),
		DFDByteOffset:    binary.LittleEndian.Uint32(data[0x30:0x34]),
		DFDByteLength:    binary.LittleEndian.Uint32(data[0x34:0x38]),
		KVDByteOffset:    binary.LittleEndian.Uint32(data[0x38:0x3C]),
		KVDByteLength:    binary.LittleEndian.Uint32(data[0x3C:0x40]),
		SGDByteOffset:    binary.LittleEndian.Uint64(data[0x40:0x48]),
		SGDByteLength:    binary.LittleEndian.Uint64(data[0x48:0x50]),
		Level0ByteOffset: binary.LittleEndian.Uint64(data[0x50:0x58]),
		Level0ByteLength: binary.LittleEndian.Uint64(data[0x58:0x60]),
	}

	if err := h.validate(uint64(len(data))); err != nil {
		return nil, err
	}
	return h, nil
}

// validate classifies the header against the single supported case.
func (h *Header) validate(fileSize uint64) error {
	if h.Supercompression != SupercompressionNone {
		return fmt.Errorf("%w: supercompression scheme %s", ErrUnsupported, SchemeName(h.Supercompression))
	}
	if h.VkFormat != VkFormatR8G8B8A8Unorm {
		return fmt.Errorf("%w: format %s", ErrUnsupported, FormatName(h.VkFormat))
	}
	if h.PixelWidth == 0 || h.PixelHeight == 0 {
		return fmt.Errorf("%w: missing pixel dimensions (%dx%d)", ErrUnsupported, h.PixelWidth, h.PixelHeight)
	}
	if h.PixelDepth > 1 || h.LayerCount > 1 || h.FaceCount > 1 {
		return fmt.Errorf("%w: depth=%d layers=%d faces=%d, only a single 2D surface is handled",
			ErrUnsupported, h.PixelDepth, h.LayerCount, h.FaceCount)
	}
	expected := uint64(h.PixelWidth) * uint64(h.PixelHeight) * 4
	if h.Level0ByteLength != expected {
		return fmt.Errorf("%w: level 0 holds %d bytes, want %d for %dx%d RGBA8",
			ErrUnsupported, h.Level0ByteLength, expected, h.PixelWidth, h.PixelHeight)
	}
	if h.Level0ByteOffset > fileSize || h.Level0ByteLength > fileSize-h.Level0ByteOffset {
		return fmt.Errorf("level 0 data out of range: offset %d + length %d exceeds file size %d",
			h.Level0ByteOffset, h.Level0ByteLength, fileSize)
	}
	return nil
}

// Level0Pixels returns the raw RGBA8 pixel bytes of the first (and only
// supported) mip level, vertically flipped so that row 0 is the bottom row
// of the stored image. data must be the same contents ParseHeader saw.
func (h *Header) Level0Pixels(data []byte) ([]byte, error) {
	if h.Level0ByteOffset > uint64(len(data)) || h.Level0ByteLength > uint64(len(data))-h.Level0ByteOffset {
		return nil, fmt.Errorf("level 0 data out of range: offset %d + length %d exceeds %d bytes",
			h.Level0ByteOffset, h.Level0ByteLength, len(data))
	}

	src := data[h.Level0ByteOffset : h.Level0ByteOffset+h.Level0ByteLength]
	stride := int(h.PixelWidth) * 4
	height := int(h.PixelHeight)

	out := make([]byte, len(src))
	for row := 0; row < height; row++ {
		copy(out[row*stride:(row+1)*stride], src[(height-1-row)*stride:(height-row)*stride])
	}
	return out, nil
}

// String returns a human-readable summary of the header.
func (h *Header) String() string {
	return fmt.Sprintf("KTX2: %dx%d, %d levels, format=%s, supercompression=%s",
		h.PixelWidth, h.PixelHeight, h.LevelCount,
		FormatName(h.VkFormat), SchemeName(h.Supercompression))
}

// SchemeName returns a human-readable name for a supercompression scheme id.
func SchemeName(scheme uint32) string {
	switch scheme {
	case SupercompressionNone:
		return "none"
	case SupercompressionBasisLZ:
		return "BasisLZ"
	case SupercompressionZstd:
		return "Zstandard"
	case SupercompressionZLIB:
		return "ZLIB"
	default:
		return fmt.Sprintf("unknown(%d)", scheme)
	}
}

// FormatName returns a human-readable name for a Vulkan format code.
func FormatName(format uint32) string {
	switch format {
	case VkFormatUndefined:
		return "VK_FORMAT_UNDEFINED"
	case VkFormatR8G8B8A8Unorm:
		return "R8G8B8A8_UNORM"
	case VkFormatR8G8B8A8Srgb:
		return "R8G8B8A8_SRGB"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", format)
	}
}
