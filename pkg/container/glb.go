package container

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
)

// GLB framing constants. All integers in a GLB file are little-endian u32.
const (
	glbMagic   uint32 = 0x46546C67 // "glTF"
	glbVersion uint32 = 2

	chunkJSON uint32 = 0x4E4F534A // "JSON"
	chunkBIN  uint32 = 0x004E4942 // "BIN\0"

	glbHeaderSize   = 12
	chunkHeaderSize = 8

	jsonPadByte = 0x20 // ASCII space
	binPadByte  = 0x00
)

var (
	errGLBMagic     = errors.New("invalid GLB magic")
	errGLBVersion   = errors.New("unsupported GLB version")
	errMissingJSON  = errors.New("GLB file has no JSON chunk")
	errGLBTruncated = errors.New("GLB file truncated")
)

// isGLB reports whether data starts with the GLB magic.
func isGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[0:4]) == glbMagic
}

// DecodeGLB parses a monolithic GLB file into its JSON document and binary
// chunk. The binary chunk may be nil when the file carries none. Chunk
// bounds are checked before any slicing; unknown chunk types are skipped.
func DecodeGLB(data []byte) (*gltf.Document, []byte, error) {
	if len(data) < glbHeaderSize {
		return nil, nil, errGLBTruncated
	}
	if binary.LittleEndian.Uint32(data[0:4]) != glbMagic {
		return nil, nil, errGLBMagic
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != glbVersion {
		return nil, nil, fmt.Errorf("%w: %d", errGLBVersion, v)
	}
	total := binary.LittleEndian.Uint32(data[8:12])
	if uint64(total) > uint64(len(data)) {
		return nil, nil, fmt.Errorf("%w: header declares %d bytes, file has %d", errGLBTruncated, total, len(data))
	}

	var (
		jsonChunk []byte
		binChunk  []byte
	)
	for pos := glbHeaderSize; pos < int(total); {
		if pos+chunkHeaderSize > int(total) {
			return nil, nil, errGLBTruncated
		}
		length := binary.LittleEndian.Uint32(data[pos : pos+4])
		ctype := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		pos += chunkHeaderSize
		if uint64(pos)+uint64(length) > uint64(total) {
			return nil, nil, fmt.Errorf("%w: chunk of %d bytes at offset %d", errGLBTruncated, length, pos)
		}

		switch ctype {
		case chunkJSON:
			jsonChunk = data[pos : pos+int(length)]
		case chunkBIN:
			binChunk = data[pos : pos+int(length)]
		}

		pos += int(length)
		pos += pad4(pos)
	}

	if jsonChunk == nil {
		return nil, nil, errMissingJSON
	}

	doc := new(gltf.Document)
	if err := json.Unmarshal(jsonChunk, doc); err != nil {
		return nil, nil, fmt.Errorf("parse JSON chunk: %w", err)
	}

	// Copy so the chunk survives the caller releasing the file buffer.
	if binChunk != nil {
		binChunk = append([]byte(nil), binChunk...)
	}
	return doc, binChunk, nil
}

// EncodeGLB serializes a document and binary chunk into GLB framing: the
// JSON chunk is padded to a 4-byte boundary with spaces, the binary chunk
// with zero bytes, and the header's total length covers both. An empty
// chunk produces a file with only the JSON chunk.
func EncodeGLB(doc *gltf.Document, chunk []byte) ([]byte, error) {
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	jsonLen := len(jsonBytes) + pad4(len(jsonBytes))
	binLen := len(chunk) + pad4(len(chunk))

	total := glbHeaderSize + chunkHeaderSize + jsonLen
	if binLen > 0 {
		total += chunkHeaderSize + binLen
	}

	out := make([]byte, 0, total)
	var scratch [4]byte

	put := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:], v)
		out = append(out, scratch[:]...)
	}

	put(glbMagic)
	put(glbVersion)
	put(uint32(total))

	put(uint32(jsonLen))
	put(chunkJSON)
	out = append(out, jsonBytes...)
	for i := 0; i < pad4(len(jsonBytes)); i++ {
		out = append(out, jsonPadByte)
	}

	if binLen > 0 {
		put(uint32(binLen))
		put(chunkBIN)
		out = append(out, chunk...)
		for i := 0; i < pad4(len(chunk)); i++ {
			out = append(out, binPadByte)
		}
	}

	return out, nil
}
