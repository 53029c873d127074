// Package container reads, patches, and writes glTF asset containers in
// their three storage layouts:
//
// 1. Monolithic GLB files (binary header + JSON chunk + BIN chunk)
// 2. JSON .gltf documents with an external .bin buffer file
// 3. JSON .gltf documents with the buffer embedded as a base64 data URI
//
// The package's main job is relocating inline base64 image payloads out of
// the JSON document and into properly aligned regions of the single binary
// buffer, rewriting image and bufferView cross-references to match.
package container

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qmuntal/gltf"
)

// Layout identifies how a container stores its binary buffer.
type Layout int

const (
	// Monolithic is a single .glb file with JSON and binary chunks.
	Monolithic Layout = iota
	// SeparateFile is a .gltf document whose buffer lives in a sibling file.
	SeparateFile
	// EmbeddedDataURI is a .gltf document whose buffer is a base64 data URI.
	EmbeddedDataURI
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case Monolithic:
		return "monolithic"
	case SeparateFile:
		return "separate-file"
	case EmbeddedDataURI:
		return "embedded-data-uri"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// Container is an in-memory glTF asset: the parsed JSON document plus the
// contents of its single binary buffer. A Container exclusively owns both
// for the duration of a patch operation; no internal locking is provided.
type Container struct {
	Doc    *gltf.Document
	Chunk  []byte
	Layout Layout

	// binURI is the relative URI of the external buffer file for the
	// SeparateFile layout, if one is already referenced by the document.
	binURI string
}

// Open reads a container from disk, detecting its layout from the file
// contents rather than the extension. For the SeparateFile layout a missing
// buffer file is tolerated and treated as an empty buffer.
func Open(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read container: %w", err)
	}

	if isGLB(data) {
		doc, chunk, err := DecodeGLB(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		return &Container{Doc: doc, Chunk: chunk, Layout: Monolithic}, nil
	}

	doc := new(gltf.Document)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	c := &Container{Doc: doc, Layout: SeparateFile}
	if len(doc.Buffers) == 0 {
		return c, nil
	}

	buf := doc.Buffers[0]
	switch {
	// Embedded buffers appear under several MIME types in the wild
	// (application/octet-stream, application/gltf-buffer), so any data
	// URI counts as embedded.
	case strings.HasPrefix(buf.URI, "data:"):
		chunk, err := decodeDataURI(buf.URI)
		if err != nil {
			return nil, fmt.Errorf("decode embedded buffer: %w", err)
		}
		c.Chunk = chunk
		c.Layout = EmbeddedDataURI
	case buf.URI != "":
		c.binURI = buf.URI
		binPath := filepath.Join(filepath.Dir(path), filepath.FromSlash(buf.URI))
		chunk, err := os.ReadFile(binPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read buffer file: %w", err)
		}
		c.Chunk = chunk
	}
	return c, nil
}

// Write serializes the container back to disk at path, applying the
// layout-specific finalization. For the SeparateFile layout the buffer is
// written in full to its sibling file (an existing URI is reused, otherwise
// one is derived from path).
func (c *Container) Write(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	switch c.Layout {
	case Monolithic:
		data, err := EncodeGLB(c.Doc, c.Chunk)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write container: %w", err)
		}
		return nil

	case SeparateFile:
		if len(c.Chunk) > 0 || c.binURI != "" {
			if c.binURI == "" {
				base := filepath.Base(path)
				c.binURI = strings.TrimSuffix(base, filepath.Ext(base)) + ".bin"
			}
			if len(c.Doc.Buffers) > 0 {
				c.Doc.Buffers[0].URI = c.binURI
			}
			binPath := filepath.Join(filepath.Dir(path), filepath.FromSlash(c.binURI))
			if err := os.WriteFile(binPath, c.Chunk, 0644); err != nil {
				return fmt.Errorf("write buffer file: %w", err)
			}
		}
		return c.writeJSON(path)

	case EmbeddedDataURI:
		if len(c.Doc.Buffers) > 0 {
			buf := c.Doc.Buffers[0]
			buf.Data = c.Chunk
			buf.EmbeddedResource()
			buf.Data = nil
		}
		return c.writeJSON(path)

	default:
		return fmt.Errorf("unknown layout %s", c.Layout)
	}
}

// writeJSON serializes the document to a UTF-8 JSON file.
func (c *Container) writeJSON(path string) error {
	data, err := json.Marshal(c.Doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write container: %w", err)
	}
	return nil
}

// Validate checks the container's structural invariants: the chunk length is
// 4-byte aligned, buffers[0].byteLength matches the chunk, and every buffer
// view into buffer 0 is in-bounds and does not overlap another.
func (c *Container) Validate() error {
	if len(c.Chunk)%4 != 0 {
		return fmt.Errorf("binary chunk length %d is not 4-byte aligned", len(c.Chunk))
	}
	if len(c.Doc.Buffers) > 0 {
		if got := c.Doc.Buffers[0].ByteLength; got != uint32(len(c.Chunk)) {
			return fmt.Errorf("buffers[0].byteLength is %d, want %d", got, len(c.Chunk))
		}
	}

	type span struct {
		view, offset, length int
	}
	var spans []span
	for i, bv := range c.Doc.BufferViews {
		if bv == nil || bv.Buffer != 0 {
			continue
		}
		end := uint64(bv.ByteOffset) + uint64(bv.ByteLength)
		if end > uint64(len(c.Chunk)) {
			return fmt.Errorf("bufferViews[%d] [%d, %d) exceeds buffer length %d",
				i, bv.ByteOffset, end, len(c.Chunk))
		}
		spans = append(spans, span{i, int(bv.ByteOffset), int(bv.ByteLength)})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].offset < spans[j].offset })
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if prev.offset+prev.length > cur.offset {
			return fmt.Errorf("bufferViews[%d] and bufferViews[%d] overlap", prev.view, cur.view)
		}
	}
	return nil
}

// decodeDataURI extracts and decodes the base64 payload of a data URI.
func decodeDataURI(uri string) ([]byte, error) {
	_, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, fmt.Errorf("malformed data URI")
	}
	return base64.StdEncoding.DecodeString(payload)
}

// pad4 returns the number of padding bytes needed to align n to 4 bytes.
func pad4(n int) int {
	return (4 - n%4) % 4
}

// padChunk aligns the chunk to a 4-byte boundary with zero bytes.
func (c *Container) padChunk() {
	if p := pad4(len(c.Chunk)); p > 0 {
		c.Chunk = append(c.Chunk, make([]byte, p)...)
	}
}
