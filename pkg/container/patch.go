package container

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/qmuntal/gltf"
)

// ImageDecodeError reports which image entry carried a payload that could
// not be decoded. The container is left unmodified when it is returned.
type ImageDecodeError struct {
	Index int
	Err   error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("image %d: %v", e.Index, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

// RelocateImages moves every image whose URI is an inline base64 data URI of
// the given MIME type (e.g. "image/ktx2") out of the JSON document and into
// the binary buffer. Each relocated payload is appended at a 4-byte aligned
// offset behind a freshly created buffer view, the image's URI is cleared,
// and buffers[0].byteLength is brought up to date (the buffer entry is
// created if the document has none).
//
// The operation is all-or-nothing: every matching payload is decoded before
// anything is mutated, and a decode failure aborts with an ImageDecodeError
// naming the offending image. Images referencing external URIs or buffer
// views are left untouched, which also makes the operation idempotent.
//
// It returns the number of images relocated.
func (c *Container) RelocateImages(mimeType string) (int, error) {
	prefix := "data:" + mimeType + ";base64,"

	type pending struct {
		index int
		raw   []byte
	}
	var matched []pending

	for i, img := range c.Doc.Images {
		if img == nil || !strings.HasPrefix(img.URI, prefix) {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(img.URI[len(prefix):])
		if err != nil {
			return 0, &ImageDecodeError{Index: i, Err: err}
		}
		matched = append(matched, pending{index: i, raw: raw})
	}

	if len(matched) == 0 {
		return 0, nil
	}

	for _, p := range matched {
		c.padChunk()
		offset := len(c.Chunk)
		c.Chunk = append(c.Chunk, p.raw...)

		viewIndex := uint32(len(c.Doc.BufferViews))
		c.Doc.BufferViews = append(c.Doc.BufferViews, &gltf.BufferView{
			Buffer:     0,
			ByteOffset: uint32(offset),
			ByteLength: uint32(len(p.raw)),
		})

		img := c.Doc.Images[p.index]
		img.BufferView = gltf.Index(viewIndex)
		img.MimeType = mimeType
		img.URI = ""
	}

	c.padChunk()
	if len(c.Doc.Buffers) == 0 {
		c.Doc.Buffers = append(c.Doc.Buffers, &gltf.Buffer{})
	}
	c.Doc.Buffers[0].ByteLength = uint32(len(c.Chunk))

	return len(matched), nil
}
