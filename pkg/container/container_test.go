package container

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
)

// inlineKTX2 is a data URI carrying four zero bytes.
const inlineKTX2 = "data:image/ktx2;base64,AAAAAA=="

func patchableDoc() *gltf.Document {
	return &gltf.Document{
		Asset:  gltf.Asset{Version: "2.0"},
		Images: []*gltf.Image{{MimeType: "image/ktx2", URI: inlineKTX2}},
	}
}

func TestOpenWriteMonolithic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.glb")

	data, err := EncodeGLB(patchableDoc(), nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if c.Layout != Monolithic {
		t.Fatalf("layout: got %s, want %s", c.Layout, Monolithic)
	}

	if _, err := c.RelocateImages("image/ktx2"); err != nil {
		t.Fatalf("relocate: %v", err)
	}
	if err := c.Write(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := len(reopened.Chunk); got != 4 {
		t.Errorf("chunk after round trip: got %d bytes, want 4", got)
	}
	img := reopened.Doc.Images[0]
	if img.URI != "" || img.BufferView == nil {
		t.Errorf("image not patched after round trip: uri=%q view=%v", img.URI, img.BufferView)
	}
}

func TestOpenWriteSeparateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.gltf")

	c := &Container{Doc: patchableDoc(), Layout: SeparateFile}
	if _, err := c.RelocateImages("image/ktx2"); err != nil {
		t.Fatalf("relocate: %v", err)
	}
	if err := c.Write(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	binData, err := os.ReadFile(filepath.Join(dir, "scene.bin"))
	if err != nil {
		t.Fatalf("expected sibling buffer file: %v", err)
	}
	if len(binData) != 4 {
		t.Errorf("buffer file: got %d bytes, want 4", len(binData))
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Layout != SeparateFile {
		t.Errorf("layout: got %s, want %s", reopened.Layout, SeparateFile)
	}
	if !bytes.Equal(reopened.Chunk, binData) {
		t.Errorf("chunk does not match buffer file")
	}
	if err := reopened.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestOpenSeparateFileGrowsExistingBuffer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.gltf")

	// Seed an existing external buffer the patch must grow, not clobber.
	prior := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := os.WriteFile(filepath.Join(dir, "geometry.bin"), prior, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	doc := patchableDoc()
	doc.Buffers = []*gltf.Buffer{{URI: "geometry.bin", ByteLength: 4}}
	c := &Container{Doc: doc, Layout: SeparateFile}
	if err := c.writeJSON(path); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	opened, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened.Chunk, prior) {
		t.Fatalf("prior buffer contents not loaded: %v", opened.Chunk)
	}

	if _, err := opened.RelocateImages("image/ktx2"); err != nil {
		t.Fatalf("relocate: %v", err)
	}
	if err := opened.Write(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	grown, err := os.ReadFile(filepath.Join(dir, "geometry.bin"))
	if err != nil {
		t.Fatalf("read buffer file: %v", err)
	}
	if !bytes.Equal(grown[:4], prior) {
		t.Errorf("prior buffer contents clobbered: %v", grown[:4])
	}
	if len(grown) != 8 {
		t.Errorf("buffer file: got %d bytes, want 8", len(grown))
	}

	bv := opened.Doc.BufferViews[0]
	if bv.ByteOffset != 4 || bv.ByteLength != 4 {
		t.Errorf("bufferView: got {%d %d}, want {4 4}", bv.ByteOffset, bv.ByteLength)
	}
}

func TestOpenGltfBufferDataURI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.gltf")

	// Exporters also embed buffers under the application/gltf-buffer
	// MIME type; the layout detection must not mistake it for an
	// external file reference.
	body := `{"asset":{"version":"2.0"},"buffers":[{"uri":"data:application/gltf-buffer;base64,AQIDBA==","byteLength":4}]}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if c.Layout != EmbeddedDataURI {
		t.Fatalf("layout: got %s, want %s", c.Layout, EmbeddedDataURI)
	}
	if !bytes.Equal(c.Chunk, []byte{1, 2, 3, 4}) {
		t.Errorf("chunk: got %v, want [1 2 3 4]", c.Chunk)
	}
}

func TestOpenWriteEmbeddedDataURI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.gltf")

	doc := patchableDoc()
	buf := &gltf.Buffer{Data: []byte{1, 2, 3, 4}, ByteLength: 4}
	buf.EmbeddedResource()
	buf.Data = nil
	doc.Buffers = []*gltf.Buffer{buf}

	c := &Container{Doc: doc, Layout: EmbeddedDataURI, Chunk: []byte{1, 2, 3, 4}}
	if _, err := c.RelocateImages("image/ktx2"); err != nil {
		t.Fatalf("relocate: %v", err)
	}
	if err := c.Write(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Layout != EmbeddedDataURI {
		t.Fatalf("layout: got %s, want %s", reopened.Layout, EmbeddedDataURI)
	}
	if len(reopened.Chunk) != 8 {
		t.Errorf("chunk: got %d bytes, want 8 (4 prior + 4 relocated)", len(reopened.Chunk))
	}
	if !bytes.Equal(reopened.Chunk[:4], []byte{1, 2, 3, 4}) {
		t.Errorf("prior buffer contents lost: %v", reopened.Chunk[:4])
	}
	if err := reopened.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}
