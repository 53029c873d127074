package main

import (
	"context"
	"fmt"
	"image"
	stddraw "image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/goopsie/gltfKtxTools/pkg/container"
	"github.com/goopsie/gltfKtxTools/pkg/cubemap"
	"github.com/goopsie/gltfKtxTools/pkg/ktx2"
	"github.com/goopsie/gltfKtxTools/pkg/ktxtools"
	"github.com/rs/zerolog"
)

// runPatch relocates inline base64 KTX2 image payloads into the
// container's binary chunk.
func runPatch(log zerolog.Logger) error {
	c, err := container.Open(inputPath)
	if err != nil {
		return err
	}
	log.Debug().Stringer("layout", c.Layout).Msg("opened container")

	n, err := c.RelocateImages("image/ktx2")
	if err != nil {
		return err
	}
	if n == 0 {
		log.Info().Msg("no inline ktx2 images, nothing to do")
		return nil
	}
	if err := c.Validate(); err != nil {
		return err
	}

	out := outputPath
	if out == "" {
		out = inputPath
	}
	if err := c.Write(out); err != nil {
		return err
	}
	log.Info().Int("images", n).Str("output", out).Msg("relocated inline images")
	return nil
}

func encodeOptions(cfg settings) (ktxtools.EncodeOptions, error) {
	m, err := ktxtools.ParseMode(cfg.Compression)
	if err != nil {
		return ktxtools.EncodeOptions{}, err
	}
	return ktxtools.EncodeOptions{Mode: m, Quality: cfg.Quality, GenMipmaps: cfg.GenMipmaps}, nil
}

// runEncode compresses a single image into a KTX2 texture via toktx.
func runEncode(ctx context.Context, log zerolog.Logger, cfg settings) error {
	opts, err := encodeOptions(cfg)
	if err != nil {
		return err
	}
	out := outputPath
	if out == "" {
		out = replaceExt(inputPath, ".ktx2")
	}

	tools := ktxtools.New(cfg.ToolsDir, log)
	if err := tools.Encode(ctx, out, inputPath, opts); err != nil {
		return err
	}
	log.Info().Str("output", out).Stringer("mode", opts.Mode).Msg("encoded texture")
	return nil
}

// runDecode extracts a KTX2 texture to PNG. When the ktx executable
// is missing or fails it falls back to a built-in reader that handles
// uncompressed RGBA8 textures only.
func runDecode(ctx context.Context, log zerolog.Logger, cfg settings) error {
	out := outputPath
	if out == "" {
		out = replaceExt(inputPath, ".png")
	}

	tools := ktxtools.New(cfg.ToolsDir, log)
	if tools.Available() {
		err := tools.Extract(ctx, inputPath, out)
		if err == nil {
			log.Info().Str("output", out).Msg("extracted texture")
			return nil
		}
		log.Warn().Err(err).Msg("ktx extract failed, falling back to built-in rgba8 reader")
	} else {
		log.Warn().Msg("ktx executable not found, falling back to built-in rgba8 reader")
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	hdr, err := ktx2.ParseHeader(data)
	if err != nil {
		return err
	}
	log.Debug().Stringer("header", hdr).Msg("parsed texture header")

	pixels, err := hdr.Level0Pixels(data)
	if err != nil {
		return err
	}
	img := &image.NRGBA{
		Pix:    pixels,
		Stride: int(hdr.PixelWidth) * 4,
		Rect:   image.Rect(0, 0, int(hdr.PixelWidth), int(hdr.PixelHeight)),
	}
	if err := savePNG(out, img); err != nil {
		return err
	}
	log.Info().Str("output", out).Msg("decoded texture")
	return nil
}

// runEnvmapExport projects an equirectangular PNG into six cube faces
// and compresses them into a cubemap KTX2 texture.
func runEnvmapExport(ctx context.Context, log zerolog.Logger, cfg settings) error {
	opts, err := encodeOptions(cfg)
	if err != nil {
		return err
	}

	src, err := loadPNG(inputPath)
	if err != nil {
		return err
	}
	res := cfg.FaceSize
	if res <= 0 {
		res = src.Bounds().Dx() / 4
	}

	fs, err := cubemap.EquirectToFaces(src, res)
	if err != nil {
		return err
	}

	tmp, err := os.MkdirTemp("", "gltfktx-faces-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	var facePaths [cubemap.NumFaces]string
	for axis, img := range fs {
		path := filepath.Join(tmp, fmt.Sprintf("face_%d.png", axis))
		if err := savePNG(path, img); err != nil {
			return err
		}
		facePaths[axis] = path
	}

	out := outputPath
	if out == "" {
		out = replaceExt(inputPath, ".ktx2")
	}
	tools := ktxtools.New(cfg.ToolsDir, log)
	if err := tools.EncodeCubemap(ctx, out, facePaths, opts); err != nil {
		return err
	}
	log.Info().Str("output", out).Int("face_size", res).Msg("exported environment map")
	return nil
}

// runEnvmapImport extracts the faces of a cubemap KTX2 texture and
// reprojects them into an equirectangular PNG.
func runEnvmapImport(ctx context.Context, log zerolog.Logger, cfg settings) error {
	tmp, err := os.MkdirTemp("", "gltfktx-faces-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	tools := ktxtools.New(cfg.ToolsDir, log)
	files, err := tools.ExtractFaces(ctx, inputPath, filepath.Join(tmp, "face"))
	if err != nil {
		return err
	}

	faces := make([]cubemap.NamedFace, 0, len(files))
	for _, f := range files {
		img, loadErr := loadPNG(f)
		if loadErr != nil {
			return loadErr
		}
		faces = append(faces, cubemap.NamedFace{Name: filepath.Base(f), Image: img})
	}

	order, err := cubemap.Identify(faces)
	if err != nil {
		return err
	}
	if order.LowConfidence() {
		log.Warn().Msg("face names unrecognized, falling back to lexicographic face order")
	}
	log.Debug().Stringer("method", order.Method).Msg("identified faces")

	res, err := order.Faces.Resolution()
	if err != nil {
		return err
	}
	eq, err := cubemap.FacesToEquirect(&order.Faces, 4*res)
	if err != nil {
		return err
	}
	if cfg.OutputWidth > 0 {
		eq, err = cubemap.Resize(eq, cfg.OutputWidth, cfg.OutputWidth/2)
		if err != nil {
			return err
		}
	}

	out := outputPath
	if out == "" {
		out = replaceExt(inputPath, ".png")
	}
	if err := savePNG(out, eq); err != nil {
		return err
	}
	log.Info().Str("output", out).Msg("imported environment map")
	return nil
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func loadPNG(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba, nil
	}
	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	stddraw.Draw(nrgba, nrgba.Bounds(), img, b.Min, stddraw.Src)
	return nrgba, nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
