package cubemap

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"
)

// faceBasis maps normalized face coordinates (u,v) in [-1,1] to an
// unnormalized 3D direction. Indexed by Axis. The decode path inverts
// these closed-form, so the two tables must stay in lockstep.
var faceBasis = [NumFaces]func(u, v float64) (dx, dy, dz float64){
	AxisPosX: func(u, v float64) (float64, float64, float64) { return 1, v, -u },
	AxisNegX: func(u, v float64) (float64, float64, float64) { return -1, v, u },
	AxisPosY: func(u, v float64) (float64, float64, float64) { return u, 1, -v },
	AxisNegY: func(u, v float64) (float64, float64, float64) { return u, -1, v },
	AxisPosZ: func(u, v float64) (float64, float64, float64) { return u, v, 1 },
	AxisNegZ: func(u, v float64) (float64, float64, float64) { return -u, v, -1 },
}

// EquirectToFaces projects an equirectangular panorama onto six cube
// faces of the given edge length, in canonical axis order. Source
// pixels are sampled bilinearly. The source must be twice as wide as
// it is tall.
func EquirectToFaces(src *image.NRGBA, faceResolution int) (*FaceSet, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w != 2*h {
		return nil, fmt.Errorf("cubemap: source is %dx%d, want 2:1 aspect", w, h)
	}
	if faceResolution <= 0 {
		return nil, fmt.Errorf("cubemap: face resolution %d out of range", faceResolution)
	}

	var fs FaceSet
	var wg sync.WaitGroup
	for axis := range fs {
		dst := image.NewNRGBA(image.Rect(0, 0, faceResolution, faceResolution))
		fs[axis] = dst
		wg.Add(1)
		go func(axis int, dst *image.NRGBA) {
			defer wg.Done()
			renderFace(dst, src, Axis(axis), faceResolution)
		}(axis, dst)
	}
	wg.Wait()
	return &fs, nil
}

func renderFace(dst, src *image.NRGBA, axis Axis, res int) {
	basis := faceBasis[axis]
	sb := src.Bounds()
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	for y := 0; y < res; y++ {
		v := 2*float64(y)/float64(res) - 1
		for x := 0; x < res; x++ {
			u := 2*float64(x)/float64(res) - 1
			dx, dy, dz := basis(u, v)
			n := math.Sqrt(dx*dx + dy*dy + dz*dz)
			dx, dy, dz = dx/n, dy/n, dz/n

			theta := math.Atan2(dx, dz)
			phi := math.Asin(dy)
			eu := (theta + math.Pi) / (2 * math.Pi)
			ev := 1 - (phi+math.Pi/2)/math.Pi

			sx := clampF(eu*(sw-1), 0, sw-1)
			sy := clampF(ev*(sh-1), 0, sh-1)
			dst.SetNRGBA(x, y, sampleBilinear(src, sx, sy))
		}
	}
}

// FacesToEquirect reprojects a canonical face set into an
// equirectangular panorama of the given width; the height is half the
// width. Each output pixel reads the nearest pixel of the face its
// view direction lands on.
func FacesToEquirect(fs *FaceSet, outputWidth int) (*image.NRGBA, error) {
	res, err := fs.Resolution()
	if err != nil {
		return nil, err
	}
	if outputWidth <= 0 || outputWidth%2 != 0 {
		return nil, fmt.Errorf("cubemap: output width %d must be positive and even", outputWidth)
	}
	w := outputWidth
	h := w / 2
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	workers := runtime.GOMAXPROCS(0)
	if workers > h {
		workers = h
	}
	band := (h + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < h; start += band {
		end := start + band
		if end > h {
			end = h
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			renderRows(out, fs, res, w, h, y0, y1)
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

// renderRows walks the same corner-anchored pixel grid the encode path
// samples with, so a decoded pixel inverts exactly the direction its
// face pixel was rendered from.
func renderRows(out *image.NRGBA, fs *FaceSet, res, w, h, y0, y1 int) {
	rows := float64(h - 1)
	if rows == 0 {
		rows = 1
	}
	for y := y0; y < y1; y++ {
		ev := float64(y) / rows
		phi := (1-ev)*math.Pi - math.Pi/2
		dy := math.Sin(phi)
		cosPhi := math.Cos(phi)
		for x := 0; x < w; x++ {
			eu := float64(x) / float64(w-1)
			theta := eu*2*math.Pi - math.Pi
			dx := cosPhi * math.Sin(theta)
			dz := cosPhi * math.Cos(theta)

			axis, fu, fv := faceLookup(dx, dy, dz)
			px := int(math.Round((fu + 1) / 2 * float64(res-1)))
			py := int(math.Round((fv + 1) / 2 * float64(res-1)))
			px = clampI(px, 0, res-1)
			py = clampI(py, 0, res-1)
			out.SetNRGBA(x, y, fs[axis].NRGBAAt(px, py))
		}
	}
}

// faceLookup picks the face a direction lands on and inverts that
// face's basis to recover its (u,v). Ties on the dominant component
// resolve X over Y over Z.
func faceLookup(dx, dy, dz float64) (Axis, float64, float64) {
	ax, ay, az := math.Abs(dx), math.Abs(dy), math.Abs(dz)
	switch {
	case ax >= ay && ax >= az:
		if dx > 0 {
			return AxisPosX, -dz / dx, dy / dx
		}
		return AxisNegX, dz / -dx, dy / -dx
	case ay >= az:
		if dy > 0 {
			return AxisPosY, dx / dy, -dz / dy
		}
		return AxisNegY, dx / -dy, dz / -dy
	default:
		if dz > 0 {
			return AxisPosZ, dx / dz, dy / dz
		}
		return AxisNegZ, dx / dz, dy / -dz
	}
}

func sampleBilinear(src *image.NRGBA, x, y float64) color.NRGBA {
	b := src.Bounds()
	x0 := int(x)
	y0 := int(y)
	x1 := clampI(x0+1, 0, b.Dx()-1)
	y1 := clampI(y0+1, 0, b.Dy()-1)
	fx := x - float64(x0)
	fy := y - float64(y0)

	c00 := src.NRGBAAt(x0, y0)
	c10 := src.NRGBAAt(x1, y0)
	c01 := src.NRGBAAt(x0, y1)
	c11 := src.NRGBAAt(x1, y1)

	lerp := func(a, b uint8, t float64) float64 {
		return float64(a)*(1-t) + float64(b)*t
	}
	blend := func(a, b, c, d uint8) uint8 {
		top := lerp(a, b, fx)
		bot := lerp(c, d, fx)
		return uint8(math.Round(top*(1-fy) + bot*fy))
	}
	return color.NRGBA{
		R: blend(c00.R, c10.R, c01.R, c11.R),
		G: blend(c00.G, c10.G, c01.G, c11.G),
		B: blend(c00.B, c10.B, c01.B, c11.B),
		A: blend(c00.A, c10.A, c01.A, c11.A),
	}
}

func clampF(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func clampI(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
