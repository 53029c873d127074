// Package cubemap converts between equirectangular panoramas and
// six-face cubemaps. Faces follow the canonical +X -X +Y -Y +Z -Z
// order used by cubemap texture tooling.
package cubemap

import (
	"fmt"
	"image"
)

// Axis identifies one of the six cube faces.
type Axis int

const (
	AxisPosX Axis = iota
	AxisNegX
	AxisPosY
	AxisNegY
	AxisPosZ
	AxisNegZ

	// NumFaces is the face count of a complete cubemap.
	NumFaces = 6
)

func (a Axis) String() string {
	switch a {
	case AxisPosX:
		return "+X"
	case AxisNegX:
		return "-X"
	case AxisPosY:
		return "+Y"
	case AxisNegY:
		return "-Y"
	case AxisPosZ:
		return "+Z"
	case AxisNegZ:
		return "-Z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Face pairs a cube axis with its square pixel data.
type Face struct {
	Axis  Axis
	Image *image.NRGBA
}

// FaceSet holds one face per axis, indexed by Axis.
type FaceSet [NumFaces]*image.NRGBA

// FaceMismatchError reports a face set whose images cannot form a
// cubemap, either because a face is missing or the sizes disagree.
type FaceMismatchError struct {
	Reason string
}

func (e *FaceMismatchError) Error() string {
	return "cubemap: " + e.Reason
}

// Resolution returns the shared face edge length, validating that all
// six faces are present, square, and the same size.
func (fs *FaceSet) Resolution() (int, error) {
	res := 0
	for axis, img := range fs {
		if img == nil {
			return 0, &FaceMismatchError{Reason: fmt.Sprintf("missing %s face", Axis(axis))}
		}
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w != h {
			return 0, &FaceMismatchError{Reason: fmt.Sprintf("%s face is %dx%d, not square", Axis(axis), w, h)}
		}
		if res == 0 {
			res = w
		} else if w != res {
			return 0, &FaceMismatchError{Reason: fmt.Sprintf("%s face is %dx%d, expected %dx%d", Axis(axis), w, h, res, res)}
		}
	}
	if res == 0 {
		return 0, &FaceMismatchError{Reason: "faces have zero size"}
	}
	return res, nil
}
