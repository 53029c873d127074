package cubemap

import (
	"errors"
	"image"
	"testing"
)

func namedFaces(size int, names ...string) []NamedFace {
	faces := make([]NamedFace, len(names))
	for i, name := range names {
		faces[i] = NamedFace{Name: name, Image: image.NewNRGBA(image.Rect(0, 0, size, size))}
	}
	return faces
}

// markFace tags a face image so tests can tell which input landed at
// which canonical slot.
func markFace(f NamedFace, tag uint8) NamedFace {
	f.Image.Pix[0] = tag
	return f
}

func tagsOf(fs FaceSet) [NumFaces]uint8 {
	var tags [NumFaces]uint8
	for i, img := range fs {
		tags[i] = img.Pix[0]
	}
	return tags
}

func TestIdentify(t *testing.T) {
	t.Run("AxisSuffixes", func(t *testing.T) {
		faces := namedFaces(4, "env_px.png", "env_nx.png", "env_py.png", "env_ny.png", "env_pz.png", "env_nz.png")
		for i := range faces {
			faces[i] = markFace(faces[i], uint8(i))
		}
		order, err := Identify(faces)
		if err != nil {
			t.Fatalf("identify: %v", err)
		}
		if order.Method != MethodAxisTokens {
			t.Fatalf("method: got %s, want %s", order.Method, MethodAxisTokens)
		}
		if got := tagsOf(order.Faces); got != [NumFaces]uint8{0, 1, 2, 3, 4, 5} {
			t.Errorf("face order: got %v", got)
		}
	})

	t.Run("DirectionWords", func(t *testing.T) {
		// Shuffled input; words map to canonical axes regardless.
		faces := namedFaces(4, "back.png", "top.png", "left.png", "front.png", "bottom.png", "right.png")
		for i := range faces {
			faces[i] = markFace(faces[i], uint8(i))
		}
		order, err := Identify(faces)
		if err != nil {
			t.Fatalf("identify: %v", err)
		}
		if order.Method != MethodAxisTokens {
			t.Fatalf("method: got %s, want %s", order.Method, MethodAxisTokens)
		}
		// right left top bottom front back
		if got := tagsOf(order.Faces); got != [NumFaces]uint8{5, 2, 1, 4, 3, 0} {
			t.Errorf("face order: got %v", got)
		}
	})

	t.Run("FaceIndexTokens", func(t *testing.T) {
		faces := namedFaces(4, "cube_f3_.png", "cube_f0_.png", "cube_f5_.png", "cube_f1_.png", "cube_f4_.png", "cube_f2_.png")
		for i := range faces {
			faces[i] = markFace(faces[i], uint8(i))
		}
		order, err := Identify(faces)
		if err != nil {
			t.Fatalf("identify: %v", err)
		}
		if order.Method != MethodFaceIndex {
			t.Fatalf("method: got %s, want %s", order.Method, MethodFaceIndex)
		}
		if got := tagsOf(order.Faces); got != [NumFaces]uint8{1, 3, 5, 0, 4, 2} {
			t.Errorf("face order: got %v", got)
		}
	})

	t.Run("TrailingDigits", func(t *testing.T) {
		faces := namedFaces(4, "img12.png", "img10.png", "img15.png", "img11.png", "img14.png", "img13.png")
		for i := range faces {
			faces[i] = markFace(faces[i], uint8(i))
		}
		order, err := Identify(faces)
		if err != nil {
			t.Fatalf("identify: %v", err)
		}
		if order.Method != MethodTrailingDigits {
			t.Fatalf("method: got %s, want %s", order.Method, MethodTrailingDigits)
		}
		if got := tagsOf(order.Faces); got != [NumFaces]uint8{1, 3, 0, 5, 4, 2} {
			t.Errorf("face order: got %v", got)
		}
	})

	t.Run("LexicographicFallback", func(t *testing.T) {
		faces := namedFaces(4, "d.png", "a.png", "f.png", "b.png", "e.png", "c.png")
		for i := range faces {
			faces[i] = markFace(faces[i], uint8(i))
		}
		order, err := Identify(faces)
		if err != nil {
			t.Fatalf("identify: %v", err)
		}
		if !order.LowConfidence() {
			t.Error("lexicographic ordering should be low confidence")
		}
		if got := tagsOf(order.Faces); got != [NumFaces]uint8{1, 3, 5, 0, 4, 2} {
			t.Errorf("face order: got %v", got)
		}
	})

	t.Run("DuplicateIndexFallsThrough", func(t *testing.T) {
		// Two f0 tokens break the index rule; trailing digits repeat
		// too, so the lexicographic fallback takes over.
		faces := namedFaces(4, "m_f0_.png", "a_f0_.png", "b_f1_.png", "c_f2_.png", "d_f3_.png", "e_f4_.png")
		order, err := Identify(faces)
		if err != nil {
			t.Fatalf("identify: %v", err)
		}
		if order.Method != MethodLexicographic {
			t.Fatalf("method: got %s, want %s", order.Method, MethodLexicographic)
		}
	})

	t.Run("WrongCount", func(t *testing.T) {
		var mismatch *FaceMismatchError
		_, err := Identify(namedFaces(4, "a.png", "b.png"))
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected FaceMismatchError, got %v", err)
		}
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		faces := namedFaces(4, "a.png", "b.png", "c.png", "d.png", "e.png", "f.png")
		faces[3].Image = image.NewNRGBA(image.Rect(0, 0, 8, 8))
		var mismatch *FaceMismatchError
		if _, err := Identify(faces); !errors.As(err, &mismatch) {
			t.Fatalf("expected FaceMismatchError, got %v", err)
		}
	})
}
