package cubemap

import (
	"fmt"
	"image"
	"regexp"
	"sort"
	"strconv"
)

// NamedFace is a face image paired with the file name it came from.
type NamedFace struct {
	Name  string
	Image *image.NRGBA
}

// Method records which naming rule produced an ordering.
type Method int

const (
	MethodAxisTokens Method = iota
	MethodFaceIndex
	MethodTrailingDigits
	MethodLexicographic
)

func (m Method) String() string {
	switch m {
	case MethodAxisTokens:
		return "axis tokens"
	case MethodFaceIndex:
		return "face index tokens"
	case MethodTrailingDigits:
		return "trailing digits"
	case MethodLexicographic:
		return "lexicographic"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Order is an identified face set in canonical axis order.
type Order struct {
	Faces  FaceSet
	Method Method
}

// LowConfidence reports whether the ordering came from the
// lexicographic fallback and should be surfaced to the user.
func (o *Order) LowConfidence() bool {
	return o.Method == MethodLexicographic
}

// axisPatterns matches face names to axes, indexed by Axis. Negative
// axes require an explicit separator before the sign so that "nx"
// style names don't collide with "-x" style ones.
var axisPatterns = [NumFaces]*regexp.Regexp{
	AxisPosX: regexp.MustCompile(`(?i)[_\-]?\+?X|right|px`),
	AxisNegX: regexp.MustCompile(`(?i)[_\-]\-X|left|nx`),
	AxisPosY: regexp.MustCompile(`(?i)[_\-]?\+?Y|top|up|py`),
	AxisNegY: regexp.MustCompile(`(?i)[_\-]\-Y|bottom|down|ny`),
	AxisPosZ: regexp.MustCompile(`(?i)[_\-]?\+?Z|front|pz`),
	AxisNegZ: regexp.MustCompile(`(?i)[_\-]\-Z|back|nz`),
}

var faceIndexPattern = regexp.MustCompile(`_f(\d+)_`)
var digitRunPattern = regexp.MustCompile(`\d+`)

// Identify orders six face images into canonical axis order based on
// their file names. Naming rules are tried strictly in turn: axis
// tokens, _f<N>_ indices, trailing digit runs, and finally a plain
// lexicographic sort. The fallback always succeeds but is flagged
// low-confidence on the returned Order.
func Identify(faces []NamedFace) (*Order, error) {
	if len(faces) != NumFaces {
		return nil, &FaceMismatchError{Reason: fmt.Sprintf("got %d faces, want %d", len(faces), NumFaces)}
	}
	if err := checkSizes(faces); err != nil {
		return nil, err
	}

	if order, ok := byAxisTokens(faces); ok {
		return order, nil
	}
	if order, ok := byFaceIndex(faces); ok {
		return order, nil
	}
	if order, ok := byTrailingDigits(faces); ok {
		return order, nil
	}
	return byName(faces), nil
}

func checkSizes(faces []NamedFace) error {
	first := faces[0].Image.Bounds()
	for _, f := range faces[1:] {
		if b := f.Image.Bounds(); b.Dx() != first.Dx() || b.Dy() != first.Dy() {
			return &FaceMismatchError{
				Reason: fmt.Sprintf("%q is %dx%d but %q is %dx%d",
					f.Name, b.Dx(), b.Dy(), faces[0].Name, first.Dx(), first.Dy()),
			}
		}
	}
	return nil
}

// byAxisTokens assigns each file to the first unclaimed axis whose
// pattern matches its name, testing axes in canonical order.
func byAxisTokens(faces []NamedFace) (*Order, bool) {
	var fs FaceSet
	claimed := 0
	for _, f := range faces {
		for axis, pat := range axisPatterns {
			if fs[axis] != nil || !pat.MatchString(f.Name) {
				continue
			}
			fs[axis] = f.Image
			claimed++
			break
		}
	}
	if claimed != NumFaces {
		return nil, false
	}
	return &Order{Faces: fs, Method: MethodAxisTokens}, true
}

func byFaceIndex(faces []NamedFace) (*Order, bool) {
	var fs FaceSet
	for _, f := range faces {
		m := faceIndexPattern.FindStringSubmatch(f.Name)
		if m == nil {
			return nil, false
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 0 || idx >= NumFaces || fs[idx] != nil {
			return nil, false
		}
		fs[idx] = f.Image
	}
	return &Order{Faces: fs, Method: MethodFaceIndex}, true
}

func byTrailingDigits(faces []NamedFace) (*Order, bool) {
	type keyed struct {
		key int
		img *image.NRGBA
	}
	ks := make([]keyed, 0, NumFaces)
	seen := make(map[int]bool, NumFaces)
	for _, f := range faces {
		runs := digitRunPattern.FindAllString(f.Name, -1)
		if runs == nil {
			return nil, false
		}
		n, err := strconv.Atoi(runs[len(runs)-1])
		if err != nil || seen[n] {
			return nil, false
		}
		seen[n] = true
		ks = append(ks, keyed{key: n, img: f.Image})
	}
	sort.Slice(ks, func(i, j int) bool { return ks[i].key < ks[j].key })

	var fs FaceSet
	for i, k := range ks {
		fs[i] = k.img
	}
	return &Order{Faces: fs, Method: MethodTrailingDigits}, true
}

func byName(faces []NamedFace) *Order {
	sorted := make([]NamedFace, len(faces))
	copy(sorted, faces)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var fs FaceSet
	for i, f := range sorted {
		fs[i] = f.Image
	}
	return &Order{Faces: fs, Method: MethodLexicographic}
}
