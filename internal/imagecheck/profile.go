package imagecheck

import (
	"fmt"
	"sort"
)

// Kind selects which rule a Profile applies.
type Kind string

const (
	KindExactSize         Kind = "exact_size"
	KindSquareWithMinimum Kind = "square_with_minimum"
)

// Profile is a named dimension constraint.
type Profile struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Kind    Kind   `json:"kind"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	MinSide int    `json:"min_side,omitempty"`
}

// ExactSize requires the image to be exactly width x height.
func ExactSize(name, label string, width, height int) Profile {
	return Profile{Name: name, Label: label, Kind: KindExactSize, Width: width, Height: height}
}

// SquareWithMinimum requires width == height and both at least minSide.
func SquareWithMinimum(name, label string, minSide int) Profile {
	return Profile{Name: name, Label: label, Kind: KindSquareWithMinimum, MinSide: minSide}
}

var (
	CategoryIcon   = ExactSize("category", "Category image", 300, 300)
	CustomerAvatar = ExactSize("avatar", "Customer avatar", 400, 400)
	PromoBanner    = ExactSize("banner", "Banner image", 1000, 500)
	ProductPhoto   = SquareWithMinimum("product", "Product image", 800)
)

var profiles = map[string]Profile{
	CategoryIcon.Name:   CategoryIcon,
	CustomerAvatar.Name: CustomerAvatar,
	PromoBanner.Name:    PromoBanner,
	ProductPhoto.Name:   ProductPhoto,
}

// Lookup returns the named profile.
func Lookup(name string) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// Profiles lists the named profiles ordered by name.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ConstraintViolation is a decoded image that does not satisfy a profile.
type ConstraintViolation struct {
	Profile string
	Message string
}

func (e *ConstraintViolation) Error() string {
	return e.Message
}

// Check applies the profile rule to d. Aspect ratio is checked before minimum size.
func (p Profile) Check(d Dimensions) *ConstraintViolation {
	switch p.Kind {
	case KindExactSize:
		if d.Width != p.Width || d.Height != p.Height {
			return p.violation("%s must be exactly %dx%dpx (got %dx%dpx)", p.Label, p.Width, p.Height, d.Width, d.Height)
		}
	case KindSquareWithMinimum:
		if d.Width != d.Height {
			return p.violation("%s must be square (1:1 aspect ratio)", p.Label)
		}
		if d.Width < p.MinSide {
			return p.violation("%s must be at least %dx%dpx", p.Label, p.MinSide, p.MinSide)
		}
	default:
		return p.violation("unknown profile kind %q", p.Kind)
	}
	return nil
}

func (p Profile) violation(format string, args ...any) *ConstraintViolation {
	return &ConstraintViolation{Profile: p.Name, Message: fmt.Sprintf(format, args...)}
}
