package imagecheck

// FailedMessage is reported when a payload cannot be decoded under Validate.
const FailedMessage = "Failed to validate image"

const (
	VariantProfile   = "variant"
	VariantMessage   = "Variant image must be square (1:1 aspect ratio, 5% tolerance)"
	variantTolerance = 0.05
)

// Result is the outcome of a single validation call.
type Result struct {
	Valid      bool        `json:"valid"`
	Error      string      `json:"error,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
}

// Validate checks f against p. Decode failures are reported as an invalid
// result without dimensions; it never returns an error.
func Validate(f File, p Profile) Result {
	d, err := GetDimensions(f)
	if err != nil {
		return Result{Valid: false, Error: FailedMessage}
	}

	if v := p.Check(d); v != nil {
		return Result{Valid: false, Error: v.Message, Dimensions: &d}
	}
	return Result{Valid: true, Dimensions: &d}
}

// ValidateVariant accepts images whose width/height ratio is within 5% of 1:1.
// Unlike Validate, an undecodable payload is accepted.
func ValidateVariant(f File) Result {
	d, err := GetDimensions(f)
	if err != nil {
		return Result{Valid: true}
	}

	ratio := float64(d.Width) / float64(d.Height)
	if ratio < 1-variantTolerance || ratio > 1+variantTolerance {
		return Result{Valid: false, Error: VariantMessage, Dimensions: &d}
	}
	return Result{Valid: true, Dimensions: &d}
}
