package imageassets

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"strings"

	// Registered decoders determine which formats ValidateContent can
	// recognize. Deployments may register more via image.RegisterFormat.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// ValidateContent checks file bytes against the physical constraints of an
// asset type: byte size, decodability, encoding format, minimum dimensions
// and aspect ratio. Every check runs independently and all violations are
// accumulated; a file that cannot be decoded at all is reported as a
// violation, never silently skipped.
//
// The aspect tolerance rule is round(|actual-aspect| / accuracy) <= 1. The
// rounding at the 1-unit boundary means deviations up to roughly 1.5x the
// accuracy still pass. Downstream data depends on this rule; do not tighten
// it to a plain delta <= accuracy comparison.
func ValidateContent(data []byte, assetType *AssetType) []Violation {
	var violations []Violation

	if assetType.MaxSize > 0 && int64(len(data)) > assetType.MaxSize {
		violations = append(violations, Violation{
			Code:    ViolationFileTooLarge,
			Message: fmt.Sprintf("file size must be not greater than %d bytes", assetType.MaxSize),
		})
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		violations = append(violations, Violation{
			Code:    ViolationUndecodable,
			Message: fmt.Sprintf("file is not a recognized image: %v", err),
		})
		// Nothing more to check without decoded dimensions.
		return violations
	}

	if !assetType.FormatAllowed(Format(format)) {
		violations = append(violations, Violation{
			Code:    ViolationBadFormat,
			Message: fmt.Sprintf("image format must be one of: %s", joinFormats(assetType.AllowedFormats)),
		})
	}

	if assetType.MinWidth > 0 && cfg.Width < assetType.MinWidth {
		violations = append(violations, Violation{
			Code:    ViolationMinWidth,
			Message: fmt.Sprintf("image width must be not less than %d", assetType.MinWidth),
		})
	}
	if assetType.MinHeight > 0 && cfg.Height < assetType.MinHeight {
		violations = append(violations, Violation{
			Code:    ViolationMinHeight,
			Message: fmt.Sprintf("image height must be not less than %d", assetType.MinHeight),
		})
	}

	if cfg.Width > 0 && cfg.Height > 0 && assetType.Aspect != 0 {
		actual := float64(cfg.Width) / float64(cfg.Height)
		delta := math.Abs(actual - assetType.Aspect)
		switch {
		case assetType.Accuracy == 0:
			if actual != assetType.Aspect {
				violations = append(violations, Violation{
					Code:    ViolationBadAspect,
					Message: fmt.Sprintf("image aspect must be %g", assetType.Aspect),
				})
			}
		case math.Round(delta/assetType.Accuracy) > 1:
			violations = append(violations, Violation{
				Code:    ViolationBadAspect,
				Message: fmt.Sprintf("image aspect must be %g ± %g", assetType.Aspect, assetType.Accuracy),
			})
		}
	}

	return violations
}

func joinFormats(formats []Format) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
