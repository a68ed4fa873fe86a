package processor

import (
	"strings"

	"github.com/phambaophuc/image-compressor/internal/common"
	"github.com/phambaophuc/image-compressor/internal/models"
)

// ValidateParameters checks a batch's parameters before any file is touched.
func ValidateParameters(params models.TransformParameters) error {
	if params.Quality < models.MinQuality || params.Quality > models.MaxQuality {
		return common.NewValidationError(common.ErrInvalidParameter,
			"quality must be between %d and %d", models.MinQuality, models.MaxQuality)
	}

	if params.MaxWidth < 0 {
		return common.NewValidationError(common.ErrInvalidParameter, "maxWidth must be a positive integer")
	}

	if params.MaxHeight < 0 {
		return common.NewValidationError(common.ErrInvalidParameter, "maxHeight must be a positive integer")
	}

	if strings.ContainsAny(params.Suffix, `/\`) || strings.Contains(params.Suffix, "..") {
		return common.NewValidationError(common.ErrInvalidParameter, "suffix must not contain path separators")
	}

	if params.Format != models.FormatWebP {
		return common.NewValidationError(common.ErrInvalidParameter, "unsupported output format: %s", params.Format)
	}

	return nil
}
