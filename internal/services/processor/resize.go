package processor

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/image-compressor/internal/models"
)

// fitImage shrinks img to fit inside the requested bounding box, keeping the
// aspect ratio. An absent bound falls back to the source dimension, so the
// image is never enlarged.
func (p *ImageProcessor) fitImage(img image.Image, params models.TransformParameters) image.Image {
	bounds := img.Bounds()

	width := params.MaxWidth
	if width <= 0 {
		width = bounds.Dx()
	}

	height := params.MaxHeight
	if height <= 0 {
		height = bounds.Dy()
	}

	return imaging.Fit(img, width, height, imaging.Lanczos)
}
