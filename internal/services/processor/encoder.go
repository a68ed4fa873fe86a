package processor

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/chai2010/webp"
	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/phambaophuc/image-compressor/pkg/utils"
)

func (p *ImageProcessor) writeImage(outputPath string, img image.Image, params models.TransformParameters) (err error) {
	out, err := p.fs.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
		if err != nil {
			p.fs.Remove(outputPath)
		}
	}()

	if err := p.encodeImage(out, img, params.Format, params.Quality); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	return nil
}

func (p *ImageProcessor) encodeImage(w io.Writer, img image.Image, format string, quality int) error {
	switch format {
	case models.FormatWebP:
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	default:
		return errors.New("unsupported output format: " + format)
	}
}

func compressionRatio(originalSize, compressedSize int64) float64 {
	return utils.CompressionRatio(originalSize, compressedSize)
}
