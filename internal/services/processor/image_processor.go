package processor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	// Registers the WebP decoder with image.Decode.
	_ "golang.org/x/image/webp"
)

type ImageProcessor struct {
	fs     afero.Fs
	logger *zap.Logger
}

func NewImageProcessor(fs afero.Fs, logger *zap.Logger) *ImageProcessor {
	return &ImageProcessor{
		fs:     fs,
		logger: logger,
	}
}

// Transform recompresses one staged upload into outputPath. It never returns
// an error: every failure is reported in the FileResult so sibling files keep
// going.
func (p *ImageProcessor) Transform(
	ctx context.Context,
	file models.UploadedFile,
	outputPath string,
	params models.TransformParameters,
) models.FileResult {
	if err := ctx.Err(); err != nil {
		return models.NewFailedResult(file.Name, err)
	}

	originalSize, compressedSize, err := p.transformFile(file.TempPath, outputPath, params)
	if err != nil {
		p.logger.Warn("Image transform failed",
			zap.String("file", file.Name),
			zap.Error(err))
		return models.NewFailedResult(file.Name, err)
	}

	return models.FileResult{
		OriginalName:     file.Name,
		CompressedName:   filepath.Base(outputPath),
		OriginalSize:     originalSize,
		CompressedSize:   compressedSize,
		CompressionRatio: compressionRatio(originalSize, compressedSize),
		Success:          true,
	}
}

func (p *ImageProcessor) transformFile(inputPath, outputPath string, params models.TransformParameters) (int64, int64, error) {
	in, err := p.fs.Open(inputPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to stat image: %w", err)
	}

	img, err := imaging.Decode(in)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	if params.HasBounds() {
		img = p.fitImage(img, params)
	}

	if err := p.writeImage(outputPath, img, params); err != nil {
		return 0, 0, err
	}

	out, err := p.fs.Stat(outputPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to stat output: %w", err)
	}

	return info.Size(), out.Size(), nil
}
