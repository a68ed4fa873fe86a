package batch

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phambaophuc/image-compressor/internal/common"
	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type transformFunc func(ctx context.Context, file models.UploadedFile, outputPath string, params models.TransformParameters) models.FileResult

func (f transformFunc) Transform(ctx context.Context, file models.UploadedFile, outputPath string, params models.TransformParameters) models.FileResult {
	return f(ctx, file, outputPath, params)
}

func uploads(names ...string) []models.UploadedFile {
	files := make([]models.UploadedFile, len(names))
	for i, name := range names {
		files[i] = models.UploadedFile{Name: name, TempPath: "/uploads/" + name}
	}
	return files
}

var webpParams = models.TransformParameters{Quality: 80, Format: models.FormatWebP}

func TestRun_PreservesInputOrder(t *testing.T) {
	files := uploads("a.png", "b.png", "c.png", "d.png", "e.png", "f.png")

	// Later files finish first.
	transformer := transformFunc(func(_ context.Context, file models.UploadedFile, outputPath string, _ models.TransformParameters) models.FileResult {
		delay := time.Duration(len(files)) * time.Millisecond
		for i, f := range files {
			if f.Name == file.Name {
				delay = time.Duration(len(files)-i) * 5 * time.Millisecond
			}
		}
		time.Sleep(delay)

		return models.FileResult{
			OriginalName:   file.Name,
			CompressedName: filepath.Base(outputPath),
			OriginalSize:   100,
			CompressedSize: 50,
			Success:        true,
		}
	})

	r := NewRunner(afero.NewMemMapFs(), transformer, 4, zaptest.NewLogger(t))
	run, err := r.Run(context.Background(), files, webpParams, "/out")
	require.NoError(t, err)

	require.Len(t, run.Results, len(files))
	for i, res := range run.Results {
		assert.Equal(t, files[i].Name, res.OriginalName)
	}
}

func TestRun_TotalsCountSuccessesOnly(t *testing.T) {
	transformer := transformFunc(func(_ context.Context, file models.UploadedFile, _ string, _ models.TransformParameters) models.FileResult {
		if file.Name == "broken.jpg" {
			return models.NewFailedResult(file.Name, errors.New("failed to decode image"))
		}
		return models.FileResult{OriginalName: file.Name, OriginalSize: 1000, CompressedSize: 400, Success: true}
	})

	r := NewRunner(afero.NewMemMapFs(), transformer, 2, zaptest.NewLogger(t))
	run, err := r.Run(context.Background(), uploads("a.jpg", "broken.jpg", "c.jpg"), webpParams, "/out")
	require.NoError(t, err)

	assert.Len(t, run.Results, 3)
	assert.False(t, run.Results[1].Success)
	assert.Equal(t, Totals{OriginalSize: 2000, CompressedSize: 800}, run.Totals)
}

func TestRun_PassesOutputPaths(t *testing.T) {
	var seen []string
	var calls atomic.Int32
	paths := make(chan string, 3)

	transformer := transformFunc(func(_ context.Context, file models.UploadedFile, outputPath string, _ models.TransformParameters) models.FileResult {
		calls.Add(1)
		paths <- outputPath
		return models.FileResult{OriginalName: file.Name, Success: true}
	})

	r := NewRunner(afero.NewMemMapFs(), transformer, 1, zaptest.NewLogger(t))
	_, err := r.Run(context.Background(), uploads("a.jpg", "a.png", "b.jpg"), webpParams, "/out")
	require.NoError(t, err)
	close(paths)

	for p := range paths {
		seen = append(seen, p)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.ElementsMatch(t, []string{"/out/a.webp", "/out/a_1.webp", "/out/b.webp"}, seen)
}

func TestRun_EmptyBatch(t *testing.T) {
	r := NewRunner(afero.NewMemMapFs(), transformFunc(nil), 2, zaptest.NewLogger(t))

	_, err := r.Run(context.Background(), nil, webpParams, "/out")

	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
	assert.ErrorIs(t, err, common.ErrNoFiles)
}

func TestRun_CreatesOutputDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	transformer := transformFunc(func(_ context.Context, file models.UploadedFile, _ string, _ models.TransformParameters) models.FileResult {
		return models.NewFailedResult(file.Name, errors.New("boom"))
	})

	r := NewRunner(fs, transformer, 2, zaptest.NewLogger(t))
	_, err := r.Run(context.Background(), uploads("a.jpg"), webpParams, "/batch/compressed")
	require.NoError(t, err)

	exists, err := afero.DirExists(fs, "/batch/compressed")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRun_OutputDirectoryFailure(t *testing.T) {
	r := NewRunner(afero.NewReadOnlyFs(afero.NewMemMapFs()), transformFunc(nil), 2, zaptest.NewLogger(t))

	_, err := r.Run(context.Background(), uploads("a.jpg"), webpParams, "/batch/compressed")

	require.Error(t, err)
	assert.False(t, common.IsValidationError(err))
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transformer := transformFunc(func(ctx context.Context, file models.UploadedFile, _ string, _ models.TransformParameters) models.FileResult {
		return models.NewFailedResult(file.Name, ctx.Err())
	})

	r := NewRunner(afero.NewMemMapFs(), transformer, 2, zaptest.NewLogger(t))
	_, err := r.Run(ctx, uploads("a.jpg", "b.jpg"), webpParams, "/out")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestOutputNames(t *testing.T) {
	params := models.TransformParameters{Format: models.FormatWebP, Suffix: "_min"}

	names := OutputNames(uploads("photo.jpg", "photo.png", "Photo.webp", "other.jpeg"), params)

	assert.Equal(t, []string{"photo_min.webp", "photo_min_1.webp", "Photo_min_2.webp", "other_min.webp"}, names)
}
