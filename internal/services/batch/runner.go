package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/phambaophuc/image-compressor/internal/common"
	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/phambaophuc/image-compressor/pkg/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const DefaultWorkers = 5

// Transformer is the per-file operation the runner fans out.
type Transformer interface {
	Transform(ctx context.Context, file models.UploadedFile, outputPath string, params models.TransformParameters) models.FileResult
}

// Totals are byte sums over successful results only.
type Totals struct {
	OriginalSize   int64
	CompressedSize int64
}

func (t *Totals) add(o Totals) {
	t.OriginalSize += o.OriginalSize
	t.CompressedSize += o.CompressedSize
}

type RunResult struct {
	Results []models.FileResult
	Totals  Totals
}

type Runner struct {
	fs          afero.Fs
	transformer Transformer
	workers     int
	logger      *zap.Logger
}

func NewRunner(fs afero.Fs, transformer Transformer, workers int, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Runner{
		fs:          fs,
		transformer: transformer,
		workers:     workers,
		logger:      logger,
	}
}

// Run transforms every file into outputDir. results[i] always belongs to
// files[i]; a failing file is recorded and never stops its siblings. Run only
// returns an error for an empty batch, a filesystem setup failure or a
// cancelled context.
func (r *Runner) Run(ctx context.Context, files []models.UploadedFile, params models.TransformParameters, outputDir string) (*RunResult, error) {
	if len(files) == 0 {
		return nil, common.NewValidationError(common.ErrNoFiles, "No files uploaded")
	}

	if err := r.fs.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	pool, err := ants.NewPool(min(r.workers, len(files)))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	names := OutputNames(files, params)
	results := make([]models.FileResult, len(files))
	partials := make([]Totals, len(files))

	var wg sync.WaitGroup
	for i, file := range files {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()

			res := r.transformer.Transform(ctx, file, filepath.Join(outputDir, names[i]), params)
			results[i] = res
			if res.Success {
				partials[i] = Totals{OriginalSize: res.OriginalSize, CompressedSize: res.CompressedSize}
			}
		})
		if err != nil {
			wg.Done()
			r.logger.Error("Failed to submit transform", zap.String("file", file.Name), zap.Error(err))
			results[i] = models.NewFailedResult(file.Name, err)
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch aborted: %w", err)
	}

	var totals Totals
	for _, partial := range partials {
		totals.add(partial)
	}

	return &RunResult{Results: results, Totals: totals}, nil
}

// OutputNames assigns "<base><suffix>.<format>" to every file in input order,
// appending _1, _2, ... when two uploads would land on the same name.
func OutputNames(files []models.UploadedFile, params models.TransformParameters) []string {
	names := make([]string, len(files))
	taken := make(map[string]struct{}, len(files))

	for i, file := range files {
		name := utils.OutputFilename(file.Name, params.Suffix, params.Format)
		for n := 1; ; n++ {
			if _, ok := taken[strings.ToLower(name)]; !ok {
				break
			}
			name = utils.OutputFilename(file.Name, fmt.Sprintf("%s_%d", params.Suffix, n), params.Format)
		}

		taken[strings.ToLower(name)] = struct{}{}
		names[i] = name
	}

	return names
}
