package batch

import (
	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/phambaophuc/image-compressor/pkg/utils"
)

// Report aggregates per-file outcomes into the batch summary. The overall
// ratio comes from the success-only totals and is 0 when nothing succeeded.
func Report(results []models.FileResult, fileCount int, totals Totals, archiveRef string) models.BatchSummary {
	successful := 0
	for _, res := range results {
		if res.Success {
			successful++
		}
	}

	return models.BatchSummary{
		TotalFiles:            fileCount,
		Successful:            successful,
		Failed:                len(results) - successful,
		TotalOriginalSize:     totals.OriginalSize,
		TotalCompressedSize:   totals.CompressedSize,
		TotalCompressionRatio: utils.CompressionRatio(totals.OriginalSize, totals.CompressedSize),
		ZipFile:               archiveRef,
	}
}
