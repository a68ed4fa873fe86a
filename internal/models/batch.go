package models

import "time"

type BatchSummary struct {
	TotalFiles            int     `json:"totalFiles"`
	Successful            int     `json:"successful"`
	Failed                int     `json:"failed"`
	TotalOriginalSize     int64   `json:"totalOriginalSize"`
	TotalCompressedSize   int64   `json:"totalCompressedSize"`
	TotalCompressionRatio float64 `json:"totalCompressionRatio"`
	ZipFile               string  `json:"zipFile"`
	BatchID               string  `json:"batchId"`
	DownloadURL           string  `json:"downloadUrl"`
	ArchiveURL            string  `json:"archiveUrl,omitempty"`
}

type BatchResponse struct {
	Success bool         `json:"success"`
	Results []FileResult `json:"results"`
	Summary BatchSummary `json:"summary"`
}

// BatchRecord is what the registry keeps so a finished archive can be found again.
type BatchRecord struct {
	ID          string       `json:"id"`
	WorkDir     string       `json:"work_dir"`
	ArchivePath string       `json:"archive_path"`
	ArchiveName string       `json:"archive_name"`
	ArchiveURL  string       `json:"archive_url,omitempty"`
	Summary     BatchSummary `json:"summary"`
	CreatedAt   time.Time    `json:"created_at"`
}

// BatchEvent is published on the message queue when a batch finishes.
type BatchEvent struct {
	BatchID    string       `json:"batch_id"`
	Status     string       `json:"status"`
	Summary    BatchSummary `json:"summary"`
	Error      string       `json:"error,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
