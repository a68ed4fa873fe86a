package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/phambaophuc/image-compressor/internal/config"
	"github.com/phambaophuc/image-compressor/pkg/utils"
	"github.com/spf13/afero"
	storage_go "github.com/supabase-community/storage-go"
	"go.uber.org/zap"
)

const archiveContentType = "application/zip"

// SupabaseMirror copies finished archives to a Supabase Storage bucket.
type SupabaseMirror struct {
	sbClient *storage_go.Client
	fs       afero.Fs
	bucket   string
	logger   *zap.Logger
}

func NewSupabaseMirror(cfg config.SupabaseConfig, fs afero.Fs, logger *zap.Logger) *SupabaseMirror {
	return &SupabaseMirror{
		sbClient: storage_go.NewClient(cfg.URL+"/storage/v1", cfg.KEY, nil),
		fs:       fs,
		bucket:   cfg.BUCKET,
		logger:   logger,
	}
}

// Upload pushes the archive and returns its public URL.
func (m *SupabaseMirror) Upload(ctx context.Context, batchID, archivePath string) (string, error) {
	data, err := afero.ReadFile(m.fs, archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to read archive: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := utils.GenerateStorageKey(batchID, archivePath)
	contentType := archiveContentType
	upsert := true

	_, err = m.sbClient.UploadFile(m.bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to supabase: %w", err)
	}

	m.logger.Info("Archive mirrored",
		zap.String("batch_id", batchID),
		zap.String("key", key),
		zap.Int("bytes", len(data)))

	publicURL := m.sbClient.GetPublicUrl(m.bucket, key)
	return publicURL.SignedURL, nil
}

// Download fetches a mirrored archive.
func (m *SupabaseMirror) Download(_ context.Context, batchID, archiveName string) ([]byte, error) {
	data, err := m.sbClient.DownloadFile(m.bucket, utils.GenerateStorageKey(batchID, archiveName))
	if err != nil {
		return nil, fmt.Errorf("failed to download from supabase: %w", err)
	}
	return data, nil
}

// Delete removes a mirrored archive.
func (m *SupabaseMirror) Delete(_ context.Context, batchID, archiveName string) error {
	_, err := m.sbClient.RemoveFile(m.bucket, []string{utils.GenerateStorageKey(batchID, filepath.Base(archiveName))})
	return err
}

func (m *SupabaseMirror) HealthCheck(_ context.Context) string {
	_, err := m.sbClient.ListFiles(m.bucket, "", storage_go.FileSearchOptions{Limit: 1})
	if err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}
