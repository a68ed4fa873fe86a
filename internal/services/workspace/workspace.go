package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/image-compressor/internal/common"
	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/phambaophuc/image-compressor/pkg/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	uploadDirName = "uploads"
	outputDirName = "compressed"

	dirPerm = 0o755
)

// Workspace is the set of paths owned by a single batch request.
type Workspace struct {
	ID          string
	Root        string
	UploadDir   string
	OutputDir   string
	ArchivePath string
}

// Manager hands out one isolated directory per batch under a shared root.
type Manager struct {
	fs          afero.Fs
	root        string
	archiveName string
	logger      *zap.Logger
}

func NewManager(fs afero.Fs, root, archiveName string, logger *zap.Logger) *Manager {
	return &Manager{
		fs:          fs,
		root:        root,
		archiveName: archiveName,
		logger:      logger,
	}
}

func (m *Manager) Fs() afero.Fs {
	return m.fs
}

// Create allocates a fresh workspace with its upload directory in place.
func (m *Manager) Create() (*Workspace, error) {
	ws := m.workspaceFor(uuid.New().String())

	if err := m.fs.MkdirAll(ws.UploadDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	m.logger.Debug("Workspace created", zap.String("batch_id", ws.ID), zap.String("root", ws.Root))
	return ws, nil
}

// Stage writes one upload into the workspace. The index prefix keeps two
// uploads with the same name apart.
func (m *Manager) Stage(ws *Workspace, index int, name, contentType string, r io.Reader) (upload models.UploadedFile, err error) {
	path := filepath.Join(ws.UploadDir, fmt.Sprintf("%03d_%s%s", index, utils.BaseName(name), filepath.Ext(name)))

	f, err := m.fs.Create(path)
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("failed to stage %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			upload = models.UploadedFile{}
			err = fmt.Errorf("failed to stage %s: %w", name, cerr)
		}
	}()

	size, err := io.Copy(f, r)
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("failed to stage %s: %w", name, err)
	}

	return models.UploadedFile{
		Name:        name,
		TempPath:    path,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// Remove deletes one workspace. Removing a missing workspace is not an error.
func (m *Manager) Remove(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	root := m.workspaceFor(id).Root
	if err := m.fs.RemoveAll(root); err != nil {
		return &common.CleanupError{Path: root, Err: err}
	}

	m.logger.Debug("Workspace removed", zap.String("batch_id", id))
	return nil
}

// RemoveAll deletes every workspace under the root.
func (m *Manager) RemoveAll() error {
	entries, err := afero.ReadDir(m.fs, m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &common.CleanupError{Path: m.root, Err: err}
	}

	for _, entry := range entries {
		path := filepath.Join(m.root, entry.Name())
		if err := m.fs.RemoveAll(path); err != nil {
			return &common.CleanupError{Path: path, Err: err}
		}
	}

	m.logger.Debug("All workspaces removed", zap.Int("count", len(entries)))
	return nil
}

// Sweep removes workspaces whose directory is older than maxAge and returns
// the ids it removed.
func (m *Manager) Sweep(maxAge time.Duration) ([]string, error) {
	entries, err := afero.ReadDir(m.fs, m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &common.CleanupError{Path: m.root, Err: err}
	}

	cutoff := time.Now().Add(-maxAge)
	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() || validateID(entry.Name()) != nil || entry.ModTime().After(cutoff) {
			continue
		}
		if err := m.Remove(entry.Name()); err != nil {
			return removed, err
		}
		removed = append(removed, entry.Name())
	}

	if len(removed) > 0 {
		m.logger.Info("Expired workspaces swept", zap.Int("count", len(removed)))
	}
	return removed, nil
}

// HealthCheck verifies the root directory is writable.
func (m *Manager) HealthCheck() string {
	if err := m.fs.MkdirAll(m.root, dirPerm); err != nil {
		return "unhealthy: " + err.Error()
	}

	tmp, err := afero.TempFile(m.fs, m.root, ".health-")
	if err != nil {
		return "unhealthy: " + err.Error()
	}
	tmp.Close()
	m.fs.Remove(tmp.Name())

	return "healthy"
}

func (m *Manager) workspaceFor(id string) *Workspace {
	root := filepath.Join(m.root, id)
	return &Workspace{
		ID:          id,
		Root:        root,
		UploadDir:   filepath.Join(root, uploadDirName),
		OutputDir:   filepath.Join(root, outputDirName),
		ArchivePath: filepath.Join(root, m.archiveName),
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrInvalidBatchID
	}
	return nil
}
