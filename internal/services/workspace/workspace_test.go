package workspace

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testRoot = "/work"

func newTestManager(t *testing.T) (*Manager, afero.Fs) {
	fs := afero.NewMemMapFs()
	return NewManager(fs, testRoot, "compressed_images.zip", zaptest.NewLogger(t)), fs
}

func TestCreate(t *testing.T) {
	m, fs := newTestManager(t)

	ws, err := m.Create()
	require.NoError(t, err)

	_, err = uuid.Parse(ws.ID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(testRoot, ws.ID), ws.Root)
	assert.Equal(t, filepath.Join(ws.Root, "compressed_images.zip"), ws.ArchivePath)

	exists, err := afero.DirExists(fs, ws.UploadDir)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreate_IsolatesBatches(t *testing.T) {
	m, _ := newTestManager(t)

	first, err := m.Create()
	require.NoError(t, err)
	second, err := m.Create()
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.OutputDir, second.OutputDir)
	assert.NotEqual(t, first.ArchivePath, second.ArchivePath)
}

func TestStage(t *testing.T) {
	m, fs := newTestManager(t)
	ws, err := m.Create()
	require.NoError(t, err)

	first, err := m.Stage(ws, 0, "photo.jpg", "image/jpeg", strings.NewReader("first"))
	require.NoError(t, err)
	second, err := m.Stage(ws, 1, "photo.jpg", "image/jpeg", strings.NewReader("second!"))
	require.NoError(t, err)

	assert.NotEqual(t, first.TempPath, second.TempPath)
	assert.Equal(t, "photo.jpg", first.Name)
	assert.Equal(t, int64(5), first.Size)
	assert.Equal(t, int64(7), second.Size)

	content, err := afero.ReadFile(fs, first.TempPath)
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))
}

func TestStage_StripsDirectories(t *testing.T) {
	m, _ := newTestManager(t)
	ws, err := m.Create()
	require.NoError(t, err)

	file, err := m.Stage(ws, 0, "../../etc/passwd.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)

	assert.Equal(t, ws.UploadDir, filepath.Dir(file.TempPath))
	assert.Equal(t, "000_passwd.png", filepath.Base(file.TempPath))
}

type closeFailFs struct {
	afero.Fs
}

func (fs closeFailFs) Create(name string) (afero.File, error) {
	f, err := fs.Fs.Create(name)
	if err != nil {
		return nil, err
	}
	return closeFailFile{f}, nil
}

type closeFailFile struct {
	afero.File
}

func (f closeFailFile) Close() error {
	f.File.Close()
	return errors.New("disk full")
}

func TestStage_CloseError(t *testing.T) {
	m := NewManager(closeFailFs{afero.NewMemMapFs()}, testRoot, "compressed_images.zip", zaptest.NewLogger(t))
	ws, err := m.Create()
	require.NoError(t, err)

	file, err := m.Stage(ws, 0, "photo.jpg", "image/jpeg", strings.NewReader("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stage photo.jpg")
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, file.TempPath)
}

func TestStage_ReadError(t *testing.T) {
	m, _ := newTestManager(t)
	ws, err := m.Create()
	require.NoError(t, err)

	_, err = m.Stage(ws, 0, "photo.jpg", "image/jpeg", iotest.ErrReader(errors.New("connection reset")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRemove_Idempotent(t *testing.T) {
	m, fs := newTestManager(t)
	ws, err := m.Create()
	require.NoError(t, err)

	require.NoError(t, m.Remove(ws.ID))
	require.NoError(t, m.Remove(ws.ID))

	exists, err := afero.DirExists(fs, ws.Root)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRemoveAll_Idempotent(t *testing.T) {
	m, fs := newTestManager(t)

	// Nothing created yet.
	require.NoError(t, m.RemoveAll())

	for i := 0; i < 3; i++ {
		_, err := m.Create()
		require.NoError(t, err)
	}

	require.NoError(t, m.RemoveAll())
	require.NoError(t, m.RemoveAll())

	entries, err := afero.ReadDir(fs, testRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHealthCheck(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Equal(t, "healthy", m.HealthCheck())

	ro := NewManager(afero.NewReadOnlyFs(afero.NewMemMapFs()), testRoot, "a.zip", zaptest.NewLogger(t))
	assert.True(t, strings.HasPrefix(ro.HealthCheck(), "unhealthy"))
}

func TestSweep(t *testing.T) {
	m, fs := newTestManager(t)

	stale, err := m.Create()
	require.NoError(t, err)
	fresh, err := m.Create()
	require.NoError(t, err)
	require.NoError(t, fs.MkdirAll(filepath.Join(testRoot, "lost+found"), 0o755))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, fs.Chtimes(stale.Root, old, old))
	require.NoError(t, fs.Chtimes(filepath.Join(testRoot, "lost+found"), old, old))

	removed, err := m.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{stale.ID}, removed)

	exists, _ := afero.DirExists(fs, stale.Root)
	assert.False(t, exists)
	exists, _ = afero.DirExists(fs, fresh.Root)
	assert.True(t, exists)
	exists, _ = afero.DirExists(fs, filepath.Join(testRoot, "lost+found"))
	assert.True(t, exists)
}

func TestSweep_MissingRoot(t *testing.T) {
	m, _ := newTestManager(t)

	removed, err := m.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
