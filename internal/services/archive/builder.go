package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/phambaophuc/image-compressor/internal/common"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Result is delivered once the archive file has been flushed and closed.
type Result struct {
	Path    string
	Entries []string
	Size    int64
	Err     error
}

type Builder struct {
	fs     afero.Fs
	level  int
	logger *zap.Logger
}

func NewBuilder(fs afero.Fs, logger *zap.Logger) *Builder {
	return &Builder{
		fs:     fs,
		level:  flate.BestCompression,
		logger: logger,
	}
}

// Build zips every regular file directly under sourceDir into archivePath.
// It returns at once; the channel yields exactly one Result and is then closed.
func (b *Builder) Build(sourceDir, archivePath string) <-chan Result {
	done := make(chan Result, 1)

	go func() {
		defer close(done)

		entries, err := b.write(sourceDir, archivePath)
		if err != nil {
			b.fs.Remove(archivePath)
			b.logger.Error("Archive build failed",
				zap.String("archive", archivePath),
				zap.Error(err))
			done <- Result{Path: archivePath, Err: &common.ArchiveError{Path: archivePath, Err: err}}
			return
		}

		info, err := b.fs.Stat(archivePath)
		if err != nil {
			done <- Result{Path: archivePath, Err: &common.ArchiveError{Path: archivePath, Err: err}}
			return
		}

		b.logger.Debug("Archive finalized",
			zap.String("archive", archivePath),
			zap.Int("entries", len(entries)),
			zap.Int64("bytes", info.Size()))
		done <- Result{Path: archivePath, Entries: entries, Size: info.Size()}
	}()

	return done
}

func (b *Builder) write(sourceDir, archivePath string) (entries []string, err error) {
	files, err := afero.ReadDir(b.fs, sourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sourceDir, err)
	}

	out, err := b.fs.Create(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close archive: %w", cerr)
		}
	}()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, b.level)
	})

	for _, info := range files {
		if !info.Mode().IsRegular() {
			continue
		}

		if err := b.addFile(zw, filepath.Join(sourceDir, info.Name()), info.Name()); err != nil {
			zw.Close()
			return nil, err
		}
		entries = append(entries, info.Name())
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	if err := out.Sync(); err != nil {
		return nil, fmt.Errorf("failed to flush archive: %w", err)
	}

	return entries, nil
}

func (b *Builder) addFile(zw *zip.Writer, path, name string) error {
	f, err := b.fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", name, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return nil
}
