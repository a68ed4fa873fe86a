package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/phambaophuc/image-compressor/internal/common"
	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/phambaophuc/image-compressor/internal/services/processor"
	"github.com/phambaophuc/image-compressor/internal/services/workspace"
	"github.com/phambaophuc/image-compressor/pkg/utils"
	"go.uber.org/zap"
)

const (
	multipartOverhead  = 1 << 20
	maxFieldBytes      = 4 << 10
	sniffLen           = 3072
	archiveContentType = "application/zip"
)

// partReader remembers a failed read so a broken request body can be told
// apart from a failed workspace write.
type partReader struct {
	r   io.Reader
	err error
}

func (p *partReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if err != nil && err != io.EOF {
		p.err = err
	}
	return n, err
}

// === REQUEST PARSING ===

// readUploads streams the multipart body into a fresh workspace. The file
// count is checked as each part header arrives and every part is cut off one
// byte past the size limit, so each limit reports its own error. The
// workspace is removed again on any error.
func (h *ImageHandler) readUploads(c *gin.Context) (ws *workspace.Workspace, uploads []models.UploadedFile, form models.CompressForm, err error) {
	limits := h.config.Storage
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limits.MaxFileSize*int64(limits.MaxFiles+1)+multipartOverhead)

	mr, err := c.Request.MultipartReader()
	if err != nil {
		return nil, nil, form, common.NewValidationError(common.ErrNoFiles, "No files uploaded")
	}

	defer func() {
		if err != nil && ws != nil {
			h.discardWorkspace(ws)
			ws, uploads = nil, nil
		}
	}()

	for {
		part, perr := mr.NextPart()
		if perr == io.EOF {
			break
		}
		if perr != nil {
			return ws, uploads, form, h.multipartError(perr)
		}

		switch {
		case part.FileName() == "":
			if err := h.readField(part, &form); err != nil {
				return ws, uploads, form, err
			}
		case part.FormName() == imagesParamKey:
			if len(uploads) == limits.MaxFiles {
				return ws, uploads, form, common.NewValidationError(common.ErrTooManyFiles, "Too many files. Maximum is %d files.", limits.MaxFiles)
			}
			if ws == nil {
				if ws, err = h.workspaces.Create(); err != nil {
					return nil, nil, form, err
				}
			}

			upload, err := h.stagePart(ws, len(uploads), part)
			if err != nil {
				return ws, uploads, form, err
			}
			uploads = append(uploads, upload)
		}
		part.Close()
	}

	if len(uploads) == 0 {
		return ws, uploads, form, common.NewValidationError(common.ErrNoFiles, "No files uploaded")
	}
	return ws, uploads, form, nil
}

// stagePart checks the type of one file part and copies it into the
// workspace. Generic declared types are replaced by a sniffed one.
func (h *ImageHandler) stagePart(ws *workspace.Workspace, index int, part *multipart.Part) (models.UploadedFile, error) {
	name := part.FileName()
	body := bufio.NewReaderSize(part, sniffLen)

	contentType := part.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		head, _ := body.Peek(sniffLen)
		contentType = mimetype.Detect(head).String()
	}

	if !utils.IsValidImageType(contentType, h.config.Storage.AllowedTypes) || !utils.IsValidImageExtension(name) {
		return models.UploadedFile{}, common.NewValidationError(common.ErrUnsupportedType, "Only image files are allowed!")
	}

	maxSize := h.config.Storage.MaxFileSize
	src := &partReader{r: io.LimitReader(body, maxSize+1)}
	upload, err := h.workspaces.Stage(ws, index, name, contentType, src)
	if err != nil {
		if src.err != nil {
			return models.UploadedFile{}, h.multipartError(src.err)
		}
		return models.UploadedFile{}, err
	}
	if upload.Size > maxSize {
		return models.UploadedFile{}, h.fileTooLarge()
	}

	return upload, nil
}

func (h *ImageHandler) readField(part *multipart.Part, form *models.CompressForm) error {
	value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
	if err != nil {
		return h.multipartError(err)
	}

	switch part.FormName() {
	case "quality":
		form.Quality = string(value)
	case "maxWidth":
		form.MaxWidth = string(value)
	case "maxHeight":
		form.MaxHeight = string(value)
	case "suffix":
		form.Suffix = string(value)
	}
	return nil
}

func (h *ImageHandler) multipartError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return common.NewValidationError(common.ErrInvalidParameter, "Request body too large")
	}
	return common.NewValidationError(common.ErrInvalidParameter, "failed to parse form data: %v", err)
}

func (h *ImageHandler) fileTooLarge() error {
	return common.NewValidationError(common.ErrFileTooLarge,
		"File too large. Maximum size is %dMB.", h.config.Storage.MaxFileSize>>20)
}

func (h *ImageHandler) parseCompressParams(form models.CompressForm) (models.TransformParameters, error) {
	maxWidth, err := h.parseOptionalPositiveInt(form.MaxWidth, "maxWidth")
	if err != nil {
		return models.TransformParameters{}, err
	}

	maxHeight, err := h.parseOptionalPositiveInt(form.MaxHeight, "maxHeight")
	if err != nil {
		return models.TransformParameters{}, err
	}

	params := models.TransformParameters{
		Quality:   h.parseQuality(form.Quality),
		MaxWidth:  maxWidth,
		MaxHeight: maxHeight,
		Suffix:    form.Suffix,
		Format:    models.FormatWebP,
	}

	if err := processor.ValidateParameters(params); err != nil {
		return models.TransformParameters{}, err
	}
	return params, nil
}

// parseOptionalPositiveInt treats an empty value as "no bound".
func (h *ImageHandler) parseOptionalPositiveInt(value, fieldName string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	num, err := strconv.Atoi(value)
	if err != nil {
		return 0, common.NewValidationError(common.ErrInvalidParameter, "invalid %s: must be a number", fieldName)
	}

	if num <= 0 {
		return 0, common.NewValidationError(common.ErrInvalidParameter, "%s must be a positive integer", fieldName)
	}

	return num, nil
}

func (h *ImageHandler) parseQuality(value string) int {
	defaultQuality := h.config.Compression.DefaultQuality
	if defaultQuality < models.MinQuality || defaultQuality > models.MaxQuality {
		defaultQuality = models.DefaultQuality
	}

	quality, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || quality < models.MinQuality || quality > models.MaxQuality {
		return defaultQuality
	}

	return quality
}

// === FILE OPERATIONS ===

func (h *ImageHandler) discardWorkspace(ws *workspace.Workspace) {
	if ws == nil {
		return
	}
	if err := h.workspaces.Remove(ws.ID); err != nil {
		h.logger.Warn("Failed to remove workspace", zap.String("batch_id", ws.ID), zap.Error(err))
	}
}

func (h *ImageHandler) resolveBatch(ctx context.Context, id string) (*models.BatchRecord, error) {
	if id == "" {
		return h.registry.Latest(ctx)
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrInvalidBatchID
	}
	return h.registry.Get(ctx, id)
}

func (h *ImageHandler) serveLocalArchive(c *gin.Context, record *models.BatchRecord) bool {
	f, err := h.workspaces.Fs().Open(record.ArchivePath)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	c.DataFromReader(http.StatusOK, info.Size(), archiveContentType, f, map[string]string{
		"Content-Disposition": h.contentDisposition(),
	})
	return true
}

func (h *ImageHandler) serveMirroredArchive(c *gin.Context, record *models.BatchRecord) bool {
	if h.mirror == nil || record.ArchiveURL == "" {
		return false
	}

	data, err := h.mirror.Download(c.Request.Context(), record.ID, record.ArchiveName)
	if err != nil {
		h.logger.Warn("Failed to fetch mirrored archive", zap.String("batch_id", record.ID), zap.Error(err))
		return false
	}

	c.Header("Content-Disposition", h.contentDisposition())
	c.Data(http.StatusOK, archiveContentType, data)
	return true
}

func (h *ImageHandler) contentDisposition() string {
	return fmt.Sprintf("attachment; filename=%q", h.config.Storage.ArchiveName)
}

func (h *ImageHandler) cleanupBatch(ctx context.Context, id string) error {
	record, _ := h.registry.Get(ctx, id)

	if err := h.workspaces.Remove(id); err != nil {
		return err
	}

	if err := h.registry.Delete(ctx, id); err != nil {
		h.logger.Warn("Failed to forget batch", zap.String("batch_id", id), zap.Error(err))
	}

	if h.mirror != nil && record != nil && record.ArchiveURL != "" {
		if err := h.mirror.Delete(ctx, id, record.ArchiveName); err != nil {
			h.logger.Warn("Failed to delete mirrored archive", zap.String("batch_id", id), zap.Error(err))
		}
	}

	h.logger.Info("Batch cleaned up", zap.String("batch_id", id))
	return nil
}

func (h *ImageHandler) cleanupAll(ctx context.Context) error {
	if err := h.workspaces.RemoveAll(); err != nil {
		return err
	}

	if err := h.registry.Clear(ctx); err != nil {
		h.logger.Warn("Failed to clear batch registry", zap.Error(err))
	}

	h.logger.Info("All batches cleaned up")
	return nil
}

// === RESPONSE HANDLING ===

func (h *ImageHandler) respondError(c *gin.Context, statusCode int, message, details string) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Error:   message,
		Details: details,
	})
}

// respondFailure maps a failed compress request onto 400 for client
// mistakes and 500 for everything else.
func (h *ImageHandler) respondFailure(c *gin.Context, err error) {
	var validationErr *common.ValidationError
	if errors.As(err, &validationErr) {
		h.respondError(c, http.StatusBadRequest, validationErr.Message, "")
		return
	}

	h.logger.Error("Compression failed", zap.Error(err))
	h.respondError(c, http.StatusInternalServerError, "Compression failed", err.Error())
}

// === UTILITY METHODS ===

func (h *ImageHandler) calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != "healthy" && status != "not configured" {
			return "unhealthy"
		}
	}
	return "healthy"
}
