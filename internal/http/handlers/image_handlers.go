package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/image-compressor/internal/common"
	"github.com/phambaophuc/image-compressor/internal/config"
	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/phambaophuc/image-compressor/internal/services/batch"
	"github.com/phambaophuc/image-compressor/internal/services/storage"
	"github.com/phambaophuc/image-compressor/internal/services/workspace"
	"go.uber.org/zap"
)

const (
	imagesParamKey = "images"
	batchQueryKey  = "batch"
)

// BatchExecutor runs one staged batch to completion.
type BatchExecutor interface {
	Execute(ctx context.Context, b batch.Batch) (*models.BatchResponse, error)
}

// ArchiveMirror is the remote copy of finished archives.
type ArchiveMirror interface {
	Download(ctx context.Context, batchID, archiveName string) ([]byte, error)
	Delete(ctx context.Context, batchID, archiveName string) error
	HealthCheck(ctx context.Context) string
}

type HealthChecker interface {
	HealthCheck() string
}

type ImageHandler struct {
	pipeline   BatchExecutor
	workspaces *workspace.Manager
	registry   storage.Registry
	mirror     ArchiveMirror
	queue      HealthChecker
	logger     *zap.Logger
	config     *config.Config
}

func NewImageHandler(
	pipeline BatchExecutor,
	workspaces *workspace.Manager,
	registry storage.Registry,
	logger *zap.Logger,
	config *config.Config,
) *ImageHandler {
	return &ImageHandler{
		pipeline:   pipeline,
		workspaces: workspaces,
		registry:   registry,
		logger:     logger,
		config:     config,
	}
}

// WithMirror enables download fallback to, and cleanup of, mirrored archives.
func (h *ImageHandler) WithMirror(mirror ArchiveMirror) *ImageHandler {
	h.mirror = mirror
	return h
}

// WithQueue adds the event queue to the health report.
func (h *ImageHandler) WithQueue(queue HealthChecker) *ImageHandler {
	h.queue = queue
	return h
}

// === MAIN API ENDPOINTS ===

// Compress accepts a multipart batch of images, recompresses each to WebP
// and answers with per-file results plus a summary pointing at the archive.
func (h *ImageHandler) Compress(c *gin.Context) {
	ws, uploads, form, err := h.readUploads(c)
	if err != nil {
		h.respondFailure(c, err)
		return
	}

	params, err := h.parseCompressParams(form)
	if err != nil {
		h.discardWorkspace(ws)
		h.respondFailure(c, err)
		return
	}

	resp, err := h.pipeline.Execute(c.Request.Context(), batch.Batch{
		Workspace: ws,
		Files:     uploads,
		Params:    params,
	})
	if err != nil {
		h.respondFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Download streams the archive of the requested batch, or of the most recent
// one when no batch is named.
func (h *ImageHandler) Download(c *gin.Context) {
	record, err := h.resolveBatch(c.Request.Context(), c.Query(batchQueryKey))
	if err != nil {
		if errors.Is(err, common.ErrBatchNotFound) || errors.Is(err, common.ErrInvalidBatchID) {
			h.respondError(c, http.StatusNotFound, common.ErrArchiveNotFound.Error(), "")
			return
		}
		h.logger.Error("Failed to resolve batch", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Download failed", err.Error())
		return
	}

	if h.serveLocalArchive(c, record) {
		return
	}

	if h.serveMirroredArchive(c, record) {
		return
	}

	h.respondError(c, http.StatusNotFound, common.ErrArchiveNotFound.Error(), "")
}

// Cleanup removes one batch when named, otherwise every workspace. It is
// idempotent.
func (h *ImageHandler) Cleanup(c *gin.Context) {
	ctx := c.Request.Context()

	var err error
	if id := c.Query(batchQueryKey); id != "" {
		err = h.cleanupBatch(ctx, id)
	} else {
		err = h.cleanupAll(ctx)
	}

	if err != nil {
		if errors.Is(err, common.ErrInvalidBatchID) {
			h.respondError(c, http.StatusBadRequest, "Invalid batch id", "")
			return
		}
		h.logger.Error("Cleanup failed", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Cleanup failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Files cleaned up successfully",
	})
}

// HealthCheck
func (h *ImageHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	services := map[string]string{
		"workspace": h.workspaces.HealthCheck(),
		"registry":  h.registry.HealthCheck(ctx),
		"queue":     "not configured",
		"storage":   "not configured",
	}
	if h.queue != nil {
		services["queue"] = h.queue.HealthCheck()
	}
	if h.mirror != nil {
		services["storage"] = h.mirror.HealthCheck(ctx)
	}

	overall := h.calculateOverallHealth(services)

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == "healthy",
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
		},
	})
}
