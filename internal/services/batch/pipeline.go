package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/phambaophuc/image-compressor/internal/common"
	"github.com/phambaophuc/image-compressor/internal/models"
	"github.com/phambaophuc/image-compressor/internal/services/archive"
	"github.com/phambaophuc/image-compressor/internal/services/processor"
	"github.com/phambaophuc/image-compressor/internal/services/workspace"
	"go.uber.org/zap"
)

const downloadPath = "/download"

type Archiver interface {
	Build(sourceDir, archivePath string) <-chan archive.Result
}

type Registry interface {
	Save(ctx context.Context, record models.BatchRecord) error
}

type ArchiveMirror interface {
	Upload(ctx context.Context, batchID, archivePath string) (string, error)
}

type EventPublisher interface {
	PublishBatchEvent(ctx context.Context, event models.BatchEvent) error
}

type WorkspaceRemover interface {
	Remove(id string) error
}

// Batch is one staged compress request.
type Batch struct {
	Workspace *workspace.Workspace
	Files     []models.UploadedFile
	Params    models.TransformParameters
}

type Pipeline struct {
	runner     *Runner
	archiver   Archiver
	registry   Registry
	mirror     ArchiveMirror
	publisher  EventPublisher
	workspaces WorkspaceRemover
	timeout    time.Duration
	logger     *zap.Logger
}

type PipelineOptions struct {
	Registry   Registry
	Mirror     ArchiveMirror
	Publisher  EventPublisher
	Workspaces WorkspaceRemover
	Timeout    time.Duration
}

func NewPipeline(runner *Runner, archiver Archiver, opts PipelineOptions, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		runner:     runner,
		archiver:   archiver,
		registry:   opts.Registry,
		mirror:     opts.Mirror,
		publisher:  opts.Publisher,
		workspaces: opts.Workspaces,
		timeout:    opts.Timeout,
		logger:     logger,
	}
}

// Execute drives one batch through Validating, Transforming, Archiving and
// Reporting. Per-file failures are part of the response; only validation,
// setup, archive and context errors fail the batch.
func (p *Pipeline) Execute(ctx context.Context, b Batch) (*models.BatchResponse, error) {
	ws := b.Workspace
	sm := newStateMachine(ws.ID, p.logger)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var pendingArchive <-chan archive.Result
	fail := func(err error) (*models.BatchResponse, error) {
		sm.fail(err)
		p.publish(context.WithoutCancel(ctx), models.BatchEvent{
			BatchID:    ws.ID,
			Status:     models.StatusFailed,
			Error:      err.Error(),
			OccurredAt: time.Now(),
		})
		p.discard(ws.ID, pendingArchive)
		return nil, err
	}

	sm.advance(StageValidating)
	if len(b.Files) == 0 {
		return fail(common.NewValidationError(common.ErrNoFiles, "No files uploaded"))
	}
	if err := processor.ValidateParameters(b.Params); err != nil {
		return fail(err)
	}

	sm.advance(StageTransforming)
	run, err := p.runner.Run(ctx, b.Files, b.Params, ws.OutputDir)
	if err != nil {
		return fail(err)
	}

	sm.advance(StageArchiving)
	pendingArchive = p.archiver.Build(ws.OutputDir, ws.ArchivePath)
	select {
	case res := <-pendingArchive:
		pendingArchive = nil
		if res.Err != nil {
			return fail(res.Err)
		}
	case <-ctx.Done():
		return fail(fmt.Errorf("batch aborted while archiving: %w", ctx.Err()))
	}

	sm.advance(StageReporting)
	summary := Report(run.Results, len(b.Files), run.Totals, filepath.Base(ws.ArchivePath))
	summary.BatchID = ws.ID
	summary.DownloadURL = downloadPath + "?batch=" + ws.ID
	summary.ArchiveURL = p.mirrorArchive(ctx, ws)

	p.register(ctx, ws, summary)

	sm.advance(StageDone)
	p.logger.Info("Batch completed",
		zap.String("batch_id", ws.ID),
		zap.Int("files", summary.TotalFiles),
		zap.Int("failed", summary.Failed),
		zap.Float64("ratio", summary.TotalCompressionRatio))

	p.publish(ctx, models.BatchEvent{
		BatchID:    ws.ID,
		Status:     models.StatusCompleted,
		Summary:    summary,
		OccurredAt: time.Now(),
	})

	return &models.BatchResponse{
		Success: true,
		Results: run.Results,
		Summary: summary,
	}, nil
}

func (p *Pipeline) mirrorArchive(ctx context.Context, ws *workspace.Workspace) string {
	if p.mirror == nil {
		return ""
	}

	url, err := p.mirror.Upload(ctx, ws.ID, ws.ArchivePath)
	if err != nil {
		p.logger.Warn("Failed to mirror archive", zap.String("batch_id", ws.ID), zap.Error(err))
		return ""
	}
	return url
}

func (p *Pipeline) register(ctx context.Context, ws *workspace.Workspace, summary models.BatchSummary) {
	if p.registry == nil {
		return
	}

	record := models.BatchRecord{
		ID:          ws.ID,
		WorkDir:     ws.Root,
		ArchivePath: ws.ArchivePath,
		ArchiveName: filepath.Base(ws.ArchivePath),
		ArchiveURL:  summary.ArchiveURL,
		Summary:     summary,
		CreatedAt:   time.Now(),
	}
	if err := p.registry.Save(ctx, record); err != nil {
		p.logger.Warn("Failed to register batch", zap.String("batch_id", ws.ID), zap.Error(err))
	}
}

func (p *Pipeline) publish(ctx context.Context, event models.BatchEvent) {
	if p.publisher == nil {
		return
	}

	if err := p.publisher.PublishBatchEvent(ctx, event); err != nil {
		p.logger.Warn("Failed to publish batch event",
			zap.String("batch_id", event.BatchID),
			zap.String("status", event.Status),
			zap.Error(err))
	}
}

// discard removes a failed batch's workspace, after any in-flight archive
// write has finished.
func (p *Pipeline) discard(id string, pending <-chan archive.Result) {
	if p.workspaces == nil {
		return
	}

	remove := func() {
		if err := p.workspaces.Remove(id); err != nil {
			p.logger.Warn("Failed to remove workspace", zap.String("batch_id", id), zap.Error(err))
		}
	}

	if pending == nil {
		remove()
		return
	}

	go func() {
		<-pending
		remove()
	}()
}
