package job

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ultra2000/pdfBot/config"
	"github.com/Ultra2000/pdfBot/model"
	"github.com/Ultra2000/pdfBot/pkg/logger"
	"github.com/Ultra2000/pdfBot/service"
	"github.com/oklog/ulid/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	failureNotice  = "❌ Erreur lors du traitement de votre PDF. Veuillez réessayer."
	deliveryNotice = "❌ Traitement terminé mais erreur d'envoi. Veuillez réessayer."
)

// Processor runs one operation against the remote processing service.
type Processor interface {
	Process(ctx context.Context, op model.OperationType, inputKey string, params map[string]string) service.ProcessResult
}

// Engine drives one task job through its full lifecycle: fetch the media,
// persist the input, process it (remotely or via placeholder fallback),
// deliver the result, and record the terminal state. All operations share
// this engine; per-operation behavior lives in Strategy values.
type Engine struct {
	store     *service.DocumentStore
	storage   service.ObjectStorage
	downloads *service.DownloadService
	processor Processor
	messenger service.Messenger

	remoteEnabled bool
	signedURLTTL  time.Duration
	cleanupAge    time.Duration
}

func NewEngine(
	store *service.DocumentStore,
	storage service.ObjectStorage,
	downloads *service.DownloadService,
	processor Processor,
	messenger service.Messenger,
	cfg *config.Config,
) *Engine {
	return &Engine{
		store:         store,
		storage:       storage,
		downloads:     downloads,
		processor:     processor,
		messenger:     messenger,
		remoteEnabled: cfg.PdfService.Enabled,
		signedURLTTL:  cfg.Minio.SignedURLTTL(),
		cleanupAge:    cfg.Documents.TempCleanupAge(),
	}
}

// Run executes the job's lifecycle. Errors terminate the job in the failed
// state and notify the user; Run itself never returns one.
func (e *Engine) Run(ctx context.Context, documentID, jobID, replyTo string) {
	defer e.downloads.Cleanup(e.cleanupAge)

	doc, ok := e.store.Document(documentID)
	if !ok {
		logger.Error(ctx, "document not found", "document_id", documentID)
		return
	}
	taskJob, ok := e.store.Job(jobID)
	if !ok {
		logger.Error(ctx, "task job not found", "job_id", jobID)
		return
	}
	logger.Info(ctx, "job started", "job_id", jobID, "document_id", documentID, "type", taskJob.Type)

	if err := e.store.TransitionJob(jobID, model.StatusRunning); err != nil {
		logger.Error(ctx, "cannot start job", "job_id", jobID, "error", err)
		return
	}
	e.store.UpdateDocument(documentID, func(d *model.Document) {
		d.Status = model.StatusRunning
	})

	strategy := StrategyFor(taskJob.Type)
	if strategy == nil {
		e.fail(ctx, documentID, jobID, replyTo, fmt.Errorf("unsupported operation: %s", taskJob.Type))
		return
	}

	inputKey, err := e.fetchAndStore(ctx, doc, taskJob)
	if err != nil {
		e.fail(ctx, documentID, jobID, replyTo, err)
		return
	}

	outputKey := e.process(ctx, doc, taskJob, strategy, inputKey)
	if outputKey == "" {
		e.fail(ctx, documentID, jobID, replyTo, fmt.Errorf("no output produced"))
		return
	}

	e.deliver(ctx, taskJob, strategy, outputKey, replyTo)

	e.complete(ctx, documentID, jobID, outputKey)
}

// fetchAndStore downloads the user's media and persists it under a
// deterministic input key, recording size and page count on the document.
func (e *Engine) fetchAndStore(ctx context.Context, doc *model.Document, taskJob *model.TaskJob) (string, error) {
	mediaURL := doc.Metadata["media_url"]
	if mediaURL == "" {
		return "", fmt.Errorf("no media URL in document metadata")
	}

	localPath, err := e.downloads.Download(ctx, mediaURL)
	if err != nil {
		return "", fmt.Errorf("media download failed: %w", err)
	}
	defer os.Remove(localPath)

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read downloaded file: %w", err)
	}

	inputKey := inputStorageKey(doc.ID, taskJob.Type, time.Now())
	if err := e.storage.Put(ctx, inputKey, data, "application/pdf"); err != nil {
		return "", fmt.Errorf("failed to persist input: %w", err)
	}

	pages := 0
	if n, err := api.PageCountFile(localPath); err == nil {
		pages = n
	} else {
		logger.Warn(ctx, "page count failed", "document_id", doc.ID, "error", err)
	}

	e.store.UpdateDocument(doc.ID, func(d *model.Document) {
		d.StoragePath = inputKey
		d.FileSize = int64(len(data))
		d.MimeType = "application/pdf"
		if d.Metadata == nil {
			d.Metadata = make(map[string]string)
		}
		if pages > 0 {
			d.Metadata["page_count"] = fmt.Sprintf("%d", pages)
		}
	})

	logger.Info(ctx, "input stored", "document_id", doc.ID, "key", inputKey, "size", len(data), "pages", pages)
	return inputKey, nil
}

// process runs the remote service when enabled and falls back to the
// strategy's placeholder artifact when it is disabled or fails. It always
// yields an output key.
func (e *Engine) process(ctx context.Context, doc *model.Document, taskJob *model.TaskJob, strategy *Strategy, inputKey string) string {
	if e.remoteEnabled {
		result := e.processor.Process(ctx, taskJob.Type, inputKey, strategy.RemoteParams(taskJob.Parameters))
		if result.Success {
			e.store.UpdateDocument(doc.ID, func(d *model.Document) {
				d.OutputPath = result.OutputKey
				d.OutputFileSize = result.Size
				if d.Metadata == nil {
					d.Metadata = make(map[string]string)
				}
				d.Metadata["output_content_type"] = result.ContentType
			})
			return result.OutputKey
		}
		logger.Warn(ctx, "remote processing failed, falling back to placeholder",
			"document_id", doc.ID, "type", taskJob.Type, "error", result.Error)
	} else {
		logger.Info(ctx, "remote processing disabled, using placeholder", "document_id", doc.ID)
	}

	return e.placeholder(ctx, doc, taskJob, strategy, inputKey)
}

func (e *Engine) placeholder(ctx context.Context, doc *model.Document, taskJob *model.TaskJob, strategy *Strategy, inputKey string) string {
	content := strategy.PlaceholderContent(doc, taskJob.Parameters)
	outputKey := outputStorageKey(taskJob.Type, inputKey, strategy.PlaceholderExt(taskJob.Parameters))

	if err := e.storage.Put(ctx, outputKey, []byte(content), "text/plain"); err != nil {
		logger.Error(ctx, "failed to store placeholder", "key", outputKey, "error", err)
		return ""
	}

	e.store.UpdateDocument(doc.ID, func(d *model.Document) {
		d.OutputPath = outputKey
		d.OutputFileSize = int64(len(content))
		if d.Metadata == nil {
			d.Metadata = make(map[string]string)
		}
		d.Metadata["processing"] = "placeholder"
		d.Metadata["placeholder_reason"] = placeholderReason(e.remoteEnabled)
	})

	logger.Info(ctx, "placeholder stored", "document_id", doc.ID, "key", outputKey)
	return outputKey
}

// deliver sends the result to the user. Delivery failure produces an
// apology but never fails the job: the artifact exists and is retrievable.
func (e *Engine) deliver(ctx context.Context, taskJob *model.TaskJob, strategy *Strategy, outputKey, replyTo string) {
	signedURL, err := e.storage.SignedURL(ctx, outputKey, e.signedURLTTL)
	if err != nil {
		logger.Error(ctx, "failed to presign result", "key", outputKey, "error", err)
		e.messenger.SendText(ctx, replyTo, deliveryNotice)
		return
	}

	// Caption renders elapsed time; the job is stamped completed just after
	// delivery, so approximate with a copy completed now.
	captionJob := *taskJob
	captionJob.CompletedAt = time.Now()
	if captionJob.StartedAt.IsZero() {
		if j, ok := e.store.Job(taskJob.ID); ok {
			captionJob.StartedAt = j.StartedAt
		}
	}

	if !e.messenger.SendMedia(ctx, replyTo, strategy.Caption(&captionJob), signedURL) {
		logger.Error(ctx, "result delivery failed", "job_id", taskJob.ID, "to", replyTo)
		e.messenger.SendText(ctx, replyTo, deliveryNotice)
	}
}

func (e *Engine) complete(ctx context.Context, documentID, jobID, outputKey string) {
	if err := e.store.TransitionJob(jobID, model.StatusCompleted); err != nil {
		logger.Error(ctx, "cannot complete job", "job_id", jobID, "error", err)
		return
	}
	e.store.UpdateJob(jobID, func(j *model.TaskJob) {
		j.ResultMetadata = map[string]any{
			"success":                 true,
			"processing_time_seconds": j.ProcessingSeconds(),
			"output_path":             outputKey,
		}
	})
	e.store.UpdateDocument(documentID, func(d *model.Document) {
		d.Status = model.StatusCompleted
	})

	logger.Info(ctx, "job completed", "job_id", jobID, "document_id", documentID, "output_key", outputKey)
}

func (e *Engine) fail(ctx context.Context, documentID, jobID, replyTo string, cause error) {
	if err := e.store.TransitionJob(jobID, model.StatusFailed); err != nil {
		logger.Error(ctx, "cannot fail job", "job_id", jobID, "error", err)
	}
	e.store.UpdateJob(jobID, func(j *model.TaskJob) {
		j.ErrorMessage = cause.Error()
	})
	e.store.UpdateDocument(documentID, func(d *model.Document) {
		d.Status = model.StatusFailed
	})

	logger.Error(ctx, "job failed", "job_id", jobID, "document_id", documentID, "error", cause)

	e.messenger.SendText(ctx, replyTo, failureNotice)
}

// inputStorageKey builds the deterministic input key:
// documents/{timestamp}_{operation}_{hash8}.pdf
func inputStorageKey(documentID string, op model.OperationType, now time.Time) string {
	ts := now.Format("2006-01-02_15-04-05")
	hash := fmt.Sprintf("%x", md5.Sum([]byte(documentID+ts)))[:8]
	return fmt.Sprintf("documents/%s_%s_%s.pdf", ts, op, hash)
}

// outputStorageKey builds a collision-resistant output key:
// processed/{operation}/{stem}_{ulid}{ext}
func outputStorageKey(op model.OperationType, inputKey, ext string) string {
	base := filepath.Base(inputKey)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("processed/%s/%s_%s%s", op, stem, ulid.Make().String(), ext)
}

func placeholderReason(remoteEnabled bool) string {
	if !remoteEnabled {
		return "service_disabled"
	}
	return "service_error"
}
