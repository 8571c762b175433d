package job

import (
	"context"
	"time"

	"github.com/Ultra2000/pdfBot/pkg/logger"
	"github.com/Ultra2000/pdfBot/service"
)

// SweepResult summarizes one expiration pass.
type SweepResult struct {
	Candidates int
	Deleted    int
	Errors     int
	FreedBytes int64
}

// Sweeper purges expired documents: blobs first, then the record. A record
// is only dropped once its blobs are gone, so a failed blob deletion keeps
// the document visible for the next pass.
type Sweeper struct {
	store   *service.DocumentStore
	storage service.ObjectStorage
}

func NewSweeper(store *service.DocumentStore, storage service.ObjectStorage) *Sweeper {
	return &Sweeper{store: store, storage: storage}
}

// Sweep processes documents expired as of now, soonest-expired first.
// With dryRun set it only counts candidates and mutates nothing.
func (s *Sweeper) Sweep(ctx context.Context, dryRun bool) SweepResult {
	expired := s.store.ExpiredDocuments(time.Now())
	result := SweepResult{Candidates: len(expired)}

	if dryRun {
		logger.Info(ctx, "cleanup dry run", "candidates", result.Candidates)
		return result
	}

	for _, doc := range expired {
		freed, err := s.deleteBlobs(ctx, doc.StoragePath, doc.OutputPath, doc.FileSize, doc.OutputFileSize)
		if err != nil {
			logger.Error(ctx, "failed to delete blobs for expired document",
				"document_id", doc.ID, "error", err)
			result.Errors++
			continue
		}

		s.store.DeleteDocument(doc.ID)
		result.Deleted++
		result.FreedBytes += freed

		logger.Info(ctx, "expired document purged",
			"document_id", doc.ID, "freed_bytes", freed, "expired_at", doc.ExpiresAt)
	}

	logger.Info(ctx, "cleanup finished",
		"candidates", result.Candidates, "deleted", result.Deleted,
		"errors", result.Errors, "freed_bytes", result.FreedBytes)
	return result
}

// ObjectLister lists stored objects by age, for sweeping the bucket
// directly when no document records are at hand.
type ObjectLister interface {
	ListOlderThan(ctx context.Context, prefix string, cutoff time.Time) ([]service.ObjectInfo, error)
}

// SweepBucket purges stored objects older than the retention window,
// regardless of document records. It covers both input and processed
// prefixes and is the basis of the standalone cleanup command.
func (s *Sweeper) SweepBucket(ctx context.Context, lister ObjectLister, olderThan time.Duration, dryRun bool) SweepResult {
	cutoff := time.Now().Add(-olderThan)
	var result SweepResult

	for _, prefix := range []string{"documents/", "processed/"} {
		infos, err := lister.ListOlderThan(ctx, prefix, cutoff)
		if err != nil {
			logger.Error(ctx, "failed to list bucket objects", "prefix", prefix, "error", err)
			result.Errors++
			continue
		}
		result.Candidates += len(infos)

		if dryRun {
			continue
		}

		for _, info := range infos {
			if err := s.storage.Delete(ctx, info.Key); err != nil {
				logger.Error(ctx, "failed to delete stale object", "key", info.Key, "error", err)
				result.Errors++
				continue
			}
			result.Deleted++
			result.FreedBytes += info.Size
		}
	}

	logger.Info(ctx, "bucket sweep finished",
		"candidates", result.Candidates, "deleted", result.Deleted,
		"errors", result.Errors, "freed_bytes", result.FreedBytes)
	return result
}

func (s *Sweeper) deleteBlobs(ctx context.Context, inputKey, outputKey string, inputSize, outputSize int64) (int64, error) {
	var freed int64
	if inputKey != "" {
		if err := s.storage.Delete(ctx, inputKey); err != nil {
			return freed, err
		}
		freed += inputSize
	}
	if outputKey != "" {
		if err := s.storage.Delete(ctx, outputKey); err != nil {
			return freed, err
		}
		freed += outputSize
	}
	return freed, nil
}
