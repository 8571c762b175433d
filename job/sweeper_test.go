package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ultra2000/pdfBot/model"
	"github.com/Ultra2000/pdfBot/service"
)

func seedExpired(store *service.DocumentStore, storage *memStorage, id string, expiredAgo time.Duration) {
	inputKey := "documents/" + id + ".pdf"
	outputKey := "processed/compress/" + id + ".pdf"
	storage.objects[inputKey] = make([]byte, 100)
	storage.objects[outputKey] = make([]byte, 40)
	store.CreateDocument(&model.Document{
		ID:             id,
		StoragePath:    inputKey,
		OutputPath:     outputKey,
		FileSize:       100,
		OutputFileSize: 40,
		ExpiresAt:      time.Now().Add(-expiredAgo),
	})
}

func TestSweepDeletesExpired(t *testing.T) {
	store := service.NewDocumentStore()
	storage := newMemStorage()

	seedExpired(store, storage, "old", 2*time.Hour)
	seedExpired(store, storage, "older", 3*time.Hour)
	store.CreateDocument(&model.Document{ID: "fresh", ExpiresAt: time.Now().Add(time.Hour)})

	result := NewSweeper(store, storage).Sweep(context.Background(), false)

	if result.Candidates != 2 || result.Deleted != 2 || result.Errors != 0 {
		t.Fatalf("Unexpected result: %+v", result)
	}
	if result.FreedBytes != 280 {
		t.Errorf("Expected 280 freed bytes, got %d", result.FreedBytes)
	}
	if _, ok := store.Document("old"); ok {
		t.Error("Expected expired document record removed")
	}
	if _, ok := store.Document("fresh"); !ok {
		t.Error("Expected fresh document to survive")
	}
	if len(storage.keysWithPrefix("documents/old")) != 0 {
		t.Error("Expected expired blobs removed")
	}
}

func TestSweepDryRunMutatesNothing(t *testing.T) {
	store := service.NewDocumentStore()
	storage := newMemStorage()
	seedExpired(store, storage, "old", time.Hour)

	result := NewSweeper(store, storage).Sweep(context.Background(), true)

	if result.Candidates != 1 {
		t.Errorf("Expected 1 candidate, got %d", result.Candidates)
	}
	if result.Deleted != 0 || result.FreedBytes != 0 {
		t.Errorf("Dry run must not delete: %+v", result)
	}
	if _, ok := store.Document("old"); !ok {
		t.Error("Dry run must keep the record")
	}
	if len(storage.keysWithPrefix("documents/old")) != 1 {
		t.Error("Dry run must keep the blobs")
	}
}

func TestSweepKeepsRecordOnBlobError(t *testing.T) {
	store := service.NewDocumentStore()
	storage := newMemStorage()
	seedExpired(store, storage, "stuck", time.Hour)
	seedExpired(store, storage, "ok", 2*time.Hour)
	storage.deleteErr["documents/stuck.pdf"] = errors.New("access denied")

	result := NewSweeper(store, storage).Sweep(context.Background(), false)

	if result.Candidates != 2 || result.Deleted != 1 || result.Errors != 1 {
		t.Fatalf("Unexpected result: %+v", result)
	}
	if _, ok := store.Document("stuck"); !ok {
		t.Error("Record must survive a failed blob deletion for the next pass")
	}
	if _, ok := store.Document("ok"); ok {
		t.Error("Expected healthy expired document purged")
	}
}

type staticLister struct {
	infos map[string][]service.ObjectInfo
	err   error
}

func (l *staticLister) ListOlderThan(ctx context.Context, prefix string, cutoff time.Time) ([]service.ObjectInfo, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.infos[prefix], nil
}

func TestSweepBucket(t *testing.T) {
	store := service.NewDocumentStore()
	storage := newMemStorage()
	storage.objects["documents/stale.pdf"] = make([]byte, 100)
	storage.objects["processed/compress/stale.txt"] = make([]byte, 30)

	lister := &staticLister{infos: map[string][]service.ObjectInfo{
		"documents/": {{Key: "documents/stale.pdf", Size: 100}},
		"processed/": {{Key: "processed/compress/stale.txt", Size: 30}},
	}}

	result := NewSweeper(store, storage).SweepBucket(context.Background(), lister, 24*time.Hour, false)
	if result.Candidates != 2 || result.Deleted != 2 || result.FreedBytes != 130 {
		t.Fatalf("Unexpected result: %+v", result)
	}
	if len(storage.keysWithPrefix("documents/")) != 0 || len(storage.keysWithPrefix("processed/")) != 0 {
		t.Error("Expected stale objects removed")
	}
}

func TestSweepBucketDryRun(t *testing.T) {
	storage := newMemStorage()
	storage.objects["documents/stale.pdf"] = make([]byte, 100)

	lister := &staticLister{infos: map[string][]service.ObjectInfo{
		"documents/": {{Key: "documents/stale.pdf", Size: 100}},
	}}

	result := NewSweeper(service.NewDocumentStore(), storage).SweepBucket(context.Background(), lister, 24*time.Hour, true)
	if result.Candidates != 1 || result.Deleted != 0 {
		t.Fatalf("Unexpected dry-run result: %+v", result)
	}
	if len(storage.keysWithPrefix("documents/")) != 1 {
		t.Error("Dry run must keep objects")
	}
}

func TestSweepBucketListError(t *testing.T) {
	lister := &staticLister{err: errors.New("connection reset")}
	result := NewSweeper(service.NewDocumentStore(), newMemStorage()).SweepBucket(context.Background(), lister, 24*time.Hour, false)
	if result.Errors != 2 || result.Deleted != 0 {
		t.Errorf("Expected an error per prefix, got %+v", result)
	}
}

func TestSweepEmptyStore(t *testing.T) {
	store := service.NewDocumentStore()
	result := NewSweeper(store, newMemStorage()).Sweep(context.Background(), false)
	if result.Candidates != 0 || result.Deleted != 0 || result.Errors != 0 {
		t.Errorf("Unexpected result for empty store: %+v", result)
	}
}
