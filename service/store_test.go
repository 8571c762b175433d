package service

import (
	"testing"
	"time"

	"github.com/Ultra2000/pdfBot/model"
)

func TestDocumentLifecycle(t *testing.T) {
	store := NewDocumentStore()

	doc := &model.Document{
		ID:             "doc-1",
		OriginalName:   "contract.pdf",
		WhatsAppUserID: "whatsapp:+33600000001",
		Status:         model.StatusPending,
	}
	store.CreateDocument(doc)

	if doc.CreatedAt.IsZero() || doc.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be stamped on create")
	}

	got, ok := store.Document("doc-1")
	if !ok {
		t.Fatal("Expected document to exist")
	}
	if got.OriginalName != "contract.pdf" {
		t.Errorf("Unexpected original name: %s", got.OriginalName)
	}

	// Mutating the returned copy must not leak into the store.
	got.OriginalName = "mutated.pdf"
	again, _ := store.Document("doc-1")
	if again.OriginalName != "contract.pdf" {
		t.Error("Document() must return a copy")
	}

	if !store.UpdateDocument("doc-1", func(d *model.Document) {
		d.Status = model.StatusCompleted
	}) {
		t.Fatal("Expected update to succeed")
	}
	updated, _ := store.Document("doc-1")
	if updated.Status != model.StatusCompleted {
		t.Errorf("Expecting completed, got %s", updated.Status)
	}

	if store.UpdateDocument("missing", func(d *model.Document) {}) {
		t.Error("Expected update of missing document to fail")
	}
}

func TestDeleteDocumentCascadesJobs(t *testing.T) {
	store := NewDocumentStore()
	store.CreateDocument(&model.Document{ID: "doc-1"})
	store.CreateDocument(&model.Document{ID: "doc-2"})
	store.CreateJob(&model.TaskJob{ID: "job-1", DocumentID: "doc-1", Status: model.StatusPending})
	store.CreateJob(&model.TaskJob{ID: "job-2", DocumentID: "doc-1", Status: model.StatusPending})
	store.CreateJob(&model.TaskJob{ID: "job-3", DocumentID: "doc-2", Status: model.StatusPending})

	if !store.DeleteDocument("doc-1") {
		t.Fatal("Expected delete to succeed")
	}
	if _, ok := store.Job("job-1"); ok {
		t.Error("Expected job-1 to be cascaded away")
	}
	if _, ok := store.Job("job-2"); ok {
		t.Error("Expected job-2 to be cascaded away")
	}
	if _, ok := store.Job("job-3"); !ok {
		t.Error("Expected job-3 of another document to survive")
	}
	if store.DeleteDocument("doc-1") {
		t.Error("Expected second delete to report missing")
	}
}

func TestTransitionJob(t *testing.T) {
	store := NewDocumentStore()
	store.CreateJob(&model.TaskJob{ID: "job-1", Status: model.StatusPending})

	if err := store.TransitionJob("job-1", model.StatusRunning); err != nil {
		t.Fatalf("pending -> running: %v", err)
	}
	job, _ := store.Job("job-1")
	if job.StartedAt.IsZero() {
		t.Error("Expected StartedAt to be stamped on running")
	}

	if err := store.TransitionJob("job-1", model.StatusCompleted); err != nil {
		t.Fatalf("running -> completed: %v", err)
	}
	job, _ = store.Job("job-1")
	if job.CompletedAt.IsZero() {
		t.Error("Expected CompletedAt to be stamped on completion")
	}

	// Terminal states are final.
	if err := store.TransitionJob("job-1", model.StatusRunning); err == nil {
		t.Error("Expected completed -> running to be rejected")
	}
	if err := store.TransitionJob("job-1", model.StatusFailed); err == nil {
		t.Error("Expected completed -> failed to be rejected")
	}

	if err := store.TransitionJob("missing", model.StatusRunning); err == nil {
		t.Error("Expected transition of missing job to fail")
	}
}

func TestTransitionJobSkippingRunning(t *testing.T) {
	store := NewDocumentStore()
	store.CreateJob(&model.TaskJob{ID: "job-1", Status: model.StatusPending})

	if err := store.TransitionJob("job-1", model.StatusCompleted); err == nil {
		t.Error("Expected pending -> completed to be rejected")
	}
	if err := store.TransitionJob("job-1", model.StatusFailed); err == nil {
		t.Error("Expected pending -> failed to be rejected")
	}
}

func TestExpiredDocumentsOrdering(t *testing.T) {
	store := NewDocumentStore()
	now := time.Now()

	store.CreateDocument(&model.Document{ID: "fresh", ExpiresAt: now.Add(time.Hour)})
	store.CreateDocument(&model.Document{ID: "older", ExpiresAt: now.Add(-2 * time.Hour)})
	store.CreateDocument(&model.Document{ID: "oldest", ExpiresAt: now.Add(-3 * time.Hour)})
	store.CreateDocument(&model.Document{ID: "never"}) // zero ExpiresAt never expires

	expired := store.ExpiredDocuments(now)
	if len(expired) != 2 {
		t.Fatalf("Expected 2 expired documents, got %d", len(expired))
	}
	if expired[0].ID != "oldest" || expired[1].ID != "older" {
		t.Errorf("Expected soonest-expired first, got %s, %s", expired[0].ID, expired[1].ID)
	}
}

func TestRecentJobsForUser(t *testing.T) {
	store := NewDocumentStore()
	store.CreateDocument(&model.Document{ID: "doc-1", WhatsAppUserID: "whatsapp:+33600000001"})
	store.CreateDocument(&model.Document{ID: "doc-2", WhatsAppUserID: "whatsapp:+33600000002"})

	for i, id := range []string{"job-a", "job-b", "job-c"} {
		store.CreateJob(&model.TaskJob{ID: id, DocumentID: "doc-1", Status: model.StatusPending})
		// CreateJob stamps CreatedAt with time.Now; spread them out so the
		// ordering assertion is deterministic.
		offset := time.Duration(i) * time.Minute
		store.UpdateJob(id, func(j *model.TaskJob) {
			j.CreatedAt = time.Now().Add(offset)
		})
	}
	store.CreateJob(&model.TaskJob{ID: "job-other", DocumentID: "doc-2", Status: model.StatusPending})

	jobs := store.RecentJobsForUser("whatsapp:+33600000001", 2)
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "job-c" || jobs[1].ID != "job-b" {
		t.Errorf("Expected newest first, got %s, %s", jobs[0].ID, jobs[1].ID)
	}

	all := store.RecentJobsForUser("whatsapp:+33600000001", 0)
	if len(all) != 3 {
		t.Errorf("Expected 3 jobs without limit, got %d", len(all))
	}
}

func TestHasDocumentsForUser(t *testing.T) {
	store := NewDocumentStore()
	if store.HasDocumentsForUser("whatsapp:+33600000001") {
		t.Error("Expected no documents for unknown user")
	}
	store.CreateDocument(&model.Document{ID: "doc-1", WhatsAppUserID: "whatsapp:+33600000001"})
	if !store.HasDocumentsForUser("whatsapp:+33600000001") {
		t.Error("Expected documents for known user")
	}
}
