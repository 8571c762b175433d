package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ultra2000/pdfBot/model"
)

// DocumentStore is an in-memory store for documents and their task jobs.
// In production, this should be replaced with a database.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*model.Document
	jobs      map[string]*model.TaskJob
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*model.Document),
		jobs:      make(map[string]*model.TaskJob),
	}
}

// CreateDocument saves a new document and stamps its timestamps.
func (s *DocumentStore) CreateDocument(doc *model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	s.documents[doc.ID] = doc
}

// Document returns a copy of the document with the given id.
func (s *DocumentStore) Document(id string) (*model.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, false
	}
	return copyDocument(doc), true
}

// UpdateDocument applies fn to the document under the store lock.
func (s *DocumentStore) UpdateDocument(id string, fn func(*model.Document)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return false
	}
	fn(doc)
	doc.UpdatedAt = time.Now()
	return true
}

// DeleteDocument removes a document and, cascading, all its task jobs.
func (s *DocumentStore) DeleteDocument(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return false
	}
	delete(s.documents, id)
	for jobID, job := range s.jobs {
		if job.DocumentID == id {
			delete(s.jobs, jobID)
		}
	}
	return true
}

// HasDocumentsForUser reports whether the user has ever submitted a document.
func (s *DocumentStore) HasDocumentsForUser(whatsappUserID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.documents {
		if doc.WhatsAppUserID == whatsappUserID {
			return true
		}
	}
	return false
}

// ExpiredDocuments returns copies of all documents whose expiration timestamp
// is before now, soonest-expired first.
func (s *DocumentStore) ExpiredDocuments(now time.Time) []*model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []*model.Document
	for _, doc := range s.documents {
		if doc.IsExpired(now) {
			expired = append(expired, copyDocument(doc))
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	return expired
}

// CreateJob saves a new task job.
func (s *DocumentStore) CreateJob(job *model.TaskJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.CreatedAt = time.Now()
	s.jobs[job.ID] = job
}

// Job returns a copy of the task job with the given id.
func (s *DocumentStore) Job(id string) (*model.TaskJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return copyJob(job), true
}

// UpdateJob applies fn to the job under the store lock.
func (s *DocumentStore) UpdateJob(id string, fn func(*model.TaskJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	return true
}

// TransitionJob moves a job to a new status, enforcing monotonic
// pending -> running -> {completed|failed} transitions. Entering running
// stamps the start time; terminal states stamp the completion time.
func (s *DocumentStore) TransitionJob(id, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("task job not found: %s", id)
	}
	if !model.CanTransition(job.Status, to) {
		return fmt.Errorf("illegal job transition %s -> %s for job %s", job.Status, to, id)
	}

	job.Status = to
	now := time.Now()
	switch to {
	case model.StatusRunning:
		job.StartedAt = now
	case model.StatusCompleted, model.StatusFailed:
		job.CompletedAt = now
	}
	return nil
}

// JobsForDocument returns copies of all jobs belonging to a document.
func (s *DocumentStore) JobsForDocument(documentID string) []*model.TaskJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobs []*model.TaskJob
	for _, job := range s.jobs {
		if job.DocumentID == documentID {
			jobs = append(jobs, copyJob(job))
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// RecentJobsForUser returns the user's most recent jobs, newest first.
func (s *DocumentStore) RecentJobsForUser(whatsappUserID string, limit int) []*model.TaskJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobs []*model.TaskJob
	for _, job := range s.jobs {
		doc, ok := s.documents[job.DocumentID]
		if ok && doc.WhatsAppUserID == whatsappUserID {
			jobs = append(jobs, copyJob(job))
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs
}

// CountDocuments returns the number of stored documents.
func (s *DocumentStore) CountDocuments() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// CountJobs returns the number of stored task jobs.
func (s *DocumentStore) CountJobs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func copyDocument(doc *model.Document) *model.Document {
	cp := *doc
	if doc.Metadata != nil {
		cp.Metadata = make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func copyJob(job *model.TaskJob) *model.TaskJob {
	cp := *job
	if job.Parameters != nil {
		cp.Parameters = make(map[string]string, len(job.Parameters))
		for k, v := range job.Parameters {
			cp.Parameters[k] = v
		}
	}
	if job.ResultMetadata != nil {
		cp.ResultMetadata = make(map[string]any, len(job.ResultMetadata))
		for k, v := range job.ResultMetadata {
			cp.ResultMetadata[k] = v
		}
	}
	return &cp
}
