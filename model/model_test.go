package model

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusFailed, false},
		{StatusCompleted, StatusRunning, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusRunning, false},
		{StatusFailed, StatusCompleted, false},
		{StatusRunning, StatusPending, false},
		{StatusRunning, StatusRunning, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	job := &TaskJob{Status: StatusPending}
	if job.IsTerminal() {
		t.Error("pending should not be terminal")
	}
	job.Status = StatusRunning
	if job.IsTerminal() {
		t.Error("running should not be terminal")
	}
	job.Status = StatusCompleted
	if !job.IsTerminal() {
		t.Error("completed should be terminal")
	}
	job.Status = StatusFailed
	if !job.IsTerminal() {
		t.Error("failed should be terminal")
	}
}

func TestProcessingSeconds(t *testing.T) {
	start := time.Date(2025, 9, 3, 12, 0, 0, 0, time.UTC)

	job := &TaskJob{StartedAt: start, CompletedAt: start.Add(42 * time.Second)}
	if got := job.ProcessingSeconds(); got != 42 {
		t.Errorf("Expected 42 seconds, got %d", got)
	}

	unstarted := &TaskJob{}
	if got := unstarted.ProcessingSeconds(); got != 0 {
		t.Errorf("Expected 0 seconds for unstarted job, got %d", got)
	}

	unfinished := &TaskJob{StartedAt: start}
	if got := unfinished.ProcessingSeconds(); got != 0 {
		t.Errorf("Expected 0 seconds for unfinished job, got %d", got)
	}
}

func TestDocumentIsExpired(t *testing.T) {
	now := time.Now()

	doc := &Document{ExpiresAt: now.Add(-time.Hour)}
	if !doc.IsExpired(now) {
		t.Error("document past expires_at should be expired")
	}

	doc.ExpiresAt = now.Add(time.Hour)
	if doc.IsExpired(now) {
		t.Error("document before expires_at should not be expired")
	}

	noExpiry := &Document{}
	if noExpiry.IsExpired(now) {
		t.Error("document without expires_at should never expire")
	}
}
